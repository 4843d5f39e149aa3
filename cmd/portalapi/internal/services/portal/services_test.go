package portal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/apperr"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/notify"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/policy"
)

func visibleService() *notify.Service {
	return &notify.Service{
		ServiceID:              "sub-1",
		ServiceName:            "Old",
		DepartmentName:         "Dept",
		OrganizationName:       "Org",
		OrganizationFiscalCode: "00000000000",
		IsVisible:              true,
		ServiceMetadata:        &notify.ServiceMetadata{Scope: notify.ScopeLocal, TokenName: "tok"},
	}
}

func scopePayload() policy.ServicePayload {
	name := "New"
	scope := notify.ScopeNational
	token := "other"
	return policy.ServicePayload{
		ServiceName:     &name,
		ServiceMetadata: &policy.MetadataPayload{Scope: &scope, TokenName: &token},
	}
}

func TestUpdateService_DeveloperCannotChangeScopeOfVisibleService(t *testing.T) {
	f := newFixture(t)
	f.expectAccount(controlplane.Account{ID: "a1", Email: "a1@example.com", Groups: []string{"user"}})
	f.cp.On("GetSubscription", mock.Anything, "sub-1").Return(&controlplane.Subscription{ID: "sub-1", OwnerID: "a1"}, nil)
	f.notify.On("GetService", mock.Anything, "sub-1").Return(visibleService(), nil)
	f.notify.On("UpdateService", mock.Anything, mock.MatchedBy(func(s notify.Service) bool {
		return s.ServiceName == "New" && s.Scope() == notify.ScopeLocal && s.ServiceMetadata.TokenName == "tok"
	})).Return(&notify.Service{ServiceID: "sub-1", ServiceName: "New"}, nil)

	updated, err := f.svc.UpdateService(context.Background(), identity("a1@example.com"), "", "sub-1", scopePayload())
	require.NoError(t, err)
	assert.Equal(t, "New", updated.ServiceName)
	f.notify.AssertExpectations(t)
}

func TestUpdateService_AdminChangesScopeAndToken(t *testing.T) {
	f := newFixture(t)
	f.expectAccount(controlplane.Account{ID: "admin", Email: "admin@example.com", Groups: []string{"apiadmin"}})
	f.cp.On("GetSubscription", mock.Anything, "sub-1").Return(&controlplane.Subscription{ID: "sub-1", OwnerID: "a3"}, nil)
	f.notify.On("GetService", mock.Anything, "sub-1").Return(visibleService(), nil)
	f.notify.On("UpdateService", mock.Anything, mock.MatchedBy(func(s notify.Service) bool {
		return s.Scope() == notify.ScopeNational && s.ServiceMetadata.TokenName == "other"
	})).Return(&notify.Service{ServiceID: "sub-1"}, nil)

	_, err := f.svc.UpdateService(context.Background(), identity("admin@example.com"), "", "sub-1", scopePayload())
	require.NoError(t, err)
	f.notify.AssertExpectations(t)
}

func TestUpdateService_NotOwned(t *testing.T) {
	f := newFixture(t)
	f.expectAccount(controlplane.Account{ID: "a1", Email: "a1@example.com"})
	f.cp.On("GetSubscription", mock.Anything, "sub-1").Return(&controlplane.Subscription{ID: "sub-1", OwnerID: "a3"}, nil)

	_, err := f.svc.UpdateService(context.Background(), identity("a1@example.com"), "", "sub-1", scopePayload())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	f.notify.AssertNotCalled(t, "GetService", mock.Anything, mock.Anything)
	f.notify.AssertNotCalled(t, "UpdateService", mock.Anything, mock.Anything)
}

func TestGetService(t *testing.T) {
	f := newFixture(t)
	f.expectAccount(controlplane.Account{ID: "a1", Email: "a1@example.com"})
	f.cp.On("GetSubscription", mock.Anything, "sub-1").Return(&controlplane.Subscription{ID: "sub-1", OwnerID: "a1"}, nil)
	f.notify.On("GetService", mock.Anything, "sub-1").
		Return(nil, apperr.NotFound("notify.GetService", assert.AnError))

	_, err := f.svc.GetService(context.Background(), identity("a1@example.com"), "", "sub-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGetAccountOverview(t *testing.T) {
	f := newFixture(t)
	f.expectAccount(controlplane.Account{ID: "a1", Email: "a1@example.com", FirstName: "Ada", Groups: []string{"user"}})
	f.cp.On("ListSubscriptionsByOwner", mock.Anything, "a1").Return([]controlplane.Subscription{
		{ID: "MANAGE-a1"}, {ID: "01SUB"},
	}, nil)

	overview, err := f.svc.GetAccountOverview(context.Background(), identity("a1@example.com"), "")
	require.NoError(t, err)
	assert.Equal(t, "a1", overview.Account.ID)
	assert.False(t, overview.IsAdmin)
	assert.Equal(t, []string{"user"}, overview.Groups)
	require.Len(t, overview.Subscriptions, 1)
	assert.Equal(t, "01SUB", overview.Subscriptions[0].ID)
}

func TestGetAccountOverview_PropagatesFailure(t *testing.T) {
	f := newFixture(t)
	f.expectAccount(controlplane.Account{ID: "a1", Email: "a1@example.com"})
	f.cp.On("ListSubscriptionsByOwner", mock.Anything, "a1").Return(nil, assert.AnError)

	_, err := f.svc.GetAccountOverview(context.Background(), identity("a1@example.com"), "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
