package portal

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/config"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/notify"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
)

// MockControlPlane is a mock implementation of controlplane.Client
type MockControlPlane struct {
	mock.Mock
}

func (m *MockControlPlane) ListAccountsByEmail(ctx context.Context, email string) ([]controlplane.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]controlplane.Account), args.Error(1)
}

func (m *MockControlPlane) CreateAccount(ctx context.Context, spec controlplane.AccountSpec) (*controlplane.Account, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*controlplane.Account), args.Error(1)
}

func (m *MockControlPlane) ListAccountGroups(ctx context.Context, accountID string) ([]string, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockControlPlane) AddAccountToGroup(ctx context.Context, accountID, group string) error {
	args := m.Called(ctx, accountID, group)
	return args.Error(0)
}

func (m *MockControlPlane) GetSubscription(ctx context.Context, id string) (*controlplane.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*controlplane.Subscription), args.Error(1)
}

func (m *MockControlPlane) CreateOrUpdateSubscription(ctx context.Context, spec controlplane.SubscriptionSpec) (*controlplane.Subscription, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*controlplane.Subscription), args.Error(1)
}

func (m *MockControlPlane) RegenerateKey(ctx context.Context, subscriptionID string, key controlplane.KeyType) error {
	args := m.Called(ctx, subscriptionID, key)
	return args.Error(0)
}

func (m *MockControlPlane) ListSubscriptionsByOwner(ctx context.Context, ownerID string) ([]controlplane.Subscription, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]controlplane.Subscription), args.Error(1)
}

func (m *MockControlPlane) GetProductByName(ctx context.Context, name string) (*controlplane.Product, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*controlplane.Product), args.Error(1)
}

// MockNotify is a mock implementation of notify.Client
type MockNotify struct {
	mock.Mock
}

func (m *MockNotify) CreateOrUpdateProfile(ctx context.Context, fiscalCode string, profile notify.Profile) (*notify.Profile, error) {
	args := m.Called(ctx, fiscalCode, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notify.Profile), args.Error(1)
}

func (m *MockNotify) GetService(ctx context.Context, serviceID string) (*notify.Service, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notify.Service), args.Error(1)
}

func (m *MockNotify) CreateService(ctx context.Context, service notify.Service) (*notify.Service, error) {
	args := m.Called(ctx, service)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notify.Service), args.Error(1)
}

func (m *MockNotify) UpdateService(ctx context.Context, service notify.Service) (*notify.Service, error) {
	args := m.Called(ctx, service)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notify.Service), args.Error(1)
}

func (m *MockNotify) SendMessage(ctx context.Context, subscriptionKey, fiscalCode string, msg notify.Message) (*notify.CreatedMessage, error) {
	args := m.Called(ctx, subscriptionKey, fiscalCode, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notify.CreatedMessage), args.Error(1)
}

// recordingSink collects onboarding events.
type recordingSink struct {
	mu     sync.Mutex
	events []telemetry.OnboardingEvent
}

func (r *recordingSink) Onboarding(_ context.Context, ev telemetry.OnboardingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) all() []telemetry.OnboardingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]telemetry.OnboardingEvent(nil), r.events...)
}

func testConfig() config.ProvisioningConfig {
	return config.ProvisioningConfig{
		AdminGroup: "apiadmin",
		DefaultGroups: []string{
			"apilimitedmessagewrite",
			"apiinforead",
			"apimessageread",
			"apilimitedprofileread",
		},
		ProductName:    "starter",
		ManagePrefix:   "MANAGE-",
		CacheSize:      100,
		CacheTTL:       time.Hour,
		WelcomeSubject: "Welcome to the developer portal",
	}
}

type fixture struct {
	svc    *portalService
	cp     *MockControlPlane
	notify *MockNotify
	events *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cp := new(MockControlPlane)
	nt := new(MockNotify)
	sink := &recordingSink{}

	ids := 0
	svc := NewService(Dependencies{
		ControlPlane: cp,
		Notify:       nt,
		Events:       sink,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewSubscriptionID: func() string {
			ids++
			return "01SUB" + string(rune('A'+ids-1))
		},
		NewAccountID: func() string { return "acc-new" },
	}, testConfig())

	return &fixture{svc: svc.(*portalService), cp: cp, notify: nt, events: sink}
}

// expectAccount registers an account lookup by email returning account and its groups.
func (f *fixture) expectAccount(account controlplane.Account) {
	f.cp.On("ListAccountsByEmail", mock.Anything, account.Email).
		Return([]controlplane.Account{{ID: account.ID, Email: account.Email, FirstName: account.FirstName, LastName: account.LastName}}, nil)
	f.cp.On("ListAccountGroups", mock.Anything, account.ID).Return(account.Groups, nil)
}
