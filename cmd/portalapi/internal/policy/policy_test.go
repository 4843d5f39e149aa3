package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/notify"
)

func ptr[T any](v T) *T { return &v }

func originalService(visible bool) notify.Service {
	return notify.Service{
		ServiceID:               "svc-1",
		ServiceName:             "Old name",
		DepartmentName:          "Old department",
		OrganizationName:        "Old org",
		OrganizationFiscalCode:  "00000000000",
		AuthorizedCIDRs:         []string{"10.0.0.0/8"},
		AuthorizedRecipients:    []string{"AAAAAA00A00A000A"},
		IsVisible:               visible,
		MaxAllowedPaymentAmount: 0,
		ServiceMetadata: &notify.ServiceMetadata{
			Scope:       notify.ScopeLocal,
			TokenName:   "token-1",
			Description: "old description",
		},
	}
}

func fullPayload() ServicePayload {
	return ServicePayload{
		ServiceName:             ptr("New name"),
		DepartmentName:          ptr("New department"),
		OrganizationName:        ptr("New org"),
		OrganizationFiscalCode:  ptr("11111111111"),
		AuthorizedCIDRs:         []string{"192.168.0.0/16"},
		AuthorizedRecipients:    []string{"BBBBBB00B00B000B"},
		IsVisible:               ptr(true),
		MaxAllowedPaymentAmount: ptr(int64(1000)),
		RequireSecureChannels:   ptr(true),
		ServiceMetadata: &MetadataPayload{
			Scope:       ptr(notify.ScopeNational),
			TokenName:   ptr("token-2"),
			Description: ptr("new description"),
		},
	}
}

func TestFilterServiceUpdate_DeveloperAllowList(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	merged := p.FilterServiceUpdate(false, originalService(false), fullPayload())

	assert.Equal(t, "New name", merged.ServiceName)
	assert.Equal(t, "New department", merged.DepartmentName)
	assert.Equal(t, "New org", merged.OrganizationName)
	assert.Equal(t, "11111111111", merged.OrganizationFiscalCode)
	assert.Equal(t, []string{"192.168.0.0/16"}, merged.AuthorizedCIDRs)
	assert.Equal(t, "new description", merged.ServiceMetadata.Description)

	// admin-only fields keep their stored values
	assert.Equal(t, []string{"AAAAAA00A00A000A"}, merged.AuthorizedRecipients)
	assert.False(t, merged.IsVisible)
	assert.Equal(t, int64(0), merged.MaxAllowedPaymentAmount)
	assert.False(t, merged.RequireSecureChannels)
	assert.Equal(t, "token-1", merged.ServiceMetadata.TokenName)
}

func TestFilterServiceUpdate_ScopeLockedOnceVisible(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	payloads := []ServicePayload{
		fullPayload(),
		{ServiceMetadata: &MetadataPayload{Scope: ptr(notify.ScopeNational)}},
		{ServiceMetadata: &MetadataPayload{Scope: ptr("")}},
		{IsVisible: ptr(false), ServiceMetadata: &MetadataPayload{Scope: ptr(notify.ScopeNational)}},
	}

	for i, payload := range payloads {
		merged := p.FilterServiceUpdate(false, originalService(true), payload)
		assert.Equal(t, notify.ScopeLocal, merged.Scope(), "payload %d", i)
		assert.True(t, merged.IsVisible, "payload %d", i)
	}
}

func TestFilterServiceUpdate_DeveloperMayChangeScopeWhileHidden(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	payload := ServicePayload{ServiceMetadata: &MetadataPayload{Scope: ptr(notify.ScopeNational)}}
	merged := p.FilterServiceUpdate(false, originalService(false), payload)
	assert.Equal(t, notify.ScopeNational, merged.Scope())
}

func TestFilterServiceUpdate_AdminChangesEverything(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	merged := p.FilterServiceUpdate(true, originalService(true), fullPayload())

	assert.Equal(t, "New name", merged.ServiceName)
	assert.Equal(t, []string{"BBBBBB00B00B000B"}, merged.AuthorizedRecipients)
	assert.True(t, merged.IsVisible)
	assert.Equal(t, int64(1000), merged.MaxAllowedPaymentAmount)
	assert.True(t, merged.RequireSecureChannels)
	assert.Equal(t, notify.ScopeNational, merged.Scope())
	assert.Equal(t, "token-2", merged.ServiceMetadata.TokenName)
}

func TestFilterServiceUpdate_AbsentFieldsKeepValues(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	original := originalService(false)
	merged := p.FilterServiceUpdate(true, original, ServicePayload{DepartmentName: ptr("Ops")})

	assert.Equal(t, "Ops", merged.DepartmentName)
	assert.Equal(t, original.ServiceName, merged.ServiceName)
	assert.Equal(t, original.AuthorizedCIDRs, merged.AuthorizedCIDRs)
	assert.Equal(t, original.ServiceMetadata, merged.ServiceMetadata)
}

func TestFilterServiceUpdate_DoesNotMutateOriginal(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	original := originalService(false)
	_ = p.FilterServiceUpdate(true, original, fullPayload())

	assert.Equal(t, "Old name", original.ServiceName)
	assert.Equal(t, "token-1", original.ServiceMetadata.TokenName)
	assert.Equal(t, []string{"10.0.0.0/8"}, original.AuthorizedCIDRs)
}

func TestFilterServiceUpdate_MetadataCreatedWhenMissing(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	original := originalService(false)
	original.ServiceMetadata = nil

	merged := p.FilterServiceUpdate(false, original, ServicePayload{
		ServiceMetadata: &MetadataPayload{WebURL: ptr("https://example.com")},
	})
	require.NotNil(t, merged.ServiceMetadata)
	assert.Equal(t, "https://example.com", merged.ServiceMetadata.WebURL)
}

func TestMerge_ReportsDroppedFields(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	_, dropped := p.Merge(false, originalService(true), fullPayload())
	assert.ElementsMatch(t, []string{
		"authorized_recipients",
		"is_visible",
		"max_allowed_payment_amount",
		"require_secure_channels",
		"service_metadata.scope",
		"service_metadata.token_name",
	}, dropped)
}

func TestNewFromText_CustomRules(t *testing.T) {
	p, err := NewFromText("p, developer, service_name, scope == LOCAL\n")
	require.NoError(t, err)

	local := originalService(false)
	assert.True(t, p.CanEdit(false, "service_name", local))
	assert.False(t, p.CanEdit(false, "department_name", local))
	assert.False(t, p.CanEdit(true, "service_name", local))

	national := originalService(false)
	national.ServiceMetadata.Scope = notify.ScopeNational
	assert.False(t, p.CanEdit(false, "service_name", national))
}

func TestEvaluate(t *testing.T) {
	attrs := map[string]any{"is_visible": true, "scope": "LOCAL"}

	assert.True(t, evaluate("", attrs))
	assert.True(t, evaluate("*", attrs))
	assert.True(t, evaluate("is_visible == true", attrs))
	assert.False(t, evaluate("is_visible == false", attrs))
	assert.True(t, evaluate(`scope == "LOCAL"`, attrs))
	assert.False(t, evaluate("not a valid ((expression", attrs))
}
