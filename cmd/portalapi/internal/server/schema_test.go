package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadDecoder_Decode(t *testing.T) {
	d, err := newPayloadDecoder()
	require.NoError(t, err)

	payload, err := d.decode([]byte(`{
		"service_name": "Tari",
		"authorized_cidrs": ["10.0.0.0/8", "::1/128"],
		"max_allowed_payment_amount": 0,
		"service_metadata": {"scope": "LOCAL", "web_url": "https://example.com"}
	}`))
	require.NoError(t, err)

	require.NotNil(t, payload.ServiceName)
	assert.Equal(t, "Tari", *payload.ServiceName)
	assert.Equal(t, []string{"10.0.0.0/8", "::1/128"}, payload.AuthorizedCIDRs)
	require.NotNil(t, payload.MaxAllowedPaymentAmount)
	assert.Zero(t, *payload.MaxAllowedPaymentAmount)
	require.NotNil(t, payload.ServiceMetadata)
	assert.Equal(t, "LOCAL", *payload.ServiceMetadata.Scope)
	assert.Nil(t, payload.ServiceMetadata.Description)
	assert.Nil(t, payload.IsVisible)
}

func TestPayloadDecoder_Rejects(t *testing.T) {
	d, err := newPayloadDecoder()
	require.NoError(t, err)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"not an object", `["a"]`, "validation failed at '$'"},
		{"recipient format", `{"authorized_recipients": ["lowercase"]}`, "$.authorized_recipients.0"},
		{"cidr format", `{"authorized_cidrs": ["10.0.0.0"]}`, "$.authorized_cidrs.0"},
		{"nested scope", `{"service_metadata": {"scope": "REGIONAL"}}`, "$.service_metadata.scope"},
		{"fractional amount", `{"max_allowed_payment_amount": 1.5}`, "$.max_allowed_payment_amount"},
		{"malformed", `{`, "malformed JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.decode([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
