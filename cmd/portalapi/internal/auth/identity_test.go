package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/config"
)

func testOIDCConfig() config.OIDCConfig {
	return config.OIDCConfig{
		SubjectClaimField:      "sub",
		EmailsClaimField:       "emails",
		GivenNameClaimField:    "given_name",
		FamilyNameClaimField:   "family_name",
		OrganizationClaimField: "extension_Organization",
		DepartmentClaimField:   "extension_Department",
	}
}

func TestFromClaims(t *testing.T) {
	tests := []struct {
		name    string
		claims  map[string]any
		want    Identity
		wantErr string
	}{
		{
			name: "emails array with organization object",
			claims: map[string]any{
				"sub":         "user-1",
				"emails":      []any{"ada@example.com", "ada@work.example.com"},
				"given_name":  "Ada",
				"family_name": "Lovelace",
				"extension_Organization": map[string]any{
					"name":        "Analytical Engines",
					"fiscal_code": "12345678901",
				},
				"extension_Department": "Research",
			},
			want: Identity{
				Subject:    "user-1",
				Emails:     []string{"ada@example.com", "ada@work.example.com"},
				GivenName:  "Ada",
				FamilyName: "Lovelace",
				Organization: &Organization{
					Name:       "Analytical Engines",
					FiscalCode: "12345678901",
					Department: "Research",
				},
			},
		},
		{
			name: "organization as json string",
			claims: map[string]any{
				"sub":                    "user-2",
				"emails":                 []any{"b@example.com"},
				"extension_Organization": `{"name":"Org","fiscal_code":"00000000000"}`,
			},
			want: Identity{
				Subject:      "user-2",
				Emails:       []string{"b@example.com"},
				Organization: &Organization{Name: "Org", FiscalCode: "00000000000"},
			},
		},
		{
			name: "falls back to email claim",
			claims: map[string]any{
				"sub":   "user-3",
				"email": "c@example.com",
			},
			want: Identity{Subject: "user-3", Emails: []string{"c@example.com"}},
		},
		{
			name:    "missing subject",
			claims:  map[string]any{"emails": []any{"d@example.com"}},
			wantErr: "extract subject",
		},
		{
			name:    "no email",
			claims:  map[string]any{"sub": "user-4"},
			wantErr: "contains no email address",
		},
		{
			name: "malformed organization",
			claims: map[string]any{
				"sub":                    "user-5",
				"emails":                 []any{"e@example.com"},
				"extension_Organization": "{not json",
			},
			wantErr: "extract organization",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromClaims(tt.claims, testOIDCConfig())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentity_Helpers(t *testing.T) {
	id := Identity{Emails: []string{"first@example.com", "second@example.com"}, GivenName: "Ada", FamilyName: "Lovelace"}
	assert.Equal(t, "first@example.com", id.PrimaryEmail())
	assert.Equal(t, "Ada Lovelace", id.DisplayName())
	assert.Empty(t, Identity{}.PrimaryEmail())
}

func TestExtractStrings(t *testing.T) {
	claims := map[string]any{
		"single": "a",
		"list":   []any{"a", 1, "", "b"},
		"typed":  []string{"x", "y"},
		"bad":    42,
	}
	assert.Equal(t, []string{"a"}, ExtractStrings(claims, "single"))
	assert.Equal(t, []string{"a", "b"}, ExtractStrings(claims, "list"))
	assert.Equal(t, []string{"x", "y"}, ExtractStrings(claims, "typed"))
	assert.Empty(t, ExtractStrings(claims, "bad"))
	assert.Empty(t, ExtractStrings(claims, "missing"))
}
