package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/config"
)

// Organization carries the optional organization attributes of a verified identity.
type Organization struct {
	Name       string `mapstructure:"name" json:"name"`
	FiscalCode string `mapstructure:"fiscal_code" json:"fiscal_code"`
	Department string `mapstructure:"department" json:"department,omitempty"`
}

// Identity is the verified claim set of an authenticated caller. It is
// immutable once built by FromClaims.
type Identity struct {
	Subject      string
	Emails       []string
	GivenName    string
	FamilyName   string
	Organization *Organization
}

// PrimaryEmail returns the first email address of the identity.
func (i Identity) PrimaryEmail() string {
	if len(i.Emails) == 0 {
		return ""
	}
	return i.Emails[0]
}

// DisplayName joins given and family name.
func (i Identity) DisplayName() string {
	return strings.TrimSpace(i.GivenName + " " + i.FamilyName)
}

// FromClaims builds an Identity from verified token claims using the claim
// field names configured in cfg.
//
// The emails claim accepts a string array or a single string; when absent the
// standard "email" claim is used. The organization claim accepts either an
// object or a JSON-encoded string (Azure AD B2C custom attributes are strings).
func FromClaims(claims map[string]any, cfg config.OIDCConfig) (Identity, error) {
	subject, err := ExtractClaimString(claims, cfg.SubjectClaimField)
	if err != nil {
		return Identity{}, fmt.Errorf("extract subject: %w", err)
	}

	emails := ExtractStrings(claims, cfg.EmailsClaimField)
	if len(emails) == 0 {
		emails = ExtractStrings(claims, "email")
	}
	if len(emails) == 0 {
		return Identity{}, fmt.Errorf("claim field %s contains no email address", cfg.EmailsClaimField)
	}

	id := Identity{
		Subject:    subject,
		Emails:     emails,
		GivenName:  optionalString(claims, cfg.GivenNameClaimField),
		FamilyName: optionalString(claims, cfg.FamilyNameClaimField),
	}

	org, err := extractOrganization(claims[cfg.OrganizationClaimField])
	if err != nil {
		return Identity{}, fmt.Errorf("extract organization: %w", err)
	}
	if org != nil {
		if dept := optionalString(claims, cfg.DepartmentClaimField); dept != "" && org.Department == "" {
			org.Department = dept
		}
		id.Organization = org
	}

	return id, nil
}

func extractOrganization(raw any) (*Organization, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var org Organization
		if err := json.Unmarshal([]byte(v), &org); err != nil {
			return nil, fmt.Errorf("decode organization claim: %w", err)
		}
		return &org, nil
	default:
		var org Organization
		if err := mapstructure.Decode(v, &org); err != nil {
			return nil, fmt.Errorf("decode organization claim: %w", err)
		}
		return &org, nil
	}
}

func optionalString(claims map[string]any, field string) string {
	v, _ := claims[field].(string)
	return v
}
