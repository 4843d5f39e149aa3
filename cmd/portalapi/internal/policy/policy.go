// Package policy decides which service fields a caller may change.
//
// Rules are casbin policy lines over (role, field, condition). The condition
// is a go-bexpr expression evaluated against attributes of the stored
// service, so a rule can depend on the current state of the record.
package policy

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/notify"
)

// Roles known to the policy.
const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
)

//go:embed model.conf
var modelContent string

//go:embed policy.csv
var defaultPolicy string

// Policy filters service updates by role.
type Policy struct {
	enforcer *casbin.Enforcer
}

// New builds a Policy from the embedded rules.
func New() (*Policy, error) {
	return NewFromText(defaultPolicy)
}

// NewFromText builds a Policy from casbin policy lines.
func NewFromText(policyText string) (*Policy, error) {
	m, err := model.NewModelFromString(modelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(policyText))
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	enforcer.AddFunction("bexprMatch", bexprMatch)

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}
	return &Policy{enforcer: enforcer}, nil
}

// MustNew is New for program initialization.
func MustNew() *Policy {
	p, err := New()
	if err != nil {
		panic(err)
	}
	return p
}

func roleOf(isAdmin bool) string {
	if isAdmin {
		return RoleAdmin
	}
	return RoleDeveloper
}

// attributes exposes the stored service to rule conditions.
func attributes(s notify.Service) map[string]any {
	return map[string]any{
		"is_visible": s.IsVisible,
		"scope":      s.Scope(),
	}
}

// CanEdit reports whether the caller may change field on original.
// Enforcement errors deny.
func (p *Policy) CanEdit(isAdmin bool, field string, original notify.Service) bool {
	ok, err := p.enforcer.Enforce(roleOf(isAdmin), field, attributes(original))
	return err == nil && ok
}

// FilterServiceUpdate merges the fields of payload the caller may change onto
// a copy of original. Disallowed fields are dropped silently.
func (p *Policy) FilterServiceUpdate(isAdmin bool, original notify.Service, payload ServicePayload) notify.Service {
	merged, _ := p.Merge(isAdmin, original, payload)
	return merged
}

// Merge is FilterServiceUpdate that also returns the names of the present
// fields that were dropped.
func (p *Policy) Merge(isAdmin bool, original notify.Service, payload ServicePayload) (notify.Service, []string) {
	merged := clone(original)
	var dropped []string
	for _, f := range fields {
		if p.CanEdit(isAdmin, f.name, original) {
			f.apply(&payload, &merged)
			continue
		}
		var scratch notify.Service
		if f.apply(&payload, &scratch) {
			dropped = append(dropped, f.name)
		}
	}
	return merged, dropped
}

func clone(s notify.Service) notify.Service {
	out := s
	out.AuthorizedCIDRs = append([]string(nil), s.AuthorizedCIDRs...)
	out.AuthorizedRecipients = append([]string(nil), s.AuthorizedRecipients...)
	if s.ServiceMetadata != nil {
		m := *s.ServiceMetadata
		out.ServiceMetadata = &m
	}
	return out
}
