package policy

import "github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/notify"

// ServicePayload is a partial service update. Nil fields are absent and
// leave the stored value untouched.
type ServicePayload struct {
	ServiceName             *string          `json:"service_name,omitempty"`
	DepartmentName          *string          `json:"department_name,omitempty"`
	OrganizationName        *string          `json:"organization_name,omitempty"`
	OrganizationFiscalCode  *string          `json:"organization_fiscal_code,omitempty"`
	AuthorizedCIDRs         []string         `json:"authorized_cidrs,omitempty"`
	AuthorizedRecipients    []string         `json:"authorized_recipients,omitempty"`
	IsVisible               *bool            `json:"is_visible,omitempty"`
	MaxAllowedPaymentAmount *int64           `json:"max_allowed_payment_amount,omitempty"`
	RequireSecureChannels   *bool            `json:"require_secure_channels,omitempty"`
	ServiceMetadata         *MetadataPayload `json:"service_metadata,omitempty"`
}

// MetadataPayload is a partial update of the service metadata.
type MetadataPayload struct {
	Scope       *string `json:"scope,omitempty"`
	TokenName   *string `json:"token_name,omitempty"`
	Description *string `json:"description,omitempty"`
	WebURL      *string `json:"web_url,omitempty"`
	AppIOS      *string `json:"app_ios,omitempty"`
	AppAndroid  *string `json:"app_android,omitempty"`
	TOSURL      *string `json:"tos_url,omitempty"`
	PrivacyURL  *string `json:"privacy_url,omitempty"`
	Address     *string `json:"address,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	PEC         *string `json:"pec,omitempty"`
	CTA         *string `json:"cta,omitempty"`
	SupportURL  *string `json:"support_url,omitempty"`
}

// field binds a policy field name to its presence test and its merge.
type field struct {
	name  string
	apply func(p *ServicePayload, dst *notify.Service) bool
}

func str(src *string, dst *string) bool {
	if src == nil {
		return false
	}
	*dst = *src
	return true
}

// meta applies a metadata field, allocating dst's metadata on first write.
func meta(get func(*MetadataPayload) *string, set func(*notify.ServiceMetadata) *string) func(*ServicePayload, *notify.Service) bool {
	return func(p *ServicePayload, dst *notify.Service) bool {
		if p.ServiceMetadata == nil {
			return false
		}
		v := get(p.ServiceMetadata)
		if v == nil {
			return false
		}
		if dst.ServiceMetadata == nil {
			dst.ServiceMetadata = &notify.ServiceMetadata{}
		}
		*set(dst.ServiceMetadata) = *v
		return true
	}
}

// fields is the table of every updatable service field. Which of them a
// caller may apply is decided by the enforcer.
var fields = []field{
	{"service_name", func(p *ServicePayload, d *notify.Service) bool { return str(p.ServiceName, &d.ServiceName) }},
	{"department_name", func(p *ServicePayload, d *notify.Service) bool { return str(p.DepartmentName, &d.DepartmentName) }},
	{"organization_name", func(p *ServicePayload, d *notify.Service) bool { return str(p.OrganizationName, &d.OrganizationName) }},
	{"organization_fiscal_code", func(p *ServicePayload, d *notify.Service) bool {
		return str(p.OrganizationFiscalCode, &d.OrganizationFiscalCode)
	}},
	{"authorized_cidrs", func(p *ServicePayload, d *notify.Service) bool {
		if p.AuthorizedCIDRs == nil {
			return false
		}
		d.AuthorizedCIDRs = append([]string(nil), p.AuthorizedCIDRs...)
		return true
	}},
	{"authorized_recipients", func(p *ServicePayload, d *notify.Service) bool {
		if p.AuthorizedRecipients == nil {
			return false
		}
		d.AuthorizedRecipients = append([]string(nil), p.AuthorizedRecipients...)
		return true
	}},
	{"is_visible", func(p *ServicePayload, d *notify.Service) bool {
		if p.IsVisible == nil {
			return false
		}
		d.IsVisible = *p.IsVisible
		return true
	}},
	{"max_allowed_payment_amount", func(p *ServicePayload, d *notify.Service) bool {
		if p.MaxAllowedPaymentAmount == nil {
			return false
		}
		d.MaxAllowedPaymentAmount = *p.MaxAllowedPaymentAmount
		return true
	}},
	{"require_secure_channels", func(p *ServicePayload, d *notify.Service) bool {
		if p.RequireSecureChannels == nil {
			return false
		}
		d.RequireSecureChannels = *p.RequireSecureChannels
		return true
	}},
	{"service_metadata.scope", meta(
		func(m *MetadataPayload) *string { return m.Scope },
		func(m *notify.ServiceMetadata) *string { return &m.Scope })},
	{"service_metadata.token_name", meta(
		func(m *MetadataPayload) *string { return m.TokenName },
		func(m *notify.ServiceMetadata) *string { return &m.TokenName })},
	{"service_metadata.description", meta(
		func(m *MetadataPayload) *string { return m.Description },
		func(m *notify.ServiceMetadata) *string { return &m.Description })},
	{"service_metadata.web_url", meta(
		func(m *MetadataPayload) *string { return m.WebURL },
		func(m *notify.ServiceMetadata) *string { return &m.WebURL })},
	{"service_metadata.app_ios", meta(
		func(m *MetadataPayload) *string { return m.AppIOS },
		func(m *notify.ServiceMetadata) *string { return &m.AppIOS })},
	{"service_metadata.app_android", meta(
		func(m *MetadataPayload) *string { return m.AppAndroid },
		func(m *notify.ServiceMetadata) *string { return &m.AppAndroid })},
	{"service_metadata.tos_url", meta(
		func(m *MetadataPayload) *string { return m.TOSURL },
		func(m *notify.ServiceMetadata) *string { return &m.TOSURL })},
	{"service_metadata.privacy_url", meta(
		func(m *MetadataPayload) *string { return m.PrivacyURL },
		func(m *notify.ServiceMetadata) *string { return &m.PrivacyURL })},
	{"service_metadata.address", meta(
		func(m *MetadataPayload) *string { return m.Address },
		func(m *notify.ServiceMetadata) *string { return &m.Address })},
	{"service_metadata.phone", meta(
		func(m *MetadataPayload) *string { return m.Phone },
		func(m *notify.ServiceMetadata) *string { return &m.Phone })},
	{"service_metadata.email", meta(
		func(m *MetadataPayload) *string { return m.Email },
		func(m *notify.ServiceMetadata) *string { return &m.Email })},
	{"service_metadata.pec", meta(
		func(m *MetadataPayload) *string { return m.PEC },
		func(m *notify.ServiceMetadata) *string { return &m.PEC })},
	{"service_metadata.cta", meta(
		func(m *MetadataPayload) *string { return m.CTA },
		func(m *notify.ServiceMetadata) *string { return &m.CTA })},
	{"service_metadata.support_url", meta(
		func(m *MetadataPayload) *string { return m.SupportURL },
		func(m *notify.ServiceMetadata) *string { return &m.SupportURL })},
}
