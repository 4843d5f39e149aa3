// Package notify is the client of the notification and profile REST API:
// citizen profiles, services and messages.
package notify

// Service scopes.
const (
	ScopeNational = "NATIONAL"
	ScopeLocal    = "LOCAL"
)

// Service is a message sender registered with the notification API.
type Service struct {
	ServiceID               string           `json:"service_id" validate:"required"`
	ServiceName             string           `json:"service_name" validate:"required"`
	DepartmentName          string           `json:"department_name" validate:"required"`
	OrganizationName        string           `json:"organization_name" validate:"required"`
	OrganizationFiscalCode  string           `json:"organization_fiscal_code" validate:"required,orgfiscalcode"`
	AuthorizedCIDRs         []string         `json:"authorized_cidrs" validate:"dive,cidr"`
	AuthorizedRecipients    []string         `json:"authorized_recipients" validate:"dive,fiscalcode"`
	IsVisible               bool             `json:"is_visible"`
	MaxAllowedPaymentAmount int64            `json:"max_allowed_payment_amount" validate:"gte=0"`
	RequireSecureChannels   bool             `json:"require_secure_channels"`
	ServiceMetadata         *ServiceMetadata `json:"service_metadata,omitempty"`
	Version                 int              `json:"version,omitempty"`
}

// ServiceMetadata holds the descriptive attributes of a service.
type ServiceMetadata struct {
	Scope       string `json:"scope" validate:"omitempty,oneof=NATIONAL LOCAL"`
	TokenName   string `json:"token_name,omitempty"`
	Description string `json:"description,omitempty"`
	WebURL      string `json:"web_url,omitempty"`
	AppIOS      string `json:"app_ios,omitempty"`
	AppAndroid  string `json:"app_android,omitempty"`
	TOSURL      string `json:"tos_url,omitempty"`
	PrivacyURL  string `json:"privacy_url,omitempty"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	PEC         string `json:"pec,omitempty"`
	CTA         string `json:"cta,omitempty"`
	SupportURL  string `json:"support_url,omitempty"`
}

// Scope returns the metadata scope, or "" when no metadata is set.
func (s Service) Scope() string {
	if s.ServiceMetadata == nil {
		return ""
	}
	return s.ServiceMetadata.Scope
}

// Profile is a citizen profile.
type Profile struct {
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Version int    `json:"version"`
}

// Message is the content of a message sent to a citizen.
type Message struct {
	Subject  string `json:"subject" validate:"min=10,max=120"`
	Markdown string `json:"markdown" validate:"min=80,max=10000"`
}

// CreatedMessage is the acknowledgement of a sent message.
type CreatedMessage struct {
	ID string `json:"id" validate:"required"`
}
