package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Control plane backends selectable with control_plane.
const (
	ControlPlaneAPIM  = "apim"
	ControlPlaneLocal = "local"
)

// Config holds the application configuration
type Config struct {
	// Server bind address (host:port)
	ServerAddr string

	// Public base URL of the portal API
	ServerURL string

	// Enable debug logging
	Debug bool

	// Log level: debug, info, warn, error
	LogLevel string

	// ControlPlane selects the management backend: "apim" or "local"
	ControlPlane string

	// Database connection string (DSN) for the local control plane
	DatabaseURL string

	// OIDC token verification configuration
	OIDC OIDCConfig

	// Azure API Management coordinates and client credentials
	Management ManagementConfig

	// Notification/profile REST API
	Notification NotificationConfig

	// Provisioning rules (groups, product, caches)
	Provisioning ProvisioningConfig

	// OpenTelemetry exporter settings
	Observability ObservabilityConfig

	// Allowed CORS origins
	CORSOrigins []string
}

// OIDCConfig holds bearer token verification settings.
//
// Two mutually exclusive modes are supported:
//   - Issuer set: tokens are verified against the issuer's JWKS (B2C, Keycloak, Entra ID)
//   - SharedSecret set: tokens are HS256-signed with a shared secret (development only)
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	SharedSecret string

	// Claim extraction
	SubjectClaimField      string // Default: "sub"
	EmailsClaimField       string // Default: "emails"
	GivenNameClaimField    string // Default: "given_name"
	FamilyNameClaimField   string // Default: "family_name"
	OrganizationClaimField string // Default: "extension_Organization"
	DepartmentClaimField   string // Default: "extension_Department"
}

// Enabled reports whether any verification mode is configured.
func (c *OIDCConfig) Enabled() bool {
	return c.Issuer != "" || c.SharedSecret != ""
}

// ManagementConfig identifies the API Management instance and the service
// principal used to log in to it.
type ManagementConfig struct {
	BaseURL        string // Default: "https://management.azure.com"
	SubscriptionID string
	ResourceGroup  string
	ServiceName    string
	APIVersion     string // Default: "2019-01-01"

	TenantID     string
	ClientID     string
	ClientSecret string
	TokenURL     string // Default derived from TenantID
	Scope        string // Default: "https://management.azure.com/.default"

	// Requests per second allowed against the management plane
	RateLimit float64
	RateBurst int
}

// NotificationConfig points to the notification/profile REST API.
type NotificationConfig struct {
	BaseURL  string
	AdminKey string
	Timeout  time.Duration
}

// ProvisioningConfig holds the naming conventions and cache bounds of the engine.
type ProvisioningConfig struct {
	AdminGroup    string
	DefaultGroups []string
	ProductName   string
	ManagePrefix  string

	CacheSize int
	CacheTTL  time.Duration

	CredentialTTL    time.Duration
	CredentialMargin time.Duration

	WelcomeSubject string
}

// ObservabilityConfig configures the OpenTelemetry exporter.
type ObservabilityConfig struct {
	OTLPEndpoint   string
	OTLPProtocol   string
	OTLPInsecure   bool
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Fraction of root traces sampled, 0..1
	SampleRatio float64
}

func setDefaults() {
	viper.SetDefault("server_addr", "localhost:8080")
	viper.SetDefault("server_url", "http://localhost:8080")
	viper.SetDefault("debug", false)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("control_plane", ControlPlaneAPIM)
	viper.SetDefault("database_url", "file:portal.db?cache=shared")
	viper.SetDefault("cors_origins", []string{"*"})

	viper.SetDefault("oidc.subject_claim", "sub")
	viper.SetDefault("oidc.emails_claim", "emails")
	viper.SetDefault("oidc.given_name_claim", "given_name")
	viper.SetDefault("oidc.family_name_claim", "family_name")
	viper.SetDefault("oidc.organization_claim", "extension_Organization")
	viper.SetDefault("oidc.department_claim", "extension_Department")

	viper.SetDefault("management.base_url", "https://management.azure.com")
	viper.SetDefault("management.api_version", "2019-01-01")
	viper.SetDefault("management.scope", "https://management.azure.com/.default")
	viper.SetDefault("management.rate_limit", 10.0)
	viper.SetDefault("management.rate_burst", 5)

	viper.SetDefault("notification.timeout", 10*time.Second)

	viper.SetDefault("provisioning.admin_group", "apiadmin")
	viper.SetDefault("provisioning.default_groups", []string{
		"apilimitedmessagewrite",
		"apiinforead",
		"apimessageread",
		"apilimitedprofileread",
	})
	viper.SetDefault("provisioning.product_name", "starter")
	viper.SetDefault("provisioning.manage_prefix", "MANAGE-")
	viper.SetDefault("provisioning.cache_size", 100)
	viper.SetDefault("provisioning.cache_ttl", time.Hour)
	viper.SetDefault("provisioning.credential_ttl", time.Hour)
	viper.SetDefault("provisioning.credential_margin", time.Minute)
	viper.SetDefault("provisioning.welcome_subject", "Welcome to the developer portal")

	viper.SetDefault("observability.otlp_protocol", "http/protobuf")
	viper.SetDefault("observability.service_name", "portalapi")
	viper.SetDefault("observability.service_version", "dev")
	viper.SetDefault("observability.environment", "development")
	viper.SetDefault("observability.sample_ratio", 1.0)
}

// Load reads configuration from PORTAL_ prefixed environment variables, an
// optional config file previously registered on the global viper instance,
// and a .env file in the working directory when present.
//
// Nested keys are read with explicit Get calls; viper's AutomaticEnv does not
// populate nested structs through Unmarshal.
func Load() (*Config, error) {
	// .env is optional and never overrides variables already set
	_ = godotenv.Load()

	viper.SetEnvPrefix("PORTAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{
		ServerAddr:   viper.GetString("server_addr"),
		ServerURL:    viper.GetString("server_url"),
		Debug:        viper.GetBool("debug"),
		LogLevel:     viper.GetString("log_level"),
		ControlPlane: viper.GetString("control_plane"),
		DatabaseURL:  viper.GetString("database_url"),
		CORSOrigins:  stringSlice("cors_origins"),
		OIDC: OIDCConfig{
			Issuer:                 viper.GetString("oidc.issuer"),
			ClientID:               viper.GetString("oidc.client_id"),
			SharedSecret:           viper.GetString("oidc.shared_secret"),
			SubjectClaimField:      viper.GetString("oidc.subject_claim"),
			EmailsClaimField:       viper.GetString("oidc.emails_claim"),
			GivenNameClaimField:    viper.GetString("oidc.given_name_claim"),
			FamilyNameClaimField:   viper.GetString("oidc.family_name_claim"),
			OrganizationClaimField: viper.GetString("oidc.organization_claim"),
			DepartmentClaimField:   viper.GetString("oidc.department_claim"),
		},
		Management: ManagementConfig{
			BaseURL:        viper.GetString("management.base_url"),
			SubscriptionID: viper.GetString("management.subscription_id"),
			ResourceGroup:  viper.GetString("management.resource_group"),
			ServiceName:    viper.GetString("management.service_name"),
			APIVersion:     viper.GetString("management.api_version"),
			TenantID:       viper.GetString("management.tenant_id"),
			ClientID:       viper.GetString("management.client_id"),
			ClientSecret:   viper.GetString("management.client_secret"),
			TokenURL:       viper.GetString("management.token_url"),
			Scope:          viper.GetString("management.scope"),
			RateLimit:      viper.GetFloat64("management.rate_limit"),
			RateBurst:      viper.GetInt("management.rate_burst"),
		},
		Notification: NotificationConfig{
			BaseURL:  viper.GetString("notification.base_url"),
			AdminKey: viper.GetString("notification.admin_key"),
			Timeout:  viper.GetDuration("notification.timeout"),
		},
		Provisioning: ProvisioningConfig{
			AdminGroup:       viper.GetString("provisioning.admin_group"),
			DefaultGroups:    stringSlice("provisioning.default_groups"),
			ProductName:      viper.GetString("provisioning.product_name"),
			ManagePrefix:     viper.GetString("provisioning.manage_prefix"),
			CacheSize:        viper.GetInt("provisioning.cache_size"),
			CacheTTL:         viper.GetDuration("provisioning.cache_ttl"),
			CredentialTTL:    viper.GetDuration("provisioning.credential_ttl"),
			CredentialMargin: viper.GetDuration("provisioning.credential_margin"),
			WelcomeSubject:   viper.GetString("provisioning.welcome_subject"),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint:   viper.GetString("observability.otlp_endpoint"),
			OTLPProtocol:   viper.GetString("observability.otlp_protocol"),
			ServiceName:    viper.GetString("observability.service_name"),
			OTLPInsecure:   viper.GetBool("observability.otlp_insecure"),
			ServiceVersion: viper.GetString("observability.service_version"),
			Environment:    viper.GetString("observability.environment"),
			SampleRatio:    viper.GetFloat64("observability.sample_ratio"),
		},
	}

	if cfg.Management.TokenURL == "" && cfg.Management.TenantID != "" {
		cfg.Management.TokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.Management.TenantID)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OIDC.Issuer != "" && c.OIDC.SharedSecret != "" {
		return fmt.Errorf("OIDC config error: cannot enable both issuer verification (PORTAL_OIDC_ISSUER) and shared secret verification (PORTAL_OIDC_SHARED_SECRET)")
	}
	if c.OIDC.Issuer != "" && c.OIDC.ClientID == "" {
		return fmt.Errorf("PORTAL_OIDC_CLIENT_ID is required when PORTAL_OIDC_ISSUER is set")
	}

	switch c.ControlPlane {
	case ControlPlaneLocal:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the local control plane")
		}
	case ControlPlaneAPIM:
		required := []struct{ name, value string }{
			{"PORTAL_MANAGEMENT_SUBSCRIPTION_ID", c.Management.SubscriptionID},
			{"PORTAL_MANAGEMENT_RESOURCE_GROUP", c.Management.ResourceGroup},
			{"PORTAL_MANAGEMENT_SERVICE_NAME", c.Management.ServiceName},
			{"PORTAL_MANAGEMENT_CLIENT_ID", c.Management.ClientID},
			{"PORTAL_MANAGEMENT_CLIENT_SECRET", c.Management.ClientSecret},
			{"PORTAL_MANAGEMENT_TOKEN_URL", c.Management.TokenURL},
		}
		for _, r := range required {
			if r.value == "" {
				return fmt.Errorf("%s is required for the apim control plane", r.name)
			}
		}
	default:
		return fmt.Errorf("unknown control_plane %q (expected %q or %q)", c.ControlPlane, ControlPlaneAPIM, ControlPlaneLocal)
	}

	if c.Provisioning.AdminGroup == "" {
		return fmt.Errorf("provisioning.admin_group is required")
	}
	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("observability.sample_ratio must be between 0 and 1")
	}
	if c.Provisioning.CacheSize <= 0 {
		return fmt.Errorf("provisioning.cache_size must be positive")
	}
	return nil
}

// stringSlice reads a list setting. Values coming from the environment are a
// single comma-separated string.
func stringSlice(key string) []string {
	raw, ok := viper.Get(key).(string)
	if !ok {
		return viper.GetStringSlice(key)
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
