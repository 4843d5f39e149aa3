package portal

import (
	"context"
	"crypto/sha256"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/apperr"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/auth"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/notify"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/validate"
)

// Onboarding steps, in execution order.
const (
	StepCreateSubscription = "create_subscription"
	StepSandboxProfile     = "sandbox_profile"
	StepSandboxService     = "sandbox_service"
	StepWelcomeMessage     = "welcome_message"
)

const (
	sandboxOrganizationFiscalCode = "00000000000"
	sandboxOrganizationName       = "Sandbox organization"
	sandboxDepartmentName         = "Sandbox department"
	sandboxServiceName            = "Sandbox service"
)

// SandboxFiscalCode derives the fiscal code of the synthetic test citizen of
// an account. The same account always gets the same code, so onboarding can
// be re-run against an existing sandbox profile.
func SandboxFiscalCode(accountID string) string {
	const (
		letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		digits  = "0123456789"
		months  = "ABCDEHLMPRST"
	)
	sum := sha256.Sum256([]byte(accountID))

	// layout: 6 letters, 2 digits, month, 2 digits, letter, 3 digits, check letter
	layout := "LLLLLLDDMDDLDDDL"
	out := make([]byte, len(layout))
	for i := range layout {
		b := sum[i]
		switch layout[i] {
		case 'L':
			out[i] = letters[int(b)%len(letters)]
		case 'D':
			out[i] = digits[int(b)%len(digits)]
		case 'M':
			out[i] = months[int(b)%len(months)]
		}
	}
	return string(out)
}

func (s *portalService) Onboard(ctx context.Context, account *controlplane.Account, org *auth.Organization) (*controlplane.Subscription, error) {
	const op = "portal.Onboard"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrAccountID, account.ID),
		attribute.String(telemetry.AttrDisplayName, account.DisplayName()),
	)
	defer span.End()

	fail := func(step string, err error) (*controlplane.Subscription, error) {
		err = apperr.Keep(op, err)
		telemetry.RecordError(span, err)
		s.events.Onboarding(ctx, telemetry.OnboardingEvent{
			AccountID:   account.ID,
			DisplayName: account.DisplayName(),
			Step:        step,
			Err:         err,
		})
		return nil, err
	}

	sub, err := s.CreateSubscription(ctx, account.ID, s.cfg.ProductName)
	if err != nil {
		return fail(StepCreateSubscription, err)
	}

	fiscalCode := SandboxFiscalCode(account.ID)
	if err := s.ensureSandboxProfile(ctx, account, fiscalCode); err != nil {
		return fail(StepSandboxProfile, err)
	}

	if _, err := s.notify.CreateService(ctx, sandboxService(sub.ID, fiscalCode, org)); err != nil {
		return fail(StepSandboxService, classify(op, err))
	}

	msg := notify.Message{
		Subject:  s.cfg.WelcomeSubject,
		Markdown: welcomeMarkdown(account, sub, fiscalCode),
	}
	if _, err := s.notify.SendMessage(ctx, sub.PrimaryKey, fiscalCode, msg); err != nil {
		return fail(StepWelcomeMessage, classify(op, err))
	}

	s.events.Onboarding(ctx, telemetry.OnboardingEvent{
		AccountID:   account.ID,
		DisplayName: account.DisplayName(),
	})
	return sub, nil
}

// ensureSandboxProfile creates the sandbox citizen. An existing profile is
// accepted as is.
func (s *portalService) ensureSandboxProfile(ctx context.Context, account *controlplane.Account, fiscalCode string) error {
	const op = "portal.ensureSandboxProfile"

	_, err := s.notify.CreateOrUpdateProfile(ctx, fiscalCode, notify.Profile{Email: account.Email})
	err = classify(op, err)
	if apperr.Is(err, apperr.KindConflict) {
		s.logger.InfoContext(ctx, "sandbox profile already exists", "account_id", account.ID)
		return nil
	}
	return err
}

func sandboxService(serviceID, fiscalCode string, org *auth.Organization) notify.Service {
	svc := notify.Service{
		ServiceID:              serviceID,
		ServiceName:            sandboxServiceName,
		DepartmentName:         sandboxDepartmentName,
		OrganizationName:       sandboxOrganizationName,
		OrganizationFiscalCode: sandboxOrganizationFiscalCode,
		AuthorizedCIDRs:        []string{"0.0.0.0/0"},
		AuthorizedRecipients:   []string{fiscalCode},
		ServiceMetadata:        &notify.ServiceMetadata{Scope: notify.ScopeLocal},
	}
	if org == nil {
		return svc
	}
	if org.Name != "" {
		svc.OrganizationName = org.Name
	}
	if org.Department != "" {
		svc.DepartmentName = org.Department
	}
	if err := validate.Default().Var(org.FiscalCode, "orgfiscalcode"); err == nil {
		svc.OrganizationFiscalCode = org.FiscalCode
	}
	return svc
}

func welcomeMarkdown(account *controlplane.Account, sub *controlplane.Subscription, fiscalCode string) string {
	name := account.DisplayName()
	if name == "" {
		name = account.Email
	}
	return fmt.Sprintf("Hello %s,\n\n"+
		"your subscription **%s** is active and a sandbox service has been created for it.\n\n"+
		"This message was sent by the sandbox service to the test citizen `%s`, "+
		"the only recipient it is authorized to reach. Use the primary key of the subscription to send more.",
		name, sub.ID, fiscalCode)
}
