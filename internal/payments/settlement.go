package payments

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/elonaire/templates-backend/internal/clients"
	"github.com/elonaire/templates-backend/internal/gateway"
	"github.com/elonaire/templates-backend/internal/orders"
)

const (
	stepSignIn            = "sign-in-as-service"
	stepConfirmOrder      = "confirm-order"
	stepGrantEntitlements = "grant-entitlements"
	stepSendEmail         = "send-confirmation-email"
)

type serviceSignIn interface {
	SignInAsService(ctx context.Context) (gateway.Credentials, error)
}

type ordersClient interface {
	UpdateOrder(ctx context.Context, creds gateway.Credentials, orderID, status string) (string, error)
	GetAllArtifactsForOrder(ctx context.Context, creds gateway.Credentials, orderID string) (clients.ArtifactsPurchaseDetails, error)
}

type filesClient interface {
	PurchaseFile(ctx context.Context, creds gateway.Credentials, externalBuyerID, artifactRef string) (string, error)
}

type emailClient interface {
	SendEmail(ctx context.Context, creds gateway.Credentials, email clients.Email) (string, error)
}

// Pipeline runs the settlement fan-out for a verified charge.success event.
// The provider already completed the charge, so every step is try/log/
// continue: a failed step never fails the webhook response, it is recorded
// in the ledger instead.
type Pipeline struct {
	auth   serviceSignIn
	orders ordersClient
	files  filesClient
	email  emailClient
	ledger Ledger
	log    *slog.Logger
}

func NewPipeline(auth serviceSignIn, ordersCl ordersClient, files filesClient, email emailClient, ledger Ledger, log *slog.Logger) *Pipeline {
	return &Pipeline{auth: auth, orders: ordersCl, files: files, email: email, ledger: ledger, log: log}
}

// Settle drives the three-step fan-out: confirm the order, grant an
// entitlement per purchased artifact, send the confirmation email. The
// outcome of every step lands in one ledger entry keyed by the provider
// reference.
func (p *Pipeline) Settle(ctx context.Context, ev ChargeEvent) {
	entry := LedgerEntry{
		Reference: ev.Data.Reference,
		Event:     ev.Event,
		CreatedAt: time.Now().UTC(),
	}
	defer func() {
		if err := p.ledger.Record(ctx, entry); err != nil {
			p.log.Error("recording settlement ledger entry failed",
				"reference", ev.Data.Reference, "error", err)
		}
	}()

	// The webhook carries no user session; settlement acts as the service
	// account.
	creds, err := p.auth.SignInAsService(ctx)
	if err != nil {
		p.log.Error("service sign-in failed, settlement steps skipped",
			"reference", ev.Data.Reference, "error", err)
		entry.Steps = append(entry.Steps, failedStep(stepSignIn, err))
		return
	}
	entry.Steps = append(entry.Steps, okStep(stepSignIn))

	entry.Steps = append(entry.Steps, p.confirmOrder(ctx, creds, ev))
	entry.Steps = append(entry.Steps, p.grantEntitlements(ctx, creds, ev))
	entry.Steps = append(entry.Steps, p.sendConfirmationEmail(ctx, creds, ev))
}

func (p *Pipeline) confirmOrder(ctx context.Context, creds gateway.Credentials, ev ChargeEvent) Step {
	_, err := p.orders.UpdateOrder(ctx, creds, ev.Data.Reference, string(orders.StatusConfirmed))
	if err != nil {
		p.log.Error("confirming order failed", "reference", ev.Data.Reference, "error", err)
		return failedStep(stepConfirmOrder, err)
	}
	return okStep(stepConfirmOrder)
}

func (p *Pipeline) grantEntitlements(ctx context.Context, creds gateway.Credentials, ev ChargeEvent) Step {
	details, err := p.orders.GetAllArtifactsForOrder(ctx, creds, ev.Data.Reference)
	if err != nil {
		p.log.Error("fetching purchased artifacts failed",
			"reference", ev.Data.Reference, "error", err)
		return failedStep(stepGrantEntitlements, err)
	}

	// Each grant fails independently; a partial grant beats blocking the
	// whole settlement on one bad artifact.
	var failures []string
	for _, artifact := range details.Artifacts {
		if _, err := p.files.PurchaseFile(ctx, creds, details.BuyerID, artifact); err != nil {
			p.log.Error("granting entitlement failed",
				"reference", ev.Data.Reference, "artifact", artifact, "error", err)
			failures = append(failures, artifact+": "+err.Error())
		}
	}
	if len(failures) > 0 {
		return Step{Name: stepGrantEntitlements, Error: strings.Join(failures, "; "), At: time.Now().UTC()}
	}
	return okStep(stepGrantEntitlements)
}

func (p *Pipeline) sendConfirmationEmail(ctx context.Context, creds gateway.Credentials, ev ChargeEvent) Step {
	msg := clients.Email{
		Recipient: clients.EmailUser{EmailAddress: ev.Data.Customer.Email},
		Subject:   "Your order is confirmed",
		Title:     "Payment received",
		Body:      "Your payment was received and your order " + ev.Data.Reference + " is confirmed. Your downloads are ready in your account.",
	}
	if _, err := p.email.SendEmail(ctx, creds, msg); err != nil {
		p.log.Error("sending confirmation email failed",
			"reference", ev.Data.Reference, "error", err)
		return failedStep(stepSendEmail, err)
	}
	return okStep(stepSendEmail)
}

func okStep(name string) Step {
	return Step{Name: name, OK: true, At: time.Now().UTC()}
}

func failedStep(name string, err error) Step {
	return Step{Name: name, Error: err.Error(), At: time.Now().UTC()}
}
