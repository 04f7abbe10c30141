package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// RefreshQuotationsInput asks for the quotation payload to be reloaded.
type RefreshQuotationsInput struct{}

type refreshService interface {
	RefreshQuotations(ctx context.Context) error
}

// RefreshQuotationsCommand replaces the cached payload with a fresh fetch.
type RefreshQuotationsCommand struct {
	service   refreshService
	telemetry Telemetry
}

// NewRefreshQuotationsCommand creates the command.
func NewRefreshQuotationsCommand(service refreshService, telemetry Telemetry) *RefreshQuotationsCommand {
	return &RefreshQuotationsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshQuotationsInput] = (*RefreshQuotationsCommand)(nil)

// Execute invalidates and reloads the quotation cache.
func (c *RefreshQuotationsCommand) Execute(ctx context.Context, _ RefreshQuotationsInput) error {
	if c.service == nil {
		return errors.New("refresh command requires service")
	}
	if err := c.service.RefreshQuotations(ctx); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "leads.command.refresh", nil)
	return nil
}
