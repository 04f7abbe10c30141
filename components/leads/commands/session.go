package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-leads-dashboard/components/leads"
)

// LoginInput carries the submitted credentials.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginService interface {
	Login(ctx context.Context, email, password string) (leads.Identity, error)
}

// LoginCommand wraps Service.Login.
type LoginCommand struct {
	service   loginService
	telemetry Telemetry
}

// NewLoginCommand creates the command.
func NewLoginCommand(service loginService, telemetry Telemetry) *LoginCommand {
	return &LoginCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoginInput] = (*LoginCommand)(nil)

// Execute authenticates the operator. Rejections surface as leads.AuthError.
func (c *LoginCommand) Execute(ctx context.Context, msg LoginInput) error {
	if c.service == nil {
		return errors.New("login command requires service")
	}
	identity, err := c.service.Login(ctx, msg.Email, msg.Password)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "leads.command.login", map[string]any{
		"email":      identity.Email,
		"session_id": identity.SessionID,
	})
	return nil
}

// LogoutInput ends the current session.
type LogoutInput struct{}

type logoutService interface {
	Logout(ctx context.Context) error
}

// LogoutCommand wraps Service.Logout.
type LogoutCommand struct {
	service   logoutService
	telemetry Telemetry
}

// NewLogoutCommand creates the command.
func NewLogoutCommand(service logoutService, telemetry Telemetry) *LogoutCommand {
	return &LogoutCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LogoutInput] = (*LogoutCommand)(nil)

// Execute clears the identity, the persisted session and every cache.
func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutInput) error {
	if c.service == nil {
		return errors.New("logout command requires service")
	}
	if err := c.service.Logout(ctx); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "leads.command.logout", nil)
	return nil
}
