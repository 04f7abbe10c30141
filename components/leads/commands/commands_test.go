package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-leads-dashboard/components/leads"
)

func TestLoginCommand(t *testing.T) {
	service := &stubService{}
	telemetry := &stubTelemetry{}
	cmd := NewLoginCommand(service, telemetry)
	if err := cmd.Execute(context.Background(), LoginInput{Email: "admin@example.com", Password: "password"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.loginCalls != 1 || service.lastEmail != "admin@example.com" {
		t.Fatalf("expected login call with email, got %d %q", service.loginCalls, service.lastEmail)
	}
	if telemetry.calls != 1 {
		t.Fatalf("expected telemetry to record login")
	}
}

func TestLoginCommandPropagatesAuthError(t *testing.T) {
	service := &stubService{loginErr: &leads.AuthError{Email: "x", Err: leads.ErrInvalidCredentials}}
	telemetry := &stubTelemetry{}
	cmd := NewLoginCommand(service, telemetry)
	err := cmd.Execute(context.Background(), LoginInput{Email: "x", Password: "y"})
	if !leads.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if telemetry.calls != 0 {
		t.Fatalf("expected no telemetry on failure")
	}
}

func TestLogoutCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewLogoutCommand(service, nil)
	if err := cmd.Execute(context.Background(), LogoutInput{}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.logoutCalls != 1 {
		t.Fatalf("expected logout call")
	}
}

func TestRefreshQuotationsCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewRefreshQuotationsCommand(service, nil)
	if err := cmd.Execute(context.Background(), RefreshQuotationsInput{}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.refreshCalls != 1 {
		t.Fatalf("expected refresh call")
	}

	service.refreshErr = errors.New("backend down")
	if err := cmd.Execute(context.Background(), RefreshQuotationsInput{}); err == nil {
		t.Fatalf("expected refresh error")
	}
}

func TestCommandsRequireService(t *testing.T) {
	if err := NewLoginCommand(nil, nil).Execute(context.Background(), LoginInput{}); err == nil {
		t.Fatalf("expected login error without service")
	}
	if err := NewLogoutCommand(nil, nil).Execute(context.Background(), LogoutInput{}); err == nil {
		t.Fatalf("expected logout error without service")
	}
	if err := NewRefreshQuotationsCommand(nil, nil).Execute(context.Background(), RefreshQuotationsInput{}); err == nil {
		t.Fatalf("expected refresh error without service")
	}
}

type stubService struct {
	loginCalls   int
	logoutCalls  int
	refreshCalls int
	lastEmail    string
	loginErr     error
	refreshErr   error
}

func (s *stubService) Login(_ context.Context, email, _ string) (leads.Identity, error) {
	s.loginCalls++
	s.lastEmail = email
	if s.loginErr != nil {
		return leads.Identity{}, s.loginErr
	}
	return leads.Identity{Email: email, SessionID: "sid"}, nil
}

func (s *stubService) Logout(context.Context) error {
	s.logoutCalls++
	return nil
}

func (s *stubService) RefreshQuotations(context.Context) error {
	s.refreshCalls++
	return s.refreshErr
}

type stubTelemetry struct {
	calls int
}

func (s *stubTelemetry) Record(context.Context, string, map[string]any) {
	s.calls++
}
