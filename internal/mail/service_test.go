package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/lifesync/internal/config"
	"github.com/hitoshi/lifesync/internal/model"
)

func testConfig(configured bool) *config.Config {
	cfg := &config.Config{
		SMTPHost:      "smtp.example.com",
		SMTPPort:      587,
		SMTPFromName:  "LifeSync",
		SMTPFromEmail: "noreply@example.com",
		BaseURL:       "https://lifesync.example.com",
	}
	if configured {
		cfg.SMTPUser = "noreply@example.com"
		cfg.SMTPPassword = "secret"
	}
	return cfg
}

func TestNewServiceWithoutCredentials(t *testing.T) {
	svc, err := NewService(testConfig(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Enabled() {
		t.Error("service should be disabled without smtp credentials")
	}
}

func TestSendWhenDisabled(t *testing.T) {
	svc, err := NewService(testConfig(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := &model.User{ID: "u1", Username: "hitoshi", Email: "hitoshi@example.com"}
	sendErr := svc.SendWelcome(context.Background(), user)

	var apiErr *model.APIError
	if !errors.As(sendErr, &apiErr) || apiErr.Code != model.ErrCodeMailNotConfigured {
		t.Fatalf("expected MAIL_NOT_CONFIGURED, got %v", sendErr)
	}
}

func TestSendWithoutRecipient(t *testing.T) {
	svc, err := NewService(testConfig(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !svc.Enabled() {
		t.Fatal("service should be enabled with smtp credentials")
	}

	user := &model.User{ID: "u1", Username: "hitoshi"}
	sendErr := svc.SendTest(context.Background(), user)

	var apiErr *model.APIError
	if !errors.As(sendErr, &apiErr) || apiErr.Code != model.ErrCodeDeliveryFailure {
		t.Fatalf("expected DELIVERY_FAILURE, got %v", sendErr)
	}
}
