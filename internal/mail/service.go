// Package mail はSMTP経由のメール送信を提供する。
//
// SMTP認証情報が未設定の場合、Serviceは無効状態で生成され、
// すべての送信はMAIL_NOT_CONFIGUREDエラーを返す。
package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/hitoshi/lifesync/internal/config"
	"github.com/hitoshi/lifesync/internal/model"
	"github.com/hitoshi/lifesync/internal/report"
)

// Service はSMTPクライアントをラップしてアプリ固有のメールを送信する。
type Service struct {
	client    *gomail.Client
	fromName  string
	fromEmail string
	baseURL   string
}

// NewService は設定からServiceを生成する。
// SMTP認証情報が未設定の場合はクライアントを持たない無効なServiceを返す（エラーにはしない）。
func NewService(cfg *config.Config) (*Service, error) {
	s := &Service{
		fromName:  cfg.SMTPFromName,
		fromEmail: cfg.SMTPFromEmail,
		baseURL:   cfg.BaseURL,
	}

	if !cfg.MailConfigured() {
		slog.Info("smtp credentials not set, mail delivery disabled")
		return s, nil
	}

	client, err := gomail.NewClient(cfg.SMTPHost,
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.SMTPUser),
		gomail.WithPassword(cfg.SMTPPassword),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	s.client = client
	return s, nil
}

// Enabled は送信可能かどうかを返す。
func (s *Service) Enabled() bool {
	return s.client != nil
}

// SendWelcome は登録直後のユーザーに歓迎メールを送信する。
func (s *Service) SendWelcome(ctx context.Context, user *model.User) error {
	body := fmt.Sprintf(welcomeBody, user.Username, s.baseURL)
	return s.send(ctx, user.Email, "Welcome to LifeSync 🎯", body)
}

// SendReport はレポートをHTMLメールとして送信する。
func (s *Service) SendReport(ctx context.Context, user *model.User, r *report.Report) error {
	html, err := report.RenderHTML(r)
	if err != nil {
		return err
	}
	return s.send(ctx, user.Email, "🎯 Your "+r.Title, html)
}

// SendTest はSMTP設定確認用のテストメールを送信する。
func (s *Service) SendTest(ctx context.Context, user *model.User) error {
	body := fmt.Sprintf(testBody, user.Username)
	return s.send(ctx, user.Email, "LifeSync Test Email", body)
}

func (s *Service) send(ctx context.Context, to, subject, htmlBody string) error {
	if s.client == nil {
		return model.NewMailNotConfiguredError()
	}
	if to == "" {
		return model.NewDeliveryFailureError("recipient has no email address")
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	slog.Info("mail sent", slog.String("to", to), slog.String("subject", subject))
	return nil
}

const welcomeBody = `<!DOCTYPE html>
<html>
<body style="margin: 0; padding: 24px; background-color: #0f1220; font-family: Helvetica, Arial, sans-serif; color: #e5e7eb;">
  <table width="100%%" border="0" cellpadding="0" cellspacing="0">
    <tr><td align="center">
      <table width="100%%" border="0" cellpadding="0" cellspacing="0" style="max-width: 600px;">
        <tr><td style="background: #171a2f; border: 1px solid #2a2f55; border-radius: 14px; padding: 32px;">
          <h1 style="margin: 0 0 16px 0; font-size: 24px;">🎯 Welcome to LifeSync, %s!</h1>
          <p style="color: #9ca3af; line-height: 1.6;">
            Your account is ready. Start by creating a few habits you want to build,
            then check in every day — your streaks, analytics, and progress reports
            will take care of themselves.
          </p>
          <p style="margin-top: 24px;">
            <a href="%s" style="background: #1d4ed8; color: #ffffff; padding: 12px 24px; border-radius: 8px; text-decoration: none; font-weight: bold;">Open LifeSync</a>
          </p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

const testBody = `<!DOCTYPE html>
<html>
<body style="margin: 0; padding: 24px; background-color: #0f1220; font-family: Helvetica, Arial, sans-serif; color: #e5e7eb;">
  <p>Hi %s,</p>
  <p>This is a test email from LifeSync. If you can read this, email delivery is working. ✅</p>
</body>
</html>`
