package notifications

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/planera-app/planera-backend/pkg/config"
	"github.com/planera-app/planera-backend/pkg/logger"
)

const defaultFromAddress = "noreply@planera.app"

// MailInput describes a templated transactional email. Address resolution is
// the mailer's job; the event payload only names the recipient user.
type MailInput struct {
	UserID    uuid.UUID
	Template  string
	Variables map[string]string
}

// Mailer delivers templated email for consumer-audience payment events.
type Mailer interface {
	SendTemplate(ctx context.Context, input MailInput) error
}

// logMailer records send requests and drops them. It keeps worker
// deployments bootable without mail provider credentials; the idempotency
// mark still advances so a later provider rollout does not replay history.
type logMailer struct {
	from string
	logg *logger.Logger
}

// NewMailer builds the mail delivery seam from configuration. Until a
// provider integration ships this always returns the logging mailer.
func NewMailer(cfg config.MailerConfig, logg *logger.Logger) Mailer {
	from := strings.TrimSpace(cfg.DefaultFrom)
	if from == "" {
		from = defaultFromAddress
	}
	if strings.TrimSpace(cfg.APIKey) == "" && logg != nil {
		logg.Warn(context.Background(), "mailer api key not configured, emails will be logged only")
	}
	return &logMailer{from: from, logg: logg}
}

func (m *logMailer) SendTemplate(ctx context.Context, input MailInput) error {
	if m.logg == nil {
		return nil
	}
	logCtx := m.logg.WithFields(ctx, map[string]any{
		"from":     m.from,
		"user_id":  input.UserID.String(),
		"template": input.Template,
	})
	m.logg.Info(logCtx, "email delivery skipped, no mail provider configured")
	return nil
}
