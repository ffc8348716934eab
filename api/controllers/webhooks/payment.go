package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/planera-app/planera-backend/api/responses"
	"github.com/planera-app/planera-backend/internal/payments"
	"github.com/planera-app/planera-backend/pkg/config"
	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
	"github.com/planera-app/planera-backend/pkg/logger"
	"github.com/planera-app/planera-backend/pkg/metrics"
	"github.com/planera-app/planera-backend/pkg/types"
)

const (
	signatureHeader = "X-Webhook-Signature"
	sharedKeyHeader = "X-Webhook-Key"
	sharedKeyField  = "webhook_key"

	labelUnauthorized  = "unauthorized"
	labelNotConfigured = "webhook_not_configured"
)

// PaymentService reconciles one normalized provider event.
type PaymentService interface {
	Process(ctx context.Context, event *payments.WebhookEvent, remoteAddr string) (payments.Receipt, error)
}

// SignatureAuditor records failed authentication attempts durably, apart
// from ordinary request logs.
type SignatureAuditor interface {
	SignatureRejected(ctx context.Context, remoteAddr, detail string)
}

// PaymentWebhook ingests provider payment notifications. Authentication
// fails closed: no configured secret means no delivery is accepted, and a
// present signature header is authoritative even when a fallback key rides
// along.
func PaymentWebhook(svc PaymentService, cfg config.WebhookConfig, audit SignatureAuditor, webhookMetrics *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		secret := strings.TrimSpace(cfg.Secret)
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "webhook secret not configured").
				WithLabel(labelNotConfigured))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		remoteAddr := clientIP(r)

		if reason, ok := authenticate(r, body, secret); !ok {
			if audit != nil {
				audit.SignatureRejected(ctx, remoteAddr, reason)
			}
			webhookMetrics.IncEvent("unknown", "unauthorized")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook authentication failed: "+reason).
				WithLabel(labelUnauthorized).
				WithDetails(map[string]string{"reason": reason}))
			return
		}

		event, err := payments.Normalize(body)
		if err != nil {
			webhookMetrics.IncEvent("unknown", errorOutcome(err))
			responses.WriteError(ctx, logg, w, err)
			return
		}

		start := time.Now()
		receipt, err := svc.Process(ctx, event, remoteAddr)
		webhookMetrics.ObserveDuration(event.Provider, time.Since(start))
		if err != nil {
			webhookMetrics.IncEvent(event.Provider, errorOutcome(err))
			responses.WriteError(ctx, logg, w, err)
			return
		}

		webhookMetrics.IncEvent(event.Provider, receiptOutcome(receipt))
		responses.WriteAck(w, types.WebhookAck{
			Deduped: receipt.Deduped,
			Warning: receipt.Warning,
		})
	}
}

// authenticate checks the delivery against the shared secret. The shared-key
// fallback only applies when the signature header is absent.
func authenticate(r *http.Request, body []byte, secret string) (string, bool) {
	if header := strings.TrimSpace(r.Header.Get(signatureHeader)); header != "" {
		return verifySignature(header, body, secret)
	}
	return verifySharedKey(r, body, secret)
}

// verifySignature recomputes HMAC-SHA256(secret, body) and compares it in
// constant time against the sha256=<hex> header value.
func verifySignature(header string, body []byte, secret string) (string, bool) {
	scheme, digest, found := strings.Cut(header, "=")
	if !found || strings.TrimSpace(digest) == "" {
		return "malformed signature header", false
	}
	if !strings.EqualFold(strings.TrimSpace(scheme), "sha256") {
		return "unsupported signature algorithm", false
	}
	provided, err := hex.DecodeString(strings.TrimSpace(digest))
	if err != nil {
		return "malformed signature header", false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return "signature mismatch", false
	}
	return "", true
}

func verifySharedKey(r *http.Request, body []byte, secret string) (string, bool) {
	key := strings.TrimSpace(r.Header.Get(sharedKeyHeader))
	if key == "" {
		key = strings.TrimSpace(r.URL.Query().Get(sharedKeyField))
	}
	if key == "" {
		key = keyFromBody(body)
	}
	if key == "" {
		return "missing credentials", false
	}
	if !hmac.Equal([]byte(key), []byte(secret)) {
		return "webhook key mismatch", false
	}
	return "", true
}

func keyFromBody(body []byte) string {
	var probe struct {
		WebhookKey string `json:"webhook_key"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return strings.TrimSpace(probe.WebhookKey)
}

func errorOutcome(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Label() != "" {
		return typed.Label()
	}
	return "error"
}

func receiptOutcome(receipt payments.Receipt) string {
	switch {
	case receipt.Deduped:
		return "deduped"
	case receipt.Warning != "":
		return "warning"
	default:
		return "ok"
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
