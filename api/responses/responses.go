package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
	"github.com/planera-app/planera-backend/pkg/logger"
	"github.com/planera-app/planera-backend/pkg/types"
)

// WriteAck acknowledges a webhook delivery. A warning downgrades the status
// to 202: the provider still sees the delivery as accepted (no retry), while
// the body tells operators reconciliation is pending.
func WriteAck(w http.ResponseWriter, ack types.WebhookAck) {
	ack.Ok = true
	if ack.Status == "" {
		ack.Status = "OK"
	}
	status := http.StatusOK
	if ack.Warning != "" {
		status = http.StatusAccepted
	}
	writeJSON(w, status, ack)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, types.SuccessEnvelope{Data: data})
}

// WriteError renders the flat error body providers and dashboards consume:
// {"ok":false,"error":"<label>", ...detail fields}. Detail fields are merged
// at the top level only for codes whose metadata allows exposure; everything
// else stays in the logs.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	payload := map[string]any{
		"ok":    false,
		"error": publicLabel(typed),
	}
	if meta.DetailsAllowed {
		mergeDetails(payload, typed.Details())
	}

	if logg != nil {
		dump := pkgerrors.Dump(err)

		fields := map[string]any{
			"error":         dump.TopMessage,
			"error_code":    dump.Code,
			"error_label":   typed.Label(),
			"error_chain":   dump.Chain,
			"pg_code":       dump.PGCode,
			"pg_detail":     dump.PGDetail,
			"pg_message":    dump.PGMessage,
			"pg_table":      dump.PGTable,
			"pg_column":     dump.PGColumn,
			"pg_constraint": dump.PGConstraint,
		}

		ctx = logg.WithFields(ctx, fields)
		logg.Error(ctx, "request.error", err)
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

// publicLabel prefers the label the error carries (amount_mismatch,
// reservation_not_found, ...) and falls back to a code-derived identifier
// so the error field is never empty.
func publicLabel(err *pkgerrors.Error) string {
	if label := err.Label(); label != "" {
		return label
	}
	switch err.Code() {
	case pkgerrors.CodeValidation:
		return "bad_payload"
	case pkgerrors.CodeUnauthorized:
		return "unauthorized"
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeConflict:
		return "conflict"
	case pkgerrors.CodeNotConfigured:
		return "not_configured"
	default:
		return "internal_error"
	}
}

// mergeDetails flattens detail fields into the body beside "ok" and
// "error". The reserved keys win on collision.
func mergeDetails(payload map[string]any, details any) {
	if details == nil {
		return
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return
	}
	for key, value := range fields {
		if key == "ok" || key == "error" {
			continue
		}
		payload[key] = value
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
