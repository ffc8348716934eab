package responses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
	"github.com/planera-app/planera-backend/pkg/logger"
	"github.com/planera-app/planera-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "responses-test", Output: io.Discard})
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return body
}

func TestWriteAckPlain(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAck(w, types.WebhookAck{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["ok"] != true || body["status"] != "OK" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, present := body["deduped"]; present {
		t.Fatalf("deduped should be omitted from plain acks")
	}
	if _, present := body["warning"]; present {
		t.Fatalf("warning should be omitted from plain acks")
	}
}

func TestWriteAckDeduped(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAck(w, types.WebhookAck{Deduped: true})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["ok"] != true || body["status"] != "OK" || body["deduped"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWriteAckWarningIsAccepted(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAck(w, types.WebhookAck{Warning: "escrow hold failed"})

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202 but got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["ok"] != true || body["status"] != "OK" || body["warning"] != "escrow hold failed" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWriteErrorFlattensLabeledDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "claimed amount below recorded deposit").
		WithLabel("amount_mismatch").
		WithDetails(map[string]int64{"expected": 50000, "received": 40000})

	WriteError(context.Background(), testLogger(), w, err)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["ok"] != false || body["error"] != "amount_mismatch" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["expected"] != float64(50000) || body["received"] != float64(40000) {
		t.Fatalf("detail fields missing from %v", body)
	}
}

func TestWriteErrorLabelPassthroughForNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeNotFound, "no reservation matched").
		WithLabel("reservation_not_found")

	WriteError(context.Background(), testLogger(), w, err)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 but got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "reservation_not_found" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), testLogger(), w, errors.New("boom"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["ok"] != false || body["error"] != "internal_error" {
		t.Fatalf("unexpected body %v", body)
	}
	if len(body) != 2 {
		t.Fatalf("internal errors must not leak fields: %v", body)
	}
}

func TestWriteErrorSuppressesDetailsWhenNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInternal, "update failed").
		WithLabel("internal_error").
		WithDetails(map[string]string{"table": "reservations"})

	WriteError(context.Background(), testLogger(), w, err)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", w.Code)
	}
	body := decodeBody(t, w)
	if _, present := body["table"]; present {
		t.Fatalf("details must stay out of internal error bodies: %v", body)
	}
}

func TestWriteErrorNotConfigured(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeNotConfigured, "webhook secret unset").
		WithLabel("webhook_not_configured")

	WriteError(context.Background(), testLogger(), w, err)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503 but got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "webhook_not_configured" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWriteErrorNilError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", w.Code)
	}
}

func TestWriteSuccessEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"status": "live"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", w.Code)
	}
	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["status"] != "live" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}
