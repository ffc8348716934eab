package securityaudit

import (
	"context"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
	"github.com/planera-app/planera-backend/pkg/logger"
)

// Recorder writes security audit rows best-effort. A failed write is logged
// and swallowed: the rejection that triggered the audit must reach the
// caller unchanged, not be replaced by a database error.
type Recorder struct {
	repo Repository
	logg *logger.Logger
}

// NewRecorder builds the recorder.
func NewRecorder(repo Repository, logg *logger.Logger) (*Recorder, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "securityaudit: repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "securityaudit: logger is required")
	}
	return &Recorder{repo: repo, logg: logg}, nil
}

// SignatureRejected records a webhook delivery that failed authentication.
func (r *Recorder) SignatureRejected(ctx context.Context, remoteAddr, detail string) {
	row := &models.SecurityAuditLog{
		Category:   enums.SecurityAuditSignatureRejected,
		RemoteAddr: remoteAddr,
	}
	if detail != "" {
		row.Detail = &detail
	}
	r.insert(ctx, row)
}

// AmountMismatch describes an underpaying webhook delivery.
type AmountMismatch struct {
	RemoteAddr    string
	EntityKind    enums.EntityKind
	EntityRef     string
	ExpectedCents int64
	ReceivedCents int64
	Detail        string
}

// AmountMismatchRejected records a webhook whose claimed amount fell short
// of the recorded deposit.
func (r *Recorder) AmountMismatchRejected(ctx context.Context, mismatch AmountMismatch) {
	kind := mismatch.EntityKind
	expected := mismatch.ExpectedCents
	received := mismatch.ReceivedCents
	row := &models.SecurityAuditLog{
		Category:      enums.SecurityAuditAmountMismatch,
		RemoteAddr:    mismatch.RemoteAddr,
		EntityKind:    &kind,
		ExpectedCents: &expected,
		ReceivedCents: &received,
	}
	if mismatch.EntityRef != "" {
		ref := mismatch.EntityRef
		row.EntityRef = &ref
	}
	if mismatch.Detail != "" {
		detail := mismatch.Detail
		row.Detail = &detail
	}
	r.insert(ctx, row)
}

func (r *Recorder) insert(ctx context.Context, row *models.SecurityAuditLog) {
	if err := r.repo.Insert(ctx, row); err != nil {
		ctx = r.logg.WithField(ctx, "category", string(row.Category))
		r.logg.Error(ctx, "security audit write failed", err)
	}
}
