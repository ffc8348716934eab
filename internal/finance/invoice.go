package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db"
	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
)

// InvoiceRepository manages persistence for invoices.
type InvoiceRepository interface {
	WithTx(tx *gorm.DB) InvoiceRepository
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Invoice, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository returns an invoice repository bound to the provided database.
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) WithTx(tx *gorm.DB) InvoiceRepository {
	if tx == nil {
		return r
	}
	return &invoiceRepository{db: tx}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *invoiceRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// InvoiceInput carries everything needed to issue an invoice for a settled
// payment.
type InvoiceInput struct {
	EntityKind      enums.EntityKind
	EntityID        uuid.UUID
	EstablishmentID uuid.UUID
	AmountCents     int64
	Currency        string
	PaymentEventID  string
}

// InvoiceService issues invoices for settled payments. Issuance is keyed on
// the entity plus the webhook event, so provider retries land on the unique
// index instead of producing a second invoice.
type InvoiceService interface {
	EnsureInvoice(ctx context.Context, input InvoiceInput, issuedAt time.Time) error
}

type invoiceService struct {
	repo InvoiceRepository
}

// NewInvoiceService builds the invoice service.
func NewInvoiceService(repo InvoiceRepository) (InvoiceService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "finance: invoice repository is required")
	}
	return &invoiceService{repo: repo}, nil
}

// EnsureInvoice issues an invoice once per (entity, payment event). A
// duplicate issuance attempt is detected through the idempotency key and
// reported as success.
func (s *invoiceService) EnsureInvoice(ctx context.Context, input InvoiceInput, issuedAt time.Time) error {
	if input.EntityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "finance: entity id is required")
	}
	if input.EstablishmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "finance: establishment id is required")
	}
	if input.AmountCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "finance: amount must not be negative")
	}
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = string(enums.DefaultCurrency)
	}

	invoice := &models.Invoice{
		Number:          invoiceNumber(issuedAt),
		EntityKind:      input.EntityKind,
		EntityID:        input.EntityID,
		EstablishmentID: input.EstablishmentID,
		IdempotencyKey:  invoiceIdempotencyKey(input),
		AmountCents:     input.AmountCents,
		Currency:        currency,
		IssuedAt:        issuedAt,
	}
	if err := s.repo.Create(ctx, invoice); err != nil {
		// Matching on the column name covers both the Postgres index and
		// the sqlite test driver message.
		if db.IsUniqueViolation(err, "idempotency_key") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finance: issuing invoice")
	}
	return nil
}

// invoiceNumber produces a human-readable, collision-resistant invoice
// number. Uniqueness is enforced by the database, not by this format.
func invoiceNumber(issuedAt time.Time) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("INV-%s-%s", issuedAt.UTC().Format("20060102"), strings.ToUpper(suffix))
}

// invoiceIdempotencyKey derives the issuance key. The webhook event id is
// included so a legitimately distinct settlement on the same entity (a
// second deposit after a refund) can still be invoiced.
func invoiceIdempotencyKey(input InvoiceInput) string {
	eventPart := input.PaymentEventID
	if eventPart == "" {
		eventPart = "none"
	}
	return fmt.Sprintf("%s:%s:%s", input.EntityKind, input.EntityID, eventPart)
}
