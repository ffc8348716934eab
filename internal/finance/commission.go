package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
	pkgerrors "github.com/planera-app/planera-backend/pkg/errors"
)

// EstablishmentRepository reads establishment records.
type EstablishmentRepository interface {
	WithTx(tx *gorm.DB) EstablishmentRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error)
}

type establishmentRepository struct {
	db *gorm.DB
}

// NewEstablishmentRepository returns an establishment repository bound to the
// provided database.
func NewEstablishmentRepository(db *gorm.DB) EstablishmentRepository {
	return &establishmentRepository{db: db}
}

func (r *establishmentRepository) WithTx(tx *gorm.DB) EstablishmentRepository {
	if tx == nil {
		return r
	}
	return &establishmentRepository{db: tx}
}

func (r *establishmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	var establishment models.Establishment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&establishment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &establishment, nil
}

// Commission is the snapshot written onto a reservation when its deposit
// settles. Percent comes from the establishment at settlement time;
// AmountCents is the rounded share of the deposit.
type Commission struct {
	Percent     decimal.Decimal
	AmountCents int64
}

// CommissionService resolves the commission owed on a settled deposit.
type CommissionService interface {
	Snapshot(ctx context.Context, tx *gorm.DB, establishmentID uuid.UUID, depositCents int64) (Commission, error)
}

type commissionService struct {
	repo EstablishmentRepository
}

// NewCommissionService builds the commission service.
func NewCommissionService(repo EstablishmentRepository) (CommissionService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "finance: establishment repository is required")
	}
	return &commissionService{repo: repo}, nil
}

// Snapshot reads the establishment's current commission rate and applies it
// to the deposit. It runs inside the caller's transaction so the rate read
// and the reservation write commit together.
func (s *commissionService) Snapshot(ctx context.Context, tx *gorm.DB, establishmentID uuid.UUID, depositCents int64) (Commission, error) {
	if establishmentID == uuid.Nil {
		return Commission{}, pkgerrors.New(pkgerrors.CodeValidation, "finance: establishment id is required")
	}
	if depositCents < 0 {
		return Commission{}, pkgerrors.New(pkgerrors.CodeValidation, "finance: deposit must not be negative")
	}
	repo := s.repo.WithTx(tx)
	establishment, err := repo.FindByID(ctx, establishmentID)
	if err != nil {
		return Commission{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finance: loading establishment")
	}
	if establishment == nil {
		return Commission{}, pkgerrors.New(pkgerrors.CodeNotFound, "finance: establishment not found")
	}
	return Commission{
		Percent:     establishment.CommissionPercent,
		AmountCents: commissionAmount(establishment.CommissionPercent, depositCents),
	}, nil
}

// commissionAmount computes percent of the deposit in integer cents.
// Half-cent boundaries round half away from zero, matching the invoicing
// back office.
func commissionAmount(percent decimal.Decimal, depositCents int64) int64 {
	return decimal.NewFromInt(depositCents).
		Mul(percent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
