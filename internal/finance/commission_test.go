package finance

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
)

type fakeEstablishmentRepository struct {
	findFn func(ctx context.Context, id uuid.UUID) (*models.Establishment, error)
}

func (f *fakeEstablishmentRepository) WithTx(tx *gorm.DB) EstablishmentRepository {
	return f
}

func (f *fakeEstablishmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	if f.findFn != nil {
		return f.findFn(ctx, id)
	}
	return nil, nil
}

func TestCommissionService_Snapshot(t *testing.T) {
	tests := []struct {
		name         string
		percent      string
		depositCents int64
		wantCents    int64
	}{
		{"flat ten percent", "10", 5000, 500},
		{"fractional rate rounds up", "12.5", 4999, 625},
		{"fractional rate rounds down", "12.5", 4998, 625},
		{"zero rate", "0", 5000, 0},
		{"zero deposit", "15", 0, 0},
		{"sub cent share rounds", "0.5", 99, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			percent, err := decimal.NewFromString(tc.percent)
			if err != nil {
				t.Fatalf("bad percent fixture: %v", err)
			}
			repo := &fakeEstablishmentRepository{
				findFn: func(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
					return &models.Establishment{ID: id, CommissionPercent: percent}, nil
				},
			}
			svc, err := NewCommissionService(repo)
			if err != nil {
				t.Fatalf("unexpected service error: %v", err)
			}

			got, err := svc.Snapshot(context.Background(), nil, uuid.New(), tc.depositCents)
			if err != nil {
				t.Fatalf("Snapshot error: %v", err)
			}
			if got.AmountCents != tc.wantCents {
				t.Fatalf("commission on %d at %s%%: got %d, want %d", tc.depositCents, tc.percent, got.AmountCents, tc.wantCents)
			}
			if !got.Percent.Equal(percent) {
				t.Fatalf("snapshot should carry the rate, got %s", got.Percent)
			}
		})
	}
}

func TestCommissionService_EstablishmentNotFound(t *testing.T) {
	svc, err := NewCommissionService(&fakeEstablishmentRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.Snapshot(context.Background(), nil, uuid.New(), 5000); err == nil {
		t.Fatal("expected error for unknown establishment")
	}
}

func TestCommissionService_Validation(t *testing.T) {
	svc, err := NewCommissionService(&fakeEstablishmentRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.Snapshot(context.Background(), nil, uuid.Nil, 5000); err == nil {
		t.Fatal("expected validation error for nil establishment id")
	}
	if _, err := svc.Snapshot(context.Background(), nil, uuid.New(), -1); err == nil {
		t.Fatal("expected validation error for negative deposit")
	}
}
