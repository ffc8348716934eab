package packs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/planera-app/planera-backend/pkg/db/models"
	"github.com/planera-app/planera-backend/pkg/enums"
	"github.com/planera-app/planera-backend/pkg/types"
)

func setupPacksTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	packPurchases := `
CREATE TABLE IF NOT EXISTS pack_purchases (
  id TEXT PRIMARY KEY,
  establishment_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  pack_id TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  unit_price_cents INTEGER NOT NULL DEFAULT 0,
  total_price_cents INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'EUR',
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  meta TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(packPurchases).Error)
	return conn
}

func seedPackPurchase(t *testing.T, conn *gorm.DB, meta types.Meta) *models.PackPurchase {
	t.Helper()

	if meta == nil {
		meta = types.Meta{}
	}
	purchase := &models.PackPurchase{
		ID:              uuid.New(),
		EstablishmentID: uuid.New(),
		UserID:          uuid.New(),
		PackID:          uuid.New(),
		Quantity:        1,
		UnitPriceCents:  12900,
		TotalPriceCents: 12900,
		Currency:        "EUR",
		Status:          enums.PackPurchaseStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		Meta:            meta,
	}
	require.NoError(t, conn.Create(purchase).Error)
	return purchase
}

func TestRepository_FindByPurchaseReference(t *testing.T) {
	conn := setupPacksTestDB(t)
	repo := NewRepository(conn)

	purchase := seedPackPurchase(t, conn, types.Meta{"purchase_reference": "PK-7731"})
	seedPackPurchase(t, conn, nil)

	found, err := repo.FindByPurchaseReference(context.Background(), "PK-7731")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, purchase.ID, found.ID)

	missing, err := repo.FindByPurchaseReference(context.Background(), "PK-0000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_MetaLookupsAmbiguous(t *testing.T) {
	conn := setupPacksTestDB(t)
	repo := NewRepository(conn)

	seedPackPurchase(t, conn, types.Meta{"purchase_reference": "PK-9911", "payment_transaction_id": "txn_dup"})
	seedPackPurchase(t, conn, types.Meta{"purchase_reference": "PK-9911", "payment_transaction_id": "txn_dup"})

	byRef, err := repo.FindByPurchaseReference(context.Background(), "PK-9911")
	require.NoError(t, err)
	assert.Nil(t, byRef, "an alias recorded on two rows must resolve to neither")

	byTxn, err := repo.FindByTransactionID(context.Background(), "txn_dup")
	require.NoError(t, err)
	assert.Nil(t, byTxn, "a transaction id recorded on two rows must resolve to neither")
}

func TestRepository_UpdatePaymentTransition(t *testing.T) {
	conn := setupPacksTestDB(t)
	repo := NewRepository(conn)

	purchase := seedPackPurchase(t, conn, nil)

	meta := purchase.Meta
	meta.AppendPaymentEventID("evt_01J")
	meta.RecordPaymentTransactionID("txn_pack_1")
	applied, err := repo.UpdatePayment(context.Background(), purchase.ID, enums.PaymentStatusPending, map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"meta":           meta,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	reloaded, err := repo.FindByID(context.Background(), purchase.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
	assert.True(t, reloaded.Meta.HasPaymentEventID("evt_01J"))

	byTxn, err := repo.FindByTransactionID(context.Background(), "txn_pack_1")
	require.NoError(t, err)
	require.NotNil(t, byTxn)
	assert.Equal(t, purchase.ID, byTxn.ID)

	missed, err := repo.UpdatePayment(context.Background(), purchase.ID, enums.PaymentStatusPending, map[string]any{
		"payment_status": enums.PaymentStatusRefunded,
	})
	require.NoError(t, err)
	assert.False(t, missed, "the row moved to paid, a pending-based patch must miss")
}
