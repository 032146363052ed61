package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhnm3/khomypham/internal/domain/catalog"
)

func newTestBatch(t *testing.T, productID uuid.UUID, qty int64, importedAt time.Time, cost int64) *Batch {
	t.Helper()
	b, err := NewBatch(productID, "TST2024001", qty, importedAt, decimal.NewFromInt(cost))
	require.NoError(t, err)
	return b
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestNewBatch(t *testing.T) {
	productID := uuid.New()
	imported := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("remaining starts at imported", func(t *testing.T) {
		b := newTestBatch(t, productID, 20, imported, 5)
		assert.Equal(t, int64(20), b.QuantityImported)
		assert.Equal(t, int64(20), b.QuantityRemaining)
		assert.True(t, b.Active)
		assert.True(t, b.IsEligible())
		events := b.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeBatchCreated, events[0].EventType())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		for _, q := range []int64{0, -1} {
			_, err := NewBatch(productID, "X", q, imported, decimal.Zero)
			assert.ErrorIs(t, err, ErrInvalidQuantity)
		}
	})

	t.Run("rejects missing product", func(t *testing.T) {
		_, err := NewBatch(uuid.Nil, "X", 1, imported, decimal.Zero)
		assert.Error(t, err)
	})
}

func TestBatch_AdjustRemaining(t *testing.T) {
	b := newTestBatch(t, uuid.New(), 10, time.Now(), 1)

	t.Run("decrement within bounds", func(t *testing.T) {
		require.NoError(t, b.AdjustRemaining(-4))
		assert.Equal(t, int64(6), b.QuantityRemaining)
		assert.Equal(t, int64(4), b.Drawn())
	})

	t.Run("negative result rejected and state unchanged", func(t *testing.T) {
		err := b.AdjustRemaining(-7)
		assert.ErrorIs(t, err, ErrNegativeStock)
		assert.Equal(t, int64(6), b.QuantityRemaining)
	})

	t.Run("over import rejected and state unchanged", func(t *testing.T) {
		err := b.AdjustRemaining(5)
		assert.ErrorIs(t, err, ErrOverImport)
		assert.Equal(t, int64(6), b.QuantityRemaining)
	})

	t.Run("restore up to imported", func(t *testing.T) {
		require.NoError(t, b.AdjustRemaining(4))
		assert.Equal(t, b.QuantityImported, b.QuantityRemaining)
	})

	t.Run("drawn to zero is no longer eligible", func(t *testing.T) {
		require.NoError(t, b.AdjustRemaining(-10))
		assert.False(t, b.IsEligible())
	})
}

func TestBatch_Retire(t *testing.T) {
	b := newTestBatch(t, uuid.New(), 10, time.Now(), 1)
	b.ClearDomainEvents()

	b.Retire()
	assert.False(t, b.Active)
	assert.False(t, b.IsEligible())
	assert.False(t, b.IsLowStock(100))
	require.Len(t, b.GetDomainEvents(), 1)

	b.Retire()
	assert.Len(t, b.GetDomainEvents(), 1, "retiring twice raises one event")

	b.Reactivate()
	assert.True(t, b.Active)
	assert.True(t, b.IsEligible())
}

func TestBatch_CanSupply(t *testing.T) {
	productID := uuid.New()
	b, err := NewBatch(productID, "SER2025001", 10, time.Now(), decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.NoError(t, b.CanSupply(productID))
	assert.ErrorIs(t, b.CanSupply(uuid.New()), ErrForeignBatch)

	b.Retire()
	assert.ErrorIs(t, b.CanSupply(productID), ErrBatchInactive)
}

func TestBatch_Expiry(t *testing.T) {
	imported := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour
	days := 30

	t.Run("batch date wins over product policy", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), 5, imported, 1)
		b.ExpiryDate = timePtr(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		policy := catalog.ExpiryPolicy{Days: &days}
		assert.Equal(t, *b.ExpiryDate, *b.ResolveExpiry(policy))
		assert.False(t, b.ExpiresWithin(policy, asOf, window))
	})

	t.Run("falls back to product days", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), 5, imported, 1)
		policy := catalog.ExpiryPolicy{Days: &days}
		assert.True(t, b.ExpiresWithin(policy, asOf, window))
	})

	t.Run("window bounds are inclusive", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), 5, imported, 1)
		b.ExpiryDate = timePtr(asOf.Add(window))
		assert.True(t, b.ExpiresWithin(catalog.ExpiryPolicy{}, asOf, window))
		b.ExpiryDate = timePtr(asOf)
		assert.True(t, b.ExpiresWithin(catalog.ExpiryPolicy{}, asOf, window))
	})

	t.Run("already expired is outside window", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), 5, imported, 1)
		b.ExpiryDate = timePtr(asOf.Add(-time.Hour))
		assert.False(t, b.ExpiresWithin(catalog.ExpiryPolicy{}, asOf, window))
	})

	t.Run("no expiry information", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), 5, imported, 1)
		assert.Nil(t, b.ResolveExpiry(catalog.ExpiryPolicy{}))
		assert.False(t, b.ExpiresWithin(catalog.ExpiryPolicy{}, asOf, window))
	})

	t.Run("retired batch never expiring", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), 5, imported, 1)
		b.ExpiryDate = timePtr(asOf.Add(24 * time.Hour))
		b.Retire()
		assert.False(t, b.ExpiresWithin(catalog.ExpiryPolicy{}, asOf, window))
	})
}

func TestBatch_StockValue(t *testing.T) {
	b, err := NewBatch(uuid.New(), "X", 4, time.Now(), decimal.RequireFromString("2.50"))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(b.StockValue()))
}

func TestBatchCode(t *testing.T) {
	y2025 := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	t.Run("scenario serum", func(t *testing.T) {
		prefix := BatchCodePrefix("Serum ABC", y2025)
		assert.Equal(t, "SER2025", prefix)
		assert.Equal(t, "SER2025003", FormatBatchCode(prefix, 3))
	})

	t.Run("multibyte names keep whole runes", func(t *testing.T) {
		assert.Equal(t, "SỮA2025", BatchCodePrefix("sữa rửa mặt", y2025))
	})

	t.Run("inner spaces are kept", func(t *testing.T) {
		assert.Equal(t, "A S2025", BatchCodePrefix("A Serum", y2025))
		assert.Equal(t, "KEM2025", BatchCodePrefix("  kem dưỡng", y2025))
	})

	t.Run("short and empty names", func(t *testing.T) {
		assert.Equal(t, "AB2025", BatchCodePrefix("ab", y2025))
		assert.Equal(t, "LOT2025", BatchCodePrefix("   ", y2025))
	})

	t.Run("sequence round trip", func(t *testing.T) {
		seq, ok := BatchCodeSequence("SER2025", "SER2025042")
		assert.True(t, ok)
		assert.Equal(t, 42, seq)

		_, ok = BatchCodeSequence("SER2025", "KEM2025001")
		assert.False(t, ok)
		_, ok = BatchCodeSequence("SER2025", "SER2025abc")
		assert.False(t, ok)
	})

	t.Run("sequence wider than padding", func(t *testing.T) {
		assert.Equal(t, "SER20251000", FormatBatchCode("SER2025", 1000))
	})
}
