package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

// pendingCheckout commits a pending checkout paying 300 from the gift card
// and authorizing 700 on the processor.
func pendingCheckout(t *testing.T, h *harness) *entity.Transaction {
	t.Helper()
	h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(300)})
	tx, err := h.svc.Checkout(context.Background(), CheckoutRequest{
		ID:        "co-pending",
		Currency:  "USD",
		LineItems: []*entity.LineItem{{UnitPrice: 1000, Quantity: 1}},
		Sources: []PaymentSource{
			{Rail: entity.RailLightrail, ValueID: "gc1"},
			{Rail: entity.RailStripe, Source: "tok_visa"},
		},
		Pending: true,
	})
	require.NoError(t, err)
	return tx
}

func TestCapture(t *testing.T) {
	ctx := context.Background()

	t.Run("Captures the authorization", func(t *testing.T) {
		h := newHarness()
		pendingCheckout(t, h)

		tx, err := h.svc.Capture(ctx, CaptureRequest{ID: "cap-1", PendingTransactionID: "co-pending"})

		require.NoError(t, err)
		assert.Equal(t, entity.TypeCapture, tx.TransactionType)
		assert.Equal(t, "co-pending", tx.PreviousTransactionID)
		assert.Equal(t, []string{"ch_1"}, h.proc.captures)

		// Ledger funds were drawn at checkout; capture adds no ledger steps.
		assert.Empty(t, entity.LightrailSteps(tx.Steps))
		stripeSteps := entity.StripeSteps(tx.Steps)
		require.Len(t, stripeSteps, 1)
		assert.Equal(t, entity.ChargeTypeCapture, stripeSteps[0].Type)
		assert.Equal(t, int64(700), stripeSteps[0].Amount)

		target, err := h.svc.GetTransaction(ctx, "co-pending")
		require.NoError(t, err)
		assert.False(t, target.IsPending())
		assert.Equal(t, "cap-1", target.NextTransactionID)
	})

	t.Run("Capture past the void date fails", func(t *testing.T) {
		h := newHarness()
		pendingCheckout(t, h)
		h.clock.advance(8 * 24 * time.Hour)

		_, err := h.svc.Capture(ctx, CaptureRequest{ID: "cap-1", PendingTransactionID: "co-pending"})

		assert.ErrorIs(t, err, errs.ErrPendingExpired)
		assert.Empty(t, h.proc.captures)
	})

	t.Run("Capturing twice fails", func(t *testing.T) {
		h := newHarness()
		pendingCheckout(t, h)
		_, err := h.svc.Capture(ctx, CaptureRequest{ID: "cap-1", PendingTransactionID: "co-pending"})
		require.NoError(t, err)

		_, err = h.svc.Capture(ctx, CaptureRequest{ID: "cap-2", PendingTransactionID: "co-pending"})

		assert.ErrorIs(t, err, errs.ErrTransactionNotPending)
	})

	t.Run("Capturing a non-pending transaction fails", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(1000)})
		_, err := h.svc.Debit(ctx, DebitRequest{
			ID:       "de-1",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:   100,
		})
		require.NoError(t, err)

		_, err = h.svc.Capture(ctx, CaptureRequest{ID: "cap-1", PendingTransactionID: "de-1"})

		assert.ErrorIs(t, err, errs.ErrTransactionNotPending)
	})
}

func TestVoid(t *testing.T) {
	ctx := context.Background()

	t.Run("Releases ledger funds and refunds the authorization", func(t *testing.T) {
		h := newHarness()
		pendingCheckout(t, h)
		require.Equal(t, int64(0), h.balanceOf("gc1"))

		tx, err := h.svc.Void(ctx, VoidRequest{ID: "void-1", PendingTransactionID: "co-pending"})

		require.NoError(t, err)
		assert.Equal(t, entity.TypeVoid, tx.TransactionType)
		assert.Equal(t, int64(300), h.balanceOf("gc1"))
		assert.Equal(t, []string{"ch_1"}, h.proc.refunds)

		target, err := h.svc.GetTransaction(ctx, "co-pending")
		require.NoError(t, err)
		assert.False(t, target.IsPending())
		assert.Equal(t, "void-1", target.NextTransactionID)
	})

	t.Run("Void is allowed past the void date", func(t *testing.T) {
		h := newHarness()
		pendingCheckout(t, h)
		h.clock.advance(30 * 24 * time.Hour)

		_, err := h.svc.Void(ctx, VoidRequest{ID: "void-1", PendingTransactionID: "co-pending"})

		require.NoError(t, err)
		assert.Equal(t, int64(300), h.balanceOf("gc1"))
	})

	t.Run("Voiding after capture fails", func(t *testing.T) {
		h := newHarness()
		pendingCheckout(t, h)
		_, err := h.svc.Capture(ctx, CaptureRequest{ID: "cap-1", PendingTransactionID: "co-pending"})
		require.NoError(t, err)

		_, err = h.svc.Void(ctx, VoidRequest{ID: "void-1", PendingTransactionID: "co-pending"})

		assert.ErrorIs(t, err, errs.ErrTransactionNotPending)
		assert.Empty(t, h.proc.refunds)
	})

	t.Run("Void negates totals", func(t *testing.T) {
		h := newHarness()
		pendingCheckout(t, h)

		tx, err := h.svc.Void(ctx, VoidRequest{ID: "void-1", PendingTransactionID: "co-pending"})

		require.NoError(t, err)
		require.NotNil(t, tx.Totals)
		assert.Equal(t, int64(-1000), tx.Totals.Subtotal)
		assert.Equal(t, int64(-300), tx.Totals.PaidLightrail)
		assert.Equal(t, int64(-700), tx.Totals.PaidStripe)
	})
}
