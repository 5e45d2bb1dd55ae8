package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

func TestCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("Increases balance", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(100)})

		tx, err := h.svc.Credit(ctx, CreditRequest{
			ID:          "cr-1",
			Currency:    "USD",
			Destination: PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:      250,
		})

		require.NoError(t, err)
		assert.Equal(t, entity.TypeCredit, tx.TransactionType)
		steps := entity.LightrailSteps(tx.Steps)
		require.Len(t, steps, 1)
		assert.Equal(t, int64(250), steps[0].Amount)
		assert.Equal(t, int64(100), *steps[0].BalanceBefore)
		assert.Equal(t, int64(350), *steps[0].BalanceAfter)
		assert.Equal(t, int64(350), h.balanceOf("gc1"))
	})

	t.Run("Increases uses", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(100), UsesRemaining: int64p(1)})

		_, err := h.svc.Credit(ctx, CreditRequest{
			ID:          "cr-2",
			Currency:    "USD",
			Destination: PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Uses:        3,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(4), *h.uow.values.values["gc1"].UsesRemaining)
	})

	t.Run("Rejects negative and empty amounts", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(100)})
		dest := PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"}

		_, err := h.svc.Credit(ctx, CreditRequest{ID: "cr-3", Currency: "USD", Destination: dest, Amount: -10})
		assert.ErrorIs(t, err, errs.ErrInvalidValueState)

		_, err = h.svc.Credit(ctx, CreditRequest{ID: "cr-4", Currency: "USD", Destination: dest})
		assert.ErrorIs(t, err, errs.ErrInvalidValueState)
	})

	t.Run("Rejects amount on a rule-valued destination", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "ruled", BalanceRule: &entity.Rule{Expression: "500"}})

		_, err := h.svc.Credit(ctx, CreditRequest{
			ID:          "cr-5",
			Currency:    "USD",
			Destination: PaymentSource{Rail: entity.RailLightrail, ValueID: "ruled"},
			Amount:      100,
		})

		assert.ErrorIs(t, err, errs.ErrInvalidValueState)
	})

	t.Run("Rejects currency mismatch", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Currency: "CAD", Balance: int64p(100)})

		_, err := h.svc.Credit(ctx, CreditRequest{
			ID:          "cr-6",
			Currency:    "USD",
			Destination: PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:      100,
		})

		assert.ErrorIs(t, err, errs.ErrInvalidCurrency)
	})
}

func TestDebit(t *testing.T) {
	ctx := context.Background()

	t.Run("Draws down the balance", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(1000)})

		tx, err := h.svc.Debit(ctx, DebitRequest{
			ID:       "de-1",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:   400,
		})

		require.NoError(t, err)
		steps := entity.LightrailSteps(tx.Steps)
		require.Len(t, steps, 1)
		assert.Equal(t, int64(-400), steps[0].Amount)
		assert.Equal(t, int64(600), h.balanceOf("gc1"))
	})

	t.Run("Resolves the source by code", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{
			ID:         "gc1",
			Balance:    int64p(1000),
			CodeHashed: entity.HashCode("GIFT-CODE-XYZ"),
		})

		_, err := h.svc.Debit(ctx, DebitRequest{
			ID:       "de-2",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, Code: "GIFT-CODE-XYZ"},
			Amount:   100,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(900), h.balanceOf("gc1"))
	})

	t.Run("Insufficient balance fails without allowRemainder", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(300)})

		_, err := h.svc.Debit(ctx, DebitRequest{
			ID:       "de-3",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:   400,
		})

		assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
		var insufficientErr *errs.InsufficientBalanceError
		require.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, "gc1", insufficientErr.ValueID)
		assert.Equal(t, int64(300), insufficientErr.CurrentBalance)
		assert.Equal(t, int64(300), h.balanceOf("gc1"))
	})

	t.Run("AllowRemainder caps the draw at the balance", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(300)})

		tx, err := h.svc.Debit(ctx, DebitRequest{
			ID:             "de-4",
			Currency:       "USD",
			Source:         PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:         400,
			AllowRemainder: true,
		})

		require.NoError(t, err)
		steps := entity.LightrailSteps(tx.Steps)
		require.Len(t, steps, 1)
		assert.Equal(t, int64(-300), steps[0].Amount)
		assert.Equal(t, int64(0), h.balanceOf("gc1"))
	})

	t.Run("Insufficient uses fails", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(1000), UsesRemaining: int64p(1)})

		_, err := h.svc.Debit(ctx, DebitRequest{
			ID:       "de-5",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Uses:     2,
		})

		assert.ErrorIs(t, err, errs.ErrInsufficientUsesRemaining)
	})

	t.Run("Frozen source is rejected", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(1000), Frozen: true})

		_, err := h.svc.Debit(ctx, DebitRequest{
			ID:       "de-6",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:   100,
		})

		assert.ErrorIs(t, err, errs.ErrValueNotUsable)
	})

	t.Run("Simulation touches nothing", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(1000)})

		tx, err := h.svc.Debit(ctx, DebitRequest{
			ID:       "de-7",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:   400,
			Simulate: true,
		})

		require.NoError(t, err)
		assert.True(t, tx.Simulated)
		assert.Equal(t, int64(1000), h.balanceOf("gc1"))
		exists, _ := h.uow.txs.Exists(ctx, "de-7")
		assert.False(t, exists)
	})
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("Moves balance between values", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "src", Balance: int64p(1000)})
		h.seedValue(&entity.Value{ID: "dst", Balance: int64p(0)})

		tx, err := h.svc.Transfer(ctx, TransferRequest{
			ID:          "tr-1",
			Currency:    "USD",
			Source:      PaymentSource{Rail: entity.RailLightrail, ValueID: "src"},
			Destination: PaymentSource{Rail: entity.RailLightrail, ValueID: "dst"},
			Amount:      600,
		})

		require.NoError(t, err)
		steps := entity.LightrailSteps(tx.Steps)
		require.Len(t, steps, 2)
		assert.Equal(t, int64(-600), steps[0].Amount)
		assert.Equal(t, int64(600), steps[1].Amount)
		assert.Equal(t, int64(400), h.balanceOf("src"))
		assert.Equal(t, int64(600), h.balanceOf("dst"))
	})

	t.Run("AllowRemainder transfers what the source has", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "src", Balance: int64p(250)})
		h.seedValue(&entity.Value{ID: "dst", Balance: int64p(0)})

		_, err := h.svc.Transfer(ctx, TransferRequest{
			ID:             "tr-2",
			Currency:       "USD",
			Source:         PaymentSource{Rail: entity.RailLightrail, ValueID: "src"},
			Destination:    PaymentSource{Rail: entity.RailLightrail, ValueID: "dst"},
			Amount:         600,
			AllowRemainder: true,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(0), h.balanceOf("src"))
		assert.Equal(t, int64(250), h.balanceOf("dst"))
	})

	t.Run("Stripe source charges the processor", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "dst", Balance: int64p(100)})

		tx, err := h.svc.Transfer(ctx, TransferRequest{
			ID:          "tr-3",
			Currency:    "USD",
			Source:      PaymentSource{Rail: entity.RailStripe, Source: "tok_visa"},
			Destination: PaymentSource{Rail: entity.RailLightrail, ValueID: "dst"},
			Amount:      500,
		})

		require.NoError(t, err)
		require.Len(t, h.proc.charges, 1)
		assert.Equal(t, int64(500), h.proc.charges[0].Amount)
		assert.Equal(t, int64(600), h.balanceOf("dst"))

		stripeSteps := entity.StripeSteps(tx.Steps)
		require.Len(t, stripeSteps, 1)
		assert.Equal(t, entity.ChargeTypeCharge, stripeSteps[0].Type)
	})

	t.Run("Rejects non-positive amounts", func(t *testing.T) {
		h := newHarness()

		_, err := h.svc.Transfer(ctx, TransferRequest{
			ID:          "tr-4",
			Currency:    "USD",
			Source:      PaymentSource{Rail: entity.RailLightrail, ValueID: "src"},
			Destination: PaymentSource{Rail: entity.RailLightrail, ValueID: "dst"},
			Amount:      0,
		})

		assert.ErrorIs(t, err, errs.ErrInvalidValueState)
	})
}
