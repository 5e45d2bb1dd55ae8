package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

func TestExecutorStaleDetection(t *testing.T) {
	ctx := context.Background()

	t.Run("Balance moved since planning", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(1000)})

		plan, err := h.svc.builder.BuildDebit(ctx, DebitRequest{
			ID:       "de-1",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:   400,
		})
		require.NoError(t, err)

		// A concurrent writer commits between planning and execution.
		h.uow.values.values["gc1"].Balance = int64p(900)

		_, err = h.svc.executor.Execute(ctx, plan, ExecuteOptions{})

		assert.True(t, errs.IsReplanable(err))
		assert.Equal(t, int64(900), h.balanceOf("gc1"))
		assert.Equal(t, 1, h.uow.rollbacks)
	})

	t.Run("Uses moved since planning", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(1000), UsesRemaining: int64p(5)})

		plan, err := h.svc.builder.BuildDebit(ctx, DebitRequest{
			ID:       "de-1",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:   100,
			Uses:     1,
		})
		require.NoError(t, err)

		h.uow.values.values["gc1"].UsesRemaining = int64p(4)

		_, err = h.svc.executor.Execute(ctx, plan, ExecuteOptions{})

		assert.True(t, errs.IsReplanable(err))
	})

	t.Run("Unchanged but insufficient fails hard", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(300)})

		// A plan whose before-state matches the row but whose delta would
		// take the balance negative must fail as insufficient, not stale.
		plan := &TransactionPlan{
			ID:              "de-1",
			TransactionType: entity.TypeDebit,
			Currency:        "USD",
			Steps: []entity.Step{&entity.LightrailStep{
				ValueID:       "gc1",
				Action:        entity.ActionUpdate,
				Amount:        -400,
				BalanceBefore: int64p(300),
			}},
		}

		_, err := h.svc.executor.Execute(ctx, plan, ExecuteOptions{})

		assert.False(t, errs.IsReplanable(err))
		assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
		assert.Equal(t, int64(300), h.balanceOf("gc1"))
	})

	t.Run("Value frozen since planning fails hard", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(1000)})

		plan, err := h.svc.builder.BuildDebit(ctx, DebitRequest{
			ID:       "de-1",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:   400,
		})
		require.NoError(t, err)

		h.uow.values.values["gc1"].Frozen = true

		_, err = h.svc.executor.Execute(ctx, plan, ExecuteOptions{})

		assert.ErrorIs(t, err, errs.ErrValueNotUsable)
		assert.False(t, errs.IsReplanable(err))
	})
}

func TestExecutorSimulate(t *testing.T) {
	ctx := context.Background()

	t.Run("Writes nothing and calls no processor", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(300)})

		tx, err := h.svc.Checkout(ctx, CheckoutRequest{
			ID:        "co-sim",
			Currency:  "USD",
			LineItems: []*entity.LineItem{{UnitPrice: 1000, Quantity: 1}},
			Sources: []PaymentSource{
				{Rail: entity.RailLightrail, ValueID: "gc1"},
				{Rail: entity.RailStripe, Source: "tok_visa"},
			},
			Simulate: true,
		})

		require.NoError(t, err)
		assert.True(t, tx.Simulated)
		assert.Equal(t, int64(300), tx.Totals.PaidLightrail)
		assert.Equal(t, int64(700), tx.Totals.PaidStripe)

		assert.Empty(t, h.proc.charges)
		assert.Equal(t, int64(300), h.balanceOf("gc1"))
		exists, _ := h.uow.txs.Exists(ctx, "co-sim")
		assert.False(t, exists)
		assert.Equal(t, 0, h.uow.commits)
	})

	t.Run("Simulating an existing id conflicts", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(1000)})
		req := DebitRequest{
			ID:       "de-1",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:   100,
		}
		_, err := h.svc.Debit(ctx, req)
		require.NoError(t, err)

		req.Simulate = true
		_, err = h.svc.Debit(ctx, req)

		assert.ErrorIs(t, err, errs.ErrTransactionExists)
	})

	t.Run("Simulated insufficiency reports the typed error", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(1000)})

		plan, err := h.svc.builder.BuildDebit(ctx, DebitRequest{
			ID:       "de-1",
			Currency: "USD",
			Source:   PaymentSource{Rail: entity.RailLightrail, ValueID: "gc1"},
			Amount:   800,
		})
		require.NoError(t, err)

		// Committed state moves below the plan's draw before the simulation.
		h.uow.values.values["gc1"].Balance = int64p(500)

		_, err = h.svc.executor.Execute(ctx, plan, ExecuteOptions{Simulate: true})

		assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
	})
}

func TestExecutorWriteOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Database failure after a charge leaves the charge recorded on the step", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(300)})

		plan, err := h.svc.builder.BuildCheckout(ctx, CheckoutRequest{
			ID:        "co-1",
			Currency:  "USD",
			LineItems: []*entity.LineItem{{UnitPrice: 1000, Quantity: 1}},
			Sources: []PaymentSource{
				{Rail: entity.RailLightrail, ValueID: "gc1"},
				{Rail: entity.RailStripe, Source: "tok_visa"},
			},
		})
		require.NoError(t, err)

		// Another writer drains the card between planning and execution.
		h.uow.values.values["gc1"].Balance = int64p(0)

		_, err = h.svc.executor.Execute(ctx, plan, ExecuteOptions{})

		assert.True(t, errs.IsReplanable(err))
		// The ledger rolled back, but the processor call landed and is
		// visible to the driver for compensation.
		stripeSteps := entity.StripeSteps(plan.Steps)
		require.Len(t, stripeSteps, 1)
		assert.Equal(t, "ch_1", stripeSteps[0].ChargeID)
		exists, _ := h.uow.txs.Exists(ctx, "co-1")
		assert.False(t, exists)
	})

	t.Run("Remainder without consent fails before any write", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(300)})

		plan, err := h.svc.builder.BuildCheckout(ctx, CheckoutRequest{
			ID:             "co-1",
			Currency:       "USD",
			LineItems:      []*entity.LineItem{{UnitPrice: 1000, Quantity: 1}},
			Sources:        []PaymentSource{{Rail: entity.RailLightrail, ValueID: "gc1"}},
			AllowRemainder: true,
		})
		require.NoError(t, err)

		_, err = h.svc.executor.Execute(ctx, plan, ExecuteOptions{})

		assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
		assert.Equal(t, 0, h.uow.commits)
		assert.Equal(t, 0, h.uow.rollbacks)
	})
}
