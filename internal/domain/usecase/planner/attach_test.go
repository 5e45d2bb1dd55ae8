package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

func TestAttach(t *testing.T) {
	ctx := context.Background()

	seedGeneric := func(h *harness) {
		h.seedValue(&entity.Value{
			ID:            "promo-generic",
			IsGenericCode: true,
			CodeHashed:    entity.HashCode("SPRING-PROMO"),
			Balance:       int64p(10000),
			GenericCodeOptions: &entity.GenericCodeOptions{
				PerContactBalance: int64p(500),
			},
		})
	}

	t.Run("Creates a per-contact value funded from the pool", func(t *testing.T) {
		h := newHarness()
		seedGeneric(h)

		attached, tx, err := h.svc.Attach(ctx, AttachRequest{ContactID: "c1", ValueID: "promo-generic"})

		require.NoError(t, err)
		expectedID := entity.AttachedValueID("promo-generic", "c1")
		assert.Equal(t, expectedID, attached.ID)
		assert.Equal(t, "c1", attached.ContactID)
		assert.Equal(t, "promo-generic", attached.AttachedFromValueID)
		assert.Equal(t, int64(500), *attached.Balance)
		assert.False(t, attached.IsGenericCode)

		assert.Equal(t, entity.TypeAttach, tx.TransactionType)
		assert.Equal(t, "attach-"+expectedID, tx.ID)

		// The grant is carved out of the generic value's pool.
		assert.Equal(t, int64(9500), h.balanceOf("promo-generic"))
		assert.Equal(t, int64(500), h.balanceOf(expectedID))

		steps := entity.LightrailSteps(tx.Steps)
		require.Len(t, steps, 2)
		assert.Equal(t, entity.ActionUpdate, steps[0].Action)
		assert.Equal(t, int64(-500), steps[0].Amount)
		assert.Equal(t, entity.ActionInsert, steps[1].Action)
	})

	t.Run("Resolves the generic value by code", func(t *testing.T) {
		h := newHarness()
		seedGeneric(h)

		attached, _, err := h.svc.Attach(ctx, AttachRequest{ContactID: "c1", Code: "SPRING-PROMO"})

		require.NoError(t, err)
		assert.Equal(t, entity.AttachedValueID("promo-generic", "c1"), attached.ID)
	})

	t.Run("Second attach for the same contact conflicts", func(t *testing.T) {
		h := newHarness()
		seedGeneric(h)

		_, _, err := h.svc.Attach(ctx, AttachRequest{ContactID: "c1", ValueID: "promo-generic"})
		require.NoError(t, err)

		_, _, err = h.svc.Attach(ctx, AttachRequest{ContactID: "c1", ValueID: "promo-generic"})
		assert.ErrorIs(t, err, errs.ErrValueAlreadyAttached)

		// No double grant.
		assert.Equal(t, int64(9500), h.balanceOf("promo-generic"))
	})

	t.Run("Different contacts each get a grant", func(t *testing.T) {
		h := newHarness()
		seedGeneric(h)

		a1, _, err := h.svc.Attach(ctx, AttachRequest{ContactID: "c1", ValueID: "promo-generic"})
		require.NoError(t, err)
		a2, _, err := h.svc.Attach(ctx, AttachRequest{ContactID: "c2", ValueID: "promo-generic"})
		require.NoError(t, err)

		assert.NotEqual(t, a1.ID, a2.ID)
		assert.Equal(t, int64(9000), h.balanceOf("promo-generic"))
	})

	t.Run("Rule-valued generic attaches without a debit step", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{
			ID:                 "rule-generic",
			IsGenericCode:      true,
			BalanceRule:        &entity.Rule{Expression: "currentLineItem.lineTotal.subtotal / 10"},
			GenericCodeOptions: &entity.GenericCodeOptions{},
		})

		attached, tx, err := h.svc.Attach(ctx, AttachRequest{ContactID: "c1", ValueID: "rule-generic"})

		require.NoError(t, err)
		assert.Nil(t, attached.Balance)
		require.NotNil(t, attached.BalanceRule)
		steps := entity.LightrailSteps(tx.Steps)
		require.Len(t, steps, 1)
		assert.Equal(t, entity.ActionInsert, steps[0].Action)
	})

	t.Run("Attaching a non-generic value fails", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{ID: "gc1", Balance: int64p(100)})

		_, _, err := h.svc.Attach(ctx, AttachRequest{ContactID: "c1", ValueID: "gc1"})

		assert.ErrorIs(t, err, errs.ErrInvalidValueState)
	})

	t.Run("Exhausted pool fails the attach", func(t *testing.T) {
		h := newHarness()
		h.seedValue(&entity.Value{
			ID:            "small-pool",
			IsGenericCode: true,
			Balance:       int64p(300),
			GenericCodeOptions: &entity.GenericCodeOptions{
				PerContactBalance: int64p(500),
			},
		})

		_, _, err := h.svc.Attach(ctx, AttachRequest{ContactID: "c1", ValueID: "small-pool"})

		assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
	})

	t.Run("Attach requires a contact", func(t *testing.T) {
		h := newHarness()
		seedGeneric(h)

		_, _, err := h.svc.Attach(ctx, AttachRequest{ValueID: "promo-generic"})

		assert.ErrorIs(t, err, errs.ErrInvalidValueState)
	})

	t.Run("Checkout auto-attaches a generic code for a contact", func(t *testing.T) {
		h := newHarness()
		seedGeneric(h)
		h.seedValue(&entity.Value{ID: "contact-card", ContactID: "c1", Balance: int64p(600)})

		tx, err := h.svc.Checkout(ctx, CheckoutRequest{
			ID:        "co-att-1",
			Currency:  "USD",
			LineItems: []*entity.LineItem{{UnitPrice: 1000, Quantity: 1}},
			Sources: []PaymentSource{
				{Rail: entity.RailLightrail, ContactID: "c1"},
				{Rail: entity.RailLightrail, Code: "SPRING-PROMO"},
			},
		})

		require.NoError(t, err)
		attachedID := entity.AttachedValueID("promo-generic", "c1")
		assert.Equal(t, int64(9500), h.balanceOf("promo-generic"))

		// The checkout draws from the attached value, not the generic pool:
		// the contact's card covers 600 and the attached grant the rest.
		var drawnFromAttached bool
		for _, s := range entity.LightrailSteps(tx.Steps) {
			if s.ValueID == attachedID {
				drawnFromAttached = true
				assert.Equal(t, int64(-400), s.Amount)
			}
		}
		assert.True(t, drawnFromAttached)
		assert.Equal(t, int64(100), h.balanceOf(attachedID))
		assert.Equal(t, int64(0), h.balanceOf("contact-card"))
	})

	t.Run("Auto-attach plans from the stored pool, not the caller's snapshot", func(t *testing.T) {
		h := newHarness()
		seedGeneric(h)

		// A snapshot whose balance has since moved; each plan attempt must
		// re-read the row so the debit step matches committed state.
		stale := &entity.Value{
			ID:            "promo-generic",
			Currency:      "USD",
			Active:        true,
			IsGenericCode: true,
			Balance:       int64p(99999),
			GenericCodeOptions: &entity.GenericCodeOptions{
				PerContactBalance: int64p(500),
			},
		}

		attached, err := h.svc.ensureAttached(ctx, stale, "c1", "")

		require.NoError(t, err)
		assert.Equal(t, int64(500), *attached.Balance)
		assert.Equal(t, int64(9500), h.balanceOf("promo-generic"))
	})
}
