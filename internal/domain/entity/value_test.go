package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func i64(v int64) *int64 { return &v }

func f64(v float64) *float64 { return &v }

func tp(t time.Time) *time.Time { return &t }

func TestNewValue(t *testing.T) {
	clock := fixedClock{now: testNow}

	t.Run("Creates a balance-tracked value", func(t *testing.T) {
		v, err := NewValue(
			ValueParams{ID: "gc1", Currency: "USD"},
			ValueOptions{Balance: i64(5000), Code: "SUPER-SECRET-CODE"},
			clock,
		)

		require.NoError(t, err)
		assert.Equal(t, int64(5000), *v.Balance)
		assert.True(t, v.Active)
		assert.Equal(t, testNow, v.CreatedAt)
		assert.Equal(t, HashCode("SUPER-SECRET-CODE"), v.CodeHashed)
		assert.Equal(t, "CODE", v.CodeLast4)
	})

	t.Run("Requires an id and currency", func(t *testing.T) {
		_, err := NewValue(ValueParams{Currency: "USD"}, ValueOptions{Balance: i64(100)}, clock)
		assert.ErrorIs(t, err, errs.ErrInvalidValueState)

		_, err = NewValue(ValueParams{ID: "gc1"}, ValueOptions{Balance: i64(100)}, clock)
		assert.ErrorIs(t, err, errs.ErrInvalidCurrency)
	})

	t.Run("Validation table", func(t *testing.T) {
		testCases := []struct {
			name string
			opts ValueOptions
			ok   bool
		}{
			{
				name: "balance and balanceRule are exclusive",
				opts: ValueOptions{Balance: i64(100), BalanceRule: &Rule{Expression: "500"}},
			},
			{
				name: "one of balance or balanceRule required",
				opts: ValueOptions{},
			},
			{
				name: "rule-valued without balance is fine",
				opts: ValueOptions{BalanceRule: &Rule{Expression: "500"}},
				ok:   true,
			},
			{
				name: "generic code with per-contact options needs no balance",
				opts: ValueOptions{IsGenericCode: true, GenericCodeOptions: &GenericCodeOptions{PerContactBalance: i64(500)}},
				ok:   true,
			},
			{
				name: "discountSellerLiability requires discount",
				opts: ValueOptions{Balance: i64(100), DiscountSellerLiability: f64(0.5)},
			},
			{
				name: "discountSellerLiability must be at most 1",
				opts: ValueOptions{Balance: i64(100), Discount: true, DiscountSellerLiability: f64(1.5)},
			},
			{
				name: "discountSellerLiability in range is fine",
				opts: ValueOptions{Balance: i64(100), Discount: true, DiscountSellerLiability: f64(0.5)},
				ok:   true,
			},
			{
				name: "generic code cannot belong to a contact",
				opts: ValueOptions{Balance: i64(100), IsGenericCode: true, ContactID: "c1"},
			},
			{
				name: "startDate after endDate",
				opts: ValueOptions{Balance: i64(100), StartDate: tp(testNow.Add(time.Hour)), EndDate: tp(testNow)},
			},
			{
				name: "ordered window is fine",
				opts: ValueOptions{Balance: i64(100), StartDate: tp(testNow), EndDate: tp(testNow.Add(time.Hour))},
				ok:   true,
			},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewValue(ValueParams{ID: "gc1", Currency: "USD"}, tc.opts, clock)
				if tc.ok {
					assert.NoError(t, err)
				} else {
					assert.ErrorIs(t, err, errs.ErrInvalidValueState)
				}
			})
		}
	})
}

func TestValueUsable(t *testing.T) {
	base := func() *Value {
		return &Value{ID: "gc1", Currency: "USD", Balance: i64(100), Active: true}
	}

	t.Run("Active value is usable", func(t *testing.T) {
		assert.NoError(t, base().Usable(testNow))
	})

	t.Run("Canceled", func(t *testing.T) {
		v := base()
		v.Canceled = true
		assert.ErrorIs(t, v.Usable(testNow), errs.ErrValueNotUsable)
	})

	t.Run("Frozen", func(t *testing.T) {
		v := base()
		v.Frozen = true
		assert.ErrorIs(t, v.Usable(testNow), errs.ErrValueNotUsable)
	})

	t.Run("Inactive", func(t *testing.T) {
		v := base()
		v.Active = false
		assert.ErrorIs(t, v.Usable(testNow), errs.ErrValueNotUsable)
	})

	t.Run("Before startDate", func(t *testing.T) {
		v := base()
		v.StartDate = tp(testNow.Add(time.Hour))
		assert.ErrorIs(t, v.Usable(testNow), errs.ErrValueNotUsable)
		assert.NoError(t, v.Usable(testNow.Add(2*time.Hour)))
	})

	t.Run("After endDate", func(t *testing.T) {
		v := base()
		v.EndDate = tp(testNow.Add(-time.Hour))
		assert.ErrorIs(t, v.Usable(testNow), errs.ErrValueNotUsable)
	})
}

func TestBalanceOrZero(t *testing.T) {
	assert.Equal(t, int64(250), (&Value{Balance: i64(250)}).BalanceOrZero())
	assert.Equal(t, int64(0), (&Value{}).BalanceOrZero())
}
