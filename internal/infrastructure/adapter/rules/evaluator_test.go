package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	ruleport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/rules"
)

func lineItemCtx() ruleport.Context {
	return ruleport.Context{
		"currentLineItem": map[string]any{
			"type":      "product",
			"productId": "socks-123",
			"unitPrice": int64(500),
			"quantity":  int64(2),
			"lineTotal": map[string]any{
				"subtotal": int64(1000),
				"taxable":  int64(1000),
			},
		},
	}
}

func TestEvaluatorValidate(t *testing.T) {
	e := New()

	t.Run("Accepts well-formed expressions", func(t *testing.T) {
		for _, expr := range []string{
			"true",
			"1 + 2 * 3",
			"currentLineItem.productId == 'socks-123'",
			"currentLineItem.quantity >= 2 && currentLineItem.type == \"product\"",
			"(currentLineItem.lineTotal.subtotal + 50) / 2",
			"!false || 1 < 2",
			"-5 + 10",
		} {
			assert.NoError(t, e.Validate(expr), expr)
		}
	})

	t.Run("Rejects malformed expressions with a position", func(t *testing.T) {
		testCases := []struct {
			expr string
		}{
			{""},
			{"   "},
			{"1 +"},
			{"(1 + 2"},
			{"'unterminated"},
			{"1 2"},
			{"&& true"},
			{"a.b =="},
		}

		for _, tc := range testCases {
			err := e.Validate(tc.expr)
			require.Error(t, err, tc.expr)
			assert.ErrorIs(t, err, errs.ErrRuleSyntax, tc.expr)

			var syntaxErr *errs.RuleSyntaxError
			require.ErrorAs(t, err, &syntaxErr, tc.expr)
			assert.Equal(t, tc.expr, syntaxErr.Expression)
			assert.LessOrEqual(t, syntaxErr.Position, len(tc.expr))
		}
	})
}

func TestEvaluateBool(t *testing.T) {
	e := New()

	testCases := []struct {
		expr string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"!true", false},
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 4", false},
		{"1 == 1.0", true},
		{"1 != 2", true},
		{"'a' < 'b'", true},
		{"currentLineItem.productId == 'socks-123'", true},
		{"currentLineItem.productId == 'hat-9'", false},
		{"currentLineItem.quantity >= 2 && currentLineItem.type == 'product'", true},
		{"currentLineItem.quantity > 5 || currentLineItem.type == 'product'", true},
		{"currentLineItem.missing == null", true},
		{"currentLineItem.lineTotal.subtotal % 2 == 0", true},
	}

	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := e.EvaluateBool(tc.expr, lineItemCtx())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("Non-boolean result is an error", func(t *testing.T) {
		_, err := e.EvaluateBool("1 + 2", lineItemCtx())
		assert.ErrorIs(t, err, errs.ErrRuleSyntax)
	})

	t.Run("Short-circuit skips the right side", func(t *testing.T) {
		// The right side would be nil (not a bool), but it is never reached.
		got, err := e.EvaluateBool("false && currentLineItem.missing", lineItemCtx())
		require.NoError(t, err)
		assert.False(t, got)

		got, err = e.EvaluateBool("true || currentLineItem.missing", lineItemCtx())
		require.NoError(t, err)
		assert.True(t, got)
	})
}

func TestEvaluateNumber(t *testing.T) {
	e := New()

	testCases := []struct {
		expr string
		want int64
	}{
		{"500", 500},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"-5 + 10", 5},
		{"currentLineItem.lineTotal.subtotal / 2", 500},
		{"currentLineItem.lineTotal.subtotal * 0.1", 100},
		{"currentLineItem.unitPrice * currentLineItem.quantity", 1000},
		// Fractional results truncate toward zero.
		{"999 * 0.5", 499},
		{"7 / 2", 3},
		{"10 % 3", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := e.EvaluateNumber(tc.expr, lineItemCtx())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("Non-numeric result is an error", func(t *testing.T) {
		_, err := e.EvaluateNumber("'socks'", lineItemCtx())
		assert.ErrorIs(t, err, errs.ErrRuleSyntax)
	})

	t.Run("Division by zero is not a number", func(t *testing.T) {
		_, err := e.EvaluateNumber("10 / 0", lineItemCtx())
		assert.ErrorIs(t, err, errs.ErrRuleSyntax)

		_, err = e.EvaluateNumber("10 % 0", lineItemCtx())
		assert.ErrorIs(t, err, errs.ErrRuleSyntax)
	})

	t.Run("Missing path is not a number", func(t *testing.T) {
		_, err := e.EvaluateNumber("currentLineItem.missing", lineItemCtx())
		assert.ErrorIs(t, err, errs.ErrRuleSyntax)
	})
}

func TestStringConcatenation(t *testing.T) {
	e := New()

	got, err := e.EvaluateBool("'socks-' + '123' == currentLineItem.productId", lineItemCtx())
	require.NoError(t, err)
	assert.True(t, got)
}
