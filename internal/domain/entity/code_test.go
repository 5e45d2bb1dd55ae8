package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashCode(t *testing.T) {
	t.Run("Is deterministic", func(t *testing.T) {
		assert.Equal(t, HashCode("GIFT-123"), HashCode("GIFT-123"))
	})

	t.Run("Distinct codes hash differently", func(t *testing.T) {
		assert.NotEqual(t, HashCode("GIFT-123"), HashCode("GIFT-124"))
	})

	t.Run("Does not contain the code", func(t *testing.T) {
		hashed := HashCode("SUPER-SECRET")
		assert.Len(t, hashed, 64)
		assert.NotContains(t, hashed, "SECRET")
	})
}

func TestCodeLast4(t *testing.T) {
	assert.Equal(t, "2345", CodeLast4("GIFT-12345"))
	assert.Equal(t, "AB", CodeLast4("AB"))
	assert.Equal(t, "ABCD", CodeLast4("ABCD"))
}

func TestFormatCodeLast4(t *testing.T) {
	assert.Equal(t, "…2345", FormatCodeLast4("2345"))
	assert.Equal(t, "", FormatCodeLast4(""))
}

func TestAttachedValueID(t *testing.T) {
	t.Run("Is deterministic", func(t *testing.T) {
		assert.Equal(t,
			AttachedValueID("promo-1", "contact-1"),
			AttachedValueID("promo-1", "contact-1"))
	})

	t.Run("Differs per contact and per value", func(t *testing.T) {
		base := AttachedValueID("promo-1", "contact-1")
		assert.NotEqual(t, base, AttachedValueID("promo-1", "contact-2"))
		assert.NotEqual(t, base, AttachedValueID("promo-2", "contact-1"))
	})

	t.Run("Is url-safe without padding", func(t *testing.T) {
		id := AttachedValueID("promo-1", "contact-1")
		assert.Len(t, id, 27)
		assert.NotContains(t, id, "=")
		assert.NotContains(t, id, "/")
		assert.NotContains(t, id, "+")
	})
}
