package entity

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// Code handling. Full codes are secrets: they are stored hashed, displayed
// as a last-4 suffix and never logged.

// HashCode returns the stored form of a redeemable code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// CodeLast4 returns the displayable suffix of a code.
func CodeLast4(code string) string {
	if len(code) <= 4 {
		return code
	}
	return code[len(code)-4:]
}

// FormatCodeLast4 renders the suffix the way the API displays it.
func FormatCodeLast4(last4 string) string {
	if last4 == "" {
		return ""
	}
	return "…" + last4
}

// AttachedValueID derives the id of the per-contact Value created by
// attaching a generic code to a contact. The derivation is the concurrency
// mechanism for attach: two concurrent attaches compute the same id and the
// second insert collides on the Value id unique constraint instead of
// double-granting. The hash and encoding are a durable format; changing
// either would let contacts attach previously blocked codes a second time.
func AttachedValueID(genericValueID, contactID string) string {
	sum := sha1.Sum([]byte(genericValueID + "/" + contactID))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
