package processor

import "context"

// ChargeRequest describes a charge against the external card processor.
type ChargeRequest struct {
	Amount         int64
	Currency       string
	Source         string
	CustomerID     string
	Capture        bool
	IdempotencyKey string
}

// ChargeResult is the processor's handle for a landed charge.
type ChargeResult struct {
	ChargeID string
	Amount   int64
	Captured bool
}

// CaptureResult reports a captured authorization.
type CaptureResult struct {
	ChargeID string
	Amount   int64
}

// RefundResult reports a completed refund.
type RefundResult struct {
	RefundID string
	ChargeID string
	Amount   int64
}

// Processor is the card-processor collaborator. Calls are not transactional
// with the database; a failure after a successful Charge is compensated by
// Refund, never by rollback. All errors are non-replanable.
type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Capture(ctx context.Context, chargeID string, amount int64) (*CaptureResult, error)
	Refund(ctx context.Context, chargeID, reason string) (*RefundResult, error)
}
