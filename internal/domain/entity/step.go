package entity

// Rail identifies the payment/funding mechanism a step executes against.
type Rail string

// Rails
const (
	RailLightrail Rail = "lightrail"
	RailStripe    Rail = "stripe"
	RailInternal  Rail = "internal"
)

// StepAction distinguishes ledger steps that mutate an existing Value from
// steps that create one (generic-code attach).
type StepAction string

// Lightrail step actions
const (
	ActionUpdate StepAction = "update"
	ActionInsert StepAction = "insert"
)

// ChargeType identifies the processor operation of a stripe step.
type ChargeType string

// Stripe step types
const (
	ChargeTypeCharge  ChargeType = "charge"
	ChargeTypeCapture ChargeType = "capture"
	ChargeTypeRefund  ChargeType = "refund"
)

// Step is one rail-specific mutation within a Transaction. It is a closed
// sum over LightrailStep, StripeStep and InternalStep; the executor switches
// exhaustively over these three.
type Step interface {
	Rail() Rail
	step()
}

// LightrailStep is a balance and/or uses delta against one Value.
type LightrailStep struct {
	ValueID string
	Action  StepAction

	// Deltas, signed. Draws are negative.
	Amount int64
	Uses   int64

	// Before-state recorded at planning time. The executor compares these to
	// the locked row to detect concurrent writers, then asserts sufficiency.
	BalanceBefore *int64
	UsesBefore    *int64
	BalanceAfter  *int64
	UsesAfter     *int64

	// Guards for administrative flows that may touch terminal Values.
	AllowCanceled bool
	AllowFrozen   bool

	// DiscountStep marks draws against discount Values so totals can split
	// discount from tender without re-reading the Value.
	DiscountStep bool

	// NewValue carries the full Value row for Action == ActionInsert.
	NewValue *Value
}

// Rail implements Step
func (s *LightrailStep) Rail() Rail { return RailLightrail }
func (s *LightrailStep) step()      {}

// StripeStep is a call against the external card processor. The executor
// records what landed (ChargeID for charges, RefundID for refunds, Captured
// for captures) so the driver knows what to compensate on a later failure.
type StripeStep struct {
	Type          ChargeType
	Source        string
	CustomerID    string
	ChargeID      string
	RefundID      string
	Captured      bool
	Amount        int64
	PendingAmount int64
}

// Rail implements Step
func (s *StripeStep) Rail() Rail { return RailStripe }
func (s *StripeStep) step()      {}

// InternalStep is a draw against an unbacked balance that exists only within
// the Transaction record; nothing is persisted outside the step row itself.
type InternalStep struct {
	InternalID      string
	Balance         int64
	Amount          int64
	Pretax          bool
	BeforeLightrail bool
}

// Rail implements Step
func (s *InternalStep) Rail() Rail { return RailInternal }
func (s *InternalStep) step()      {}

// LightrailSteps filters the steps of a plan or transaction to the ledger rail.
func LightrailSteps(steps []Step) []*LightrailStep {
	var out []*LightrailStep
	for _, s := range steps {
		if ls, ok := s.(*LightrailStep); ok {
			out = append(out, ls)
		}
	}
	return out
}

// StripeSteps filters the steps of a plan or transaction to the processor rail.
func StripeSteps(steps []Step) []*StripeStep {
	var out []*StripeStep
	for _, s := range steps {
		if ss, ok := s.(*StripeStep); ok {
			out = append(out, ss)
		}
	}
	return out
}

// InternalSteps filters the steps of a plan or transaction to the internal rail.
func InternalSteps(steps []Step) []*InternalStep {
	var out []*InternalStep
	for _, s := range steps {
		if is, ok := s.(*InternalStep); ok {
			out = append(out, is)
		}
	}
	return out
}
