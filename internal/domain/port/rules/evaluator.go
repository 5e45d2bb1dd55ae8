package rules

// Context is the data a rule expression is evaluated against. For checkout
// eligibility it carries the current line item and running totals.
type Context map[string]any

// Evaluator evaluates rule expressions bound to Values. Evaluation is pure:
// no I/O, no state. Malformed expressions are rejected eagerly by Validate
// at Value create/update time, so Evaluate* on a stored rule only fails on
// type mismatches.
type Evaluator interface {
	// Validate checks an expression parses. Returns a RuleSyntaxError otherwise.
	Validate(expression string) error

	// EvaluateBool evaluates a redemption rule. Non-boolean results are an error.
	EvaluateBool(expression string, ctx Context) (bool, error)

	// EvaluateNumber evaluates a balance rule to minor currency units.
	// Non-numeric results are an error; fractional results are truncated.
	EvaluateNumber(expression string, ctx Context) (int64, error)
}
