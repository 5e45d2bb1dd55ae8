package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	ruleport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/rules"
)

// Evaluator implements the rule-evaluation contract with a small expression
// language: property paths into the context, number/string/bool literals,
// comparison, boolean and arithmetic operators. Evaluation is pure.
//
// Examples:
//
//	currentLineItem.productId == "socks-123"
//	currentLineItem.lineTotal.subtotal * 0.1
//	currentLineItem.quantity >= 2 && currentLineItem.type == "product"
type Evaluator struct{}

// New creates the evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Validate checks an expression parses without evaluating it.
func (e *Evaluator) Validate(expression string) error {
	_, err := parse(expression)
	return err
}

// EvaluateBool evaluates a redemption rule against the context.
func (e *Evaluator) EvaluateBool(expression string, ctx ruleport.Context) (bool, error) {
	node, err := parse(expression)
	if err != nil {
		return false, err
	}
	result := node.eval(map[string]any(ctx))
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression did not evaluate to a boolean", errs.ErrRuleSyntax)
	}
	return b, nil
}

// EvaluateNumber evaluates a balance rule against the context. Fractional
// results are truncated toward zero to whole minor units.
func (e *Evaluator) EvaluateNumber(expression string, ctx ruleport.Context) (int64, error) {
	node, err := parse(expression)
	if err != nil {
		return 0, err
	}
	result := node.eval(map[string]any(ctx))
	f, ok := toNumber(result)
	if !ok {
		return 0, fmt.Errorf("%w: expression did not evaluate to a number", errs.ErrRuleSyntax)
	}
	return int64(math.Trunc(f)), nil
}

// --- AST ---

type node interface {
	eval(ctx map[string]any) any
}

type literalNode struct{ value any }

func (n *literalNode) eval(map[string]any) any { return n.value }

type pathNode struct{ parts []string }

func (n *pathNode) eval(ctx map[string]any) any {
	var current any = ctx
	for _, part := range n.parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

type unaryNode struct {
	op      string
	operand node
}

func (n *unaryNode) eval(ctx map[string]any) any {
	v := n.operand.eval(ctx)
	switch n.op {
	case "!":
		b, _ := v.(bool)
		return !b
	case "-":
		if f, ok := toNumber(v); ok {
			return -f
		}
	}
	return nil
}

type binaryNode struct {
	op          string
	left, right node
}

func (n *binaryNode) eval(ctx map[string]any) any {
	// Short-circuit boolean operators.
	switch n.op {
	case "&&":
		if l, _ := n.left.eval(ctx).(bool); !l {
			return false
		}
		r, _ := n.right.eval(ctx).(bool)
		return r
	case "||":
		if l, _ := n.left.eval(ctx).(bool); l {
			return true
		}
		r, _ := n.right.eval(ctx).(bool)
		return r
	}

	l := n.left.eval(ctx)
	r := n.right.eval(ctx)

	switch n.op {
	case "==":
		return looseEqual(l, r)
	case "!=":
		return !looseEqual(l, r)
	}

	lf, lok := toNumber(l)
	rf, rok := toNumber(r)
	if !lok || !rok {
		// String comparison and concatenation.
		ls, lsok := l.(string)
		rs, rsok := r.(string)
		if lsok && rsok {
			switch n.op {
			case "+":
				return ls + rs
			case "<":
				return ls < rs
			case "<=":
				return ls <= rs
			case ">":
				return ls > rs
			case ">=":
				return ls >= rs
			}
		}
		return nil
	}

	switch n.op {
	case "+":
		return lf + rf
	case "-":
		return lf - rf
	case "*":
		return lf * rf
	case "/":
		if rf == 0 {
			return nil
		}
		return lf / rf
	case "%":
		if rf == 0 {
			return nil
		}
		return math.Mod(lf, rf)
	case "<":
		return lf < rf
	case "<=":
		return lf <= rf
	case ">":
		return lf > rf
	case ">=":
		return lf >= rf
	}
	return nil
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func looseEqual(l, r any) bool {
	if lf, ok := toNumber(l); ok {
		if rf, ok := toNumber(r); ok {
			return lf == rf
		}
		return false
	}
	return l == r
}

// --- parser ---

type parser struct {
	input string
	pos   int
}

func parse(expression string) (node, error) {
	p := &parser{input: expression}
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, p.errorf("empty expression")
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, p.errorf("unexpected %q", p.input[p.pos:])
	}
	return n, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &errs.RuleSyntaxError{
		Expression: p.input,
		Position:   p.pos,
		Detail:     fmt.Sprintf(format, args...),
	}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *parser) accept(op string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.input[p.pos:], op) {
		// Don't take "<" out of "<=" or "=" out of "==".
		rest := p.input[p.pos+len(op):]
		if (op == "<" || op == ">") && strings.HasPrefix(rest, "=") {
			return false
		}
		p.pos += len(op)
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.accept("&&") {
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if p.accept(op) {
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &binaryNode{op: op, left: left, right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept("+"):
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: "+", left: left, right: right}
		case p.accept("-"):
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: "-", left: left, right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept("*"):
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: "*", left: left, right: right}
		case p.accept("/"):
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: "/", left: left, right: right}
		case p.accept("%"):
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: "%", left: left, right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (node, error) {
	if p.accept("!") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: "!", operand: operand}, nil
	}
	if p.accept("-") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: "-", operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, p.errorf("unexpected end of expression")
	}

	c := p.input[p.pos]
	switch {
	case c == '(':
		p.pos++
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(")") {
			return nil, p.errorf("expected )")
		}
		return n, nil

	case c == '\'' || c == '"':
		return p.parseString(c)

	case c >= '0' && c <= '9':
		return p.parseNumber()

	case isIdentStart(c):
		return p.parsePath()
	}
	return nil, p.errorf("unexpected %q", string(c))
}

func (p *parser) parseString(quote byte) (node, error) {
	p.pos++
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != quote {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return nil, p.errorf("unterminated string")
	}
	s := p.input[start:p.pos]
	p.pos++
	return &literalNode{value: s}, nil
}

func (p *parser) parseNumber() (node, error) {
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	f, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return nil, p.errorf("invalid number %q", p.input[start:p.pos])
	}
	return &literalNode{value: f}, nil
}

func (p *parser) parsePath() (node, error) {
	var parts []string
	for {
		start := p.pos
		for p.pos < len(p.input) && isIdentPart(p.input[p.pos]) {
			p.pos++
		}
		if start == p.pos {
			return nil, p.errorf("expected identifier")
		}
		parts = append(parts, p.input[start:p.pos])
		if p.pos < len(p.input) && p.input[p.pos] == '.' {
			p.pos++
			continue
		}
		break
	}

	if len(parts) == 1 {
		switch parts[0] {
		case "true":
			return &literalNode{value: true}, nil
		case "false":
			return &literalNode{value: false}, nil
		case "null":
			return &literalNode{value: nil}, nil
		}
	}
	return &pathNode{parts: parts}, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
