package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/competitiveedge/engine/internal/domain"
)

// Formula size limits. Evaluation recurses once per node, so both bound stack use.
const (
	maxFormulaLength = 1024
	maxFormulaDepth  = 64
)

// FormulaError reports a formula that could not be parsed or evaluated
type FormulaError struct {
	Formula string
	Reason  string
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("formula %q: %s", e.Formula, e.Reason)
}

// Formula is a compiled arithmetic expression over field names.
//
// Grammar:
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = ("+" | "-") factor | number | identifier | "(" expr ")"
type Formula struct {
	source      string
	root        formulaNode
	identifiers []string
}

// CompileFormula parses formula without evaluating it
func CompileFormula(formula string) (*Formula, error) {
	if len(formula) > maxFormulaLength {
		return nil, &FormulaError{Formula: trimFormula(formula), Reason: fmt.Sprintf("formula longer than %d bytes", maxFormulaLength)}
	}
	tokens, err := lexFormula(formula)
	if err != nil {
		return nil, &FormulaError{Formula: formula, Reason: err.Error()}
	}
	if len(tokens) == 0 {
		return nil, &FormulaError{Formula: formula, Reason: "empty formula"}
	}

	p := &formulaParser{tokens: tokens, seen: make(map[string]bool)}
	root, err := p.parseExpr()
	if err == nil && p.pos < len(p.tokens) {
		err = fmt.Errorf("unexpected %q at position %d", p.tokens[p.pos].text, p.tokens[p.pos].offset)
	}
	if err != nil {
		return nil, &FormulaError{Formula: formula, Reason: err.Error()}
	}

	return &Formula{source: formula, root: root, identifiers: p.identifiers}, nil
}

// Identifiers returns the field names the formula references, in order of first use
func (f *Formula) Identifiers() []string {
	return append([]string(nil), f.identifiers...)
}

// Evaluate computes the formula over record. Every identifier must name a
// numeric value in record.
func (f *Formula) Evaluate(record domain.Record) (float64, error) {
	result, err := f.root.eval(record)
	if err != nil {
		return 0, &FormulaError{Formula: f.source, Reason: err.Error()}
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, &FormulaError{Formula: f.source, Reason: "result is not a finite number"}
	}
	return result, nil
}

// EvaluateFormula compiles and evaluates formula in one step
func EvaluateFormula(formula string, record domain.Record) (float64, error) {
	compiled, err := CompileFormula(formula)
	if err != nil {
		return 0, err
	}
	return compiled.Evaluate(record)
}

// CalculateMetric evaluates a metric definition's formula over record
func CalculateMetric(metric domain.MetricDefinition, record domain.Record) (float64, error) {
	return EvaluateFormula(metric.Formula, record)
}

// FormatMetricValue renders a metric for display according to its format hint
func FormatMetricValue(value float64, format string) string {
	switch format {
	case "currency":
		d := decimal.NewFromFloat(value)
		if d.IsNegative() {
			return "-$" + d.Neg().StringFixed(2)
		}
		return "$" + d.StringFixed(2)
	case "percentage":
		return decimal.NewFromFloat(value).StringFixed(2) + "%"
	default:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
}

type formulaNode interface {
	eval(record domain.Record) (float64, error)
}

type numberNode float64

func (n numberNode) eval(domain.Record) (float64, error) { return float64(n), nil }

type identNode string

func (n identNode) eval(record domain.Record) (float64, error) {
	value, ok := record[string(n)]
	if !ok {
		return 0, fmt.Errorf("unknown field %q", string(n))
	}
	if value == nil {
		return 0, fmt.Errorf("field %q has no value", string(n))
	}
	f, ok := strictFloat(value)
	if !ok {
		return 0, fmt.Errorf("cannot use non-numeric field %q", string(n))
	}
	return f, nil
}

type unaryNode struct {
	op      byte
	operand formulaNode
}

func (n unaryNode) eval(record domain.Record) (float64, error) {
	v, err := n.operand.eval(record)
	if err != nil {
		return 0, err
	}
	if n.op == '-' {
		return -v, nil
	}
	return v, nil
}

type binaryNode struct {
	op          byte
	left, right formulaNode
}

func (n binaryNode) eval(record domain.Record) (float64, error) {
	l, err := n.left.eval(record)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(record)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type formulaToken struct {
	kind   tokenKind
	text   string
	offset int
}

func lexFormula(src string) ([]formulaToken, error) {
	var tokens []formulaToken
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || c == '.':
			start := i
			dots := 0
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				if src[i] == '.' {
					dots++
				}
				i++
			}
			if dots > 1 || src[start:i] == "." {
				return nil, fmt.Errorf("malformed number %q at position %d", src[start:i], start)
			}
			tokens = append(tokens, formulaToken{tokNumber, src[start:i], start})
		case isIdentStart(c):
			start := i
			for i < len(src) && (isIdentStart(src[i]) || isDigit(src[i])) {
				i++
			}
			tokens = append(tokens, formulaToken{tokIdent, src[start:i], start})
		case c == '+' || c == '-' || c == '*' || c == '/':
			tokens = append(tokens, formulaToken{tokOp, string(c), i})
			i++
		case c == '(':
			tokens = append(tokens, formulaToken{tokLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, formulaToken{tokRParen, ")", i})
			i++
		default:
			return nil, fmt.Errorf("invalid character %q at position %d", c, i)
		}
	}
	return tokens, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

type formulaParser struct {
	tokens      []formulaToken
	pos         int
	depth       int
	identifiers []string
	seen        map[string]bool
}

func (p *formulaParser) peek() (formulaToken, bool) {
	if p.pos >= len(p.tokens) {
		return formulaToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *formulaParser) parseExpr() (formulaNode, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOp || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.text[0], left: left, right: right}
	}
}

func (p *formulaParser) parseTerm() (formulaNode, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOp || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.text[0], left: left, right: right}
	}
}

func (p *formulaParser) parseFactor() (formulaNode, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxFormulaDepth {
		return nil, fmt.Errorf("nested deeper than %d levels", maxFormulaDepth)
	}

	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of formula")
	}
	p.pos++

	switch tok.kind {
	case tokOp:
		if tok.text != "+" && tok.text != "-" {
			return nil, fmt.Errorf("unexpected %q at position %d", tok.text, tok.offset)
		}
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: tok.text[0], operand: operand}, nil
	case tokNumber:
		v, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed number %q at position %d", tok.text, tok.offset)
		}
		return numberNode(v), nil
	case tokIdent:
		if !p.seen[tok.text] {
			p.seen[tok.text] = true
			p.identifiers = append(p.identifiers, tok.text)
		}
		return identNode(tok.text), nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis for position %d", tok.offset)
		}
		p.pos++
		return inner, nil
	default:
		return nil, fmt.Errorf("unexpected %q at position %d", tok.text, tok.offset)
	}
}

// trimFormula is used in log output only
func trimFormula(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
