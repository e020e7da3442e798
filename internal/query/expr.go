// Package query implements the expression translator: a closed set of
// predicate node kinds plus an ordering specification, translated into
// parameterized SQL fragments with deterministic placeholder synthesis.
package query

import "fmt"

// Expr is a node of a predicate tree. The set of implementations is closed;
// translation is a total switch over them and any other value fails with
// UnsupportedExpressionError.
type Expr interface {
	exprNode()
}

// Operand is one side of a comparison: a field reference or a captured
// literal value.
type Operand interface {
	operandNode()
}

// FieldRef names an entity field. It is resolved to a column name through
// the mapping descriptor at translation time.
type FieldRef struct {
	Name string
}

// Literal is a captured value. Each literal encountered during translation
// becomes one synthesized parameter; identical values are not deduplicated.
type Literal struct {
	Value any
}

func (FieldRef) operandNode() {}
func (Literal) operandNode()  {}

// CompareOp is a relational comparison operator.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
)

func (op CompareOp) token() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	default:
		return "?"
	}
}

// Compare is a binary comparison between a field and a literal, or between
// two fields.
type Compare struct {
	Left  Operand
	Op    CompareOp
	Right Operand
}

// LogicOp joins two predicate subtrees.
type LogicOp int

const (
	OpAnd LogicOp = iota
	OpOr
)

func (op LogicOp) token() string {
	if op == OpAnd {
		return "AND"
	}
	return "OR"
}

// Logic is a conjunction or disjunction. Source parenthesization is
// preserved by wrapping each translated Logic node in parentheses.
type Logic struct {
	Op    LogicOp
	Left  Expr
	Right Expr
}

// MatchKind selects the wildcard placement of a string match.
type MatchKind int

const (
	MatchContains MatchKind = iota
	MatchStartsWith
	MatchEndsWith
)

// StringMatch is a substring/prefix/suffix test on a text field, translated
// to a LIKE comparison.
type StringMatch struct {
	Field FieldRef
	Kind  MatchKind
	Value string
}

// NullCheck tests a field for NULL (or NOT NULL when Negated).
type NullCheck struct {
	Field   FieldRef
	Negated bool
}

func (Compare) exprNode()     {}
func (Logic) exprNode()       {}
func (StringMatch) exprNode() {}
func (NullCheck) exprNode()   {}

// Constructors. These are the caller-facing predicate surface.

// Eq compares a field to a value for equality.
func Eq(field string, value any) Expr { return Compare{FieldRef{field}, OpEq, Literal{value}} }

// Ne compares a field to a value for inequality.
func Ne(field string, value any) Expr { return Compare{FieldRef{field}, OpNe, Literal{value}} }

// Gt compares a field to a value with >.
func Gt(field string, value any) Expr { return Compare{FieldRef{field}, OpGt, Literal{value}} }

// Ge compares a field to a value with >=.
func Ge(field string, value any) Expr { return Compare{FieldRef{field}, OpGe, Literal{value}} }

// Lt compares a field to a value with <.
func Lt(field string, value any) Expr { return Compare{FieldRef{field}, OpLt, Literal{value}} }

// Le compares a field to a value with <=.
func Le(field string, value any) Expr { return Compare{FieldRef{field}, OpLe, Literal{value}} }

// EqField compares two fields of the same record.
func EqField(left, right string) Expr { return Compare{FieldRef{left}, OpEq, FieldRef{right}} }

// CompareFields builds a field-to-field comparison with an arbitrary
// operator.
func CompareFields(left string, op CompareOp, right string) Expr {
	return Compare{FieldRef{left}, op, FieldRef{right}}
}

// And joins two predicates conjunctively.
func And(left, right Expr) Expr { return Logic{OpAnd, left, right} }

// Or joins two predicates disjunctively.
func Or(left, right Expr) Expr { return Logic{OpOr, left, right} }

// Contains matches rows whose field contains the substring.
func Contains(field, value string) Expr {
	return StringMatch{FieldRef{field}, MatchContains, value}
}

// StartsWith matches rows whose field starts with the prefix.
func StartsWith(field, value string) Expr {
	return StringMatch{FieldRef{field}, MatchStartsWith, value}
}

// EndsWith matches rows whose field ends with the suffix.
func EndsWith(field, value string) Expr {
	return StringMatch{FieldRef{field}, MatchEndsWith, value}
}

// IsNull matches rows whose field is NULL.
func IsNull(field string) Expr { return NullCheck{Field: FieldRef{field}} }

// NotNull matches rows whose field is not NULL.
func NotNull(field string) Expr { return NullCheck{Field: FieldRef{field}, Negated: true} }

// UnsupportedExpressionError reports a predicate node kind the translator
// cannot handle. Translation never degrades silently.
type UnsupportedExpressionError struct {
	Kind string
}

func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("unsupported expression node %s", e.Kind)
}

// UnknownFieldError reports a field reference with no mapped column.
type UnknownFieldError struct {
	Type  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("type %s has no mapped field %q", e.Type, e.Field)
}
