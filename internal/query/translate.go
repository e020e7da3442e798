package query

import (
	"fmt"

	"persistkit/internal/schema"
)

// Translator converts predicate trees and ordering specifications into SQL
// fragments for one mapped type. Translation is pure: a Translator is
// stateless between calls and safe for concurrent use.
type Translator struct {
	desc *schema.Descriptor
	dia  schema.Dialect
}

// NewTranslator binds a translator to a descriptor and dialect.
func NewTranslator(desc *schema.Descriptor, dia schema.Dialect) *Translator {
	return &Translator{desc: desc, dia: dia}
}

// Predicate translates a predicate tree into a SQL fragment and its ordered
// parameters. Placeholders are synthesized as @p0, @p1, … in left-to-right
// walk order; the same literal appearing twice yields two parameters. A nil
// tree translates to an empty fragment, meaning no filter.
func (t *Translator) Predicate(e Expr) (string, Params, error) {
	if e == nil {
		return "", nil, nil
	}
	w := &walker{t: t}
	sql, err := w.walk(e)
	if err != nil {
		return "", nil, err
	}
	return sql, w.params, nil
}

type walker struct {
	t      *Translator
	params Params
}

func (w *walker) walk(e Expr) (string, error) {
	switch n := e.(type) {
	case Compare:
		return w.compare(n)
	case Logic:
		left, err := w.walk(n.Left)
		if err != nil {
			return "", err
		}
		right, err := w.walk(n.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, n.Op.token(), right), nil
	case StringMatch:
		col, err := w.t.column(n.Field.Name)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s LIKE %s)", col, w.bind(likePattern(n))), nil
	case NullCheck:
		col, err := w.t.column(n.Field.Name)
		if err != nil {
			return "", err
		}
		if n.Negated {
			return fmt.Sprintf("(%s IS NOT NULL)", col), nil
		}
		return fmt.Sprintf("(%s IS NULL)", col), nil
	default:
		return "", &UnsupportedExpressionError{Kind: fmt.Sprintf("%T", e)}
	}
}

func (w *walker) compare(n Compare) (string, error) {
	left, err := w.operand(n.Left)
	if err != nil {
		return "", err
	}
	right, err := w.operand(n.Right)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s)", left, n.Op.token(), right), nil
}

func (w *walker) operand(o Operand) (string, error) {
	switch v := o.(type) {
	case FieldRef:
		return w.t.column(v.Name)
	case Literal:
		return w.bind(v.Value), nil
	default:
		return "", &UnsupportedExpressionError{Kind: fmt.Sprintf("%T", o)}
	}
}

// bind synthesizes the next parameter and returns its placeholder text.
func (w *walker) bind(value any) string {
	name := fmt.Sprintf("p%d", len(w.params))
	w.params = append(w.params, Param{Name: name, Value: value})
	return "@" + name
}

// likePattern positions % wildcards to match the requested semantics:
// %value% for Contains, value% for StartsWith, %value for EndsWith.
func likePattern(n StringMatch) string {
	switch n.Kind {
	case MatchStartsWith:
		return n.Value + "%"
	case MatchEndsWith:
		return "%" + n.Value
	default:
		return "%" + n.Value + "%"
	}
}

func (t *Translator) column(field string) (string, error) {
	c, ok := t.desc.ColumnForField(field)
	if !ok {
		return "", &UnknownFieldError{Type: t.desc.Name, Field: field}
	}
	return c.Name, nil
}
