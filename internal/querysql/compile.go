// Package querysql compiles contract-checked listing requests to
// parameterized Postgres SQL over the schema rendered by migrate.
package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/roach88/ontogen/internal/ir"
	"github.com/roach88/ontogen/internal/migrate"
	"github.com/roach88/ontogen/internal/querycontract"
)

// ErrInvalidRequest is wrapped by every RequestError.
var ErrInvalidRequest = errors.New("request does not fit its query contract")

// RequestError reports why a request was rejected.
type RequestError struct {
	ObjectID string
	Problems []string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%v: object %s: %s", ErrInvalidRequest, e.ObjectID, strings.Join(e.Problems, "; "))
}

func (e *RequestError) Unwrap() error {
	return ErrInvalidRequest
}

// Compiler compiles listing requests against one document.
//
// CRITICAL: Values are never interpolated. Every value, the page size and
// the offset travel as ? parameters.
// CRITICAL: Every query orders by the primary key so pages are stable.
type Compiler struct {
	doc *ir.Document
}

// NewCompiler creates a Compiler for a sealed document.
func NewCompiler(doc *ir.Document) *Compiler {
	return &Compiler{doc: doc}
}

// Compile checks a request against its object's query contract and
// renders it. Returns (sql, params, error).
//
// Documents decoded from baselines without contracts get theirs
// recomputed on the fly.
func (c *Compiler) Compile(req querycontract.Request) (string, []any, error) {
	obj, ok := c.doc.ObjectByID(req.ObjectID)
	if !ok {
		return "", nil, &RequestError{ObjectID: req.ObjectID, Problems: []string{"unknown object"}}
	}
	contract, err := c.contract(obj)
	if err != nil {
		return "", nil, err
	}

	res := querycontract.ValidateRequest(contract, req)
	if !res.Valid {
		return "", nil, &RequestError{ObjectID: req.ObjectID, Problems: res.Problems}
	}

	var conds []string
	var params []any
	for _, p := range req.Where {
		sql, ps, err := c.compilePredicate(obj, p)
		if err != nil {
			return "", nil, fmt.Errorf("compile predicate on %s: %w", p.Field(), err)
		}
		conds = append(conds, sql)
		params = append(params, ps...)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(selectColumns(obj), ", "), pq.QuoteIdentifier(migrate.TableName(obj)))
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderKey(obj))
	b.WriteString(" LIMIT ? OFFSET ?")
	params = append(params, res.PageSize, req.Page*res.PageSize)

	return b.String(), params, nil
}

func (c *Compiler) contract(obj *ir.Object) (ir.QueryContract, error) {
	if qc, ok := querycontract.Find(c.doc.QueryContracts, obj.ID); ok {
		return qc, nil
	}
	qc, err := querycontract.BuildOne(c.doc, obj)
	if err != nil {
		return ir.QueryContract{}, fmt.Errorf("recompute contract: %w", err)
	}
	return qc, nil
}

// selectColumns lists the object's columns in field id order, with the
// state column last.
func selectColumns(obj *ir.Object) []string {
	cols := make([]string, 0, len(obj.Fields)+1)
	for i := range obj.Fields {
		cols = append(cols, pq.QuoteIdentifier(migrate.ColumnName(&obj.Fields[i])))
	}
	if obj.IsStateful() {
		cols = append(cols, pq.QuoteIdentifier(migrate.StateColumn))
	}
	return cols
}

// orderKey orders by the primary key, falling back to every column for
// keyless objects.
func orderKey(obj *ir.Object) string {
	var cols []string
	for _, id := range obj.PrimaryKey {
		if f, ok := obj.FieldByID(id); ok {
			cols = append(cols, pq.QuoteIdentifier(migrate.ColumnName(f))+" ASC")
		}
	}
	if len(cols) == 0 {
		for _, col := range selectColumns(obj) {
			cols = append(cols, col+" ASC")
		}
	}
	return strings.Join(cols, ", ")
}

func (c *Compiler) column(obj *ir.Object, fieldID string) (string, error) {
	if fieldID == querycontract.StateFilterID {
		return pq.QuoteIdentifier(migrate.StateColumn), nil
	}
	f, ok := obj.FieldByID(fieldID)
	if !ok {
		return "", fmt.Errorf("unknown field %q", fieldID)
	}
	return pq.QuoteIdentifier(migrate.ColumnName(f)), nil
}

// compilePredicate compiles one predicate to a WHERE fragment.
// Returns (sql, params, error).
func (c *Compiler) compilePredicate(obj *ir.Object, p querycontract.Predicate) (string, []any, error) {
	col, err := c.column(obj, p.Field())
	if err != nil {
		return "", nil, err
	}

	switch pred := p.(type) {
	case querycontract.Equals:
		param, err := valueToParam(pred.Value)
		if err != nil {
			return "", nil, err
		}
		return col + " = ?", []any{param}, nil

	case querycontract.OneOf:
		marks := make([]string, len(pred.Values))
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			param, err := valueToParam(v)
			if err != nil {
				return "", nil, err
			}
			marks[i] = "?"
			params[i] = param
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(marks, ", ")), params, nil

	case querycontract.Contains:
		return col + " LIKE ?", []any{"%" + escapeLike(pred.Substring) + "%"}, nil

	case querycontract.Range:
		param, err := valueToParam(pred.Value)
		if err != nil {
			return "", nil, err
		}
		op := ">="
		if pred.Op == querycontract.OpLte {
			op = "<="
		}
		return fmt.Sprintf("%s %s ?", col, op), []any{param}, nil

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// escapeLike escapes LIKE wildcards with the default backslash escape.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// valueToParam converts an ir.Value to a Go native type for a SQL parameter.
func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
