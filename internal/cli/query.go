package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/ontogen/internal/ir"
	"github.com/roach88/ontogen/internal/querycontract"
	"github.com/roach88/ontogen/internal/querysql"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	File     string
	Baseline bool
	Eq       []string
	In       []string
	Contains []string
	Gte      []string
	Lte      []string
	State    []string
	PageSize int
	Page     int
}

// QueryResult is a compiled listing query.
type QueryResult struct {
	ObjectID string `json:"object_id"`
	SQL      string `json:"sql"`
	Params   []any  `json:"params"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <object>",
		Short: "Compile a filtered listing request to SQL",
		Long: `Check a listing request against an object's query contract and
print the parameterized SQL it compiles to.

The object and fields may be named by id or by name. Values are typed by
the field: integers for numeric fields, true/false for booleans, text
otherwise. Requests the contract does not allow are rejected.

  ontogen query Book --eq title=Dune --gte pages=100 --page-size 20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer p.close()
			return runQuery(p, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "ontology file (defaults to project.ontology_file)")
	cmd.Flags().BoolVar(&opts.Baseline, "baseline", false, "query the recorded baseline instead of the current ontology")
	cmd.Flags().StringArrayVar(&opts.Eq, "eq", nil, "field=value equality filter (repeatable)")
	cmd.Flags().StringArrayVar(&opts.In, "in", nil, "field=v1,v2 membership filter (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Contains, "contains", nil, "field=text substring filter (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Gte, "gte", nil, "field=value lower bound (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Lte, "lte", nil, "field=value upper bound (repeatable)")
	cmd.Flags().StringArrayVar(&opts.State, "state", nil, "lifecycle state filter (repeatable, ORed)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "page size (0 for the contract default)")
	cmd.Flags().IntVar(&opts.Page, "page", 0, "zero-based page number")

	return cmd
}

func runQuery(p *project, opts *QueryOptions, objectRef string) error {
	var doc *ir.Document
	if opts.Baseline {
		base, err := p.loadBaseline("")
		if err != nil {
			return p.out.Fail(err)
		}
		doc = base
	} else {
		path := opts.File
		if path == "" {
			path = p.cfg.Project.OntologyFile
		}
		c, err := p.compile(path)
		if err != nil {
			return p.out.Fail(err)
		}
		doc = c.Doc
	}

	req, err := buildRequest(doc, opts, objectRef)
	if err != nil {
		_ = p.out.Error(ErrCodeQuery, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid request", err)
	}

	sql, params, err := querysql.NewCompiler(doc).Compile(req)
	if err != nil {
		var reqErr *querysql.RequestError
		if errors.As(err, &reqErr) {
			_ = p.out.Error(ErrCodeQuery, querysql.ErrInvalidRequest.Error(), reqErr.Problems)
			return WrapExitError(ExitFailure, "invalid request", err)
		}
		return p.out.Fail(err)
	}
	p.log.Debug("compiled query", zap.String("object", req.ObjectID), zap.Int("params", len(params)))

	result := QueryResult{ObjectID: req.ObjectID, SQL: sql, Params: params}
	if p.out.Format == "json" {
		return p.out.Success(result)
	}
	fmt.Fprintln(p.out.Writer, sql)
	for i, param := range params {
		fmt.Fprintf(p.out.Writer, "-- $%d = %#v\n", i+1, param)
	}
	return nil
}

// buildRequest turns the command flags into a listing request.
func buildRequest(doc *ir.Document, opts *QueryOptions, objectRef string) (querycontract.Request, error) {
	obj, ok := findObject(doc, objectRef)
	if !ok {
		return querycontract.Request{}, fmt.Errorf("unknown object %q", objectRef)
	}
	req := querycontract.Request{ObjectID: obj.ID, PageSize: opts.PageSize, Page: opts.Page}

	add := func(flag string, specs []string, build func(f *ir.Field, raw string) (querycontract.Predicate, error)) error {
		for _, spec := range specs {
			name, raw, found := strings.Cut(spec, "=")
			if !found {
				return fmt.Errorf("--%s %q: expected field=value", flag, spec)
			}
			f, ok := findField(obj, name)
			if !ok {
				return fmt.Errorf("--%s: object %s has no field %q", flag, obj.Name, name)
			}
			pred, err := build(f, raw)
			if err != nil {
				return fmt.Errorf("--%s %s: %w", flag, name, err)
			}
			req.Where = append(req.Where, pred)
		}
		return nil
	}

	steps := []error{
		add("eq", opts.Eq, func(f *ir.Field, raw string) (querycontract.Predicate, error) {
			v, err := parseValue(doc, f, raw)
			return querycontract.Equals{FieldID: f.ID, Value: v}, err
		}),
		add("in", opts.In, func(f *ir.Field, raw string) (querycontract.Predicate, error) {
			var values []ir.Value
			for _, part := range strings.Split(raw, ",") {
				v, err := parseValue(doc, f, part)
				if err != nil {
					return nil, err
				}
				values = append(values, v)
			}
			return querycontract.OneOf{FieldID: f.ID, Values: values}, nil
		}),
		add("contains", opts.Contains, func(f *ir.Field, raw string) (querycontract.Predicate, error) {
			return querycontract.Contains{FieldID: f.ID, Substring: raw}, nil
		}),
		add("gte", opts.Gte, func(f *ir.Field, raw string) (querycontract.Predicate, error) {
			v, err := parseValue(doc, f, raw)
			return querycontract.Range{FieldID: f.ID, Op: querycontract.OpGte, Value: v}, err
		}),
		add("lte", opts.Lte, func(f *ir.Field, raw string) (querycontract.Predicate, error) {
			v, err := parseValue(doc, f, raw)
			return querycontract.Range{FieldID: f.ID, Op: querycontract.OpLte, Value: v}, err
		}),
	}
	if err := errors.Join(steps...); err != nil {
		return querycontract.Request{}, err
	}

	switch len(opts.State) {
	case 0:
	case 1:
		req.Where = append(req.Where, querycontract.Equals{FieldID: querycontract.StateFilterID, Value: ir.String(opts.State[0])})
	default:
		values := make([]ir.Value, len(opts.State))
		for i, s := range opts.State {
			values[i] = ir.String(s)
		}
		req.Where = append(req.Where, querycontract.OneOf{FieldID: querycontract.StateFilterID, Values: values})
	}
	return req, nil
}

func findObject(doc *ir.Document, ref string) (*ir.Object, bool) {
	if obj, ok := doc.ObjectByID(ref); ok {
		return obj, true
	}
	for i := range doc.Objects {
		if doc.Objects[i].Name == ref {
			return &doc.Objects[i], true
		}
	}
	return nil, false
}

func findField(obj *ir.Object, ref string) (*ir.Field, bool) {
	if f, ok := obj.FieldByID(ref); ok {
		return f, true
	}
	for i := range obj.Fields {
		if obj.Fields[i].Name == ref {
			return &obj.Fields[i], true
		}
	}
	return nil, false
}

// parseValue types a raw flag value by the field's base type.
func parseValue(doc *ir.Document, f *ir.Field, raw string) (ir.Value, error) {
	switch baseOf(doc, f.Type) {
	case "int", "long", "short", "byte":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		return ir.Int(n), nil
	case "boolean":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return ir.Bool(b), nil
	default:
		return ir.String(raw), nil
	}
}

func baseOf(doc *ir.Document, td ir.TypeDescriptor) string {
	switch t := td.(type) {
	case ir.BaseType:
		return t.Name
	case ir.CustomRef:
		if ct, ok := doc.TypeByID(t.TypeID); ok {
			return ct.Base
		}
	}
	return ""
}
