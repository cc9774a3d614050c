package delegation

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/delegation/internal/ir"
)

// DefaultMaxRows is the row limit used when neither the options nor the
// table metadata set one.
const DefaultMaxRows = 500

// Options configure a Compile call.
type Options struct {
	// Hooks builds backend query nodes. Required.
	Hooks Hooks

	// MaxRows is the row limit reported in warnings and applied to unbounded
	// queries. Zero means DefaultMaxRows.
	MaxRows int

	// Logger receives debug records for every abandoned delegation. Nil
	// discards them.
	Logger *slog.Logger

	// IDs generates the compile id. Nil uses random UUIDs.
	IDs IDGenerator
}

// IDGenerator produces compile ids.
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates random (version 4) UUIDs.
type UUIDGenerator struct{}

// Generate returns a new random UUID string.
func (UUIDGenerator) Generate() string { return uuid.NewString() }

// Result is the outcome of a Compile call.
type Result struct {
	// ID identifies this compilation in logs.
	ID string

	// Node is the rewritten tree. When nothing was delegated it is the input
	// node itself.
	Node ir.Node

	// Warnings lists every abandoned delegation in the order encountered.
	Warnings []Warning

	// Delegated reports whether at least one remote query was emitted.
	Delegated bool
}

// Compile rewrites node so that the parts that can run on a remote data
// source become query nodes built by opts.Hooks. Everything else is kept as
// is and evaluated locally; each abandoned opportunity is reported as a
// warning.
//
// Compile only returns an error for invalid options or an internal
// invariant violation. Untranslatable formulas are never errors.
func Compile(node ir.Node, opts Options) (res *Result, err error) {
	if node == nil {
		return nil, fmt.Errorf("delegation: nil node")
	}
	if opts.Hooks == nil {
		return nil, fmt.Errorf("delegation: hooks are required")
	}
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ids := opts.IDs
	if ids == nil {
		ids = UUIDGenerator{}
	}

	r := &rewriter{
		hooks:   opts.Hooks,
		maxRows: maxRows,
		id:      ids.Generate(),
	}
	r.logger = logger.With("compile_id", r.id)

	defer func() {
		if p := recover(); p != nil {
			ie, ok := p.(*InvariantError)
			if !ok {
				panic(p)
			}
			r.logger.Error("delegation invariant violated", "invariant", ie.Invariant, "error", ie.Message)
			res, err = nil, ie
		}
	}()

	out := r.materialize(r.visit(node, Context{}))
	r.logger.Debug("delegation compiled",
		"delegated", r.delegated,
		"warnings", len(r.warnings),
	)
	return &Result{
		ID:        r.id,
		Node:      out,
		Warnings:  r.warnings,
		Delegated: r.delegated,
	}, nil
}

// rewriter holds the per-compile state. It is not shared between compiles.
type rewriter struct {
	hooks     Hooks
	maxRows   int
	id        string
	logger    *slog.Logger
	warnings  []Warning
	delegated bool
	attempt   attemptMark
}

// processor handles one table-consuming function whose first argument
// visited to a delegating accumulator.
type processor func(r *rewriter, call *ir.Call, table *RetVal, ctx Context) *RetVal

var processors map[string]processor

func init() {
	processors = map[string]processor{
		fnFilter:        processFilter,
		fnCountIf:       processCountIf,
		fnCountRows:     processCountRows,
		fnLookUp:        processLookUp,
		fnFirst:         processFirst,
		fnFirstN:        processFirstN,
		fnSort:          processSort,
		fnSortByColumns: processSortByColumns,
		fnShowColumns:   processShowColumns,
		fnRenameColumns: processRenameColumns,
		fnDropColumns:   processDropColumns,
		fnDistinct:      processDistinct,
		fnSummarize:     processSummarize,
		fnJoin:          processJoin,
	}
}

// visit rewrites n bottom-up and returns either a delegating accumulator or
// the rewritten node.
func (r *rewriter) visit(n ir.Node, ctx Context) *RetVal {
	switch node := n.(type) {
	case *ir.Symbol:
		return r.visitSymbol(node, ctx)
	case *ir.Call:
		return r.visitCall(node, ctx)
	case *ir.Lambda:
		body := r.materialize(r.visit(node.Body, ctx))
		return NonDelegating(ir.WithChildren(node, []ir.Node{body}))
	default:
		return NonDelegating(r.rewriteChildren(n, ctx))
	}
}

func (r *rewriter) visitSymbol(sym *ir.Symbol, ctx Context) *RetVal {
	if ctx.suppress || sym.Kind != ir.SymbolDataSource {
		return NonDelegating(sym)
	}
	table, ok := r.hooks.IsDelegableTable(sym)
	if !ok {
		return NonDelegating(sym)
	}
	return New(sym, table, r.hooks, r.maxRows)
}

func (r *rewriter) visitCall(call *ir.Call, ctx Context) *RetVal {
	if mutationFunctions[call.Func] && len(call.Args) > 0 {
		args := make([]ir.Node, len(call.Args))
		args[0] = r.materialize(r.visit(call.Args[0], ctx.Suppress()))
		for i := 1; i < len(call.Args); i++ {
			args[i] = r.materialize(r.visit(call.Args[i], ctx))
		}
		return NonDelegating(ir.WithChildren(call, args))
	}
	if call.Func == fnWith {
		return processWith(r, call, ctx)
	}

	proc, ok := processors[call.Func]
	if !ok || len(call.Args) == 0 || ctx.suppress {
		return r.visitOther(call, ctx)
	}
	table := r.visit(call.Args[0], ctx)
	if !table.IsDelegating() {
		return NonDelegating(r.rebuildCall(call, table, ctx))
	}
	saved := r.attempt
	r.begin()
	defer func() { r.attempt = saved }()
	return proc(r, call, table, ctx)
}

// attemptMark records the rewriter state before a processor starts
// translating arguments. A processor that gives up rewinds to the mark so
// that re-visiting the arguments for local evaluation does not report the
// same warnings twice.
type attemptMark struct {
	warnings  int
	delegated bool
}

func (r *rewriter) begin() {
	r.attempt = attemptMark{warnings: len(r.warnings), delegated: r.delegated}
}

func (r *rewriter) rewind() {
	r.warnings = r.warnings[:r.attempt.warnings]
	r.delegated = r.attempt.delegated
}

// visitOther rewrites a call the rewriter has no processor for. Delegable
// tables passed to it are pulled into memory, which only sees the first
// MaxRows rows unless the query is bounded.
func (r *rewriter) visitOther(call *ir.Call, ctx Context) *RetVal {
	args := make([]ir.Node, len(call.Args))
	for i, a := range call.Args {
		rv := r.visit(a, ctx)
		if rv.IsDelegating() && !rv.IsBounded() {
			r.warn(Warning{Key: WarnRowLimit, Span: call.Span, Args: []any{call.Func, rv.MaxRows()}})
		}
		args[i] = r.materialize(rv)
	}
	return NonDelegating(ir.WithChildren(call, args))
}

// rewriteChildren rewrites every child of n as an ordinary expression.
func (r *rewriter) rewriteChildren(n ir.Node, ctx Context) ir.Node {
	children := ir.Children(n)
	if len(children) == 0 {
		return n
	}
	out := make([]ir.Node, len(children))
	for i, c := range children {
		out[i] = r.materialize(r.visit(c, ctx))
	}
	return ir.WithChildren(n, out)
}

// rebuildCall rewrites call for local evaluation: the already visited table
// argument is materialized and the remaining arguments are rewritten.
func (r *rewriter) rebuildCall(call *ir.Call, table *RetVal, ctx Context) ir.Node {
	args := make([]ir.Node, len(call.Args))
	args[0] = r.materialize(table)
	for i := 1; i < len(call.Args); i++ {
		args[i] = r.materialize(r.visit(call.Args[i], ctx))
	}
	return ir.WithChildren(call, args)
}

// abandon records why call could not be delegated and falls back to local
// evaluation of call over the materialized table.
func (r *rewriter) abandon(call *ir.Call, table *RetVal, ctx Context, ab *abandonment) *RetVal {
	r.report(call, table, ab)
	return NonDelegating(r.rebuildCall(call, table, ctx))
}

func (r *rewriter) report(call *ir.Call, table *RetVal, ab *abandonment) {
	r.rewind()
	if ab == nil {
		ab = notDelegable()
	}
	args := append([]any{call.Func}, ab.args...)
	if ab.key == WarnNotDelegable || ab.key == WarnCapability {
		args = append(args, table.MaxRows())
	}
	r.warn(Warning{Key: ab.key, Span: call.Span, Args: args})
	for _, w := range ab.extra {
		r.warn(w)
	}
}

func (r *rewriter) warn(w Warning) {
	r.logger.Debug("delegation abandoned",
		"key", string(w.Key),
		"span", w.Span.String(),
		"message", w.Message(),
	)
	r.warnings = append(r.warnings, w)
}
