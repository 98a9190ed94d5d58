package node

import (
	"strings"

	"github.com/kgearhart/vh/internal/typevar"
)

// RenderFunc is a vh_nsql_cmd_cb: produces SQL text (and, indirectly
// via ctx.Params, bound parameter values) for a single Node.
type RenderFunc func(n Node, ctx *CmdContext) error

// ParamPlaceholderFunc renders a bound value's placeholder into the
// command text and records v on ctx (vh_nsql_cmd_param_cb) — the seam
// a back end uses to choose "$1"-style vs "?"-style placeholders
// without this package knowing which back end it's rendering for.
type ParamPlaceholderFunc func(ctx *CmdContext, v typevar.Value)

// CmdContext is the NodeSqlCmdContext: the state a single vh_nsql_cmd
// call threads through every node it visits.
type CmdContext struct {
	Out strings.Builder

	// Override lets a caller specialize the default renderer for a
	// tag without altering the node itself (e.g. a back end that
	// needs a dialect-specific LIMIT clause).
	Override map[Tag]RenderFunc

	ParamPlaceholder ParamPlaceholderFunc

	PreviousTag      Tag
	LastProcessedTag Tag

	Params []typevar.Value

	// FQ selects whether a Field renders qualified by its table's alias
	// or name, or as a bare column name. From rendering does not
	// consult it.
	FQ bool

	CallerData any
}

// DefaultParamPlaceholder renders ANSI "?" placeholders, the
// lowest-common-denominator choice when a caller doesn't supply one.
func DefaultParamPlaceholder(ctx *CmdContext, v typevar.Value) {
	ctx.Out.WriteString("?")
	ctx.Params = append(ctx.Params, v)
}

// Cmd is vh_nsql_cmd: the entry point that establishes a CmdContext
// and renders root into SQL text plus its collected bound parameters.
func Cmd(root Node, override map[Tag]RenderFunc, ph ParamPlaceholderFunc, fq bool) (string, []typevar.Value, error) {
	ctx := &CmdContext{
		Override:         override,
		ParamPlaceholder: ph,
		PreviousTag:      TagInvalid,
		LastProcessedTag: TagInvalid,
		FQ:               fq,
	}
	if ctx.ParamPlaceholder == nil {
		ctx.ParamPlaceholder = DefaultParamPlaceholder
	}

	if err := RenderImpl(root, ctx); err != nil {
		return "", nil, err
	}
	return ctx.Out.String(), ctx.Params, nil
}

// RenderImpl is vh_nsql_cmd_impl: renders n, preferring ctx.Override's
// entry for n.Tag() over n's own default renderer when one is
// registered. This is what container nodes (FieldList, FromList, ...)
// call for each child, so an override applies uniformly no matter how
// deep in the tree the tag recurs.
func RenderImpl(n Node, ctx *CmdContext) error {
	ctx.PreviousTag = ctx.LastProcessedTag

	var err error
	if fn, ok := ctx.Override[n.Tag()]; ok {
		err = fn(n, ctx)
	} else {
		err = n.renderDefault(ctx)
	}

	ctx.LastProcessedTag = n.Tag()
	return err
}

// RenderDefault is vh_nsql_cmd_impl_def: renders n via its own default
// renderer, bypassing ctx.Override even if n.Tag() has an entry there.
// A node's own override implementation calls this on itself when it
// needs the stock rendering for part of its output, without
// recursing back into its own override.
func RenderDefault(n Node, ctx *CmdContext) error {
	ctx.PreviousTag = ctx.LastProcessedTag
	err := n.renderDefault(ctx)
	ctx.LastProcessedTag = n.Tag()
	return err
}
