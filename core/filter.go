package core

// Filter is the basic unit of work in a pipeline: a polymorphic record
// exposing three operations. Implementations allocate private state in
// Open and must tolerate Close being called on a partially initialized
// state (e.g. after Open fails).
type Filter interface {
	// Open allocates private state; it may inspect and mutate Cmd (e.g. set
	// a default output name). Returning (nil, ErrOpenSkip) tells the
	// scheduler to skip this filter entirely without calling Close.
	Open(c *Cmd) (any, error)

	// Process consumes Cmd.In, produces Cmd.Out, and returns a Status plus
	// any chain mutation the filter wants applied (see Mutation).
	Process(state any, c *Cmd) (Status, Mutation, error)

	// Close releases private state. It is called exactly once on every
	// exit path for which Open succeeded.
	Close(state any, c *Cmd)
}

// FilterFactory constructs a fresh Filter instance. Using a factory (rather
// than a shared Filter value) lets the same filter type appear more than
// once in one chain, each with independent private state — e.g. the
// encrypt+verify pair that reads a file twice.
type FilterFactory func() Filter

// MutationKind names the chain-mutation effects a filter may request.
// Modeling mutation as data returned alongside Status (rather than a
// direct call into the chain while the filter still holds a reference to
// its own node) keeps "what the filter wants" separate from "what the
// scheduler does".
type MutationKind int

const (
	// MutNone requests no chain change.
	MutNone MutationKind = iota
	// MutInsertBefore adds a filter immediately upstream of the caller.
	MutInsertBefore
	// MutInsertAfter adds a filter immediately downstream of the caller.
	MutInsertAfter
	// MutAppend adds a filter at the tail of the chain.
	MutAppend
	// MutPrepend adds a filter at the head of the chain.
	MutPrepend
)

// Mutation is the chain-mutation effect a filter returns alongside its
// Status. Name identifies a filter registered with the Pipeline's factory
// lookup (see Pipeline.Register); Factory, if non-nil, is used directly
// instead of a name lookup.
type Mutation struct {
	Kind    MutationKind
	Name    string
	Factory FilterFactory
}

// NoMutation is the zero-value convenience for filters that never mutate
// the chain.
var NoMutation = Mutation{Kind: MutNone}

// Hook is an optional observer invoked around filter Process calls —
// e.g. a logging hook or a metrics hook.
type Hook interface {
	BeforeStep(c *Cmd, filterName string)
	AfterStep(c *Cmd, filterName string, status Status, err error)
}

// Logger is a minimal structured logging interface implemented by
// hooks.SlogLogger.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}
