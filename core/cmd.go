package core

import (
	"context"
	"sync/atomic"
	"time"
)

// FileDesc describes one side (input or output) of the data a pipeline is
// moving. Input descriptors are read-mostly by head filters; output
// descriptors are written by tail filters (spec: "Command-as-shared-bag"
// split into three disjoint regions).
type FileDesc struct {
	Name    string
	Attr    uint32
	Size    int64
	MTime   time.Time
	Offset  int64
	Last    bool // end-of-input reached (input side) / final chunk (output side)
	Seek    bool // seek requested: re-position at Offset before next read/write
	AttrWin bool // interpret Attr using Windows semantics rather than Unix
}

// Cmd is the per-operation context threaded through every filter in one
// pipeline. Exactly one of In/Out is a valid view into the upstream
// filter's private buffer while a filter runs; both are invalidated when
// control returns to the scheduler.
type Cmd struct {
	Ctx context.Context //nolint:containedctx // cancellation must reach blocking filter I/O

	Op   string
	Args []string

	Input  FileDesc
	Output FileDesc

	In  []byte
	Out []byte

	// Params carries operation-private knobs (compression level, pixel
	// format, crop rectangle, password, ...). Each operation defines its
	// own concrete type and type-asserts it back out.
	Params any

	IncludeFiles []string
	ExcludeFiles []string
	Recurse      bool
	DryRun       bool
	SkipErrors   bool
	OutDir       string

	// Vars is scratch cross-call state a filter stashes between Process
	// invocations when it doesn't warrant a typed field on Cmd itself.
	Vars map[string]any

	stop atomic.Bool

	// InputFD, when non-nil, is a directory handle acquired during path
	// iteration and handed to a filter for stable enumeration (spec: every
	// acquired descriptor has exactly one owner).
	InputFD any
}

// NewCmd creates a Cmd ready for a fresh pipeline run.
func NewCmd(ctx context.Context, op string) *Cmd {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Cmd{
		Ctx:  ctx,
		Op:   op,
		Vars: make(map[string]any),
	}
}

// Stopped reports whether an external signal asked this command's pipeline
// to cancel cooperatively.
func (c *Cmd) Stopped() bool { return c.stop.Load() }

// Stop sets the cooperative cancellation flag. Filters poll Stopped at
// natural yield points (between records) and return a terminal status.
func (c *Cmd) Stop() { c.stop.Store(true) }

// Result is the terminal outcome of one pipeline run.
type Result struct {
	Status Status
	Err    error
}
