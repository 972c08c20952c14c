package core

import (
	"errors"
	"fmt"
)

// ErrOpenSkip is returned by Filter.Open to mean "skip me, don't call
// Process or Close". It is distinct from a genuine open failure.
var ErrOpenSkip = errors.New("core: filter open: skip")

// Scheduler drives a Pipeline's filters in the order defined by the
// project's filter contract, propagating byte buffers and the Status
// control values between them.
type Scheduler struct {
	hooks []Hook
	log   Logger
}

// NewScheduler creates a Scheduler. log may be nil.
func NewScheduler(log Logger, hooks ...Hook) *Scheduler {
	return &Scheduler{hooks: hooks, log: log}
}

func (s *Scheduler) before(c *Cmd, name string) {
	for _, h := range s.hooks {
		h.BeforeStep(c, name)
	}
}

func (s *Scheduler) after(c *Cmd, name string, st Status, err error) {
	for _, h := range s.hooks {
		h.AfterStep(c, name, st, err)
	}
}

// ensureOpen lazily opens the filter at index i the first time the
// scheduler visits it. Returns ErrOpenSkip verbatim so callers can treat
// the node as absent.
func (s *Scheduler) ensureOpen(p *Pipeline, i int) error {
	n := p.nodes[i]
	if n.opened {
		return nil
	}
	state, err := n.filter.Open(p.Cmd)
	if err != nil {
		if errors.Is(err, ErrOpenSkip) {
			return err
		}
		return fmt.Errorf("core: open %q: %w", n.name, err)
	}
	n.state = state
	n.opened = true
	return nil
}

// Run drives the pipeline to completion (a terminal Status) or to an
// Async suspension point, whichever comes first. Calling Run again after
// Async resumes from the same cursor.
func (s *Scheduler) Run(p *Pipeline) (Status, error) {
	p.async = false

	if p.Len() == 0 {
		return Done, nil
	}

	for {
		if p.Cmd.Stopped() {
			p.closeAll()
			return Done, nil
		}

		if p.cursor < 0 {
			p.cursor = 0
		}
		if p.cursor >= p.Len() {
			// Nothing downstream to consume further output: treat as done.
			p.closeAll()
			return Done, nil
		}

		if err := s.ensureOpen(p, p.cursor); err != nil {
			if errors.Is(err, ErrOpenSkip) {
				// Drop this node from the chain and continue at the same index.
				p.nodes = append(p.nodes[:p.cursor], p.nodes[p.cursor+1:]...)
				continue
			}
			p.closeAll()
			return SysErr, err
		}

		n := p.nodes[p.cursor]
		s.before(p.Cmd, n.name)
		st, mut, err := n.filter.Process(n.state, p.Cmd)
		s.after(p.Cmd, n.name, st, err)

		if err != nil {
			p.closeAll()
			return st, err
		}

		switch st {
		case More:
			if p.cursor > 0 {
				p.cursor--
				// The bytes just handed to n came from the upstream filter's
				// last Data hop; once n has consumed them and still wants
				// more, they are stale and must not be replayed into the
				// filter we're stepping back into.
				p.Cmd.In = nil
			}
			// cursor == 0: the head filter needs more of its own external
			// input; re-invoke it on the next loop iteration.

		case Data:
			next := p.cursor + 1
			if next >= p.Len() {
				p.closeAll()
				return Done, nil
			}
			p.Cmd.In = p.Cmd.Out
			p.Cmd.Out = nil
			p.cursor = next

		case OutputDone:
			p.Cmd.Input.Last = true
			n.done = true
			next := p.cursor + 1
			if next >= p.Len() {
				p.closeAll()
				return Done, nil
			}
			p.cursor = next

		case NextDone:
			caller := p.cursor
			next := caller + 1
			if next < p.Len() {
				if err := s.ensureOpen(p, next); err == nil {
					dn := p.nodes[next]
					s.before(p.Cmd, dn.name)
					_, _, _ = dn.filter.Process(dn.state, p.Cmd)
					s.after(p.Cmd, dn.name, Data, nil)
				}
			}
			// undocumented when no downstream exists (spec §9 open question):
			// this implementation degrades NextDone with no sink to Done.
			if next >= p.Len() {
				p.closeAll()
				return Done, nil
			}
			p.cursor = caller

		case Back:
			newCursor, merr := p.apply(p.cursor, mut)
			if merr != nil {
				p.closeAll()
				return Err, merr
			}
			p.cursor = newCursor

		case Async:
			p.async = true
			return Async, nil

		case Done, Fin:
			p.closeAll()
			return st, nil

		case Err, SysErr:
			p.closeAll()
			return st, fmt.Errorf("core: filter %q returned %s", n.name, st)

		default:
			p.closeAll()
			return Err, fmt.Errorf("core: filter %q returned unknown status %d", n.name, st)
		}
	}
}
