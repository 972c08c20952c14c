package core

import "fmt"

// node is one entry in a Pipeline's filter chain.
type node struct {
	name   string
	filter Filter
	state  any
	opened bool
	// done marks a filter that returned OutputDone. The scheduler sets it
	// but does not read it: a later More still steps back into the node.
	done bool
}

// Pipeline is the runtime instantiation of an operation: an ordered,
// mutable chain of filter instances plus the command context they share.
// Insertions happen only through the mutation effects filters return from
// Process (see Mutation), applied by the Scheduler between steps.
type Pipeline struct {
	Cmd   *Cmd
	nodes []*node

	// factories resolves a filter name to a constructor for BACK/insert
	// mutations issued by name rather than by direct FilterFactory value.
	factories map[string]FilterFactory

	cursor  int
	forward bool
	async   bool
	torndow bool
}

// NewPipeline creates an empty pipeline bound to cmd.
func NewPipeline(cmd *Cmd) *Pipeline {
	return &Pipeline{
		Cmd:       cmd,
		factories: make(map[string]FilterFactory),
		forward:   true,
	}
}

// RegisterFactory makes name resolvable by filters that request a
// by-name chain mutation (e.g. an archive reader's BACK request for a
// named decompressor).
func (p *Pipeline) RegisterFactory(name string, f FilterFactory) {
	p.factories[name] = f
}

// Append adds a filter at the tail of the chain.
func (p *Pipeline) Append(name string, f Filter) {
	p.nodes = append(p.nodes, &node{name: name, filter: f})
}

// Prepend adds a filter at the head of the chain.
func (p *Pipeline) Prepend(name string, f Filter) {
	p.nodes = append([]*node{{name: name, filter: f}}, p.nodes...)
	if p.cursor >= 0 {
		p.cursor++
	}
}

// insertAt inserts a filter at position i, shifting the cursor if the
// insertion happens at or before it.
func (p *Pipeline) insertAt(i int, name string, f Filter) {
	n := &node{name: name, filter: f}
	p.nodes = append(p.nodes, nil)
	copy(p.nodes[i+1:], p.nodes[i:])
	p.nodes[i] = n
	if i <= p.cursor {
		p.cursor++
	}
}

// Len reports the number of filters currently in the chain.
func (p *Pipeline) Len() int { return len(p.nodes) }

// resolve builds a Filter from a Mutation, by name or by factory.
func (p *Pipeline) resolve(m Mutation) (string, Filter, error) {
	if m.Factory != nil {
		return m.Name, m.Factory(), nil
	}
	factory, ok := p.factories[m.Name]
	if !ok {
		return "", nil, fmt.Errorf("core: no filter factory registered for %q", m.Name)
	}
	return m.Name, factory(), nil
}

// apply performs the chain mutation requested alongside callerIdx's last
// Process call, returning the index the scheduler should resume at.
func (p *Pipeline) apply(callerIdx int, m Mutation) (int, error) {
	switch m.Kind {
	case MutNone:
		return callerIdx, nil
	case MutInsertBefore:
		name, f, err := p.resolve(m)
		if err != nil {
			return callerIdx, err
		}
		p.insertAt(callerIdx, name, f)
		return callerIdx, nil // new filter now occupies callerIdx; caller shifted to callerIdx+1
	case MutInsertAfter:
		name, f, err := p.resolve(m)
		if err != nil {
			return callerIdx, err
		}
		p.insertAt(callerIdx+1, name, f)
		return callerIdx, nil
	case MutAppend:
		name, f, err := p.resolve(m)
		if err != nil {
			return callerIdx, err
		}
		p.Append(name, f)
		return callerIdx, nil
	case MutPrepend:
		name, f, err := p.resolve(m)
		if err != nil {
			return callerIdx, err
		}
		p.Prepend(name, f)
		return callerIdx, nil
	default:
		return callerIdx, fmt.Errorf("core: unknown mutation kind %d", m.Kind)
	}
}

// closeAll calls Close on every opened filter in reverse-insertion order,
// per the teardown invariant: the number of Close calls equals the number
// of successful Open calls.
func (p *Pipeline) closeAll() {
	if p.torndow {
		return
	}
	p.torndow = true
	for i := len(p.nodes) - 1; i >= 0; i-- {
		n := p.nodes[i]
		if n.opened {
			n.filter.Close(n.state, p.Cmd)
			n.opened = false
		}
	}
}
