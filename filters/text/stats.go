package text

import (
	"fmt"

	"github.com/gofcom/fcom/core"
)

// StatsState is Stats's private state.
type StatsState struct {
	bytes       int64
	lines       int64
	curLine     int64
	longestLine int64
	sawAnyByte  bool
}

// Stats streams a file and emits line-count and byte-count statistics,
// tracking the longest line seen. A file with no trailing newline still
// counts its final partial line (spec §8: "very large line with no \n:
// longest line = file size, lines = 1").
type Stats struct{}

func (s *Stats) Open(c *core.Cmd) (any, error) { return &StatsState{}, nil }

func (s *Stats) Process(state any, c *core.Cmd) (core.Status, core.Mutation, error) {
	st := state.(*StatsState)

	for _, b := range c.In {
		st.sawAnyByte = true
		st.bytes++
		if b == '\n' {
			st.lines++
			if st.curLine > st.longestLine {
				st.longestLine = st.curLine
			}
			st.curLine = 0
			continue
		}
		st.curLine++
	}

	if !c.Input.Last {
		return core.More, core.NoMutation, nil
	}

	// A trailing partial line (the whole file, if no newline appeared at
	// all) still counts as one line; a truly empty file counts zero.
	if st.sawAnyByte && st.curLine > 0 {
		st.lines++
		if st.curLine > st.longestLine {
			st.longestLine = st.curLine
		}
	}

	c.Out = []byte(fmt.Sprintf("%s: %d bytes, %d lines, longest %d\n",
		c.Input.Name, st.bytes, st.lines, st.longestLine))
	c.Vars["stats.bytes"] = st.bytes
	c.Vars["stats.lines"] = st.lines
	c.Vars["stats.longest"] = st.longestLine
	return core.Data, core.NoMutation, nil
}

func (s *Stats) Close(state any, c *core.Cmd) {}
