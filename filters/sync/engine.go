package sync

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// State names one outcome of comparing a left/right entry pair, per spec
// §4.6's set {equal, only-left, only-right, newer, older, smaller,
// larger, attr-diff, moved/renamed}. A single Result may combine a base
// state with AttrDiff (spec §8 scenario 6: "equal + attr-diff").
type State int

const (
	Equal State = iota
	OnlyLeft
	OnlyRight
	Newer
	Older
	Smaller
	Larger
	Moved
)

func (s State) String() string {
	switch s {
	case Equal:
		return "equal"
	case OnlyLeft:
		return "only-left"
	case OnlyRight:
		return "only-right"
	case Newer:
		return "newer"
	case Older:
		return "older"
	case Smaller:
		return "smaller"
	case Larger:
		return "larger"
	case Moved:
		return "moved"
	default:
		return "unknown"
	}
}

// Result is one outcome of the tree comparison.
type Result struct {
	Left, Right *Entry
	State       State
	AttrDiff    bool
}

func (r Result) String() string {
	name := r.Left.Name
	if name == "" && r.Right != nil {
		name = r.Right.Name
	}
	if r.AttrDiff {
		return fmt.Sprintf("%s: %s + attr-diff", name, r.State)
	}
	return fmt.Sprintf("%s: %s", name, r.State)
}

// Compare walks two Trees with parallel cursors over their sorted entry
// names (spec §4.6: "the sync engine then walks two trees with parallel
// cursors"), then runs rename detection over whatever is left unmatched
// on both sides.
func Compare(left, right *Tree) []Result {
	var results []Result
	var onlyLeft, onlyRight []*Entry

	li, ri := 0, 0
	lo, ro := sortedNames(left), sortedNames(right)

	for li < len(lo) && ri < len(ro) {
		ln, rn := lo[li], ro[ri]
		switch {
		case ln < rn:
			onlyLeft = append(onlyLeft, left.Entries[ln])
			li++
		case ln > rn:
			onlyRight = append(onlyRight, right.Entries[rn])
			ri++
		default:
			le, re := left.Entries[ln], right.Entries[rn]
			results = append(results, comparePair(le, re))
			li++
			ri++
		}
	}
	for ; li < len(lo); li++ {
		onlyLeft = append(onlyLeft, left.Entries[lo[li]])
	}
	for ; ri < len(ro); ri++ {
		onlyRight = append(onlyRight, right.Entries[ro[ri]])
	}

	renamed, onlyLeft, onlyRight := detectRenames(onlyLeft, onlyRight)
	results = append(results, renamed...)

	for _, e := range onlyLeft {
		results = append(results, Result{Left: e, Right: &Entry{}, State: OnlyLeft})
	}
	for _, e := range onlyRight {
		results = append(results, Result{Left: &Entry{}, Right: e, State: OnlyRight})
	}

	sort.Slice(results, func(i, j int) bool {
		return resultName(results[i]) < resultName(results[j])
	})
	return results
}

func resultName(r Result) string {
	if r.Left != nil && r.Left.Name != "" {
		return r.Left.Name
	}
	return r.Right.Name
}

func sortedNames(t *Tree) []string {
	names := make([]string, 0, len(t.Entries))
	for n := range t.Entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// comparePair classifies a pair of entries present on both sides,
// preferring size/mtime-derived states over a bare attribute check —
// attribute differences are layered on top via Result.AttrDiff rather
// than excluding Equal (spec §8 scenario 6).
func comparePair(l, r *Entry) Result {
	res := Result{Left: l, Right: r}

	switch {
	case l.CRC32 != r.CRC32 && l.Size == r.Size:
		// Same size, different content: classify by mtime, since content
		// alone gives no size-ordering signal.
		res.State = timeState(l, r)
	case l.Size < r.Size:
		res.State = Smaller
	case l.Size > r.Size:
		res.State = Larger
	case !l.MTime.Equal(r.MTime):
		res.State = timeState(l, r)
	default:
		res.State = Equal
	}

	if l.UnixAttr != r.UnixAttr || l.WinAttr != r.WinAttr {
		res.AttrDiff = true
	}
	return res
}

func timeState(l, r *Entry) State {
	if l.MTime.After(r.MTime) {
		return Newer
	}
	if l.MTime.Before(r.MTime) {
		return Older
	}
	return Equal
}

// renameKey hashes the (size, mtime-bucket) pair used to propose rename
// candidates (spec §4.6). xxhash is used for speed since this key is
// computed for every unmatched entry on both sides.
func renameKey(e *Entry) uint64 {
	var buf [16]byte
	b := uint64(e.Size)
	m := uint64(e.MTimeBucket())
	for i := 0; i < 8; i++ {
		buf[i] = byte(b >> (8 * i))
		buf[8+i] = byte(m >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}

// detectRenames pairs unmatched left/right entries that share a
// (size, mtime-bucket) key, preferring an exact name-hash match when
// more than one candidate shares that key (spec §4.6: "name match
// preferred"). Returns the renamed pairs plus whatever remains
// genuinely only-left/only-right.
func detectRenames(onlyLeft, onlyRight []*Entry) (renamed []Result, restLeft, restRight []*Entry) {
	byKey := make(map[uint64][]*Entry, len(onlyRight))
	for _, e := range onlyRight {
		k := renameKey(e)
		byKey[k] = append(byKey[k], e)
	}

	usedRight := make(map[string]bool, len(onlyRight))

	for _, le := range onlyLeft {
		candidates := byKey[renameKey(le)]
		if len(candidates) == 0 {
			restLeft = append(restLeft, le)
			continue
		}

		// Prefer an exact basename match among same-key candidates.
		var best *Entry
		for _, c := range candidates {
			if usedRight[c.Name] {
				continue
			}
			if best == nil {
				best = c
			}
			if baseOf(c.Name) == baseOf(le.Name) {
				best = c
				break
			}
		}
		if best == nil {
			restLeft = append(restLeft, le)
			continue
		}

		usedRight[best.Name] = true
		renamed = append(renamed, Result{Left: le, Right: best, State: Moved})
	}

	for _, re := range onlyRight {
		if !usedRight[re.Name] {
			restRight = append(restRight, re)
		}
	}
	return renamed, restLeft, restRight
}

func baseOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}
