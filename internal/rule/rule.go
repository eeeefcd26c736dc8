package rule

import (
	"github.com/agi-now/hpat/internal/hierarchy"
	"github.com/agi-now/hpat/internal/match"
	"github.com/agi-now/hpat/internal/sequence"
)

// Inside returns the concept the rule must nest in.
func (r *Rule) Inside() string { return r.In }

// #region match
// Match explores every way the elements can be consumed from st and
// returns the finalized matches of each non-empty completion.
func (r *Rule) Match(seq *sequence.Sequence, st *match.State, h hierarchy.Provider) []*match.Match {
	var out []*match.Match
	r.walk(seq, st, h, &out)
	return out
}

func (r *Rule) walk(seq *sequence.Sequence, st *match.State, h hierarchy.Provider, out *[]*match.Match) {
	if st.RuleCursor == len(r.Elements) {
		if st.Cursor > st.Start {
			st.Confirm(st.Cursor)
			*out = append(*out, st.Finalize(seq, r.Concept, r.weight())...)
		}
		return
	}

	el := r.Elements[st.RuleCursor]
	if el.Optional {
		r.walk(seq, st.Fork(1, 0), h, out)
	}
	r.consume(seq, st, el, h, out)
}

// consume takes one occurrence of el. A repeated element then either takes
// another occurrence or hands over to the next element.
func (r *Rule) consume(seq *sequence.Sequence, st *match.State, el Element, h hierarchy.Provider, out *[]*match.Match) {
	for _, stp := range steps(seq, st.Cursor, el, h) {
		next := st.Fork(0, stp.size)
		stp.apply(next, st.Cursor, el)
		if el.Many {
			r.consume(seq, next, el, h, out)
		}
		r.walk(seq, next.Fork(1, 0), h, out)
	}
}

// #endregion match

// #region steps
type step struct {
	size    int
	value   string
	dep     string
	nested  *match.Structure
	assumed bool
}

func (s step) apply(st *match.State, at int, el Element) {
	if s.dep != "" {
		st.Depend(s.dep)
	}
	if s.assumed {
		st.Assume(at, at+s.size, el.Concept, el.assumeWeight())
	}
	if el.Capture == "" {
		return
	}
	st.Capture(el.Capture, s.value)
	v := match.Value{Text: s.value}
	if s.nested != nil {
		v = match.Value{Nested: s.nested.Clone()}
	}
	st.AddData(el.Capture, v, el.Many)
}

// steps lists every way el can consume input starting at position at.
func steps(seq *sequence.Sequence, at int, el Element, h hierarchy.Provider) []step {
	if at >= seq.Len() {
		return nil
	}

	var out []step
	switch {
	case el.Any:
		out = append(out, step{size: 1, value: seq.Slice(at, at+1)})

	case el.Text != "":
		for end := at + 1; end <= seq.Len(); end++ {
			v := seq.Slice(at, end)
			if v == el.Text {
				out = append(out, step{size: end - at, value: v})
				break
			}
			if len(v) >= len(el.Text) {
				break
			}
		}

	case el.Concept != "":
		for _, m := range seq.MatchesAt(at) {
			if m.Start != at || !hierarchy.IsA(h, m.Concept, el.Concept) {
				continue
			}
			out = append(out, step{size: m.Size, value: m.Value, dep: m.ID, nested: m.Structure})
		}
		if el.Assume && len(out) == 0 {
			for end := at + 1; end <= seq.Len(); end++ {
				out = append(out, step{size: end - at, value: seq.Slice(at, end), assumed: true})
			}
		}
	}
	return out
}

// #endregion steps
