package match

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	text    string
	matches map[string]*Match
}

func (f fakeSource) Slice(start, end int) string { return f.text[start:end] }

func (f fakeSource) Lookup(id string) (*Match, bool) {
	m, ok := f.matches[id]
	return m, ok
}

func newSource(text string, ms ...*Match) fakeSource {
	src := fakeSource{text: text, matches: map[string]*Match{}}
	for _, m := range ms {
		src.matches[m.ID] = m
	}
	return src
}

func TestForkIsolatesAccumulators(t *testing.T) {
	st := NewState(0)
	st.Capture("k", "a")
	st.AddData("k", Value{Text: "a"}, false)
	st.Depend("dep-1")

	left := st.Fork(1, 1)
	right := st.Fork(1, 2)

	left.Capture("k", "left")
	left.AddData("k", Value{Text: "left"}, false)
	left.Depend("dep-left")
	left.Assume(0, 1, "X", 1)

	right.Capture("k", "right")
	right.Depend("dep-right")

	assert.Equal(t, []string{"a"}, st.Captures["k"])
	assert.Equal(t, []string{"a", "left"}, left.Captures["k"])
	assert.Equal(t, []string{"a", "right"}, right.Captures["k"])
	assert.Equal(t, []string{"dep-1"}, st.DependsOn)
	assert.Equal(t, []string{"dep-1", "dep-right"}, right.DependsOn)
	assert.Empty(t, st.Assumptions)
	assert.Empty(t, right.Assumptions)
	assert.Len(t, st.Data.Get("k"), 1)
	assert.Len(t, left.Data.Get("k"), 2)

	assert.Equal(t, 1, left.Cursor)
	assert.Equal(t, 2, right.Cursor)
	assert.Equal(t, 1, left.RuleCursor)
	assert.Equal(t, 0, left.Start)
}

func TestForkSliceAppendDoesNotAlias(t *testing.T) {
	st := NewState(0)
	// leave spare capacity in the parent slice
	st.DependsOn = make([]string, 1, 8)
	st.DependsOn[0] = "root"

	a := st.Fork(0, 0)
	b := st.Fork(0, 0)
	a.Depend("a")
	b.Depend("b")

	assert.Equal(t, []string{"root", "a"}, a.DependsOn)
	assert.Equal(t, []string{"root", "b"}, b.DependsOn)
}

func TestFinalizeUnconfirmed(t *testing.T) {
	st := NewState(0)
	assert.Nil(t, st.Finalize(newSource("ab"), "Pair", 1))
}

func TestFinalizeWeightPropagation(t *testing.T) {
	dep := NewMatch("Half", "a", 0, 1, 0.5)
	src := newSource("ab", dep)

	st := NewState(0)
	st.Depend(dep.ID)
	st.Confirm(2)

	out := st.Finalize(src, "Pair", 1.0)
	require.Len(t, out, 1)
	main := out[0]
	assert.Equal(t, "Pair", main.Concept)
	assert.Equal(t, "ab", main.Value)
	assert.Equal(t, 0, main.Start)
	assert.Equal(t, 2, main.Size)
	assert.LessOrEqual(t, main.Weight, 0.5)
	assert.Equal(t, Confirmed, main.Kind)
	assert.Nil(t, main.Structure)
}

func TestFinalizeSkipsMissingDependencyWeight(t *testing.T) {
	st := NewState(0)
	st.Depend("gone")
	st.Confirm(1)

	out := st.Finalize(newSource("a"), "X", 0.8)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.8, out[0].Weight, 1e-9)
	assert.Equal(t, []string{"gone"}, out[0].DependsOn)
}

func TestFinalizeAssumptions(t *testing.T) {
	st := NewState(0)
	st.Assume(1, 3, "Name", 0.7)
	st.Assume(0, 1, "Title", 1)
	st.Confirm(3)

	out := st.Finalize(newSource("abc"), "Person", 0.9)
	require.Len(t, out, 3)
	main := out[0]
	for _, assumed := range out[1:] {
		assert.True(t, assumed.IsAssumed())
		assert.Equal(t, []string{main.ID}, assumed.DependsOn)
		assert.LessOrEqual(t, assumed.Weight, main.Weight)
	}
	assert.Equal(t, "bc", out[1].Value)
	assert.InDelta(t, 0.7, out[1].Weight, 1e-9)
	assert.InDelta(t, 0.9, out[2].Weight, 1e-9)
	assert.NotEqual(t, out[1].ID, out[2].ID)
}

func TestFinalizeStructure(t *testing.T) {
	st := NewState(0)
	st.AddData("first", Value{Text: "a"}, false)
	st.AddData("rest", Value{Text: "b"}, true)
	st.AddData("first", Value{Text: "c"}, false)
	st.Confirm(3)

	out := st.Finalize(newSource("abc"), "Triple", 1)
	require.NotNil(t, out[0].Structure)
	assert.Equal(t, "Triple", out[0].Structure.Concept)

	raw, err := json.Marshal(out[0].Structure)
	require.NoError(t, err)
	assert.JSONEq(t, `{"concept":"Triple","data":{"first":["a","c"],"rest":["b"]}}`, string(raw))

	// mutations after finalize do not leak into the match
	st.AddData("late", Value{Text: "x"}, false)
	assert.Equal(t, 2, out[0].Structure.Data.Len())
}

func TestMatchString(t *testing.T) {
	m := NewMatch("Word", "hi", 0, 2, 1)
	assert.Equal(t, `<Word "hi" [2]>`, m.String())
	m.Weight = 0.5
	assert.Equal(t, `<Word "hi" [2] 50%>`, m.String())
	assert.Equal(t, Slot{0, 2}, m.Slot())
}

func TestNewMatchClampsWeight(t *testing.T) {
	assert.Equal(t, 1.0, NewMatch("X", "", 0, 1, 3).Weight)
	assert.Equal(t, 0.0, NewMatch("X", "", 0, 1, -1).Weight)
}
