package trace

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"bool", true, "true"},
		{"int slice", []int{3, 1, 2}, "[3,1,2]"},
		{"empty int slice", []int{}, "[]"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"sorted keys", map[string]any{"zebra": 1, "alpha": 2, "beta": 3}, `{"alpha":2,"beta":3,"zebra":1}`},
		{"nested", map[string]any{"z": map[string]any{"b": 1, "a": 2}, "a": []any{"x"}}, `{"a":["x"],"z":{"a":2,"b":1}}`},
		{"no html escape", "<a&b>", `"<a&b>"`},
		{"control escaped", "a\nb", `"a\nb"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonicalRejects(t *testing.T) {
	for name, v := range map[string]any{
		"nil":         nil,
		"float":       1.5,
		"nested null": map[string]any{"a": nil},
		"struct":      struct{}{},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MarshalCanonical(v)
			assert.Error(t, err)
		})
	}
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to a single code point.
	got, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(got))

	// A literal backslash followed by the text u2028 stays escaped.
	got, err = MarshalCanonical(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(got))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 byte order but after it in
	// UTF-16 code units, since the emoji encodes as a 0xD83D surrogate.
	got, err := MarshalCanonical(map[string]any{"\U0001F600": 1, "\uFF61": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uFF61\":2}", string(got))
}

func sampleSteps() []Step {
	return []Step{
		{
			Seq:     1,
			Clock:   1,
			Moves:   []Move{{Ion: 0, From: 10, To: 12, Kind: "stride"}},
			Evicted: -1,
			Parking: nil,
		},
		{
			Seq:       2,
			Clock:     4,
			Buffer:    3,
			Fired:     &Firing{Node: 0, Operands: []int{0, 1}, Cost: 3},
			Evicted:   2,
			Parking:   []int{0, 1},
			Remaining: 1,
		},
	}
}

func TestStepCanonical(t *testing.T) {
	steps := sampleSteps()

	b, err := steps[0].Canonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"buffer":0,"clock":1,"moves":[{"from":10,"ion":0,"kind":"stride","to":12}],"parking":[],"remaining":0,"rollbacks":0,"seq":1}`,
		string(b))

	b, err = steps[1].Canonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"buffer":3,"clock":4,"evicted":2,"fired":{"cost":3,"node":0,"operands":[0,1]},"moves":[],"parking":[0,1],"remaining":1,"rollbacks":0,"seq":2}`,
		string(b))
}

func TestStepUnmarshalDefaultsEvicted(t *testing.T) {
	b, err := sampleSteps()[0].Canonical()
	require.NoError(t, err)

	var s Step
	require.NoError(t, json.Unmarshal(b, &s))
	assert.Equal(t, -1, s.Evicted)
	assert.Nil(t, s.Fired)
	assert.Equal(t, []Move{{Ion: 0, From: 10, To: 12, Kind: "stride"}}, s.Moves)

	b, err = sampleSteps()[1].Canonical()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &s))
	assert.Equal(t, 2, s.Evicted)
	require.NotNil(t, s.Fired)
	assert.Equal(t, []int{0, 1}, s.Fired.Operands)
}

func TestMarshalSteps(t *testing.T) {
	out, err := MarshalSteps(sampleSteps())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], `{"buffer":0`))
	assert.Contains(t, lines[1], `"seq":2`)
}

func TestDigest(t *testing.T) {
	d1, err := Digest(sampleSteps())
	require.NoError(t, err)
	d2, err := Digest(sampleSteps())
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)

	changed := sampleSteps()
	changed[1].Clock = 5
	d3, err := Digest(changed)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)

	empty, err := Digest(nil)
	require.NoError(t, err)
	assert.Equal(t, hashWithDomain(DomainTrace, []byte("[]")), empty)
}

func TestHashWithDomainSeparation(t *testing.T) {
	assert.NotEqual(t,
		hashWithDomain("a", []byte("bc")),
		hashWithDomain("ab", []byte("c")))
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	for _, s := range sampleSteps() {
		require.NoError(t, r.Record(s))
	}
	assert.Equal(t, 2, r.Len())

	steps := r.Steps()
	steps[0].Clock = 99
	assert.Equal(t, 1, r.Steps()[0].Clock)

	got, err := r.Digest()
	require.NoError(t, err)
	want, err := Digest(sampleSteps())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
