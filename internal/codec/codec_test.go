package codec

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causetrail/internal/cause"
)

func sampleChain(t *testing.T) cause.Chain {
	t.Helper()
	leaf, err := cause.RestoreUpstream("a", 1, "", cause.NewChain(cause.UserCause("foo"), cause.SystemUserCause()))
	require.NoError(t, err)
	mid, err := cause.RestoreUpstream("b", 2, "", cause.NewChain(leaf, cause.TimerCause{}))
	require.NoError(t, err)
	return cause.NewChain(
		mid,
		cause.AnonymousUserCause(),
		cause.RemoteCause{Addr: "10.0.0.1", Note: "nightly"},
		cause.SCMCause{Note: "push"},
		cause.ManualCause{Note: "by hand"},
	)
}

func TestEncode_NestedShape(t *testing.T) {
	leaf, err := cause.RestoreUpstream("a", 1, "", cause.NewChain(cause.TimerCause{}))
	require.NoError(t, err)

	data, err := Encode(cause.NewChain(leaf))
	require.NoError(t, err)
	assert.Equal(t,
		`[{"kind":"upstream","project":"a","build":1,"url":"job/a/","causes":[{"kind":"timer"}]}]`,
		string(data))
}

func TestEncode_UserIDStates(t *testing.T) {
	data, err := Encode(cause.NewChain(cause.AnonymousUserCause(), cause.SystemUserCause(), cause.UserCause("x")))
	require.NoError(t, err)
	assert.Equal(t,
		`[{"kind":"user"},{"kind":"user","user_id":""},{"kind":"user","user_id":"x"}]`,
		string(data))
}

func TestEncode_EmptyChain(t *testing.T) {
	data, err := Encode(cause.Chain{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDecode_Inverse(t *testing.T) {
	want := sampleChain(t)

	data, err := Encode(want)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, cause.Diff(want, got))
}

func TestDecode_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "  ", "null", "[]"} {
		got, err := Decode([]byte(in))
		require.NoError(t, err, "input %q", in)
		assert.True(t, got.IsEmpty())
	}
}

func TestDecode_LegacyOutOfPolicy(t *testing.T) {
	// 40 levels deep and 300 roots wide: far beyond the default policy.
	nested := `[{"kind":"manual"}]`
	for i := 1; i <= 40; i++ {
		nested = `[{"kind":"upstream","project":"old","build":` + strconv.Itoa(i) + `,"causes":` + nested + `}]`
	}
	var roots []string
	for i := 0; i < 300; i++ {
		roots = append(roots, `{"kind":"timer"}`)
	}
	data := `[` + strings.TrimSuffix(strings.TrimPrefix(nested, "["), "]") + "," + strings.Join(roots, ",") + `]`

	got, err := Decode([]byte(data))
	require.NoError(t, err)

	stats := cause.Measure(got)
	assert.Equal(t, 301, stats.Roots)
	assert.Equal(t, 40, stats.Depth)

	// URL is filled in for records that predate it.
	up, ok := cause.Find[cause.UpstreamCause](got)
	require.True(t, ok)
	assert.Equal(t, "job/old/", up.URL())

	// The next chain built from it is bounded again.
	bounded := cause.DefaultPolicy().Apply(got.Causes())
	assert.LessOrEqual(t, cause.Measure(bounded).Depth, cause.DefaultMaxDepth)
	assert.Equal(t, cause.DefaultMaxCauses, bounded.Len())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		path    string
		message string
	}{
		{"malformed", `[{"kind":`, "", "malformed record"},
		{"not a list", `{"kind":"timer"}`, "", "malformed record"},
		{"missing kind", `[{}]`, "[0]", "missing kind"},
		{"unknown kind", `[{"kind":"timer"},{"kind":"webhook"}]`, "[1]", `unknown kind "webhook"`},
		{"nested unknown", `[{"kind":"upstream","project":"a","build":1,"causes":[{"kind":"x"}]}]`, "[0].causes[0]", `unknown kind "x"`},
		{"upstream without project", `[{"kind":"upstream","build":1}]`, "[0]", "invalid upstream reference"},
		{"upstream without build", `[{"kind":"upstream","project":"a"}]`, "[0]", "invalid upstream reference"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			require.Error(t, err)
			var de *DecodeError
			require.True(t, errors.As(err, &de), "got %T", err)
			assert.Equal(t, tt.path, de.Path)
			assert.Contains(t, de.Error(), tt.message)
		})
	}
}

func TestDecode_InvalidUpstreamWrapsInvalidArgument(t *testing.T) {
	_, err := Decode([]byte(`[{"kind":"upstream","project":"a","build":0}]`))
	assert.ErrorIs(t, err, cause.ErrInvalidArgument)
}
