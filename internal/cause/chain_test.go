package cause

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_ZeroValue(t *testing.T) {
	var c Chain
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Causes())
	assert.Empty(t, c.Upstreams())
	assert.Equal(t, Stats{}, Measure(c))
}

func TestRestore_DropsNil(t *testing.T) {
	c := Restore([]Cause{nil, TimerCause{}, nil, ManualCause{}})
	require.Equal(t, 2, c.Len())
	assert.Equal(t, TimerCause{}, c.At(0))
	assert.Equal(t, ManualCause{}, c.At(1))
}

func TestFind(t *testing.T) {
	up, err := RestoreUpstream("a", 3, "", Chain{})
	require.NoError(t, err)
	c := NewChain(TimerCause{}, UserCause("foo"), up, UserCause("bar"))

	user, ok := Find[UserIDCause](c)
	require.True(t, ok)
	id, _ := user.UserID()
	assert.Equal(t, "foo", id)

	found, ok := Find[UpstreamCause](c)
	require.True(t, ok)
	assert.True(t, found.PointsTo("a", 3))

	_, ok = Find[RemoteCause](c)
	assert.False(t, ok)
}

func TestUpstreams(t *testing.T) {
	a, _ := RestoreUpstream("a", 1, "", Chain{})
	b, _ := RestoreUpstream("b", 2, "", Chain{})
	c := NewChain(a, TimerCause{}, b)

	ups := c.Upstreams()
	require.Len(t, ups, 2)
	assert.Equal(t, "a", ups[0].Project())
	assert.Equal(t, "b", ups[1].Project())
}

func TestMeasure(t *testing.T) {
	leaf, _ := RestoreUpstream("leaf", 1, "", NewChain(TimerCause{}))
	mid, _ := RestoreUpstream("mid", 1, "", NewChain(leaf, ManualCause{}))
	other, _ := RestoreUpstream("other", 4, "", Chain{})
	c := NewChain(mid, other, SCMCause{})

	assert.Equal(t, Stats{Roots: 3, Upstreams: 3, Nodes: 6, Depth: 2}, Measure(c))
}

func TestContains(t *testing.T) {
	leaf, _ := RestoreUpstream("leaf", 1, "", Chain{})
	mid, _ := RestoreUpstream("mid", 5, "", NewChain(leaf))
	c := NewChain(mid)

	assert.True(t, Contains(c, "mid", 5))
	assert.True(t, Contains(c, "leaf", 1))
	assert.False(t, Contains(c, "leaf", 2))
}

func TestUserIDCause_States(t *testing.T) {
	_, ok := AnonymousUserCause().UserID()
	assert.False(t, ok)
	assert.False(t, AnonymousUserCause().IsSystem())

	id, ok := SystemUserCause().UserID()
	assert.True(t, ok)
	assert.Equal(t, "", id)
	assert.True(t, SystemUserCause().IsSystem())

	id, ok = UserCause("foo").UserID()
	assert.True(t, ok)
	assert.Equal(t, "foo", id)
	assert.False(t, UserCause("foo").IsSystem())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Chain{}, Restore(nil)))
	assert.True(t, Equal(NewChain(UserCause("a")), NewChain(UserCause("a"))))
	assert.False(t, Equal(NewChain(UserCause("a")), NewChain(UserCause("b"))))
	assert.False(t, Equal(NewChain(AnonymousUserCause()), NewChain(SystemUserCause())))
	assert.NotEmpty(t, Diff(NewChain(TimerCause{}), NewChain(ManualCause{})))
}

func TestRestoreUpstream_Validates(t *testing.T) {
	_, err := RestoreUpstream("", 1, "", Chain{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = RestoreUpstream("a", -1, "", Chain{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	up, err := RestoreUpstream("a", 1, "custom/a/", Chain{})
	require.NoError(t, err)
	assert.Equal(t, "custom/a/", up.URL())
}
