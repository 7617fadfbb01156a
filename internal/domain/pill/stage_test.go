package pill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Stage
		want     bool
	}{
		{StageReceived, StageResolving, true},
		{StageResolving, StageCacheHit, true},
		{StageResolving, StageCacheMiss, true},
		{StageResolving, StageFailed, true},
		{StageCacheHit, StageExplaining, true},
		{StageCacheMiss, StageFetching, true},
		{StageFetching, StageCaching, true},
		{StageFetching, StageFailed, true},
		{StageCaching, StageExplaining, true},
		{StageExplaining, StageDone, true},
		{StageReceived, StageDone, false},
		{StageCacheHit, StageFetching, false},
		{StageDone, StageResolving, false},
		{StageFailed, StageResolving, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTrace_MissPath(t *testing.T) {
	tr := NewTrace()
	for _, s := range []Stage{StageResolving, StageCacheMiss, StageFetching, StageCaching, StageExplaining, StageDone} {
		require.NoError(t, tr.Advance(s))
	}
	assert.Equal(t, StageDone, tr.Current())
	assert.Len(t, tr.Stages(), 7)
	assert.Equal(t, "received -> resolving -> cache_miss -> fetching -> caching -> explaining -> done", tr.String())
}

func TestTrace_IllegalTransition(t *testing.T) {
	tr := NewTrace()
	err := tr.Advance(StageExplaining)
	assert.Error(t, err)
	assert.Equal(t, StageReceived, tr.Current())
}

func TestTrace_Fail(t *testing.T) {
	tr := NewTrace()
	require.NoError(t, tr.Advance(StageResolving))
	tr.Fail("not found")
	assert.Equal(t, StageFailed, tr.Current())
	assert.Equal(t, "not found", tr.Reason())

	tr.Fail("again")
	assert.Equal(t, "not found", tr.Reason())
	assert.Len(t, tr.Stages(), 3)
}

//Personal.AI order the ending
