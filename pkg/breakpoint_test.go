package pycore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	pycore "go.pycore.dev/pkg"
)

func TestBreakpointSetAddHitAndRemove(t *testing.T) {
	set := pycore.NewBreakpointSet()
	var events []pycore.BreakpointEvent
	set.OnEvent(func(ev pycore.BreakpointEvent) { events = append(events, ev) })

	id := set.Add("a.py", 7)
	require.Len(t, events, 1)
	require.Equal(t, pycore.BreakpointAdded, events[0].Kind)

	bp, ok := set.Lookup("a.py", 7)
	require.True(t, ok)
	require.Equal(t, id, bp.ID)
	require.True(t, bp.Enabled)

	_, halt := set.Hit("a.py", 7)
	require.True(t, halt)
	require.EqualValues(t, 1, bp.Hits())

	require.True(t, set.Remove("a.py", id))
	_, ok = set.Lookup("a.py", 7)
	require.False(t, ok)
}

func TestBreakpointHitRespectsIgnoreThresholds(t *testing.T) {
	set := pycore.NewBreakpointSet()
	id := set.Add("a.py", 10)
	require.True(t, set.SetIgnoreTo("a.py", id, 3))
	require.True(t, set.SetIgnoreFrom("a.py", id, 4))

	_, halt := set.Hit("a.py", 10)
	require.False(t, halt, "hit 1 is below ignore-to")
	_, halt = set.Hit("a.py", 10)
	require.False(t, halt, "hit 2 is below ignore-to")
	_, halt = set.Hit("a.py", 10)
	require.True(t, halt, "hit 3 reaches ignore-to")
	_, halt = set.Hit("a.py", 10)
	require.True(t, halt, "hit 4 is still within ignore-from")
	_, halt = set.Hit("a.py", 10)
	require.False(t, halt, "hit 5 has passed ignore-from")
}

func TestBreakpointConditionDefersHitCounting(t *testing.T) {
	set := pycore.NewBreakpointSet()
	id := set.Add("a.py", 5)
	require.True(t, set.SetCondition("a.py", id, "i == 5"))

	_, halt := set.Hit("a.py", 5)
	require.True(t, halt, "a conditioned, enabled breakpoint always reports halt; evaluation is the caller's job")
}

func TestBreakpointSerializeRoundTrips(t *testing.T) {
	set := pycore.NewBreakpointSet()
	id1 := set.Add("a.py", 3)
	id2 := set.Add("a.py", 9)
	set.SetCondition("a.py", id2, "x == 1")
	set.SetIgnoreTo("a.py", id1, 2)

	data, err := set.Serialize("a.py")
	require.NoError(t, err)

	restored := pycore.NewBreakpointSet()
	require.NoError(t, restored.Deserialize(data))

	bp1, ok := restored.Lookup("a.py", 3)
	require.True(t, ok)
	require.Equal(t, id1, bp1.ID)
	require.EqualValues(t, 2, bp1.IgnoreTo)

	bp2, ok := restored.Lookup("a.py", 9)
	require.True(t, ok)
	require.Equal(t, id2, bp2.ID)
	require.Equal(t, "x == 1", bp2.Condition)
}

func TestBreakpointDeserializeRejectsUnknownVersion(t *testing.T) {
	set := pycore.NewBreakpointSet()
	set.Add("a.py", 1)
	data, err := set.Serialize("a.py")
	require.NoError(t, err)

	data[1] = 0xFF // corrupt the low byte of the big-endian version field
	require.Error(t, pycore.NewBreakpointSet().Deserialize(data))
}
