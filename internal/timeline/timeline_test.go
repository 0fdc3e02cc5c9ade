package timeline

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfterFiresInDueOrder(t *testing.T) {
	tl := New(nil)
	var order []string

	tl.After(0.3, func() { order = append(order, "c") })
	tl.After(0.1, func() { order = append(order, "a") })
	tl.After(0.2, func() { order = append(order, "b") })

	tl.Step(0.15)
	assert.Equal(t, []string{"a"}, order)

	tl.Step(1)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, tl.Pending())
}

func TestContinuationChainRunsWithoutRecursion(t *testing.T) {
	tl := New(nil)
	count := 0
	const rows = 5000

	var next func()
	next = func() {
		count++
		if count < rows {
			tl.After(0.01, next)
		}
	}
	tl.After(0.01, next)

	// Один большой шаг: вся цепочка исполняется циклом внутри Step
	tl.Step(float64(rows) * 0.01)
	assert.Equal(t, rows, count)
}

func TestContinuationRespectsWindow(t *testing.T) {
	tl := New(nil)
	fired := 0
	var next func()
	next = func() {
		fired++
		tl.After(0.1, next)
	}
	tl.After(0.1, next)

	tl.Step(0.35)
	assert.Equal(t, 3, fired, "в окно 0.35 укладываются вызовы в 0.1, 0.2, 0.3")
	tl.Clear()
	tl.Step(1)
	assert.Equal(t, 3, fired, "после Clear цепочка не продолжается")
}

func TestTweenAppliesAndCompletes(t *testing.T) {
	tl := New(nil)
	pos := mgl64.Vec3{}
	completed := false

	tl.Tween(Vec3Track{Target: &pos, From: mgl64.Vec3{0, 0, 0}, To: mgl64.Vec3{0, 10, 0}}, 1).
		OnComplete(func() { completed = true })

	tl.Step(0.5)
	assert.InDelta(t, 5.0, pos.Y(), 1e-9)
	assert.False(t, completed)

	tl.Step(0.6)
	assert.InDelta(t, 10.0, pos.Y(), 1e-9)
	assert.True(t, completed)
}

func TestTweenDelayAndEase(t *testing.T) {
	tl := New(nil)
	v := 0.0
	tl.Tween(FloatTrack{Target: &v, From: 0, To: 1}, 1).Delay(1).Ease(InQuad)

	tl.Step(0.5)
	assert.Equal(t, 0.0, v, "до старта значение не меняется")
	tl.Step(1.0)
	assert.InDelta(t, 0.25, v, 1e-9)
}

func TestDisposeDetachesFromParent(t *testing.T) {
	root := New(nil)
	child := New(root)
	grandchild := New(child)
	fired := false
	grandchild.After(0.1, func() { fired = true })

	require.Equal(t, 1, root.Children())
	child.Dispose()

	assert.Equal(t, 0, root.Children())
	assert.True(t, grandchild.Disposed())
	root.Step(1)
	assert.False(t, fired, "колбэки уничтоженной шкалы не должны срабатывать")
}

func TestDisposeInsideCallback(t *testing.T) {
	root := New(nil)
	child := New(root)
	secondFired := false
	child.After(0.1, func() { child.Dispose() })
	child.After(0.2, func() { secondFired = true })

	root.Step(1)
	assert.False(t, secondFired)
	assert.Equal(t, 0, root.Children())
}

func TestChildCreatedMidStepGetsRemainder(t *testing.T) {
	root := New(nil)
	var child *Timeline
	fired := false
	root.After(0.6, func() {
		child = New(root)
		child.After(0.5, func() { fired = true })
	})

	root.Step(1.0)
	require.NotNil(t, child)
	assert.False(t, fired, "дочерняя шкала прожила только 0.4 с")

	root.Step(0.2)
	assert.True(t, fired)
}

func TestLoopingTween(t *testing.T) {
	tl := New(nil)
	rot := mgl64.QuatIdent()
	laps := 0
	tl.Tween(AngleTrack{Target: &rot, Base: mgl64.QuatIdent(), Axis: mgl64.Vec3{0, 1, 0}, From: 0, To: 2 * math.Pi}, 1).
		Loop().
		OnComplete(func() { laps++ })

	tl.Step(2.5)
	assert.Equal(t, 2, laps)
	assert.Equal(t, 1, tl.Pending())
}

func TestPausedTimelineDoesNotAdvance(t *testing.T) {
	tl := New(nil)
	fired := false
	tl.After(0.1, func() { fired = true })
	tl.SetPaused(true)
	tl.Step(1)
	assert.False(t, fired)
	tl.SetPaused(false)
	tl.Step(0.1)
	assert.True(t, fired)
}

func TestEaseByName(t *testing.T) {
	f, err := EaseByName("OutBack")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f(1), 1e-9)

	_, err = EaseByName("Wobble")
	assert.Error(t, err)

	fs, err := EasesByName(nil)
	require.NoError(t, err)
	assert.Len(t, fs, 1)
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#FF0080")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.R, 1e-9)
	assert.InDelta(t, 0.0, c.G, 1e-9)
	assert.InDelta(t, 128.0/255, c.B, 1e-9)
	assert.InDelta(t, 1.0, c.A, 1e-9)

	_, err = ParseHexColor("blue")
	assert.Error(t, err)
}
