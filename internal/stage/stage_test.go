package stage

import (
	"math/rand"
	"testing"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	root  *timeline.Timeline
	bus   *event.Bus
	stage *Stage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := timeline.New(nil)
	bus := event.NewBus()
	st, err := New(root, config.Default().Stage, bus, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	return &fixture{root: root, bus: bus, stage: st}
}

func column(rows int, height int) *segment.Segment {
	body := make([][]int, rows)
	for i := range body {
		body[i] = []int{height}
	}
	return &segment.Segment{Name: "column", Body: body}
}

func (f *fixture) run(seconds float64) {
	for seconds > 0 {
		f.root.Step(1.0 / 60)
		seconds -= 1.0 / 60
	}
}

func TestBuildThreeRows(t *testing.T) {
	f := newFixture(t)
	top, _ := f.stage.AddCubes(column(3, 0), 0, nil)
	assert.Equal(t, 3, top)
	assert.Equal(t, 3, f.stage.PendingRows())

	f.stage.StartBuildStage(1, false)
	f.run(2)

	assert.Equal(t, 0, f.stage.ActiveBottomZ())
	assert.Equal(t, 3, f.stage.ActiveTopZ())
	assert.Equal(t, 0, f.stage.PendingRows())
	assert.True(t, f.stage.FinishedBuild())
	assert.False(t, f.stage.Building())
}

func TestStageHeightRange(t *testing.T) {
	f := newFixture(t)
	f.stage.AddCubes(&segment.Segment{Body: [][]int{{0, 1}, {2, -1}}}, 0, nil)
	f.stage.StartBuildStage(1, false)
	f.run(2)

	y, ok := f.stage.StageHeight(vec.Vec3{X: 1, Z: 0})
	assert.True(t, ok)
	assert.Equal(t, 1, y)
	y, ok = f.stage.StageHeight(vec.Vec3{X: 0, Z: 1})
	assert.True(t, ok)
	assert.Equal(t, 2, y)

	_, ok = f.stage.StageHeight(vec.Vec3{X: 1, Z: 1})
	assert.False(t, ok, "пустая ячейка")
	_, ok = f.stage.StageHeight(vec.Vec3{X: 0, Z: -1})
	assert.False(t, ok, "ниже активного диапазона")
	_, ok = f.stage.StageHeight(vec.Vec3{X: 0, Z: 2})
	assert.False(t, ok, "выше активного диапазона")
}

func TestCubeNotRideableWhileBuilding(t *testing.T) {
	f := newFixture(t)
	f.stage.AddCubes(column(1, 0), 0, nil)
	f.stage.StartBuildStage(1, false)

	_, ok := f.stage.StageHeight(vec.Vec3{})
	assert.True(t, ok, "ряд уже активен")
	_, ok = f.stage.RideableHeight(vec.Vec3{})
	assert.False(t, ok, "куб ещё падает на место")

	f.run(1)
	_, ok = f.stage.RideableHeight(vec.Vec3{})
	assert.True(t, ok)
}

func TestRestartDoesNotDuplicateRows(t *testing.T) {
	f := newFixture(t)
	var built []int
	event.On(f.bus, func(ev event.BuildOneLine) { built = append(built, ev.Z) })

	f.stage.AddCubes(column(4, 0), 0, nil)
	f.stage.StartBuildStage(1, true)
	f.stage.StartBuildStage(1, true)
	f.stage.StopBuildAndCollapse()
	f.stage.StartBuildStage(1, true)
	f.stage.StartBuildStage(1, true)
	f.run(3)

	assert.Equal(t, []int{0, 1, 2, 3}, built)
}

func TestBuildThenCollapseLeavesNothing(t *testing.T) {
	f := newFixture(t)
	collapsed := 0
	event.On(f.bus, func(event.CollapseOneLine) { collapsed++ })

	f.stage.AddCubes(column(3, 0), 0, nil)
	f.stage.StartBuildStage(1, false)
	f.run(2)
	f.stage.StartCollapseStage(100, 1)
	f.run(5)

	assert.Equal(t, 3, collapsed)
	assert.True(t, f.stage.IsEmpty())
	assert.Equal(t, 0, f.stage.CollapsingRows())
	assert.False(t, f.stage.Collapsing())
}

func TestCollapseStopsAtStopZ(t *testing.T) {
	f := newFixture(t)
	f.stage.AddCubes(column(5, 0), 0, nil)
	f.stage.StartBuildStage(1, false)
	f.run(2)

	f.stage.StartCollapseStage(2, 1)
	assert.False(t, f.stage.IsFinishedBuildAndCollapse(2))
	f.run(5)

	assert.Equal(t, 2, f.stage.ActiveBottomZ())
	assert.Equal(t, 3, f.stage.ActiveRows())
	assert.True(t, f.stage.IsFinishedBuildAndCollapse(2))
	assert.False(t, f.stage.IsFinishedBuildAndCollapse(3))
}

func TestFinishLineEvent(t *testing.T) {
	f := newFixture(t)
	var finish []int
	event.On(f.bus, func(ev event.BuildFinishLine) { finish = append(finish, ev.Z) })

	f.stage.AddCubes(column(4, 0), 0, nil)
	f.stage.SetFinishLine(2)
	f.stage.StartBuildStage(1, false)
	f.run(2)

	assert.Equal(t, []int{2}, finish)
}

func TestMoveStageCubeCommitsAfterAnimation(t *testing.T) {
	f := newFixture(t)
	f.stage.AddCubes(column(1, 1), 0, nil)
	f.stage.StartBuildStage(1, false)
	f.run(1)

	require.True(t, f.stage.MoveStageCube(vec.Vec3{X: 0, Y: 1, Z: 0}))
	y, ok := f.stage.StageHeight(vec.Vec3{})
	assert.True(t, ok)
	assert.Equal(t, 1, y, "высота меняется только после анимации")
	_, ok = f.stage.RideableHeight(vec.Vec3{})
	assert.False(t, ok)

	f.run(1)
	y, ok = f.stage.RideableHeight(vec.Vec3{})
	assert.True(t, ok)
	assert.Equal(t, 0, y)

	assert.False(t, f.stage.MoveStageCube(vec.Vec3{X: 4}))
}

func TestMoveStageCubeTwiceDuringAnimation(t *testing.T) {
	f := newFixture(t)
	f.stage.AddCubes(column(1, 2), 0, nil)
	f.stage.StartBuildStage(1, false)
	f.run(1)

	require.True(t, f.stage.MoveStageCube(vec.Vec3{}))
	f.run(0.1)
	require.True(t, f.stage.MoveStageCube(vec.Vec3{}))
	c, ok := f.stage.CubeAt(vec.Vec3{})
	require.True(t, ok)
	assert.Equal(t, 0, c.BlockPositionNew.Y)

	f.run(1)
	y, ok := f.stage.RideableHeight(vec.Vec3{})
	assert.True(t, ok)
	assert.Equal(t, 0, y)
}

func TestOpenStartLineLowersBottomRow(t *testing.T) {
	f := newFixture(t)
	opened := -1
	event.On(f.bus, func(ev event.StartlineOpened) { opened = ev.Z })

	f.stage.AddCubes(column(2, 1), 0, nil)
	f.stage.StartBuildStage(1, false)
	f.run(1)
	f.stage.OpenStartLine()
	f.run(2)

	assert.Equal(t, 0, opened)
	y, _ := f.stage.StageHeight(vec.Vec3{Z: 0})
	assert.Equal(t, 0, y)
	y, _ = f.stage.StageHeight(vec.Vec3{Z: 1})
	assert.Equal(t, 1, y)
}

func TestAutoCollapseGuard(t *testing.T) {
	f := newFixture(t)
	collapsed := 0
	event.On(f.bus, func(event.CollapseOneLine) { collapsed++ })

	f.stage.AddCubes(column(4, 0), 0, nil)
	f.stage.StartBuildStage(1, false)
	f.run(1)

	f.stage.SetupAutoCollapse(0.5, 100, 1)
	f.stage.StartCollapseStage(1, 1)
	f.run(4)
	assert.Equal(t, 1, collapsed, "автообрушение не должно сработать после ручного")

	f.stage.SetupAutoCollapse(0.5, 3, 1)
	f.run(4)
	assert.Equal(t, 3, collapsed)
	assert.True(t, f.stage.StartedCollapse())
}

func TestDisposeStopsCallbacks(t *testing.T) {
	f := newFixture(t)
	built := 0
	event.On(f.bus, func(event.BuildOneLine) { built++ })

	f.stage.AddCubes(column(10, 0), 0, nil)
	f.stage.StartBuildStage(1, false)
	f.stage.Dispose()
	f.run(2)

	assert.Equal(t, 1, built)
	assert.Equal(t, 0, f.root.Children())
}
