package records

import (
	"context"
	"os"
	"testing"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoring() config.RecordsConfig {
	return config.RecordsConfig{
		SecondsPerRow: 1,
		StageScore:    1000,
		ItemScore:     100,
		CubeScore:     10,
		TimeBonus:     500,
	}
}

func TestRanks(t *testing.T) {
	cases := []struct {
		name  string
		time  float64
		items int
		want  Rank
	}{
		{"par with all items", 10, 2, RankS},
		{"par with missing item", 10, 1, RankA},
		{"quarter over par", 12.5, 2, RankA},
		{"slow", 16, 2, RankB},
		{"very slow", 30, 2, RankC},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ComputeStageResult(Telemetry{Time: tc.time, Items: tc.items, ItemsTotal: 2, Rows: 10}, scoring())
			assert.Equal(t, tc.want, res.Rank)
			assert.Equal(t, 10.0, res.Par)
		})
	}
}

func TestScoreBonusFadesAfterPar(t *testing.T) {
	fast := ComputeStageResult(Telemetry{Time: 5, Items: 1, ItemsTotal: 1, Cubes: 2, Rows: 10}, scoring())
	assert.Equal(t, 1000+100+20+500, fast.Score)

	half := ComputeStageResult(Telemetry{Time: 15, Rows: 10}, scoring())
	assert.Equal(t, 1000+250, half.Score)

	late := ComputeStageResult(Telemetry{Time: 25, Rows: 10}, scoring())
	assert.Equal(t, 1000, late.Score)
}

func TestZeroRowsIsRankC(t *testing.T) {
	res := ComputeStageResult(Telemetry{Time: 1}, scoring())
	assert.Equal(t, RankC, res.Rank)
	assert.Equal(t, 1000, res.Score)
}

func TestFromEvent(t *testing.T) {
	tel := FromEvent(event.StageCleared{Stage: 3, Time: 7.5, Items: 1, ItemsTotal: 2, Cubes: 3, Rows: 20})
	assert.Equal(t, Telemetry{Stage: 3, Time: 7.5, Items: 1, ItemsTotal: 2, Cubes: 3, Rows: 20}, tel)
}

func TestRankText(t *testing.T) {
	b, err := RankA.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "A", string(b))

	var r Rank
	require.NoError(t, r.UnmarshalText([]byte("S")))
	assert.Equal(t, RankS, r)
	assert.Error(t, r.UnmarshalText([]byte("Z")))
}

func TestApplyStageClearKeepsBest(t *testing.T) {
	r := New()
	first := StageResult{Stage: 0, Time: 12, Rank: RankB, Items: 1, ItemsTotal: 2, Score: 1200}
	assert.True(t, r.ApplyStageClear(first, segment.Formation{{1, 0}}))

	second := StageResult{Stage: 0, Time: 14, Rank: RankA, Items: 2, ItemsTotal: 2, Score: 1100}
	assert.False(t, r.ApplyStageClear(second, nil))

	s, ok := r.Stage(0)
	require.True(t, ok)
	assert.Equal(t, 12.0, s.BestTime)
	assert.Equal(t, RankA, s.BestRank)
	assert.Equal(t, 1200, s.BestScore)
	assert.True(t, s.AllItems)
	assert.Equal(t, 2, s.Clears)
	assert.Equal(t, 2300, r.RunScore)
	assert.Equal(t, 1, r.LastStage)
	assert.Equal(t, 26.0, r.PlayTime)
}

func TestApplyGameOver(t *testing.T) {
	r := New()
	r.ApplyStageClear(StageResult{Stage: 0, Time: 10, Score: 1500}, segment.Formation{{2, 1}})
	assert.True(t, r.ApplyGameOver(1, 4))
	assert.Equal(t, 1500, r.HighScore)
	assert.Zero(t, r.RunScore)
	assert.Equal(t, 1, r.PlayCount)
	assert.Equal(t, 14.0, r.PlayTime)
	assert.Equal(t, segment.Formation{{2, 1}}, r.Continue)

	assert.False(t, r.ApplyGameOver(0, 1))
	assert.Equal(t, 1500, r.HighScore)
}

func TestCloneIsDeep(t *testing.T) {
	r := New()
	r.ApplyStageClear(StageResult{Stage: 0, Time: 10}, segment.Formation{{0, 0}})
	c := r.Clone()
	c.Stages[0].BestTime = 1
	c.Continue[0] = segment.Cell{5, 5}
	assert.Equal(t, 10.0, r.Stages[0].BestTime)
	assert.Equal(t, segment.Cell{0, 0}, r.Continue[0])
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Stages)

	r := New()
	r.ApplyStageClear(StageResult{Stage: 2, Time: 9, Rank: RankS, Score: 2000}, segment.Formation{{1, 0}, {2, 1}})
	r.ApplyGameOver(3, 2)
	require.NoError(t, s.Save(ctx, r))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2000, got.HighScore)
	assert.Equal(t, 3, got.LastStage)
	assert.Equal(t, segment.Formation{{1, 0}, {2, 1}}, got.Continue)
	st, ok := got.Stage(2)
	require.True(t, ok)
	assert.Equal(t, RankS, st.BestRank)

	if lb, ok := s.(Leaderboard); ok {
		a, b := uuid.NewString(), uuid.NewString()
		require.NoError(t, lb.SubmitScore(ctx, a, 100))
		require.NoError(t, lb.SubmitScore(ctx, b, 300))
		require.NoError(t, lb.SubmitScore(ctx, a, 50))
		top, err := lb.TopScores(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, ScoreEntry{RunID: b, Score: 300}, top[0])
		assert.Equal(t, ScoreEntry{RunID: a, Score: 100}, top[1])
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBadgerStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBadgerStore(dir)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// Данные переживают переоткрытие
	s, err = NewBadgerStore(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2000, got.HighScore)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("CUBE_TEST_REDIS")
	if addr == "" {
		t.Skip("CUBE_TEST_REDIS не задан")
	}
	s, err := NewRedisStore(addr, "cube-runner-test-"+uuid.NewString())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(config.RecordsConfig{Backend: "tape"})
	assert.Error(t, err)

	s, err := Open(config.RecordsConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}
