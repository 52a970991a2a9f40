package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanukai/factorytown/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunRoundTrip(t *testing.T) {
	db := openTestDB(t)
	cfg := engine.DefaultConfig()
	cfg.Seed = 7

	id, err := db.CreateRun(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	tick := uint64(1200)
	require.NoError(t, db.FinishRun(id, engine.Result{
		Collapsed:    true,
		CollapseTick: &tick,
		FinalTick:    1200,
		Days:         50,
	}))

	row, err := db.Run(id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), row.Seed)
	assert.True(t, row.Collapsed)
	require.NotNil(t, row.CollapseTick)
	assert.Equal(t, tick, *row.CollapseTick)
	assert.Equal(t, 50, row.Days)

	stored, err := row.Config()
	require.NoError(t, err)
	assert.Equal(t, cfg, stored)

	runs, err := db.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
}

func TestSnapshotHistory(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateRun(engine.DefaultConfig())
	require.NoError(t, err)

	snaps := []engine.Snapshot{
		{Tick: 24, Day: 1, Headcount: 50, Price: 12, Phase: "expansion"},
		{Tick: 48, Day: 2, Headcount: 50, Price: 24, Phase: "expansion"},
		{Tick: 72, Day: 3, Headcount: 47, Price: 25, Phase: "recession"},
	}
	require.NoError(t, db.SaveSnapshots(id, snaps))

	got, err := db.SnapshotHistory(id, 0, 1<<62, 100)
	require.NoError(t, err)
	assert.Equal(t, snaps, got)

	got, err = db.SnapshotHistory(id, 48, 1<<62, 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(48), got[0].Tick)
}

func TestRecorderKeepsDailySnapshots(t *testing.T) {
	db := openTestDB(t)
	cfg := engine.DefaultConfig()
	cfg.TotalTicks = 5 * 24

	rec, err := NewRecorder(db, cfg)
	require.NoError(t, err)

	sim, err := engine.New(cfg, engine.WithObserver(rec))
	require.NoError(t, err)

	res, err := sim.Run()
	require.NoError(t, err)
	require.NoError(t, rec.Finish(res, sim.Events()))

	got, err := db.SnapshotHistory(rec.RunID(), 0, 1<<62, 100)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, s := range got {
		assert.Equal(t, uint64((i+1)*24), s.Tick)
		assert.Equal(t, i+1, s.Day)
	}

	row, err := db.Run(rec.RunID())
	require.NoError(t, err)
	assert.Equal(t, res.FinalTick, row.FinalTick)
	assert.Equal(t, res.Days, row.Days)
}

func TestEventsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateRun(engine.DefaultConfig())
	require.NoError(t, err)

	events := []engine.Event{
		{Tick: 720, Description: "day 30: demand recovered, factory reopens 2 slots", Category: "factory"},
		{Tick: 800, Description: "stimulus of 50.0 granted to each of 100 workers", Category: "intervention"},
	}
	require.NoError(t, db.SaveEvents(id, events))

	got, err := db.RecentEvents(id, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, events[1], got[0])
	assert.Equal(t, events[0], got[1])
}

func TestArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl.zst")
	arc, err := CreateArchive(path)
	require.NoError(t, err)

	cfg := engine.DefaultConfig()
	cfg.TotalTicks = 2 * 24
	sim, err := engine.New(cfg, engine.WithObserver(arc))
	require.NoError(t, err)

	_, err = sim.Run()
	require.NoError(t, err)
	require.NoError(t, arc.Close())

	snaps, err := ReadArchive(path)
	require.NoError(t, err)
	require.Len(t, snaps, cfg.TotalTicks)
	assert.Equal(t, uint64(1), snaps[0].Tick)
	assert.Equal(t, uint64(48), snaps[len(snaps)-1].Tick)
}
