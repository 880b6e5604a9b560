package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/repair"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

var _ validation.Journal = (*DB)(nil)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.CreateSchema())
	return db
}

func TestJournal_RecordAndList(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	entries := []validation.JournalEntry{
		{SessionID: "s1", At: t0, Rule: "Object Data Names", Message: "Mesh name (Mesh.002) did not match object name (Head)",
			Action: repair.RenameData("Head", "Head"), Outcome: validation.OutcomeRepaired},
		{SessionID: "s1", At: t0.Add(time.Second), Rule: "Bone Names", Message: "Bone (Left Arm) on Rig contains spaces",
			Action: repair.RenameBone("Rig", "Left Arm", "Arm_L"), Outcome: validation.OutcomeFailed},
		{SessionID: "s2", At: t0.Add(2 * time.Second), Rule: "Bone Names", Message: "x",
			Outcome: validation.OutcomeFault, Err: "host went away"},
	}
	for _, e := range entries {
		require.NoError(t, db.Record(ctx, e))
	}

	all, err := db.List(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "s2", all[0].SessionID)
	assert.Equal(t, "host went away", all[0].Error)
	assert.Nil(t, all[0].Action)

	s1, err := db.List(ctx, "s1", 10, 0)
	require.NoError(t, err)
	require.Len(t, s1, 2)
	assert.Equal(t, validation.OutcomeFailed, s1[0].Outcome)
	assert.Equal(t, repair.RenameBone("Rig", "Left Arm", "Arm_L"), s1[0].Action)
	assert.True(t, s1[1].At.Equal(t0))
	assert.Empty(t, s1[1].Error)

	page, err := db.List(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "s1", page[0].SessionID)
}

func TestJournal_Summary(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	for _, o := range []validation.Outcome{validation.OutcomeRepaired, validation.OutcomeRepaired, validation.OutcomeFailed} {
		require.NoError(t, db.Record(ctx, validation.JournalEntry{SessionID: "s", At: time.Now(), Rule: "r", Message: "m", Outcome: o}))
	}
	got, err := db.Summary(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, map[validation.Outcome]int{validation.OutcomeRepaired: 2, validation.OutcomeFailed: 1}, got)

	none, err := db.Summary(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJournal_SchemaIsIdempotent(t *testing.T) {
	db := openTemp(t)
	assert.NoError(t, db.CreateSchema())
}

func TestJournal_ListNewestFirstWithinOneSecond(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC)

	require.NoError(t, db.Record(ctx, validation.JournalEntry{SessionID: "s", At: t0, Rule: "r", Message: "first", Outcome: validation.OutcomeRepaired}))
	require.NoError(t, db.Record(ctx, validation.JournalEntry{SessionID: "s", At: t0.Add(100 * time.Millisecond), Rule: "r", Message: "second", Outcome: validation.OutcomeRepaired}))

	rows, err := db.List(ctx, "s", 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "second", rows[0].Message)
	assert.Equal(t, "first", rows[1].Message)
}
