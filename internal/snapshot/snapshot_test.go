package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

func testSnapshot(titles ...string) examupdates.Snapshot {
	snap := examupdates.NewSnapshot()
	for _, title := range titles {
		snap.Append(examupdates.CategoryJEE, examupdates.FormattedRecord{
			Title:       title,
			ContentHash: examupdates.ContentHash(title),
			Priority:    examupdates.PriorityMedium,
		})
	}
	snap.TotalNotification = snap.Total()

	return snap
}

func TestLoadCanonical_MissingFile(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	snap := store.LoadCanonical()

	assert.NotNil(t, snap.JEE)
	assert.NotNil(t, snap.GATE)
	assert.NotNil(t, snap.JEEAdvanced)
	assert.NotNil(t, snap.UPSC)
	assert.Equal(t, 0, snap.TotalNotification)
	assert.Nil(t, snap.LastUpdated)
}

func TestLoadCanonical_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "exam_data.json"), []byte("{not json"), 0o644))

	snap := store.LoadCanonical()
	assert.Equal(t, 0, snap.TotalNotification)
	assert.Empty(t, snap.JEE)
}

func TestSaveCanonical_RoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	snap := testSnapshot("JEE Main Result")
	now := time.Now().UTC().Truncate(time.Second)
	snap.LastUpdated = &now
	snap.LastScrape = &now

	require.NoError(t, store.SaveCanonical(snap))

	loaded := store.LoadCanonical()
	require.Len(t, loaded.JEE, 1)
	assert.Equal(t, "JEE Main Result", loaded.JEE[0].Title)
	assert.Equal(t, 1, loaded.TotalNotification)
	require.NotNil(t, loaded.LastUpdated)
	assert.True(t, now.Equal(*loaded.LastUpdated))
}

func TestSaveCanonical_BacksUpPreviousFile(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveCanonical(testSnapshot("first")))

	// No backup yet: there was nothing to back up on the first write.
	entries, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.SaveCanonical(testSnapshot("second")))

	entries, err = os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "exam_data_backup_")
}

func TestCleanupBackups_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		path := filepath.Join(dir, "backups", "exam_data_backup_"+string(rune('a'+i))+".json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
		require.NoError(t, os.Chtimes(path, base.Add(time.Duration(i)*time.Minute), base.Add(time.Duration(i)*time.Minute)))
	}

	removed, err := store.CleanupBackups(5)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	entries, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	require.Len(t, entries, 5)

	// The oldest three are the ones that went.
	for _, entry := range entries {
		assert.NotContains(t, []string{"exam_data_backup_a.json", "exam_data_backup_b.json", "exam_data_backup_c.json"}, entry.Name())
	}
}

func TestDelta_SaveClearLoad(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	delta := examupdates.NewDelta()
	delta.Append(examupdates.CategoryGATE, examupdates.FormattedRecord{Title: "GATE Admit Card", ContentHash: "h1"})
	delta.TotalNewNotifications = 1

	require.NoError(t, store.SaveDelta(delta))
	loaded := store.LoadDelta()
	require.Len(t, loaded.GATE, 1)
	assert.Equal(t, 1, loaded.TotalNewNotifications)

	require.NoError(t, store.ClearDelta())
	cleared := store.LoadDelta()
	assert.Empty(t, cleared.GATE)
	assert.Equal(t, 0, cleared.TotalNewNotifications)

	// Clearing twice is fine.
	require.NoError(t, store.ClearDelta())
}

func TestSaveDelta_EmptyDeltaStillWritten(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveDelta(examupdates.NewDelta()))

	_, err = os.Stat(filepath.Join(dir, "updated_notifications.json"))
	assert.NoError(t, err)
}
