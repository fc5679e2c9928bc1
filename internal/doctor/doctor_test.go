package doctor_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/treeclone/internal/doctor"
	"github.com/jvs-project/treeclone/internal/journal"
	"github.com/jvs-project/treeclone/internal/lock"
	"github.com/jvs-project/treeclone/pkg/fsutil"
	"github.com/jvs-project/treeclone/pkg/model"
)

func TestDoctor_Check_Healthy(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "runs.jsonl")
	_, err := journal.NewAppender(journalPath).Append(model.JournalRecord{Op: model.RunClone, Success: true})
	require.NoError(t, err)

	doc := doctor.NewDoctor(doctor.Options{
		Locks:       lock.NewManager(afero.NewOsFs(), filepath.Join(dir, "locks"), time.Minute),
		JournalPath: journalPath,
		Roots:       []string{dir, filepath.Join(dir, "missing")},
	})
	result, err := doc.Check()
	require.NoError(t, err)
	assert.True(t, result.Healthy)
	assert.Empty(t, result.Findings)
}

func TestDoctor_Check_NothingConfigured(t *testing.T) {
	result, err := doctor.NewDoctor(doctor.Options{}).Check()
	require.NoError(t, err)
	assert.True(t, result.Healthy)
}

func TestDoctor_Check_BrokenJournal(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), "runs.jsonl")
	a := journal.NewAppender(journalPath)
	for range 2 {
		_, err := a.Append(model.JournalRecord{Op: model.RunClone, Success: true})
		require.NoError(t, err)
	}
	data, err := os.ReadFile(journalPath)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"success":true`, `"success":false`, 1)
	require.NoError(t, os.WriteFile(journalPath, []byte(tampered), 0644))

	result, err := doctor.NewDoctor(doctor.Options{JournalPath: journalPath}).Check()
	require.NoError(t, err)
	assert.False(t, result.Healthy)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "journal", result.Findings[0].Category)
	assert.Equal(t, "critical", result.Findings[0].Severity)
}

func TestDoctor_Check_Locks(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	clock := func() time.Time { return now }
	mgr := lock.NewManager(afero.NewMemMapFs(), "/locks", time.Minute, lock.WithClock(clock))

	_, err := mgr.Acquire("/dst/stale", "clone stale")
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = mgr.Acquire("/dst/live", "clone live")
	require.NoError(t, err)

	doc := doctor.NewDoctor(doctor.Options{Locks: mgr})
	result, err := doc.Check()
	require.NoError(t, err)
	assert.True(t, result.Healthy, "locks are never unhealthy")

	severities := map[string]string{}
	for _, f := range result.Findings {
		assert.Equal(t, "lock", f.Category)
		severities[f.Path] = f.Severity
	}
	assert.Equal(t, map[string]string{"/dst/stale": "warning", "/dst/live": "info"}, severities)

	results, err := doc.Repair([]string{"prune-locks"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 1, results[0].Cleaned)

	state, _, err := mgr.Status("/dst/live")
	require.NoError(t, err)
	assert.Equal(t, model.LockStateHeld, state)
}

func TestDoctor_OrphanTmp_CheckAndRepair(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/dst/a", 0755))
	require.NoError(t, afero.WriteFile(fs, "/dst/a/file", []byte("kept"), 0644))
	orphan := "/dst/a/" + fsutil.TempPrefix + "123"
	require.NoError(t, afero.WriteFile(fs, orphan, []byte("half"), 0644))

	doc := doctor.NewDoctor(doctor.Options{Fs: fs, Roots: []string{"/dst"}})
	result, err := doc.Check()
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "tmp", result.Findings[0].Category)
	assert.Equal(t, orphan, result.Findings[0].Path)

	results, err := doc.Repair([]string{"clean-tmp"})
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].Cleaned)

	ok, err := afero.Exists(fs, orphan)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = afero.Exists(fs, "/dst/a/file")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDoctor_ListRepairActions(t *testing.T) {
	actions := doctor.NewDoctor(doctor.Options{}).ListRepairActions()
	var ids []string
	for _, a := range actions {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"prune-locks", "clean-tmp"}, ids)
}

func TestDoctor_Repair_UnknownAction(t *testing.T) {
	_, err := doctor.NewDoctor(doctor.Options{}).Repair([]string{"reformat-disk"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown repair action")
}
