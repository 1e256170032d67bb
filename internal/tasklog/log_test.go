package tasklog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/codecbench/internal/filelock"
	"github.com/harrison/codecbench/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	outputs, err := Load(filepath.Join(t.TempDir(), "missing.csv"), false)
	require.NoError(t, err)
	assert.Empty(t, outputs)
}

func TestLoad_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "completed.csv")
	require.NoError(t, os.WriteFile(path, []byte(lossyLine+"\n\n"+lossyLine+"\n"), 0644))

	outputs, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, []models.TaskOutput{lossyOutput(), lossyOutput()}, outputs)
}

func TestLoad_ReportsLineNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "completed.csv")
	require.NoError(t, os.WriteFile(path, []byte(lossyLine+"\n"+lossyLine+", 1\n"), 0644))

	_, err := Load(path, false)
	require.ErrorIs(t, err, models.ErrMalformedEntry)
	assert.Contains(t, err.Error(), "completed.csv:2:")

	outputs, err := Load(path, true)
	require.NoError(t, err)
	assert.Len(t, outputs, 2)
}

func TestWriter_WriteLineThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "completed.csv")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteLine(Format(lossyOutput())))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	// Reopening appends after the existing entries.
	w, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteLine(Format(lossyOutput())))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, lossyLine+"\n"+lossyLine+"\n", string(data))

	assert.Error(t, w.WriteLine(Format(lossyOutput())), "append after close")
}

func TestWriter_ExclusiveAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "completed.csv")

	first, err := Open(path)
	require.NoError(t, err)
	defer first.Close()

	_, err = Open(path)
	assert.ErrorIs(t, err, filelock.ErrLocked)
}

func TestRotateAndRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "completed.csv")
	require.NoError(t, os.WriteFile(path, []byte(lossyLine+"\n"), 0644))

	backup, err := Rotate(path)
	require.NoError(t, err)
	assert.Equal(t, path+BackupSuffix, backup)
	assert.NoFileExists(t, path)
	assert.FileExists(t, backup)

	updated := lossyOutput()
	updated.Distortions[models.MetricPSNR] = 41
	require.NoError(t, Rewrite(path, []models.TaskOutput{updated, lossyOutput()}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], ", 41, 0.98, 0.01, 1.25, 2, 80.5, 0.5"))
	assert.Equal(t, lossyLine, lines[1])
}

func TestRotate_MissingLog(t *testing.T) {
	_, err := Rotate(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
