package results

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/zora-runner/pkg/models"
)

func TestRunDir(t *testing.T) {
	at := time.Date(2024, time.March, 5, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "results/05-03-2024-07-08-09", RunDir("results", at))
}

func TestWriterRecord(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir + "/run")
	require.NoError(t, err)

	require.NoError(t, w.Record(models.StatusSuccess, "0xaaa", []string{"key1", "proxy1"}))
	require.NoError(t, w.Record(models.StatusSuccess, "0xbbb", []string{"key2"}))
	require.NoError(t, w.Record(models.StatusFailed, "0xccc", nil))
	require.NoError(t, w.Record(models.StatusAlreadyDone, "0xddd", []string{"0xddd;key4"}))

	assert.Error(t, w.Record(models.Status(42), "0xeee", nil))

	rows, err := readRows(w.Dir(), models.StatusSuccess)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0xaaa", "key1", "proxy1"}, {"0xbbb", "key2"}}, rows)

	rows, err = readRows(w.Dir(), models.StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0xccc"}}, rows)

	rows, err = readRows(w.Dir(), models.StatusAlreadyDone)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0xddd", "0xddd;key4"}}, rows)

	rows, err = readRows(w.Dir(), models.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, rows)

	assert.Equal(t, map[models.Status]int{
		models.StatusSuccess:     2,
		models.StatusFailed:      1,
		models.StatusAlreadyDone: 1,
	}, w.Counts())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "already.txt", FileName(models.StatusAlreadyDone))
	assert.Equal(t, "pending.txt", FileName(models.StatusPending))
	assert.Equal(t, "success.txt", FileName(models.StatusSuccess))
	assert.Equal(t, "failed.txt", FileName(models.StatusFailed))
}

// readRows reads back the rows of the outcome log of status, split on the pipe
func readRows(dir string, status models.Status) ([][]string, error) {
	file, err := os.Open(filepath.Join(dir, fileNames[status]))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows [][]string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			rows = append(rows, strings.Split(line, "|"))
		}
	}
	return rows, scanner.Err()
}
