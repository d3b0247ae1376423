package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/umputun/swipecache/app/cache"
)

func Test_setupLogsWithLogsDisabled(t *testing.T) {
	opts.Log.Enabled = false
	assert.Equal(t, os.Stdout, setupLogs())
}

func Test_setupLogsToFile(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	opts.Log.Enabled = true
	opts.Log.Filename = tmpfile.Name()
	opts.Log.MaxSize = 100
	opts.Log.MaxBackups = 7
	opts.Log.MaxAge = 0
	opts.Log.EnabledCompress = false

	out := setupLogs()
	assert.IsType(t, &lumberjack.Logger{}, out)

	logger := out.(*lumberjack.Logger)
	assert.Equal(t, tmpfile.Name(), logger.Filename)
	assert.Equal(t, 100, logger.MaxSize)
	assert.Equal(t, 7, logger.MaxBackups)
	assert.Equal(t, 0, logger.MaxAge)
	assert.False(t, logger.Compress)
}

func makeTestManager(t *testing.T) *cache.Manager {
	m, err := cache.New(filepath.Join(t.TempDir(), "cache.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func Test_showStats(t *testing.T) {
	m := makeTestManager(t)
	ctx := context.Background()

	buf := &bytes.Buffer{}
	require.NoError(t, showStats(ctx, m, buf))
	assert.Equal(t, "job cache: empty\npending swipes: 0\n", buf.String())

	require.NoError(t, m.Jobs().Replace(ctx, []cache.Listing{{ID: "j1", Title: "Go Dev", Company: "Initech", Score: 0.5}}))
	require.NoError(t, m.Pending().Replace(ctx, []cache.Action{{JobID: "j1", Direction: cache.DirectionLike}}))

	buf.Reset()
	require.NoError(t, showStats(ctx, m, buf))
	assert.Equal(t, "job cache: 1 listings\npending swipes: 1\n", buf.String())
}

func Test_exportSnapshot(t *testing.T) {
	m := makeTestManager(t)
	ctx := context.Background()

	loc := "Remote"
	require.NoError(t, m.Jobs().Replace(ctx, []cache.Listing{
		{ID: "j1", Title: "Go Dev", Company: "Initech", Location: &loc, Score: 0.9},
	}))
	require.NoError(t, m.Pending().Replace(ctx, []cache.Action{
		{JobID: "j1", Direction: cache.DirectionLike},
		{JobID: "j2", Direction: cache.DirectionDislike},
	}))

	buf := &bytes.Buffer{}
	require.NoError(t, exportSnapshot(ctx, m, buf))

	var snap snapshot
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &snap))
	require.Len(t, snap.Jobs, 1)
	assert.Equal(t, "j1", snap.Jobs[0].ID)
	require.NotNil(t, snap.Jobs[0].Location)
	assert.Equal(t, "Remote", *snap.Jobs[0].Location)
	assert.Nil(t, snap.Jobs[0].Snippet, "absent optional stays absent")
	require.Len(t, snap.Pending, 2)
	assert.Equal(t, "like", snap.Pending[0].Direction)
	assert.Equal(t, "dislike", snap.Pending[1].Direction)
}

func Test_importSnapshot(t *testing.T) {
	m := makeTestManager(t)
	ctx := context.Background()

	content := `
jobs:
  - id: j1
    title: Go Dev
    company: Initech
    score: 0.9
    location: Remote
pending:
  - job_id: j1
    direction: like
`
	file := filepath.Join(t.TempDir(), "snap.yml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	require.NoError(t, importSnapshot(ctx, m, file))

	jobs, err := m.Jobs().Get(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Go Dev", jobs[0].Title)
	require.NotNil(t, jobs[0].Location)
	assert.Equal(t, "Remote", *jobs[0].Location)

	pending, err := m.Pending().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []cache.Action{{JobID: "j1", Direction: cache.DirectionLike}}, pending)
}

func Test_importSnapshotBadDirection(t *testing.T) {
	m := makeTestManager(t)

	content := `
pending:
  - job_id: j1
    direction: superlike
`
	file := filepath.Join(t.TempDir(), "snap.yml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	err := importSnapshot(context.Background(), m, file)
	assert.Error(t, err, "import validates directions instead of silently dropping")
}

func Test_importSnapshotMissingFile(t *testing.T) {
	m := makeTestManager(t)
	assert.Error(t, importSnapshot(context.Background(), m, ""))
	assert.Error(t, importSnapshot(context.Background(), m, "/no/such/file.yml"))
}
