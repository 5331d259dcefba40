package transfer_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hostfleet/gangway/pkg/result"
	"github.com/hostfleet/gangway/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	name string
	args []string
	out  []byte
	err  error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	return f.out, f.err
}

func TestArgs(t *testing.T) {
	tr := transfer.New("deploy@web01.example.com", "/srv/staging")
	args := tr.Args("/home/me/app/", "/srv/staging/demo-x")

	assert.Equal(t, "-az", args[0])
	assert.Equal(t, "--copy-links", args[1])

	joined := strings.Join(args, " ")
	for _, exclude := range []string{".git", "venv", ".venv", "__pycache__", ".env", ".env.*", "node_modules/.cache"} {
		assert.Contains(t, joined, "--exclude "+exclude)
	}

	// Trailing slashes: sync directory contents, not the directory itself.
	assert.Equal(t, "/home/me/app/", args[len(args)-2])
	assert.Equal(t, "deploy@web01.example.com:/srv/staging/demo-x/", args[len(args)-1])
}

func TestStagingPathUnique(t *testing.T) {
	tr := transfer.New("deploy@web01.example.com", "/srv/staging")

	first := tr.StagingPath("demo")
	second := tr.StagingPath("demo")

	assert.True(t, strings.HasPrefix(first, "/srv/staging/demo-"))
	assert.NotEqual(t, first, second)
}

func TestSync(t *testing.T) {
	runner := &fakeRunner{out: []byte(strings.Join([]string{
		"Number of files: 1,205 (reg: 1,105, dir: 100)",
		"Number of regular files transferred: 42",
		"Total file size: 10,000,000 bytes",
		"Total transferred file size: 1,234,567 bytes",
	}, "\n"))}
	tr := transfer.New("deploy@web01.example.com", "/srv/staging")
	tr.Runner = runner

	stats, err := tr.Sync(context.Background(), "/home/me/app", "/srv/staging/demo-x")
	require.NoError(t, err)
	assert.Equal(t, "rsync", runner.name)
	assert.Equal(t, 42, stats.Files)
	assert.Equal(t, int64(1234567), stats.Bytes)
}

func TestSyncFailure(t *testing.T) {
	runner := &fakeRunner{
		out: []byte("sending incremental file list\nrsync: connection unexpectedly closed"),
		err: fmt.Errorf("exit status 12"),
	}
	tr := transfer.New("deploy@web01.example.com", "/srv/staging")
	tr.Runner = runner

	_, err := tr.Sync(context.Background(), "/home/me/app", "/srv/staging/demo-x")
	require.Error(t, err)
	assert.Equal(t, result.CodeRsyncFailed, result.ErrorCode(err))
	assert.Contains(t, err.Error(), "connection unexpectedly closed")
}
