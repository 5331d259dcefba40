// Package transfer delta-synchronizes a local artifact tree into a
// uniquely named remote staging location.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hostfleet/gangway/pkg/result"
	log "github.com/sirupsen/logrus"
)

// MaxTransferTime bounds one synchronization, sized for large trees.
const MaxTransferTime = time.Minute * 15

// Excludes are local-only paths that must never reach the remote side:
// version control metadata, local virtual environments, and local-only
// secret files.
var Excludes = []string{
	".git",
	".hg",
	".svn",
	"venv",
	".venv",
	"__pycache__",
	".env",
	".env.*",
	"node_modules/.cache",
}

type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

type Stats struct {
	Files     int           `json:"files"`
	Bytes     int64         `json:"bytes"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMs int64         `json:"elapsedMs"`
}

type Transferrer struct {
	Runner      Runner
	RsyncPath   string
	Target      string // user@host
	StagingRoot string // remote directory holding staging locations
}

func New(target, stagingRoot string) *Transferrer {
	return &Transferrer{
		Runner:      execRunner{},
		RsyncPath:   "rsync",
		Target:      target,
		StagingRoot: stagingRoot,
	}
}

// StagingPath returns a fresh staging location for one deployment job.
// Timestamp plus a uuid fragment keeps concurrent jobs for the same
// tenant from colliding.
func (t *Transferrer) StagingPath(tenant string) string {
	name := fmt.Sprintf("%s-%s-%s", tenant, time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
	return path.Join(t.StagingRoot, name)
}

// Args composes the rsync invocation: archive semantics, compression,
// symlink dereferencing (package-manager link farms must become real
// files remotely), and the fixed exclude list.
func (t *Transferrer) Args(localPath, stagingPath string) []string {
	args := []string{"-az", "--copy-links"}
	for _, exclude := range Excludes {
		args = append(args, "--exclude", exclude)
	}
	args = append(args, "--stats", strings.TrimSuffix(localPath, "/")+"/", t.Target+":"+stagingPath+"/")
	return args
}

func (t *Transferrer) Sync(ctx context.Context, localPath, stagingPath string) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, MaxTransferTime)
	defer cancel()

	started := time.Now()
	out, err := t.Runner.Run(ctx, t.RsyncPath, t.Args(localPath, stagingPath)...)
	if err != nil {
		log.Errorf("rsync to %s failed: %s", stagingPath, err)
		return nil, result.Errorf(result.CodeRsyncFailed, "file transfer failed: %s: %s", err, lastLine(out))
	}

	stats := parseStats(out)
	stats.Elapsed = time.Since(started)
	stats.ElapsedMs = stats.Elapsed.Milliseconds()

	log.Infof("transferred %d files (%d bytes) to %s in %s", stats.Files, stats.Bytes, stagingPath, stats.Elapsed.Truncate(time.Millisecond))
	return stats, nil
}

// parseStats pulls the interesting numbers out of `rsync --stats` output.
// Missing or unparsable lines leave zero values; stats are informational.
func parseStats(out []byte) *Stats {
	stats := &Stats{}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Number of regular files transferred:"):
			fmt.Sscanf(strings.ReplaceAll(line, ",", ""), "Number of regular files transferred: %d", &stats.Files)
		case strings.HasPrefix(line, "Total transferred file size:"):
			fmt.Sscanf(strings.ReplaceAll(line, ",", ""), "Total transferred file size: %d", &stats.Bytes)
		}
	}
	return stats
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
