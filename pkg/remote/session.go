// Package remote provides the session transport used to reach the hosting
// platform's administrative shell. The transport itself is a collaborator;
// everything here is the minimal surface the dispatcher needs.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Session runs one remote command and returns its output. Implementations
// must honor the context deadline.
type Session interface {
	Run(ctx context.Context, argv []string) (stdout, stderr []byte, err error)
}

// SSHSession execs the local ssh binary for every call. Connection
// multiplexing, if any, is left to the user's ssh configuration.
type SSHSession struct {
	Binary  string
	Host    string
	User    string
	Timeout time.Duration
}

const DefaultCallTimeout = time.Minute * 2

func NewSSHSession(host, user string, timeout time.Duration) *SSHSession {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &SSHSession{
		Binary:  "ssh",
		Host:    host,
		User:    user,
		Timeout: timeout,
	}
}

func (s *SSHSession) target() string {
	if s.User == "" {
		return s.Host
	}
	return s.User + "@" + s.Host
}

func (s *SSHSession) Run(ctx context.Context, argv []string) ([]byte, []byte, error) {
	if len(argv) == 0 {
		return nil, nil, fmt.Errorf("empty remote command")
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	args := []string{"-o", "BatchMode=yes", s.target()}
	args = append(args, argv...)

	cmd := exec.CommandContext(ctx, s.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debugf("remote: %s %s", argv[0], strings.Join(argv[1:], " "))

	err := cmd.Run()
	if ctx.Err() != nil {
		err = ctx.Err()
	}

	return stdout.Bytes(), stderr.Bytes(), err
}
