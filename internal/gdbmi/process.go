package gdbmi

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultPath is the GDB binary looked up on PATH when none is configured
const DefaultPath = "gdb"

// baseArgs select the MI3 interpreter and keep GDB from reading init files
// or printing its banner.
var baseArgs = []string{"--interpreter=mi3", "--nx", "--quiet"}

// Options configures a Controller
type Options struct {
	// Path to the gdb binary
	Path string

	// Args are appended after the interpreter flags
	Args []string

	// SettleInterval is how long reads keep collecting trailing output
	SettleInterval time.Duration

	Logger zerolog.Logger
}

// Start spawns GDB in MI mode and returns a controller attached to its
// stdin, stdout and stderr.
func Start(ctx context.Context, opts Options) (*Controller, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	args := append(append([]string{}, baseArgs...), opts.Args...)

	cmd := exec.Command(path, args...)
	cmd.Env = os.Environ()

	// Own process group so Exit can take down anything GDB started
	setProcAttr(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "gdb stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, errors.Wrap(err, "gdb stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, errors.Wrap(err, "gdb stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, errors.Wrapf(err, "start %s", path)
	}

	c := newController(stdin, opts)
	c.cmd = cmd
	c.startReaders(stdout, stderr)

	c.log.Debug().Str("path", path).Strs("args", args).Int("pid", cmd.Process.Pid).Msg("started gdb")
	return c, nil
}
