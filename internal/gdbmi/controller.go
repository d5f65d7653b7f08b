package gdbmi

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	// ErrTimeout is returned when GDB does not answer within the allotted time
	ErrTimeout = errors.New("timed out waiting for gdb response")

	// ErrClosed is returned when the GDB process is gone
	ErrClosed = errors.New("gdb process is not running")
)

// DefaultSettleInterval is how long a read keeps collecting output after
// the last record arrived.
const DefaultSettleInterval = 200 * time.Millisecond

// maxLineSize bounds a single line of GDB output
const maxLineSize = 16 * 1024 * 1024

// Controller owns one GDB process speaking MI.
type Controller struct {
	stdin io.WriteCloser
	cmd   *exec.Cmd // nil when built over plain streams

	settle time.Duration
	log    zerolog.Logger

	writeMu   sync.Mutex
	nextToken int

	mu     sync.Mutex
	buf    []Record
	wake   chan struct{} // closed and replaced whenever buf or closed changes
	closed bool

	readers  sync.WaitGroup
	exitOnce sync.Once
	exitErr  error
}

// NewController creates a controller that writes commands to stdin and reads
// MI output from stdout and (optionally) stderr. The controller is considered
// closed once stdout reaches EOF.
func NewController(stdin io.WriteCloser, stdout, stderr io.Reader, opts Options) *Controller {
	c := newController(stdin, opts)
	c.startReaders(stdout, stderr)
	return c
}

func newController(stdin io.WriteCloser, opts Options) *Controller {
	settle := opts.SettleInterval
	if settle <= 0 {
		settle = DefaultSettleInterval
	}
	return &Controller{
		stdin:     stdin,
		settle:    settle,
		log:       opts.Logger,
		nextToken: 1,
		wake:      make(chan struct{}),
	}
}

func (c *Controller) startReaders(stdout, stderr io.Reader) {
	c.readers.Add(1)
	go c.readLoop(stdout, StreamStdout, true)
	if stderr != nil {
		c.readers.Add(1)
		go c.readLoop(stderr, StreamStderr, false)
	}
}

// readLoop parses lines from r until EOF. The stdout reader marks the
// controller closed when it finishes.
func (c *Controller) readLoop(r io.Reader, stream string, primary bool) {
	defer c.readers.Done()
	if primary {
		defer c.markClosed()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if rec, ok := ParseLine(scanner.Text(), stream); ok {
			c.push(rec)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		c.log.Debug().Err(err).Str("stream", stream).Msg("gdb reader stopped")
	}
}

func (c *Controller) push(rec Record) {
	c.mu.Lock()
	c.buf = append(c.buf, rec)
	c.signalLocked()
	c.mu.Unlock()
}

func (c *Controller) markClosed() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.signalLocked()
	}
	c.mu.Unlock()
}

func (c *Controller) signalLocked() {
	close(c.wake)
	c.wake = make(chan struct{})
}

// snapshot returns the buffered record count, closed state and the channel
// to wait on for the next change.
func (c *Controller) snapshot() (int, bool, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf), c.closed, c.wake
}

func (c *Controller) drain() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.buf
	c.buf = nil
	if out == nil {
		out = []Record{}
	}
	return out
}

// Closed reports whether the GDB process has gone away
func (c *Controller) Closed() bool {
	_, closed, _ := c.snapshot()
	return closed
}

// Send writes a command without waiting for a reply.
func (c *Controller) Send(command string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sendLocked(command)
}

func (c *Controller) sendLocked(line string) error {
	if c.Closed() {
		return ErrClosed
	}
	if _, err := io.WriteString(c.stdin, line+"\n"); err != nil {
		if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
			return ErrClosed
		}
		return errors.Wrap(err, "write to gdb")
	}
	c.log.Debug().Str("command", line).Msg("sent gdb command")
	return nil
}

// Write sends a command and waits until GDB answers it with a result record,
// then keeps collecting trailing output for the settle interval. It returns
// every record accumulated since the previous read, in emission order.
//
// The command is prefixed with a fresh token unless it already carries one,
// so a late result from an earlier command does not end the wait.
func (c *Controller) Write(ctx context.Context, command string, timeout time.Duration) ([]Record, error) {
	c.writeMu.Lock()
	token, line := c.tokenize(command)
	err := c.sendLocked(line)
	c.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	scanned := 0
	for {
		c.mu.Lock()
		found := false
		for ; scanned < len(c.buf); scanned++ {
			if isResultFor(c.buf[scanned], token) {
				found = true
				break
			}
		}
		closed, wake := c.closed, c.wake
		c.mu.Unlock()

		if found {
			return c.collect(ctx, deadline.C)
		}
		if closed {
			return c.drain(), ErrClosed
		}

		select {
		case <-wake:
		case <-deadline.C:
			return c.drain(), errors.Wrapf(ErrTimeout, "no result for %q after %s", command, timeout)
		case <-ctx.Done():
			return c.drain(), ctx.Err()
		}
	}
}

// Response waits up to timeout for any output and returns it once GDB has
// been quiet for the settle interval. When nothing arrives in time it
// returns ErrTimeout if raiseOnTimeout is set and an empty result otherwise.
func (c *Controller) Response(ctx context.Context, timeout time.Duration, raiseOnTimeout bool) ([]Record, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		n, closed, wake := c.snapshot()
		if n > 0 {
			return c.collect(ctx, deadline.C)
		}
		if closed {
			return c.drain(), ErrClosed
		}

		select {
		case <-wake:
		case <-deadline.C:
			if raiseOnTimeout {
				return c.drain(), errors.Wrapf(ErrTimeout, "no output after %s", timeout)
			}
			return c.drain(), nil
		case <-ctx.Done():
			return c.drain(), ctx.Err()
		}
	}
}

// collect waits until no new record has arrived for the settle interval,
// the deadline fires or GDB exits, then drains the buffer.
func (c *Controller) collect(ctx context.Context, deadline <-chan time.Time) ([]Record, error) {
	quiet := time.NewTimer(c.settle)
	defer quiet.Stop()

	for {
		_, closed, wake := c.snapshot()
		if closed {
			return c.drain(), nil
		}
		select {
		case <-wake:
			quiet.Reset(c.settle)
		case <-quiet.C:
			return c.drain(), nil
		case <-deadline:
			return c.drain(), nil
		case <-ctx.Done():
			return c.drain(), ctx.Err()
		}
	}
}

// tokenize returns the token the result record will carry and the line to
// send. Must be called with writeMu held.
func (c *Controller) tokenize(command string) (int, string) {
	end := 0
	for end < len(command) && isDigit(command[end]) {
		end++
	}
	if end > 0 && end < len(command) {
		if n, err := strconv.Atoi(command[:end]); err == nil {
			return n, command
		}
	}
	token := c.nextToken
	c.nextToken++
	return token, strconv.Itoa(token) + command
}

func isResultFor(rec Record, token int) bool {
	s, ok := rec.(Structured)
	return ok && s.IsResult() && s.Token != nil && *s.Token == token
}

// Exit terminates GDB and releases its pipes. It is safe to call repeatedly;
// later calls return the first call's error.
func (c *Controller) Exit() error {
	c.exitOnce.Do(func() {
		var result *multierror.Error

		if err := c.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			result = multierror.Append(result, errors.Wrap(err, "close gdb stdin"))
		}

		if c.cmd != nil && c.cmd.Process != nil {
			pid := c.cmd.Process.Pid
			if err := killProcessGroup(pid, c.cmd); err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "kill gdb process group %d", pid))
			}
			c.waitReaders(2 * time.Second)
			if err := c.cmd.Wait(); err != nil {
				var exitErr *exec.ExitError
				if !errors.As(err, &exitErr) {
					result = multierror.Append(result, errors.Wrap(err, "wait for gdb"))
				}
			}
			c.log.Debug().Int("pid", pid).Msg("gdb exited")
		}

		c.markClosed()
		c.exitErr = result.ErrorOrNil()
	})
	return c.exitErr
}

func (c *Controller) waitReaders(limit time.Duration) {
	done := make(chan struct{})
	go func() {
		c.readers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(limit):
		c.log.Warn().Dur("limit", limit).Msg("gdb output still open after kill")
	}
}
