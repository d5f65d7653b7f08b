// Package session owns the server's single GDB session.
//
// The Manager holds at most one live transport. Connect replaces whatever
// session exists, Disconnect tears it down, and Command relays raw MI
// commands to it. All three are serialized, so the session reference always
// reflects the transport that is actually running.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ctagard/gdb-mcp/internal/config"
	"github.com/ctagard/gdb-mcp/internal/errors"
	"github.com/ctagard/gdb-mcp/internal/gdbmi"
	"github.com/ctagard/gdb-mcp/internal/response"
)

// Transport is the live connection to GDB that a session owns.
// *gdbmi.Controller implements it.
type Transport interface {
	Write(ctx context.Context, command string, timeout time.Duration) ([]gdbmi.Record, error)
	Send(command string) error
	Response(ctx context.Context, timeout time.Duration, raiseOnTimeout bool) ([]gdbmi.Record, error)
	Exit() error
}

// Dialer creates a new transport
type Dialer func(ctx context.Context) (Transport, error)

// GDBDialer returns a Dialer that spawns GDB as configured
func GDBDialer(cfg *config.Config, logger zerolog.Logger) Dialer {
	return func(ctx context.Context) (Transport, error) {
		c, err := gdbmi.Start(ctx, gdbmi.Options{
			Path:           cfg.GDB.Path,
			Args:           cfg.GDB.Args,
			SettleInterval: cfg.Timeouts.Settle,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Options holds the bounded waits used by the manager
type Options struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	PollDelay      time.Duration
	PollTimeout    time.Duration
	Logger         zerolog.Logger
}

// OptionsFromConfig builds manager options from the server configuration
func OptionsFromConfig(cfg *config.Config, logger zerolog.Logger) Options {
	return Options{
		ConnectTimeout: cfg.Timeouts.Connect,
		CommandTimeout: cfg.Timeouts.Command,
		PollDelay:      cfg.Timeouts.PollDelay,
		PollTimeout:    cfg.Timeouts.PollTimeout,
		Logger:         logger,
	}
}

// Session represents the active GDB session
type Session struct {
	ID          string
	Target      string
	ConnectedAt time.Time

	transport Transport
}

// Manager owns the single session reference
type Manager struct {
	dial Dialer
	opts Options
	log  zerolog.Logger

	mu      sync.Mutex
	session *Session
}

// NewManager creates a manager with no active session
func NewManager(dial Dialer, opts Options) *Manager {
	return &Manager{
		dial: dial,
		opts: opts,
		log:  opts.Logger,
	}
}

// Connect starts a new GDB and points it at a remote target such as
// "localhost:1234". Any existing session is torn down first, whatever the
// outcome. When GDB answers with an error the new transport is stopped too
// and the records are returned along with a GDB_ERROR.
func (m *Manager) Connect(ctx context.Context, target string) (records []gdbmi.Record, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.log.Info().Str("session", m.session.ID).Str("target", m.session.Target).Msg("replacing gdb session")
		m.teardownLocked()
	}

	var transport Transport
	defer func() {
		if r := recover(); r != nil {
			if transport != nil {
				m.stop(transport, "")
			}
			m.session = nil
			records, err = nil, errors.ConnectFailed(target, fmt.Errorf("%v", r))
		}
	}()

	transport, err = m.dial(ctx)
	if err != nil {
		m.log.Error().Err(err).Str("target", target).Msg("failed to start gdb")
		return nil, errors.ConnectFailed(target, err)
	}

	records, err = transport.Write(ctx, "-target-select remote "+target, m.opts.ConnectTimeout)
	if err != nil {
		m.log.Error().Err(err).Str("target", target).Msg("target select failed")
		m.stop(transport, "")
		return nil, errors.ConnectFailed(target, err)
	}

	if msg, isErr := response.ErrorMessage(records); isErr {
		m.log.Warn().Str("target", target).Str("error", msg).Msg("gdb rejected target")
		m.stop(transport, "")
		return records, errors.GDBError(msg)
	}

	m.session = &Session{
		ID:          uuid.New().String(),
		Target:      target,
		ConnectedAt: time.Now(),
		transport:   transport,
	}
	m.log.Info().Str("session", m.session.ID).Str("target", target).Msg("connected")
	return records, nil
}

// Disconnect terminates the active session. It reports whether there was
// one; calling it with no session is not an error.
func (m *Manager) Disconnect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return false
	}
	m.log.Info().Str("session", m.session.ID).Msg("disconnecting")
	m.teardownLocked()
	return true
}

// Command sends a raw MI command to the active session.
//
// With waitForDone it blocks until GDB's result record arrives or the
// command timeout passes. Without it the command is sent, the manager pauses
// for the poll delay and then returns whatever output shows up within the
// poll timeout, which may be nothing.
//
// The records are returned as GDB produced them; they are not classified.
func (m *Manager) Command(ctx context.Context, command string, waitForDone bool) ([]gdbmi.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, errors.NotConnected()
	}
	t := m.session.transport

	if waitForDone {
		records, err := t.Write(ctx, command, m.opts.CommandTimeout)
		if err != nil {
			return records, m.commandErrorLocked(command, err)
		}
		return records, nil
	}

	if err := t.Send(command); err != nil {
		return nil, m.commandErrorLocked(command, err)
	}

	pause := time.NewTimer(m.opts.PollDelay)
	defer pause.Stop()
	select {
	case <-pause.C:
	case <-ctx.Done():
		return nil, errors.CommandFailed(command, ctx.Err())
	}

	records, err := t.Response(ctx, m.opts.PollTimeout, false)
	if err != nil {
		return records, m.commandErrorLocked(command, err)
	}
	return records, nil
}

func (m *Manager) commandErrorLocked(command string, err error) error {
	switch {
	case stderrors.Is(err, gdbmi.ErrClosed):
		m.log.Warn().Str("session", m.session.ID).Msg("gdb exited, closing session")
		m.teardownLocked()
		return errors.TransportClosed(err)
	case stderrors.Is(err, gdbmi.ErrTimeout):
		return errors.CommandTimeout(command, m.opts.CommandTimeout, err)
	}
	return errors.CommandFailed(command, err)
}

// Active reports whether a session is connected
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Current returns a copy of the active session, if any
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	s := *m.session
	s.transport = nil
	return s, true
}

// Close tears down any active session
func (m *Manager) Close() {
	m.Disconnect()
}

// teardownLocked stops the session's transport and clears the reference
func (m *Manager) teardownLocked() {
	s := m.session
	m.session = nil
	m.stop(s.transport, s.ID)
}

func (m *Manager) stop(t Transport, id string) {
	if err := t.Exit(); err != nil {
		m.log.Warn().Err(err).Str("session", id).Msg("failed to stop gdb (continuing cleanup)")
	}
}
