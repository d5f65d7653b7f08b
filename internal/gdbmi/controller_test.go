package gdbmi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeGDB answers commands written to the controller's stdin with canned
// MI output produced by reply.
type fakeGDB struct {
	stdinR   *io.PipeReader
	stdoutW  *io.PipeWriter
	commands chan string
}

func startFake(t *testing.T, reply func(token, command string) []string) (*Controller, *fakeGDB) {
	t.Helper()

	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	f := &fakeGDB{stdinR: stdinR, stdoutW: stdoutW, commands: make(chan string, 16)}

	go func() {
		defer stdoutW.Close()
		scanner := bufio.NewScanner(stdinR)
		for scanner.Scan() {
			line := scanner.Text()
			f.commands <- line
			end := 0
			for end < len(line) && line[end] >= '0' && line[end] <= '9' {
				end++
			}
			for _, out := range reply(line[:end], line[end:]) {
				if _, err := io.WriteString(stdoutW, out+"\n"); err != nil {
					return
				}
			}
		}
	}()

	c := NewController(stdinW, stdoutR, nil, Options{
		SettleInterval: 20 * time.Millisecond,
		Logger:         zerolog.Nop(),
	})
	t.Cleanup(func() {
		c.Exit()
		stdinR.Close()
	})
	return c, f
}

func TestController_WriteCollectsUntilResult(t *testing.T) {
	c, f := startFake(t, func(token, command string) []string {
		return []string{
			`~"Remote debugging using localhost:1234\n"`,
			"(gdb)",
			token + `^connected`,
			`*stopped,frame={addr="0x0000fff0"},thread-id="1"`,
		}
	})

	records, err := c.Write(context.Background(), "-target-select remote localhost:1234", time.Second)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	sent := <-f.commands
	if sent != "1-target-select remote localhost:1234" {
		t.Errorf("expected tokenized command, got %q", sent)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %#v", len(records), records)
	}
	if s := records[0].(Structured); s.Type != TypeConsole {
		t.Errorf("expected console record first, got %q", s.Type)
	}
	if s := records[1].(Structured); s.Message != "connected" || s.Token == nil || *s.Token != 1 {
		t.Errorf("expected ^connected with token 1, got %#v", s)
	}
	if s := records[2].(Structured); s.Message != "stopped" {
		t.Errorf("expected trailing *stopped to be collected, got %#v", s)
	}
}

func TestController_WriteIgnoresStaleResults(t *testing.T) {
	c, _ := startFake(t, func(token, command string) []string {
		return []string{
			`99^done,stale="yes"`,
			token + `^done,value="42"`,
		}
	})

	records, err := c.Write(context.Background(), "-data-evaluate-expression x", time.Second)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected both results, got %d", len(records))
	}
	last := records[1].(Structured)
	payload, _ := last.PayloadTuple()
	if v, _ := payload.Get("value"); v != "42" {
		t.Errorf("expected value 42 in matching result, got %v", v)
	}
}

func TestController_WriteKeepsCallerToken(t *testing.T) {
	c, f := startFake(t, func(token, command string) []string {
		return []string{token + "^done"}
	})

	if _, err := c.Write(context.Background(), "42-exec-next", time.Second); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if sent := <-f.commands; sent != "42-exec-next" {
		t.Errorf("expected caller token kept, got %q", sent)
	}
}

func TestController_TokensIncrease(t *testing.T) {
	c, f := startFake(t, func(token, command string) []string {
		return []string{token + "^done"}
	})

	for i := 1; i <= 3; i++ {
		if _, err := c.Write(context.Background(), "-gdb-version", time.Second); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
		want := fmt.Sprintf("%d-gdb-version", i)
		if sent := <-f.commands; sent != want {
			t.Errorf("expected %q, got %q", want, sent)
		}
	}
}

func TestController_WriteTimeout(t *testing.T) {
	c, _ := startFake(t, func(token, command string) []string {
		return []string{`~"thinking"`}
	})

	records, err := c.Write(context.Background(), "-exec-continue", 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected partial output returned, got %d records", len(records))
	}
}

func TestController_WriteContextCancelled(t *testing.T) {
	c, _ := startFake(t, func(token, command string) []string { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Write(ctx, "-exec-continue", 5*time.Second)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}

func TestController_SendThenResponse(t *testing.T) {
	c, f := startFake(t, func(token, command string) []string {
		return []string{"^running", `*running,thread-id="all"`}
	})

	if err := c.Send("-exec-continue"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if sent := <-f.commands; sent != "-exec-continue" {
		t.Errorf("expected command sent untouched, got %q", sent)
	}

	records, err := c.Response(context.Background(), time.Second, false)
	if err != nil {
		t.Fatalf("Response failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestController_ResponseTimeout(t *testing.T) {
	c, _ := startFake(t, func(token, command string) []string { return nil })

	records, err := c.Response(context.Background(), 30*time.Millisecond, false)
	if err != nil {
		t.Fatalf("expected no error without raise, got %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", records)
	}

	_, err = c.Response(context.Background(), 30*time.Millisecond, true)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout with raise, got %v", err)
	}
}

func TestController_RawOutputPreserved(t *testing.T) {
	c, _ := startFake(t, func(token, command string) []string {
		return []string{"inferior says hi", token + "^done"}
	})

	records, err := c.Write(context.Background(), "-exec-run", time.Second)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	raw, ok := records[0].(Raw)
	if !ok || raw.Value != "inferior says hi" {
		t.Errorf("expected raw line first, got %#v", records[0])
	}
}

func TestController_StderrStream(t *testing.T) {
	stdinR, stdinW := io.Pipe()
	defer stdinR.Close()
	stdoutR, stdoutW := io.Pipe()
	defer stdoutW.Close()

	c := NewController(stdinW, stdoutR, strings.NewReader("warning: no symbols\n"), Options{
		SettleInterval: 10 * time.Millisecond,
		Logger:         zerolog.Nop(),
	})
	defer c.Exit()

	records, err := c.Response(context.Background(), time.Second, true)
	if err != nil {
		t.Fatalf("Response failed: %v", err)
	}
	raw, ok := records[0].(Raw)
	if !ok || raw.Value != "warning: no symbols" {
		t.Errorf("expected stderr line as raw record, got %#v", records[0])
	}
}

func TestController_ClosedAfterEOF(t *testing.T) {
	c, f := startFake(t, func(token, command string) []string { return nil })

	f.stdoutW.Close()
	deadline := time.Now().Add(time.Second)
	for !c.Closed() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !c.Closed() {
		t.Fatal("expected controller closed after stdout EOF")
	}

	if _, err := c.Write(context.Background(), "-gdb-version", time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Write, got %v", err)
	}
	if err := c.Send("-gdb-version"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Send, got %v", err)
	}
}

func TestController_ExitIdempotent(t *testing.T) {
	c, _ := startFake(t, func(token, command string) []string { return nil })

	if err := c.Exit(); err != nil {
		t.Fatalf("first Exit failed: %v", err)
	}
	if err := c.Exit(); err != nil {
		t.Fatalf("second Exit failed: %v", err)
	}
	if !c.Closed() {
		t.Error("expected controller closed after Exit")
	}
}
