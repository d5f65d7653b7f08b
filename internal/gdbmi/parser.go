package gdbmi

import (
	"fmt"
	"strconv"
	"strings"
)

const prompt = "(gdb)"

// ParseLine parses one line of GDB output read from the given stream.
// It returns false for lines that carry nothing, namely blank lines and the
// "(gdb)" prompt. Lines that are not valid MI are returned as Raw.
func ParseLine(line, stream string) (Record, bool) {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed == prompt {
		return nil, false
	}

	rec, err := parseStructured(line, stream)
	if err != nil {
		return Raw{Value: line}, true
	}
	return rec, true
}

func parseStructured(line, stream string) (Structured, error) {
	p := &parser{s: line}

	token, hasToken := p.token()

	if p.eof() {
		return Structured{}, fmt.Errorf("no record type")
	}
	marker := p.next()

	rec := Structured{Stream: stream}
	if hasToken {
		rec.Token = &token
	}

	switch marker {
	case '^', '*', '+', '=':
		switch marker {
		case '^':
			rec.Type = TypeResult
		case '+':
			rec.Type = TypeStatus
		default:
			rec.Type = TypeNotify
		}
		class := p.until(',')
		if class == "" {
			return Structured{}, fmt.Errorf("missing class")
		}
		rec.Message = class
		if p.eof() {
			return rec, nil
		}
		p.next() // ','
		results, err := p.results()
		if err != nil {
			return Structured{}, err
		}
		rec.Payload = results
		return rec, nil

	case '~', '@', '&':
		if hasToken {
			return Structured{}, fmt.Errorf("token on stream record")
		}
		switch marker {
		case '~':
			rec.Type = TypeConsole
		case '@':
			rec.Type = TypeTarget
		default:
			rec.Type = TypeLog
		}
		text, err := p.cstring()
		if err != nil {
			return Structured{}, err
		}
		if !p.eof() {
			return Structured{}, fmt.Errorf("trailing data after stream record")
		}
		rec.Payload = text
		return rec, nil
	}

	return Structured{}, fmt.Errorf("unknown record marker %q", marker)
}

type parser struct {
	s   string
	pos int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.s)
}

func (p *parser) peek() byte {
	return p.s[p.pos]
}

func (p *parser) next() byte {
	c := p.s[p.pos]
	p.pos++
	return c
}

func (p *parser) expect(c byte) error {
	if p.eof() {
		return fmt.Errorf("expected %q at end of input", c)
	}
	if got := p.next(); got != c {
		return fmt.Errorf("expected %q at offset %d, got %q", c, p.pos-1, got)
	}
	return nil
}

// token consumes a leading run of digits
func (p *parser) token() (int, bool) {
	start := p.pos
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return 0, false
	}
	n, err := strconv.Atoi(p.s[start:p.pos])
	if err != nil {
		p.pos = start
		return 0, false
	}
	return n, true
}

// until consumes up to, but not including, stop or end of input
func (p *parser) until(stop byte) string {
	start := p.pos
	for !p.eof() && p.peek() != stop {
		p.pos++
	}
	return p.s[start:p.pos]
}

// results parses "name=value(,name=value)*" up to end of input
func (p *parser) results() (*Tuple, error) {
	t := newTupleBuilder()
	for {
		key, val, err := p.result()
		if err != nil {
			return nil, err
		}
		t.add(key, val)
		if p.eof() {
			return t.tuple, nil
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
	}
}

func (p *parser) result() (string, any, error) {
	start := p.pos
	for !p.eof() && p.peek() != '=' {
		switch p.peek() {
		case ',', '{', '}', '[', ']', '"':
			return "", nil, fmt.Errorf("malformed variable name at offset %d", p.pos)
		}
		p.pos++
	}
	key := p.s[start:p.pos]
	if key == "" {
		return "", nil, fmt.Errorf("empty variable name at offset %d", start)
	}
	if err := p.expect('='); err != nil {
		return "", nil, err
	}
	val, err := p.value()
	if err != nil {
		return "", nil, err
	}
	return key, val, nil
}

func (p *parser) value() (any, error) {
	if p.eof() {
		return nil, fmt.Errorf("expected value at end of input")
	}
	switch p.peek() {
	case '"':
		return p.cstring()
	case '{':
		return p.tuple()
	case '[':
		return p.list()
	}
	return nil, fmt.Errorf("unexpected %q at offset %d", p.peek(), p.pos)
}

func (p *parser) tuple() (*Tuple, error) {
	p.next() // '{'
	t := newTupleBuilder()
	if !p.eof() && p.peek() == '}' {
		p.next()
		return t.tuple, nil
	}
	for {
		key, val, err := p.result()
		if err != nil {
			return nil, err
		}
		t.add(key, val)
		if p.eof() {
			return nil, fmt.Errorf("unterminated tuple")
		}
		switch p.next() {
		case ',':
		case '}':
			return t.tuple, nil
		default:
			return nil, fmt.Errorf("unexpected %q in tuple at offset %d", p.s[p.pos-1], p.pos-1)
		}
	}
}

// list parses "[]", "[value(,value)*]" or "[result(,result)*]". Results
// inside a list become single-entry tuples.
func (p *parser) list() ([]any, error) {
	p.next() // '['
	items := []any{}
	if !p.eof() && p.peek() == ']' {
		p.next()
		return items, nil
	}
	for {
		if p.eof() {
			return nil, fmt.Errorf("unterminated list")
		}
		switch p.peek() {
		case '"', '{', '[':
			val, err := p.value()
			if err != nil {
				return nil, err
			}
			items = append(items, val)
		default:
			key, val, err := p.result()
			if err != nil {
				return nil, err
			}
			entry := NewTuple()
			entry.Set(key, val)
			items = append(items, entry)
		}
		if p.eof() {
			return nil, fmt.Errorf("unterminated list")
		}
		switch p.next() {
		case ',':
		case ']':
			return items, nil
		default:
			return nil, fmt.Errorf("unexpected %q in list at offset %d", p.s[p.pos-1], p.pos-1)
		}
	}
}

// cstring parses a C string constant and returns its unescaped contents.
// GDB escapes non-printable bytes as octal sequences.
func (p *parser) cstring() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}
	var b []byte
	for {
		if p.eof() {
			return "", fmt.Errorf("unterminated string")
		}
		c := p.next()
		switch c {
		case '"':
			return string(b), nil
		case '\\':
			if p.eof() {
				return "", fmt.Errorf("unterminated escape")
			}
			b = p.escape(b)
		default:
			b = append(b, c)
		}
	}
}

func (p *parser) escape(b []byte) []byte {
	c := p.next()
	switch c {
	case 'n':
		return append(b, '\n')
	case 't':
		return append(b, '\t')
	case 'r':
		return append(b, '\r')
	case 'b':
		return append(b, '\b')
	case 'f':
		return append(b, '\f')
	case 'v':
		return append(b, '\v')
	case 'a':
		return append(b, '\a')
	case 'e':
		return append(b, 0x1b)
	case 'x':
		start := p.pos
		for !p.eof() && p.pos-start < 2 && isHex(p.peek()) {
			p.pos++
		}
		if p.pos == start {
			return append(b, 'x')
		}
		n, _ := strconv.ParseUint(p.s[start:p.pos], 16, 8)
		return append(b, byte(n))
	}
	if isOctal(c) {
		start := p.pos - 1
		for !p.eof() && p.pos-start < 3 && isOctal(p.peek()) {
			p.pos++
		}
		n, _ := strconv.ParseUint(p.s[start:p.pos], 8, 16)
		return append(b, byte(n))
	}
	// \" \\ and anything unknown stand for the character itself
	return append(b, c)
}

// tupleBuilder collapses repeated names into a list of their values
type tupleBuilder struct {
	tuple *Tuple
	multi map[string]bool
}

func newTupleBuilder() *tupleBuilder {
	return &tupleBuilder{tuple: NewTuple()}
}

func (t *tupleBuilder) add(key string, val any) {
	prev, present := t.tuple.Get(key)
	if !present {
		t.tuple.Set(key, val)
		return
	}
	if t.multi[key] {
		t.tuple.Set(key, append(prev.([]any), val))
		return
	}
	if t.multi == nil {
		t.multi = make(map[string]bool)
	}
	t.multi[key] = true
	t.tuple.Set(key, []any{prev, val})
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
