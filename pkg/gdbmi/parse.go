package gdbmi

import (
	"fmt"
	"strings"
)

// ParseError describes a line that could not be parsed as MI output.
type ParseError struct {
	Line string
	Off  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed MI output at offset %d: %s: %q", e.Off, e.Msg, e.Line)
}

// Parse parses a single line of MI output, without its line terminator.
// Lines that do not start with an MI sigil are returned as raw output
// records; the backend forwards inferior stdout this way when it shares
// the terminal.
func Parse(line string) (Record, error) {
	p := &parser{s: line}
	tok := p.token()
	switch {
	case p.eat('^'):
		return p.structured(RecordResult, tok)
	case p.eat('*'), p.eat('='), p.eat('+'):
		return p.structured(RecordNotify, tok)
	case p.eat('~'):
		return p.stream(RecordConsole)
	case p.eat('&'):
		return p.stream(RecordLog)
	case p.eat('@'):
		return p.stream(RecordTarget)
	}
	return Record{Class: RecordOutput, Stream: line}, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Line: p.s, Off: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) done() bool {
	return p.pos >= len(p.s)
}

func (p *parser) peek(c byte) bool {
	return p.pos < len(p.s) && p.s[p.pos] == c
}

func (p *parser) eat(c byte) bool {
	if p.peek(c) {
		p.pos++
		return true
	}
	return false
}

// token consumes the optional numeric command token at the start of the
// line.
func (p *parser) token() string {
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *parser) ident() (string, error) {
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", p.errorf("expected identifier")
	}
	return p.s[start:p.pos], nil
}

func (p *parser) structured(class, token string) (Record, error) {
	msg, err := p.ident()
	if err != nil {
		return Record{}, err
	}
	rec := Record{Class: class, Message: msg, Token: token}
	if p.eat(',') {
		d, err := p.results()
		if err != nil {
			return Record{}, err
		}
		rec.Payload = d
	}
	if !p.done() {
		return Record{}, p.errorf("trailing data after record")
	}
	return rec, nil
}

func (p *parser) stream(class string) (Record, error) {
	if !p.peek('"') {
		// gdb always quotes stream output, but pass raw text through
		// rather than fail the whole line
		text := p.s[p.pos:]
		p.pos = len(p.s)
		return Record{Class: class, Stream: text}, nil
	}
	text, err := p.cstring()
	if err != nil {
		return Record{}, err
	}
	return Record{Class: class, Stream: text}, nil
}

// results parses a comma separated sequence of key=value pairs. On
// duplicate keys the last value wins.
func (p *parser) results() (Dict, error) {
	d := Dict{}
	for {
		key, err := p.ident()
		if err != nil {
			return nil, err
		}
		if !p.eat('=') {
			return nil, p.errorf("expected '=' after %q", key)
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		d[key] = v
		if p.eat(',') {
			continue
		}
		return d, nil
	}
}

func (p *parser) value() (interface{}, error) {
	switch {
	case p.peek('"'):
		return p.cstring()
	case p.eat('{'):
		if p.eat('}') {
			return Dict{}, nil
		}
		d, err := p.results()
		if err != nil {
			return nil, err
		}
		if !p.eat('}') {
			return nil, p.errorf("expected '}'")
		}
		return d, nil
	case p.eat('['):
		return p.list()
	}
	return nil, p.errorf("expected value")
}

func (p *parser) list() (interface{}, error) {
	if p.eat(']') {
		return List{}, nil
	}
	var l List
	for {
		// list items are either plain values or key=value pairs;
		// only the values are kept
		if !p.peek('"') && !p.peek('{') && !p.peek('[') {
			if _, err := p.ident(); err != nil {
				return nil, err
			}
			if !p.eat('=') {
				return nil, p.errorf("expected '=' in list item")
			}
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		l = append(l, v)
		if p.eat(',') {
			continue
		}
		break
	}
	if !p.eat(']') {
		return nil, p.errorf("expected ']'")
	}
	return l, nil
}

// cstring parses a double quoted string with C style escapes, as
// produced by gdb for all constants and stream output.
func (p *parser) cstring() (string, error) {
	if !p.eat('"') {
		return "", p.errorf("expected '\"'")
	}
	var sb strings.Builder
	for {
		if p.done() {
			return "", p.errorf("unterminated string")
		}
		c := p.s[p.pos]
		p.pos++
		switch c {
		case '"':
			return sb.String(), nil
		case '\\':
			if p.done() {
				return "", p.errorf("unterminated escape")
			}
			e := p.s[p.pos]
			p.pos++
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'f':
				sb.WriteByte('\f')
			case 'v':
				sb.WriteByte('\v')
			case 'b':
				sb.WriteByte('\b')
			case 'a':
				sb.WriteByte(7)
			case '"', '\\', '\'':
				sb.WriteByte(e)
			case '0', '1', '2', '3', '4', '5', '6', '7':
				n := int(e - '0')
				for i := 0; i < 2 && p.pos < len(p.s); i++ {
					d := p.s[p.pos]
					if d < '0' || d > '7' {
						break
					}
					n = n*8 + int(d-'0')
					p.pos++
				}
				sb.WriteByte(byte(n))
			default:
				sb.WriteByte(e)
			}
		default:
			sb.WriteByte(c)
		}
	}
}
