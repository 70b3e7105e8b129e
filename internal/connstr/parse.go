package connstr

import (
	"fmt"
	"strings"

	"github.com/koustreak/dsneditor/internal/errs"
)

// Parse reads a connection string into Attributes.
//
// Grammar notes:
//   - white space around keywords, `=` and values is ignored;
//   - empty segments (`;;`) are skipped, and a trailing `;` is allowed;
//   - keywords cannot contain `\` or `;`;
//   - a value starting with `{` runs up to the first `}`, which must be
//     followed by `;` or the end of the string;
//   - a repeated keyword overrides the earlier value.
//
// Errors are *errs.Error of kind ErrKindParseFailed.
func Parse(s string) (*Attributes, error) {
	p := &parser{src: s}
	attrs := New()

	for {
		p.skipSpace(true)
		if p.eof() {
			return attrs, nil
		}

		key, err := p.keyword()
		if err != nil {
			return nil, err
		}

		p.skipSpace(false)
		if p.eof() || p.peek() != '=' {
			return nil, p.fail("expected '=' after keyword %q", key)
		}
		p.pos++
		p.skipSpace(false)

		value, valBraced, err := p.value()
		if err != nil {
			return nil, err
		}

		attrs.SetPair(Pair{Key: key, Value: value, Braced: valBraced})
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) fail(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return errs.Newf(errs.ErrKindParseFailed, "invalid connection string at position %d: %s", p.pos, msg)
}

// skipSpace advances over white space; with semicolons set, `;` counts as
// white space too (separators between pairs).
func (p *parser) skipSpace(semicolons bool) {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\r', '\n':
			p.pos++
		case ';':
			if !semicolons {
				return
			}
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) keyword() (string, error) {
	if p.peek() == '{' {
		v, err := p.braced()
		if err != nil {
			return "", err
		}
		if v == "" {
			return "", p.fail("empty keyword")
		}
		return v, nil
	}

	start := p.pos
scan:
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\r', '\n', '=':
			break scan
		case ';':
			return "", p.fail("';' found while parsing keyword")
		case '\\':
			return "", p.fail("keywords cannot contain the backslash")
		}
		p.pos++
	}
	if p.pos == start {
		return "", p.fail("empty keyword")
	}
	return p.src[start:p.pos], nil
}

func (p *parser) value() (string, bool, error) {
	if p.eof() {
		return "", false, nil
	}
	if p.peek() == '{' {
		v, err := p.braced()
		if err != nil {
			return "", false, err
		}
		p.skipSpace(false)
		if !p.eof() && p.peek() != ';' {
			return "", false, p.fail("unexpected %q after closing brace", p.peek())
		}
		return v, true, nil
	}

	start := p.pos
	for !p.eof() && p.peek() != ';' {
		p.pos++
	}
	return strings.TrimRight(p.src[start:p.pos], " \t\r\n"), false, nil
}

// braced consumes `{...}` and returns the content between the braces.
func (p *parser) braced() (string, error) {
	open := p.pos
	p.pos++ // '{'
	end := strings.IndexByte(p.src[p.pos:], '}')
	if end < 0 {
		p.pos = open
		return "", p.fail("unterminated brace")
	}
	v := p.src[p.pos : p.pos+end]
	if strings.IndexByte(v, '{') >= 0 {
		return "", p.fail("braced token cannot contain an inner opening brace")
	}
	p.pos += end + 1
	return v, nil
}
