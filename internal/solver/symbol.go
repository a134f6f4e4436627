// Package solver defines the values exchanged with the host solver runtime:
// symbols, atoms, literals and nogoods, plus the interfaces through which
// external atoms read the current (possibly partial) assignment and hand
// learned clauses back.
package solver

import (
	"fmt"
	"strconv"
	"strings"
)

// Symbol is a ground term of the solver: either a constant (identifier,
// integer or quoted string) or a compound term f(t1, ..., tn).
type Symbol struct {
	name string
	args []Symbol
}

// Constant returns a constant symbol with the given text. Quoted strings keep
// their quotes; use Quoted to build one from raw text.
func Constant(text string) Symbol {
	return Symbol{name: text}
}

// Quoted returns a string constant for s.
func Quoted(s string) Symbol {
	return Symbol{name: strconv.Quote(s)}
}

// Int returns an integer constant.
func Int(v int64) Symbol {
	return Symbol{name: strconv.FormatInt(v, 10)}
}

// Compound returns f(args...). With no args it is the constant f.
func Compound(functor string, args ...Symbol) Symbol {
	return Symbol{name: functor, args: append([]Symbol(nil), args...)}
}

// Name is the constant text or the functor of a compound term.
func (s Symbol) Name() string { return s.name }

// Args returns the arguments of a compound term (nil for constants).
func (s Symbol) Args() []Symbol { return s.args }

// IsCompound reports whether s has arguments.
func (s Symbol) IsCompound() bool { return len(s.args) > 0 }

// IsQuoted reports whether s is a quoted string constant.
func (s Symbol) IsQuoted() bool {
	return !s.IsCompound() && len(s.name) >= 2 && s.name[0] == '"' && s.name[len(s.name)-1] == '"'
}

// Unquoted returns the string content of a quoted constant and the plain text
// of anything else.
func (s Symbol) Unquoted() string {
	if !s.IsQuoted() {
		return s.Value()
	}
	if v, err := strconv.Unquote(s.name); err == nil {
		return v
	}
	return s.name[1 : len(s.name)-1]
}

// IntValue returns the integer value of an integer constant.
func (s Symbol) IntValue() (int64, bool) {
	if s.IsCompound() {
		return 0, false
	}
	v, err := strconv.ParseInt(s.name, 10, 64)
	return v, err == nil
}

// Tuple returns the functor followed by the arguments. For constants it is a
// one-element tuple holding the constant itself.
func (s Symbol) Tuple() []Symbol {
	out := make([]Symbol, 0, len(s.args)+1)
	out = append(out, Symbol{name: s.name})
	return append(out, s.args...)
}

// Value is the canonical textual form, also used as the symbol's identity.
func (s Symbol) Value() string {
	if !s.IsCompound() {
		return s.name
	}
	var b strings.Builder
	s.write(&b)
	return b.String()
}

func (s Symbol) String() string { return s.Value() }

func (s Symbol) write(b *strings.Builder) {
	b.WriteString(s.name)
	if !s.IsCompound() {
		return
	}
	b.WriteByte('(')
	for i, a := range s.args {
		if i > 0 {
			b.WriteByte(',')
		}
		a.write(b)
	}
	b.WriteByte(')')
}

// Equal compares canonical forms.
func (s Symbol) Equal(o Symbol) bool { return s.Value() == o.Value() }

// ParseSymbol parses the textual form of a term. Constants are lenient: any
// run of characters other than whitespace, parentheses, commas and quotes is
// accepted, so prefixed names (ex:Dog) and IRIs can be written bare.
func ParseSymbol(text string) (Symbol, error) {
	p := &symbolParser{src: text}
	p.skipSpace()
	s, err := p.term()
	if err != nil {
		return Symbol{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Symbol{}, fmt.Errorf("unexpected %q at offset %d in %q", p.src[p.pos:], p.pos, text)
	}
	return s, nil
}

// MustParseSymbol is ParseSymbol for fixtures; it panics on malformed input.
func MustParseSymbol(text string) Symbol {
	s, err := ParseSymbol(text)
	if err != nil {
		panic(err)
	}
	return s
}

type symbolParser struct {
	src string
	pos int
}

func (p *symbolParser) skipSpace() {
	for p.pos < len(p.src) && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *symbolParser) term() (Symbol, error) {
	if p.pos >= len(p.src) {
		return Symbol{}, fmt.Errorf("unexpected end of term in %q", p.src)
	}
	if p.src[p.pos] == '"' {
		return p.quoted()
	}
	start := p.pos
	for p.pos < len(p.src) && strings.IndexByte(" \t\r\n(),\"", p.src[p.pos]) < 0 {
		p.pos++
	}
	if start == p.pos {
		return Symbol{}, fmt.Errorf("expected term at offset %d in %q", start, p.src)
	}
	name := p.src[start:p.pos]
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return Symbol{name: name}, nil
	}
	p.pos++
	var args []Symbol
	for {
		p.skipSpace()
		arg, err := p.term()
		if err != nil {
			return Symbol{}, err
		}
		args = append(args, arg)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Symbol{}, fmt.Errorf("unterminated argument list in %q", p.src)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return Symbol{name: name, args: args}, nil
		default:
			return Symbol{}, fmt.Errorf("unexpected %q at offset %d in %q", p.src[p.pos], p.pos, p.src)
		}
	}
}

func (p *symbolParser) quoted() (Symbol, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			return Symbol{name: p.src[start:p.pos]}, nil
		}
		p.pos++
	}
	return Symbol{}, fmt.Errorf("unterminated string in %q", p.src)
}

// Unquote strips surrounding double quotes from a raw argument string.
func Unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"") {
		return s[1 : len(s)-1]
	}
	return s
}
