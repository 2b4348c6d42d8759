// Package reader parses s-expression source text into Datum trees.
//
// A Datum is one of:
//
//	nil        the empty list
//	bool       #t or #f
//	int64      an integer that fits a fixnum
//	*big.Int   any larger integer
//	float64    a real
//	Char       #\a, #\space, #\newline
//	String     "...", with Go-style escapes
//	Symbol     anything else
//	*Pair      (a . b), and so proper lists
//	Vector     #(a b c)
package reader

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/michaelmacinnis/adapted"
)

// Datum is a value read from source text.
type Datum interface{}

// Symbol is an identifier datum.
type Symbol string

// String is a string literal datum, escapes already resolved.
type String string

// Char is a character literal datum.
type Char rune

// Pair is a cons datum.
type Pair struct{ Car, Cdr Datum }

// Vector is a vector literal datum.
type Vector []Datum

// List returns a proper list of items.
func List(items ...Datum) Datum {
	var lst Datum
	for i := len(items) - 1; i >= 0; i-- {
		lst = &Pair{items[i], lst}
	}
	return lst
}

// SyntaxError reports malformed source text at a position. Input that ends
// in the middle of a datum wraps io.ErrUnexpectedEOF, so that an interactive
// reader can ask for more.
type SyntaxError struct {
	Pos scanner.Position
	Msg string
	Err error
}

func (err SyntaxError) Error() string {
	msg := err.Msg
	if msg == "" && err.Err != nil {
		msg = err.Err.Error()
	}
	if err.Pos.IsValid() {
		return fmt.Sprintf("%v: syntax error: %v", err.Pos, msg)
	}
	return fmt.Sprintf("syntax error: %v", msg)
}

func (err SyntaxError) Unwrap() error { return err.Err }

// ReadAll reads every datum in src; name is used in error positions.
func ReadAll(name string, src io.Reader) ([]Datum, error) {
	toks, err := Tokenize(name, src)
	if err != nil {
		return nil, err
	}
	var data []Datum
	p := parser{toks: toks}
	for !p.done() {
		d, err := p.read()
		if err != nil {
			return data, err
		}
		data = append(data, d)
	}
	return data, nil
}

// ReadString is ReadAll on a string.
func ReadString(name, src string) ([]Datum, error) {
	return ReadAll(name, strings.NewReader(src))
}

// Token kinds, beyond the single rune punctuation '(', ')', '\'' and '.'.
const (
	Atom       = -(iota + 1) // Token.Value holds the datum
	OpenVector               // #(
)

// Token is one lexical element.
type Token struct {
	Kind  rune
	Pos   scanner.Position
	Text  string
	Value Datum
}

var charNames = map[string]rune{
	"space":   ' ',
	"newline": '\n',
	"tab":     '\t',
	"nul":     0,
}

// Tokenize splits src into tokens.
func Tokenize(name string, src io.Reader) (toks []Token, err error) {
	var scn scanner.Scanner
	scn.Init(src)
	scn.Filename = name
	scn.Mode = scanner.ScanIdents | scanner.ScanStrings
	scn.IsIdentRune = func(ch rune, i int) bool {
		return unicode.IsPrint(ch) && !unicode.IsSpace(ch) &&
			ch != ';' && ch != '(' && ch != ')' && ch != '\'' && ch != '"'
	}
	scn.Error = func(s *scanner.Scanner, msg string) {
		if err == nil {
			err = SyntaxError{Pos: s.Position, Msg: msg}
		}
	}
	scn.Whitespace ^= 1 << '\n'
	scn.Whitespace |= 1 << '\f'

	for tok := scn.Scan(); tok != scanner.EOF; tok = scn.Scan() {
		if err != nil {
			break
		}
		pos := scn.Position
		switch tok {
		case ';':
			for tok != scanner.EOF && tok != '\n' {
				tok = scn.Next()
			}

		case '\n':

		case '(', ')', '\'':
			toks = append(toks, Token{Kind: tok, Pos: pos, Text: string(tok)})

		case scanner.String:
			text := scn.TokenText()
			s, uerr := adapted.ActualBytes(text[1 : len(text)-1])
			if uerr != nil {
				return toks, SyntaxError{Pos: pos, Msg: fmt.Sprintf("invalid string %v", text), Err: uerr}
			}
			toks = append(toks, Token{Kind: Atom, Pos: pos, Text: text, Value: String(s)})

		case scanner.Ident:
			text := scn.TokenText()
			switch {
			case text == ".":
				toks = append(toks, Token{Kind: '.', Pos: pos, Text: text})

			case text == "#" && scn.Peek() == '(':
				scn.Next()
				toks = append(toks, Token{Kind: OpenVector, Pos: pos, Text: "#("})

			case strings.HasPrefix(text, `#\`):
				c, cerr := readChar(&scn, text[2:])
				if cerr != nil {
					return toks, SyntaxError{Pos: pos, Msg: cerr.Error()}
				}
				toks = append(toks, Token{Kind: Atom, Pos: pos, Text: text, Value: c})

			default:
				d, aerr := atom(text)
				if aerr != nil {
					return toks, SyntaxError{Pos: pos, Msg: aerr.Error()}
				}
				toks = append(toks, Token{Kind: Atom, Pos: pos, Text: text, Value: d})
			}

		default:
			return toks, SyntaxError{Pos: pos, Msg: fmt.Sprintf("illegal character %q", tok)}
		}
	}
	return toks, err
}

func readChar(scn *scanner.Scanner, name string) (Char, error) {
	switch {
	case name == "":
		// delimiters like #\( and #\space are not identifier runes
		r := scn.Next()
		if r == scanner.EOF {
			return 0, errors.New("missing character after #\\")
		}
		return Char(r), nil
	case len([]rune(name)) == 1:
		return Char([]rune(name)[0]), nil
	}
	if r, ok := charNames[strings.ToLower(name)]; ok {
		return Char(r), nil
	}
	return 0, fmt.Errorf("unknown character name %q", name)
}

func atom(text string) (Datum, error) {
	switch text {
	case "#t":
		return true, nil
	case "#f":
		return false, nil
	}
	if text[0] == '#' {
		return nil, fmt.Errorf("unknown syntax %q", text)
	}
	if looksNumeric(text) {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
		if z, ok := new(big.Int).SetString(text, 10); ok {
			return z, nil
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f, nil
		}
	}
	return Symbol(text), nil
}

// looksNumeric rules out symbols that strconv would otherwise accept, like
// "inf" or "nan".
func looksNumeric(text string) bool {
	if text[0] == '+' || text[0] == '-' {
		text = text[1:]
	}
	if text != "" && text[0] == '.' {
		text = text[1:]
	}
	return text != "" && text[0] >= '0' && text[0] <= '9'
}

type parser struct {
	toks []Token
	last scanner.Position
}

func (p *parser) done() bool { return len(p.toks) == 0 }

func (p *parser) next() (Token, error) {
	if len(p.toks) == 0 {
		return Token{}, SyntaxError{Pos: p.last, Msg: "unexpected end of input", Err: io.ErrUnexpectedEOF}
	}
	tok := p.toks[0]
	p.toks = p.toks[1:]
	p.last = tok.Pos
	return tok, nil
}

func (p *parser) peek() (rune, error) {
	if len(p.toks) == 0 {
		return 0, SyntaxError{Pos: p.last, Msg: "unexpected end of input", Err: io.ErrUnexpectedEOF}
	}
	return p.toks[0].Kind, nil
}

func (p *parser) read() (Datum, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case Atom:
		return tok.Value, nil
	case '(':
		return p.readList()
	case OpenVector:
		return p.readVector()
	case '\'':
		d, err := p.read()
		if err != nil {
			return nil, err
		}
		return List(Symbol("quote"), d), nil
	case ')':
		return nil, SyntaxError{Pos: tok.Pos, Msg: "unexpected )"}
	case '.':
		return nil, SyntaxError{Pos: tok.Pos, Msg: "unexpected ."}
	default:
		return nil, SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("unexpected %q", tok.Text)}
	}
}

func (p *parser) readList() (Datum, error) {
	var items []Datum
	var tail Datum
	for {
		kind, err := p.peek()
		if err != nil {
			return nil, err
		}
		if kind == ')' {
			p.next()
			break
		}
		if kind == '.' {
			dot, _ := p.next()
			if len(items) == 0 {
				return nil, SyntaxError{Pos: dot.Pos, Msg: "nothing before . in list"}
			}
			if tail, err = p.read(); err != nil {
				return nil, err
			}
			end, err := p.next()
			if err != nil {
				return nil, err
			}
			if end.Kind != ')' {
				return nil, SyntaxError{Pos: end.Pos, Msg: "expected ) after dotted tail"}
			}
			break
		}
		d, err := p.read()
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	lst := tail
	for i := len(items) - 1; i >= 0; i-- {
		lst = &Pair{items[i], lst}
	}
	return lst, nil
}

func (p *parser) readVector() (Datum, error) {
	vec := Vector{}
	for {
		kind, err := p.peek()
		if err != nil {
			return nil, err
		}
		if kind == ')' {
			p.next()
			return vec, nil
		}
		d, err := p.read()
		if err != nil {
			return nil, err
		}
		vec = append(vec, d)
	}
}
