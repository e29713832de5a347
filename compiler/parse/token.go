package parse

import (
	"fmt"
)

type (
	token any

	punct  string
	ident  string
	number string
	eof    struct{}
)

var keywords = map[ident]bool{
	"if":     true,
	"else":   true,
	"while":  true,
	"return": true,
}

// token skips spaces and comments and reads one token.
// pos is where the token starts, i is where it ends.
func (p *parser) token(st int) (t token, pos, i int, err error) {
	b := p.b
	i = st

	for {
		i = skipSpaces(b, i)

		if i+1 < len(b) && b[i] == '/' && b[i+1] == '/' {
			i = skipLine(b, i)
			continue
		}

		break
	}

	pos = i

	if i == len(b) {
		return eof{}, pos, i, nil
	}

	c := b[i]

	if i+1 < len(b) {
		switch two := string(b[i : i+2]); two {
		case "==", "!=", "<=", ">=", "&&", "||":
			return punct(two), pos, i + 2, nil
		}
	}

	switch {
	case c == '(' || c == ')' || c == '{' || c == '}' || c == ';' || c == '=' ||
		c == '+' || c == '-' || c == '*' || c == '/' || c == '%' ||
		c == '<' || c == '>' || c == '!':
		return punct(b[i : i+1]), pos, i + 1, nil
	case isLetter(c):
		i = skipIdent(b, i+1)

		return ident(b[pos:i]), pos, i, nil
	case isDigit(c):
		for i < len(b) && isDigit(b[i]) {
			i++
		}

		if i < len(b) && isLetter(b[i]) {
			return nil, pos, i, p.errorf(pos, "malformed number")
		}

		return number(b[pos:i]), pos, i, nil
	default:
		return nil, pos, i, p.errorf(pos, "unsupported character: %q", c)
	}
}

func describe(t token) string {
	switch t := t.(type) {
	case eof:
		return "end of input"
	case punct:
		return fmt.Sprintf("%q", string(t))
	case ident:
		return fmt.Sprintf("identifier %s", string(t))
	case number:
		return fmt.Sprintf("number %s", string(t))
	default:
		return fmt.Sprintf("%v", t)
	}
}

func skipSpaces(b []byte, i int) int {
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}

		break
	}

	return i
}

func skipIdent(b []byte, i int) int {
	for i < len(b) && (isLetter(b[i]) || isDigit(b[i])) {
		i++
	}

	return i
}

func skipLine(b []byte, i int) int {
	for i < len(b) && b[i] != '\n' {
		i++
	}

	return i
}

func isLetter(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
