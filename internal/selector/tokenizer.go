package selector

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokAtom tokenKind = iota
	tokAnd
	tokOr
	tokChain
	tokNot
	tokLParen
	tokRParen
	tokEOF
)

func (k tokenKind) String() string {
	switch k {
	case tokAtom:
		return "selector"
	case tokAnd:
		return "'&&'"
	case tokOr:
		return "'||'"
	case tokChain:
		return "'>>'"
	case tokNot:
		return "'!'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	default:
		return "end of input"
	}
}

type token struct {
	kind tokenKind
	text string // raw atom text, escapes preserved
	pos  int
}

// tokenize splits input into atoms and operators. An atom runs until the next
// unescaped operator; parentheses opened inside an atom (has(...), names such
// as "Save (Ctrl+S)") belong to it until balanced.
func tokenize(input string) ([]token, error) {
	rs := []rune(input)
	var (
		tokens []token
		cur    strings.Builder
		start  int
		depth  int
	)

	flush := func() {
		text := strings.TrimRightFunc(cur.String(), unicode.IsSpace)
		if text != "" {
			tokens = append(tokens, token{kind: tokAtom, text: text, pos: start})
		}
		cur.Reset()
	}
	emit := func(kind tokenKind, pos int) {
		flush()
		tokens = append(tokens, token{kind: kind, pos: pos})
	}

	for i := 0; i < len(rs); i++ {
		r := rs[i]
		next := rune(0)
		if i+1 < len(rs) {
			next = rs[i+1]
		}

		if r == '\\' {
			if cur.Len() == 0 {
				start = i
			}
			cur.WriteRune(r)
			if i+1 < len(rs) {
				i++
				cur.WriteRune(rs[i])
			}
			continue
		}

		if depth > 0 {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
			}
			cur.WriteRune(r)
			continue
		}

		switch {
		case r == '&' && next == '&':
			emit(tokAnd, i)
			i++
		case r == '|' && next == '|':
			emit(tokOr, i)
			i++
		case r == '>' && next == '>':
			emit(tokChain, i)
			i++
		case r == '!' && cur.Len() == 0:
			emit(tokNot, i)
		case r == '(' && cur.Len() == 0:
			emit(tokLParen, i)
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			emit(tokRParen, i)
		case unicode.IsSpace(r) && cur.Len() == 0:
		default:
			if cur.Len() == 0 {
				start = i
			}
			cur.WriteRune(r)
		}
	}

	if depth > 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", strings.TrimSpace(cur.String()))
	}
	flush()
	tokens = append(tokens, token{kind: tokEOF, pos: len(rs)})
	return tokens, nil
}
