package move

import "fmt"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind  tokenKind
	text  string
	start uint32
	end   uint32
}

func (t token) is(text string) bool {
	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == text
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", t.text)
}

// twoCharPuncts are lexed as single tokens. '>' and '<' are never merged so
// nested type arguments like vector<vector<u8>> stay balanced.
var twoCharPuncts = map[string]bool{
	"::": true, "==": true, "!=": true, "<=": true, ">=": true,
	"&&": true, "||": true, "..": true, "=>": true, "->": true,
	"+=": true, "-=": true, "*=": true, "/=": true,
}

// lex splits src into tokens, dropping whitespace and comments. Block
// comments nest. Unterminated strings and comments run to end of input.
func lex(src []byte) []token {
	var toks []token
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '*':
			depth := 0
			for i < n {
				if src[i] == '/' && i+1 < n && src[i+1] == '*' {
					depth++
					i += 2
					continue
				}
				if src[i] == '*' && i+1 < n && src[i+1] == '/' {
					depth--
					i += 2
					if depth == 0 {
						break
					}
					continue
				}
				i++
			}
		case (c == 'b' || c == 'x') && i+1 < n && src[i+1] == '"':
			start := i
			i = scanString(src, i+1)
			toks = append(toks, token{kind: tokString, text: string(src[start:i]), start: uint32(start), end: uint32(i)})
		case c == '"':
			start := i
			i = scanString(src, i)
			toks = append(toks, token{kind: tokString, text: string(src[start:i]), start: uint32(start), end: uint32(i)})
		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(src[start:i]), start: uint32(start), end: uint32(i)})
		case c >= '0' && c <= '9':
			start := i
			for i < n && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: string(src[start:i]), start: uint32(start), end: uint32(i)})
		default:
			start := i
			if i+1 < n && twoCharPuncts[string(src[i:i+2])] {
				i += 2
			} else {
				i++
			}
			toks = append(toks, token{kind: tokPunct, text: string(src[start:i]), start: uint32(start), end: uint32(i)})
		}
	}
	toks = append(toks, token{kind: tokEOF, start: uint32(n), end: uint32(n)})
	return toks
}

// scanString returns the offset just past the string literal whose opening
// quote is at src[i].
func scanString(src []byte, i int) int {
	i++
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case '"':
			return i + 1
		}
		i++
	}
	return len(src)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
