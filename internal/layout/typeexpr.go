package layout

import (
	"fmt"
	"strings"
	"unicode"
)

type exprKind int

const (
	exprName exprKind = iota
	exprMapping
	exprArray
)

// typeExpr is the parsed shape of a type token.
//
//	exprName     name
//	exprMapping  mapping(key => elem)
//	exprArray    elem[length]; length is "" for dynamic arrays
type typeExpr struct {
	kind   exprKind
	name   string
	key    *typeExpr
	elem   *typeExpr
	length string
}

// String renders the expression in canonical form with normalized spacing.
func (e *typeExpr) String() string {
	switch e.kind {
	case exprMapping:
		return fmt.Sprintf("mapping(%s => %s)", e.key, e.elem)
	case exprArray:
		return fmt.Sprintf("%s[%s]", e.elem, e.length)
	default:
		return e.name
	}
}

// dataLocations are accepted after a type and ignored.
var dataLocations = map[string]bool{
	"storage":  true,
	"memory":   true,
	"calldata": true,
}

type typeParser struct {
	src    string
	tokens []string
	pos    int
}

// parseTypeExpr parses a field type token such as "uint256",
// "mapping(address => uint256[])", "Lib.Pos[4][2]" or "address payable".
func parseTypeExpr(src string) (*typeExpr, error) {
	p := &typeParser{src: src, tokens: tokenizeType(src)}
	if len(p.tokens) == 0 {
		return nil, &UnknownTypeError{Type: src}
	}
	e, err := p.parseType()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.tokens) && dataLocations[p.peek()] {
		p.pos++
	}
	if p.pos != len(p.tokens) {
		return nil, &UnknownTypeError{Type: src}
	}
	return e, nil
}

func (p *typeParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *typeParser) next() string {
	tok := p.peek()
	if tok != "" {
		p.pos++
	}
	return tok
}

func (p *typeParser) expect(tok string) error {
	if p.next() != tok {
		return &UnknownTypeError{Type: p.src}
	}
	return nil
}

func (p *typeParser) parseType() (*typeExpr, error) {
	var e *typeExpr
	tok := p.next()
	switch {
	case tok == "mapping":
		m, err := p.parseMapping()
		if err != nil {
			return nil, err
		}
		e = m
	case isIdentToken(tok):
		name := tok
		if name == "address" && p.peek() == "payable" {
			p.pos++
		}
		e = &typeExpr{kind: exprName, name: name}
	default:
		return nil, &UnknownTypeError{Type: p.src}
	}

	for p.peek() == "[" {
		p.pos++
		length := ""
		if p.peek() != "]" {
			length = p.next()
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		e = &typeExpr{kind: exprArray, elem: e, length: length}
	}
	return e, nil
}

func (p *typeParser) parseMapping() (*typeExpr, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	key, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipParamName()
	if err := p.expect("=>"); err != nil {
		return nil, err
	}
	value, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipParamName()
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return &typeExpr{kind: exprMapping, key: key, elem: value}, nil
}

// skipParamName drops the optional key/value names of a named mapping,
// e.g. mapping(address owner => uint256 balance).
func (p *typeParser) skipParamName() {
	if tok := p.peek(); isIdentToken(tok) && !dataLocations[tok] {
		p.pos++
	}
}

func isIdentToken(tok string) bool {
	if tok == "" {
		return false
	}
	r := rune(tok[0])
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// tokenizeType splits a type token into identifiers, numbers and the
// punctuation ( ) [ ] , =>.
func tokenizeType(src string) []string {
	var tokens []string
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '=' && i+1 < len(runes) && runes[i+1] == '>':
			tokens = append(tokens, "=>")
			i += 2
		case strings.ContainsRune("()[],", r):
			tokens = append(tokens, string(r))
			i++
		case isIdentRune(r):
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			tokens = append(tokens, string(runes[start:i]))
		default:
			tokens = append(tokens, string(r))
			i++
		}
	}
	return tokens
}
