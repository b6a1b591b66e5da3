package extract

import (
	"fmt"
	"strings"

	"github.com/roach88/sollayout/internal/ir"
)

// CodeScanError is the error code for source the scanner cannot read.
const CodeScanError = "E206"

// ScanError reports malformed declarations at a 1-based line and column.
type ScanError struct {
	Line    int
	Column  int
	Message string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

func (e *ScanError) Code() string { return CodeScanError }

// Scan collects the declarations a layout needs from Solidity source:
// structs, enums, user-defined value types and contract, interface and
// library names. Everything else, including function bodies, is skipped.
//
// This is primitive parsing, not a grammar. It relies on the fact that
// these declarations have a fixed shape and that comments and strings are
// the only places where their keywords could appear out of context.
func Scan(src []byte) (*ir.Unit, error) {
	s := &scanner{lex: NewLexer(src), seen: make(map[string]Position)}
	if err := s.advance(); err != nil {
		return nil, err
	}
	if err := s.run(); err != nil {
		return nil, err
	}
	return &s.unit, nil
}

type scanner struct {
	lex  *Lexer
	tok  Token
	unit ir.Unit
	seen map[string]Position // qualified struct names

	scopes       []string // enclosing contracts, innermost last
	pendingScope string   // contract name waiting for its opening brace
	depth        int      // brace depth outside declarations
	scopeDepths  []int
}

func (s *scanner) advance() error {
	tok, err := s.lex.Next()
	if err != nil {
		return err
	}
	s.tok = tok
	return nil
}

func (s *scanner) errorf(pos Position, format string, args ...any) error {
	return &ScanError{Line: pos.Line, Column: pos.Column, Message: fmt.Sprintf(format, args...)}
}

func (s *scanner) is(kind Kind, text string) bool {
	return s.tok.Kind == kind && s.tok.Text == text
}

func (s *scanner) run() error {
	for s.tok.Kind != EOF {
		var err error
		switch {
		case s.is(Ident, "contract"), s.is(Ident, "interface"), s.is(Ident, "library"):
			err = s.contract()
		case s.is(Ident, "struct"):
			err = s.structDecl()
		case s.is(Ident, "enum"):
			err = s.enumDecl()
		case s.is(Ident, "type"):
			err = s.aliasDecl()
		case s.is(Punct, "{"):
			s.depth++
			if s.pendingScope != "" {
				s.scopes = append(s.scopes, s.pendingScope)
				s.scopeDepths = append(s.scopeDepths, s.depth)
				s.pendingScope = ""
			}
			err = s.advance()
		case s.is(Punct, "}"):
			if n := len(s.scopeDepths); n > 0 && s.scopeDepths[n-1] == s.depth {
				s.scopes = s.scopes[:n-1]
				s.scopeDepths = s.scopeDepths[:n-1]
			}
			s.depth--
			err = s.advance()
		default:
			err = s.advance()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *scanner) scope() string {
	if len(s.scopes) == 0 {
		return ""
	}
	return s.scopes[len(s.scopes)-1]
}

// contract records the name after contract, interface or library. The
// body is scanned normally; structs inside it get the contract as scope.
func (s *scanner) contract() error {
	if err := s.advance(); err != nil {
		return err
	}
	if s.tok.Kind != Ident {
		// e.g. "interface" used as an identifier in older code
		return nil
	}
	s.unit.Contracts = append(s.unit.Contracts, s.tok.Text)
	s.pendingScope = s.tok.Text
	return s.advance()
}

func (s *scanner) expectIdent(what string) (Token, error) {
	tok := s.tok
	if tok.Kind != Ident {
		return tok, s.errorf(tok.Pos, "expected %s name, found %s %q", what, tok.Kind, tok.Text)
	}
	return tok, s.advance()
}

func (s *scanner) expectPunct(p string) error {
	if !s.is(Punct, p) {
		return s.errorf(s.tok.Pos, "expected %q, found %s %q", p, s.tok.Kind, s.tok.Text)
	}
	return s.advance()
}

func (s *scanner) structDecl() error {
	start := s.tok.Pos
	if err := s.advance(); err != nil {
		return err
	}
	name, err := s.expectIdent("struct")
	if err != nil {
		return err
	}
	if err := s.expectPunct("{"); err != nil {
		return err
	}
	def := ir.StructDef{Name: name.Text, Scope: s.scope(), Line: start.Line, Fields: []ir.RawField{}}
	// Contracts are separate namespaces; only a repeat within one is an error.
	if prev, dup := s.seen[def.QualifiedName()]; dup {
		return s.errorf(name.Pos, "struct %s already declared at %s", def.QualifiedName(), prev)
	}
	s.seen[def.QualifiedName()] = name.Pos

	var fieldToks []Token
	for {
		switch {
		case s.tok.Kind == EOF:
			return s.errorf(start, "unterminated struct %s", name.Text)
		case s.is(Punct, "}"):
			if len(fieldToks) > 0 {
				return s.errorf(fieldToks[0].Pos, "field in struct %s is missing ';'", name.Text)
			}
			s.unit.Structs = append(s.unit.Structs, def)
			return s.advance()
		case s.is(Punct, ";"):
			f, err := s.field(name.Text, fieldToks)
			if err != nil {
				return err
			}
			def.Fields = append(def.Fields, f)
			fieldToks = fieldToks[:0]
		default:
			fieldToks = append(fieldToks, s.tok)
		}
		if err := s.advance(); err != nil {
			return err
		}
	}
}

// field splits "T name" into its type and name. The type is everything
// before the final identifier.
func (s *scanner) field(structName string, toks []Token) (ir.RawField, error) {
	if len(toks) == 0 {
		return ir.RawField{}, s.errorf(s.tok.Pos, "empty field in struct %s", structName)
	}
	last := toks[len(toks)-1]
	if len(toks) < 2 || last.Kind != Ident {
		return ir.RawField{}, s.errorf(toks[0].Pos, "malformed field %q in struct %s", joinTokens(toks), structName)
	}
	return ir.RawField{
		Name: last.Text,
		Type: joinTokens(toks[:len(toks)-1]),
		Line: toks[0].Pos.Line,
	}, nil
}

func (s *scanner) enumDecl() error {
	start := s.tok.Pos
	if err := s.advance(); err != nil {
		return err
	}
	name, err := s.expectIdent("enum")
	if err != nil {
		return err
	}
	if err := s.expectPunct("{"); err != nil {
		return err
	}

	def := ir.EnumDef{Name: name.Text, Line: start.Line, Variants: []string{}}
	for {
		switch {
		case s.tok.Kind == EOF:
			return s.errorf(start, "unterminated enum %s", name.Text)
		case s.is(Punct, "}"):
			s.unit.Enums = append(s.unit.Enums, def)
			return s.advance()
		case s.tok.Kind == Ident:
			def.Variants = append(def.Variants, s.tok.Text)
		case s.is(Punct, ","):
		default:
			return s.errorf(s.tok.Pos, "unexpected %s %q in enum %s", s.tok.Kind, s.tok.Text, name.Text)
		}
		if err := s.advance(); err != nil {
			return err
		}
	}
}

// aliasDecl reads "type Name is Underlying;". Any other use of the word
// type, such as type(uint256).max, is skipped.
func (s *scanner) aliasDecl() error {
	start := s.tok.Pos
	if err := s.advance(); err != nil {
		return err
	}
	if s.tok.Kind != Ident {
		return nil
	}
	name := s.tok
	if err := s.advance(); err != nil {
		return err
	}
	if !s.is(Ident, "is") {
		return nil
	}
	if err := s.advance(); err != nil {
		return err
	}

	var toks []Token
	for !s.is(Punct, ";") {
		if s.tok.Kind == EOF {
			return s.errorf(start, "unterminated type %s", name.Text)
		}
		toks = append(toks, s.tok)
		if err := s.advance(); err != nil {
			return err
		}
	}
	if len(toks) == 0 {
		return s.errorf(start, "type %s has no underlying type", name.Text)
	}
	s.unit.Aliases = append(s.unit.Aliases, ir.AliasDef{Name: name.Text, Underlying: joinTokens(toks), Line: start.Line})
	return s.advance()
}

// joinTokens renders type tokens with canonical spacing: words are
// separated by one space, "=>" is surrounded by spaces and brackets hug
// their contents.
func joinTokens(toks []Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 {
			prev := toks[i-1]
			word := t.Kind == Ident || t.Kind == Number
			prevWord := prev.Kind == Ident || prev.Kind == Number
			if (word && prevWord) || t.Text == "=>" || prev.Text == "=>" {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}
