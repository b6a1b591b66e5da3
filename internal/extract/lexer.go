package extract

import "fmt"

// Kind identifies the category of a token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Number
	String
	Punct
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case Ident:
		return "identifier"
	case Number:
		return "number"
	case String:
		return "string"
	default:
		return "punctuation"
	}
}

// Position describes a byte offset and 1-based line/column.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token carries a lexical item along with its source position.
type Token struct {
	Kind Kind
	Text string
	Pos  Position
}

// Lexer converts Solidity source into tokens. It understands just enough of
// the language to find declarations: comments and string literals are
// skipped, everything else is an identifier, a number or punctuation.
type Lexer struct {
	input   []byte
	pos     int  // current position in bytes
	readPos int  // next read position
	ch      byte // current char
	line    int
	column  int
}

// NewLexer creates a lexer for the provided source.
func NewLexer(input []byte) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// Next returns the next token. It fails on unterminated comments and
// string literals.
func (l *Lexer) Next() (Token, error) {
	for {
		l.skipWhitespace()

		if l.ch == 0 && l.pos >= len(l.input) {
			return l.makeToken(EOF, ""), nil
		}

		if l.ch == '/' {
			if l.peekChar() == '/' {
				l.skipLineComment()
				continue
			}
			if l.peekChar() == '*' {
				if err := l.skipBlockComment(); err != nil {
					return Token{}, err
				}
				continue
			}
		}

		switch {
		case isLetter(l.ch):
			return l.readIdentifier(), nil
		case isDigit(l.ch):
			return l.readNumber(), nil
		case l.ch == '"' || l.ch == '\'':
			return l.readString()
		case l.ch == '=' && l.peekChar() == '>':
			tok := l.makeToken(Punct, "=>")
			l.readChar()
			l.readChar()
			return tok, nil
		default:
			tok := l.makeToken(Punct, string(l.ch))
			l.readChar()
			return tok, nil
		}
	}
}

func (l *Lexer) makeToken(k Kind, text string) Token {
	return Token{
		Kind: k,
		Text: text,
		Pos:  Position{Offset: l.pos, Line: l.line, Column: l.column},
	}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != 0 && l.ch != '\n' {
		l.readChar()
	}
}

func (l *Lexer) skipBlockComment() error {
	start := l.makeToken(Punct, "/*").Pos
	l.readChar() // consume '/'
	l.readChar() // consume '*'
	for {
		if l.ch == 0 && l.pos >= len(l.input) {
			return &ScanError{Line: start.Line, Column: start.Column, Message: "unterminated block comment"}
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // '*'
			l.readChar() // '/'
			return nil
		}
		l.readChar()
	}
}

// readIdentifier reads a name. Dots are kept so that qualified names such
// as Lib.S arrive as one token.
func (l *Lexer) readIdentifier() Token {
	tok := l.makeToken(Ident, "")
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || (l.ch == '.' && isLetter(l.peekChar())) {
		l.readChar()
	}
	tok.Text = string(l.input[start:l.pos])
	return tok
}

func (l *Lexer) readNumber() Token {
	tok := l.makeToken(Number, "")
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	tok.Text = string(l.input[start:l.pos])
	return tok
}

func (l *Lexer) readString() (Token, error) {
	tok := l.makeToken(String, "")
	quote := l.ch
	start := l.pos
	l.readChar()
	for l.ch != quote {
		if l.ch == '\n' || (l.ch == 0 && l.pos >= len(l.input)) {
			return Token{}, &ScanError{Line: tok.Pos.Line, Column: tok.Pos.Column, Message: "unterminated string literal"}
		}
		if l.ch == '\\' {
			l.readChar()
		}
		l.readChar()
	}
	l.readChar() // closing quote
	tok.Text = string(l.input[start:l.pos])
	return tok, nil
}

func isLetter(ch byte) bool {
	return ch == '_' || ch == '$' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch >= 0x80
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.pos = l.readPos
		l.ch = 0
		return
	}

	l.ch = l.input[l.readPos]
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}
