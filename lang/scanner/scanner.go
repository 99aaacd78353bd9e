// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner tokenizes Lox source text. It is a single-pass lexer with
// one byte of lookahead (two for number fractions and "//" comments) that
// emits tokens lazily as the compiler asks for them.
package scanner

import (
	"fmt"

	"github.com/mna/loxvm/lang/token"
)

// Scanner tokenizes a complete source string. The source buffer must outlive
// the Scanner.
type Scanner struct {
	src     string
	start   int // start of the token being scanned
	current int // offset of the next byte to read
	line    int
}

// Init prepares s to tokenize src from the beginning.
func (s *Scanner) Init(src string) {
	s.src = src
	s.start = 0
	s.current = 0
	s.line = 1
}

// Next scans and returns the next token. After the source is exhausted it
// keeps returning EOF tokens.
func (s *Scanner) Next() token.Token {
	s.skipIgnorable()
	s.start = s.current

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LPAREN)
	case ')':
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case ';':
		return s.make(token.SEMI)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '-':
		return s.make(token.MINUS)
	case '+':
		return s.make(token.PLUS)
	case '*':
		return s.make(token.STAR)
	case '/':
		return s.make(token.SLASH)
	case '!':
		if s.match('=') {
			return s.make(token.BANG_EQ)
		}
		return s.make(token.BANG)
	case '=':
		if s.match('=') {
			return s.make(token.EQ_EQ)
		}
		return s.make(token.EQ)
	case '<':
		if s.match('=') {
			return s.make(token.LT_EQ)
		}
		return s.make(token.LT)
	case '>':
		if s.match('=') {
			return s.make(token.GT_EQ)
		}
		return s.make(token.GT)
	case '"':
		return s.string()
	}

	return s.errorf("unexpected character %q", c)
}

func (s *Scanner) atEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) advance() byte {
	c := s.src[s.current]
	s.current++
	return c
}

// peek returns the byte at the cursor without consuming it, or 0 at EOF.
func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.current]
}

// peekNext returns the byte one past the cursor without consuming it, or 0
// if that would be past EOF.
func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.src) {
		return 0
	}
	return s.src[s.current+1]
}

// match consumes the byte at the cursor if it equals want.
func (s *Scanner) match(want byte) bool {
	if s.atEnd() || s.src[s.current] != want {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) skipIgnorable() {
	for {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() != '/' {
				return
			}
			for s.peek() != '\n' && !s.atEnd() {
				s.advance()
			}
		default:
			return
		}
	}
}

func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		return s.errorf("unterminated string")
	}
	s.advance() // closing quote
	return s.make(token.STRING)
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance() // consume '.'
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.NUMBER)
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	lexeme := s.src[s.start:s.current]
	return token.Token{Kind: token.Lookup(lexeme), Lexeme: lexeme, Line: s.line}
}

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Lexeme: s.src[s.start:s.current], Line: s.line}
}

// errorf produces an ILLEGAL token carrying a message as its lexeme; the
// compiler surfaces this as a compile error at the token's line.
func (s *Scanner) errorf(format string, args ...any) token.Token {
	return token.Token{Kind: token.ILLEGAL, Lexeme: fmt.Sprintf(format, args...), Line: s.line}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
