package scanner_test

import (
	"testing"

	"github.com/mna/loxvm/lang/scanner"
	"github.com/mna/loxvm/lang/token"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	cases := []struct {
		desc string
		src  string
		want []token.Kind
	}{
		{"empty", "", []token.Kind{token.EOF}},
		{"punct", "(){};,.-+*/", []token.Kind{
			token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.SEMI,
			token.COMMA, token.DOT, token.MINUS, token.PLUS, token.STAR, token.SLASH,
			token.EOF,
		}},
		{"compare ops", "! != = == < <= > >=", []token.Kind{
			token.BANG, token.BANG_EQ, token.EQ, token.EQ_EQ,
			token.LT, token.LT_EQ, token.GT, token.GT_EQ, token.EOF,
		}},
		{"keywords", "and class else false for fun if nil or print return super this true var while",
			[]token.Kind{
				token.AND, token.CLASS, token.ELSE, token.FALSE, token.FOR, token.FUN,
				token.IF, token.NIL, token.OR, token.PRINT, token.RETURN, token.SUPER,
				token.THIS, token.TRUE, token.VAR, token.WHILE, token.EOF,
			}},
		{"identifier vs keyword prefix", "classroom printer", []token.Kind{
			token.IDENT, token.IDENT, token.EOF,
		}},
		{"number", "123 1.5", []token.Kind{token.NUMBER, token.NUMBER, token.EOF}},
		{"leading dot is not a number", ".5", []token.Kind{token.DOT, token.NUMBER, token.EOF}},
		{"string", `"hello world"`, []token.Kind{token.STRING, token.EOF}},
		{"line comment", "1 // a comment\n2", []token.Kind{token.NUMBER, token.NUMBER, token.EOF}},
		{"unterminated string", `"oops`, []token.Kind{token.ILLEGAL, token.EOF}},
		{"unexpected byte", "@", []token.Kind{token.ILLEGAL, token.EOF}},
	}

	for _, tt := range cases {
		t.Run(tt.desc, func(t *testing.T) {
			var s scanner.Scanner
			s.Init(tt.src)

			var got []token.Kind
			for {
				tok := s.Next()
				got = append(got, tok.Kind)
				if tok.Kind == token.EOF {
					break
				}
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLineTracking(t *testing.T) {
	var s scanner.Scanner
	s.Init("1\n2\n\n3")

	var lines []int
	for {
		tok := s.Next()
		if tok.Kind == token.EOF {
			break
		}
		lines = append(lines, tok.Line)
	}
	require.Equal(t, []int{1, 2, 4}, lines)
}

func TestStringPreservesNewlines(t *testing.T) {
	var s scanner.Scanner
	s.Init("\"a\nb\"")
	tok := s.Next()
	require.Equal(t, token.STRING, tok.Kind)
	require.Equal(t, "\"a\nb\"", tok.Lexeme)

	next := s.Next()
	require.Equal(t, token.EOF, next.Kind)
	require.Equal(t, 2, next.Line)
}
