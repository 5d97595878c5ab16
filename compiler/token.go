package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Layout
	TokenNewline
	TokenIndent
	TokenDedent

	// Literals
	TokenInteger    // 42, 0xFF, 0b1010
	TokenFloat      // 3.14, 1.5e10
	TokenString     // 'hello', "hello", '''hello'''
	TokenIdentifier // foo, Bar

	// Delimiters
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLBrace   // {
	TokenRBrace   // }
	TokenComma    // ,
	TokenColon    // :
	TokenSemicolon
	TokenDot
	TokenAssign // =

	// Operators
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenDoubleSlash
	TokenPercent
	TokenDoubleStar
	TokenEq
	TokenNe
	TokenLt
	TokenLe
	TokenGt
	TokenGe

	// Augmented assignment
	TokenPlusAssign
	TokenMinusAssign
	TokenStarAssign
	TokenSlashAssign
	TokenDoubleSlashAssign
	TokenPercentAssign
	TokenDoubleStarAssign

	// Keywords
	TokenAnd
	TokenAs
	TokenAssert
	TokenBreak
	TokenClass
	TokenContinue
	TokenDef
	TokenDel
	TokenElif
	TokenElse
	TokenExcept
	TokenFalse
	TokenFinally
	TokenFor
	TokenFrom
	TokenIf
	TokenImport
	TokenIn
	TokenIs
	TokenNone
	TokenNot
	TokenOr
	TokenPass
	TokenRaise
	TokenReturn
	TokenTrue
	TokenTry
	TokenWhile
)

var tokenNames = map[TokenType]string{
	TokenEOF:               "EOF",
	TokenError:             "ERROR",
	TokenNewline:           "NEWLINE",
	TokenIndent:            "INDENT",
	TokenDedent:            "DEDENT",
	TokenInteger:           "INTEGER",
	TokenFloat:             "FLOAT",
	TokenString:            "STRING",
	TokenIdentifier:        "IDENTIFIER",
	TokenLParen:            "(",
	TokenRParen:            ")",
	TokenLBracket:          "[",
	TokenRBracket:          "]",
	TokenLBrace:            "{",
	TokenRBrace:            "}",
	TokenComma:             ",",
	TokenColon:             ":",
	TokenSemicolon:         ";",
	TokenDot:               ".",
	TokenAssign:            "=",
	TokenPlus:              "+",
	TokenMinus:             "-",
	TokenStar:              "*",
	TokenSlash:             "/",
	TokenDoubleSlash:       "//",
	TokenPercent:           "%",
	TokenDoubleStar:        "**",
	TokenEq:                "==",
	TokenNe:                "!=",
	TokenLt:                "<",
	TokenLe:                "<=",
	TokenGt:                ">",
	TokenGe:                ">=",
	TokenPlusAssign:        "+=",
	TokenMinusAssign:       "-=",
	TokenStarAssign:        "*=",
	TokenSlashAssign:       "/=",
	TokenDoubleSlashAssign: "//=",
	TokenPercentAssign:     "%=",
	TokenDoubleStarAssign:  "**=",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	for word, tt := range keywords {
		if tt == t {
			return word
		}
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text, or the decoded value for strings
	Pos     Position // start position

	// AtEOF marks layout tokens synthesized at the end of input, and
	// errors caused by input ending inside a token.
	AtEOF bool
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// keywords maps reserved words to their token types.
var keywords = map[string]TokenType{
	"and":      TokenAnd,
	"as":       TokenAs,
	"assert":   TokenAssert,
	"break":    TokenBreak,
	"class":    TokenClass,
	"continue": TokenContinue,
	"def":      TokenDef,
	"del":      TokenDel,
	"elif":     TokenElif,
	"else":     TokenElse,
	"except":   TokenExcept,
	"False":    TokenFalse,
	"finally":  TokenFinally,
	"for":      TokenFor,
	"from":     TokenFrom,
	"if":       TokenIf,
	"import":   TokenImport,
	"in":       TokenIn,
	"is":       TokenIs,
	"None":     TokenNone,
	"not":      TokenNot,
	"or":       TokenOr,
	"pass":     TokenPass,
	"raise":    TokenRaise,
	"return":   TokenReturn,
	"True":     TokenTrue,
	"try":      TokenTry,
	"while":    TokenWhile,
}

// Keywords returns the reserved words, for completion in editors.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for w := range keywords {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
