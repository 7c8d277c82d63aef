// Package token defines the lexeme data model shared by the lexer and
// the translator: tagged token values and the declaration-kind
// enumeration that drives VM segment selection.
package token

import "fmt"

// Type tags a Token with one of the five lexeme variants.
type Type string

const (
	Invalid     Type = ""
	Keyword     Type = "keyword"
	Symbol      Type = "symbol"
	IntConst    Type = "integerConstant"
	StringConst Type = "stringConstant"
	Identifier  Type = "identifier"
)

// Kind classifies a declared name; it determines the VM memory
// segment used to read or write that name.
type Kind string

const (
	NONE   Kind = ""
	STATIC Kind = "static"
	FIELD  Kind = "field"
	ARG    Kind = "arg"
	LOCAL  Kind = "local"
)

// Keywords is the full set of reserved words of the source language.
var Keywords = map[string]bool{
	"class": true, "constructor": true, "function": true, "method": true,
	"field": true, "static": true, "var": true, "int": true, "char": true,
	"boolean": true, "void": true, "true": true, "false": true, "null": true,
	"this": true, "let": true, "do": true, "if": true, "else": true,
	"while": true, "return": true,
}

// Symbols is the 19-character punctuator set.
const Symbols = "{}()[].,;+-*/&|<>=~"

// Token is one lexeme together with the source line it started on.
type Token struct {
	Type Type
	Text string // literal text; for StringConst, the value with quotes stripped
	Line int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Text, t.Line)
}

// Is reports whether the token is a Keyword or Symbol whose text
// matches one of the given terminals.
func (t Token) Is(terminals ...string) bool {
	for _, term := range terminals {
		if t.Text == term && (t.Type == Keyword || t.Type == Symbol) {
			return true
		}
	}
	return false
}

// SegmentName maps a Kind to the VM memory segment name used to
// address variables of that kind. NONE has no segment.
func (k Kind) SegmentName() string {
	switch k {
	case STATIC:
		return "static"
	case FIELD:
		return "this"
	case ARG:
		return "argument"
	case LOCAL:
		return "local"
	default:
		return ""
	}
}
