// Package directive recognizes the preprocessor statements of a module
// source file.
//
// A statement is a line whose first non-blank character is '#'. The words
// after the '#' are split on whitespace and the first one selects the kind:
// one of the module keywords, a native GLSL directive that is passed through
// untouched, or an error.
package directive

import (
	"fmt"
	"strings"
)

// ----------------------------------------------------------------------------
// Kinds
// ----------------------------------------------------------------------------

// Kind represents the type of a directive token.
type Kind uint8

const (
	KindError Kind = iota

	// Module keywords
	KindEnd
	KindModule
	KindVert
	KindFrag
	KindProgram
	KindInclude
	KindIncludeModule
	KindCTypedef

	// Native GLSL directive, passed through as text
	KindNative
)

// String returns the keyword of a kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

var kindNames = [...]string{
	KindError:         "error",
	KindEnd:           "end",
	KindModule:        "module",
	KindVert:          "vert",
	KindFrag:          "frag",
	KindProgram:       "program",
	KindInclude:       "include",
	KindIncludeModule: "include_module",
	KindCTypedef:      "ctypedef",
	KindNative:        "native",
}

// Keywords maps keyword strings to their kinds.
var Keywords = map[string]Kind{
	"end":            KindEnd,
	"module":         KindModule,
	"vert":           KindVert,
	"frag":           KindFrag,
	"program":        KindProgram,
	"include":        KindInclude,
	"include_module": KindIncludeModule,
	"ctypedef":       KindCTypedef,
}

// Arity is the exact number of arguments each keyword takes.
var Arity = map[Kind]int{
	KindEnd:           0,
	KindModule:        1,
	KindVert:          1,
	KindFrag:          1,
	KindProgram:       3,
	KindInclude:       1,
	KindIncludeModule: 1,
	KindCTypedef:      2,
}

// MaxArgs is the largest number of arguments a token carries.
const MaxArgs = 4

// NativeDirectives are the GLSL preprocessor directives left for the
// compiler to handle.
var NativeDirectives = map[string]bool{
	"define":    true,
	"undef":     true,
	"if":        true,
	"ifdef":     true,
	"ifndef":    true,
	"else":      true,
	"elif":      true,
	"endif":     true,
	"error":     true,
	"pragma":    true,
	"extension": true,
	"version":   true,
	"line":      true,
}

// ----------------------------------------------------------------------------
// Token
// ----------------------------------------------------------------------------

// Token is a classified statement.
type Token struct {
	Kind    Kind
	Keyword string   // first word of the statement
	Args    []string // positional arguments, len == Arity[Kind]
	Err     string   // set when Kind is KindError
}

// Tokenize classifies a statement (the text after '#'). A keyword with the
// wrong number of arguments yields a KindError token; arguments are never
// truncated or padded. An empty statement is the GLSL null directive and is
// treated as native.
func Tokenize(statement string) Token {
	words := strings.Fields(statement)
	if len(words) == 0 {
		return Token{Kind: KindNative}
	}

	keyword := words[0]
	if NativeDirectives[keyword] {
		return Token{Kind: KindNative, Keyword: keyword}
	}

	kind, ok := Keywords[keyword]
	if !ok {
		return Token{
			Kind:    KindError,
			Keyword: keyword,
			Err:     fmt.Sprintf("%s: unknown directive", keyword),
		}
	}

	args := words[1:]
	if want := Arity[kind]; len(args) != want {
		return Token{
			Kind:    KindError,
			Keyword: keyword,
			Err:     fmt.Sprintf("%s: expected %d argument(s), got %d", keyword, want, len(args)),
		}
	}

	return Token{Kind: kind, Keyword: keyword, Args: args}
}

// Statement returns the statement carried by a line, or false if the line is
// not a statement. Leading blanks are skipped; the '#' itself is dropped.
func Statement(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t\v\f")
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	return trimmed[1:], true
}
