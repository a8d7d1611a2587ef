// Package lexer turns kaish source bytes into a spanned token stream
// (spec §4.1, component C1).
package lexer

import "github.com/kaishlang/kaish/pkg/kaish/ast"

// Kind identifies the lexical category of a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Int
	Float
	String       // double-quoted string, escapes already resolved
	VarRef       // raw `${...}` body, re-parsed into a VarPath later
	Newline      // explicit statement terminator
	Semicolon    // ;
	Pipe         // |
	And          // &
	AndAnd       // &&
	OrOr         // ||
	Assign       // =
	Colon        // :
	Eq           // ==
	NotEq        // !=
	Lt           // <
	Gt           // >
	LtEq         // <=
	GtEq         // >=
	FatArrow     // =>
	MatchOp      // =~
	NotMatchOp   // !~
	AppendRedir  // >>
	StderrRedir  // 2>
	BothRedir    // &>
	LParen       // (
	RParen       // )
	LBrace       // {
	RBrace       // }
	LBracket     // [
	RBracket     // ]
	Comma        // ,
	Dot          // .
	Dash         // -
	DashDash     // --
	Dollar       // $ (only seen as part of $( in command substitution)
	KwSet        // set
	KwIf         // if
	KwThen       // then
	KwElse       // else
	KwFi         // fi
	KwFor        // for
	KwIn         // in
	KwDo         // do
	KwDone       // done
	KwTool       // tool
	KwTrue       // true
	KwFalse      // false
	KwNull       // null
	TypeName     // string|int|float|bool|array|object used as a param type
)

// Token is one lexeme with its source span.
type Token struct {
	Kind  Kind
	Text  string // literal text for Ident/Int/Float/TypeName, resolved body for String, raw body for VarRef
	Span  ast.Span
}

var keywords = map[string]Kind{
	"set":   KwSet,
	"if":    KwIf,
	"then":  KwThen,
	"else":  KwElse,
	"fi":    KwFi,
	"for":   KwFor,
	"in":    KwIn,
	"do":    KwDo,
	"done":  KwDone,
	"tool":  KwTool,
	"true":  KwTrue,
	"false": KwFalse,
	"null":  KwNull,
}

var typeNames = map[string]bool{
	"string": true, "int": true, "float": true, "bool": true, "array": true, "object": true,
}
