// Package parser turns a lexer.Token stream into a typed ast.Program
// (spec §4.2, component C2). It is a small hand-rolled recursive-descent
// parser: statement dispatch by leading token, precedence climbing for
// conditions (or > and > comparison > primary), and single-command
// pipelines unwrapped to a bare ast.Command.
package parser

import (
	"fmt"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/lexer"
)

// Error is a ParseError (spec §7): a structural mismatch carrying a byte
// span into the source.
type Error struct {
	Span    ast.Span
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Message, e.Span.Start, e.Span.End)
}

// Parser holds parse state over a token slice.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// Parse lexes and parses source into a Program.
func Parse(source string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseProgram()
}

// ParseStatement parses a single statement, skipping leading Empty
// statements — convenient for a REPL feeding one line at a time.
func ParseStatement(source string) (ast.Stmt, error) {
	prog, err := Parse(source)
	if err != nil {
		return nil, err
	}
	for _, s := range prog.Statements {
		if _, ok := s.(*ast.Empty); !ok {
			return s, nil
		}
	}
	return nil, &Error{Message: "empty input"}
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) at(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, error) {
	if !p.at(k) {
		return lexer.Token{}, &Error{Span: p.cur().Span, Message: fmt.Sprintf("expected %s", what)}
	}
	return p.advance(), nil
}

// skipTerminators consumes any run of Newline/Semicolon tokens.
func (p *Parser) skipTerminators() {
	for p.at(lexer.Newline) || p.at(lexer.Semicolon) {
		p.advance()
	}
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipTerminators()
	for !p.at(lexer.EOF) {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
		if !p.at(lexer.EOF) {
			if !p.at(lexer.Newline) && !p.at(lexer.Semicolon) {
				return nil, &Error{Span: p.cur().Span, Message: "expected statement terminator"}
			}
		}
		p.skipTerminators()
	}
	return prog, nil
}

// parseStmt parses one statement and any trailing `&&`/`||` chain.
func (p *Parser) parseStmt() (ast.Stmt, error) {
	left, err := p.parseSimpleStmt()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.AndAnd) || p.at(lexer.OrOr) {
		isAnd := p.at(lexer.AndAnd)
		span := p.advance().Span
		p.skipTerminators()
		right, err := p.parseSimpleStmt()
		if err != nil {
			return nil, err
		}
		if isAnd {
			left = ast.NewAndChain(span, left, right)
		} else {
			left = ast.NewOrChain(span, left, right)
		}
	}
	return left, nil
}

func (p *Parser) parseSimpleStmt() (ast.Stmt, error) {
	switch p.cur().Kind {
	case lexer.Newline, lexer.Semicolon:
		return ast.NewEmpty(p.cur().Span), nil
	case lexer.KwSet:
		return p.parseAssignment()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwFor:
		return p.parseFor()
	case lexer.KwTool:
		return p.parseToolDef()
	case lexer.Ident:
		return p.parsePipelineOrCommand()
	default:
		return nil, &Error{Span: p.cur().Span, Message: fmt.Sprintf("unexpected token %v", p.cur().Kind)}
	}
}

func (p *Parser) parseAssignment() (ast.Stmt, error) {
	start := p.advance().Span // 'set'
	name, err := p.expect(lexer.Ident, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Assign, "'='"); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewAssignment(ast.Span{Start: start.Start, End: val.Span().End}, name.Text, val), nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	start := p.advance().Span // 'if'
	cond, err := p.parseOrExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semicolon, "';'"); err != nil {
		return nil, err
	}
	p.skipTerminators()
	if _, err := p.expect(lexer.KwThen, "'then'"); err != nil {
		return nil, err
	}
	p.skipTerminators()
	thenBody, err := p.parseBlockUntil(lexer.KwElse, lexer.KwFi)
	if err != nil {
		return nil, err
	}
	var elseBody []ast.Stmt
	if p.at(lexer.KwElse) {
		p.advance()
		p.skipTerminators()
		elseBody, err = p.parseBlockUntil(lexer.KwFi)
		if err != nil {
			return nil, err
		}
	}
	end, err := p.expect(lexer.KwFi, "'fi'")
	if err != nil {
		return nil, err
	}
	return ast.NewIf(ast.Span{Start: start.Start, End: end.Span.End}, cond, thenBody, elseBody), nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	start := p.advance().Span // 'for'
	v, err := p.expect(lexer.Ident, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwIn, "'in'"); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semicolon, "';'"); err != nil {
		return nil, err
	}
	p.skipTerminators()
	if _, err := p.expect(lexer.KwDo, "'do'"); err != nil {
		return nil, err
	}
	p.skipTerminators()
	body, err := p.parseBlockUntil(lexer.KwDone)
	if err != nil {
		return nil, err
	}
	end, err := p.expect(lexer.KwDone, "'done'")
	if err != nil {
		return nil, err
	}
	return ast.NewFor(ast.Span{Start: start.Start, End: end.Span.End}, v.Text, iterable, body), nil
}

func (p *Parser) parseToolDef() (ast.Stmt, error) {
	start := p.advance().Span // 'tool'
	name, err := p.expect(lexer.Ident, "identifier")
	if err != nil {
		return nil, err
	}
	var params []ast.Param
	for p.at(lexer.Ident) {
		pname := p.advance().Text
		param := ast.Param{Name: pname}
		if p.at(lexer.Colon) {
			p.advance()
			tt, err := p.expect(lexer.TypeName, "type name")
			if err != nil {
				return nil, err
			}
			param.Type = paramTypeOf(tt.Text)
		}
		if p.at(lexer.Assign) {
			p.advance()
			def, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			param.Default = def
		}
		params = append(params, param)
	}
	if _, err := p.expect(lexer.LBrace, "'{'"); err != nil {
		return nil, err
	}
	p.skipTerminators()
	body, err := p.parseBlockUntil(lexer.RBrace)
	if err != nil {
		return nil, err
	}
	end, err := p.expect(lexer.RBrace, "'}'")
	if err != nil {
		return nil, err
	}
	return ast.NewToolDef(ast.Span{Start: start.Start, End: end.Span.End}, name.Text, params, body), nil
}

func paramTypeOf(name string) ast.ParamType {
	switch name {
	case "string":
		return ast.ParamTypeString
	case "int":
		return ast.ParamTypeInt
	case "float":
		return ast.ParamTypeFloat
	case "bool":
		return ast.ParamTypeBool
	case "array":
		return ast.ParamTypeArray
	case "object":
		return ast.ParamTypeObject
	default:
		return ast.ParamTypeUnspecified
	}
}

// parseBlockUntil parses statements until one of the given terminator
// kinds is the current token (not consumed).
func (p *Parser) parseBlockUntil(terminators ...lexer.Kind) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for {
		p.skipTerminators()
		for _, t := range terminators {
			if p.at(t) {
				return stmts, nil
			}
		}
		if p.at(lexer.EOF) {
			return nil, &Error{Span: p.cur().Span, Message: "unexpected end of input in block"}
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
}

// parsePipelineOrCommand parses a command, then checks for `|` to form a
// Pipeline, unwrapping single-command pipelines to a bare Command
// (spec §4.2).
func (p *Parser) parsePipelineOrCommand() (ast.Stmt, error) {
	first, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	commands := []*ast.Command{first}
	for p.at(lexer.Pipe) {
		p.advance()
		next, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		commands = append(commands, next)
	}
	background := false
	end := first.Span().End
	if len(commands) > 0 {
		end = commands[len(commands)-1].Span().End
	}
	if p.at(lexer.And) {
		background = true
		end = p.advance().Span.End
	}
	if len(commands) == 1 && !background {
		return commands[0], nil
	}
	return ast.NewPipeline(ast.Span{Start: first.Span().Start, End: end}, commands, background), nil
}

func (p *Parser) parseCommand() (*ast.Command, error) {
	name, err := p.expect(lexer.Ident, "command name")
	if err != nil {
		return nil, err
	}
	var args []ast.Arg
	var redirects []ast.Redirect
	end := name.Span.End
loop:
	for {
		switch p.cur().Kind {
		case lexer.Gt, lexer.AppendRedir, lexer.StderrRedir, lexer.BothRedir, lexer.Lt:
			r, err := p.parseRedirect()
			if err != nil {
				return nil, err
			}
			end = r.Target.Span().End
			redirects = append(redirects, r)
		case lexer.DashDash:
			p.advance()
			key, err := p.expect(lexer.Ident, "flag name")
			if err != nil {
				return nil, err
			}
			end = key.Span.End
			args = append(args, ast.Arg{Kind: ast.ArgLongFlag, Key: key.Text})
		case lexer.Dash:
			p.advance()
			key, err := p.expect(lexer.Ident, "flag name")
			if err != nil {
				return nil, err
			}
			end = key.Span.End
			args = append(args, ast.Arg{Kind: ast.ArgShortFlag, Key: key.Text})
		case lexer.Ident:
			// Could be `key=value` or a bare positional identifier-looking value.
			save := p.pos
			ident := p.advance()
			if p.at(lexer.Assign) {
				p.advance()
				val, err := p.parsePrimary()
				if err != nil {
					return nil, err
				}
				end = val.Span().End
				args = append(args, ast.Arg{Kind: ast.ArgNamed, Key: ident.Text, Value: val})
			} else {
				p.pos = save
				val, err := p.parsePrimary()
				if err != nil {
					return nil, err
				}
				end = val.Span().End
				args = append(args, ast.Arg{Kind: ast.ArgPositional, Value: val})
			}
		case lexer.String, lexer.VarRef, lexer.Int, lexer.Float, lexer.LBracket, lexer.LBrace,
			lexer.Dollar, lexer.KwTrue, lexer.KwFalse, lexer.KwNull:
			val, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			end = val.Span().End
			args = append(args, ast.Arg{Kind: ast.ArgPositional, Value: val})
		default:
			break loop
		}
	}
	return ast.NewCommand(ast.Span{Start: name.Span.Start, End: end}, name.Text, args, redirects), nil
}

func (p *Parser) parseRedirect() (ast.Redirect, error) {
	var kind ast.RedirectKind
	switch p.cur().Kind {
	case lexer.Gt:
		kind = ast.RedirectStdoutOverwrite
	case lexer.AppendRedir:
		kind = ast.RedirectStdoutAppend
	case lexer.Lt:
		kind = ast.RedirectStdin
	case lexer.StderrRedir:
		kind = ast.RedirectStderr
	case lexer.BothRedir:
		kind = ast.RedirectBoth
	}
	p.advance()
	target, err := p.parsePrimary()
	if err != nil {
		return ast.Redirect{}, err
	}
	return ast.Redirect{Kind: kind, Target: target}, nil
}
