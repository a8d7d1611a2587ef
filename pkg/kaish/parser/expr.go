package parser

import (
	"fmt"
	"strconv"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
	"github.com/kaishlang/kaish/pkg/kaish/lexer"
)

// parseExpr parses a full expression (top of the `or` precedence chain).
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseOrExpr()
}

func (p *Parser) parseOrExpr() (ast.Expr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.OrOr) {
		span := p.advance().Span
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryOp(ast.Span{Start: left.Span().Start, End: right.Span().End}, left, ast.OpOr, right)
		_ = span
	}
	return left, nil
}

func (p *Parser) parseAndExpr() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.AndAnd) {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryOp(ast.Span{Start: left.Span().Start, End: right.Span().End}, left, ast.OpAnd, right)
	}
	return left, nil
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	op, ok := comparisonOp(p.cur().Kind)
	if !ok {
		return left, nil
	}
	p.advance()
	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return ast.NewBinaryOp(ast.Span{Start: left.Span().Start, End: right.Span().End}, left, op, right), nil
}

func comparisonOp(k lexer.Kind) (ast.BinOp, bool) {
	switch k {
	case lexer.Eq:
		return ast.OpEq, true
	case lexer.NotEq:
		return ast.OpNotEq, true
	case lexer.Lt:
		return ast.OpLt, true
	case lexer.Gt:
		return ast.OpGt, true
	case lexer.LtEq:
		return ast.OpLtEq, true
	case lexer.GtEq:
		return ast.OpGtEq, true
	case lexer.MatchOp:
		return ast.OpMatch, true
	case lexer.NotMatchOp:
		return ast.OpNotMatch, true
	default:
		return 0, false
	}
}

// parsePrimary parses a literal, variable reference, interpolated string,
// array/object literal, or parenthesized/command-substitution expression.
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Int:
		p.advance()
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, &Error{Span: tok.Span, Message: fmt.Sprintf("invalid integer literal %q", tok.Text)}
		}
		return ast.NewLiteral(tok.Span, ast.IntValue(n)), nil
	case lexer.Float:
		p.advance()
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, &Error{Span: tok.Span, Message: fmt.Sprintf("invalid float literal %q", tok.Text)}
		}
		return ast.NewLiteral(tok.Span, ast.FloatValue(f)), nil
	case lexer.KwTrue:
		p.advance()
		return ast.NewLiteral(tok.Span, ast.BoolValue(true)), nil
	case lexer.KwFalse:
		p.advance()
		return ast.NewLiteral(tok.Span, ast.BoolValue(false)), nil
	case lexer.KwNull:
		p.advance()
		return ast.NewLiteral(tok.Span, ast.Null()), nil
	case lexer.String:
		p.advance()
		parts, err := lexer.SplitInterpolated(tok.Text)
		if err != nil {
			return nil, &Error{Span: tok.Span, Message: err.Error()}
		}
		if len(parts) == 1 && parts[0].Kind == ast.StringPartLiteral {
			return ast.NewLiteral(tok.Span, ast.StringValue(parts[0].Literal)), nil
		}
		return ast.NewInterpolated(tok.Span, parts), nil
	case lexer.VarRef:
		p.advance()
		path, err := lexer.ParseVarPathBody(tok.Text)
		if err != nil {
			return nil, &Error{Span: tok.Span, Message: err.Error()}
		}
		return ast.NewVarRef(tok.Span, path), nil
	case lexer.Ident:
		// A bare identifier used as a value (e.g. a flag value or loose
		// word argument) is treated as a string literal.
		p.advance()
		return ast.NewLiteral(tok.Span, ast.StringValue(tok.Text)), nil
	case lexer.LBracket:
		return p.parseArrayLiteral()
	case lexer.LBrace:
		return p.parseObjectLiteral()
	case lexer.Dollar:
		return p.parseCommandSubst()
	case lexer.LParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, &Error{Span: tok.Span, Message: fmt.Sprintf("unexpected token %v in expression", tok.Kind)}
	}
}

func (p *Parser) parseArrayLiteral() (ast.Expr, error) {
	start := p.advance().Span // '['
	var elems []ast.Expr
	for !p.at(lexer.RBracket) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	end, err := p.expect(lexer.RBracket, "']'")
	if err != nil {
		return nil, err
	}
	return ast.NewLiteral(ast.Span{Start: start.Start, End: end.Span.End}, ast.ArrayValue(elems)), nil
}

func (p *Parser) parseObjectLiteral() (ast.Expr, error) {
	start := p.advance().Span // '{'
	fields := ast.NewObject()
	for !p.at(lexer.RBrace) {
		var key string
		switch p.cur().Kind {
		case lexer.Ident:
			key = p.advance().Text
		case lexer.String:
			tok := p.advance()
			parts, err := lexer.SplitInterpolated(tok.Text)
			if err != nil || len(parts) != 1 || parts[0].Kind != ast.StringPartLiteral {
				return nil, &Error{Span: tok.Span, Message: "object key must be a plain string or identifier"}
			}
			key = parts[0].Literal
		default:
			return nil, &Error{Span: p.cur().Span, Message: "expected object key"}
		}
		if _, err := p.expect(lexer.Colon, "':'"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		fields.Set(key, val)
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	end, err := p.expect(lexer.RBrace, "'}'")
	if err != nil {
		return nil, err
	}
	return ast.NewLiteral(ast.Span{Start: start.Start, End: end.Span.End}, ast.ObjectValue(fields)), nil
}

// parseCommandSubst parses `$(pipeline)`, recursively supporting nested
// substitutions (spec §4.2).
func (p *Parser) parseCommandSubst() (ast.Expr, error) {
	start := p.advance().Span // '$'
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	stmt, err := p.parsePipelineOrCommand()
	if err != nil {
		return nil, err
	}
	var pipeline *ast.Pipeline
	switch s := stmt.(type) {
	case *ast.Pipeline:
		pipeline = s
	case *ast.Command:
		pipeline = ast.NewPipeline(s.Span(), []*ast.Command{s}, false)
	default:
		return nil, &Error{Span: stmt.Span(), Message: "command substitution must contain a command or pipeline"}
	}
	end, err := p.expect(lexer.RParen, "')'")
	if err != nil {
		return nil, err
	}
	return ast.NewCommandSubst(ast.Span{Start: start.Start, End: end.Span.End}, pipeline), nil
}
