package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kaishlang/kaish/pkg/kaish/ast"
)

// ParseVarPathBody parses the body of a `${...}` reference (without the
// surrounding braces) into an ast.VarPath. Accepts `NAME`, `NAME.field`,
// `NAME[0]`, `?.ok`, and arbitrary combinations thereof. The first segment
// must be a Field (spec §3); that's just whatever identifier starts the
// body, including the single-character name `?`.
func ParseVarPathBody(body string) (ast.VarPath, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return ast.VarPath{}, fmt.Errorf("empty variable reference")
	}
	var segs []ast.VarSegment
	i := 0
	n := len(body)

	readField := func() string {
		start := i
		for i < n && body[i] != '.' && body[i] != '[' {
			i++
		}
		return body[start:i]
	}

	if body[0] == '?' {
		segs = append(segs, ast.VarSegment{Kind: ast.SegField, Field: "?"})
		i = 1
	} else {
		f := readField()
		if f == "" {
			return ast.VarPath{}, fmt.Errorf("invalid variable reference %q", body)
		}
		segs = append(segs, ast.VarSegment{Kind: ast.SegField, Field: f})
	}

	for i < n {
		switch body[i] {
		case '.':
			i++
			f := readField()
			if f == "" {
				return ast.VarPath{}, fmt.Errorf("invalid variable reference %q", body)
			}
			segs = append(segs, ast.VarSegment{Kind: ast.SegField, Field: f})
		case '[':
			end := strings.IndexByte(body[i:], ']')
			if end < 0 {
				return ast.VarPath{}, fmt.Errorf("unterminated index in %q", body)
			}
			numStr := body[i+1 : i+end]
			idx, err := strconv.Atoi(strings.TrimSpace(numStr))
			if err != nil || idx < 0 {
				return ast.VarPath{}, fmt.Errorf("invalid array index %q", numStr)
			}
			segs = append(segs, ast.VarSegment{Kind: ast.SegIndex, Index: idx})
			i += end + 1
		default:
			return ast.VarPath{}, fmt.Errorf("unexpected character %q in variable reference", body[i])
		}
	}
	return ast.VarPath{Segments: segs}, nil
}

// SplitInterpolated splits a resolved double-quoted string body (escapes
// already processed, `${...}` kept verbatim by the lexer) into alternating
// literal/variable StringParts.
func SplitInterpolated(s string) ([]ast.StringPart, error) {
	var parts []ast.StringPart
	var lit strings.Builder
	i := 0
	n := len(s)
	for i < n {
		if s[i] == '$' && i+1 < n && s[i+1] == '{' {
			if lit.Len() > 0 {
				parts = append(parts, ast.StringPart{Kind: ast.StringPartLiteral, Literal: lit.String()})
				lit.Reset()
			}
			depth := 1
			j := i + 2
			for j < n && depth > 0 {
				if s[j] == '{' {
					depth++
				} else if s[j] == '}' {
					depth--
				}
				j++
			}
			if depth != 0 {
				return nil, fmt.Errorf("unterminated variable reference in interpolated string")
			}
			body := s[i+2 : j-1]
			path, err := ParseVarPathBody(body)
			if err != nil {
				return nil, err
			}
			parts = append(parts, ast.StringPart{Kind: ast.StringPartVar, Var: path})
			i = j
			continue
		}
		lit.WriteByte(s[i])
		i++
	}
	if lit.Len() > 0 {
		parts = append(parts, ast.StringPart{Kind: ast.StringPartLiteral, Literal: lit.String()})
	}
	if len(parts) == 0 {
		parts = append(parts, ast.StringPart{Kind: ast.StringPartLiteral, Literal: ""})
	}
	return parts, nil
}
