// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package dsl

import (
	"strconv"
	"strings"

	"github.com/bocacorazon/dobonomodo/internal/dsl/ast"
)

// Parse compiles an expression's text into an untyped AST. Precedence,
// high to low: unary NOT/negation; * /; + -; comparisons; AND; OR.
func Parse(src string) (ast.Expr, error) {
	toks, err := newLexer(src).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, &ParseError{Expr: src, Pos: p.cur().pos, Msg: "unexpected trailing input"}
	}
	return expr, nil
}

type parser struct {
	src  string
	toks []token
	idx  int
}

func (p *parser) cur() token { return p.toks[p.idx] }

func (p *parser) advance() token {
	t := p.toks[p.idx]
	if p.idx < len(p.toks)-1 {
		p.idx++
	}
	return t
}

func (p *parser) errf(pos int, msg string) error {
	return &ParseError{Expr: p.src, Pos: pos, Msg: msg}
}

// isKeyword reports whether an identifier token's text matches a
// case-sensitive keyword. Function names are case-sensitive uppercase;
// the same rule is applied to the logical keywords
// AND/OR/NOT/TRUE/FALSE/NULL.
func isKeyword(tok token, kw string) bool {
	return tok.kind == tokIdent && tok.text == kw
}

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for isKeyword(p.cur(), "OR") {
		pos := p.advance().pos
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{PosVal: pos, Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for isKeyword(p.cur(), "AND") {
		pos := p.advance().pos
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{PosVal: pos, Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if isKeyword(p.cur(), "NOT") {
		pos := p.advance().pos
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{PosVal: pos, Op: ast.UnaryNot, Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	op, ok := comparisonOp(p.cur())
	if !ok {
		return left, nil
	}
	pos := p.advance().pos
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpr{PosVal: pos, Op: op, Left: left, Right: right}, nil
}

func comparisonOp(t token) (ast.BinaryOp, bool) {
	switch t.kind {
	case tokEq:
		return ast.OpEq, true
	case tokNeq:
		return ast.OpNeq, true
	case tokLt:
		return ast.OpLt, true
	case tokLte:
		return ast.OpLte, true
	case tokGt:
		return ast.OpGt, true
	case tokGte:
		return ast.OpGte, true
	}
	return 0, false
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokPlus || p.cur().kind == tokMinus {
		op := ast.OpAdd
		if p.cur().kind == tokMinus {
			op = ast.OpSub
		}
		pos := p.advance().pos
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{PosVal: pos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokStar || p.cur().kind == tokSlash {
		op := ast.OpMul
		if p.cur().kind == tokSlash {
			op = ast.OpDiv
		}
		pos := p.advance().pos
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{PosVal: pos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.cur().kind == tokMinus {
		pos := p.advance().pos
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{PosVal: pos, Op: ast.UnaryNeg, Operand: operand}, nil
	}
	if isKeyword(p.cur(), "NOT") {
		pos := p.advance().pos
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{PosVal: pos, Op: ast.UnaryNot, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokInt:
		p.advance()
		v, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errf(t.pos, "invalid integer literal")
		}
		return &ast.IntLiteral{PosVal: t.pos, Value: v}, nil
	case tokDecimal:
		p.advance()
		return &ast.DecimalLiteral{PosVal: t.pos, Text: t.text}, nil
	case tokString:
		p.advance()
		return &ast.StringLiteral{PosVal: t.pos, Value: t.text}, nil
	case tokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, p.errf(p.cur().pos, "expected ')'")
		}
		p.advance()
		return inner, nil
	case tokIdent:
		return p.parseIdentLed()
	}
	return nil, p.errf(t.pos, "unexpected token")
}

func (p *parser) parseIdentLed() (ast.Expr, error) {
	t := p.advance()
	switch t.text {
	case "TRUE":
		return &ast.BoolLiteral{PosVal: t.pos, Value: true}, nil
	case "FALSE":
		return &ast.BoolLiteral{PosVal: t.pos, Value: false}, nil
	case "NULL":
		return &ast.NullLiteral{PosVal: t.pos}, nil
	}

	if p.cur().kind == tokLParen {
		return p.parseCallOrDate(t)
	}

	if p.cur().kind == tokDot {
		p.advance()
		colTok := p.cur()
		if colTok.kind != tokIdent {
			return nil, p.errf(colTok.pos, "expected column name after '.'")
		}
		p.advance()
		return &ast.ColumnRef{PosVal: t.pos, Qualifier: t.text, Column: colTok.text}, nil
	}

	return &ast.ColumnRef{PosVal: t.pos, Column: t.text}, nil
}

func (p *parser) parseCallOrDate(name token) (ast.Expr, error) {
	p.advance() // consume '('
	var args []ast.Expr
	if p.cur().kind != tokRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	if p.cur().kind != tokRParen {
		return nil, p.errf(p.cur().pos, "expected ')' to close call to "+name.text)
	}
	p.advance()

	if name.text == "DATE" {
		if len(args) != 1 {
			return nil, p.errf(name.pos, "DATE requires exactly one string literal argument")
		}
		lit, ok := args[0].(*ast.StringLiteral)
		if !ok {
			return nil, p.errf(name.pos, "DATE requires a string literal argument")
		}
		return &ast.DateLiteral{PosVal: name.pos, ISO: lit.Value}, nil
	}

	if !strings.HasPrefix(name.text, "_") && !ast.KnownFunc(name.text) {
		return nil, p.errf(name.pos, "unknown function "+name.text)
	}

	return &ast.FuncCall{PosVal: name.pos, Name: name.text, Args: args}, nil
}
