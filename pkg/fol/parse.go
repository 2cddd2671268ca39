// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package fol

import (
	"fmt"
	"strings"

	kberrors "github.com/jllopis/actionkb/pkg/errors"
)

// Parse reads a predicate such as holding(?actor:agent,cup1:physobj).
// A bare name parses as a zero-arity predicate.
func Parse(input string) (Predicate, error) {
	t, err := ParseTerm(input)
	if err != nil {
		return Predicate{}, err
	}
	switch v := t.(type) {
	case Predicate:
		return v, nil
	case Symbol:
		return Predicate{Name: v.Name}, nil
	default:
		return Predicate{}, parseError(input, 0, "expected predicate, got variable")
	}
}

// MustParse is Parse for fixed inputs; it panics on error.
func MustParse(input string) Predicate {
	p, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseTerm reads a single term.
func ParseTerm(input string) (Term, error) {
	p := &parser{src: input}
	p.skipSpace()
	if p.eof() {
		return nil, parseError(input, 0, "empty input")
	}
	t, err := p.term()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, parseError(input, p.pos, fmt.Sprintf("unexpected %q", p.src[p.pos]))
	}
	return t, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && strings.ContainsRune(" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) term() (Term, error) {
	p.skipSpace()
	quoted := p.peek() == '"'
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() == '(' {
		p.pos++
		args, err := p.args()
		if err != nil {
			return nil, err
		}
		return Predicate{Name: name, args: args}, nil
	}
	typ := ""
	if p.peek() == ':' {
		p.pos++
		p.skipSpace()
		typ, err = p.ident()
		if err != nil {
			return nil, err
		}
	}
	if !quoted && strings.HasPrefix(name, "?") {
		if len(name) == 1 {
			return nil, parseError(p.src, p.pos, "variable without name")
		}
		return Variable{Name: name, Type: typ}, nil
	}
	return Symbol{Name: name, Type: typ}, nil
}

func (p *parser) args() ([]Term, error) {
	args := []Term{}
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return args, nil
	}
	for {
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		args = append(args, t)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return args, nil
		case 0:
			return nil, parseError(p.src, p.pos, "unterminated argument list")
		default:
			return nil, parseError(p.src, p.pos, fmt.Sprintf("unexpected %q", p.peek()))
		}
	}
}

func (p *parser) ident() (string, error) {
	if p.peek() == '"' {
		end := strings.IndexByte(p.src[p.pos+1:], '"')
		if end < 0 {
			return "", parseError(p.src, p.pos, "unterminated quoted name")
		}
		name := p.src[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return name, nil
	}
	start := p.pos
	for !p.eof() && !strings.ContainsRune("(),:\" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
	if start == p.pos {
		return "", parseError(p.src, p.pos, "expected name")
	}
	return p.src[start:p.pos], nil
}

func parseError(input string, pos int, msg string) error {
	return kberrors.New(kberrors.CodeInvalidInput, "parse predicate: "+msg, nil).
		WithContext("input", input).
		WithContext("offset", pos)
}
