package main

import (
	"fmt"
	"regexp/syntax"
	"unicode"

	"github.com/benbjohnson/seqre"
)

// ParseRegex parses a Go regular expression into a regex term over strings.
// Anchors and word boundaries are not supported since a term always
// matches the whole string.
func ParseRegex(a *seqre.Arena, pattern string) (*seqre.Expr, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, err
	}
	return translateRegex(a, re)
}

func translateRegex(a *seqre.Arena, re *syntax.Regexp) (*seqre.Expr, error) {
	sort := seqre.SortRegLan

	switch re.Op {
	case syntax.OpNoMatch:
		return a.ReEmpty(sort), nil
	case syntax.OpEmptyMatch:
		return a.ToRe(a.Str("")), nil
	case syntax.OpLiteral:
		if re.Flags&syntax.FoldCase != 0 {
			var r *seqre.Expr
			for _, c := range re.Rune {
				cr := charClass(a, foldRanges(c))
				if r == nil {
					r = cr
				} else {
					r = a.ReConcat(r, cr)
				}
			}
			if r == nil {
				return a.ToRe(a.Str("")), nil
			}
			return r, nil
		}
		return a.ToRe(a.StrRunes(re.Rune)), nil
	case syntax.OpCharClass:
		return charClass(a, re.Rune), nil
	case syntax.OpAnyChar:
		return a.ReAllChar(sort), nil
	case syntax.OpAnyCharNotNL:
		return charClass(a, []rune{0, '\n' - 1, '\n' + 1, seqre.MaxChar}), nil
	case syntax.OpCapture:
		return translateRegex(a, re.Sub[0])
	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest:
		sub, err := translateRegex(a, re.Sub[0])
		if err != nil {
			return nil, err
		}
		switch re.Op {
		case syntax.OpStar:
			return a.ReStar(sub), nil
		case syntax.OpPlus:
			return a.RePlus(sub), nil
		default:
			return a.ReOpt(sub), nil
		}
	case syntax.OpRepeat:
		sub, err := translateRegex(a, re.Sub[0])
		if err != nil {
			return nil, err
		}
		if re.Max == -1 {
			return a.ReLoopFrom(sub, re.Min), nil
		}
		return a.ReLoop(sub, re.Min, re.Max), nil
	case syntax.OpConcat, syntax.OpAlternate:
		var r *seqre.Expr
		for _, sub := range re.Sub {
			other, err := translateRegex(a, sub)
			if err != nil {
				return nil, err
			}
			switch {
			case r == nil:
				r = other
			case re.Op == syntax.OpConcat:
				r = a.ReConcat(r, other)
			default:
				r = a.ReUnion(r, other)
			}
		}
		if r == nil && re.Op == syntax.OpConcat {
			return a.ToRe(a.Str("")), nil
		} else if r == nil {
			return a.ReEmpty(sort), nil
		}
		return r, nil
	default:
		return nil, fmt.Errorf("regex: unsupported operator %s: %w", re.Op, seqre.ErrNotSupported)
	}
}

// charClass returns the union of the ranges in rs, given as lo/hi pairs.
// Ranges above MaxChar are clipped.
func charClass(a *seqre.Arena, rs []rune) *seqre.Expr {
	var r *seqre.Expr
	for i := 0; i+1 < len(rs); i += 2 {
		lo, hi := rs[i], min(rs[i+1], seqre.MaxChar)
		if lo > hi {
			continue
		}
		rng := a.ReRange(a.StrRunes([]rune{lo}), a.StrRunes([]rune{hi}))
		if r == nil {
			r = rng
		} else {
			r = a.ReUnion(r, rng)
		}
	}
	if r == nil {
		return a.ReEmpty(seqre.SortRegLan)
	}
	return r
}

// foldRanges returns the single-character ranges of every case variant of c.
func foldRanges(c rune) []rune {
	rs := []rune{c, c}
	for f := unicode.SimpleFold(c); f != c; f = unicode.SimpleFold(f) {
		rs = append(rs, f, f)
	}
	return rs
}
