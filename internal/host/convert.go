package host

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/mangle/ast"

	"hexowl/internal/solver"
)

// toConstant maps a solver symbol onto a Mangle constant. Plain constants
// become names (/s1), quoted text and compound terms become strings, and
// integers become numbers.
func toConstant(s solver.Symbol) ast.Constant {
	switch {
	case s.IsQuoted():
		return ast.String(s.Unquoted())
	case s.IsCompound():
		return ast.String(s.Value())
	}
	if i, ok := s.IntValue(); ok {
		return ast.Number(i)
	}
	if c, err := ast.Name("/" + strings.TrimPrefix(s.Value(), "/")); err == nil {
		return c
	}
	return ast.String(s.Value())
}

// fromConstant is the inverse of toConstant. Strings holding a compound term
// come back as that term.
func fromConstant(c ast.Constant) solver.Symbol {
	switch c.Type {
	case ast.NameType:
		return solver.Constant(strings.TrimPrefix(c.Symbol, "/"))
	case ast.StringType:
		if strings.ContainsRune(c.Symbol, '(') {
			if s, err := solver.ParseSymbol(c.Symbol); err == nil && s.IsCompound() {
				return s
			}
		}
		return solver.Quoted(c.Symbol)
	case ast.NumberType:
		return solver.Int(c.NumValue)
	case ast.Float64Type:
		return solver.Constant(strconv.FormatFloat(math.Float64frombits(uint64(c.NumValue)), 'g', -1, 64))
	}
	return solver.Quoted(c.String())
}

// normalize passes symbols through the Mangle mapping so they compare equal
// to what the fact store hands back.
func normalize(symbols []solver.Symbol) []solver.Symbol {
	out := make([]solver.Symbol, len(symbols))
	for i, s := range symbols {
		out[i] = fromConstant(toConstant(s))
	}
	return out
}

func toAtom(a solver.Atom) ast.Atom {
	args := make([]ast.BaseTerm, len(a.Args))
	for i, s := range a.Args {
		args[i] = toConstant(s)
	}
	return ast.NewAtom(a.Predicate, args...)
}

func fromAtom(a ast.Atom) (solver.Atom, error) {
	args := make([]solver.Symbol, len(a.Args))
	for i, t := range a.Args {
		c, ok := t.(ast.Constant)
		if !ok {
			return solver.Atom{}, fmt.Errorf("non-ground fact %s", a)
		}
		args[i] = fromConstant(c)
	}
	return solver.Atom{Predicate: a.Predicate.Symbol, Args: args}, nil
}
