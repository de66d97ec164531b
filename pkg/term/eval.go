/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: eval.go
Description: Evaluation of terms under a variable assignment. Predicates evaluate to 1 or 0.
*/

package term

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrDivisionByZero is returned when a div or mod has a zero divisor
var ErrDivisionByZero = errors.New("division by zero")

// Assignment maps variable names to values
type Assignment map[string]*big.Int

// Eval computes the value of t under env. Unbound variables are an error.
func (t *Term) Eval(env Assignment) (*big.Int, error) {
	switch t.kind {
	case KindConst:
		return new(big.Int).Set(t.value), nil
	case KindVar:
		v, ok := env[t.name]
		if !ok {
			return nil, fmt.Errorf("unbound variable %q", t.name)
		}
		return new(big.Int).Set(v), nil
	case KindNot:
		v, err := t.args[0].Eval(env)
		if err != nil {
			return nil, err
		}
		return boolInt(v.Sign() == 0), nil
	case KindIte:
		c, err := t.args[0].Eval(env)
		if err != nil {
			return nil, err
		}
		if c.Sign() != 0 {
			return t.args[1].Eval(env)
		}
		return t.args[2].Eval(env)
	}

	l, err := t.args[0].Eval(env)
	if err != nil {
		return nil, err
	}
	r, err := t.args[1].Eval(env)
	if err != nil {
		return nil, err
	}

	switch t.kind {
	case KindAdd:
		return l.Add(l, r), nil
	case KindSub:
		return l.Sub(l, r), nil
	case KindMul:
		return l.Mul(l, r), nil
	case KindDiv:
		if r.Sign() == 0 {
			return nil, ErrDivisionByZero
		}
		return l.Div(l, r), nil
	case KindMod:
		if r.Sign() == 0 {
			return nil, ErrDivisionByZero
		}
		return l.Mod(l, r), nil
	case KindEq:
		return boolInt(l.Cmp(r) == 0), nil
	case KindLt:
		return boolInt(l.Cmp(r) < 0), nil
	case KindLe:
		return boolInt(l.Cmp(r) <= 0), nil
	case KindGt:
		return boolInt(l.Cmp(r) > 0), nil
	case KindGe:
		return boolInt(l.Cmp(r) >= 0), nil
	}
	return nil, fmt.Errorf("cannot evaluate operator %s", t.kind)
}

// Holds evaluates a predicate and reports whether it is true
func (t *Term) Holds(env Assignment) (bool, error) {
	v, err := t.Eval(env)
	if err != nil {
		return false, err
	}
	return v.Sign() != 0, nil
}

func boolInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}
