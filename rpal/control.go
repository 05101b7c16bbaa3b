package rpal

import (
	"fmt"
	"strconv"
	"strings"
)

// ctrlKind tags a control item. Beta and delta markers are control-item
// variants rather than separate stack types, and lambda bodies live in a
// table of flat control structures keyed by an integer index — rule 8
// (conditional) and rule 13 (eta application) then become table lookups
// instead of tree surgery.
type ctrlKind int

const (
	cValue ctrlKind = iota // a literal already reduced to its Value
	cName                  // an identifier to resolve at run time
	cGamma
	cOp     // a binary or unary operator, by NodeKind
	cLambda // a closure template: body index plus parameter names
	cBeta
	cDelta // one branch of a conditional: body index plus polarity
	cTau   // tuple formation, with arity
	cEnv   // environment marker
)

type ctrl struct {
	kind   ctrlKind
	val    Value
	name   string
	op     NodeKind
	n      int // control-structure index (cLambda, cDelta) or arity (cTau)
	truthy bool
	params []string
	env    *Env
}

func (c ctrl) String() string {
	switch c.kind {
	case cValue:
		return c.val.String()
	case cName:
		return fmt.Sprintf("<ID:%s>", c.name)
	case cGamma:
		return "gamma"
	case cOp:
		return c.op.String()
	case cLambda:
		return fmt.Sprintf("lambda_%d %s", c.n, strings.Join(c.params, ","))
	case cBeta:
		return "beta"
	case cDelta:
		if c.truthy {
			return fmt.Sprintf("delta_%d_t", c.n)
		}
		return fmt.Sprintf("delta_%d_f", c.n)
	case cTau:
		return fmt.Sprintf("tau_%d", c.n)
	case cEnv:
		return fmt.Sprintf("e_%d", c.env.ID)
	}
	return "?"
}

// Program is a standardized tree compiled into a table of control
// structures. Index 0 is the program body; every lambda and every
// conditional branch gets its own index.
type Program struct {
	bodies [][]ctrl
}

// Compile flattens a standardized tree into a Program. Within each
// structure the children of a node are emitted left to right after the
// node's own item; the machine pops from the end, so an application's
// argument is fully reduced before its operator and a binary operator's
// right operand before its left.
func Compile(st *Node) (*Program, error) {
	p := &Program{bodies: make([][]ctrl, 1)}
	var body []ctrl
	if err := p.emit(st, &body); err != nil {
		return nil, err
	}
	p.bodies[0] = body
	return p, nil
}

func (p *Program) reserve() int {
	p.bodies = append(p.bodies, nil)
	return len(p.bodies) - 1
}

func (p *Program) emit(node *Node, cs *[]ctrl) error {
	switch node.Kind {
	case NLambda:
		if len(node.Children) != 2 {
			return standardizeErrorf(node, "lambda must have one parameter and one body")
		}
		params, err := paramNames(node.Children[0])
		if err != nil {
			return err
		}
		id := p.reserve()
		*cs = append(*cs, ctrl{kind: cLambda, n: id, params: params})
		var body []ctrl
		if err := p.emit(node.Children[1], &body); err != nil {
			return err
		}
		p.bodies[id] = body
		return nil

	case NCond:
		if len(node.Children) != 3 {
			return standardizeErrorf(node, "'->' must have three children")
		}
		cond, whenTrue, whenFalse := node.Children[0], node.Children[1], node.Children[2]
		tid := p.reserve()
		var tbody []ctrl
		if err := p.emit(whenTrue, &tbody); err != nil {
			return err
		}
		p.bodies[tid] = tbody
		fid := p.reserve()
		var fbody []ctrl
		if err := p.emit(whenFalse, &fbody); err != nil {
			return err
		}
		p.bodies[fid] = fbody
		*cs = append(*cs,
			ctrl{kind: cDelta, n: tid, truthy: true},
			ctrl{kind: cDelta, n: fid},
			ctrl{kind: cBeta})
		return p.emit(cond, cs)

	case NGamma:
		if len(node.Children) != 2 {
			return standardizeErrorf(node, "gamma must have two children")
		}
		*cs = append(*cs, ctrl{kind: cGamma})
		if err := p.emit(node.Children[0], cs); err != nil {
			return err
		}
		return p.emit(node.Children[1], cs)

	case NTau:
		*cs = append(*cs, ctrl{kind: cTau, n: len(node.Children)})
		for _, child := range node.Children {
			if err := p.emit(child, cs); err != nil {
				return err
			}
		}
		return nil

	case NAug, NOr, NAmp, NGr, NGe, NLs, NLe, NEq, NNe,
		NPlus, NMinus, NMul, NDiv, NPow:
		if len(node.Children) != 2 {
			return standardizeErrorf(node, "binary operator must have two children")
		}
		*cs = append(*cs, ctrl{kind: cOp, op: node.Kind})
		if err := p.emit(node.Children[0], cs); err != nil {
			return err
		}
		return p.emit(node.Children[1], cs)

	case NNot, NNeg:
		if len(node.Children) != 1 {
			return standardizeErrorf(node, "unary operator must have one child")
		}
		*cs = append(*cs, ctrl{kind: cOp, op: node.Kind})
		return p.emit(node.Children[0], cs)

	case NIdentifier:
		*cs = append(*cs, ctrl{kind: cName, name: node.Text})
		return nil

	case NInteger:
		i, err := strconv.ParseInt(node.Text, 10, 64)
		if err != nil {
			return standardizeErrorf(node, "integer literal %q out of range", node.Text)
		}
		*cs = append(*cs, ctrl{kind: cValue, val: intValue(i)})
		return nil

	case NString:
		*cs = append(*cs, ctrl{kind: cValue, val: strValue(node.Text)})
		return nil

	case NTrue:
		*cs = append(*cs, ctrl{kind: cValue, val: boolValue(true)})
		return nil

	case NFalse:
		*cs = append(*cs, ctrl{kind: cValue, val: boolValue(false)})
		return nil

	case NNil:
		*cs = append(*cs, ctrl{kind: cValue, val: Value{Kind: VNil}})
		return nil

	case NDummy:
		*cs = append(*cs, ctrl{kind: cValue, val: Value{Kind: VDummy}})
		return nil

	case NYStar:
		*cs = append(*cs, ctrl{kind: cValue, val: Value{Kind: VYStar}})
		return nil
	}
	return standardizeErrorf(node, "node may not appear in a standardized tree")
}

// paramNames flattens a lambda's bound-variable child into parameter
// names. The '()' parameter gets a name no identifier can spell, so the
// binding exists but can never be referenced.
func paramNames(v *Node) ([]string, error) {
	switch v.Kind {
	case NIdentifier:
		return []string{v.Text}, nil
	case NEmptyParams:
		return []string{"()"}, nil
	case NComma:
		names := make([]string, 0, len(v.Children))
		for _, child := range v.Children {
			if child.Kind != NIdentifier {
				return nil, standardizeErrorf(child, "tuple pattern must contain identifiers")
			}
			names = append(names, child.Text)
		}
		return names, nil
	}
	return nil, standardizeErrorf(v, "invalid bound variable")
}
