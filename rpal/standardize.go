package rpal

// Standardize rewrites an AST into a Standardized Tree whose only binding
// construct is lambda application. The rewrite works bottom-up: children
// first, then the node itself, so that by the time a let/where rewrite
// fires, its definition child has already been reduced to a plain '='
// bind. The returned tree shares leaves with the input; the input tree
// should not be reused afterwards.
//
// After standardization no let, where, within, and, rec, function_form,
// '@' or '=' node remains, and every lambda has exactly two children: one
// bound-variable child (an identifier, a ','-pattern, or '()') and one
// body child.
func Standardize(ast *Node) (*Node, error) {
	if ast == nil {
		return nil, standardizeErrorf(&Node{}, "empty tree")
	}
	return standardizeNode(ast)
}

func standardizeNode(node *Node) (*Node, error) {
	for i, child := range node.Children {
		st, err := standardizeNode(child)
		if err != nil {
			return nil, err
		}
		node.Children[i] = st
	}

	switch node.Kind {
	case NLet:
		return standardizeLet(node)
	case NWhere:
		return standardizeWhere(node)
	case NFunctionForm:
		return standardizeFunctionForm(node)
	case NLambda:
		return standardizeLambda(node)
	case NWithin:
		return standardizeWithin(node)
	case NAt:
		return standardizeAt(node)
	case NAnd:
		return standardizeAnd(node)
	case NRec:
		return standardizeRec(node)
	default:
		return node, nil
	}
}

// bindParts splits an already-standardized '=' node into its bound
// variable and its defining expression.
func bindParts(n *Node) (x, e *Node, err error) {
	if n.Kind != NBind || len(n.Children) != 2 {
		return nil, nil, standardizeErrorf(n, "expected a '=' definition")
	}
	return n.Children[0], n.Children[1], nil
}

// let(X=E, P) -> gamma(lambda(X, P), E)
func standardizeLet(node *Node) (*Node, error) {
	if len(node.Children) != 2 {
		return nil, standardizeErrorf(node, "'let' needs a definition and a body")
	}
	x, e, err := bindParts(node.Children[0])
	if err != nil {
		return nil, err
	}
	p := node.Children[1]
	return internal(NGamma, internal(NLambda, x, p), e), nil
}

// where(P, X=E) -> gamma(lambda(X, P), E)
func standardizeWhere(node *Node) (*Node, error) {
	if len(node.Children) != 2 {
		return nil, standardizeErrorf(node, "'where' needs a body and a definition")
	}
	p := node.Children[0]
	x, e, err := bindParts(node.Children[1])
	if err != nil {
		return nil, err
	}
	return internal(NGamma, internal(NLambda, x, p), e), nil
}

// function_form(f, V1..Vn, E) -> =(f, lambda(V1, lambda(V2, ... E)))
func standardizeFunctionForm(node *Node) (*Node, error) {
	if len(node.Children) < 3 {
		return nil, standardizeErrorf(node, "'function_form' needs a name, parameters and a body")
	}
	name := node.Children[0]
	params := node.Children[1 : len(node.Children)-1]
	body := node.Children[len(node.Children)-1]
	return internal(NBind, name, curry(params, body)), nil
}

// lambda(V1..Vn, E) with n>1 -> lambda(V1, lambda(V2, ... E)). A single
// ','-pattern parameter stays one lambda; the machine destructures the
// argument tuple when the closure is applied.
func standardizeLambda(node *Node) (*Node, error) {
	if len(node.Children) < 2 {
		return nil, standardizeErrorf(node, "'lambda' needs a parameter and a body")
	}
	params := node.Children[:len(node.Children)-1]
	body := node.Children[len(node.Children)-1]
	return curry(params, body), nil
}

func curry(params []*Node, body *Node) *Node {
	n := body
	for i := len(params) - 1; i >= 0; i-- {
		n = internal(NLambda, params[i], n)
	}
	return n
}

// within(X1=E1, X2=E2) -> =(X2, gamma(lambda(X1, E2), E1))
func standardizeWithin(node *Node) (*Node, error) {
	if len(node.Children) != 2 {
		return nil, standardizeErrorf(node, "'within' needs two definitions")
	}
	x1, e1, err := bindParts(node.Children[0])
	if err != nil {
		return nil, err
	}
	x2, e2, err := bindParts(node.Children[1])
	if err != nil {
		return nil, err
	}
	return internal(NBind, x2, internal(NGamma, internal(NLambda, x1, e2), e1)), nil
}

// @(E1, N, E2) -> gamma(gamma(N, E1), E2)
func standardizeAt(node *Node) (*Node, error) {
	if len(node.Children) != 3 {
		return nil, standardizeErrorf(node, "'@' needs an operand, a name and an operand")
	}
	e1, n, e2 := node.Children[0], node.Children[1], node.Children[2]
	return internal(NGamma, internal(NGamma, n, e1), e2), nil
}

// and(X1=E1, ..., Xn=En) -> =(,(X1..Xn), tau(E1..En))
func standardizeAnd(node *Node) (*Node, error) {
	if len(node.Children) < 2 {
		return nil, standardizeErrorf(node, "'and' needs at least two definitions")
	}
	names := make([]*Node, 0, len(node.Children))
	exprs := make([]*Node, 0, len(node.Children))
	for _, child := range node.Children {
		x, e, err := bindParts(child)
		if err != nil {
			return nil, err
		}
		if x.Kind != NIdentifier {
			return nil, standardizeErrorf(x, "'and' definitions must each bind a single name")
		}
		names = append(names, x)
		exprs = append(exprs, e)
	}
	return internal(NBind,
		internal(NComma, names...),
		internal(NTau, exprs...)), nil
}

// rec(X=E) -> =(X, gamma(Y*, lambda(X, E)))
func standardizeRec(node *Node) (*Node, error) {
	if len(node.Children) != 1 {
		return nil, standardizeErrorf(node, "'rec' needs a definition")
	}
	x, e, err := bindParts(node.Children[0])
	if err != nil {
		return nil, err
	}
	if x.Kind != NIdentifier {
		return nil, standardizeErrorf(x, "'rec' must bind a single name")
	}
	return internal(NBind, x,
		internal(NGamma, leaf(NYStar, ""),
			internal(NLambda, leaf(NIdentifier, x.Text), e))), nil
}
