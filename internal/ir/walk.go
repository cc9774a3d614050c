package ir

// Children returns the direct children of n in evaluation order.
func Children(n Node) []Node {
	switch node := n.(type) {
	case *FieldAccess:
		return []Node{node.From}
	case *Call:
		return node.Args
	case *Lambda:
		return []Node{node.Body}
	case *Binary:
		return []Node{node.Left, node.Right}
	case *Unary:
		return []Node{node.Operand}
	case *Record:
		out := make([]Node, len(node.Fields))
		for i, f := range node.Fields {
			out[i] = f.Value
		}
		return out
	case *Alias:
		return []Node{node.Value}
	default:
		return nil
	}
}

// WithChildren returns a copy of n whose children are replaced by children,
// which must have the length Children(n) returned. If every child is
// identical to the existing one, n itself is returned.
func WithChildren(n Node, children []Node) Node {
	existing := Children(n)
	if len(existing) != len(children) {
		panic("ir: WithChildren arity mismatch")
	}
	same := true
	for i := range existing {
		if existing[i] != children[i] {
			same = false
			break
		}
	}
	if same {
		return n
	}

	switch node := n.(type) {
	case *FieldAccess:
		cp := *node
		cp.From = children[0]
		return &cp
	case *Call:
		cp := *node
		cp.Args = append([]Node(nil), children...)
		return &cp
	case *Lambda:
		cp := *node
		cp.Body = children[0]
		return &cp
	case *Binary:
		cp := *node
		cp.Left, cp.Right = children[0], children[1]
		return &cp
	case *Unary:
		cp := *node
		cp.Operand = children[0]
		return &cp
	case *Record:
		cp := *node
		cp.Fields = make([]NamedNode, len(node.Fields))
		for i, f := range node.Fields {
			cp.Fields[i] = NamedNode{Name: f.Name, Value: children[i]}
		}
		return &cp
	case *Alias:
		cp := *node
		cp.Value = children[0]
		return &cp
	default:
		return n
	}
}

// Walk visits n and its descendants in pre-order. If fn returns false the
// children of the current node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Any reports whether pred holds for n or any descendant.
func Any(n Node, pred func(Node) bool) bool {
	found := false
	Walk(n, func(c Node) bool {
		if found {
			return false
		}
		if pred(c) {
			found = true
			return false
		}
		return true
	})
	return found
}

// ReferencesScope reports whether n reads anything from scope s.
func ReferencesScope(n Node, s ScopeID) bool {
	return Any(n, func(c Node) bool {
		ref, ok := c.(*ScopeRef)
		return ok && ref.Scope == s
	})
}
