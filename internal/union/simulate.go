package union

// Hierarchy is the subtype relation of a declaration: a value of a variant
// is also a value of every variant it descends from.
type Hierarchy struct {
	root   string
	parent map[string]string
}

// NewHierarchy indexes the base links of decl.
func NewHierarchy(decl Declaration) Hierarchy {
	h := Hierarchy{root: decl.Type.ID, parent: make(map[string]string, len(decl.Variants))}
	for _, v := range decl.Variants {
		h.parent[v.Type.ID] = v.Base.ID
	}
	return h
}

// IsA reports whether a value whose exact type is actual passes a type test
// for target.
func (h Hierarchy) IsA(actual, target string) bool {
	if target == h.root {
		return true
	}
	cur := actual
	// The step bound stops malformed, cyclic relations.
	for steps := 0; steps <= len(h.parent); steps++ {
		if cur == target {
			return true
		}
		next, ok := h.parent[cur]
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

// Ancestors returns the chain of bases of id, nearest first, ending with the
// root. It is empty when id is not part of the hierarchy.
func (h Hierarchy) Ancestors(id string) []string {
	var out []string
	cur := id
	for steps := 0; steps <= len(h.parent); steps++ {
		next, ok := h.parent[cur]
		if !ok {
			break
		}
		out = append(out, next)
		if next == h.root {
			break
		}
		cur = next
	}
	return out
}

// Outcome is the result of dispatching one value through an operation.
type Outcome struct {
	// Matched is the index of the first arm whose type test passed, or -1.
	Matched int

	// Ran is the index of the arm whose action or value was used, or -1.
	Ran int

	// Fallback reports that a partial operation used its default.
	Fallback bool

	// Failed reports that a total operation reached its failure arm.
	Failed bool
}

// Simulate dispatches a value of exact type actual through op the way the
// arms are evaluated on a platform with subtype-polymorphic type tests: top
// to bottom, first match wins.
//
// For partial operations handled reports whether the caller supplied an
// action or value for an arm; a nil handled means every arm is supplied. A
// matched but unsupplied arm goes straight to the default, so no other
// arm runs. Total operations ignore handled.
func Simulate(op Operation, h Hierarchy, actual string, handled func(Arm) bool) Outcome {
	out := Outcome{Matched: -1, Ran: -1}
	if op.Kind == OpConversion {
		return out
	}

	for i, arm := range op.Arms {
		if !h.IsA(actual, arm.Variant.ID) {
			continue
		}
		out.Matched = i
		if op.Partial && handled != nil && !handled(arm) {
			break
		}
		out.Ran = i
		return out
	}

	if op.Partial {
		out.Fallback = true
	} else {
		out.Failed = true
	}
	return out
}
