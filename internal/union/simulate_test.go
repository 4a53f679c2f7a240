package union

import (
	"fmt"
	"math/rand"
	"testing"
)

// randomDecl builds a variant tree of n variants where each variant extends
// the root or an earlier variant, about a fifth of them abstract.
func randomDecl(rng *rand.Rand, n int) Declaration {
	decl := Declaration{Type: testRoot}
	for i := 0; i < n; i++ {
		base := "Shape"
		if i > 0 && rng.Intn(3) > 0 {
			base = fmt.Sprintf("V%d", rng.Intn(i))
		}
		v := variant(fmt.Sprintf("V%d", i), base)
		v.Abstract = rng.Intn(5) == 0
		v.Order = i
		decl.Variants = append(decl.Variants, v)
	}
	rng.Shuffle(len(decl.Variants), func(a, b int) {
		decl.Variants[a], decl.Variants[b] = decl.Variants[b], decl.Variants[a]
	})
	return decl
}

func TestSimulate_ExhaustiveFirstMatch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		decl := randomDecl(rng, 1+rng.Intn(12))
		m, err := Build(decl)
		if err != nil {
			t.Fatalf("round %d: Build: %v", round, err)
		}
		sw, _ := m.Operation(OpNameSwitch)
		h := NewHierarchy(decl)

		for _, v := range decl.Variants {
			if v.Abstract {
				continue
			}
			out := Simulate(sw, h, v.Type.ID, nil)
			if out.Failed || out.Ran < 0 {
				t.Fatalf("round %d: %s not dispatched: %+v", round, v.Type.Name, out)
			}
			if got := sw.Arms[out.Ran].Variant.ID; got != v.Type.ID {
				t.Fatalf("round %d: %s dispatched to %s", round, v.Type.ID, got)
			}
		}
	}
}

func TestSimulate_ChainSelectsExactVariant(t *testing.T) {
	decl := Declaration{Type: testRoot, Variants: []Variant{variant("A", "Shape"), variant("B", "A")}}
	m, err := Build(decl)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sw, _ := m.Operation(OpNameSwitch)
	h := NewHierarchy(decl)

	if out := Simulate(sw, h, ref("B").ID, nil); sw.Arms[out.Ran].Variant.Name != "B" {
		t.Errorf("B dispatched to %s", sw.Arms[out.Ran].Variant.Name)
	}
	if out := Simulate(sw, h, ref("A").ID, nil); sw.Arms[out.Ran].Variant.Name != "A" {
		t.Errorf("A dispatched to %s", sw.Arms[out.Ran].Variant.Name)
	}

	// The same arms in root-first order would hand B to A's arm.
	unordered := sw
	unordered.Arms = []Arm{sw.Arms[1], sw.Arms[0]}
	if out := Simulate(unordered, h, ref("B").ID, nil); unordered.Arms[out.Ran].Variant.Name != "A" {
		t.Errorf("root-first order: B dispatched to %s, want A", unordered.Arms[out.Ran].Variant.Name)
	}
}

func TestSimulate_PartialFallback(t *testing.T) {
	decl := Declaration{
		Type:     testRoot,
		Settings: Settings{SwitchMethods: DefaultWithPartialOverloads, MapMethods: DefaultWithPartialOverloads},
		Variants: []Variant{variant("A", "Shape"), variant("B", "A"), variant("C", "Shape")},
	}
	m, err := Build(decl)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	h := NewHierarchy(decl)

	for _, name := range []string{OpNameSwitchPartially, OpNameSwitchPartiallyWithState, OpNameMapPartially} {
		op, ok := m.Operation(name)
		if !ok {
			t.Fatalf("%s missing", name)
		}

		// Only A is handled: B must not fall through to A's arm.
		var calls []string
		onlyA := func(arm Arm) bool {
			calls = append(calls, arm.Variant.Name)
			return arm.Variant.Name == "A"
		}
		out := Simulate(op, h, ref("B").ID, onlyA)
		if !out.Fallback || out.Ran != -1 {
			t.Errorf("%s: B with only A handled = %+v, want the fallback", name, out)
		}
		if len(calls) != 1 || calls[0] != "B" {
			t.Errorf("%s: consulted arms %v, want only B", name, calls)
		}

		out = Simulate(op, h, ref("A").ID, onlyA)
		if out.Fallback || op.Arms[out.Ran].Variant.Name != "A" {
			t.Errorf("%s: A = %+v, want A's arm", name, out)
		}

		none := func(Arm) bool { return false }
		out = Simulate(op, h, ref("C").ID, none)
		if !out.Fallback || out.Failed {
			t.Errorf("%s: C with nothing handled = %+v, want the fallback", name, out)
		}
	}
}

func TestSimulate_UnknownType(t *testing.T) {
	decl := Declaration{Type: testRoot, Variants: []Variant{variant("A", "Shape")}}
	m, err := Build(decl)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	h := NewHierarchy(decl)

	sw, _ := m.Operation(OpNameSwitch)
	if out := Simulate(sw, h, "example.com/elsewhere.Alien", nil); !out.Failed || out.Matched != -1 {
		t.Errorf("total: %+v, want the failure arm", out)
	}

	empty, err := Build(Declaration{Type: testRoot})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	mp, _ := empty.Operation(OpNameMap)
	if out := Simulate(mp, NewHierarchy(Declaration{Type: testRoot}), ref("A").ID, nil); !out.Failed {
		t.Errorf("empty map: %+v, want the failure arm", out)
	}
}

func TestHierarchy_Ancestors(t *testing.T) {
	decl := Declaration{Type: testRoot, Variants: []Variant{
		variant("A", "Shape"), variant("B", "A"), variant("C", "B"),
		variant("P", "Q"), variant("Q", "P"),
	}}
	h := NewHierarchy(decl)

	got := h.Ancestors(ref("C").ID)
	want := []string{ref("B").ID, ref("A").ID, testRoot.ID}
	if !equalStrings(got, want) {
		t.Errorf("Ancestors(C) = %v, want %v", got, want)
	}
	if h.IsA(ref("P").ID, ref("A").ID) {
		t.Error("cyclic P reported as an A")
	}
	if len(h.Ancestors("nope")) != 0 {
		t.Error("unknown type has ancestors")
	}
}
