package union

// SelectUniqueConstructorArgs returns the constructor argument types that
// exactly one variant accepts, in order of first appearance across cases.
//
// Frequencies count distinct variants, so a variant declaring two
// constructors for the same type still counts once; its first constructor is
// the representative. Types claimed by several variants are left out: a
// conversion from them would be ambiguous.
func SelectUniqueConstructorArgs(cases []Case) []Conversion {
	owners := make(map[string]int)
	var order []string
	first := make(map[string]Conversion)

	for _, c := range cases {
		seen := make(map[string]bool, len(c.Variant.Constructors))
		for _, ctor := range c.Variant.Constructors {
			id := ctor.Arg.ID
			if seen[id] {
				continue
			}
			seen[id] = true
			if owners[id] == 0 {
				order = append(order, id)
				first[id] = Conversion{
					Arg:     ctor.Arg,
					ArgName: ctor.ArgName,
					Variant: c.Variant.Type,
					Func:    ctor.Func,
				}
			}
			owners[id]++
		}
	}

	var unique []Conversion
	for _, id := range order {
		if owners[id] == 1 {
			unique = append(unique, first[id])
		}
	}
	return unique
}

// Ambiguity is a constructor argument type claimed by several variants.
type Ambiguity struct {
	Arg      TypeRef
	Variants []TypeRef
}

// AmbiguousConversions reports the argument types SelectUniqueConstructorArgs
// drops, with the variants competing for each, so callers can explain why a
// conversion was not generated.
func AmbiguousConversions(cases []Case) []Ambiguity {
	index := make(map[string]int)
	var out []Ambiguity
	for _, c := range cases {
		seen := make(map[string]bool, len(c.Variant.Constructors))
		for _, ctor := range c.Variant.Constructors {
			id := ctor.Arg.ID
			if seen[id] {
				continue
			}
			seen[id] = true
			i, ok := index[id]
			if !ok {
				i = len(out)
				index[id] = i
				out = append(out, Ambiguity{Arg: ctor.Arg})
			}
			out[i].Variants = append(out[i].Variants, c.Variant.Type)
		}
	}

	ambiguous := out[:0]
	for _, a := range out {
		if len(a.Variants) > 1 {
			ambiguous = append(ambiguous, a)
		}
	}
	return ambiguous
}
