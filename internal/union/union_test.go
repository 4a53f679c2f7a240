package union

const testPkg = "example.com/shapes"

var testRoot = ref("Shape")

func ref(name string) TypeRef {
	return TypeRef{
		ID:      testPkg + "." + name,
		PkgPath: testPkg,
		PkgName: "shapes",
		Name:    name,
		Expr:    name,
	}
}

func basic(name string) TypeRef {
	return TypeRef{ID: name, Name: name, Expr: name}
}

func variant(name, base string) Variant {
	return Variant{Type: ref(name), Base: ref(base)}
}

func abstract(name, base string) Variant {
	v := variant(name, base)
	v.Abstract = true
	return v
}

func withCtor(v Variant, fn string, arg TypeRef, argName string) Variant {
	v.Constructors = append(v.Constructors, Constructor{Func: fn, Arg: arg, ArgName: argName})
	return v
}

func caseNames(cases []Case) []string {
	out := make([]string, len(cases))
	for i, c := range cases {
		out[i] = c.Variant.Type.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
