package union

import (
	"errors"
	"reflect"
	"testing"
)

func opNames(m *Model) []string {
	out := make([]string, len(m.Operations))
	for i, op := range m.Operations {
		out[i] = op.Name
	}
	return out
}

func shapeDecl(settings Settings) Declaration {
	return Declaration{
		Type:     testRoot,
		Settings: settings,
		Variants: []Variant{
			withCtor(variant("Circle", "Shape"), "NewCircle", basic("float64"), "radius"),
			withCtor(variant("Square", "Shape"), "NewSquare", basic("int"), "side"),
			withCtor(variant("Rect", "Shape"), "NewRect", basic("int"), "side"),
		},
	}
}

func TestBuild_SettingsGateOperations(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     []string
	}{
		{
			name:     "defaults",
			settings: Settings{},
			want:     []string{"Switch", "SwitchWithState", "Map", "FromFloat64"},
		},
		{
			name:     "partial overloads",
			settings: Settings{SwitchMethods: DefaultWithPartialOverloads, MapMethods: DefaultWithPartialOverloads},
			want: []string{
				"Switch", "SwitchWithState", "SwitchPartially", "SwitchPartiallyWithState",
				"Map", "MapPartially", "FromFloat64",
			},
		},
		{
			name:     "nothing",
			settings: Settings{SwitchMethods: None, MapMethods: None, SkipImplicitConversionFromValue: true},
			want:     []string{},
		},
		{
			name:     "map only",
			settings: Settings{SwitchMethods: None, SkipImplicitConversionFromValue: true},
			want:     []string{"Map"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := Build(shapeDecl(tt.settings))
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got := opNames(m); !equalStrings(got, tt.want) {
				t.Errorf("operations = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuild_OperationShape(t *testing.T) {
	m, err := Build(shapeDecl(Settings{SwitchMethods: DefaultWithPartialOverloads, MapMethods: DefaultWithPartialOverloads}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, op := range m.Operations {
		if op.Kind == OpConversion {
			if op.Conversion == nil || len(op.Arms) != 0 {
				t.Errorf("%s: malformed conversion %+v", op.Name, op)
			}
			continue
		}
		if op.Partial == op.FailureArm {
			t.Errorf("%s: partial=%v failureArm=%v; exactly one must hold", op.Name, op.Partial, op.FailureArm)
		}
		if op.Partial != op.HasDefault {
			t.Errorf("%s: partial=%v hasDefault=%v", op.Name, op.Partial, op.HasDefault)
		}
		if len(op.Arms) != len(m.Cases) {
			t.Fatalf("%s: %d arms, want %d", op.Name, len(op.Arms), len(m.Cases))
		}
		for i, arm := range op.Arms {
			if arm.Variant.ID != m.Cases[i].Variant.Type.ID || arm.Param != m.Cases[i].ArgName {
				t.Errorf("%s: arm %d = %+v, want case %s", op.Name, i, arm, m.Cases[i].Variant.Type.ID)
			}
		}
	}

	sw, ok := m.Operation(OpNameSwitchPartiallyWithState)
	if !ok || !sw.WithState || !sw.Partial {
		t.Errorf("SwitchPartiallyWithState = %+v", sw)
	}
	if _, ok := m.Operation("MapWithState"); ok {
		t.Error("unexpected MapWithState operation")
	}
}

func TestBuild_EmptyUnionKeepsFailureArm(t *testing.T) {
	m, err := Build(Declaration{Type: testRoot})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Cases) != 0 || len(m.Conversions) != 0 {
		t.Fatalf("cases=%v conversions=%v, want none", m.Cases, m.Conversions)
	}
	for _, name := range []string{OpNameSwitch, OpNameMap} {
		op, ok := m.Operation(name)
		if !ok {
			t.Fatalf("%s missing", name)
		}
		if len(op.Arms) != 0 || !op.FailureArm {
			t.Errorf("%s: arms=%d failureArm=%v, want 0 arms and the failure arm", name, len(op.Arms), op.FailureArm)
		}
	}
}

func TestBuild_SkipImplicitConversion(t *testing.T) {
	m, err := Build(shapeDecl(Settings{SkipImplicitConversionFromValue: true}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Conversions) != 0 {
		t.Errorf("conversions = %v, want none", m.Conversions)
	}
	for _, op := range m.Operations {
		if op.Kind == OpConversion {
			t.Errorf("unexpected conversion %s", op.Name)
		}
	}
}

func TestBuild_ConversionNamesAreUnique(t *testing.T) {
	dur := func(pkgName string) TypeRef {
		return TypeRef{
			ID:      "example.com/" + pkgName + ".Duration",
			PkgPath: "example.com/" + pkgName,
			PkgName: pkgName,
			Name:    "Duration",
			Expr:    pkgName + ".Duration",
		}
	}
	m, err := Build(Declaration{
		Type: testRoot,
		Variants: []Variant{
			withCtor(variant("A", "Shape"), "NewA", dur("clock"), "d"),
			withCtor(variant("B", "Shape"), "NewB", dur("timer"), "d"),
			withCtor(variant("C", "Shape"), "NewC", basic("string"), "s"),
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var got []string
	for _, op := range m.Operations {
		if op.Kind == OpConversion {
			got = append(got, op.Name)
		}
	}
	want := []string{"FromString", "FromTimerDuration", "FromClockDuration"}
	if !equalStrings(got, want) {
		t.Errorf("conversion names = %v, want %v", got, want)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	decl := shapeDecl(Settings{SwitchMethods: DefaultWithPartialOverloads})
	first, err := Build(decl)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Build(decl)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestBuild_PropagatesHierarchyError(t *testing.T) {
	_, err := Build(Declaration{Type: testRoot, Variants: []Variant{variant("A", "B"), variant("B", "A")}})
	if !errors.Is(err, ErrCyclicOrUnresolvableHierarchy) {
		t.Fatalf("err = %v, want ErrCyclicOrUnresolvableHierarchy", err)
	}
}

func TestParseMethodGeneration(t *testing.T) {
	tests := []struct {
		in      string
		want    MethodGeneration
		wantErr bool
	}{
		{"", Default, false},
		{"default", Default, false},
		{"None", None, false},
		{"partial", DefaultWithPartialOverloads, false},
		{"default-with-partial-overloads", DefaultWithPartialOverloads, false},
		{"DefaultWithPartialOverloads", DefaultWithPartialOverloads, false},
		{"sometimes", Default, true},
	}
	for _, tt := range tests {
		got, err := ParseMethodGeneration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethodGeneration(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMethodGeneration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
