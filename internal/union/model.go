package union

import "fmt"

// OpKind is the family of a dispatch operation.
type OpKind int

const (
	// OpSwitch runs an action for the matched variant.
	OpSwitch OpKind = iota
	// OpMap returns the value supplied for the matched variant.
	OpMap
	// OpConversion converts a constructor argument into the union.
	OpConversion
)

func (k OpKind) String() string {
	switch k {
	case OpSwitch:
		return "switch"
	case OpMap:
		return "map"
	case OpConversion:
		return "conversion"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k OpKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Operation names. Conversions are named ConversionPrefix + argument type.
const (
	OpNameSwitch                   = "Switch"
	OpNameSwitchWithState          = "SwitchWithState"
	OpNameSwitchPartially          = "SwitchPartially"
	OpNameSwitchPartiallyWithState = "SwitchPartiallyWithState"
	OpNameMap                      = "Map"
	OpNameMapPartially             = "MapPartially"
	ConversionPrefix               = "From"
)

// Arm is one case of a dispatch operation.
type Arm struct {
	// Variant is the type the arm tests for.
	Variant TypeRef `json:"variant"`

	// Param is the parameter carrying the action or value of this arm.
	Param string `json:"param"`

	// Pointer is true when the arm tests *Variant.
	Pointer bool `json:"pointer,omitempty"`

	// DispatchExpr is the type expression of the test.
	DispatchExpr string `json:"dispatchExpr"`
}

// Operation is one generated dispatch operation or conversion.
type Operation struct {
	Kind OpKind `json:"kind"`
	Name string `json:"name"`

	// Partial operations accept missing actions/values and fall back to a
	// default.
	Partial bool `json:"partial,omitempty"`

	// WithState operations pass a caller-supplied state to every action.
	WithState bool `json:"withState,omitempty"`

	// Arms are in dispatch order.
	Arms []Arm `json:"arms,omitempty"`

	// HasDefault is set on partial operations.
	HasDefault bool `json:"hasDefault,omitempty"`

	// FailureArm is set on total operations: the final arm that panics on a
	// runtime type outside the union.
	FailureArm bool `json:"failureArm,omitempty"`

	// Conversion is set on OpConversion operations.
	Conversion *Conversion `json:"conversion,omitempty"`
}

// Model is everything the emission backend needs for one union.
type Model struct {
	Union       TypeRef      `json:"union"`
	Settings    Settings     `json:"settings"`
	Cases       []Case       `json:"cases"`
	Conversions []Conversion `json:"conversions"`
	Operations  []Operation  `json:"operations"`
}

// Operation returns the operation with the given name.
func (m *Model) Operation(name string) (Operation, bool) {
	for _, op := range m.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// Build resolves decl and derives its operation model.
func Build(decl Declaration) (*Model, error) {
	cases, err := Resolve(decl.Type, decl.Variants)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Union:    decl.Type,
		Settings: decl.Settings,
		Cases:    cases,
	}
	if !decl.Settings.SkipImplicitConversionFromValue {
		m.Conversions = SelectUniqueConstructorArgs(cases)
	}
	m.Operations = BuildOperations(cases, decl.Settings, m.Conversions)
	return m, nil
}

// BuildOperations derives the operations enabled by settings. It is pure:
// the same cases, settings and conversions always give the same operations.
func BuildOperations(cases []Case, settings Settings, conversions []Conversion) []Operation {
	arms := make([]Arm, len(cases))
	for i, c := range cases {
		arms[i] = Arm{
			Variant:      c.Variant.Type,
			Param:        c.ArgName,
			Pointer:      c.Variant.Pointer,
			DispatchExpr: c.Variant.DispatchExpr(),
		}
	}

	var ops []Operation
	dispatch := func(kind OpKind, name string, partial, withState bool) {
		ops = append(ops, Operation{
			Kind:       kind,
			Name:       name,
			Partial:    partial,
			WithState:  withState,
			Arms:       append([]Arm(nil), arms...),
			HasDefault: partial,
			FailureArm: !partial,
		})
	}

	if settings.SwitchMethods.Enabled() {
		dispatch(OpSwitch, OpNameSwitch, false, false)
		dispatch(OpSwitch, OpNameSwitchWithState, false, true)
		if settings.SwitchMethods.Partial() {
			dispatch(OpSwitch, OpNameSwitchPartially, true, false)
			dispatch(OpSwitch, OpNameSwitchPartiallyWithState, true, true)
		}
	}
	if settings.MapMethods.Enabled() {
		dispatch(OpMap, OpNameMap, false, false)
		if settings.MapMethods.Partial() {
			dispatch(OpMap, OpNameMapPartially, true, false)
		}
	}

	if !settings.SkipImplicitConversionFromValue {
		names := conversionNames(conversions)
		for i := range conversions {
			conv := conversions[i]
			ops = append(ops, Operation{
				Kind:       OpConversion,
				Name:       names[i],
				Conversion: &conv,
			})
		}
	}
	return ops
}

// conversionNames names each conversion after its argument type. Types that
// share a short name are qualified with their package name, then numbered.
func conversionNames(conversions []Conversion) []string {
	base := make([]string, len(conversions))
	count := make(map[string]int, len(conversions))
	for i, c := range conversions {
		name := UpperCamel(c.Arg.Name)
		if name == "" {
			name = "Value"
		}
		base[i] = name
		count[name]++
	}

	names := make([]string, len(conversions))
	used := make(map[string]bool, len(conversions))
	for i, c := range conversions {
		name := base[i]
		if count[name] > 1 && c.Arg.PkgName != "" {
			name = UpperCamel(c.Arg.PkgName) + name
		}
		name = uniqueName(ConversionPrefix+name, used)
		used[name] = true
		names[i] = name
	}
	return names
}
