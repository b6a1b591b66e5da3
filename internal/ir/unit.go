package ir

// RawField is a struct member as written in the source, before resolution.
type RawField struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Line int    `json:"line,omitempty"`
}

// StructDef is one struct declaration.
type StructDef struct {
	Name   string     `json:"name"`
	Scope  string     `json:"scope,omitempty"` // enclosing contract, if any
	Fields []RawField `json:"fields"`
	Line   int        `json:"line,omitempty"`
}

// EnumDef is one enum declaration.
type EnumDef struct {
	Name     string   `json:"name"`
	Variants []string `json:"variants"`
	Line     int      `json:"line,omitempty"`
}

// AliasDef is a user-defined value type: `type Name is Underlying;`.
type AliasDef struct {
	Name       string `json:"name"`
	Underlying string `json:"underlying"`
	Line       int    `json:"line,omitempty"`
}

// Unit is everything one scan learned about a source: the struct
// declarations plus the other named types a field may refer to.
type Unit struct {
	Structs   []StructDef `json:"structs"`
	Enums     []EnumDef   `json:"enums,omitempty"`
	Aliases   []AliasDef  `json:"aliases,omitempty"`
	Contracts []string    `json:"contracts,omitempty"` // contract, interface and library names
}

// QualifiedName returns Scope.Name for a struct declared inside a
// contract, interface or library and Name for a file-level struct.
func (s *StructDef) QualifiedName() string {
	if s.Scope == "" {
		return s.Name
	}
	return s.Scope + "." + s.Name
}

// Struct finds a struct declaration by qualified name, or else by its bare
// name. The first matching declaration wins.
func (u *Unit) Struct(name string) (*StructDef, bool) {
	for i := range u.Structs {
		if u.Structs[i].QualifiedName() == name {
			return &u.Structs[i], true
		}
	}
	for i := range u.Structs {
		if u.Structs[i].Name == name {
			return &u.Structs[i], true
		}
	}
	return nil, false
}

// StructNames returns struct names in declaration order.
func (u *Unit) StructNames() []string {
	names := make([]string, len(u.Structs))
	for i, s := range u.Structs {
		names[i] = s.Name
	}
	return names
}
