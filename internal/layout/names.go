package layout

import (
	"strings"

	"github.com/roach88/sollayout/internal/ir"
)

// structIndex resolves struct names the way Solidity scopes them: a struct
// declared in a contract is visible there by its bare name and elsewhere as
// Contract.Name.
type structIndex struct {
	defs    map[string]*ir.StructDef // by key, first declaration wins
	order   []string                 // keys in declaration order
	display map[string]string        // key -> name shown in layouts and errors
	byName  map[string][]string      // bare name -> keys
}

// structKey is the normalized qualified name of def.
func structKey(def *ir.StructDef) string {
	return ir.NormalizeIdentifier(def.QualifiedName())
}

func newStructIndex(unit *ir.Unit) *structIndex {
	x := &structIndex{
		defs:    make(map[string]*ir.StructDef, len(unit.Structs)),
		display: make(map[string]string, len(unit.Structs)),
		byName:  make(map[string][]string),
	}
	for i := range unit.Structs {
		def := &unit.Structs[i]
		key := structKey(def)
		if _, dup := x.defs[key]; dup {
			continue
		}
		x.defs[key] = def
		x.order = append(x.order, key)
		bare := ir.NormalizeIdentifier(def.Name)
		x.byName[bare] = append(x.byName[bare], key)
	}
	// Bare names stay bare unless another scope reuses them.
	for key, def := range x.defs {
		x.display[key] = def.Name
		if len(x.byName[ir.NormalizeIdentifier(def.Name)]) > 1 {
			x.display[key] = def.QualifiedName()
		}
	}
	return x
}

// lookup finds the struct name refers to when written inside scope. A
// qualified name matches its declaration exactly and otherwise falls back
// to its last segment. A bare name is tried in scope, then at file level,
// then against every scope; found is false when nothing matches and err is
// set when more than one scope declares it.
func (x *structIndex) lookup(name, scope string) (key string, found bool, err error) {
	name = ir.NormalizeIdentifier(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		if _, ok := x.defs[name]; ok {
			return name, true, nil
		}
		name, scope = name[i+1:], ""
	}
	if scope != "" {
		if k := ir.NormalizeIdentifier(scope) + "." + name; x.defs[k] != nil {
			return k, true, nil
		}
	}
	if x.defs[name] != nil {
		return name, true, nil
	}
	switch keys := x.byName[name]; len(keys) {
	case 0:
		return "", false, nil
	case 1:
		return keys[0], true, nil
	default:
		candidates := make([]string, len(keys))
		for i, k := range keys {
			candidates[i] = x.display[k]
		}
		return "", false, &UnknownTypeError{Type: name, Candidates: candidates}
	}
}

// names maps keys to display names.
func (x *structIndex) names(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = x.display[k]
	}
	return out
}

// lastSegment strips a Lib. qualifier from a non-struct type name.
func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
