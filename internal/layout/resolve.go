package layout

import (
	"context"
	"io"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"fortio.org/safecast"

	"github.com/roach88/sollayout/internal/ir"
)

// maxSlots bounds the slot count of a field and of a whole struct so that
// ByteSize stays representable as an int.
const maxSlots = math.MaxInt / ir.SlotSize

// Resolver turns the declarations of one Unit into field tables and layouts.
//
// A Resolver is safe for concurrent use. Layouts are memoized per
// qualified struct name in a Cache; structs that take part in a by-value
// cycle are never cached and always fail with CyclicStructReferenceError.
type Resolver struct {
	unit      *ir.Unit
	structs   *structIndex
	enums     map[string]int
	aliases   map[string]string
	contracts map[string]bool
	cyclic    map[string]bool

	cache  *Cache
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache shares a layout cache between resolvers. Every resolver using
// the cache must be built from the same Unit.
func WithCache(c *Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithLogger sets the logger for resolution events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver indexes the declarations of unit. When a struct name is
// declared twice in the same scope the first declaration wins.
func NewResolver(unit *ir.Unit, opts ...Option) *Resolver {
	r := &Resolver{
		unit:      unit,
		structs:   newStructIndex(unit),
		enums:     make(map[string]int, len(unit.Enums)),
		aliases:   make(map[string]string, len(unit.Aliases)),
		contracts: make(map[string]bool, len(unit.Contracts)),
		cyclic:    make(map[string]bool),
	}
	for _, e := range unit.Enums {
		r.enums[ir.NormalizeIdentifier(e.Name)] = len(e.Variants)
	}
	for _, a := range unit.Aliases {
		r.aliases[ir.NormalizeIdentifier(a.Name)] = a.Underlying
	}
	for _, c := range unit.Contracts {
		r.contracts[ir.NormalizeIdentifier(c)] = true
	}
	for _, scc := range cyclicComponents(r.structs) {
		for _, key := range scc {
			r.cyclic[key] = true
		}
	}

	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewCache()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Resolve maps a type token to its descriptor as written at file level.
// Struct references are laid out recursively to obtain their size.
func (r *Resolver) Resolve(token string) (ir.TypeDescriptor, error) {
	return r.resolve(token, "", nil)
}

// ResolveIn maps a type token to its descriptor as written inside the
// contract scope, where that contract's structs shadow file-level ones.
func (r *Resolver) ResolveIn(scope, token string) (ir.TypeDescriptor, error) {
	return r.resolve(token, scope, nil)
}

// FieldTable resolves every field of the named struct.
func (r *Resolver) FieldTable(name string) (*ir.FieldTable, error) {
	key, err := r.structKey(name)
	if err != nil {
		return nil, err
	}
	return r.fieldTable(r.structs.defs[key], nil)
}

// Layout computes the layout of the named struct. name is a bare struct
// name or Contract.Name. The result is a copy the caller may modify.
func (r *Resolver) Layout(name string) (*ir.StructLayout, error) {
	key, err := r.structKey(name)
	if err != nil {
		return nil, err
	}
	l, err := r.layout(key, nil)
	if err != nil {
		return nil, err
	}
	return l.Clone(), nil
}

func (r *Resolver) structKey(name string) (string, error) {
	key, ok, err := r.structs.lookup(name, "")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &StructNotFoundError{Name: name}
	}
	return key, nil
}

// Result is the outcome of laying out one struct in LayoutAll.
type Result struct {
	Name   string
	Layout *ir.StructLayout
	Err    error
}

// LayoutAll lays out every declared struct concurrently. Results are in
// declaration order; the returned error is ctx's error or else the first
// failing struct's error in declaration order. Every other result is still
// filled in.
func (r *Resolver) LayoutAll(ctx context.Context) ([]Result, error) {
	keys := r.structs.order
	results := make([]Result, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := r.structs.display[key]
			if err := ctx.Err(); err != nil {
				results[i] = Result{Name: name, Err: err}
				return
			}
			l, err := r.layout(key, nil)
			if err != nil {
				results[i] = Result{Name: name, Err: err}
				return
			}
			results[i] = Result{Name: name, Layout: l.Clone()}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	for _, res := range results {
		if res.Err != nil {
			return results, res.Err
		}
	}
	return results, nil
}

// layout returns the shared, uncloned layout of the struct with key. path
// holds the keys of the structs currently being laid out by value,
// outermost first.
func (r *Resolver) layout(key string, path []string) (*ir.StructLayout, error) {
	if i := slices.Index(path, key); i >= 0 {
		cycle := append(slices.Clone(path[i:]), key)
		return nil, &CyclicStructReferenceError{Path: r.structs.names(cycle)}
	}
	def, ok := r.structs.defs[key]
	if !ok {
		return nil, &StructNotFoundError{Name: key}
	}

	compute := func() (*ir.StructLayout, error) {
		table, err := r.fieldTable(def, path)
		if err != nil {
			return nil, err
		}
		l, err := allocate(table)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("struct laid out",
			"struct", l.Name,
			"fields", table.Len(),
			"total_slots", l.TotalSlots(),
		)
		return l, nil
	}

	// Members of a cycle would wait on themselves through the cache.
	if r.cyclic[key] {
		return compute()
	}
	return r.cache.do(key, compute)
}

func (r *Resolver) fieldTable(def *ir.StructDef, path []string) (*ir.FieldTable, error) {
	key := structKey(def)
	name := r.structs.display[key]
	inner := append(slices.Clone(path), key)
	fields := make([]ir.Field, 0, len(def.Fields))
	for _, f := range def.Fields {
		desc, err := r.resolve(f.Type, def.Scope, inner)
		if err != nil {
			return nil, &FieldError{Struct: name, Field: f.Name, Err: err}
		}
		fields = append(fields, ir.Field{Name: f.Name, RawType: f.Type, Type: desc})
	}
	return ir.NewFieldTable(name, fields), nil
}

func (r *Resolver) resolve(token, scope string, path []string) (ir.TypeDescriptor, error) {
	e, err := parseTypeExpr(token)
	if err != nil {
		return ir.TypeDescriptor{}, err
	}
	return r.resolveExpr(e, scope, path, false)
}

// resolveExpr resolves a parsed expression. In shallow mode struct names are
// only checked for existence; mapping values and dynamic array elements
// live at hashed locations and never contribute to the enclosing size.
func (r *Resolver) resolveExpr(e *typeExpr, scope string, path []string, shallow bool) (ir.TypeDescriptor, error) {
	switch e.kind {
	case exprMapping:
		key, err := r.resolveExpr(e.key, scope, path, true)
		if err != nil {
			return ir.TypeDescriptor{}, err
		}
		value, err := r.resolveExpr(e.elem, scope, path, true)
		if err != nil {
			return ir.TypeDescriptor{}, err
		}
		return ir.TypeDescriptor{
			Kind:          ir.KindMapping,
			Name:          e.String(),
			ByteSize:      ir.SlotSize,
			ForcesNewSlot: true,
			Key:           &key,
			Elem:          &value,
		}, nil

	case exprArray:
		if e.length == "" {
			elem, err := r.resolveExpr(e.elem, scope, path, true)
			if err != nil {
				return ir.TypeDescriptor{}, err
			}
			return ir.TypeDescriptor{
				Kind:          ir.KindDynamicArray,
				Name:          e.String(),
				ByteSize:      ir.SlotSize,
				ForcesNewSlot: true,
				Elem:          &elem,
			}, nil
		}
		n, err := parseLength(e)
		if err != nil {
			return ir.TypeDescriptor{}, err
		}
		elem, err := r.resolveExpr(e.elem, scope, path, shallow)
		if err != nil {
			return ir.TypeDescriptor{}, err
		}
		slots, err := fixedArraySlots(e, elem, n)
		if err != nil {
			return ir.TypeDescriptor{}, err
		}
		return ir.TypeDescriptor{
			Kind:          ir.KindFixedArray,
			Name:          e.String(),
			ByteSize:      slots * ir.SlotSize,
			ForcesNewSlot: true,
			Length:        n,
			Elem:          &elem,
		}, nil
	}

	return r.resolveName(e.name, scope, path, shallow)
}

func (r *Resolver) resolveName(name, scope string, path []string, shallow bool) (ir.TypeDescriptor, error) {
	if desc, ok, err := elementary(name); ok || err != nil {
		return desc, err
	}

	key, ok, err := r.structs.lookup(name, scope)
	if err != nil {
		return ir.TypeDescriptor{}, err
	}
	if ok {
		desc := ir.TypeDescriptor{Kind: ir.KindStructRef, Name: name, ForcesNewSlot: true}
		if shallow {
			return desc, nil
		}
		l, err := r.layout(key, path)
		if err != nil {
			return ir.TypeDescriptor{}, err
		}
		total := l.TotalSlots()
		if total == 0 {
			return ir.TypeDescriptor{}, &EmptyStructError{Struct: name}
		}
		if total > maxSlots {
			return ir.TypeDescriptor{}, &InvalidLengthError{Type: name, Reason: "struct exceeds addressable storage"}
		}
		desc.ByteSize = total * ir.SlotSize
		return desc, nil
	}

	// Enums, value types and contracts are looked up by their last segment.
	canonical := ir.NormalizeIdentifier(lastSegment(name))
	if variants, ok := r.enums[canonical]; ok {
		return ir.TypeDescriptor{
			Kind:         ir.KindEnum,
			Name:         name,
			ByteSize:     enumSize(variants),
			VariantCount: variants,
		}, nil
	}
	if underlying, ok := r.aliases[canonical]; ok {
		// User-defined value types wrap an elementary type only.
		u, err := parseTypeExpr(underlying)
		if err != nil {
			return ir.TypeDescriptor{}, err
		}
		if u.kind != exprName {
			return ir.TypeDescriptor{}, &UnknownTypeError{Type: underlying}
		}
		desc, ok, err := elementary(u.name)
		if err != nil {
			return ir.TypeDescriptor{}, err
		}
		if !ok || desc.Kind.Dynamic() {
			return ir.TypeDescriptor{}, &UnknownTypeError{Type: underlying}
		}
		desc.Name = name
		return desc, nil
	}
	if r.contracts[canonical] {
		return ir.TypeDescriptor{Kind: ir.KindAddress, Name: name, ByteSize: 20}, nil
	}
	return ir.TypeDescriptor{}, &UnknownTypeError{Type: name}
}

// elementary resolves the built-in type names. ok is false when name is not
// a built-in; err is set when it is one with an invalid width.
func elementary(name string) (desc ir.TypeDescriptor, ok bool, err error) {
	switch name {
	case "bool":
		return ir.TypeDescriptor{Kind: ir.KindBool, Name: name, ByteSize: 1}, true, nil
	case "address":
		return ir.TypeDescriptor{Kind: ir.KindAddress, Name: name, ByteSize: 20}, true, nil
	case "uint":
		return ir.TypeDescriptor{Kind: ir.KindUnsignedInt, Name: "uint256", ByteSize: 32}, true, nil
	case "int":
		return ir.TypeDescriptor{Kind: ir.KindSignedInt, Name: "int256", ByteSize: 32}, true, nil
	case "byte":
		return ir.TypeDescriptor{Kind: ir.KindFixedBytes, Name: "bytes1", ByteSize: 1}, true, nil
	case "bytes", "string":
		return ir.TypeDescriptor{Kind: ir.KindDynamicBytes, Name: name, ByteSize: ir.SlotSize, ForcesNewSlot: true}, true, nil
	}

	if digits, found := strings.CutPrefix(name, "uint"); found && isDigits(digits) {
		if leadingZero(digits) {
			return ir.TypeDescriptor{}, false, &UnknownTypeError{Type: name}
		}
		size, err := intWidth(name, digits)
		return ir.TypeDescriptor{Kind: ir.KindUnsignedInt, Name: name, ByteSize: size}, err == nil, err
	}
	if digits, found := strings.CutPrefix(name, "int"); found && isDigits(digits) {
		if leadingZero(digits) {
			return ir.TypeDescriptor{}, false, &UnknownTypeError{Type: name}
		}
		size, err := intWidth(name, digits)
		return ir.TypeDescriptor{Kind: ir.KindSignedInt, Name: name, ByteSize: size}, err == nil, err
	}
	if digits, found := strings.CutPrefix(name, "bytes"); found && isDigits(digits) {
		if leadingZero(digits) {
			return ir.TypeDescriptor{}, false, &UnknownTypeError{Type: name}
		}
		n, convErr := strconv.Atoi(digits)
		if convErr != nil || n < 1 || n > ir.SlotSize {
			return ir.TypeDescriptor{}, false, &InvalidWidthError{Type: name, Width: n, Reason: "bytesN requires 1 <= N <= 32"}
		}
		return ir.TypeDescriptor{Kind: ir.KindFixedBytes, Name: name, ByteSize: n}, true, nil
	}
	return ir.TypeDescriptor{}, false, nil
}

func intWidth(name, digits string) (int, error) {
	bits, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &InvalidWidthError{Type: name, Reason: "width out of range"}
	}
	if bits%8 != 0 {
		return 0, &InvalidWidthError{Type: name, Width: bits, Reason: "width must be a multiple of 8"}
	}
	if bits < 8 || bits > 256 {
		return 0, &InvalidWidthError{Type: name, Width: bits, Reason: "width must be between 8 and 256"}
	}
	return bits / 8, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// leadingZero reports widths such as 08 that solc does not accept as part
// of a type name.
func leadingZero(digits string) bool {
	return len(digits) > 1 && digits[0] == '0'
}

// enumSize returns the smallest byte count b >= 1 with 2^(8b) >= variants.
func enumSize(variants int) int {
	b := 1
	for b < 8 && uint64(1)<<(8*b) < uint64(variants) {
		b++
	}
	return b
}

// parseLength reads a fixed-array length literal in decimal or 0x hex.
func parseLength(e *typeExpr) (int, error) {
	raw := e.length
	base := 10
	if rest, ok := strings.CutPrefix(strings.ToLower(raw), "0x"); ok {
		raw, base = rest, 16
	}
	u, err := strconv.ParseUint(raw, base, 64)
	if err != nil {
		return 0, &InvalidLengthError{Type: e.String(), Reason: "length must be an integer literal"}
	}
	if u == 0 {
		return 0, &InvalidLengthError{Type: e.String(), Reason: "length must be positive"}
	}
	n, err := safecast.Conv[int](u)
	if err != nil {
		return 0, &InvalidLengthError{Type: e.String(), Reason: "length too large"}
	}
	return n, nil
}

// fixedArraySlots applies the storage rule for T[n]: packable elements
// share slots (32/size per slot, never straddling), anything else takes
// n whole copies of its own slot count.
func fixedArraySlots(e *typeExpr, elem ir.TypeDescriptor, n int) (int, error) {
	var slots int
	if !elem.ForcesNewSlot {
		perSlot := ir.SlotSize / elem.ByteSize
		slots = n / perSlot
		if n%perSlot != 0 {
			slots++
		}
	} else {
		per := elem.Slots()
		if per > 0 && n > maxSlots/per {
			return 0, &InvalidLengthError{Type: e.String(), Reason: "array exceeds addressable storage"}
		}
		slots = n * per
	}
	if slots > maxSlots {
		return 0, &InvalidLengthError{Type: e.String(), Reason: "array exceeds addressable storage"}
	}
	return slots, nil
}
