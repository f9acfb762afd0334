package circuits

import "fmt"

// LayoutField is one named fixed-length range of a public-input vector.
type LayoutField struct {
	Name string
	Len  int
}

// Layout describes the positional encoding of the public-input vector of a
// circuit family: an ordered list of named fields with fixed lengths. The
// registration order is part of the wire format and must never change once
// a circuit is deployed, since other circuits parse it positionally.
type Layout struct {
	fields  []LayoutField
	offsets map[string]int
	total   int
}

// NewLayout builds a layout from the ordered field list, computing the
// cumulative offset of every field and the total vector length.
func NewLayout(fields ...LayoutField) Layout {
	l := Layout{fields: fields, offsets: make(map[string]int, len(fields))}
	for _, f := range fields {
		if f.Len <= 0 {
			panic(fmt.Sprintf("layout: field %q has non-positive length", f.Name))
		}
		if _, ok := l.offsets[f.Name]; ok {
			panic(fmt.Sprintf("layout: duplicate field %q", f.Name))
		}
		l.offsets[f.Name] = l.total
		l.total += f.Len
	}
	return l
}

// Total returns the declared length of the public-input vector.
func (l Layout) Total() int { return l.total }

// Offset returns the starting position of the named field.
func (l Layout) Offset(name string) int {
	off, ok := l.offsets[name]
	if !ok {
		panic(fmt.Sprintf("layout: unknown field %q", name))
	}
	return off
}

// FieldLen returns the declared length of the named field.
func (l Layout) FieldLen(name string) int {
	for _, f := range l.fields {
		if f.Name == name {
			return f.Len
		}
	}
	panic(fmt.Sprintf("layout: unknown field %q", name))
}

// Slice extracts the named field from a full public-input vector. It panics
// when the vector length does not equal the layout total: a mismatch means
// the caller wired the wrong proof into this family, which is a programming
// error rather than a recoverable condition.
func Slice[T any](l Layout, vec []T, name string) []T {
	if len(vec) != l.total {
		panic(fmt.Sprintf("layout: vector length %d, expected %d", len(vec), l.total))
	}
	off := l.Offset(name)
	return vec[off : off+l.FieldLen(name)]
}

// At returns the single element of a length-1 field.
func At[T any](l Layout, vec []T, name string) T {
	s := Slice(l, vec, name)
	if len(s) != 1 {
		panic(fmt.Sprintf("layout: field %q has length %d, expected 1", name, len(s)))
	}
	return s[0]
}

// Register appends the field values to a public-input vector under
// construction, enforcing the declared per-field lengths and the global
// ordering. The vector must be built by registering every field exactly
// once, in layout order.
type Register[T any] struct {
	layout Layout
	vec    []T
	next   int
}

// NewRegister starts the ordered registration of a public-input vector.
func NewRegister[T any](l Layout) *Register[T] {
	return &Register[T]{layout: l, vec: make([]T, 0, l.total)}
}

// Append registers the next field in layout order.
func (r *Register[T]) Append(name string, values ...T) *Register[T] {
	if r.next >= len(r.layout.fields) {
		panic("layout: register past the last field")
	}
	f := r.layout.fields[r.next]
	if f.Name != name {
		panic(fmt.Sprintf("layout: expected field %q, got %q", f.Name, name))
	}
	if len(values) != f.Len {
		panic(fmt.Sprintf("layout: field %q has length %d, got %d values", name, f.Len, len(values)))
	}
	r.vec = append(r.vec, values...)
	r.next++
	return r
}

// Vector returns the completed public-input vector, panicking if any field
// was left unregistered.
func (r *Register[T]) Vector() []T {
	if r.next != len(r.layout.fields) {
		panic(fmt.Sprintf("layout: only %d of %d fields registered", r.next, len(r.layout.fields)))
	}
	return r.vec
}
