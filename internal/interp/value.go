// Package interp is the compile-time tree-walking evaluator: it walks a
// resolved AST and reduces it to an ordered PrintList of byte buffers, the
// only thing the emitters ever see. Nothing here runs at the target
// program's runtime — "evaluation" and "compilation" are the same act.
package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexisbouchez/linguaiter/internal/ast"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	default:
		return "void"
	}
}

// Value is the tagged union every expression reduces to.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	S    string
	B    bool
	Obj  *ObjData
}

func VoidValue() Value             { return Value{Kind: KindVoid} }
func IntValue(v int64) Value       { return Value{Kind: KindInt, I: v} }
func FloatValue(v float64) Value   { return Value{Kind: KindFloat, F: v} }
func StringValue(v string) Value   { return Value{Kind: KindString, S: v} }
func BoolValue(v bool) Value       { return Value{Kind: KindBool, B: v} }
func ObjectValue(o *ObjData) Value { return Value{Kind: KindObject, Obj: o} }

// TypeName returns the Lingua-level type name of v, suitable for comparing
// against an ast.TypeName from a declaration. Objects report their class name.
func (v Value) TypeName() string {
	if v.Kind == KindObject && v.Obj != nil {
		return v.Obj.Class.Name
	}
	return v.Kind.String()
}

// Stringify renders v the way the `+` operator's auto-stringify rule and
// string-concatenation conversions do: int -> decimal, float -> shortest
// round-trip form, bool -> true/false, object -> ClassName{f: v, ...}.
func (v Value) Stringify() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case KindString:
		return v.S
	case KindBool:
		if v.B {
			return "true"
		}
		return "false"
	case KindObject:
		return v.Obj.Stringify()
	default:
		return ""
	}
}

// Equal implements the `==`/`match` equality rule: identical types compare
// directly, with int<->float promotion; every other cross-type pairing is
// never reached (type-checked earlier) and compares unequal.
func (v Value) Equal(o Value) bool {
	if v.Kind == KindInt && o.Kind == KindFloat {
		return float64(v.I) == o.F
	}
	if v.Kind == KindFloat && o.Kind == KindInt {
		return v.F == float64(o.I)
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.I == o.I
	case KindFloat:
		return v.F == o.F
	case KindString:
		return v.S == o.S
	case KindBool:
		return v.B == o.B
	case KindObject:
		return v.Obj == o.Obj
	default:
		return true
	}
}

// ObjData is a materialized class instance: the field slice is parallel to
// Class.Fields (parent fields first, per the flattened field list).
type ObjData struct {
	Class  *ClassDef
	Values []Value
}

func (o *ObjData) indexOf(name string) int {
	for i, f := range o.Class.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Get reads a field by name; ok is false if the class has no such field.
func (o *ObjData) Get(name string) (Value, bool) {
	if i := o.indexOf(name); i >= 0 {
		return o.Values[i], true
	}
	return Value{}, false
}

// Set writes a field by name; ok is false if the class has no such field.
func (o *ObjData) Set(name string, v Value) bool {
	if i := o.indexOf(name); i >= 0 {
		o.Values[i] = v
		return true
	}
	return false
}

func (o *ObjData) Stringify() string {
	var sb strings.Builder
	sb.WriteString(o.Class.Name)
	sb.WriteByte('{')
	for i, f := range o.Class.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", f.Name, o.Values[i].Stringify())
	}
	sb.WriteByte('}')
	return sb.String()
}

// ClassDef is a resolved class: its field list already includes every
// ancestor's fields (root ancestor first), and its method map is searched by
// walking the parent chain on a miss.
type ClassDef struct {
	Name     string
	Parent   *ClassDef // nil for a root class
	Fields   []ast.Field
	Methods  map[string]*ast.FuncDecl
	Decl     *ast.ClassDecl
	resolved bool
}

// LookupMethod walks c and its ancestors for name, returning the defining
// class and method, or (nil, nil, false).
func (c *ClassDef) LookupMethod(name string) (*ClassDef, *ast.FuncDecl, bool) {
	for cur := c; cur != nil; cur = cur.Parent {
		if m, ok := cur.Methods[name]; ok {
			return cur, m, true
		}
	}
	return nil, nil, false
}
