package spirv

import (
	spv "github.com/gogpu/naga/spirv"
)

// BaseType is the scalar or opaque category of a type.
type BaseType uint8

const (
	Unknown BaseType = iota
	Void
	Boolean
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	AtomicCounter
	FP16
	FP32
	FP64
	Struct
	Image
	SampledImage
	Sampler
	AccelerationStructure
)

var baseTypeNames = [...]string{
	Unknown:               "unknown",
	Void:                  "void",
	Boolean:               "bool",
	Int8:                  "int8",
	UInt8:                 "uint8",
	Int16:                 "int16",
	UInt16:                "uint16",
	Int32:                 "int32",
	UInt32:                "uint32",
	Int64:                 "int64",
	UInt64:                "uint64",
	AtomicCounter:         "atomic_counter",
	FP16:                  "fp16",
	FP32:                  "fp32",
	FP64:                  "fp64",
	Struct:                "struct",
	Image:                 "image",
	SampledImage:          "sampled_image",
	Sampler:               "sampler",
	AccelerationStructure: "acceleration_structure",
}

func (b BaseType) String() string {
	if int(b) < len(baseTypeNames) {
		return baseTypeNames[b]
	}
	return "unknown"
}

// Type is a handle on a type as seen through a resource or struct member.
// Array wrappers are folded into the handle: BaseType, VectorSize and
// Columns describe the element, ArrayDimension the array shape.
type Type struct {
	m    *Module
	id   uint32   // element type, arrays stripped
	dims []uint32 // innermost first; 0 is runtime sized
}

func (m *Module) typeHandle(id uint32) *Type {
	var outerFirst []uint32
	for depth := 0; depth < maxArrayDepth; depth++ {
		def := m.types[id]
		if def == nil {
			break
		}
		if def.op == spv.OpTypeArray {
			outerFirst = append(outerFirst, m.constants[def.args[1]])
			id = def.args[0]
			continue
		}
		if def.op == opTypeRuntimeArray {
			outerFirst = append(outerFirst, 0)
			id = def.args[0]
			continue
		}
		break
	}

	dims := make([]uint32, len(outerFirst))
	for i, d := range outerFirst {
		dims[len(dims)-1-i] = d
	}
	return &Type{m: m, id: id, dims: dims}
}

const maxArrayDepth = 64

// ID returns the element type id. Handles on the same struct share it.
func (t *Type) ID() uint32 {
	return t.id
}

// BaseType returns the base category of the element type. Vectors and
// matrices report their component type.
func (t *Type) BaseType() BaseType {
	return t.m.baseType(t.id, 0)
}

func (m *Module) baseType(id uint32, depth int) BaseType {
	def := m.types[id]
	if def == nil || depth > maxArrayDepth {
		return Unknown
	}

	switch def.op {
	case spv.OpTypeVoid:
		return Void
	case spv.OpTypeBool:
		return Boolean
	case spv.OpTypeInt:
		signed := def.args[1] != 0
		switch def.args[0] {
		case 8:
			return pick(signed, Int8, UInt8)
		case 16:
			return pick(signed, Int16, UInt16)
		case 32:
			return pick(signed, Int32, UInt32)
		case 64:
			return pick(signed, Int64, UInt64)
		}
	case spv.OpTypeFloat:
		switch def.args[0] {
		case 16:
			return FP16
		case 32:
			return FP32
		case 64:
			return FP64
		}
	case spv.OpTypeVector, spv.OpTypeMatrix, spv.OpTypeArray, opTypeRuntimeArray:
		return m.baseType(def.args[0], depth+1)
	case spv.OpTypeStruct:
		return Struct
	case opTypeImage:
		return Image
	case opTypeSampledImage:
		return SampledImage
	case opTypeSampler:
		return Sampler
	case opTypeAccelerationStructure:
		return AccelerationStructure
	}
	return Unknown
}

func pick(signed bool, s, u BaseType) BaseType {
	if signed {
		return s
	}
	return u
}

// VectorSize returns the component count of a vector, the column height of
// a matrix, and 1 for everything else.
func (t *Type) VectorSize() uint32 {
	def := t.m.types[t.id]
	if def == nil {
		return 1
	}
	switch def.op {
	case spv.OpTypeVector:
		return def.args[1]
	case spv.OpTypeMatrix:
		if col := t.m.types[def.args[0]]; col != nil && col.op == spv.OpTypeVector {
			return col.args[1]
		}
	}
	return 1
}

// Columns returns the column count of a matrix and 1 for everything else.
func (t *Type) Columns() uint32 {
	if def := t.m.types[t.id]; def != nil && def.op == spv.OpTypeMatrix {
		return def.args[1]
	}
	return 1
}

// ArrayDimensions returns the number of array dimensions.
func (t *Type) ArrayDimensions() int {
	return len(t.dims)
}

// ArrayDimension returns the length of array dimension i, innermost first.
// A runtime-sized dimension has length 0.
func (t *Type) ArrayDimension(i int) uint32 {
	if i < 0 || i >= len(t.dims) {
		return 0
	}
	return t.dims[i]
}

// MemberCount returns the number of members of a struct, 0 otherwise.
func (t *Type) MemberCount() int {
	if def := t.m.types[t.id]; def != nil && def.op == spv.OpTypeStruct {
		return len(def.args)
	}
	return 0
}

// MemberName returns the debug name of member i.
func (t *Type) MemberName(i int) string {
	return t.m.memberNames[t.id][uint32(i)]
}

// MemberType returns the type handle of member i, nil if out of range.
func (t *Type) MemberType(i int) *Type {
	def := t.m.types[t.id]
	if def == nil || def.op != spv.OpTypeStruct || i < 0 || i >= len(def.args) {
		return nil
	}
	return t.m.typeHandle(def.args[i])
}

// MemberOffset returns the Offset decoration of member i.
func (t *Type) MemberOffset(i int) (uint32, bool) {
	v, ok := t.m.memberDecos[t.id][uint32(i)][spv.DecorationOffset]
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}
