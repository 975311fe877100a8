package reflect

// Kind is the semantic classification of a shader-visible type.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindVoid
	KindStruct
	KindSampler

	KindInt
	KindInt2
	KindInt3
	KindInt4

	KindUint
	KindUint2
	KindUint3
	KindUint4

	KindFloat
	KindFloat2
	KindFloat3
	KindFloat4

	KindDouble
	KindDouble2
	KindDouble3
	KindDouble4

	KindFloat2x2
	KindFloat3x3
	KindFloat4x4

	KindDouble2x2
	KindDouble3x3
	KindDouble4x4
)

var kindNames = [...]string{
	KindUnknown:   "unknown",
	KindVoid:      "void",
	KindStruct:    "struct",
	KindSampler:   "sampler",
	KindInt:       "int",
	KindInt2:      "ivec2",
	KindInt3:      "ivec3",
	KindInt4:      "ivec4",
	KindUint:      "uint",
	KindUint2:     "uvec2",
	KindUint3:     "uvec3",
	KindUint4:     "uvec4",
	KindFloat:     "float",
	KindFloat2:    "vec2",
	KindFloat3:    "vec3",
	KindFloat4:    "vec4",
	KindDouble:    "double",
	KindDouble2:   "dvec2",
	KindDouble3:   "dvec3",
	KindDouble4:   "dvec4",
	KindFloat2x2:  "mat2",
	KindFloat3x3:  "mat3",
	KindFloat4x4:  "mat4",
	KindDouble2x2: "dmat2",
	KindDouble3x3: "dmat3",
	KindDouble4x4: "dmat4",
}

// String returns the GLSL spelling of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Scalar is the component category of a numeric kind.
type Scalar uint8

const (
	ScalarNone Scalar = iota
	ScalarInt
	ScalarUint
	ScalarFloat
	ScalarDouble
)

// Scalar returns the component category, ScalarNone for non-numeric kinds.
func (k Kind) Scalar() Scalar {
	switch {
	case k >= KindInt && k <= KindInt4:
		return ScalarInt
	case k >= KindUint && k <= KindUint4:
		return ScalarUint
	case (k >= KindFloat && k <= KindFloat4) || (k >= KindFloat2x2 && k <= KindFloat4x4):
		return ScalarFloat
	case (k >= KindDouble && k <= KindDouble4) || (k >= KindDouble2x2 && k <= KindDouble4x4):
		return ScalarDouble
	}
	return ScalarNone
}

// Width returns the vector width (or matrix column height) of a numeric
// kind, 0 otherwise.
func (k Kind) Width() int {
	switch {
	case k >= KindInt && k <= KindDouble4:
		return int(k-KindInt)%4 + 1
	case k >= KindFloat2x2 && k <= KindDouble4x4:
		return int(k-KindFloat2x2)%3 + 2
	}
	return 0
}

// Columns returns the column count of a matrix kind, 1 for other numeric
// kinds and 0 otherwise.
func (k Kind) Columns() int {
	switch {
	case k >= KindInt && k <= KindDouble4:
		return 1
	case k >= KindFloat2x2 && k <= KindDouble4x4:
		return int(k-KindFloat2x2)%3 + 2
	}
	return 0
}

// IsMatrix reports whether the kind is a square matrix.
func (k Kind) IsMatrix() bool {
	return k >= KindFloat2x2 && k <= KindDouble4x4
}

// numericKind builds a scalar, vector or square matrix kind. It returns
// false for shapes with no kind.
func numericKind(s Scalar, width, columns int) (Kind, bool) {
	var first Kind
	switch s {
	case ScalarInt:
		first = KindInt
	case ScalarUint:
		first = KindUint
	case ScalarFloat:
		first = KindFloat
	case ScalarDouble:
		first = KindDouble
	default:
		return KindUnknown, false
	}

	switch {
	case columns == 1 && width >= 1 && width <= 4:
		return first + Kind(width-1), true
	case columns == width && width >= 2 && width <= 4:
		switch s {
		case ScalarFloat:
			return KindFloat2x2 + Kind(width-2), true
		case ScalarDouble:
			return KindDouble2x2 + Kind(width-2), true
		}
	}
	return KindUnknown, false
}
