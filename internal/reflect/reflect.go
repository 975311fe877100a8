// Package reflect translates the resources of a compiled shader stage into
// Semantic Type Nodes: a small tree per resource that says what C type each
// field needs, independent of how the bytecode spells it.
package reflect

import (
	"strconv"
	"strings"

	"github.com/HugoDaniel/glslmod/internal/diagnostic"
	"github.com/HugoDaniel/glslmod/internal/spirv"
)

// MaxDepth bounds struct nesting during translation.
const MaxDepth = 64

// MaxNodes bounds the nodes built for one resource. Distinct struct types
// that each hold several members of the next one grow the tree
// exponentially long before MaxDepth is reached.
const MaxNodes = 1 << 16

// Node is the semantic description of a resource or struct member.
type Node struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`

	// ArrayDims holds the array lengths innermost first, the order the
	// bytecode reports them. 0 is a runtime-sized dimension.
	ArrayDims []uint32 `json:"arrayDims,omitempty"`

	// Offset is the byte offset inside the parent struct, when known.
	Offset *uint32 `json:"offset,omitempty"`

	// Set and Binding locate a top-level resource.
	Set     uint32 `json:"set"`
	Binding uint32 `json:"binding"`

	Members []*Node `json:"members,omitempty"`
}

// MarshalText lets Kind appear by name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Reflection is the translated resources of one stage, by category, in
// bytecode declaration order.
type Reflection struct {
	UniformBuffers []*Node `json:"uniformBuffers"`
	SampledImages  []*Node `json:"sampledImages"`
	PushConstants  []*Node `json:"pushConstants"`
}

// Categories returns the three resource lists in emission order.
func (r *Reflection) Categories() [][]*Node {
	return [][]*Node{r.UniformBuffers, r.SampledImages, r.PushConstants}
}

// Empty reports whether the stage declares no resources.
func (r *Reflection) Empty() bool {
	return len(r.UniformBuffers) == 0 && len(r.SampledImages) == 0 && len(r.PushConstants) == 0
}

// Translator turns type handles into nodes, reporting what it cannot
// classify.
type Translator struct {
	// Stage prefixes diagnostic messages, e.g. "vertex".
	Stage       string
	Diagnostics *diagnostic.List

	open     map[uint32]bool // struct type ids on the current path
	nodes    int
	overflow bool
}

// Translate builds the node tree for a type handle. It never fails: a type
// with no semantic kind becomes a KindUnknown leaf and a diagnostic.
func (tr *Translator) Translate(name string, t *spirv.Type) *Node {
	tr.open = make(map[uint32]bool)
	tr.nodes = 0
	tr.overflow = false
	return tr.translate([]string{name}, t, 0)
}

func (tr *Translator) translate(path []string, t *spirv.Type, depth int) *Node {
	n := &Node{Name: path[len(path)-1]}
	if t == nil {
		tr.warn(diagnostic.CodeUnclassifiedType, path, "missing type")
		return n
	}

	tr.nodes++
	if tr.nodes > MaxNodes {
		if !tr.overflow {
			tr.overflow = true
			tr.warn(diagnostic.CodeDepthLimit, path, "resource has more than %d fields", MaxNodes)
		}
		return n
	}

	for i := 0; i < t.ArrayDimensions(); i++ {
		n.ArrayDims = append(n.ArrayDims, t.ArrayDimension(i))
	}

	base := t.BaseType()
	switch base {
	case spirv.Void:
		n.Kind = KindVoid

	case spirv.SampledImage:
		n.Kind = KindSampler

	case spirv.Struct:
		if depth >= MaxDepth {
			tr.warn(diagnostic.CodeDepthLimit, path, "struct nesting deeper than %d levels", MaxDepth)
			return n
		}
		if tr.open[t.ID()] {
			tr.warn(diagnostic.CodeDepthLimit, path, "struct contains itself")
			return n
		}
		tr.open[t.ID()] = true
		defer delete(tr.open, t.ID())

		n.Kind = KindStruct
		for i := 0; i < t.MemberCount(); i++ {
			child := tr.translate(append(path, memberName(t, i)), t.MemberType(i), depth+1)
			if off, ok := t.MemberOffset(i); ok {
				child.Offset = &off
			}
			n.Members = append(n.Members, child)
		}

	default:
		kind, ok := numericKind(scalarOf(base), int(t.VectorSize()), int(t.Columns()))
		if !ok {
			tr.warn(diagnostic.CodeUnclassifiedType, path,
				"unsupported type %s (width %d, columns %d)", base, t.VectorSize(), t.Columns())
			return n
		}
		n.Kind = kind
	}

	return n
}

func memberName(t *spirv.Type, i int) string {
	if name := t.MemberName(i); name != "" {
		return name
	}
	return "_m" + strconv.Itoa(i)
}

func scalarOf(b spirv.BaseType) Scalar {
	switch b {
	case spirv.Int32:
		return ScalarInt
	case spirv.UInt32:
		return ScalarUint
	case spirv.FP32:
		return ScalarFloat
	case spirv.FP64:
		return ScalarDouble
	}
	return ScalarNone
}

func (tr *Translator) warn(code diagnostic.Code, path []string, format string, args ...any) {
	if tr.Diagnostics == nil {
		return
	}
	prefix := strings.Join(path, ".") + ": "
	if tr.Stage != "" {
		prefix = tr.Stage + ": " + prefix
	}
	tr.Diagnostics.Warnf(code, "", 0, prefix+format, args...)
}

// ReflectStage decodes a stage's bytecode and translates every uniform
// buffer, sampled image and push constant it declares. Undecodable
// bytecode yields an empty reflection and an error diagnostic.
func ReflectStage(stage string, bytecode []byte, diags *diagnostic.List) Reflection {
	var r Reflection

	m, err := spirv.Parse(bytecode)
	if err != nil {
		if diags != nil {
			diags.Errorf(diagnostic.CodeDecode, "", 0, "%s: %v", stage, err)
		}
		return r
	}

	tr := &Translator{Stage: stage, Diagnostics: diags}
	res := m.Resources()

	r.UniformBuffers = tr.translateAll(res.UniformBuffers)
	r.SampledImages = tr.translateAll(res.SampledImages)
	r.PushConstants = tr.translateAll(res.PushConstants)
	return r
}

func (tr *Translator) translateAll(resources []spirv.Resource) []*Node {
	nodes := make([]*Node, 0, len(resources))
	for _, res := range resources {
		n := tr.Translate(res.Name, res.Type)
		n.Set = res.Set
		n.Binding = res.Binding
		nodes = append(nodes, n)
	}
	return nodes
}
