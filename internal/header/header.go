// Package header renders a compiled shader record as a C header: one typedef
// per struct-shaped resource and a byte-string literal per stage bytecode.
//
// The output is meant to be included by a host program, so anything the
// header cannot express in C is written as an #error line instead of a guess.
package header

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/HugoDaniel/glslmod/internal/compiler"
	"github.com/HugoDaniel/glslmod/internal/reflect"
)

// BytesPerLine is how many bytecode bytes go in each literal chunk.
const BytesPerLine = 20

// Options controls header output.
type Options struct {
	// VertexPrefix and FragmentPrefix are prepended to the resource name of
	// each typedef, so both stages can declare a block with the same name.
	VertexPrefix   string
	FragmentPrefix string
}

// DefaultOptions returns the Vert / Frag prefixes.
func DefaultOptions() Options {
	return Options{VertexPrefix: "Vert", FragmentPrefix: "Frag"}
}

func (o Options) prefix(s compiler.Stage) string {
	if s == compiler.Fragment {
		return o.FragmentPrefix
	}
	return o.VertexPrefix
}

// Printer writes C declarations.
type Printer struct {
	options    Options
	buf        strings.Builder
	indent     int
	stage      compiler.Stage
	mismatches []Mismatch
}

// Mismatch is a block member whose Offset decoration differs from the offset
// a C compiler gives the emitted field. Fields are emitted in their natural
// shape with no padding, so std140 rules such as a vec3 aligning to 16 bytes
// show up here.
type Mismatch struct {
	Stage  compiler.Stage
	Path   string // e.g. "VertParams.color"
	Offset uint32 // from the bytecode
	C      uint32 // natural C offset
}

// New creates a new printer.
func New(options Options) *Printer {
	return &Printer{options: options}
}

// Emit renders the header for a compiled shader.
func Emit(s *compiler.Shader, options Options) string {
	return New(options).Print(s)
}

// Mismatches returns the layout mismatches found by the last Print. Each one
// is also written as a comment above its field.
func (p *Printer) Mismatches() []Mismatch {
	return p.mismatches
}

// Print outputs the header as a string.
func (p *Printer) Print(s *compiler.Shader) string {
	p.buf.Reset()
	p.indent = 0
	p.mismatches = nil

	guard := Guard(s.Name)
	p.printf("// Code generated by glslmod from shader %q. DO NOT EDIT.\n\n", s.Name)
	p.printf("#ifndef %s\n", guard)
	p.printf("#define %s\n", guard)

	ident := Identifier(s.Name)
	for _, rec := range s.Stages() {
		p.printf("\n// %s stage\n", rec.Stage)
		p.printReflection(rec)
		p.print("\n")
		p.printBytecode(ident+"_"+rec.Stage.Ext()+"_spv", rec.Bytecode)
	}

	p.printf("\n#endif // %s\n", guard)
	return p.buf.String()
}

var categoryNames = [...]string{"uniform buffer", "sampled image", "push constant"}

func (p *Printer) printReflection(rec *compiler.StageRecord) {
	p.stage = rec.Stage
	prefix := p.options.prefix(rec.Stage)
	for i, nodes := range rec.Reflection.Categories() {
		for _, n := range nodes {
			p.print("\n")
			name := prefix + n.Name
			p.printf("// %s %s, set %d, binding %d\n", categoryNames[i], n.Name, n.Set, n.Binding)
			if n.Kind != reflect.KindStruct {
				p.printf("// %s: %s%s\n", name, n.Kind, arraySuffix(n.ArrayDims))
				continue
			}
			p.printf("typedef struct %s {\n", name)
			p.indent++
			p.printMembers(name, n)
			p.indent--
			p.printf("} %s;\n", name)
		}
	}
}

func (p *Printer) printMembers(path string, n *reflect.Node) {
	if len(n.Members) == 0 {
		p.printf("#error \"%s: struct has no members\"\n", path)
		return
	}
	var off uint32
	inC := true
	for _, m := range n.Members {
		size, align, ok := cLayout(m)
		inC = inC && ok
		if inC {
			off = alignUp(off, align)
			if m.Offset != nil && *m.Offset != off {
				p.printIndent()
				p.printf("// %s: offset %d in the shader, %d in C\n", m.Name, *m.Offset, off)
				p.mismatches = append(p.mismatches, Mismatch{
					Stage:  p.stage,
					Path:   path + "." + m.Name,
					Offset: *m.Offset,
					C:      off,
				})
			}
			off += size
		}
		p.printMember(path+"."+m.Name, m)
	}
}

// cLayout returns the size and alignment of the declaration emitted for n.
// ok is false when n, or a field inside it, has no C type.
func cLayout(n *reflect.Node) (size, align uint32, ok bool) {
	switch n.Kind {
	case reflect.KindUnknown, reflect.KindVoid, reflect.KindSampler:
		return 0, 0, false

	case reflect.KindStruct:
		align = 1
		for _, m := range n.Members {
			sz, al, known := cLayout(m)
			if !known {
				return 0, 0, false
			}
			size = alignUp(size, al) + sz
			align = max(align, al)
		}
		size = alignUp(size, align)

	default:
		align = 4
		if n.Kind.Scalar() == reflect.ScalarDouble {
			align = 8
		}
		size = align * uint32(n.Kind.Width()*n.Kind.Columns())
	}

	for _, d := range n.ArrayDims {
		size *= d
	}
	return size, align, true
}

func alignUp(n, align uint32) uint32 {
	return (n + align - 1) / align * align
}

func (p *Printer) printMember(path string, m *reflect.Node) {
	switch m.Kind {
	case reflect.KindStruct:
		p.printIndent()
		p.print("struct {\n")
		p.indent++
		p.printMembers(path, m)
		p.indent--
		p.printIndent()
		p.printf("} %s%s;\n", m.Name, arraySuffix(m.ArrayDims))

	case reflect.KindUnknown, reflect.KindVoid, reflect.KindSampler:
		// Directives are not indented so older preprocessors accept them.
		p.printf("#error \"%s: %s has no C type\"\n", path, m.Kind)

	default:
		p.printIndent()
		p.printf("%s %s%s%s;\n", cType(m.Kind), m.Name, kindSuffix(m.Kind), arraySuffix(m.ArrayDims))
	}
}

// printBytecode writes the literal in BytesPerLine chunks. Each chunk after
// the first starts under the opening quote of the first one.
func (p *Printer) printBytecode(name string, code []byte) {
	head := fmt.Sprintf("static const unsigned char %s[] = ", name)
	p.print(head)

	if len(code) == 0 {
		p.print("\"\";\n")
	} else {
		pad := strings.Repeat(" ", len(head))
		for i := 0; i < len(code); i += BytesPerLine {
			if i > 0 {
				p.print(" \\\n")
				p.print(pad)
			}
			end := min(i+BytesPerLine, len(code))
			p.buf.WriteByte('"')
			for _, b := range code[i:end] {
				p.printf("\\x%02x", b)
			}
			p.buf.WriteByte('"')
		}
		p.print(";\n")
	}

	p.printf("static const unsigned int %s_size = %d;\n", name, len(code))
}

func (p *Printer) print(s string) {
	p.buf.WriteString(s)
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(&p.buf, format, args...)
}

func (p *Printer) printIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
}

func cType(k reflect.Kind) string {
	switch k.Scalar() {
	case reflect.ScalarInt:
		return "int"
	case reflect.ScalarUint:
		return "unsigned"
	case reflect.ScalarFloat:
		return "float"
	case reflect.ScalarDouble:
		return "double"
	}
	return ""
}

// kindSuffix is the array shape implied by the kind alone: [N] for a vector,
// [N][N] for a matrix, nothing for a scalar.
func kindSuffix(k reflect.Kind) string {
	switch {
	case k.IsMatrix():
		return "[" + strconv.Itoa(k.Columns()) + "][" + strconv.Itoa(k.Width()) + "]"
	case k.Width() > 1:
		return "[" + strconv.Itoa(k.Width()) + "]"
	}
	return ""
}

// arraySuffix renders the stored dimensions outermost first, undoing the
// innermost-first order reflection reports. A zero length is runtime-sized.
func arraySuffix(dims []uint32) string {
	var sb strings.Builder
	for i := len(dims) - 1; i >= 0; i-- {
		sb.WriteByte('[')
		if dims[i] != 0 {
			sb.WriteString(strconv.FormatUint(uint64(dims[i]), 10))
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// Identifier turns a shader name into a C identifier: every byte that is not
// a letter, digit or underscore becomes '_', and a leading digit gets an
// underscore in front.
func Identifier(name string) string {
	if name == "" {
		return "shader"
	}
	b := []byte(name)
	for i, c := range b {
		if !isAlnum(c) && c != '_' {
			b[i] = '_'
		}
	}
	if b[0] >= '0' && b[0] <= '9' {
		return "_" + string(b)
	}
	return string(b)
}

// Guard derives the include guard: "basic-shader" becomes BASIC_SHADER_H.
func Guard(name string) string {
	return strings.ToUpper(Identifier(name)) + "_H"
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
