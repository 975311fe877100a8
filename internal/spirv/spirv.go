// Package spirv decodes SPIR-V binaries far enough to introspect the
// resources a shader stage declares.
//
// Parse records names, decorations, integer constants, types and global
// variables. Resources groups the global variables the way a C host sees
// them: uniform buffers, sampled images and push constants. Every resource
// carries a Type handle that answers the questions the reflection layer
// asks: base type, vector width, column count, array shape and members.
package spirv

import (
	"encoding/binary"
	"unicode/utf8"

	spv "github.com/gogpu/naga/spirv"
	"github.com/pkg/errors"
)

// Opcodes and decorations not covered by the naga constant set.
const (
	opTypeImage                 spv.OpCode = 25
	opTypeSampler               spv.OpCode = 26
	opTypeSampledImage          spv.OpCode = 27
	opTypeRuntimeArray          spv.OpCode = 29
	opTypeAccelerationStructure spv.OpCode = 5341

	decorationBufferBlock spv.Decoration = 3
)

const (
	headerWords  = 5
	maxNameBytes = 1 << 16
)

type typeDef struct {
	op   spv.OpCode
	args []uint32 // operands after the result id
}

type variable struct {
	id      uint32
	ptrType uint32
	storage uint32
}

// EntryPoint is an OpEntryPoint declaration.
type EntryPoint struct {
	Name           string
	ExecutionModel uint32
	ID             uint32
}

// Module is a decoded SPIR-V binary.
type Module struct {
	Version uint32
	Bound   uint32

	names       map[uint32]string
	memberNames map[uint32]map[uint32]string
	decorations map[uint32]map[spv.Decoration][]uint32
	memberDecos map[uint32]map[uint32]map[spv.Decoration][]uint32
	constants   map[uint32]uint32
	types       map[uint32]*typeDef
	variables   []variable
	entryPoints []EntryPoint
}

// Parse decodes a SPIR-V binary. The magic number is accepted in either
// byte order.
func Parse(code []byte) (*Module, error) {
	if len(code)%4 != 0 {
		return nil, errors.Errorf("spirv: length %d is not a multiple of 4", len(code))
	}
	if len(code) < headerWords*4 {
		return nil, errors.Errorf("spirv: %d bytes is too short for a module header", len(code))
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(code) == spv.MagicNumber:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(code) == spv.MagicNumber:
		order = binary.BigEndian
	default:
		return nil, errors.Errorf("spirv: bad magic number %#08x", binary.LittleEndian.Uint32(code))
	}

	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = order.Uint32(code[i*4:])
	}

	m := &Module{
		Version:     words[1],
		Bound:       words[3],
		names:       make(map[uint32]string),
		memberNames: make(map[uint32]map[uint32]string),
		decorations: make(map[uint32]map[spv.Decoration][]uint32),
		memberDecos: make(map[uint32]map[uint32]map[spv.Decoration][]uint32),
		constants:   make(map[uint32]uint32),
		types:       make(map[uint32]*typeDef),
	}

	inFunction := false
	for pos := headerWords; pos < len(words); {
		count := int(words[pos] >> 16)
		op := spv.OpCode(words[pos] & 0xffff)
		if count == 0 {
			return nil, errors.Errorf("spirv: zero word count at word %d", pos)
		}
		if pos+count > len(words) {
			return nil, errors.Errorf("spirv: instruction %d at word %d runs past the end", op, pos)
		}

		if err := m.decode(op, words[pos+1:pos+count], &inFunction); err != nil {
			return nil, errors.Wrapf(err, "spirv: word %d", pos)
		}
		pos += count
	}

	return m, nil
}

func (m *Module) decode(op spv.OpCode, operands []uint32, inFunction *bool) error {
	need := func(n int) error {
		if len(operands) < n {
			return errors.Errorf("opcode %d needs %d operands, has %d", op, n, len(operands))
		}
		return nil
	}

	switch op {
	case spv.OpName:
		if err := need(2); err != nil {
			return err
		}
		m.names[operands[0]] = decodeString(operands[1:])

	case spv.OpMemberName:
		if err := need(3); err != nil {
			return err
		}
		members := m.memberNames[operands[0]]
		if members == nil {
			members = make(map[uint32]string)
			m.memberNames[operands[0]] = members
		}
		members[operands[1]] = decodeString(operands[2:])

	case spv.OpEntryPoint:
		if err := need(3); err != nil {
			return err
		}
		m.entryPoints = append(m.entryPoints, EntryPoint{
			ExecutionModel: operands[0],
			ID:             operands[1],
			Name:           decodeString(operands[2:]),
		})

	case spv.OpDecorate:
		if err := need(2); err != nil {
			return err
		}
		decos := m.decorations[operands[0]]
		if decos == nil {
			decos = make(map[spv.Decoration][]uint32)
			m.decorations[operands[0]] = decos
		}
		decos[spv.Decoration(operands[1])] = operands[2:]

	case spv.OpMemberDecorate:
		if err := need(3); err != nil {
			return err
		}
		members := m.memberDecos[operands[0]]
		if members == nil {
			members = make(map[uint32]map[spv.Decoration][]uint32)
			m.memberDecos[operands[0]] = members
		}
		decos := members[operands[1]]
		if decos == nil {
			decos = make(map[spv.Decoration][]uint32)
			members[operands[1]] = decos
		}
		decos[spv.Decoration(operands[2])] = operands[3:]

	case spv.OpConstant:
		if err := need(3); err != nil {
			return err
		}
		m.constants[operands[1]] = operands[2]

	case spv.OpTypeVoid, spv.OpTypeBool, spv.OpTypeInt, spv.OpTypeFloat,
		spv.OpTypeVector, spv.OpTypeMatrix, spv.OpTypeArray, spv.OpTypeStruct,
		spv.OpTypePointer, opTypeImage, opTypeSampler, opTypeSampledImage,
		opTypeRuntimeArray, opTypeAccelerationStructure:
		if err := need(minTypeOperands(op)); err != nil {
			return err
		}
		m.types[operands[0]] = &typeDef{op: op, args: operands[1:]}

	case spv.OpFunction:
		*inFunction = true

	case spv.OpFunctionEnd:
		*inFunction = false

	case spv.OpVariable:
		if err := need(3); err != nil {
			return err
		}
		if !*inFunction {
			m.variables = append(m.variables, variable{
				ptrType: operands[0],
				id:      operands[1],
				storage: operands[2],
			})
		}
	}

	return nil
}

// minTypeOperands is the operand count, result id included, a type
// instruction needs before its fields can be read.
func minTypeOperands(op spv.OpCode) int {
	switch op {
	case spv.OpTypeFloat, opTypeSampledImage, opTypeRuntimeArray:
		return 2
	case spv.OpTypeInt, spv.OpTypeVector, spv.OpTypeMatrix, spv.OpTypeArray, spv.OpTypePointer:
		return 3
	case opTypeImage:
		return 8
	default:
		return 1
	}
}

// decodeString reads a nul-terminated literal string packed into words.
func decodeString(words []uint32) string {
	buf := make([]byte, 0, len(words)*4)
loop:
	for _, w := range words {
		for i := 0; i < 4; i++ {
			b := byte(w >> (8 * i))
			if b == 0 || len(buf) >= maxNameBytes {
				break loop
			}
			buf = append(buf, b)
		}
	}
	if !utf8.Valid(buf) {
		return ""
	}
	return string(buf)
}

// EntryPoints returns the entry points in declaration order.
func (m *Module) EntryPoints() []EntryPoint {
	return m.entryPoints
}

func (m *Module) decoration(id uint32, d spv.Decoration) ([]uint32, bool) {
	v, ok := m.decorations[id][d]
	return v, ok
}

func (m *Module) decorationWord(id uint32, d spv.Decoration) uint32 {
	if v, ok := m.decoration(id, d); ok && len(v) > 0 {
		return v[0]
	}
	return 0
}
