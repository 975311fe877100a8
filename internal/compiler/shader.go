package compiler

import (
	"regexp"
	"strconv"
	"strings"

	spv "github.com/gogpu/naga/spirv"
	"github.com/pkg/errors"

	"github.com/HugoDaniel/glslmod/internal/diagnostic"
	"github.com/HugoDaniel/glslmod/internal/reflect"
	"github.com/HugoDaniel/glslmod/internal/sourcemap"
	"github.com/HugoDaniel/glslmod/internal/spirv"
)

// Input is the expanded text of one stage.
type Input struct {
	Source string
	Lines  *sourcemap.LineMap // origin of each line of Source, may be nil
}

// StageRecord is the compiled form of one stage. A stage that failed to
// compile has no bytecode and an empty reflection.
type StageRecord struct {
	Stage      Stage
	Bytecode   []byte
	Reflection reflect.Reflection
}

// Compiled reports whether the backend produced bytecode.
func (r *StageRecord) Compiled() bool {
	return len(r.Bytecode) > 0
}

// Shader is the compiled shader record.
type Shader struct {
	Name     string
	Vertex   StageRecord
	Fragment StageRecord
}

// Stages returns the stage records in emission order.
func (s *Shader) Stages() []*StageRecord {
	return []*StageRecord{&s.Vertex, &s.Fragment}
}

// CompileShader compiles and reflects both stages. A stage that fails is
// reported and left empty; the other stage is still attempted. A stage with
// empty source is skipped silently. Bytecode whose entry points are all for
// another stage counts as a failure.
//
// When the backend is also a Linker and both stages compiled, the stages are
// linked; a link failure is reported but the stage records are kept.
func CompileShader(b Backend, name string, vert, frag Input, diags *diagnostic.List) *Shader {
	s := &Shader{
		Name:     name,
		Vertex:   StageRecord{Stage: Vertex},
		Fragment: StageRecord{Stage: Fragment},
	}

	inputs := [...]Input{Vertex: vert, Fragment: frag}
	for _, rec := range s.Stages() {
		in := inputs[rec.Stage]
		if in.Source == "" {
			// A stage with no text was never selected; the caller reports it.
			continue
		}
		code, err := b.Compile(in.Source, rec.Stage, name)
		if err != nil {
			reportCompileError(rec.Stage, err, in, diags)
			continue
		}
		if len(code) == 0 {
			diags.Errorf(diagnostic.CodeCompile, "", 0, "%s: backend returned no bytecode", rec.Stage)
			continue
		}
		if err := checkEntryPoint(code, rec.Stage); err != nil {
			diags.Errorf(diagnostic.CodeCompile, "", 0, "%s: %v", rec.Stage, err)
			continue
		}
		rec.Bytecode = code
		rec.Reflection = reflect.ReflectStage(rec.Stage.String(), code, diags)
	}

	if l, ok := b.(Linker); ok && s.Vertex.Compiled() && s.Fragment.Compiled() {
		if err := l.Link(vert.Source, frag.Source, name); err != nil {
			reportLinkError(err, vert, frag, diags)
		}
	}

	return s
}

var executionModels = [...]spv.ExecutionModel{
	Vertex:   spv.ExecutionModelVertex,
	Fragment: spv.ExecutionModelFragment,
}

// checkEntryPoint rejects bytecode that declares entry points but none for
// stage. Undecodable bytecode passes; reflection reports it.
func checkEntryPoint(code []byte, stage Stage) error {
	m, err := spirv.Parse(code)
	if err != nil {
		return nil
	}
	eps := m.EntryPoints()
	if len(eps) == 0 {
		return nil
	}
	want := uint32(executionModels[stage])
	for _, ep := range eps {
		if ep.ExecutionModel == want {
			return nil
		}
	}
	return errors.Errorf("bytecode has no %s entry point (found execution model %d)", stage, eps[0].ExecutionModel)
}

func reportLinkError(err error, vert, frag Input, diags *diagnostic.List) {
	le, ok := errors.Cause(err).(*LinkError)
	if !ok {
		diags.Errorf(diagnostic.CodeCompile, "", 0, "link: %v", err)
		return
	}

	located := 0
	for _, raw := range strings.Split(le.Output, "\n") {
		in, stage := vert, Vertex
		if m := backendLine.FindStringSubmatch(strings.TrimRight(raw, "\r")); m != nil && strings.HasSuffix(m[2], "."+Fragment.Ext()) {
			in, stage = frag, Fragment
		}
		for _, d := range RemapOutput(raw, in) {
			d.Message = "link: " + stage.String() + ": " + d.Message
			diags.Add(d)
			if d.Severity == diagnostic.Error {
				located++
			}
		}
	}
	if located == 0 {
		diags.Errorf(diagnostic.CodeCompile, "", 0, "link: %s", le.Error())
	}
}

// glslang prints "ERROR: <file>:<line>: <message>".
var backendLine = regexp.MustCompile(`^(ERROR|WARNING): (.+?):(\d+): (.*)$`)

func reportCompileError(stage Stage, err error, in Input, diags *diagnostic.List) {
	ce, ok := errors.Cause(err).(*CompileError)
	if !ok {
		diags.Errorf(diagnostic.CodeCompile, "", 0, "%s: %v", stage, err)
		return
	}

	located := 0
	for _, d := range RemapOutput(ce.Output, in) {
		d.Message = stage.String() + ": " + d.Message
		diags.Add(d)
		if d.Severity == diagnostic.Error {
			located++
		}
	}
	if located == 0 {
		diags.Errorf(diagnostic.CodeCompile, "", 0, "%s", ce.Error())
	}
}

// RemapOutput turns the located lines of backend output into diagnostics,
// pointing each one at the file and line the expanded text came from.
// Lines that carry no location are skipped. When the message quotes a token
// found on that line of in.Source, the column of the token is filled in;
// expanded lines are verbatim copies, so it holds in the original file too.
func RemapOutput(output string, in Input) []diagnostic.Diagnostic {
	var idx *sourcemap.LineIndex
	if in.Source != "" {
		idx = sourcemap.NewLineIndex(in.Source)
	}

	var out []diagnostic.Diagnostic
	for _, raw := range strings.Split(output, "\n") {
		m := backendLine.FindStringSubmatch(strings.TrimRight(raw, "\r"))
		if m == nil {
			continue
		}
		line, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}

		d := diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Code:     diagnostic.CodeCompile,
			Message:  m[4],
			File:     m[2],
			Line:     line,
		}
		if m[1] == "WARNING" {
			d.Severity = diagnostic.Warning
		}
		if idx != nil {
			d.Column = tokenColumn(in.Source, idx, line, m[4])
		}
		if origin, ok := in.Lines.Lookup(line); ok {
			d.File = origin.File
			d.Line = origin.Line
		}
		out = append(out, d)
	}
	return out
}

// glslang quotes the offending token first: "'foo' : undeclared identifier".
var quotedToken = regexp.MustCompile(`^'([^']+)'`)

// tokenColumn returns the 1-based column of the token quoted in msg on the
// 1-based line of source, or 0 when it cannot be placed.
func tokenColumn(source string, idx *sourcemap.LineIndex, line int, msg string) int {
	m := quotedToken.FindStringSubmatch(msg)
	if m == nil || line < 1 || line > idx.LineCount() {
		return 0
	}
	start := idx.LineStart(line - 1)
	end := len(source)
	if line < idx.LineCount() {
		end = idx.LineStart(line)
	}
	i := strings.Index(source[start:end], m[1])
	if i < 0 {
		return 0
	}
	_, col := idx.ByteOffsetToLineColumn(start + i)
	return col + 1
}
