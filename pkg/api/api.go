// Package api provides the public API for the GLSL module compiler.
//
// This package is intended for programmatic use of glslmod.
// For CLI usage, see cmd/glslmod.
package api

import (
	"os"

	"github.com/pkg/errors"

	"github.com/HugoDaniel/glslmod/internal/compiler"
	"github.com/HugoDaniel/glslmod/internal/diagnostic"
	"github.com/HugoDaniel/glslmod/internal/header"
	"github.com/HugoDaniel/glslmod/internal/preprocess"
	"github.com/HugoDaniel/glslmod/internal/reflect"
	"github.com/HugoDaniel/glslmod/internal/shader"
)

// Stage selects a shader stage.
type Stage = compiler.Stage

const (
	Vertex   = compiler.Vertex
	Fragment = compiler.Fragment
)

// Backend compiles one stage of GLSL to SPIR-V. Implementations should
// return a *CompileError carrying the compiler output when the source is
// rejected, so located errors can be mapped back to the module sources.
type Backend = compiler.Backend

// CompileError is the error a Backend returns for rejected source.
type CompileError = compiler.CompileError

// GLSLang returns a backend running the given glslangValidator executable,
// or the one in PATH when bin is empty.
func GLSLang(bin string) Backend {
	g := compiler.NewGLSLang()
	if bin != "" {
		g.Bin = bin
	}
	return g
}

// BuildOptions controls a build.
type BuildOptions struct {
	// Name is the shader name used for the include guard and the bytecode
	// symbols. Defaults to the base name of File without its extension.
	Name string

	// File is the path of the source, used for diagnostics and to resolve
	// #include next to it. Empty means the source has no file.
	File string

	// SearchPaths overrides the #include search paths (directory of File,
	// then ".").
	SearchPaths []string

	// Backend compiles the stages. Defaults to glslangValidator from PATH.
	Backend Backend

	// VertexPrefix and FragmentPrefix name the emitted typedefs.
	// Default to "Vert" and "Frag".
	VertexPrefix   string
	FragmentPrefix string

	// SourceMap enables source map generation for the expanded stages.
	SourceMap bool
}

// BuildResult contains the build output.
type BuildResult struct {
	// Header is the generated C header. It is produced even when Errors is
	// non-empty, with empty literals for stages that failed.
	Header string `json:"header"`

	Vertex   StageResult `json:"vertex"`
	Fragment StageResult `json:"fragment"`

	// Diagnostics contains every diagnostic of the run, warnings included.
	Diagnostics []Diagnostic `json:"diagnostics"`

	// Errors contains the error diagnostics, formatted.
	Errors []string `json:"errors,omitempty"`
}

// StageResult is the output for one stage.
type StageResult struct {
	// GLSL is the expanded source handed to the compiler.
	GLSL string `json:"glsl"`

	// Bytecode is the compiled SPIR-V, empty if the stage failed.
	// It is base64 in JSON.
	Bytecode []byte `json:"bytecode"`

	// Reflection describes the resources the stage declares.
	Reflection ReflectResult `json:"reflection"`

	// SourceMap is the source map of GLSL as a JSON string.
	// Empty if source map generation was not requested.
	SourceMap string `json:"sourceMap,omitempty"`

	// SourceMapDataURI is the source map as a data URI for inline embedding.
	// Empty if source map generation was not requested.
	SourceMapDataURI string `json:"sourceMapDataURI,omitempty"`
}

// Diagnostic is one message of a run.
type Diagnostic struct {
	// Severity is "error", "warning" or "note".
	Severity string `json:"severity"`

	// Code identifies the kind of problem, e.g. "D0007".
	Code string `json:"code"`

	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// Build compiles module source into a C header.
func Build(source string, opts BuildOptions) BuildResult {
	headerOpts := header.DefaultOptions()
	if opts.VertexPrefix != "" {
		headerOpts.VertexPrefix = opts.VertexPrefix
	}
	if opts.FragmentPrefix != "" {
		headerOpts.FragmentPrefix = opts.FragmentPrefix
	}

	result := shader.Build(source, shader.Options{
		File:              opts.File,
		Name:              opts.Name,
		SearchPaths:       opts.SearchPaths,
		Backend:           opts.Backend,
		Header:            headerOpts,
		GenerateSourceMap: opts.SourceMap,
	})

	return BuildResult{
		Header:      result.Header,
		Vertex:      convertStage(result.Vertex, &result.Shader.Vertex),
		Fragment:    convertStage(result.Fragment, &result.Shader.Fragment),
		Diagnostics: convertDiagnostics(&result.Diagnostics),
		Errors:      errorMessages(&result.Diagnostics),
	}
}

// BuildFile reads path and builds it. The error is only for reading the
// file; build problems are in the result.
func BuildFile(path string, opts BuildOptions) (BuildResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BuildResult{}, errors.Wrapf(err, "reading %s", path)
	}
	opts.File = path
	return Build(string(data), opts), nil
}

// convertStage merges the expanded text and the compiled record of a stage.
func convertStage(st shader.Stage, rec *compiler.StageRecord) StageResult {
	out := StageResult{
		GLSL:       st.GLSL,
		Bytecode:   rec.Bytecode,
		Reflection: convertReflection(&rec.Reflection),
	}
	if st.SourceMap != nil {
		out.SourceMap = st.SourceMap.ToJSON()
		out.SourceMapDataURI = st.SourceMap.ToDataURI()
	}
	return out
}

// ----------------------------------------------------------------------------
// Preprocessor API
// ----------------------------------------------------------------------------

// PreprocessResult contains the expanded stages and the module registry of
// a source, without compiling anything.
type PreprocessResult struct {
	// Vertex and Fragment are the expanded texts of the selected stages.
	Vertex   string `json:"vertex"`
	Fragment string `json:"fragment"`

	// Modules lists every registered block in registration order.
	Modules []ModuleInfo `json:"modules"`

	// Programs and CTypedefs are recorded but have no effect on output.
	Programs  []ProgramInfo  `json:"programs,omitempty"`
	CTypedefs []CTypedefInfo `json:"ctypedefs,omitempty"`

	// Includes lists the files read through #include.
	Includes []string `json:"includes,omitempty"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Errors      []string     `json:"errors,omitempty"`
}

// ModuleInfo describes a registered block.
type ModuleInfo struct {
	Name string `json:"name"`

	// Kind is "module", "vertex" or "fragment".
	Kind string `json:"kind"`

	// File and Line locate the opening directive.
	File string `json:"file"`
	Line int    `json:"line"`

	// Text is the fully expanded block text.
	Text string `json:"text"`
}

// ProgramInfo describes a #program directive.
type ProgramInfo struct {
	Name     string `json:"name"`
	Vertex   string `json:"vertex"`
	Fragment string `json:"fragment"`
}

// CTypedefInfo describes a #ctypedef directive.
type CTypedefInfo struct {
	Name string `json:"name"`
	Decl string `json:"decl"`
}

// Preprocess expands source read from file. When searchPaths is nil the
// directory of file and "." are searched.
func Preprocess(source, file string, searchPaths []string) PreprocessResult {
	if searchPaths == nil {
		searchPaths = shader.SearchPaths(file)
	}
	r := preprocess.Preprocess(source, file, searchPaths)

	out := PreprocessResult{
		Includes:    r.Includes,
		Diagnostics: convertDiagnostics(&r.Diagnostics),
		Errors:      errorMessages(&r.Diagnostics),
	}
	if r.Vertex != nil {
		out.Vertex = r.Vertex.Text
	}
	if r.Fragment != nil {
		out.Fragment = r.Fragment.Text
	}
	for _, e := range r.Registry.Entries() {
		out.Modules = append(out.Modules, ModuleInfo{
			Name: e.Name,
			Kind: e.Kind.String(),
			File: e.File,
			Line: e.Line,
			Text: e.Text,
		})
	}
	for _, p := range r.Programs {
		out.Programs = append(out.Programs, ProgramInfo{Name: p.Name, Vertex: p.Vertex, Fragment: p.Fragment})
	}
	for _, c := range r.CTypedefs {
		out.CTypedefs = append(out.CTypedefs, CTypedefInfo{Name: c.Name, Decl: c.Decl})
	}
	return out
}

// ----------------------------------------------------------------------------
// Reflection API
// ----------------------------------------------------------------------------

// ReflectResult contains the resources a compiled stage declares.
type ReflectResult struct {
	UniformBuffers []TypeNode `json:"uniformBuffers"`
	SampledImages  []TypeNode `json:"sampledImages"`
	PushConstants  []TypeNode `json:"pushConstants"`

	// Diagnostics contains unclassified types and decoding failures.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// TypeNode describes a resource or one of its members.
type TypeNode struct {
	Name string `json:"name"`

	// Kind is the GLSL spelling: "float", "vec3", "mat4", "struct",
	// "sampler", "void" or "unknown".
	Kind string `json:"kind"`

	// ArrayDims holds array lengths in declaration order, outermost first.
	// 0 is a runtime-sized dimension.
	ArrayDims []uint32 `json:"arrayDims,omitempty"`

	// Offset is the byte offset inside the parent struct, when known.
	Offset *uint32 `json:"offset,omitempty"`

	// Set and Binding are only meaningful on top-level resources.
	Set     uint32 `json:"set"`
	Binding uint32 `json:"binding"`

	Members []TypeNode `json:"members,omitempty"`
}

// Reflect decodes SPIR-V bytecode and describes its uniform buffers,
// sampled images and push constants. stage only labels diagnostics.
func Reflect(bytecode []byte, stage string) ReflectResult {
	var diags diagnostic.List
	r := reflect.ReflectStage(stage, bytecode, &diags)
	out := convertReflection(&r)
	out.Diagnostics = convertDiagnostics(&diags)
	return out
}

// convertReflection converts internal reflection to API types.
func convertReflection(r *reflect.Reflection) ReflectResult {
	return ReflectResult{
		UniformBuffers: convertNodes(r.UniformBuffers),
		SampledImages:  convertNodes(r.SampledImages),
		PushConstants:  convertNodes(r.PushConstants),
	}
}

// convertNodes converts type nodes, restoring declaration order of the
// array dimensions.
func convertNodes(nodes []*reflect.Node) []TypeNode {
	result := make([]TypeNode, len(nodes))
	for i, n := range nodes {
		var dims []uint32
		for j := len(n.ArrayDims) - 1; j >= 0; j-- {
			dims = append(dims, n.ArrayDims[j])
		}
		result[i] = TypeNode{
			Name:      n.Name,
			Kind:      n.Kind.String(),
			ArrayDims: dims,
			Offset:    n.Offset,
			Set:       n.Set,
			Binding:   n.Binding,
		}
		if len(n.Members) > 0 {
			result[i].Members = convertNodes(n.Members)
		}
	}
	return result
}

// convertDiagnostics converts a diagnostic list to API types.
func convertDiagnostics(list *diagnostic.List) []Diagnostic {
	ds := list.Diagnostics()
	result := make([]Diagnostic, len(ds))
	for i, d := range ds {
		result[i] = Diagnostic{
			Severity: d.Severity.String(),
			Code:     string(d.Code),
			Message:  d.Message,
			File:     d.File,
			Line:     d.Line,
			Column:   d.Column,
		}
	}
	return result
}

func errorMessages(list *diagnostic.List) []string {
	var msgs []string
	for _, d := range list.Errors() {
		msgs = append(msgs, d.Error())
	}
	return msgs
}
