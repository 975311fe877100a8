// Package shader provides the main build pipeline.
//
// It coordinates preprocessing, compilation, reflection and header emission
// to turn one module source file into a C header.
package shader

import (
	"path/filepath"
	"strings"

	"github.com/HugoDaniel/glslmod/internal/compiler"
	"github.com/HugoDaniel/glslmod/internal/diagnostic"
	"github.com/HugoDaniel/glslmod/internal/header"
	"github.com/HugoDaniel/glslmod/internal/preprocess"
	"github.com/HugoDaniel/glslmod/internal/sourcemap"
)

// Options controls a build.
type Options struct {
	// File is the path the source was read from, "" or "-" for stdin.
	File string

	// Name is the shader name used for the include guard and the bytecode
	// symbols. Defaults to the base name of File without its extension.
	Name string

	// SearchPaths overrides the #include search paths. By default they are
	// the directory of File followed by ".".
	SearchPaths []string

	// Backend compiles the stages. Defaults to glslangValidator from PATH.
	Backend compiler.Backend

	// Header configures the emitted declarations.
	Header header.Options

	// GenerateSourceMap builds a source map per expanded stage text.
	GenerateSourceMap bool
}

// DefaultOptions returns options for a glslangValidator build with the
// default typedef prefixes.
func DefaultOptions() Options {
	return Options{
		Backend: compiler.NewGLSLang(),
		Header:  header.DefaultOptions(),
	}
}

// Stage is the expanded text of one stage.
type Stage struct {
	// File is the name the expanded text is written under, e.g. vertex.glsl.
	File string

	// GLSL is the expanded text handed to the compiler.
	GLSL string

	// Lines maps each line of GLSL back to its source.
	Lines *sourcemap.LineMap

	// SourceMap is the generated source map (nil if not requested).
	SourceMap *sourcemap.SourceMap
}

// Result contains the build output.
type Result struct {
	// Header is the generated C header. It is produced even when the build
	// has errors.
	Header string

	Vertex   Stage
	Fragment Stage

	// Shader is the compiled record the header was emitted from.
	Shader *compiler.Shader

	// Preprocess is the preprocessor's own result: registry, programs and
	// ctypedefs, included files.
	Preprocess *preprocess.Result

	// Diagnostics holds every diagnostic of the run, in order.
	Diagnostics diagnostic.List

	// Statistics about the build
	Stats Stats
}

// Stats provides build statistics.
type Stats struct {
	SourceSize    int
	Modules       int
	Includes      int
	VertexBytes   int
	FragmentBytes int
	HeaderSize    int
}

// Builder runs the pipeline.
type Builder struct {
	options Options
}

// New creates a new builder with the given options.
func New(options Options) *Builder {
	if options.Backend == nil {
		options.Backend = compiler.NewGLSLang()
	}
	if options.Header == (header.Options{}) {
		options.Header = header.DefaultOptions()
	}
	return &Builder{options: options}
}

// Build preprocesses, compiles, reflects and emits the given source.
func (b *Builder) Build(source string) Result {
	opts := b.options
	result := Result{
		Stats: Stats{SourceSize: len(source)},
	}

	file := opts.File
	if file == "-" {
		file = ""
	}
	name := opts.Name
	if name == "" {
		name = ShaderName(file)
	}
	searchPaths := opts.SearchPaths
	if searchPaths == nil {
		searchPaths = SearchPaths(file)
	}

	// 1. Expand modules and select the stages
	pre := preprocess.Preprocess(source, displayName(file), searchPaths)
	result.Preprocess = pre
	result.Diagnostics.Extend(&pre.Diagnostics)
	result.Stats.Modules = pre.Registry.Len()
	result.Stats.Includes = len(pre.Includes)

	result.Vertex = stageText(compiler.Vertex, pre.Vertex)
	result.Fragment = stageText(compiler.Fragment, pre.Fragment)
	for _, e := range []*preprocess.Entry{pre.Vertex, pre.Fragment} {
		if e != nil && strings.TrimSpace(e.Text) == "" {
			result.Diagnostics.Errorf(diagnostic.CodeStage, e.File, e.Line, "%s: %s stage is empty", e.Name, e.Kind)
		}
	}
	if opts.GenerateSourceMap {
		for _, st := range []*Stage{&result.Vertex, &result.Fragment} {
			st.SourceMap = st.Lines.Generate(st.File)
		}
	}

	// 2. Compile and reflect
	result.Shader = compiler.CompileShader(opts.Backend, name,
		compiler.Input{Source: result.Vertex.GLSL, Lines: result.Vertex.Lines},
		compiler.Input{Source: result.Fragment.GLSL, Lines: result.Fragment.Lines},
		&result.Diagnostics)
	result.Stats.VertexBytes = len(result.Shader.Vertex.Bytecode)
	result.Stats.FragmentBytes = len(result.Shader.Fragment.Bytecode)

	// 3. Emit
	printer := header.New(opts.Header)
	result.Header = printer.Print(result.Shader)
	result.Stats.HeaderSize = len(result.Header)
	for _, m := range printer.Mismatches() {
		result.Diagnostics.Warnf(diagnostic.CodeLayout, "", 0,
			"%s: %s is at offset %d in the shader but %d in the C struct", m.Stage, m.Path, m.Offset, m.C)
	}

	return result
}

// Build runs a build with the given options.
func Build(source string, opts Options) Result {
	return New(opts).Build(source)
}

func stageText(s compiler.Stage, e *preprocess.Entry) Stage {
	st := Stage{File: s.String() + ".glsl", Lines: &sourcemap.LineMap{}}
	if e != nil {
		st.GLSL = e.Text
		if e.Lines != nil {
			st.Lines = e.Lines
		}
	}
	return st
}

// SearchPaths returns the default #include search paths for an input file:
// its directory, then the working directory. Stdin only searches ".".
func SearchPaths(file string) []string {
	if file == "" || file == "-" {
		return []string{"."}
	}
	return []string{preprocess.Dirname(file), "."}
}

// ShaderName derives the shader name from the input path:
// "shaders/basic.glsl" is "basic". Stdin is "shader".
func ShaderName(file string) string {
	if file == "" || file == "-" {
		return "shader"
	}
	base := filepath.Base(file)
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" {
		return name
	}
	return base
}

func displayName(file string) string {
	if file == "" {
		return "<stdin>"
	}
	return file
}
