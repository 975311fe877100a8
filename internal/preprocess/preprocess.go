// Package preprocess expands a module source file into the vertex and
// fragment texts handed to the compiler.
//
// A source file declares named blocks:
//
//	#module common
//	float saturate(float x) { return clamp(x, 0.0, 1.0); }
//	#end
//
//	#vert main_vs
//	#version 450
//	#include_module common
//	void main() { ... }
//	#end
//
// Blocks are registered by name in a Registry shared by the whole run,
// including the files pulled in with #include. Lines outside any block are
// dropped. Native GLSL directives are kept as text for the compiler.
//
// Problems never stop the scan: each one is recorded as a diagnostic and the
// offending directive is skipped.
package preprocess

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoDaniel/glslmod/internal/diagnostic"
	"github.com/HugoDaniel/glslmod/internal/directive"
	"github.com/HugoDaniel/glslmod/internal/sourcemap"
)

// Program is a #program declaration. It is recorded but has no effect on
// the output.
type Program struct {
	Name     string
	Vertex   string
	Fragment string
	File     string
	Line     int
}

// CTypedef is a #ctypedef declaration. It is recorded but has no effect on
// the output.
type CTypedef struct {
	Name string
	Decl string
	File string
	Line int
}

// Result is the outcome of preprocessing one source file.
type Result struct {
	Registry *Registry

	// Vertex and Fragment are the first #vert and #frag blocks closed during
	// the run, nil if there was none.
	Vertex   *Entry
	Fragment *Entry

	Programs  []Program
	CTypedefs []CTypedef

	// Includes lists every file read through #include, in order.
	Includes []string

	Diagnostics diagnostic.List
}

// Preprocess expands source, read from file, resolving #include against
// searchPaths in order.
func Preprocess(source, file string, searchPaths []string) *Result {
	p := &processor{
		result: &Result{Registry: NewRegistry()},
	}
	p.enter(file)
	p.run(source, file, searchPaths)
	p.leave()
	p.selectStages(file)
	return p.result
}

type processor struct {
	result *Result
	active []string // files being processed, outermost first
}

// block is the module being accumulated. It exists per file.
type block struct {
	open      bool
	kind      Kind
	name      string
	line      int
	fragments []string
	lines     sourcemap.LineMap
}

func (p *processor) run(source, file string, searchPaths []string) {
	var cur block
	diags := &p.result.Diagnostics

	c := directive.NewCursor(source)
	for {
		line, ok := c.Next()
		if !ok {
			break
		}

		statement, isStatement := directive.Statement(line.Text)
		if !isStatement {
			cur.appendLine(line, file)
			continue
		}

		tok := directive.Tokenize(statement)
		switch tok.Kind {
		case directive.KindNative:
			cur.appendLine(line, file)

		case directive.KindError:
			code := diagnostic.CodeUnknownDirective
			if _, known := directive.Keywords[tok.Keyword]; known {
				code = diagnostic.CodeArgumentCount
			}
			diags.Errorf(code, file, line.Number, "%s", tok.Err)

		case directive.KindModule, directive.KindVert, directive.KindFrag:
			name := tok.Args[0]
			if cur.open {
				diags.Errorf(diagnostic.CodeNestedModule, file, line.Number,
					"%s: new %s started before ending %q", name, blockKind(tok.Kind), cur.name)
				continue
			}
			cur = block{open: true, kind: blockKind(tok.Kind), name: name, line: line.Number}

		case directive.KindEnd:
			if !cur.open {
				diags.Errorf(diagnostic.CodeUnmatchedEnd, file, line.Number, "#end without an open module")
				continue
			}
			p.close(&cur, file)
			cur = block{}

		case directive.KindProgram:
			p.result.Programs = append(p.result.Programs, Program{
				Name:     tok.Args[0],
				Vertex:   tok.Args[1],
				Fragment: tok.Args[2],
				File:     file,
				Line:     line.Number,
			})

		case directive.KindCTypedef:
			p.result.CTypedefs = append(p.result.CTypedefs, CTypedef{
				Name: tok.Args[0],
				Decl: tok.Args[1],
				File: file,
				Line: line.Number,
			})

		case directive.KindInclude:
			p.include(tok.Args[0], file, line.Number, searchPaths)

		case directive.KindIncludeModule:
			name := tok.Args[0]
			if !cur.open {
				diags.Errorf(diagnostic.CodeIncludeOutsideModule, file, line.Number,
					"%s: #include_module outside of a module", name)
				continue
			}
			entry, found := p.result.Registry.Lookup(name)
			if !found {
				diags.Errorf(diagnostic.CodeUnknownModule, file, line.Number, "%s: module couldn't be found", name)
				continue
			}
			cur.fragments = append(cur.fragments, entry.Text)
			cur.lines.AddMap(entry.Lines)
		}
	}

	if cur.open {
		diags.Errorf(diagnostic.CodeUnterminatedModule, file, cur.line,
			"%s: %s is not closed before end of file", cur.name, cur.kind)
	}
}

func (b *block) appendLine(line directive.Line, file string) {
	if !b.open {
		return
	}
	b.fragments = append(b.fragments, line.Text+"\n")
	b.lines.Add(sourcemap.Origin{File: file, Line: line.Number})
}

func (p *processor) close(b *block, file string) {
	entry := &Entry{
		Name:  b.name,
		Kind:  b.kind,
		Text:  strings.Join(b.fragments, ""),
		Lines: b.lines.Clone(),
		File:  file,
		Line:  b.line,
	}
	if err := p.result.Registry.Insert(entry); err != nil {
		p.result.Diagnostics.Errorf(diagnostic.CodeDuplicateModule, file, b.line, "%s", err.Error())
	}
}

func (p *processor) include(rel, file string, line int, searchPaths []string) {
	diags := &p.result.Diagnostics

	if len(searchPaths) == 0 {
		diags.Errorf(diagnostic.CodeIncludeNotFound, file, line,
			"%s: cannot include files without search paths", rel)
		return
	}

	path := findFile(rel, searchPaths)
	if path == "" {
		diags.Errorf(diagnostic.CodeIncludeNotFound, file, line,
			"couldn't find file %s in the search paths %s", rel, strings.Join(searchPaths, ", "))
		return
	}

	if p.isActive(path) {
		diags.Errorf(diagnostic.CodeIncludeCycle, file, line, "%s: include cycle", path)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		diags.Errorf(diagnostic.CodeIncludeNotFound, file, line, "%s: %v", rel, err)
		return
	}
	p.result.Includes = append(p.result.Includes, path)

	p.enter(path)
	p.run(string(data), path, nestedSearchPaths(path, searchPaths))
	p.leave()
}

// findFile returns the first dir/rel that is a regular file.
func findFile(rel string, searchPaths []string) string {
	for _, dir := range searchPaths {
		candidate := dir + "/" + rel
		if filepath.IsAbs(rel) {
			candidate = rel
		}
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

// nestedSearchPaths is the search path list for a file pulled in by
// #include: the file's own directory first, then the parent list, keeping
// the parent list's length.
func nestedSearchPaths(path string, parent []string) []string {
	nested := make([]string, 0, len(parent))
	nested = append(nested, Dirname(path))
	nested = append(nested, parent[:len(parent)-1]...)
	return nested
}

func (p *processor) enter(path string) {
	p.active = append(p.active, canonical(path))
}

func (p *processor) leave() {
	p.active = p.active[:len(p.active)-1]
}

func (p *processor) isActive(path string) bool {
	c := canonical(path)
	for _, a := range p.active {
		if a == c {
			return true
		}
	}
	return false
}

func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (p *processor) selectStages(file string) {
	r := p.result
	for _, e := range r.Registry.Entries() {
		switch e.Kind {
		case KindVertex:
			if r.Vertex == nil {
				r.Vertex = e
			} else {
				r.Diagnostics.Warnf(diagnostic.CodeStage, e.File, e.Line,
					"%s: extra vertex stage ignored, using %q", e.Name, r.Vertex.Name)
			}
		case KindFragment:
			if r.Fragment == nil {
				r.Fragment = e
			} else {
				r.Diagnostics.Warnf(diagnostic.CodeStage, e.File, e.Line,
					"%s: extra fragment stage ignored, using %q", e.Name, r.Fragment.Name)
			}
		}
	}

	if r.Vertex == nil {
		r.Diagnostics.Errorf(diagnostic.CodeStage, file, 0, "no #vert block found")
	}
	if r.Fragment == nil {
		r.Diagnostics.Errorf(diagnostic.CodeStage, file, 0, "no #frag block found")
	}
}

func blockKind(k directive.Kind) Kind {
	switch k {
	case directive.KindVert:
		return KindVertex
	case directive.KindFrag:
		return KindFragment
	default:
		return KindModule
	}
}
