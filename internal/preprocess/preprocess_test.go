package preprocess

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HugoDaniel/glslmod/internal/diagnostic"
	"github.com/HugoDaniel/glslmod/internal/sourcemap"
	"github.com/HugoDaniel/glslmod/internal/test"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func expectCode(t *testing.T, r *Result, code diagnostic.Code, count int) {
	t.Helper()
	got := r.Diagnostics.WithCode(code)
	if len(got) != count {
		t.Errorf("expected %d %s diagnostic(s), got %d:\n%s", count, code, len(got), r.Diagnostics.Format())
	}
}

func expectModule(t *testing.T, r *Result, name, text string) *Entry {
	t.Helper()
	e, ok := r.Registry.Lookup(name)
	if !ok {
		t.Fatalf("module %q not registered", name)
	}
	test.AssertEqualWithDiff(t, e.Text, text)
	return e
}

const stages = "#vert vs\nvoid main() {}\n#end\n#frag fs\nvoid main() {}\n#end\n"

// ----------------------------------------------------------------------------
// Expansion
// ----------------------------------------------------------------------------

func TestBasicExpansion(t *testing.T) {
	src := "#module common\n" +
		"float one() { return 1.0; }\n" +
		"#end\n" +
		"#vert vs\n" +
		"#version 450\n" +
		"#include_module common\n" +
		"void main() {}\n" +
		"#end\n" +
		"#frag fs\n" +
		"void main() {}\n" +
		"#end\n"

	r := Preprocess(src, "main.glsl", nil)

	if r.Diagnostics.Count() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", r.Diagnostics.Format())
	}
	if r.Vertex == nil || r.Fragment == nil {
		t.Fatal("expected both stages")
	}

	test.AssertEqualWithDiff(t, r.Vertex.Text, "#version 450\nfloat one() { return 1.0; }\nvoid main() {}\n")
	test.AssertEqualWithDiff(t, r.Fragment.Text, "void main() {}\n")
	test.AssertEqual(t, r.Vertex.Name, "vs")
	test.AssertEqual(t, r.Vertex.Kind, KindVertex)

	want := []sourcemap.Origin{{File: "main.glsl", Line: 5}, {File: "main.glsl", Line: 2}, {File: "main.glsl", Line: 7}}
	test.AssertEqual(t, r.Vertex.Lines.Len(), len(want))
	for i, w := range want {
		got, _ := r.Vertex.Lines.Lookup(i + 1)
		if got != w {
			t.Errorf("line %d: origin %+v, want %+v", i+1, got, w)
		}
	}
}

func TestRegistryOrder(t *testing.T) {
	src := "#module b\n#end\n#module a\n#end\n" + stages
	r := Preprocess(src, "main.glsl", nil)

	var names []string
	for _, e := range r.Registry.Entries() {
		names = append(names, e.Name)
	}
	want := []string{"b", "a", "vs", "fs"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		test.AssertEqual(t, names[i], want[i])
	}
}

func TestTextOutsideModulesDropped(t *testing.T) {
	src := "// header comment\nuniform float stray;\n#define X 1\n" + stages + "trailing text\n"
	r := Preprocess(src, "main.glsl", nil)

	test.AssertEqual(t, r.Diagnostics.Count(), 0)
	test.AssertEqualWithDiff(t, r.Vertex.Text, "void main() {}\n")
}

func TestNativeDirectivesPassThrough(t *testing.T) {
	src := "#vert vs\n" +
		"#version 450\n" +
		"#extension GL_GOOGLE_include_directive : enable\n" +
		"#define N 4\n" +
		"#ifdef N\n" +
		"  #pragma optimize(off)\n" +
		"#endif\n" +
		"#\n" +
		"void main() {}\n" +
		"#end\n" +
		"#frag fs\n#end\n"

	r := Preprocess(src, "main.glsl", nil)

	test.AssertEqual(t, r.Diagnostics.Count(), 0)
	test.AssertEqualWithDiff(t, r.Vertex.Text, "#version 450\n"+
		"#extension GL_GOOGLE_include_directive : enable\n"+
		"#define N 4\n"+
		"#ifdef N\n"+
		"  #pragma optimize(off)\n"+
		"#endif\n"+
		"#\n"+
		"void main() {}\n")
}

func TestCommentedDirectiveIsText(t *testing.T) {
	src := "#vert vs\n// #end\n  // #frag nope\nvoid main() {}\n#end\n#frag fs\n#end\n"
	r := Preprocess(src, "main.glsl", nil)

	test.AssertEqual(t, r.Diagnostics.Count(), 0)
	test.AssertEqualWithDiff(t, r.Vertex.Text, "// #end\n  // #frag nope\nvoid main() {}\n")
}

func TestCRLF(t *testing.T) {
	src := "#vert vs\r\nvoid main() {}\r\n#end\r\n#frag fs\r\n#end"
	r := Preprocess(src, "main.glsl", nil)

	test.AssertEqual(t, r.Diagnostics.Count(), 0)
	test.AssertEqualWithDiff(t, r.Vertex.Text, "void main() {}\n")
	if r.Fragment == nil {
		t.Fatal("final #end without newline should close the fragment stage")
	}
}

func TestIncludeModuleNotReexpanded(t *testing.T) {
	src := "#module a\nA\n#end\n" +
		"#module b\n#include_module a\nB\n#end\n" +
		"#vert vs\n#include_module b\n#end\n" +
		"#frag fs\n#end\n"
	r := Preprocess(src, "main.glsl", nil)

	test.AssertEqual(t, r.Diagnostics.Count(), 0)
	expectModule(t, r, "b", "A\nB\n")
	test.AssertEqualWithDiff(t, r.Vertex.Text, "A\nB\n")
}

func TestProgramAndCTypedefRecorded(t *testing.T) {
	src := "#program basic vs fs\n#ctypedef vec3 float3\n" + stages
	r := Preprocess(src, "main.glsl", nil)

	test.AssertEqual(t, r.Diagnostics.Count(), 0)
	if len(r.Programs) != 1 || len(r.CTypedefs) != 1 {
		t.Fatalf("programs %v, ctypedefs %v", r.Programs, r.CTypedefs)
	}
	test.AssertEqual(t, r.Programs[0], Program{Name: "basic", Vertex: "vs", Fragment: "fs", File: "main.glsl", Line: 1})
	test.AssertEqual(t, r.CTypedefs[0], CTypedef{Name: "vec3", Decl: "float3", File: "main.glsl", Line: 2})
	test.AssertEqual(t, r.Registry.Len(), 2)
}

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

func TestUnknownDirective(t *testing.T) {
	src := "#vert vs\n#frobnicate x\nvoid main() {}\n#end\n#frag fs\n#end\n"
	r := Preprocess(src, "main.glsl", nil)

	expectCode(t, r, diagnostic.CodeUnknownDirective, 1)
	d := r.Diagnostics.WithCode(diagnostic.CodeUnknownDirective)[0]
	test.AssertEqual(t, d.Line, 2)
	test.AssertEqualWithDiff(t, r.Vertex.Text, "void main() {}\n")
}

func TestArityError(t *testing.T) {
	src := "#module\n#module a b\n#program p vs\n" + stages
	r := Preprocess(src, "main.glsl", nil)

	expectCode(t, r, diagnostic.CodeArgumentCount, 3)
	test.AssertEqual(t, len(r.Programs), 0)
	test.AssertEqual(t, r.Registry.Len(), 2)
}

func TestNestedModuleRejected(t *testing.T) {
	src := "#module outer\nA\n#module inner\nB\n#end\n" + stages
	r := Preprocess(src, "main.glsl", nil)

	expectCode(t, r, diagnostic.CodeNestedModule, 1)
	expectModule(t, r, "outer", "A\nB\n")
	if _, ok := r.Registry.Lookup("inner"); ok {
		t.Error("rejected module should not be registered")
	}
}

func TestUnmatchedEnd(t *testing.T) {
	r := Preprocess("#end\n"+stages, "main.glsl", nil)
	expectCode(t, r, diagnostic.CodeUnmatchedEnd, 1)
	test.AssertEqual(t, r.Registry.Len(), 2)
}

func TestDuplicateModule(t *testing.T) {
	src := "#module m\nfirst\n#end\n#module m\nsecond\n#end\n" + stages
	r := Preprocess(src, "main.glsl", nil)

	expectCode(t, r, diagnostic.CodeDuplicateModule, 1)
	expectModule(t, r, "m", "first\n")
	test.AssertEqual(t, r.Registry.Len(), 3)
}

func TestUnknownIncludeModule(t *testing.T) {
	src := "#vert vs\nA\n#include_module missing\nB\n#end\n#frag fs\n#end\n"
	r := Preprocess(src, "main.glsl", nil)

	expectCode(t, r, diagnostic.CodeUnknownModule, 1)
	test.AssertEqualWithDiff(t, r.Vertex.Text, "A\nB\n")
}

func TestIncludeModuleForwardReference(t *testing.T) {
	src := "#vert vs\n#include_module later\n#end\n#module later\nX\n#end\n#frag fs\n#end\n"
	r := Preprocess(src, "main.glsl", nil)

	expectCode(t, r, diagnostic.CodeUnknownModule, 1)
	test.AssertEqualWithDiff(t, r.Vertex.Text, "")
}

func TestIncludeModuleOutsideModule(t *testing.T) {
	src := "#module m\nX\n#end\n#include_module m\n" + stages
	r := Preprocess(src, "main.glsl", nil)
	expectCode(t, r, diagnostic.CodeIncludeOutsideModule, 1)
}

func TestUnterminatedModule(t *testing.T) {
	src := stages + "#module open\nX\n"
	r := Preprocess(src, "main.glsl", nil)

	expectCode(t, r, diagnostic.CodeUnterminatedModule, 1)
	if _, ok := r.Registry.Lookup("open"); ok {
		t.Error("unterminated module should be discarded")
	}
	d := r.Diagnostics.WithCode(diagnostic.CodeUnterminatedModule)[0]
	test.AssertEqual(t, d.Line, 7)
}

func TestStageSelection(t *testing.T) {
	src := stages + "#vert vs2\nother\n#end\n"
	r := Preprocess(src, "main.glsl", nil)

	expectCode(t, r, diagnostic.CodeStage, 1)
	test.AssertEqual(t, r.Diagnostics.HasErrors(), false)
	test.AssertEqual(t, r.Vertex.Name, "vs")
	if _, ok := r.Registry.Lookup("vs2"); !ok {
		t.Error("extra stage should still be registered")
	}
}

func TestMissingStages(t *testing.T) {
	r := Preprocess("#module m\n#end\n", "main.glsl", nil)

	expectCode(t, r, diagnostic.CodeStage, 2)
	test.AssertEqual(t, r.Diagnostics.HasErrors(), true)
	if r.Vertex != nil || r.Fragment != nil {
		t.Error("expected no stages")
	}
}

func TestRecoveryContinuesScan(t *testing.T) {
	src := "#bogus\n#end\n#module a b\n#include_module nope\n" + stages
	r := Preprocess(src, "main.glsl", nil)

	test.AssertEqual(t, r.Diagnostics.ErrorCount(), 4)
	if r.Vertex == nil || r.Fragment == nil {
		t.Fatal("stages after errors should still be found")
	}
}

// ----------------------------------------------------------------------------
// Includes
// ----------------------------------------------------------------------------

func TestIncludeWithoutSearchPaths(t *testing.T) {
	r := Preprocess("#include lib.glsl\n"+stages, "main.glsl", nil)
	expectCode(t, r, diagnostic.CodeIncludeNotFound, 1)
}

func TestIncludeNotFound(t *testing.T) {
	dir := t.TempDir()
	r := Preprocess("#include missing.glsl\n"+stages, "main.glsl", []string{dir})
	expectCode(t, r, diagnostic.CodeIncludeNotFound, 1)
}

func TestIncludeDirectoryIsNotAFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "lib.glsl"), 0755); err != nil {
		t.Fatal(err)
	}
	r := Preprocess("#include lib.glsl\n"+stages, "main.glsl", []string{dir})
	expectCode(t, r, diagnostic.CodeIncludeNotFound, 1)
}

func TestIncludeSharesRegistry(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.glsl")
	writeFile(t, lib, "stray text\n#module noise\nfloat noise() { return 0.5; }\n#end\n")

	src := "#include lib.glsl\n" +
		"#vert vs\n#include_module noise\nvoid main() {}\n#end\n" +
		"#frag fs\n#end\n"
	r := Preprocess(src, filepath.Join(dir, "main.glsl"), []string{dir, "."})

	if r.Diagnostics.Count() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", r.Diagnostics.Format())
	}
	test.AssertEqualWithDiff(t, r.Vertex.Text, "float noise() { return 0.5; }\nvoid main() {}\n")

	origin, _ := r.Vertex.Lines.Lookup(1)
	test.AssertEqual(t, origin.Line, 3)
	test.AssertEqual(t, filepath.Base(origin.File), "lib.glsl")
	test.AssertEqual(t, len(r.Includes), 1)
}

func TestIncludeFirstSearchPathWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "lib.glsl"), "#module which\nfirst\n#end\n")
	writeFile(t, filepath.Join(second, "lib.glsl"), "#module which\nsecond\n#end\n")

	r := Preprocess("#include lib.glsl\n"+stages, "main.glsl", []string{first, second})
	expectModule(t, r, "which", "first\n")
}

func TestIncludeFreshModuleState(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib.glsl"), "#end\n#module inner\nI\n#end\nloose\n")

	src := "#vert vs\nA\n#include lib.glsl\nB\n#end\n#frag fs\n#end\n"
	r := Preprocess(src, "main.glsl", []string{dir})

	// The #end in lib.glsl does not close the parent's vertex block.
	expectCode(t, r, diagnostic.CodeUnmatchedEnd, 1)
	expectModule(t, r, "inner", "I\n")
	test.AssertEqualWithDiff(t, r.Vertex.Text, "A\nB\n")
}

func TestIncludeUnterminatedModuleDiscarded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib.glsl"), "#module half\nX\n")

	src := "#include lib.glsl\n#module after\nY\n#end\n" + stages
	r := Preprocess(src, "main.glsl", []string{dir})

	expectCode(t, r, diagnostic.CodeUnterminatedModule, 1)
	expectModule(t, r, "after", "Y\n")
}

func TestNestedIncludeSearchPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "b.glsl"),
		"#include c.glsl\n#module b\n#include_module c\nB\n#end\n")
	writeFile(t, filepath.Join(dir, "sub", "c.glsl"), "#module c\nC\n#end\n")

	src := "#include sub/b.glsl\n#vert vs\n#include_module b\n#end\n#frag fs\n#end\n"
	r := Preprocess(src, filepath.Join(dir, "a.glsl"), []string{dir})

	if r.Diagnostics.Count() != 0 {
		t.Fatalf("unexpected diagnostics:\n%s", r.Diagnostics.Format())
	}
	test.AssertEqualWithDiff(t, r.Vertex.Text, "C\nB\n")
	test.AssertEqual(t, len(r.Includes), 2)
}

func TestNestedSearchPathsKeepLength(t *testing.T) {
	got := nestedSearchPaths("/a/b/lib.glsl", []string{"/x", "/y", "."})
	want := []string{"/a/b", "/x", "/y"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		test.AssertEqual(t, got[i], want[i])
	}

	got = nestedSearchPaths("/a/lib.glsl", []string{"/x"})
	if len(got) != 1 || got[0] != "/a" {
		t.Errorf("got %v, want [/a]", got)
	}
}

func TestIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.glsl")
	writeFile(t, a, "#include b.glsl\n"+stages)
	writeFile(t, filepath.Join(dir, "b.glsl"), "#include a.glsl\n#module b\nB\n#end\n")

	data, err := os.ReadFile(a)
	if err != nil {
		t.Fatal(err)
	}
	r := Preprocess(string(data), a, []string{dir})

	expectCode(t, r, diagnostic.CodeIncludeCycle, 1)
	expectModule(t, r, "b", "B\n")
	test.AssertEqual(t, r.Registry.Len(), 3)
}

func TestSelfInclude(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.glsl")
	writeFile(t, lib, "#include lib.glsl\n")

	r := Preprocess("#include lib.glsl\n"+stages, filepath.Join(dir, "main.glsl"), []string{dir})
	expectCode(t, r, diagnostic.CodeIncludeCycle, 1)
}

// ----------------------------------------------------------------------------
// Registry and Dirname
// ----------------------------------------------------------------------------

func TestRegistryInsertDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Insert(&Entry{Name: "m", Text: "first", File: "a.glsl", Line: 1}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := r.Insert(&Entry{Name: "m", Text: "second"}); err == nil {
		t.Fatal("expected duplicate insert to fail")
	}
	if err := r.Insert(&Entry{Name: "M", Text: "upper"}); err != nil {
		t.Fatalf("names are case sensitive: %v", err)
	}

	e, _ := r.Lookup("m")
	test.AssertEqual(t, e.Text, "first")
	test.AssertEqual(t, r.Len(), 2)
}

func TestDirname(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/user/file.txt", "/home/user"},
		{"/home/user", "/home"},
		{"/home/user/", "/home"},
		{"/home/user/.", "/home/user"},
		{"/home/user///.", "/home/user"},
		{"/home/user///", "/home"},
		{"foobar.txt", "."},
		{"./foobar.txt", "."},
		{"/file", "/"},
		{"/", "/"},
		{"//", "/"},
		{"", "."},
		{"a/", "."},
		{"shaders/lib/noise.glsl", "shaders/lib"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			test.AssertEqual(t, Dirname(tt.path), tt.want)
		})
	}
}
