package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeValidator stands in for glslangValidator: it writes a SPIR-V header
// with no instructions to the -o path, and accepts every link.
const fakeValidator = `#!/bin/sh
out=""
while [ $# -gt 1 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
[ -z "$out" ] && exit 0
printf '\003\002\043\007\000\005\001\000\000\000\000\000\001\000\000\000\000\000\000\000' > "$out"
`

const moduleSource = `#vert V
#version 450
void main() {}
#end
#frag F
#version 450
void main() {}
#end
`

func fakeGlslang(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script backend")
	}
	bin := filepath.Join(t.TempDir(), "glslangValidator")
	if err := os.WriteFile(bin, []byte(fakeValidator), 0755); err != nil {
		t.Fatal(err)
	}
	return bin
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-version"}, nil, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "glslmod v") {
		t.Errorf("unexpected version output %q", stdout.String())
	}
}

func TestNoInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, nil, &stdout, &stderr)

	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "glslmod: error: no input file specified") {
		t.Errorf("unexpected stderr:\n%s", stderr.String())
	}
}

func TestMissingInputFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-no-config", filepath.Join(t.TempDir(), "missing.glsl")}, nil, &stdout, &stderr)

	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "reading input") {
		t.Errorf("unexpected stderr:\n%s", stderr.String())
	}
}

func TestBuildFile(t *testing.T) {
	bin := fakeGlslang(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "basic.glsl")
	if err := os.WriteFile(input, []byte(moduleSource), 0644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "basic.h")
	glslDir := filepath.Join(dir, "glsl")
	reflectPath := filepath.Join(dir, "basic.json")

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-no-config",
		"-glslang", bin,
		"-o", output,
		"-emit-glsl", glslDir,
		"-sourcemap",
		"-reflect", reflectPath,
		input,
	}, nil, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}

	header, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("header not written: %v", err)
	}
	for _, want := range []string{"#ifndef BASIC_H", `basic_vert_spv[] = "\x03\x02\x23\x07`, "basic_frag_spv_size = 20;"} {
		if !strings.Contains(string(header), want) {
			t.Errorf("header missing %q:\n%s", want, header)
		}
	}

	vert, err := os.ReadFile(filepath.Join(glslDir, "vertex.glsl"))
	if err != nil {
		t.Fatalf("expanded vertex text not written: %v", err)
	}
	if !strings.HasPrefix(string(vert), "#version 450\nvoid main() {}\n") ||
		!strings.HasSuffix(string(vert), "//# sourceMappingURL=vertex.glsl.map\n") {
		t.Errorf("unexpected vertex text %q", vert)
	}
	if _, err := os.Stat(filepath.Join(glslDir, "fragment.glsl.map")); err != nil {
		t.Errorf("fragment source map not written: %v", err)
	}

	data, err := os.ReadFile(reflectPath)
	if err != nil {
		t.Fatalf("reflection not written: %v", err)
	}
	if !strings.Contains(string(data), `"name": "basic"`) {
		t.Errorf("unexpected reflection JSON:\n%s", data)
	}

	if !strings.Contains(stderr.String(), "glslmod: wrote "+output) {
		t.Errorf("missing summary line:\n%s", stderr.String())
	}
}

func TestConfigFile(t *testing.T) {
	bin := fakeGlslang(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "cfg.glsl")
	if err := os.WriteFile(input, []byte(moduleSource), 0644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "glslmod.json")
	if err := os.WriteFile(cfgPath, []byte(`{"glslang": "`+bin+`"}`), 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := run([]string{input}, nil, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "glslmod: using config: "+cfgPath) {
		t.Errorf("config not reported:\n%s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "#define CFG_H") {
		t.Errorf("header not written to stdout:\n%s", stdout.String())
	}
}

func TestStdinWithErrors(t *testing.T) {
	bin := fakeGlslang(t)
	var stdout, stderr bytes.Buffer
	stdin := strings.NewReader(moduleSource + "#include_module missing\n")

	code := run([]string{"-no-config", "-glslang", bin, "-name", "piped"}, stdin, &stdout, &stderr)

	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "glslmod: <stdin>:9: error[D0008]") {
		t.Errorf("diagnostic not logged:\n%s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "#ifndef PIPED_H") {
		t.Errorf("header should still be written:\n%s", stdout.String())
	}
}
