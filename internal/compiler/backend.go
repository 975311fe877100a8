// Package compiler turns expanded GLSL stage texts into SPIR-V through a
// pluggable backend and assembles the compiled shader record.
package compiler

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Stage selects a shader stage.
type Stage uint8

const (
	Vertex Stage = iota
	Fragment
)

func (s Stage) String() string {
	switch s {
	case Vertex:
		return "vertex"
	case Fragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// Ext is the file extension glslangValidator associates with the stage.
func (s Stage) Ext() string {
	if s == Fragment {
		return "frag"
	}
	return "vert"
}

// Backend compiles one stage of GLSL to SPIR-V.
type Backend interface {
	Compile(source string, stage Stage, name string) ([]byte, error)
}

// CompileError carries the diagnostics printed by a failed backend run.
type CompileError struct {
	Stage  Stage
	File   string // path the source was compiled from
	Output string
}

func (e *CompileError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s stage failed to compile", e.Stage)
	}
	return fmt.Sprintf("%s stage failed to compile:\n%s", e.Stage, out)
}

// TargetEnv is the Vulkan environment every stage is compiled for.
const TargetEnv = "vulkan1.2"

// GLSLang runs the glslangValidator reference compiler.
type GLSLang struct {
	// Bin is the compiler executable, looked up in PATH if not absolute.
	Bin string
	// WorkDir holds the temporary files; a fresh temp dir when empty.
	WorkDir string
}

// NewGLSLang returns a backend that runs glslangValidator from PATH.
func NewGLSLang() *GLSLang {
	return &GLSLang{Bin: "glslangValidator"}
}

// Compile writes source to <name>.<vert|frag>, compiles it and returns the
// SPIR-V bytes. On failure the error is a *CompileError holding the tool's
// output.
func (g *GLSLang) Compile(source string, stage Stage, name string) ([]byte, error) {
	dir, done, err := g.workDir()
	if err != nil {
		return nil, err
	}
	defer done()

	path, err := writeStage(dir, name, stage, source)
	if err != nil {
		return nil, err
	}
	pathout := path + ".spv"

	cmd := exec.Command(g.bin(),
		"-V",
		"--target-env", TargetEnv,
		"-S", stage.Ext(),
		"-o", pathout,
		path,
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil, &CompileError{Stage: stage, File: path, Output: string(out)}
		}
		return nil, errors.Wrapf(err, "running %s", g.bin())
	}

	compiled, err := os.ReadFile(pathout)
	if err != nil {
		return nil, errors.Wrapf(err, "reading output %q", pathout)
	}
	return compiled, nil
}

// Linker is implemented by backends that can check the interface between
// the vertex and fragment stages.
type Linker interface {
	Link(vert, frag string, name string) error
}

// LinkError carries the output of a failed link.
type LinkError struct {
	Output string
}

func (e *LinkError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return "stages failed to link"
	}
	return "stages failed to link:\n" + out
}

// Link compiles both stages in one glslangValidator run, which links them
// into a single program. The stage binaries it writes stay in the work dir.
func (g *GLSLang) Link(vert, frag string, name string) error {
	dir, done, err := g.workDir()
	if err != nil {
		return err
	}
	defer done()

	vpath, err := writeStage(dir, name, Vertex, vert)
	if err != nil {
		return err
	}
	fpath, err := writeStage(dir, name, Fragment, frag)
	if err != nil {
		return err
	}

	cmd := exec.Command(g.bin(), "-V", "--target-env", TargetEnv, vpath, fpath)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return &LinkError{Output: string(out)}
		}
		return errors.Wrapf(err, "running %s", g.bin())
	}
	return nil
}

func (g *GLSLang) bin() string {
	if g.Bin == "" {
		return "glslangValidator"
	}
	return g.Bin
}

// workDir returns WorkDir, or a temp dir removed by done.
func (g *GLSLang) workDir() (dir string, done func(), err error) {
	if g.WorkDir != "" {
		return g.WorkDir, func() {}, nil
	}
	tmp, err := os.MkdirTemp("", "glslmod-")
	if err != nil {
		return "", nil, errors.Wrap(err, "creating work dir")
	}
	return tmp, func() { os.RemoveAll(tmp) }, nil
}

// writeStage writes source to <dir>/<name>.<vert|frag>.
func writeStage(dir, name string, stage Stage, source string) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "shader"
	}
	path := filepath.Join(dir, base+"."+stage.Ext())
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return path, nil
}
