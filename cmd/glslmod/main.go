// Command glslmod compiles a GLSL module file into a C header.
//
// Usage:
//
//	glslmod [options] <input.glsl>
//	cat input.glsl | glslmod [options]
//
// Options:
//
//	-o <file>             Write the header to file (default: stdout)
//	-name <name>          Shader name (default: input base name)
//	-config <file>        Use specific config file
//	-no-config            Ignore config files
//	-glslang <path>       glslangValidator executable
//	-vert-prefix <p>      Vertex typedef prefix (default: Vert)
//	-frag-prefix <p>      Fragment typedef prefix (default: Frag)
//	-emit-glsl <dir>      Write the expanded stage texts to dir
//	-sourcemap            Write <stage>.glsl.map next to the expanded texts
//	-reflect <file>       Write the reflected resources as JSON
//	-version              Print version and exit
//	-help                 Print help and exit
//
// Config file:
//
//	glslmod looks for glslmod.json or .glslmodrc in the input's directory
//	and its parents. Config file options are overridden by CLI flags.
//
// Example glslmod.json:
//
//	{
//	    "glslang": "/opt/vulkan/bin/glslangValidator",
//	    "vertexPrefix": "VS",
//	    "fragmentPrefix": "PS",
//	    "emitGLSL": "build/glsl",
//	    "sourceMap": true
//	}
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/HugoDaniel/glslmod/internal/config"
	"github.com/HugoDaniel/glslmod/internal/preprocess"
	"github.com/HugoDaniel/glslmod/internal/shader"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success, 1 when there is no
// input or the build reported an error.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "glslmod: ", 0)
	if err := build(args, stdin, stdout, stderr, logger); err != nil {
		logger.Printf("error: %v", err)
		return 1
	}
	return 0
}

func build(args []string, stdin io.Reader, stdout, stderr io.Writer, logger *log.Logger) error {
	fs := flag.NewFlagSet("glslmod", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		outputFile  string
		name        string
		configFile  string
		noConfig    bool
		glslang     string
		vertPrefix  string
		fragPrefix  string
		emitGLSL    string
		sourceMap   bool
		reflectFile string
		showVersion bool
		showHelp    bool
	)

	fs.StringVar(&outputFile, "o", "", "Write the header to `file`")
	fs.StringVar(&name, "name", "", "Shader `name` (default: input base name)")
	fs.StringVar(&configFile, "config", "", "Use specific config `file`")
	fs.BoolVar(&noConfig, "no-config", false, "Ignore config files")
	fs.StringVar(&glslang, "glslang", "", "glslangValidator executable `path`")
	fs.StringVar(&vertPrefix, "vert-prefix", "", "Vertex typedef `prefix` (default: Vert)")
	fs.StringVar(&fragPrefix, "frag-prefix", "", "Fragment typedef `prefix` (default: Frag)")
	fs.StringVar(&emitGLSL, "emit-glsl", "", "Write the expanded stage texts to `dir`")
	fs.BoolVar(&sourceMap, "sourcemap", false, "Write <stage>.glsl.map next to the expanded texts")
	fs.StringVar(&reflectFile, "reflect", "", "Write the reflected resources as JSON to `file`")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&showHelp, "help", false, "Print help and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "glslmod - GLSL module compiler v%s\n\n", version)
		fmt.Fprintf(stderr, "Usage: glslmod [options] <input.glsl>\n")
		fmt.Fprintf(stderr, "       cat input.glsl | glslmod [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nConfig file:\n")
		fmt.Fprintf(stderr, "  Searches for glslmod.json or .glslmodrc in the input's directory and its parents.\n")
		fmt.Fprintf(stderr, "  CLI flags override config file settings.\n")
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  glslmod shader.glsl -o shader.h\n")
		fmt.Fprintf(stderr, "  cat shader.glsl | glslmod -name shader > shader.h\n")
		fmt.Fprintf(stderr, "  glslmod -emit-glsl build -sourcemap shader.glsl -o shader.h\n")
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	if showHelp {
		fs.Usage()
		return nil
	}

	if showVersion {
		fmt.Fprintf(stdout, "glslmod v%s (%s)\n", version, commit)
		return nil
	}

	// Read input
	inputPath := fs.Arg(0)
	var source []byte
	var err error

	if inputPath != "" && inputPath != "-" {
		source, err = os.ReadFile(inputPath)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
	} else {
		if inputPath == "" && !isPipe(stdin) {
			fs.Usage()
			return fmt.Errorf("no input file specified")
		}
		source, err = io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		inputPath = "-"
	}

	// Load config file
	var cfg *config.Config
	if !noConfig {
		var configPath string
		if configFile != "" {
			cfg, err = config.LoadFile(configFile)
			if err != nil {
				return fmt.Errorf("loading config file %s: %w", configFile, err)
			}
			configPath = configFile
		} else {
			startDir, _ := os.Getwd()
			if inputPath != "-" {
				startDir = preprocess.Dirname(inputPath)
			}
			cfg, configPath, err = config.Load(startDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		}
		if configPath != "" {
			logger.Printf("using config: %s", configPath)
		}
	}

	cliOpts := config.MergeOptions{
		Glslang:        glslang,
		VertexPrefix:   vertPrefix,
		FragmentPrefix: fragPrefix,
		EmitGLSL:       emitGLSL,
	}
	if sourceMap {
		cliOpts.SourceMap = &sourceMap
	}

	opts := cfg.Merge(cliOpts)
	opts.File = inputPath
	opts.Name = name
	emitDir := cfg.EmitDir(cliOpts)

	if opts.GenerateSourceMap && emitDir == "" {
		logger.Printf("warning: source maps are only written with -emit-glsl")
	}

	// Build
	result := shader.Build(string(source), opts)
	for _, d := range result.Diagnostics.Diagnostics() {
		logger.Print(d.Error())
	}

	// Write outputs, even when the build has errors
	if err := writeOutput(outputFile, result.Header, stdout); err != nil {
		return err
	}
	if emitDir != "" {
		if err := writeStages(emitDir, &result); err != nil {
			return err
		}
	}
	if reflectFile != "" {
		if err := writeReflection(reflectFile, &result); err != nil {
			return err
		}
	}

	if outputFile != "" {
		logger.Printf("wrote %s: %d bytes (vertex %d, fragment %d bytes of SPIR-V)",
			outputFile, result.Stats.HeaderSize, result.Stats.VertexBytes, result.Stats.FragmentBytes)
	}

	if n := result.Diagnostics.ErrorCount(); n > 0 {
		return fmt.Errorf("build failed with %d error(s)", n)
	}
	return nil
}

// isPipe reports whether r is not an interactive terminal.
func isPipe(r io.Reader) bool {
	if r == nil {
		return false
	}
	f, ok := r.(*os.File)
	if !ok {
		return true
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}

func writeOutput(path, content string, stdout io.Writer) error {
	if path == "" {
		if _, err := io.WriteString(stdout, content); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// writeStages writes <dir>/vertex.glsl and <dir>/fragment.glsl, and their
// source maps when they were generated.
func writeStages(dir string, result *shader.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for _, st := range []shader.Stage{result.Vertex, result.Fragment} {
		text := st.GLSL
		if st.SourceMap != nil {
			text += st.SourceMap.ToComment(false) + "\n"
			mapPath := filepath.Join(dir, st.File+".map")
			if err := os.WriteFile(mapPath, []byte(st.SourceMap.ToJSON()), 0644); err != nil {
				return fmt.Errorf("writing source map: %w", err)
			}
		}
		if err := os.WriteFile(filepath.Join(dir, st.File), []byte(text), 0644); err != nil {
			return fmt.Errorf("writing expanded GLSL: %w", err)
		}
	}
	return nil
}

func writeReflection(path string, result *shader.Result) error {
	out := map[string]any{
		"name":     result.Shader.Name,
		"vertex":   result.Shader.Vertex.Reflection,
		"fragment": result.Shader.Fragment.Reflection,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding reflection: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing reflection: %w", err)
	}
	return nil
}
