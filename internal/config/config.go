// Package config handles loading build configuration from files.
//
// Configuration can be specified in a JSON file named glslmod.json or
// .glslmodrc. The config file is searched for in the directory of the input
// and its parent directories.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HugoDaniel/glslmod/internal/compiler"
	"github.com/HugoDaniel/glslmod/internal/shader"
)

// Config represents the configuration file structure.
// All fields are optional and will use default values if not specified.
type Config struct {
	// Glslang is the glslangValidator executable to run
	Glslang string `json:"glslang,omitempty"`

	// VertexPrefix and FragmentPrefix name the emitted typedefs
	VertexPrefix   string `json:"vertexPrefix,omitempty"`
	FragmentPrefix string `json:"fragmentPrefix,omitempty"`

	// EmitGLSL is a directory to write the expanded stage texts to
	EmitGLSL string `json:"emitGLSL,omitempty"`

	// SourceMap writes a source map next to each expanded stage text
	SourceMap *bool `json:"sourceMap,omitempty"`
}

// ConfigFileNames are the names searched for config files, in order of preference.
var ConfigFileNames = []string{
	"glslmod.json",
	".glslmodrc",
	".glslmodrc.json",
}

// Load searches for a config file starting from the given directory
// and walking up to parent directories. Returns nil if no config file is found.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// ToOptions converts a Config to shader.Options, using defaults for unset
// fields. A nil Config yields the defaults.
func (c *Config) ToOptions() shader.Options {
	opts := shader.DefaultOptions()
	if c == nil {
		return opts
	}

	if c.Glslang != "" {
		opts.Backend = &compiler.GLSLang{Bin: c.Glslang}
	}
	if c.VertexPrefix != "" {
		opts.Header.VertexPrefix = c.VertexPrefix
	}
	if c.FragmentPrefix != "" {
		opts.Header.FragmentPrefix = c.FragmentPrefix
	}
	if c.SourceMap != nil {
		opts.GenerateSourceMap = *c.SourceMap
	}

	return opts
}

// MergeOptions holds the CLI flags. Empty strings and nil pointers mean the
// flag was not given.
type MergeOptions struct {
	Glslang        string
	VertexPrefix   string
	FragmentPrefix string
	EmitGLSL       string
	SourceMap      *bool
}

// Merge merges CLI options with config file options.
// CLI options override config file options when specified.
func (c *Config) Merge(cli MergeOptions) shader.Options {
	opts := c.ToOptions()

	if cli.Glslang != "" {
		opts.Backend = &compiler.GLSLang{Bin: cli.Glslang}
	}
	if cli.VertexPrefix != "" {
		opts.Header.VertexPrefix = cli.VertexPrefix
	}
	if cli.FragmentPrefix != "" {
		opts.Header.FragmentPrefix = cli.FragmentPrefix
	}
	if cli.SourceMap != nil {
		opts.GenerateSourceMap = *cli.SourceMap
	}

	return opts
}

// EmitDir returns the directory expanded stage texts go to, "" for none.
// The CLI value wins over the config file.
func (c *Config) EmitDir(cli MergeOptions) string {
	if cli.EmitGLSL != "" {
		return cli.EmitGLSL
	}
	if c == nil {
		return ""
	}
	return c.EmitGLSL
}
