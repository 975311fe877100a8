// Package main provides a C-callable static library for building GLSL module
// files into headers, expanding them, and reflecting SPIR-V.
//
// This is built with -buildmode=c-archive to produce libglslmod.a
// that can be linked into C/C++/Zig programs.
//
// Build:
//
//	CGO_ENABLED=1 go build -buildmode=c-archive -o build/libglslmod.a ./cmd/glslmod-lib
//
// Exported functions:
//
//	glslmod_build(source, source_len, options_json, options_len, out_header, out_header_len, out_json, out_json_len) -> error_code
//	glslmod_preprocess(source, source_len, file, out_json, out_len) -> error_code
//	glslmod_reflect(bytecode, bytecode_len, out_json, out_len) -> error_code
//	glslmod_free(ptr) -> void
//	glslmod_version() -> *char
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"encoding/json"
	"unsafe"

	"github.com/HugoDaniel/glslmod/pkg/api"
)

// Version should match the release version
const version = "0.1.0"

// Error codes
const (
	GLSLMOD_OK              = 0
	GLSLMOD_ERR_JSON_ENCODE = 1
	GLSLMOD_ERR_NULL_INPUT  = 2
	GLSLMOD_ERR_JSON_DECODE = 3
	GLSLMOD_ERR_BUILD       = 4
)

var versionC = C.CString(version)

// BuildOptions mirrors api.BuildOptions for JSON parsing.
type BuildOptions struct {
	Name           string   `json:"name"`
	File           string   `json:"file"`
	SearchPaths    []string `json:"searchPaths"`
	Glslang        string   `json:"glslang"`
	VertexPrefix   string   `json:"vertexPrefix"`
	FragmentPrefix string   `json:"fragmentPrefix"`
	SourceMap      bool     `json:"sourceMap"`
}

// glslmod_build compiles a module source into a C header.
//
// Parameters:
//   - source: pointer to the module source (UTF-8)
//   - source_len: length of source in bytes
//   - options_json: pointer to JSON options (can be NULL for defaults)
//   - options_len: length of options JSON
//   - out_header: pointer to receive the header (caller must free with glslmod_free)
//   - out_header_len: pointer to receive header length
//   - out_json: pointer to receive the JSON result with stages and
//     diagnostics (can be NULL; caller must free with glslmod_free)
//   - out_json_len: pointer to receive JSON length
//
// Returns:
//   - 0 on success
//   - GLSLMOD_ERR_BUILD when the build reported errors; the header is still set
//   - another non-zero error code on failure
//
//export glslmod_build
func glslmod_build(
	source *C.char, source_len C.int,
	options_json *C.char, options_len C.int,
	out_header **C.char, out_header_len *C.int,
	out_json **C.char, out_json_len *C.int,
) C.int {
	if source == nil || out_header == nil || out_header_len == nil {
		return GLSLMOD_ERR_NULL_INPUT
	}

	goSource := C.GoStringN(source, source_len)

	var opts api.BuildOptions
	if options_json != nil && options_len > 0 {
		var jsonOpts BuildOptions
		optStr := C.GoStringN(options_json, options_len)
		if err := json.Unmarshal([]byte(optStr), &jsonOpts); err != nil {
			return GLSLMOD_ERR_JSON_DECODE
		}
		opts = api.BuildOptions{
			Name:           jsonOpts.Name,
			File:           jsonOpts.File,
			SearchPaths:    jsonOpts.SearchPaths,
			VertexPrefix:   jsonOpts.VertexPrefix,
			FragmentPrefix: jsonOpts.FragmentPrefix,
			SourceMap:      jsonOpts.SourceMap,
		}
		if jsonOpts.Glslang != "" {
			opts.Backend = api.GLSLang(jsonOpts.Glslang)
		}
	}

	result := api.Build(goSource, opts)

	*out_header = C.CString(result.Header)
	*out_header_len = C.int(len(result.Header))

	if out_json != nil && out_json_len != nil {
		jsonBytes, err := json.Marshal(result)
		if err != nil {
			return GLSLMOD_ERR_JSON_ENCODE
		}
		*out_json = C.CString(string(jsonBytes))
		*out_json_len = C.int(len(jsonBytes))
	}

	if len(result.Errors) > 0 {
		return GLSLMOD_ERR_BUILD
	}
	return GLSLMOD_OK
}

// glslmod_preprocess expands a module source without compiling it and
// returns the stages and module registry as JSON.
//
// Parameters:
//   - source: pointer to the module source (UTF-8)
//   - source_len: length of source in bytes
//   - file: NUL-terminated path of the source, used to resolve #include
//     (can be NULL)
//   - out_json: pointer to receive JSON result (caller must free with glslmod_free)
//   - out_len: pointer to receive JSON length
//
// Returns:
//   - 0 on success
//   - non-zero error code on failure
//
//export glslmod_preprocess
func glslmod_preprocess(source *C.char, source_len C.int, file *C.char, out_json **C.char, out_len *C.int) C.int {
	if source == nil || out_json == nil || out_len == nil {
		return GLSLMOD_ERR_NULL_INPUT
	}

	goFile := ""
	if file != nil {
		goFile = C.GoString(file)
	}
	result := api.Preprocess(C.GoStringN(source, source_len), goFile, nil)

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return GLSLMOD_ERR_JSON_ENCODE
	}

	*out_json = C.CString(string(jsonBytes))
	*out_len = C.int(len(jsonBytes))

	return GLSLMOD_OK
}

// glslmod_reflect describes the uniform buffers, sampled images and push
// constants of a SPIR-V module as JSON.
//
// Parameters:
//   - bytecode: pointer to the SPIR-V words
//   - bytecode_len: length of bytecode in bytes
//   - out_json: pointer to receive JSON result (caller must free with glslmod_free)
//   - out_len: pointer to receive JSON length
//
// Returns:
//   - 0 on success
//   - non-zero error code on failure
//
//export glslmod_reflect
func glslmod_reflect(bytecode unsafe.Pointer, bytecode_len C.int, out_json **C.char, out_len *C.int) C.int {
	if bytecode == nil || out_json == nil || out_len == nil {
		return GLSLMOD_ERR_NULL_INPUT
	}

	result := api.Reflect(C.GoBytes(bytecode, bytecode_len), "shader")

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return GLSLMOD_ERR_JSON_ENCODE
	}

	*out_json = C.CString(string(jsonBytes))
	*out_len = C.int(len(jsonBytes))

	return GLSLMOD_OK
}

// glslmod_free frees memory allocated by glslmod functions.
//
// Parameters:
//   - ptr: pointer returned from glslmod_build, glslmod_preprocess or glslmod_reflect
//
//export glslmod_free
func glslmod_free(ptr *C.char) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}

// glslmod_version returns the library version string.
// The returned pointer is static and must NOT be freed.
//
//export glslmod_version
func glslmod_version() *C.char {
	return versionC
}

// Required for c-archive build mode
func main() {}
