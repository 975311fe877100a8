//go:build js && wasm

// Command glslmod-wasm is the WebAssembly build of glslmod.
// It exposes module expansion and SPIR-V reflection to JavaScript via
// syscall/js. Compiling needs glslangValidator and is not available here.
package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/HugoDaniel/glslmod/pkg/api"
)

var version = "0.1.0"

func main() {
	js.Global().Set("__glslmod", js.ValueOf(map[string]interface{}{
		"preprocess": js.FuncOf(preprocessJS),
		"reflect":    js.FuncOf(reflectJS),
		"version":    version,
	}))

	// Keep the Go runtime alive
	select {}
}

// preprocessJS expands a module source.
// Signature: __glslmod.preprocess(source: string, file?: string) => object
func preprocessJS(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("preprocess requires at least 1 argument (source)")
	}

	source := args[0].String()
	file := ""
	if len(args) > 1 && args[1].Type() == js.TypeString {
		file = args[1].String()
	}

	// There is no file system to search, so #include always fails.
	return toJS(api.Preprocess(source, file, []string{}))
}

// reflectJS describes the resources of a SPIR-V module.
// Signature: __glslmod.reflect(bytecode: Uint8Array, stage?: string) => object
func reflectJS(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return makeError("reflect requires a Uint8Array argument (bytecode)")
	}

	bytecode := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(bytecode, args[0])

	stage := "shader"
	if len(args) > 1 && args[1].Type() == js.TypeString {
		stage = args[1].String()
	}

	return toJS(api.Reflect(bytecode, stage))
}

// toJS round-trips v through JSON.parse so the result is a plain object.
func toJS(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return makeError(err.Error())
	}
	return js.Global().Get("JSON").Call("parse", string(data))
}

// makeError creates a result object with an error.
func makeError(msg string) interface{} {
	return map[string]interface{}{
		"errors": []interface{}{msg},
	}
}
