package serviceworker

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/teranos/qntx-runtime/rterr"
)

// Engine executes a registered worker's compiled module via wazero,
// grounded on ats/wasm/engine.go's alloc/call/free shared-memory
// protocol ((ptr<<32)|len packed results, wasm_alloc/wasm_free exports).
// Unlike that engine's single embedded module, each scope gets its own
// compiled module loaded from Options.ScriptURL, since registrations are
// registered dynamically rather than built into the binary.
type Engine struct {
	runtime wazero.Runtime

	mu      sync.Mutex
	modules map[string]api.Module // keyed by registration scope
}

// NewEngine constructs a wazero runtime shared across every registered
// worker module.
func NewEngine(ctx context.Context) *Engine {
	return &Engine{
		runtime: wazero.NewRuntime(ctx),
		modules: make(map[string]api.Module),
	}
}

// Close releases the wazero runtime and every instantiated module.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Load compiles and instantiates the worker module named by
// scriptPath (a local file path) under scope. Container does not call
// it; a module must be loaded under a registration's scope before Emit
// can reach that registration.
func (e *Engine) Load(ctx context.Context, scope string, scriptPath string) error {
	wasmBytes, err := os.ReadFile(scriptPath)
	if err != nil {
		return rterr.NotFound("service worker script %q: %v", scriptPath, err)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return rterr.BadRequest("compiling service worker script %q: %v", scriptPath, err)
	}

	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(scope))
	if err != nil {
		return rterr.Internal("instantiating service worker at scope %q: %v", scope, err)
	}

	e.mu.Lock()
	e.modules[scope] = mod
	e.mu.Unlock()
	return nil
}

// Unload closes the module instance backing scope, if any.
func (e *Engine) Unload(ctx context.Context, scope string) error {
	e.mu.Lock()
	mod, ok := e.modules[scope]
	delete(e.modules, scope)
	e.mu.Unlock()
	if !ok {
		return nil
	}
	return mod.Close(ctx)
}

// Emit implements Container.Emitter: it marshals the fetch event into
// JSON and invokes the worker's "handleFetch" export, following the same
// alloc/call/free memory protocol ats/wasm/engine.go uses for
// qntx_core's functions.
func (e *Engine) Emit(registration *Registration, fetch FetchRequest, id uint64) error {
	e.mu.Lock()
	mod, ok := e.modules[registration.Options.Scope]
	e.mu.Unlock()
	if !ok {
		return rterr.NotFound("no loaded module for scope %q", registration.Options.Scope)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"id":       id,
		"method":   fetch.Method,
		"scheme":   fetch.Scheme,
		"host":     fetch.Hostname,
		"pathname": fetch.Pathname,
		"query":    fetch.Query,
		"headers":  fetch.Headers,
	})
	if err != nil {
		return rterr.Internal("marshaling fetch event: %v", err)
	}

	ctx := context.Background()
	_, err = callStringFn(ctx, mod, "handleFetch", string(payload))
	return err
}

// callStringFn mirrors ats/wasm/engine.go's callStringFn: input crosses
// as a (ptr,len) pair written into the module's linear memory, the
// result is packed as (ptr<<32)|len, and both buffers are freed through
// the module's wasm_alloc/wasm_free exports.
func callStringFn(ctx context.Context, mod api.Module, fnName string, input string) (string, error) {
	allocFn := mod.ExportedFunction("wasm_alloc")
	freeFn := mod.ExportedFunction("wasm_free")
	targetFn := mod.ExportedFunction(fnName)

	if allocFn == nil || freeFn == nil || targetFn == nil {
		return "", rterr.NotSupported("service worker module missing export %q", fnName)
	}

	inputBytes := []byte(input)
	inputSize := uint64(len(inputBytes))

	var inputPtr uint64
	if inputSize > 0 {
		results, err := allocFn.Call(ctx, inputSize)
		if err != nil {
			return "", rterr.Internal("wasm alloc: %v", err)
		}
		inputPtr = results[0]
		if inputPtr == 0 {
			return "", rterr.Internal("wasm alloc returned null")
		}
		if !mod.Memory().Write(uint32(inputPtr), inputBytes) {
			freeFn.Call(ctx, inputPtr, inputSize)
			return "", rterr.Internal("wasm memory write out of range")
		}
	}

	results, err := targetFn.Call(ctx, inputPtr, inputSize)
	if inputSize > 0 {
		freeFn.Call(ctx, inputPtr, inputSize)
	}
	if err != nil {
		return "", rterr.Internal("wasm call %s: %v", fnName, err)
	}

	packed := results[0]
	resultPtr := uint32(packed >> 32)
	resultLen := uint32(packed & 0xFFFFFFFF)
	if resultPtr == 0 || resultLen == 0 {
		return "", nil
	}

	resultBytes, ok := mod.Memory().Read(resultPtr, resultLen)
	if !ok {
		return "", rterr.Internal("wasm memory read out of range")
	}
	output := make([]byte, len(resultBytes))
	copy(output, resultBytes)
	freeFn.Call(ctx, uint64(resultPtr), uint64(resultLen))

	return string(output), nil
}
