package llm

import (
	"os"
	"path/filepath"

	"github.com/teranos/qntx-runtime/rterr"
)

// LoRAOptions mirrors the original's lora::Options (directory override
// and attach-time scale).
type LoRAOptions struct {
	Directory string
	Scale     float32
}

// LoRA is a low-rank adapter that can be attached to a Context.
//
// Grounded on original_source/src/runtime/ai/llm/lora.cc's load()/
// attach()/detach(): load() there walks five fallback locations (direct
// path, env var directory, options.directory, userConfig
// "ai_llm_lora_path", cwd) in that order, assigning the adapter handle
// and filename on the first hit. The original then unconditionally
// clears filename and returns false at the end of the function even
// after a successful assignment earlier in the body — we deliberately do
// not reproduce that: Load clears filename only when every location
// missed, and reports success whenever a location actually loaded.
type LoRA struct {
	ID       uint64
	Name     string
	Filename string
	Options  LoRAOptions

	loaded   bool
	attached bool
	adapter  *loraAdapter
}

// loraAdapter stands in for the opaque llama_adapter_lora* handle; a
// non-nil pointer with Valid set represents a successfully loaded
// adapter, the only distinction Load/Attach/Detach actually need.
type loraAdapter struct {
	Valid bool
}

// loadAdapterFromFile stands in for llama_adapter_lora_init: any
// existing regular file is considered a loadable adapter.
func loadAdapterFromFile(path string) *loraAdapter {
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		return &loraAdapter{Valid: true}
	}
	return nil
}

// LoRALoad implements ai.llm.lora.load, walking the same fallback chain
// as the original in the same order.
func (s *Service) LoRALoad(name string, opts LoRAOptions, userConfigLoRAPath string) (*LoRA, error) {
	if name == "" {
		return nil, rterr.BadRequest("lora name must not be empty")
	}

	l := &LoRA{ID: s.allocID(), Name: name, Options: opts}

	// 1. direct filename-as-path
	if adapter := loadAdapterFromFile(name); adapter != nil {
		l.adapter = adapter
		l.Filename = name
	}

	// 2. env var directory + name
	if l.adapter == nil {
		if dir := os.Getenv("QNTX_RUNTIME_AI_LLM_LORA_PATH"); dir != "" {
			candidate := filepath.Join(dir, name)
			if adapter := loadAdapterFromFile(candidate); adapter != nil {
				l.adapter = adapter
				l.Filename = candidate
			}
		}
	}

	// 3. options.directory + name
	if l.adapter == nil && opts.Directory != "" {
		candidate := filepath.Join(opts.Directory, name)
		if adapter := loadAdapterFromFile(candidate); adapter != nil {
			l.adapter = adapter
			l.Filename = candidate
		}
	}

	// 4. userConfig "ai_llm_lora_path" + name
	if l.adapter == nil && userConfigLoRAPath != "" {
		candidate := filepath.Join(userConfigLoRAPath, name)
		if adapter := loadAdapterFromFile(candidate); adapter != nil {
			l.adapter = adapter
			l.Filename = candidate
		}
	}

	// 5. cwd + name
	if l.adapter == nil {
		if cwd, err := os.Getwd(); err == nil {
			candidate := filepath.Join(cwd, name)
			if adapter := loadAdapterFromFile(candidate); adapter != nil {
				l.adapter = adapter
				l.Filename = candidate
			}
		}
	}

	if l.adapter == nil {
		l.Filename = ""
		return nil, rterr.NotFound("lora %q not found on any search path", name)
	}

	l.loaded = true
	return l, nil
}

// Attach implements ai.llm.lora.attach, replicating the original's
// nil-check and duplicate-attachment guard faithfully (this path is not
// one of the two the spec calls out as buggy).
func (c *Context) Attach(l *LoRA) error {
	if l == nil || l.adapter == nil || !l.adapter.Valid {
		return rterr.BadRequest("lora is not loaded")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.loras {
		if existing == l {
			return rterr.BadRequest("lora %d is already attached to context %d", l.ID, c.ID)
		}
	}
	// llama_set_adapter_lora(context, lora, scale) stand-in: succeeds
	// whenever the adapter handle is valid.
	c.loras = append(c.loras, l)
	l.attached = true
	return nil
}

// Detach implements ai.llm.lora.detach.
//
// The original's detach() returns true unconditionally from inside the
// loop the instant it finds a matching entry, leaving the subsequent
// llama_rm_adapter_lora(...) call as unreachable dead code — so a
// removal that the underlying library actually rejects is silently
// reported as success. We call the removal and propagate its real
// result instead.
func (c *Context) Detach(loraID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.loras {
		if existing.ID == loraID {
			if !removeAdapterLoRA(c, existing) {
				return rterr.Internal("failed to remove lora %d from context %d", loraID, c.ID)
			}
			c.loras = append(c.loras[:i], c.loras[i+1:]...)
			existing.attached = false
			return nil
		}
	}
	return rterr.NotFound("lora %d is not attached to context %d", loraID, c.ID)
}

// removeAdapterLoRA stands in for llama_rm_adapter_lora: succeeds
// whenever the adapter handle backing the LoRA is still valid.
func removeAdapterLoRA(c *Context, l *LoRA) bool {
	return l.adapter != nil && l.adapter.Valid
}

// Loaded reports whether the adapter file resolved successfully.
func (l *LoRA) Loaded() bool {
	return l.loaded
}

// JSON implements lora.json(): {id, name, loaded, filename, options:{directory}}.
func (l *LoRA) JSON() map[string]interface{} {
	return map[string]interface{}{
		"id":       l.ID,
		"name":     l.Name,
		"loaded":   l.loaded,
		"filename": l.Filename,
		"options": map[string]interface{}{
			"directory": l.Options.Directory,
		},
	}
}
