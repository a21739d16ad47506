package llm

import (
	"sync"

	"github.com/teranos/qntx-runtime/rterr"
)

// ContextOptions mirrors the original's llama_context_params subset
// exposed over the wire (context window size, batch size, thread count).
type ContextOptions struct {
	ContextSize uint32
	BatchSize   uint32
	Threads     int
}

// Context is an inference context bound to one loaded Model.
type Context struct {
	ID      uint64
	Model   *Model
	Options ContextOptions

	mu    sync.Mutex
	state []byte // opaque dump/restore blob
	loras []*LoRA
}

// ContextCreate implements ai.llm.context.create.
func (m *Model) ContextCreate(opts ContextOptions) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return nil, rterr.BadRequest("model %d is not loaded", m.ID)
	}
	id := uint64(len(m.contexts)) + 1
	for {
		if _, exists := m.contexts[id]; !exists {
			break
		}
		id++
	}
	c := &Context{ID: id, Model: m, Options: opts}
	m.contexts[id] = c
	return c, nil
}

// ContextDestroy implements ai.llm.context.destroy.
func (m *Model) ContextDestroy(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contexts[id]; !ok {
		return rterr.NotFound("no context %d on model %d", id, m.ID)
	}
	delete(m.contexts, id)
	return nil
}

// GetContext looks up a context by id.
func (m *Model) GetContext(id uint64) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contexts[id]
	if !ok {
		return nil, rterr.NotFound("no context %d on model %d", id, m.ID)
	}
	return c, nil
}

// Info implements ai.llm.context.info.
func (c *Context) Info() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	loraIDs := make([]uint64, 0, len(c.loras))
	for _, l := range c.loras {
		loraIDs = append(loraIDs, l.ID)
	}
	return map[string]interface{}{
		"id":          c.ID,
		"modelId":     c.Model.ID,
		"contextSize": c.Options.ContextSize,
		"batchSize":   c.Options.BatchSize,
		"threads":     c.Options.Threads,
		"loras":       loraIDs,
	}
}

// Dump implements ai.llm.context.dump: snapshots the context's opaque
// conversation/KV-cache state for later restore.
func (c *Context) Dump() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return nil, rterr.NotFound("context %d has no state to dump", c.ID)
	}
	out := make([]byte, len(c.state))
	copy(out, c.state)
	return out, nil
}

// Restore implements ai.llm.context.restore.
func (c *Context) Restore(blob []byte) error {
	if len(blob) == 0 {
		return rterr.BadRequest("cannot restore an empty state blob")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = append([]byte(nil), blob...)
	return nil
}

// setState records opaque state produced by a completed generation, so a
// later Dump has something real to return.
func (c *Context) setState(blob []byte) {
	c.mu.Lock()
	c.state = blob
	c.mu.Unlock()
}
