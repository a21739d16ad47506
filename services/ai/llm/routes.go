package llm

import (
	"context"
	"sync"

	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the ai.llm.* route surface (spec.md §6.3) to svc.
func RegisterRoutes(r *bridge.Router, svc *Service, userConfigLoRAPath string) {
	r.Register("ai.llm.model.load", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		name, err := m.Require("name")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("name")))
			return
		}
		constraint, _ := m.Get("version")
		model, lerr := svc.ModelLoad(context.Background(), name, constraint)
		if lerr != nil {
			reply(bridge.Fail(m, toWire(lerr)))
			return
		}
		reply(bridge.Ok(m, model.Info()))
	})

	r.Register("ai.llm.model.unload", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := m.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("id")))
			return
		}
		if uerr := svc.Unload(id); uerr != nil {
			reply(bridge.Fail(m, toWire(uerr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{"id": id}))
	})

	r.Register("ai.llm.context.create", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		modelID, err := m.RequireUint64("modelId")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("modelId")))
			return
		}
		model, gerr := svc.Get(modelID)
		if gerr != nil {
			reply(bridge.Fail(m, toWire(gerr)))
			return
		}
		opts := ContextOptions{
			ContextSize: uint32(m.OptionalUint64("contextSize", 2048)),
			BatchSize:   uint32(m.OptionalUint64("batchSize", 512)),
			Threads:     int(m.OptionalUint64("threads", 4)),
		}
		c, cerr := model.ContextCreate(opts)
		if cerr != nil {
			reply(bridge.Fail(m, toWire(cerr)))
			return
		}
		reply(bridge.Ok(m, c.Info()))
	})

	r.Register("ai.llm.context.destroy", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		modelID, err := m.RequireUint64("modelId")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("modelId")))
			return
		}
		ctxID, err := m.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("id")))
			return
		}
		model, gerr := svc.Get(modelID)
		if gerr != nil {
			reply(bridge.Fail(m, toWire(gerr)))
			return
		}
		if derr := model.ContextDestroy(ctxID); derr != nil {
			reply(bridge.Fail(m, toWire(derr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{"id": ctxID}))
	})

	r.Register("ai.llm.context.info", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		c, cerr := lookupContext(svc, m)
		if cerr != nil {
			reply(bridge.Fail(m, toWire(cerr)))
			return
		}
		reply(bridge.Ok(m, c.Info()))
	})

	r.Register("ai.llm.context.dump", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		c, cerr := lookupContext(svc, m)
		if cerr != nil {
			reply(bridge.Fail(m, toWire(cerr)))
			return
		}
		blob, derr := c.Dump()
		if derr != nil {
			reply(bridge.Fail(m, toWire(derr)))
			return
		}
		reply(bridge.OkQueued(m, router.Queued.Put(blob, "")))
	})

	r.Register("ai.llm.context.restore", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		c, cerr := lookupContext(svc, m)
		if cerr != nil {
			reply(bridge.Fail(m, toWire(cerr)))
			return
		}
		if len(m.Buffer) == 0 {
			reply(bridge.Fail(m, rterr.BadRequest("restore requires a body")))
			return
		}
		if rerr := c.Restore(m.Buffer); rerr != nil {
			reply(bridge.Fail(m, toWire(rerr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{"id": c.ID}))
	})

	r.Register("ai.llm.context.generate", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		c, cerr := lookupContext(svc, m)
		if cerr != nil {
			reply(bridge.Fail(m, toWire(cerr)))
			return
		}
		prompt, perr := m.Require("prompt")
		if perr != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("prompt")))
			return
		}
		opts := GenerateOptions{MaxTokens: int(m.OptionalUint64("maxTokens", 64))}
		if gerr := c.Reply(m, prompt, opts, reply); gerr != nil {
			reply(bridge.Fail(m, toWire(gerr)))
		}
	})

	r.Register("ai.llm.lora.load", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		name, err := m.Require("name")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("name")))
			return
		}
		dir, _ := m.Get("directory")
		l, lerr := svc.LoRALoad(name, LoRAOptions{Directory: dir}, userConfigLoRAPath)
		if lerr != nil {
			reply(bridge.Fail(m, toWire(lerr)))
			return
		}
		loraRegistry.put(l)
		reply(bridge.Ok(m, l.JSON()))
	})

	r.Register("ai.llm.lora.attach", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		c, cerr := lookupContext(svc, m)
		if cerr != nil {
			reply(bridge.Fail(m, toWire(cerr)))
			return
		}
		loraID, err := m.RequireUint64("loraId")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("loraId")))
			return
		}
		l, ok := loraRegistry.lookup(loraID)
		if !ok {
			reply(bridge.Fail(m, rterr.NotFound("no loaded lora %d", loraID)))
			return
		}
		if aerr := c.Attach(l); aerr != nil {
			reply(bridge.Fail(m, toWire(aerr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{"id": loraID}))
	})

	r.Register("ai.llm.lora.detach", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		c, cerr := lookupContext(svc, m)
		if cerr != nil {
			reply(bridge.Fail(m, toWire(cerr)))
			return
		}
		// The "loraId" parameter here unambiguously names the lora, not the
		// context, resolving the original's detach(id) ambiguity in favor
		// of the per-context attachment list Attach/Detach already use.
		loraID, err := m.RequireUint64("loraId")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("loraId")))
			return
		}
		if derr := c.Detach(loraID); derr != nil {
			reply(bridge.Fail(m, toWire(derr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{"id": loraID}))
	})
}

func lookupContext(svc *Service, m *bridge.Message) (*Context, error) {
	modelID, err := m.RequireUint64("modelId")
	if err != nil {
		return nil, rterr.InvalidParam("modelId")
	}
	ctxID, err := m.RequireUint64("contextId")
	if err != nil {
		return nil, rterr.InvalidParam("contextId")
	}
	model, gerr := svc.Get(modelID)
	if gerr != nil {
		return nil, gerr
	}
	return model.GetContext(ctxID)
}

// toWire narrows an error known to already be a *rterr.WireError (every
// constructor in rterr returns one); it exists only to keep route bodies
// free of repeated type assertions.
func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}

// loraRegistry tracks loaded LoRA adapters by id so lora.attach/detach
// routes can resolve one without threading it through the model/context
// tree (a LoRA is not scoped to a single model).
var loraRegistry = newLoRARegistry()

type loraReg struct {
	mu   sync.Mutex
	byID map[uint64]*LoRA
}

func newLoRARegistry() *loraReg {
	return &loraReg{byID: make(map[uint64]*LoRA)}
}

func (r *loraReg) lookup(id uint64) (*LoRA, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	return l, ok
}

func (r *loraReg) put(l *LoRA) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[l.ID] = l
}
