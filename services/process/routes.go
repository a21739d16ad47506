package process

import (
	"syscall"

	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the child_process.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("child_process.spawn", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		argv, aerr := msg.Require("args")
		if aerr != nil {
			reply(bridge.Fail(msg, toWire(aerr)))
			return
		}
		opts := Options{
			Cwd:         firstOr(msg, "cwd", ""),
			AllowStdin:  msg.OptionalBool("stdin", false),
			AllowStdout: msg.OptionalBool("stdout", true),
			AllowStderr: msg.OptionalBool("stderr", true),
		}
		serr := s.Spawn(id, argv, opts,
			func(stream string, chunk []byte) {
				qr := router.Queued.Put(chunk, "Content-Type: application/octet-stream")
				reply(bridge.Ok(msg, map[string]interface{}{"stream": stream, "id": qr.ID, "length": qr.Length}))
			},
			func(code int) {
				reply(bridge.Ok(msg, map[string]interface{}{"event": "exit", "code": code}))
			},
		)
		if serr != nil {
			reply(bridge.Fail(msg, toWire(serr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"id": id}))
	})

	r.Register("child_process.exec", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		argv, aerr := msg.Require("args")
		if aerr != nil {
			reply(bridge.Fail(msg, toWire(aerr)))
			return
		}
		opts := Options{Cwd: firstOr(msg, "cwd", "")}
		stdout, stderr, eerr := s.Exec(0, argv, opts)
		if eerr != nil {
			reply(bridge.Fail(msg, toWire(eerr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"stdout": string(stdout), "stderr": string(stderr)}))
	})

	r.Register("child_process.write", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.Write(id, msg.Buffer); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("child_process.kill", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		sig := syscall.SIGTERM
		if name, ok := msg.Get("signal"); ok && name == "SIGKILL" {
			sig = syscall.SIGKILL
		}
		if err := s.Kill(id, sig); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("process.env.get", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		key, err := msg.Require("key")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"key": key, "value": s.GetEnv(key)}))
	})

	r.Register("process.env.set", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		key, err := msg.Require("key")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		value, verr := msg.Require("value")
		if verr != nil {
			reply(bridge.Fail(msg, toWire(verr)))
			return
		}
		if serr := s.SetEnv(key, value); serr != nil {
			reply(bridge.Fail(msg, toWire(serr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"key": key, "value": value}))
	})
}

func firstOr(msg *bridge.Message, key, def string) string {
	if v, ok := msg.Get(key); ok {
		return v
	}
	return def
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
