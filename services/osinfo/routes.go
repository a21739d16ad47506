package osinfo

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the os.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("os.cpus", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		cpus, err := s.Cpus()
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		out := make([]map[string]interface{}, 0, len(cpus))
		for _, c := range cpus {
			out = append(out, map[string]interface{}{
				"model": c.Model,
				"speed": c.MHz,
				"times": map[string]interface{}{
					"user": c.Times.User, "nice": c.Times.Nice,
					"sys": c.Times.Sys, "idle": c.Times.Idle, "irq": c.Times.IRQ,
				},
			})
		}
		reply(bridge.Ok(msg, map[string]interface{}{"cpus": out}))
	})

	r.Register("os.networkInterfaces", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		ifaces, err := s.NetworkInterfaces()
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		out := make([]map[string]interface{}, 0, len(ifaces))
		for _, iface := range ifaces {
			out = append(out, map[string]interface{}{"name": iface.Name, "addresses": iface.Addresses, "mac": iface.MAC})
		}
		reply(bridge.Ok(msg, map[string]interface{}{"interfaces": out}))
	})

	r.Register("os.uptime", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		uptime, err := s.Uptime()
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"uptime": uptime}))
	})

	r.Register("os.uname", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		info, err := s.Uname()
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{
			"sysname": info.Sysname, "release": info.Release, "version": info.Version, "machine": info.Machine,
		}))
	})

	r.Register("os.hrtime", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		reply(bridge.Ok(msg, map[string]interface{}{"time": s.Hrtime()}))
	})

	r.Register("os.rusage", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		usage, err := s.Rusage()
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"maxRSS": usage.MaxRSS}))
	})

	r.Register("os.availableMemory", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		mem, err := s.AvailableMemory()
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"available": mem}))
	})

	r.Register("os.constants", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		reply(bridge.Ok(msg, s.Constants()))
	})

	r.Register("os.paths", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		paths, err := s.Paths()
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{
			"config": paths.Config, "data": paths.Data, "cache": paths.Cache,
			"downloads": paths.Downloads, "resources": paths.Resources,
		}))
	})

	r.Register("os.bufferSize", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		size := int(msg.OptionalUint64("size", 0))
		which := int(msg.OptionalUint64("buffer", 0))
		result, berr := s.BufferSize(id, size, which)
		if berr != nil {
			reply(bridge.Fail(msg, toWire(berr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"size": result}))
	})
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
