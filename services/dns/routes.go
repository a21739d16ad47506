package dns

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the dns.* route surface (spec.md §6.3); dnsLookup
// resolves to dns.lookup via bridge's routeAliases.
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("dns.lookup", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		hostname, err := msg.Require("hostname")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		family := int(msg.OptionalUint64("family", 0))
		results, lerr := s.Lookup(hostname, family)
		if lerr != nil {
			reply(bridge.Fail(msg, toWire(lerr)))
			return
		}
		entries := make([]map[string]interface{}, 0, len(results))
		for _, res := range results {
			entries = append(entries, map[string]interface{}{"address": res.Address, "family": res.Family})
		}
		reply(bridge.Ok(msg, map[string]interface{}{"entries": entries}))
	})
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
