package bluetooth

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the bluetooth.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("bluetooth.start", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		serviceID, err := msg.Require("serviceId")
		if err != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("serviceId")))
			return
		}
		if serr := s.Start(serviceID); serr != nil {
			reply(bridge.Fail(msg, toWire(serr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"serviceId": serviceID}))
	})

	r.Register("bluetooth.subscribe", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		serviceID, serr := msg.Require("serviceId")
		if serr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("serviceId")))
			return
		}
		characteristicID, cerr := msg.Require("characteristicId")
		if cerr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("characteristicId")))
			return
		}
		id, err := s.Subscribe(serviceID, characteristicID, func(data []byte) {
			qr := router.Queued.Put(data, "Content-Type: application/octet-stream")
			reply(bridge.Ok(msg, map[string]interface{}{
				"serviceId":        serviceID,
				"characteristicId": characteristicID,
				"id":               qr.ID,
				"length":           qr.Length,
			}))
		})
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"subscriptionId": id}))
	})

	r.Register("bluetooth.publish", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		serviceID, serr := msg.Require("serviceId")
		if serr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("serviceId")))
			return
		}
		characteristicID, cerr := msg.Require("characteristicId")
		if cerr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("characteristicId")))
			return
		}
		if perr := s.Publish(serviceID, characteristicID, msg.Buffer); perr != nil {
			reply(bridge.Fail(msg, toWire(perr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
