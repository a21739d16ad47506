package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(fn func()) { fn() }

func TestPingEcho(t *testing.T) {
	r := NewRouter(noopDispatcher{})
	r.Register("ping", func(m *Message, router *Router, reply ReplyFunc) {
		reply(Ok(m, "pong"))
	})

	r.Dispatch("ping?seq=1", nil, "")
	res := <-r.Drain()
	assert.Equal(t, "1", res.Seq)
	assert.Equal(t, "pong", res.Data)
}

func TestUnknownRouteNotFound(t *testing.T) {
	r := NewRouter(noopDispatcher{})
	r.Dispatch("no.such.route?seq=1", nil, "")
	res := <-r.Drain()
	require.NotNil(t, res.Err)
	assert.Equal(t, "no.such.route", res.Message.Name)
}

func TestMissingParameter(t *testing.T) {
	r := NewRouter(noopDispatcher{})
	r.Register("fs.open", func(m *Message, router *Router, reply ReplyFunc) {
		if _, err := m.Require("path"); err != nil {
			reply(Fail(m, err))
			return
		}
		reply(Ok(m, nil))
	})
	r.Dispatch("fs.open?seq=2&id=1", nil, "")
	res := <-r.Drain()
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Err.Message, "path")
}

func TestQueuedResponseConsumedOnce(t *testing.T) {
	store := NewQueuedResponseStore()
	qr := store.Put([]byte("hi"), "Content-Type: application/octet-stream")

	got, err := store.Take(qr.ID)
	require.Nil(t, err)
	assert.Equal(t, []byte("hi"), got.Body)

	_, err2 := store.Take(qr.ID)
	require.NotNil(t, err2)
}

func TestDnsLookupAlias(t *testing.T) {
	m, err := ParseMessage("dnsLookup?hostname=example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "dns.lookup", m.Name)
}
