// Package bridge implements the IPC Router and Bridge (spec.md §4.1): the
// wire Message/Result/QueuedResponse data model, parameter validation, and
// the route table that dispatches parsed messages to service handlers.
package bridge

import (
	"strconv"
	"strings"

	"github.com/teranos/qntx-runtime/rterr"
	"github.com/teranos/qntx-runtime/urlkit"
)

// StreamSeq is the sentinel correlation id meaning "no reply expected,
// stream zero or more Results instead" (spec.md §3).
const StreamSeq = "-1"

// Message is a parsed IPC invocation. It is immutable after ParseMessage
// returns; handlers read it but never mutate it.
type Message struct {
	Name   string
	Seq    string
	Index  int
	Buffer []byte
	params *urlkit.SearchParams
}

// ParseMessage parses a wire-format string (spec.md §6.1): a route name
// followed by "?key=value&key=value" parameters, with an optional binary
// buffer carried out-of-band by the transport.
func ParseMessage(raw string, buffer []byte) (*Message, error) {
	name := raw
	query := ""
	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		name = raw[:idx]
		query = raw[idx+1:]
	}
	if name == "" {
		return nil, rterr.BadRequest("empty route name")
	}

	params := urlkit.NewSearchParams(query)

	m := &Message{
		Name:   resolveAlias(name),
		Buffer: buffer,
		params: params,
	}

	m.Seq, _ = params.Get("seq")
	if m.Seq == "" {
		m.Seq = StreamSeq
	}
	if idx, ok := params.Get("index"); ok {
		n, err := strconv.Atoi(idx)
		if err != nil {
			return nil, rterr.InvalidParam("index")
		}
		m.Index = n
	}

	return m, nil
}

// Get returns a raw string parameter.
func (m *Message) Get(key string) (string, bool) {
	return m.params.Get(key)
}

// GetAll returns every value bound to a repeated parameter (e.g. args[]
// arrays that arrive 0x01-delimited per spec.md §6.1 are split by the
// caller before insertion; GetAll exposes whatever was inserted).
func (m *Message) GetAll(key string) []string {
	return m.params.GetAll(key)
}

// IsStream reports whether this message expects streamed (seq=="-1")
// results rather than exactly one Result.
func (m *Message) IsStream() bool {
	return m.Seq == StreamSeq
}

// Require returns a required string parameter, or a MissingParam error
// matching router step 3 ("Expecting 'X'").
func (m *Message) Require(key string) (string, error) {
	v, ok := m.Get(key)
	if !ok || v == "" {
		return "", rterr.MissingParam(key)
	}
	return v, nil
}

// RequireUint64 parses a required decimal parameter (router step 4,
// "Invalid 'X'" on parse failure).
func (m *Message) RequireUint64(key string) (uint64, error) {
	v, err := m.Require(key)
	if err != nil {
		return 0, err
	}
	n, perr := strconv.ParseUint(v, 10, 64)
	if perr != nil {
		return 0, rterr.InvalidParam(key)
	}
	return n, nil
}

// RequireInt parses a required decimal parameter as a signed int.
func (m *Message) RequireInt(key string) (int, error) {
	v, err := m.Require(key)
	if err != nil {
		return 0, err
	}
	n, perr := strconv.Atoi(v)
	if perr != nil {
		return 0, rterr.InvalidParam(key)
	}
	return n, nil
}

// OptionalBool parses "true"/"false" with a default when absent.
func (m *Message) OptionalBool(key string, def bool) bool {
	v, ok := m.Get(key)
	if !ok {
		return def
	}
	return v == "true"
}

// OptionalUint64 parses a decimal parameter with a default when absent or
// malformed.
func (m *Message) OptionalUint64(key string, def uint64) uint64 {
	v, ok := m.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

var routeAliases = map[string]string{
	"dnsLookup": "dns.lookup",
}

func resolveAlias(name string) string {
	if canonical, ok := routeAliases[name]; ok {
		return canonical
	}
	return name
}
