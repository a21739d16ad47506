package bridge

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/teranos/qntx-runtime/rterr"
)

// Result carries the outcome of a route invocation (spec.md §3, §6.2).
type Result struct {
	Seq     string
	Message *Message
	Data    interface{}
	Err     *rterr.WireError
	Queued  *QueuedResponse
}

// wireResult is the §6.2 JSON shape: {"source":..., "data":...} or
// {"source":..., "err":{...}}.
type wireResult struct {
	Source string           `json:"source"`
	Data   interface{}      `json:"data,omitempty"`
	Err    *rterr.WireError `json:"err,omitempty"`
}

// MarshalJSON renders the Result in the wire format.
func (r *Result) MarshalJSON() ([]byte, error) {
	source := ""
	if r.Message != nil {
		source = r.Message.Name
	}
	return json.Marshal(wireResult{Source: source, Data: r.Data, Err: r.Err})
}

// Ok builds a successful Result.
func Ok(msg *Message, data interface{}) *Result {
	return &Result{Seq: msg.Seq, Message: msg, Data: data}
}

// OkQueued builds a successful Result whose payload travels via the
// QueuedResponse side channel rather than inline JSON.
func OkQueued(msg *Message, qr *QueuedResponse) *Result {
	return &Result{
		Seq:     msg.Seq,
		Message: msg,
		Data:    map[string]interface{}{"id": qr.ID, "length": qr.Length},
		Queued:  qr,
	}
}

// Fail builds an error Result.
func Fail(msg *Message, err *rterr.WireError) *Result {
	return &Result{Seq: msg.Seq, Message: msg, Err: err}
}

// QueuedResponse is a binary payload held by the runtime and retrieved
// once, by id, through the queuedResponse route (spec.md §3, invariant b
// "a QueuedResponse body is consumed at most once").
type QueuedResponse struct {
	ID      uint64
	Length  uint64
	Body    []byte
	Headers string
}

// QueuedResponseStore is the runtime-wide map keyed by id (spec.md §3).
// Entries are erased on read; ids are assigned from a monotonic counter
// so they are never reused within a process (invariant a).
type QueuedResponseStore struct {
	mu      sync.Mutex
	entries map[uint64]*QueuedResponse
	nextID  uint64
}

// NewQueuedResponseStore constructs an empty store.
func NewQueuedResponseStore() *QueuedResponseStore {
	return &QueuedResponseStore{entries: make(map[uint64]*QueuedResponse)}
}

// Put stores body/headers under a freshly allocated id and returns the
// QueuedResponse describing it.
func (s *QueuedResponseStore) Put(body []byte, headers string) *QueuedResponse {
	id := atomic.AddUint64(&s.nextID, 1)
	qr := &QueuedResponse{ID: id, Length: uint64(len(body)), Body: body, Headers: headers}
	s.mu.Lock()
	s.entries[id] = qr
	s.mu.Unlock()
	return qr
}

// Take erases and returns the entry for id, satisfying testable property
// 2: at most one successful call per id; subsequent calls report
// NotFoundError.
func (s *QueuedResponseStore) Take(id uint64) (*QueuedResponse, *rterr.WireError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qr, ok := s.entries[id]
	if !ok {
		return nil, rterr.NotFound("no queued response for id %d", id)
	}
	delete(s.entries, id)
	return qr, nil
}
