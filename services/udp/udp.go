// Package udp implements the UDP core service (spec.md §4.2.2):
// SocketManager + Socket, state bits, the read pump, and ephemeral
// one-shot sockets. Grounded on
// _examples/original_source/src/runtime/udp/{manager,socket}.cc for the
// state-bit vocabulary; the actual I/O rides Go's net.UDPConn rather than
// a hand-rolled libuv binding.
package udp

import (
	"net"
	"sync"

	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// StateBit mirrors the original's socket_state_t bitmask.
type StateBit uint32

const (
	StateNone        StateBit = 0
	StateBound       StateBit = 1 << 0
	StateConnected   StateBit = 1 << 1
	StateRecvStarted StateBit = 1 << 2
	StatePaused      StateBit = 1 << 3
	StateClosed      StateBit = 1 << 4
)

// Flag mirrors socket_flag_t.
type Flag uint32

const (
	FlagNone      Flag = 0
	FlagEphemeral Flag = 1 << 0
)

// PeerInfo is the {port, address, family} triple reported with reads and
// getPeerName/getSockName.
type PeerInfo struct {
	Address string
	Family  string
	Port    int
}

// Socket is a UDP handle with explicit state bits (spec.md §3).
type Socket struct {
	ID    uint64
	mu    sync.Mutex
	conn  *net.UDPConn
	state StateBit
	flags Flag
	local PeerInfo
	remote PeerInfo

	recvCancel chan struct{}
}

func (s *Socket) hasState(bit StateBit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state&bit != 0
}

func (s *Socket) addState(bit StateBit) {
	s.mu.Lock()
	s.state |= bit
	s.mu.Unlock()
}

func (s *Socket) clearState(bit StateBit) {
	s.mu.Lock()
	s.state &^= bit
	s.mu.Unlock()
}

// ReadCallback delivers one received datagram, streamed with seq="-1"
// (spec.md §4.2.2). If a conduit client is attached for the socket's id,
// callers should route through that instead of the router reply path
// (left to the caller: this package has no conduit dependency).
type ReadCallback func(data []byte, from PeerInfo)

// Manager is the SocketManager: bound/connected sockets keyed by u64
// (spec.md §3).
type Manager struct {
	mu      sync.Mutex
	sockets map[uint64]*Socket
}

// NewManager constructs an empty SocketManager.
func NewManager() *Manager {
	return &Manager{sockets: make(map[uint64]*Socket)}
}

func (m *Manager) get(id uint64) (*Socket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sockets[id]
	if !ok {
		return nil, rterr.NotFound("no socket %d", id)
	}
	return s, nil
}

// Bind implements udp.bind. Port 0 requests an ephemeral OS-assigned
// port; the bound port is returned for the caller's {data:{port}} reply.
func (m *Manager) Bind(id uint64, address string, port int, reuseAddr bool) (int, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(address), Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return 0, rterr.Internal("udp bind: %v", err)
	}
	local := conn.LocalAddr().(*net.UDPAddr)

	s := &Socket{ID: id, conn: conn, local: PeerInfo{Address: local.IP.String(), Family: family(local.IP), Port: local.Port}}
	s.addState(StateBound)

	m.mu.Lock()
	m.sockets[id] = s
	m.mu.Unlock()

	return local.Port, nil
}

// Connect implements udp.connect.
func (m *Manager) Connect(id uint64, address string, port int) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.remote = PeerInfo{Address: address, Port: port, Family: family(net.ParseIP(address))}
	s.mu.Unlock()
	s.addState(StateConnected)
	return nil
}

// Disconnect implements udp.disconnect.
func (m *Manager) Disconnect(id uint64) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.clearState(StateConnected)
	return nil
}

// Send implements udp.send. When ephemeral is true, a one-shot send-only
// socket is created, used for exactly this send, and closed afterward
// regardless of id's prior existence (spec.md §4.2.2 "Ephemeral sockets").
func (m *Manager) Send(id uint64, data []byte, address string, port int, ephemeral bool) error {
	if ephemeral {
		conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.ParseIP(address), Port: port})
		if err != nil {
			return rterr.Internal("udp ephemeral send: %v", err)
		}
		defer conn.Close()
		_, err = conn.Write(data)
		return mapErr(err)
	}

	s, err := m.get(id)
	if err != nil {
		return err
	}
	_, werr := s.conn.WriteToUDP(data, &net.UDPAddr{IP: net.ParseIP(address), Port: port})
	return mapErr(werr)
}

// ReadStart implements udp.readStart: registers the read pump that
// delivers every inbound datagram to cb until ReadStop or Close.
func (m *Manager) ReadStart(id uint64, cb ReadCallback) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	if s.hasState(StateRecvStarted) {
		return nil
	}
	s.addState(StateRecvStarted)
	s.mu.Lock()
	s.recvCancel = make(chan struct{})
	cancel := s.recvCancel
	s.mu.Unlock()

	go func() {
		buf := make([]byte, 65507)
		for {
			select {
			case <-cancel:
				return
			default:
			}
			n, raddr, rerr := s.conn.ReadFromUDP(buf)
			if rerr != nil {
				return
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			cb(data, PeerInfo{Address: raddr.IP.String(), Family: family(raddr.IP), Port: raddr.Port})
		}
	}()
	return nil
}

// ReadStop implements udp.readStop: leaves the socket BOUND, clearing
// RECV_STARTED (testable property 4).
func (m *Manager) ReadStop(id uint64) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.recvCancel != nil {
		close(s.recvCancel)
		s.recvCancel = nil
	}
	s.mu.Unlock()
	s.clearState(StateRecvStarted)
	return nil
}

// Pause implements the PAUSED transition by setting the PAUSED bit only:
// the bound connection is not closed, and a running read pump keeps
// delivering datagrams.
func (m *Manager) Pause(id uint64) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.addState(StatePaused)
	return nil
}

// Resume returns the socket to its pre-pause bound/connected state
// (testable property 4).
func (m *Manager) Resume(id uint64) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.clearState(StatePaused)
	return nil
}

// Close implements udp.close.
func (m *Manager) Close(id uint64) error {
	m.mu.Lock()
	s, ok := m.sockets[id]
	if ok {
		delete(m.sockets, id)
	}
	m.mu.Unlock()
	if !ok {
		return rterr.NotFound("no socket %d", id)
	}
	s.mu.Lock()
	if s.recvCancel != nil {
		close(s.recvCancel)
	}
	s.mu.Unlock()
	s.addState(StateClosed)
	return mapErr(s.conn.Close())
}

// GetPeerName/GetSockName implement their routes.
func (m *Manager) GetSockName(id uint64) (PeerInfo, error) {
	s, err := m.get(id)
	if err != nil {
		return PeerInfo{}, err
	}
	return s.local, nil
}

func (m *Manager) GetPeerName(id uint64) (PeerInfo, error) {
	s, err := m.get(id)
	if err != nil {
		return PeerInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remote.Port == 0 && s.remote.Address == "" {
		return PeerInfo{}, rterr.NotFound("socket %d has no peer", id)
	}
	return s.remote, nil
}

// GetState implements udp.getState.
func (m *Manager) GetState(id uint64) (StateBit, error) {
	s, err := m.get(id)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// Buffer selectors for BufferSize: 0 names the send buffer, 1 the
// receive buffer, matching the original's SEND_BUFFER/RECV_BUFFER enum.
const (
	SendBuffer = 0
	RecvBuffer = 1
)

// BufferSize implements os.bufferSize: with size > 0 it resizes the
// SO_SNDBUF/SO_RCVBUF buffer and reports size; with size 0 it reports 0,
// since Go's net package has no getter for the current value.
func (m *Manager) BufferSize(id uint64, size int, which int) (int, error) {
	s, err := m.get(id)
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		return 0, nil
	}
	var serr error
	if which == RecvBuffer {
		serr = s.conn.SetReadBuffer(size)
	} else {
		serr = s.conn.SetWriteBuffer(size)
	}
	if serr != nil {
		return 0, mapErr(serr)
	}
	return size, nil
}

func family(ip net.IP) string {
	if ip.To4() != nil {
		return "IPv4"
	}
	return "IPv6"
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	return rterr.Internal("%v", err)
}

// QueuedReadResult stores a received datagram as a QueuedResponse with an
// octet-stream Content-Type header, for handlers that must hand the
// payload to the router (spec.md §4.2.2 "each datagram yields a queued
// response"). The sender's PeerInfo is not recorded in it.
func QueuedReadResult(store *bridge.QueuedResponseStore, data []byte, from PeerInfo) *bridge.QueuedResponse {
	return store.Put(data, "Content-Type: application/octet-stream")
}
