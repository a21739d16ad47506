package udp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindReportsAssignedPort(t *testing.T) {
	m := NewManager()
	port, err := m.Bind(1, "127.0.0.1", 0, true)
	require.NoError(t, err)
	assert.Greater(t, port, 0)
}

func TestRecvStartStopLeavesBound(t *testing.T) {
	m := NewManager()
	_, err := m.Bind(7, "127.0.0.1", 0, true)
	require.NoError(t, err)

	require.NoError(t, m.ReadStart(7, func(data []byte, from PeerInfo) {}))
	state, _ := m.GetState(7)
	assert.NotZero(t, state&StateRecvStarted)

	require.NoError(t, m.ReadStop(7))
	state, _ = m.GetState(7)
	assert.Zero(t, state&StateRecvStarted)
	assert.NotZero(t, state&StateBound)
}

func TestSendEphemeralReachesReader(t *testing.T) {
	m := NewManager()
	port, err := m.Bind(7, "127.0.0.1", 0, true)
	require.NoError(t, err)

	received := make(chan []byte, 1)
	require.NoError(t, m.ReadStart(7, func(data []byte, from PeerInfo) {
		received <- data
	}))

	require.NoError(t, m.Send(8, []byte("x"), "127.0.0.1", port, true))

	select {
	case data := <-received:
		assert.Equal(t, []byte("x"), data)
	case <-time.After(time.Second):
		t.Fatal("never received datagram")
	}
}

func TestPauseResumeRestoresBound(t *testing.T) {
	m := NewManager()
	_, err := m.Bind(3, "127.0.0.1", 0, true)
	require.NoError(t, err)
	require.NoError(t, m.Pause(3))
	require.NoError(t, m.Resume(3))
	state, _ := m.GetState(3)
	assert.NotZero(t, state&StateBound)
	assert.Zero(t, state&StatePaused)
}
