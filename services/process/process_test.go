package process

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecBuffersOutput(t *testing.T) {
	svc := New()
	stdout, _, err := svc.Exec(1, "echo hello", Options{})
	require.NoError(t, err)
	assert.Contains(t, string(stdout), "hello")
}

func TestExecTimeoutReportsETIMEDOUT(t *testing.T) {
	svc := New()
	_, _, err := svc.Exec(1, "sleep 2", Options{Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ETIMEDOUT")
}

func TestSpawnStreamsStdoutAndExits(t *testing.T) {
	svc := New()
	chunks := make(chan []byte, 8)
	exitCode := make(chan int, 1)

	err := svc.Spawn(1, "echo spawned", Options{AllowStdout: true}, func(stream string, chunk []byte) {
		chunks <- chunk
	}, func(code int) {
		exitCode <- code
	})
	require.NoError(t, err)

	select {
	case c := <-exitCode:
		assert.Equal(t, 0, c)
	case <-time.After(2 * time.Second):
		t.Fatal("process never exited")
	}
}
