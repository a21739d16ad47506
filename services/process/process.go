// Package process implements the Process core service (spec.md §4.2.3):
// spawn/exec/kill/write with stdout/stderr pumps and exec timeouts.
// Argv parsing uses github.com/kballard/go-shellquote, following the
// teacher's plugin/grpc/loader.go use of shell-quoted command strings.
package process

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/teranos/qntx-runtime/rterr"
)

// Options configures spawn/exec.
type Options struct {
	Cwd         string
	Env         []string
	AllowStdin  bool
	AllowStdout bool
	AllowStderr bool
	Timeout     time.Duration
	KillSignal  syscall.Signal
}

// StreamCallback delivers one chunk of stdout/stderr, streamed with
// seq="-1" as a binary queued response (spec.md §4.2.3).
type StreamCallback func(stream string, chunk []byte)

// ExitCallback delivers the terminal exit/close events with {code}.
type ExitCallback func(code int)

// proc tracks one spawned child for Write/Kill.
type proc struct {
	cmd    *exec.Cmd
	stdin  interface{ Write([]byte) (int, error) }
	cancel context.CancelFunc
}

// Service owns spawned children keyed by the caller's id.
type Service struct {
	mu    sync.Mutex
	procs map[uint64]*proc
}

// New constructs a process service.
func New() *Service {
	return &Service{procs: make(map[uint64]*proc)}
}

// Spawn implements child_process.spawn: streams stdout/stderr as they
// arrive and invokes onExit once the process terminates.
func (s *Service) Spawn(id uint64, argv string, opts Options, onStream StreamCallback, onExit ExitCallback) error {
	args, err := shellquote.Split(argv)
	if err != nil || len(args) == 0 {
		return rterr.BadRequest("invalid args for spawn: %v", argv)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = opts.Cwd
	if len(opts.Env) > 0 {
		cmd.Env = opts.Env
	}

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	if opts.AllowStdout {
		cmd.Stdout = stdoutW
	}
	if opts.AllowStderr {
		cmd.Stderr = stderrW
	}
	var stdin interface{ Write([]byte) (int, error) }
	if opts.AllowStdin {
		w, err := cmd.StdinPipe()
		if err != nil {
			cancel()
			return rterr.Internal("stdin pipe: %v", err)
		}
		stdin = w
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return rterr.Internal("spawn: %v", err)
	}

	s.mu.Lock()
	s.procs[id] = &proc{cmd: cmd, stdin: stdin, cancel: cancel}
	s.mu.Unlock()

	if opts.AllowStdout {
		go pump("stdout", stdoutR, onStream)
	}
	if opts.AllowStderr {
		go pump("stderr", stderrR, onStream)
	}

	go func() {
		err := cmd.Wait()
		stdoutW.Close()
		stderrW.Close()
		code := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
			} else {
				code = -1
			}
		}
		s.mu.Lock()
		delete(s.procs, id)
		s.mu.Unlock()
		onExit(code)
	}()

	return nil
}

// Exec implements child_process.exec: buffers stdout/stderr to
// completion and replies once. On timeout it sends killSignal (when set)
// and returns an InternalError whose message is "ETIMEDOUT"; the error
// carries no code field.
func (s *Service) Exec(id uint64, argv string, opts Options) (stdout, stderr []byte, err error) {
	args, serr := shellquote.Split(argv)
	if serr != nil || len(args) == 0 {
		return nil, nil, rterr.BadRequest("invalid args for exec: %v", argv)
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = opts.Cwd
	if len(opts.Env) > 0 {
		cmd.Env = opts.Env
	}
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		if opts.KillSignal != 0 && cmd.Process != nil {
			cmd.Process.Signal(opts.KillSignal)
		}
		return outBuf.Bytes(), errBuf.Bytes(), rterr.Internal("ETIMEDOUT")
	}
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return outBuf.Bytes(), errBuf.Bytes(), rterr.Internal("exec: %v", runErr)
		}
	}
	return outBuf.Bytes(), errBuf.Bytes(), nil
}

// Write implements child_process.write, feeding bytes to the process's
// stdin when spawned with allowStdin.
func (s *Service) Write(id uint64, data []byte) error {
	s.mu.Lock()
	p, ok := s.procs[id]
	s.mu.Unlock()
	if !ok {
		return rterr.NotFound("no spawned process %d", id)
	}
	if p.stdin == nil {
		return rterr.NotSupported("process %d was not spawned with allowStdin", id)
	}
	_, err := p.stdin.Write(data)
	return err
}

// Kill implements child_process.kill.
func (s *Service) Kill(id uint64, sig syscall.Signal) error {
	s.mu.Lock()
	p, ok := s.procs[id]
	s.mu.Unlock()
	if !ok {
		return rterr.NotFound("no spawned process %d", id)
	}
	if p.cmd.Process == nil {
		return rterr.Internal("process %d has no OS handle", id)
	}
	return p.cmd.Process.Signal(sig)
}

// GetEnv/SetEnv implement process.env.get/process.env.set: the current
// process's own environment, distinct from a spawned child's Options.Env.
func (s *Service) GetEnv(key string) string {
	return os.Getenv(key)
}

func (s *Service) SetEnv(key, value string) error {
	return os.Setenv(key, value)
}

func pump(stream string, r *io.PipeReader, cb StreamCallback) {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			cb(stream, chunk)
		}
		if err != nil {
			return
		}
	}
}
