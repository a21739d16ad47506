// Package fs implements the FS core service (spec.md §4.2.1): a
// descriptor table plus the async file operations the router dispatches
// into it. Watchers are backed by fsnotify, following the teacher's
// am/watcher.go debounce pattern.
package fs

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/resource"
	"github.com/teranos/qntx-runtime/rterr"
)

// Descriptor is a runtime-owned handle to an open file or directory
// (spec.md §3). id is unique and never reused within the process.
type Descriptor struct {
	ID       uint64
	File     *os.File
	DirNames []string // populated lazily for opendir, consumed by readdir
	DirPos   int
	Resource *resource.Resolved
	Retained bool
	Stale    bool
}

// Service owns the descriptor table and filesystem watchers.
type Service struct {
	mu          sync.Mutex
	descriptors map[uint64]*Descriptor
	watchers    map[uint64]*watcher
	nextID      uint64
	resources   *resource.Resolver
}

// New constructs an FS service. resolver may be nil, in which case
// alternate resource origins are never consulted.
func New(resolver *resource.Resolver) *Service {
	return &Service{
		descriptors: make(map[uint64]*Descriptor),
		watchers:    make(map[uint64]*watcher),
		resources:   resolver,
	}
}

func (s *Service) allocID() uint64 {
	return atomic.AddUint64(&s.nextID, 1)
}

// Access implements fs.access: resolves alternate resource origins first
// (spec.md §4.2.1 "Alternate resource origins"), else stats the real path.
func (s *Service) Access(path string) error {
	if s.resources != nil {
		if r, ok := s.resources.Resolve(path); ok {
			if !r.Readable {
				return rterr.NotFound("resource not readable: %s", path)
			}
			return nil
		}
	}
	if _, err := os.Stat(path); err != nil {
		return mapErrno(err)
	}
	return nil
}

// Open implements fs.open, inserting a Descriptor keyed by the caller's
// requested id. flags/mode follow POSIX open(2) numeric conventions as
// the router already parsed them.
func (s *Service) Open(id uint64, path string, flags int, mode os.FileMode) error {
	f, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return mapErrno(err)
	}
	s.mu.Lock()
	s.descriptors[id] = &Descriptor{ID: id, File: f}
	s.mu.Unlock()
	return nil
}

// Close implements fs.close, removing the descriptor table entry.
func (s *Service) Close(id uint64) error {
	s.mu.Lock()
	d, ok := s.descriptors[id]
	if ok {
		delete(s.descriptors, id)
	}
	s.mu.Unlock()
	if !ok {
		return rterr.NotFound("no open descriptor %d", id)
	}
	if d.File != nil {
		return mapErrno(d.File.Close())
	}
	return nil
}

// OpenDir implements fs.opendir.
func (s *Service) OpenDir(id uint64, path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return mapErrno(err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	s.mu.Lock()
	s.descriptors[id] = &Descriptor{ID: id, DirNames: names}
	s.mu.Unlock()
	return nil
}

// ReadDir implements fs.readdir, returning up to `entries` (default 256)
// items per call; callers repeat until the descriptor is exhausted
// (spec.md §4.2.1).
func (s *Service) ReadDir(id uint64, count int) ([]string, error) {
	if count <= 0 {
		count = 256
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.descriptors[id]
	if !ok || d.DirNames == nil {
		return nil, rterr.NotFound("no open directory descriptor %d", id)
	}
	end := d.DirPos + count
	if end > len(d.DirNames) {
		end = len(d.DirNames)
	}
	batch := d.DirNames[d.DirPos:end]
	d.DirPos = end
	return batch, nil
}

// CloseDir implements fs.closedir.
func (s *Service) CloseDir(id uint64) error {
	return s.Close(id)
}

// Read implements fs.read: returns a QueuedResponse carrying the bytes
// read, with Content-Type/Content-Length headers (spec.md §4.2.1).
func (s *Service) Read(id uint64, offset int64, size int) (*bridge.QueuedResponse, error) {
	s.mu.Lock()
	d, ok := s.descriptors[id]
	s.mu.Unlock()
	if !ok || d.File == nil {
		return nil, rterr.NotFound("no open descriptor %d", id)
	}
	buf := make([]byte, size)
	n, err := d.File.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, mapErrno(err)
	}
	buf = buf[:n]
	return &bridge.QueuedResponse{Length: uint64(n), Body: buf,
		Headers: "Content-Type: application/octet-stream\r\nContent-Length: " + strconv.Itoa(n)}, nil
}

// Write implements fs.write. On a zero-length buffer it is a no-op
// reporting result:0 immediately (spec.md §4.2.1).
func (s *Service) Write(id uint64, offset int64, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	d, ok := s.descriptors[id]
	s.mu.Unlock()
	if !ok || d.File == nil {
		return 0, rterr.NotFound("no open descriptor %d", id)
	}
	n, err := d.File.WriteAt(data, offset)
	if err != nil {
		return 0, mapErrno(err)
	}
	return n, nil
}

// Stat/Lstat/Fstat implement their respective routes.
func (s *Service) Stat(path string) (os.FileInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, mapErrno(err)
	}
	return fi, nil
}

func (s *Service) Lstat(path string) (os.FileInfo, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, mapErrno(err)
	}
	return fi, nil
}

func (s *Service) Fstat(id uint64) (os.FileInfo, error) {
	s.mu.Lock()
	d, ok := s.descriptors[id]
	s.mu.Unlock()
	if !ok || d.File == nil {
		return nil, rterr.NotFound("no open descriptor %d", id)
	}
	fi, err := d.File.Stat()
	if err != nil {
		return nil, mapErrno(err)
	}
	return fi, nil
}

// Fsync/Ftruncate implement their routes.
func (s *Service) Fsync(id uint64) error {
	s.mu.Lock()
	d, ok := s.descriptors[id]
	s.mu.Unlock()
	if !ok || d.File == nil {
		return rterr.NotFound("no open descriptor %d", id)
	}
	return mapErrno(d.File.Sync())
}

func (s *Service) Ftruncate(id uint64, size int64) error {
	s.mu.Lock()
	d, ok := s.descriptors[id]
	s.mu.Unlock()
	if !ok || d.File == nil {
		return rterr.NotFound("no open descriptor %d", id)
	}
	return mapErrno(d.File.Truncate(size))
}

// Link/Symlink/Unlink/Readlink/Realpath/Rename/CopyFile/Rmdir implement
// their respective routes directly against the OS.
func (s *Service) Link(oldpath, newpath string) error    { return mapErrno(os.Link(oldpath, newpath)) }
func (s *Service) Symlink(target, link string) error      { return mapErrno(os.Symlink(target, link)) }
func (s *Service) Unlink(path string) error                { return mapErrno(os.Remove(path)) }
func (s *Service) Readlink(path string) (string, error) {
	v, err := os.Readlink(path)
	return v, mapErrno(err)
}
func (s *Service) Realpath(path string) (string, error) {
	v, err := filepath.Abs(path)
	return v, mapErrno(err)
}
func (s *Service) Rename(oldpath, newpath string) error { return mapErrno(os.Rename(oldpath, newpath)) }
func (s *Service) Rmdir(path string) error              { return mapErrno(os.Remove(path)) }

// Chmod implements fs.chmod.
func (s *Service) Chmod(path string, mode os.FileMode) error {
	return mapErrno(os.Chmod(path, mode))
}

// Chown implements fs.chown.
func (s *Service) Chown(path string, uid, gid int) error {
	return mapErrno(os.Chown(path, uid, gid))
}

// Lchown implements fs.lchown: chown the symlink itself rather than its
// target, matching lchown(2).
func (s *Service) Lchown(path string, uid, gid int) error {
	return mapErrno(syscall.Lchown(path, uid, gid))
}

// CloseOpenDescriptor implements fs.closeOpenDescriptor: close a single
// open file or directory descriptor by id (fs.close/fs.closedir's shared
// general-purpose sibling).
func (s *Service) CloseOpenDescriptor(id uint64) error {
	return s.Close(id)
}

// Constants implements fs.constants: the portable subset of POSIX open(2)
// flags the wire protocol exposes, matching filesystem::constants()'s
// static table.
func (s *Service) Constants() map[string]int {
	return map[string]int{
		"O_RDONLY": os.O_RDONLY,
		"O_WRONLY": os.O_WRONLY,
		"O_RDWR":   os.O_RDWR,
		"O_APPEND": os.O_APPEND,
		"O_CREAT":  os.O_CREATE,
		"O_EXCL":   os.O_EXCL,
		"O_SYNC":   os.O_SYNC,
		"O_TRUNC":  os.O_TRUNC,
	}
}

func (s *Service) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return mapErrno(err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return mapErrno(err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return mapErrno(err)
	}
	return nil
}

// Mkdir implements fs.mkdir. With recursive=true it walks path
// components, creating each; EEXIST on an intermediate component is
// non-fatal (spec.md §4.2.1).
func (s *Service) Mkdir(path string, mode os.FileMode, recursive bool) error {
	if recursive {
		return mapErrno(os.MkdirAll(path, mode))
	}
	err := os.Mkdir(path, mode)
	if os.IsExist(err) {
		return nil
	}
	return mapErrno(err)
}

// RetainOpenDescriptor implements fs.retainOpenDescriptor, protecting a
// descriptor from bulk close.
func (s *Service) RetainOpenDescriptor(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.descriptors[id]
	if !ok {
		return rterr.NotFound("no open descriptor %d", id)
	}
	d.Retained = true
	return nil
}

// GetOpenDescriptors implements fs.getOpenDescriptors (testable property 3).
func (s *Service) GetOpenDescriptors() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint64, 0, len(s.descriptors))
	for id := range s.descriptors {
		ids = append(ids, id)
	}
	return ids
}

// CloseOpenDescriptors implements fs.closeOpenDescriptors, sweeping the
// table. Retained descriptors survive when preserveRetained is true.
func (s *Service) CloseOpenDescriptors(preserveRetained bool) {
	s.mu.Lock()
	toClose := make([]*Descriptor, 0, len(s.descriptors))
	for id, d := range s.descriptors {
		if preserveRetained && d.Retained {
			continue
		}
		toClose = append(toClose, d)
		delete(s.descriptors, id)
	}
	s.mu.Unlock()
	for _, d := range toClose {
		if d.File != nil {
			d.File.Close()
		}
	}
}

