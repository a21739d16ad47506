// Package llm implements the AI.LLM core service (spec.md §4.2.4,
// supplemented in SPEC_FULL.md §4 from
// _examples/original_source/src/runtime/ai/llm/{model,lora}.cc): model
// load, context create/destroy/info, dump/restore state, and LoRA
// load/attach/detach, with compatibility constraints checked via
// github.com/Masterminds/semver/v3 and remote model fetch via
// github.com/hashicorp/go-getter.
package llm

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"
	getter "github.com/hashicorp/go-getter"
	"github.com/teranos/qntx-runtime/rterr"
)

// Model is a loaded language model handle.
type Model struct {
	ID       uint64
	Path     string
	Version  *semver.Version
	loaded   bool
	mu       sync.Mutex
	contexts map[uint64]*Context
}

// Service owns loaded models, contexts, and LoRA adapters, plus the
// model search paths ModelLoad walks in order.
type Service struct {
	mu          sync.Mutex
	models      map[uint64]*Model
	nextID      uint64
	searchPaths []string // e.g. SOCKET_RUNTIME_AI_LLM_MODEL_PATH equivalents, then userConfig, then cwd
	loraPaths   []string
}

// New constructs an AI.LLM service. ModelLoad tries an absolute name
// first, then each of searchPaths in order, then the process cwd.
// loraPaths is stored on the Service but LoRALoad does not consult it;
// LoRALoad walks its own fallback chain (see LoRA).
func New(searchPaths, loraPaths []string) *Service {
	return &Service{
		models:      make(map[uint64]*Model),
		searchPaths: searchPaths,
		loraPaths:   loraPaths,
	}
}

func (s *Service) allocID() uint64 {
	return atomic.AddUint64(&s.nextID, 1)
}

// resolveFile walks name against searchPaths and the process cwd,
// returning the first existing regular file.
func resolveFile(name string, searchPaths []string) (string, bool) {
	if filepath.IsAbs(name) {
		if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
			return name, true
		}
	}
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, true
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// ModelLoad implements ai.llm.model.load: resolves name against the
// search-path chain (or a remote URI via go-getter when name looks like
// one). When requiredConstraint is non-empty, the model's version tag is
// checked against it and recorded on the Model.
func (s *Service) ModelLoad(ctx context.Context, name string, requiredConstraint string) (*Model, error) {
	path, ok := resolveFile(name, s.searchPaths)
	if !ok {
		if isRemoteURI(name) {
			fetched, err := s.fetchRemote(ctx, name)
			if err != nil {
				return nil, err
			}
			path = fetched
		} else {
			return nil, rterr.NotFound("model %q not found on search path", name)
		}
	}

	var version *semver.Version
	if requiredConstraint != "" {
		c, err := semver.NewConstraint(requiredConstraint)
		if err != nil {
			return nil, rterr.BadRequest("invalid version constraint %q: %v", requiredConstraint, err)
		}
		v := readModelVersionTag(path)
		if v == nil {
			return nil, rterr.BadRequest("model %q carries no version tag to check against %q", name, requiredConstraint)
		}
		if !c.Check(v) {
			return nil, rterr.BadRequest("model %q version %s does not satisfy %q", name, v, requiredConstraint)
		}
		version = v
	}

	id := s.allocID()
	m := &Model{ID: id, Path: path, Version: version, loaded: true, contexts: make(map[uint64]*Context)}
	s.mu.Lock()
	s.models[id] = m
	s.mu.Unlock()
	return m, nil
}

// readModelVersionTag reads a sidecar "<model>.version" file if present.
// A missing or unparsable tag yields nil; ModelLoad then rejects any load
// that names a version constraint.
func readModelVersionTag(modelPath string) *semver.Version {
	data, err := os.ReadFile(modelPath + ".version")
	if err != nil {
		return nil
	}
	v, err := semver.NewVersion(trimNewline(string(data)))
	if err != nil {
		return nil
	}
	return v
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func isRemoteURI(name string) bool {
	for _, prefix := range []string{"http://", "https://", "git::", "s3::", "gcs::"} {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// fetchRemote downloads a model URI into the first configured search
// path (or a temp directory, absent one) using go-getter, the same
// library the extension loader uses for remote plugin binaries.
func (s *Service) fetchRemote(ctx context.Context, uri string) (string, error) {
	dest := os.TempDir()
	if len(s.searchPaths) > 0 && s.searchPaths[0] != "" {
		dest = s.searchPaths[0]
	}
	target := filepath.Join(dest, filepath.Base(uri))

	client := &getter.Client{
		Ctx:  ctx,
		Src:  uri,
		Dst:  target,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return "", rterr.Internal("fetching model %q: %v", uri, err)
	}
	return target, nil
}

// Info reports the model's id, path, load state, and version tag.
func (m *Model) Info() map[string]interface{} {
	info := map[string]interface{}{
		"id":     m.ID,
		"path":   m.Path,
		"loaded": m.loaded,
	}
	if m.Version != nil {
		info["version"] = m.Version.String()
	}
	return info
}

// Get looks up a loaded model by id.
func (s *Service) Get(id uint64) (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[id]
	if !ok {
		return nil, rterr.NotFound("no loaded model %d", id)
	}
	return m, nil
}

// Unload destroys a model and all of its contexts.
func (s *Service) Unload(id uint64) error {
	s.mu.Lock()
	m, ok := s.models[id]
	if ok {
		delete(s.models, id)
	}
	s.mu.Unlock()
	if !ok {
		return rterr.NotFound("no loaded model %d", id)
	}
	m.mu.Lock()
	m.loaded = false
	m.mu.Unlock()
	return nil
}
