// Package platform implements the Platform core service (spec.md
// §4.2.4): receiving web-view lifecycle events and the
// openExternal/revealFile/primordials operations that hand off to the
// host OS. The actual "open in default handler" / "reveal in file
// manager" calls are host-specific collaborators (spec.md §1 lists the
// native shell integration as out of scope); this service validates
// input and forwards to an injected Opener.
package platform

import (
	"mime"
	"os"
	"path/filepath"
	"runtime"

	"github.com/teranos/qntx-runtime/rterr"
	"github.com/teranos/qntx-runtime/rtlog"
)

// Opener is the host collaborator that actually shells out to the OS
// to open a URL or reveal a path; left as an interface because spec.md
// §1 excludes native shell integration from this core.
type Opener interface {
	OpenExternal(url string) error
	RevealFile(path string) error
}

// Service handles platform.* routes.
type Service struct {
	opener    Opener
	listeners []EventListener
}

// EventListener receives webview lifecycle events (load,
// readystatechange, ...).
type EventListener func(event string, payload map[string]string)

// New constructs a Platform service. opener may be nil in headless/test
// configurations, in which case OpenExternal/RevealFile report
// NotSupportedError.
func New(opener Opener) *Service {
	return &Service{opener: opener}
}

// OnEvent registers a listener for platform.event deliveries.
func (s *Service) OnEvent(l EventListener) {
	s.listeners = append(s.listeners, l)
}

// Event implements platform.event: the web view posts `load`,
// `readystatechange`, etc.
func (s *Service) Event(event string, payload map[string]string) {
	for _, l := range s.listeners {
		l(event, payload)
	}
}

// OpenExternal implements platform.openExternal.
func (s *Service) OpenExternal(url string) error {
	if s.opener == nil {
		return rterr.NotSupported("no external-open collaborator configured")
	}
	return s.opener.OpenExternal(url)
}

// RevealFile implements platform.revealFile.
func (s *Service) RevealFile(path string) error {
	if s.opener == nil {
		return rterr.NotSupported("no file-reveal collaborator configured")
	}
	return s.opener.RevealFile(path)
}

// Primordials implements platform.primordials: the small set of
// host-identification values the web view bootstraps with.
type Primordials struct {
	Platform string
	Arch     string
}

func (s *Service) Primordials() Primordials {
	return Primordials{Platform: runtime.GOOS, Arch: runtime.GOARCH}
}

// Log implements the bare "log" route: write value to the platform
// logger at info level, mirroring the original's NSLog/__android_log_print
// fallback to printf.
func (s *Service) Log(value string) {
	rtlog.Named("app").Infow(value)
}

// SetCwd implements internal.setcwd: a private API for platforms (Android,
// ChromeOS) that must set the cached working directory from an external
// source rather than via the process's own argv[0].
func (s *Service) SetCwd(path string) error {
	return os.Chdir(path)
}

// MimeLookup implements mime.lookup: resolves path to a file:// URL plus
// its MIME type, looked up by extension as the original's
// filesystem::Resource::mimeType() does.
func (s *Service) MimeLookup(path string) (url string, mimeType string) {
	mimeType = mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "file://" + path, mimeType
}

// WriteStdout/WriteStderr implement the bare "stdout"/"stderr" routes:
// the web view pipes console output through the bridge rather than the
// process's own streams.
func (s *Service) WriteStdout(data []byte) {
	os.Stdout.Write(data)
	os.Stdout.Write([]byte("\n"))
}

func (s *Service) WriteStderr(data []byte) {
	os.Stderr.Write(data)
	os.Stderr.Write([]byte("\n"))
}
