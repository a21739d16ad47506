// Package resource resolves a bundle identifier to platform well-known
// directories and recognizes "alternate resource origins" — bundled
// asset paths and content://-style URIs — that the FS service consults
// before touching the real filesystem (spec.md §4.2.1, supplemented from
// _examples/original_source/src/runtime/filesystem.hh's Resource type).
package resource

import (
	"os"
	"path/filepath"
	"strings"
)

// WellKnownPaths mirrors Resource::getWellKnownPaths: the set of
// platform directories an app bundle is entitled to use.
type WellKnownPaths struct {
	Config    string
	Data      string
	Cache     string
	Downloads string
	Resources string
}

// Resolved describes an alternate resource origin match: a path that
// isn't a real filesystem entry but that the FS service should treat as
// one, reporting R_OK and a logical size (see Resolve for when a stat
// call is made).
type Resolved struct {
	Path     string
	Readable bool
	Size     int64
}

// Resolver binds a bundle identifier to its well-known paths and a set
// of mounted bundled-asset roots.
type Resolver struct {
	BundleIdentifier string
	WellKnown        WellKnownPaths
	assetRoots       []string
}

// NewResolver derives well-known paths from the host OS's standard
// locations (os.UserConfigDir/os.UserCacheDir) scoped under
// bundleIdentifier, and registers assetRoots as bundled-asset origins
// (e.g. an embedded webview resources directory).
func NewResolver(bundleIdentifier string, assetRoots ...string) *Resolver {
	cfg, _ := os.UserConfigDir()
	cache, _ := os.UserCacheDir()
	home, _ := os.UserHomeDir()

	return &Resolver{
		BundleIdentifier: bundleIdentifier,
		WellKnown: WellKnownPaths{
			Config:    filepath.Join(cfg, bundleIdentifier),
			Data:      filepath.Join(home, ".local", "share", bundleIdentifier),
			Cache:     filepath.Join(cache, bundleIdentifier),
			Downloads: filepath.Join(home, "Downloads"),
			Resources: filepath.Join(home, ".local", "share", bundleIdentifier, "resources"),
		},
		assetRoots: assetRoots,
	}
}

// Resolve reports whether path names an alternate resource origin: a
// content://-style URI, or a path under a registered bundled-asset root.
// It never touches the real filesystem for content:// URIs (those are
// platform-resolved elsewhere); for bundled-asset roots it does a single
// stat to report a logical size.
func (r *Resolver) Resolve(path string) (*Resolved, bool) {
	if strings.HasPrefix(path, "content://") {
		return &Resolved{Path: path, Readable: true, Size: -1}, true
	}
	if strings.HasPrefix(path, "android.resource://") {
		return &Resolved{Path: path, Readable: true, Size: -1}, true
	}
	for _, root := range r.assetRoots {
		if strings.HasPrefix(path, root) {
			fi, err := os.Stat(path)
			if err != nil {
				return &Resolved{Path: path, Readable: false}, true
			}
			return &Resolved{Path: path, Readable: true, Size: fi.Size()}, true
		}
	}
	return nil, false
}

// AddAssetRoot registers an additional bundled-asset root at runtime
// (e.g. once a window's webview resources directory is known).
func (r *Resolver) AddAssetRoot(root string) {
	r.assetRoots = append(r.assetRoots, root)
}
