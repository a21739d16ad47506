// Package runtimectx threads the handful of process-wide values the
// original socket runtime kept as bare globals (src/runtime/config/global.cc:
// meta_bundle_identifier, the dev host/port, the debug flag) through an
// explicit struct instead, per spec.md §9's "Global state" guidance: a
// context struct built by New from the parsed wire config, rather than
// package-level mutable state. No other package in this tree imports it.
package runtimectx

import "github.com/teranos/qntx-runtime/ini"

// Context carries the values the original runtime exposed via
// socket_runtime_init_* globals.
type Context struct {
	// BundleIdentifier names the app bundle (e.g. "com.example.app"),
	// read from the wire config's meta_bundle_identifier key.
	BundleIdentifier string
	// DevHost and DevPort point at a local dev server when non-empty/
	// non-zero (IsDev reports whether both are set).
	DevHost string
	DevPort int
	// Debug mirrors isDebugEnabled().
	Debug bool

	// UserConfig is the parsed wire configuration (spec.md §6.6), kept
	// alongside the derived fields above for callers that need a raw
	// key beyond the three promoted here.
	UserConfig ini.Map
}

// New builds a Context from a parsed wire config. bundleIdentifier
// overrides the config's meta_bundle_identifier when non-empty.
func New(userConfig ini.Map, bundleIdentifier string, debug bool) *Context {
	if bundleIdentifier == "" {
		bundleIdentifier = userConfig["meta_bundle_identifier"]
	}
	return &Context{
		BundleIdentifier: bundleIdentifier,
		DevHost:          userConfig["webview_watch_dev_host"],
		DevPort:          atoiOrZero(userConfig["webview_watch_dev_port"]),
		Debug:            debug,
		UserConfig:       userConfig,
	}
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// IsDev reports whether a dev server host/port was configured, mirroring
// the original runtime's dev-mode branch in webview navigation.
func (c *Context) IsDev() bool {
	return c != nil && c.DevHost != "" && c.DevPort != 0
}
