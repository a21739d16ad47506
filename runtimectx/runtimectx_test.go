package runtimectx

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teranos/qntx-runtime/ini"
)

func TestNewPromotesBundleIdentifierFromConfig(t *testing.T) {
	cfg := ini.Map{"meta_bundle_identifier": "com.example.app"}
	ctx := New(cfg, "", false)
	assert.Equal(t, "com.example.app", ctx.BundleIdentifier)
}

func TestNewOverrideTakesPrecedence(t *testing.T) {
	cfg := ini.Map{"meta_bundle_identifier": "com.example.app"}
	ctx := New(cfg, "com.override", false)
	assert.Equal(t, "com.override", ctx.BundleIdentifier)
}

func TestIsDevRequiresHostAndPort(t *testing.T) {
	ctx := New(ini.Map{
		"webview_watch_dev_host": "localhost",
		"webview_watch_dev_port": "3000",
	}, "", false)
	assert.True(t, ctx.IsDev())
	assert.Equal(t, 3000, ctx.DevPort)

	ctx2 := New(ini.Map{"webview_watch_dev_host": "localhost"}, "", false)
	assert.False(t, ctx2.IsDev())
}

func TestNilContextIsDevFalse(t *testing.T) {
	var ctx *Context
	assert.False(t, ctx.IsDev())
}
