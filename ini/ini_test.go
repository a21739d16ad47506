package ini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	src := "; a comment\nmeta_bundle_identifier = com.example.app\n# another\nwebview_service_worker_mode = hybrid\n"
	m := Parse(src)
	assert.Equal(t, "com.example.app", m["meta_bundle_identifier"])
	assert.Equal(t, "hybrid", m["webview_service_worker_mode"])
}

func TestParseSections(t *testing.T) {
	src := "[webview]\nwidth = 800\n[.service_worker]\nmode = hybrid\n"
	m := Parse(src)
	require.Equal(t, "800", m["webview_width"])
	require.Equal(t, "hybrid", m["webview_service_worker_mode"])
}

func TestParseQuotedPreservesComment(t *testing.T) {
	m := Parse(`title = "hello ; world"`)
	assert.Equal(t, "hello ; world", m["title"])
}

func TestParseArrayFolding(t *testing.T) {
	src := "permissions_allow[] = camera\npermissions_allow[] = microphone\n"
	m := Parse(src)
	assert.Equal(t, "camera microphone", m["permissions_allow"])
}

func TestParseHeadersArrayNewlineJoined(t *testing.T) {
	src := "webview_headers[] = X-One: a\nwebview_headers[] = X-Two: b\n"
	m := Parse(src)
	assert.Equal(t, "X-One: a\n X-Two: b\n", m["webview_headers"])
}

func TestRoundTrip(t *testing.T) {
	m := Map{
		"meta_bundle_identifier": "com.example.app",
		"ai_llm_model_path":      "/opt/models/llama.gguf",
	}
	got := Parse(Serialize(m))
	assert.Equal(t, m, got)
}
