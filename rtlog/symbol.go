package rtlog

// Lifecycle glyphs attached as a structured field, adapted from the
// teacher's per-domain symbol set (logger/symbol.go) down to the handful
// of states the event loop and worker-style services pass through.
const (
	FieldSymbol = "sym"

	SymLoopInit     = "○" // loop entering Init
	SymLoopRunning  = "●" // loop Idle/Polling
	SymLoopPaused   = "◐" // loop Paused
	SymLoopShutdown = "◌" // loop Stopped/Shutdown
	SymWorker       = "⋈" // service-worker lifecycle
	SymDispatch     = "→" // dispatch() hand-off
)

// WithSymbol tags a log line with a lifecycle glyph, mirroring
// logger.WithSymbol's ad-hoc usage pattern.
func WithSymbol(symbol string) func(msg string, kv ...interface{}) {
	return func(msg string, kv ...interface{}) {
		if Logger == nil {
			return
		}
		fields := append([]interface{}{FieldSymbol, symbol}, kv...)
		Logger.Infow(msg, fields...)
	}
}
