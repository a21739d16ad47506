package rtlog

import (
	"fmt"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Calm, low-ceremony console output for interactive runs of the loop's
// dedicated thread: level glyph, timestamp, logger name, message, fields.
const (
	colorReset  = "\x1b[0m"
	colorDim    = "\x1b[38;5;107m"
	colorGreen  = "\x1b[38;5;108m"
	colorYellow = "\x1b[38;5;179m"
	colorRed    = "\x1b[38;5;167m"
)

type minimalEncoder struct {
	zapcore.Encoder
}

func newMinimalEncoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:    "ts",
		LevelKey:   "level",
		NameKey:    "logger",
		MessageKey: "msg",
		EncodeTime: zapcore.TimeEncoderOfLayout("15:04:05.000"),
	}
	return &minimalEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

func levelGlyph(l zapcore.Level) (string, string) {
	switch l {
	case zapcore.DebugLevel:
		return "·", colorDim
	case zapcore.InfoLevel:
		return "●", colorGreen
	case zapcore.WarnLevel:
		return "▲", colorYellow
	default:
		return "✗", colorRed
	}
}

func (m *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := buffer.NewPool().Get()

	glyph, color := levelGlyph(ent.Level)
	buf.AppendString(color)
	buf.AppendString(glyph)
	buf.AppendString(colorReset)
	buf.AppendString(" ")
	buf.AppendString(ent.Time.Format("15:04:05.000"))
	if ent.LoggerName != "" {
		buf.AppendString(" [")
		buf.AppendString(ent.LoggerName)
		buf.AppendString("]")
	}
	buf.AppendString(" ")
	buf.AppendString(ent.Message)

	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Key, fieldValue(f)))
		}
		buf.AppendString(" " + strings.Join(parts, " "))
	}
	buf.AppendString("\n")
	return buf, nil
}

func fieldValue(f zapcore.Field) interface{} {
	switch f.Type {
	case zapcore.StringType:
		return f.String
	case zapcore.Int64Type, zapcore.Int32Type:
		return f.Integer
	default:
		if f.Interface != nil {
			return f.Interface
		}
		return f.Integer
	}
}
