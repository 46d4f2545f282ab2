package log

import (
	"maps"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// emojiMap maps the "type" field of an entry to the emoji prefixed by EmojiConsoleEncoder.
var emojiMap = map[string]string{
	"api":          "🔗",
	"auth":         "🔓",
	"request":      "🌐",
	"success":      "✅",
	"error":        "❌",
	"warning":      "⚠️",
	"database":     "💾",
	"redis":        "📦",
	"scheduler":    "🎯",
	"startup":      "🚀",
	"security":     "🔒",
	"slow_request": "🐌",
	"failover":     "🔀",
	"probe":        "🩺",
	"alert":        "📣",
	"persistence":  "🗄️",
}

// levelEmoji prefixes entries that carry neither a status nor a known type.
var levelEmoji = map[zapcore.Level]string{
	zapcore.DebugLevel:  "🐛",
	zapcore.InfoLevel:   "ℹ️",
	zapcore.WarnLevel:   "⚠️",
	zapcore.ErrorLevel:  "❌",
	zapcore.DPanicLevel: "❌",
	zapcore.PanicLevel:  "❌",
	zapcore.FatalLevel:  "❌",
}

// failedProbeEmoji replaces the probe emoji when the replica did not answer.
const failedProbeEmoji = "🚨"

// statusEmoji picks a colour by HTTP status class.
func statusEmoji(status int) string {
	switch {
	case status >= 500:
		return "🔴"
	case status >= 400:
		return "🟠"
	case status >= 300:
		return "🟡"
	default:
		return "🟢"
	}
}

// entryMarkers are the fields that decide an entry's prefix.
type entryMarkers struct {
	logType   string
	status    int64
	unhealthy bool
}

func markersOf(fields []zapcore.Field) entryMarkers {
	var m entryMarkers
	for i := range fields {
		f := &fields[i]
		switch f.Key {
		case "type":
			if f.Type == zapcore.StringType {
				m.logType = f.String
			}
		case "status":
			if f.Type == zapcore.Int64Type || f.Type == zapcore.Int32Type {
				m.status = f.Integer
			}
		case "healthy":
			if f.Type == zapcore.BoolType {
				m.unhealthy = f.Integer == 0
			}
		}
	}
	return m
}

// prefix resolves the emoji: HTTP status, then entry type, then level.
func (m entryMarkers) prefix(level zapcore.Level) string {
	if m.status > 0 {
		return statusEmoji(int(m.status))
	}
	if m.logType == "probe" && m.unhealthy {
		return failedProbeEmoji
	}
	if e, ok := emojiMap[m.logType]; ok {
		return e
	}
	return levelEmoji[level]
}

// EmojiConsoleEncoder is zap's console encoder with an emoji in front of every message.
type EmojiConsoleEncoder struct {
	zapcore.Encoder
}

// NewEmojiConsoleEncoder builds a console encoder with emoji prefixes.
func NewEmojiConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &EmojiConsoleEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

func (enc *EmojiConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if p := markersOf(fields).prefix(entry.Level); p != "" {
		entry.Message = p + " " + entry.Message
	}
	return enc.Encoder.EncodeEntry(entry, fields)
}

func (enc *EmojiConsoleEncoder) Clone() zapcore.Encoder {
	return &EmojiConsoleEncoder{Encoder: enc.Encoder.Clone()}
}

// GetEmojiMap returns a copy of the type mapping.
func GetEmojiMap() map[string]string {
	return maps.Clone(emojiMap)
}
