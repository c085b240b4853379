package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeFormat = "2006-01-02 15:04:05"

// consoleHandler writes one line per record:
//
//	2026-10-16 09:12:03 INFO uploader: sample created sample=glucose run_id=0b6f9a2e
//
// Directory fields are shortened to their base name and run ids to eight
// characters. The JSON handler keeps full values.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool
	attrs     []slog.Attr
	prefix    string
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var component string
	fields := make([]slog.Attr, 0, len(h.attrs)+record.NumAttrs())
	add := func(prefix string, attr slog.Attr) {
		attr.Value = attr.Value.Resolve()
		if prefix == "" && attr.Key == FieldComponent {
			if component == "" {
				component = attr.Value.String()
			}
			return
		}
		fields = appendFlat(fields, prefix, attr)
	}
	for _, attr := range h.attrs {
		add("", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		add(h.prefix, attr)
		return true
	})

	var buf bytes.Buffer
	buf.WriteString(ts.Format(consoleTimeFormat))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	buf.WriteByte(' ')
	if component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	buf.WriteString(msg)

	if h.addSource && record.PC != 0 {
		if src, _ := runtime.CallersFrames([]uintptr{record.PC}).Next(); src.File != "" {
			fmt.Fprintf(&buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}

	for _, field := range fields {
		buf.WriteByte(' ')
		buf.WriteString(field.Key)
		buf.WriteByte('=')
		buf.WriteString(consoleValue(field.Key, field.Value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, attr := range attrs {
		if h.prefix != "" {
			attr.Key = h.prefix + attr.Key
		}
		clone.attrs = append(clone.attrs, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// appendFlat expands groups into dotted keys.
func appendFlat(dst []slog.Attr, prefix string, attr slog.Attr) []slog.Attr {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = prefix + attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			member.Value = member.Value.Resolve()
			dst = appendFlat(dst, next, member)
		}
		return dst
	}
	attr.Key = prefix + attr.Key
	return append(dst, attr)
}

func consoleValue(key string, v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
		switch key {
		case FieldSampleDir, FieldDatasetDir:
			s = filepath.Base(s)
		case FieldRunID:
			if len(s) > 8 {
				s = s[:8]
			}
		}
	case slog.KindDuration:
		s = v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	case slog.KindFloat64:
		s = strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
