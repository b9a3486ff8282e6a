package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PrettyJSONHandler is a slog.Handler that writes one indented JSON object
// per record. Keys keep their insertion order: time, level, msg, source, then
// attributes as they were added.
//
// Meant for local runs and the arena; not tuned for throughput.
type PrettyJSONHandler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Leveler
	addSource bool

	attrs  []groupedAttr
	groups []string
}

// groupedAttr remembers which groups were open when WithAttrs was called.
type groupedAttr struct {
	groups []string
	attr   slog.Attr
}

func NewPrettyJSONHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyJSONHandler {
	h := &PrettyJSONHandler{w: w, mu: &sync.Mutex{}, level: slog.LevelInfo}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.addSource = opts.AddSource
	}
	return h
}

func (h *PrettyJSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	when := r.Time
	if when.IsZero() {
		when = time.Now()
	}

	root := &object{}
	root.set("time", when.Format(time.RFC3339Nano))
	root.set("level", r.Level.String())
	root.set("msg", r.Message)
	if h.addSource {
		if src := sourceFromPC(r.PC); src != "" {
			root.set("source", src)
		}
	}

	for _, ga := range h.attrs {
		root.at(ga.groups).add(ga.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		root.at(h.groups).add(a)
		return true
	})

	var buf bytes.Buffer
	if err := root.write(&buf, ""); err != nil {
		return err
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *PrettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append([]groupedAttr(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, groupedAttr{groups: h.groups, attr: a})
	}
	return &clone
}

func (h *PrettyJSONHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// object is an insertion-ordered JSON object.
type object struct {
	keys   []string
	values map[string]any
}

func (o *object) set(k string, v any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if _, ok := o.values[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.values[k] = v
}

func (o *object) child(k string) *object {
	if c, ok := o.values[k].(*object); ok {
		return c
	}
	c := &object{}
	o.set(k, c)
	return c
}

func (o *object) at(groups []string) *object {
	dst := o
	for _, g := range groups {
		dst = dst.child(g)
	}
	return dst
}

func (o *object) add(a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		group := v.Group()
		if len(group) == 0 {
			return
		}
		dst := o
		// Inline groups with an empty key, as slog.JSONHandler does.
		if a.Key != "" {
			dst = o.child(a.Key)
		}
		for _, ga := range group {
			dst.add(ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	o.set(a.Key, valueToAny(v))
}

func (o *object) write(buf *bytes.Buffer, indent string) error {
	if len(o.keys) == 0 {
		buf.WriteString("{}")
		return nil
	}
	inner := indent + "  "
	buf.WriteString("{\n")
	for i, k := range o.keys {
		buf.WriteString(inner)
		buf.WriteString(strconv.Quote(k))
		buf.WriteString(": ")
		switch v := o.values[k].(type) {
		case *object:
			if err := v.write(buf, inner); err != nil {
				return err
			}
		default:
			b, err := json.MarshalIndent(v, inner, "  ")
			if err != nil {
				// Keep the record; lose only the value.
				b = []byte(strconv.Quote(fmt.Sprintf("!ERROR: %v", err)))
			}
			buf.Write(b)
		}
		if i < len(o.keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(indent)
	buf.WriteByte('}')
	return nil
}

func valueToAny(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		if s, ok := v.Any().(fmt.Stringer); ok {
			return s.String()
		}
		return v.Any()
	default:
		return v.String()
	}
}

func sourceFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	if f.File == "" {
		return ""
	}
	file := f.File
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return file + ":" + strconv.Itoa(f.Line)
}
