package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sswlabs/foundation/pkg/fvalue"
	"github.com/sswlabs/foundation/pkg/level"
)

// Formatter renders a survivor event into the final output bytes (spec.md
// §4.3 step 8, §6 "key_value" / "json" output formats).
type Formatter interface {
	Render(e *Event) []byte
}

var reservedRenderKeys = map[string]struct{}{
	FieldTimestamp:          {},
	FieldLevel:              {},
	FieldLoggerName:         {},
	FieldMessage:            {},
	FieldMarkers:            {},
	FieldSerializationError: {},
}

// levelEmoji maps each severity to the glyph emitted when emoji enrichment
// is on, matching the level.Level iota order.
var levelEmoji = [...]string{"🔍", "🐛", "ℹ️", "⚠️", "❌", "🔥"}

func emojiFor(lvl level.Level) string {
	if lvl < level.Trace || lvl > level.Critical {
		return ""
	}
	return levelEmoji[lvl]
}

// KeyValueFormatter renders a single `key=value ...` line per event, with
// marker tokens prepended to the message (spec.md §6). EmojiEnabled
// prepends a level-indicating glyph ahead of the markers, mirroring C10's
// emoji_enabled context field.
type KeyValueFormatter struct {
	EmojiEnabled bool
}

func (f KeyValueFormatter) Render(e *Event) []byte {
	var b strings.Builder

	if ts, ok := e.Fields.Get(FieldTimestamp); ok {
		s, _ := ts.AsString()
		b.WriteString("timestamp=")
		b.WriteString(s)
		b.WriteByte(' ')
	}
	b.WriteString("level=")
	b.WriteString(e.Level().String())
	b.WriteString(" logger=")
	b.WriteString(e.LoggerName())
	b.WriteByte(' ')

	if f.EmojiEnabled {
		b.WriteString(emojiFor(e.Level()))
		b.WriteByte(' ')
	}

	if markers, ok := e.Fields.Get(FieldMarkers); ok {
		if items, isList := markers.AsList(); isList {
			for _, m := range items {
				s, _ := m.AsString()
				b.WriteByte('[')
				b.WriteString(s)
				b.WriteByte(']')
			}
		}
	}
	message, _ := e.Fields.Get(FieldMessage)
	b.WriteString(fvalue.RenderText(message))

	for _, k := range e.Fields.Keys() {
		if _, reserved := reservedRenderKeys[k]; reserved {
			continue
		}
		v, _ := e.Fields.Get(k)
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fvalue.RenderText(v))
	}

	if se, ok := e.Fields.Get(FieldSerializationError); ok {
		b.WriteString(" serialization_error=")
		b.WriteString(fvalue.RenderText(se))
	}

	return []byte(b.String())
}

// JSONFormatter renders one JSON object per line, preserving field
// insertion order (spec.md §6: "json: one JSON object per line").
// EmojiEnabled adds a level-indicating "emoji" field, mirroring C10's
// emoji_enabled context field.
type JSONFormatter struct {
	EmojiEnabled bool
}

func (f JSONFormatter) Render(e *Event) []byte {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	writeKV := func(key string, v fvalue.Value) {
		if !first {
			b.WriteByte(',')
		}
		first = false
		writeJSONString(&b, key)
		b.WriteByte(':')
		writeJSONValue(&b, v)
	}

	if ts, ok := e.Fields.Get(FieldTimestamp); ok {
		writeKV("timestamp", ts)
	}
	lvl, _ := e.Fields.Get(FieldLevel)
	writeKV("level", lvl)
	logger, _ := e.Fields.Get(FieldLoggerName)
	writeKV("logger", logger)
	msg, _ := e.Fields.Get(FieldMessage)
	writeKV("message", msg)
	if markers, ok := e.Fields.Get(FieldMarkers); ok {
		writeKV("markers", markers)
	}
	if f.EmojiEnabled {
		writeKV("emoji", fvalue.String(emojiFor(e.Level())))
	}

	for _, k := range e.Fields.Keys() {
		if _, reserved := reservedRenderKeys[k]; reserved {
			continue
		}
		v, _ := e.Fields.Get(k)
		writeKV(k, v)
	}

	var serializationErrors []string
	if sv, ok := e.Fields.Get(FieldSerializationError); ok {
		if items, isList := sv.AsList(); isList {
			for _, it := range items {
				if s, isStr := it.AsString(); isStr {
					serializationErrors = append(serializationErrors, s)
				}
			}
		}
	}
	if len(serializationErrors) > 0 {
		if !first {
			b.WriteByte(',')
		}
		writeJSONString(&b, "_serialization_errors")
		b.WriteByte(':')
		data, _ := json.Marshal(serializationErrors)
		b.Write(data)
	}
	b.WriteByte('}')
	return []byte(b.String())
}

func writeJSONString(b *strings.Builder, s string) {
	data, _ := json.Marshal(s)
	b.Write(data)
}

func writeJSONValue(b *strings.Builder, v fvalue.Value) {
	switch v.Kind() {
	case fvalue.KindNull:
		b.WriteString("null")
	case fvalue.KindBool:
		bl, _ := v.AsBool()
		b.WriteString(strconv.FormatBool(bl))
	case fvalue.KindInt:
		i, _ := v.AsInt()
		b.WriteString(strconv.FormatInt(i, 10))
	case fvalue.KindFloat:
		f, _ := v.AsFloat()
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case fvalue.KindString:
		s, _ := v.AsString()
		writeJSONString(b, s)
	case fvalue.KindBytes:
		bs, _ := v.AsBytes()
		writeJSONString(b, base64.StdEncoding.EncodeToString(bs))
	case fvalue.KindError:
		err, _ := v.AsError()
		if err == nil {
			b.WriteString("null")
			return
		}
		writeJSONString(b, err.Error())
	case fvalue.KindList:
		items, _ := v.AsList()
		b.WriteByte('[')
		for i, it := range items {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONValue(b, it)
		}
		b.WriteByte(']')
	case fvalue.KindMap:
		m, _ := v.AsMap()
		b.WriteByte('{')
		for i, k := range m.Keys() {
			if i > 0 {
				b.WriteByte(',')
			}
			val, _ := m.Get(k)
			writeJSONString(b, k)
			b.WriteByte(':')
			writeJSONValue(b, val)
		}
		b.WriteByte('}')
	default:
		b.WriteString("null")
	}
}
