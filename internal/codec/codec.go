// Package codec converts the structured product attributes (advantage lists,
// service tags, technical specs and tab sections) to and from the text
// columns they are stored in.
//
// Decoding is total: any stored text, including legacy hand-edited values,
// decodes to a usable value and never returns an error.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/laocai-wudi/chunmpre.cn/pkg/logger"
)

// previewRunes bounds how much of a malformed value is logged.
const previewRunes = 100

// Codec decodes attribute columns, logging values it has to discard.
type Codec struct {
	logger *slog.Logger
}

// New returns a Codec that reports decode failures to l.
func New(l *slog.Logger) *Codec {
	if l == nil {
		l = logger.Discard()
	}
	return &Codec{logger: l}
}

var std = New(nil)

// EncodeList trims every line, drops blank ones and joins the rest with \n.
func EncodeList(lines []string) string {
	return strings.Join(cleanLines(lines), "\n")
}

// DecodeList splits stored text on newlines, trimming each line (including a
// trailing \r) and dropping blanks.
func DecodeList(stored string) []string {
	if stored == "" {
		return []string{}
	}
	return cleanLines(strings.Split(stored, "\n"))
}

// EncodeTags stores tags as a JSON array. Blank tags are dropped and an empty
// result encodes as "", which repositories persist as NULL.
func EncodeTags(tags []string) string {
	cleaned := cleanLines(tags)
	if len(cleaned) == 0 {
		return ""
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cleaned); err != nil {
		// A []string always encodes.
		return strings.Join(cleaned, ",")
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// DecodeTags reads a JSON array of tags. Values that are not a JSON array,
// such as the legacy "a, b, c" format, are split on commas instead.
// Non-string array items are rendered with fmt.
func DecodeTags(stored string) []string {
	if strings.TrimSpace(stored) == "" {
		return []string{}
	}

	var items []any
	dec := json.NewDecoder(strings.NewReader(stored))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil || dec.More() {
		return splitComma(stored)
	}

	tags := make([]string, 0, len(items))
	for _, item := range items {
		var tag string
		switch v := item.(type) {
		case nil:
			continue
		case string:
			tag = v
		default:
			tag = fmt.Sprint(v)
		}
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// EncodeMapping stores m as a JSON object in key order. An empty mapping
// encodes as "".
func EncodeMapping(m Mapping) string {
	if len(m) == 0 {
		return ""
	}
	b, err := m.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeMapping decodes a stored JSON object using the package logger,
// which discards diagnostics.
func DecodeMapping(stored string) Mapping {
	return std.DecodeMapping(stored)
}

// DecodeMapping decodes a stored JSON object. Empty input, invalid JSON and
// non-object values all yield an empty Mapping; the latter two are logged
// at Warn with a short preview of the offending text.
func (c *Codec) DecodeMapping(stored string) Mapping {
	trimmed := strings.TrimSpace(stored)
	if trimmed == "" {
		return Mapping{}
	}
	if trimmed == "null" {
		c.logger.Warn("discarding undecodable mapping",
			slog.String("error", "stored value is null, not an object"),
			slog.String("preview", Preview(stored)),
		)
		return Mapping{}
	}

	var m Mapping
	if err := m.UnmarshalJSON([]byte(stored)); err != nil {
		c.logger.Warn("discarding undecodable mapping",
			slog.String("error", err.Error()),
			slog.String("preview", Preview(stored)),
		)
		return Mapping{}
	}
	return m
}

// Preview returns at most the first 100 runes of s.
func Preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewRunes {
		return s
	}
	return string(runes[:previewRunes]) + "..."
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func splitComma(s string) []string {
	return cleanLines(strings.Split(s, ","))
}
