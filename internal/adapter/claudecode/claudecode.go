// Package claudecode adapts a Claude Code .jsonl transcript into the
// canonical turn.Sequence. Record-format adapters live outside the core
// turn model by design, so this is a reference implementation the CLI
// parses against directly.
package claudecode

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/codalotl/turnsieve/internal/turn"
)

// skipTypes are record "type" values that never belong to a conversation
// turn (parser.py's SKIP_TYPES).
var skipTypes = map[string]struct{}{
	"progress":              {},
	"file-history-snapshot": {},
	"system":                {},
	"summary":               {},
	"queue-operation":       {},
}

// Record wraps one parsed JSONL line; the core treats it as an opaque
// turn.Record.
type Record struct {
	raw gjson.Result
}

// Parse reads a Claude Code .jsonl transcript from r and groups its
// records into alternating user/system turns (parser.py's parse_jsonl):
// each genuine user message starts a new user turn; everything else
// (assistant text, thinking, tool_use, tool_result) accumulates into the
// system turn that follows, until the next user message or end of input.
func Parse(r io.Reader) (*turn.Sequence, error) {
	var b turn.Builder
	var systemBuf []any

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	flushSystem := func() {
		if len(systemBuf) > 0 {
			b.AppendSystem(systemBuf...)
			systemBuf = nil
		}
	}

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			continue
		}
		result := gjson.ParseBytes(append([]byte(nil), line...))
		recordType := result.Get("type").String()
		if _, skip := skipTypes[recordType]; skip {
			continue
		}

		rec := Record{raw: result}
		if isUserMessage(result) {
			flushSystem()
			b.AppendUser(rec)
		} else {
			systemBuf = append(systemBuf, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan claude code transcript: %w", err)
	}
	flushSystem()

	return b.Build(), nil
}

// isUserMessage reports whether record is a genuine user message rather
// than a tool-result injected by the system (parser.py's
// _is_user_message).
func isUserMessage(record gjson.Result) bool {
	if record.Get("type").String() != "user" {
		return false
	}
	if record.Get("sourceToolAssistantUUID").Exists() && record.Get("sourceToolAssistantUUID").String() != "" {
		return false
	}

	content := record.Get("message.content")
	if content.Type == gjson.String {
		return true
	}
	if content.IsArray() {
		hasToolResult := false
		content.ForEach(func(_, block gjson.Result) bool {
			if block.Get("type").String() == "tool_result" {
				hasToolResult = true
				return false
			}
			return true
		})
		return !hasToolResult
	}
	return false
}

// TextOf implements turn.TextOf for turns produced by Parse. It
// concatenates message content strings, thinking text, tool_use
// names/inputs, and tool_result content (parser.py's extract_text),
// truncating individual tool_use argument values to 500 characters.
func TextOf(t *turn.Turn) string {
	var parts []string
	for _, r := range t.Records {
		rec, ok := r.(Record)
		if !ok {
			continue
		}
		parts = append(parts, recordText(rec.raw)...)
	}
	return strings.Join(parts, "\n")
}

func recordText(record gjson.Result) []string {
	var parts []string
	content := record.Get("message.content")

	if content.Type == gjson.String {
		return []string{content.String()}
	}
	if !content.IsArray() {
		return nil
	}

	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").String() {
		case "text":
			parts = append(parts, block.Get("text").String())
		case "thinking":
			parts = append(parts, block.Get("thinking").String())
		case "tool_use":
			name := block.Get("name").String()
			parts = append(parts, fmt.Sprintf("[tool_use: %s]", name))
			input := block.Get("input")
			if input.IsObject() {
				input.ForEach(func(k, v gjson.Result) bool {
					vs := v.String()
					if len(vs) > 500 {
						vs = vs[:500] + "..."
					}
					parts = append(parts, fmt.Sprintf("  %s: %s", k.String(), vs))
					return true
				})
			} else if input.Type == gjson.String {
				s := input.String()
				if len(s) > 1000 {
					s = s[:1000]
				}
				parts = append(parts, s)
			}
		case "tool_result":
			result := block.Get("content")
			if result.Type == gjson.String {
				parts = append(parts, result.String())
			} else if result.IsArray() {
				result.ForEach(func(_, sub gjson.Result) bool {
					if sub.Get("type").String() == "text" {
						parts = append(parts, sub.Get("text").String())
					}
					return true
				})
			}
		}
		return true
	})
	return parts
}
