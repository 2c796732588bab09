package scraper

import (
	"bytes"
	"encoding/json"
)

// Known anti-scraping sentinels prefixed to map-search responses.
var sentinels = [][]byte{
	[]byte(")]}'\n"),
	[]byte(")]}"),
}

// DecodePayload strips the anti-scraping sentinel and decodes the
// embedded nested-array structure. A strict JSON decode is attempted
// first; on failure a permissive pass tolerates non-strict literal
// syntax (single-quoted strings, None/True/False). Returns nil when the
// payload carries nothing decodable; the caller treats that as an empty
// tile, never as a fatal condition.
func DecodePayload(body []byte) []any {
	for _, s := range sentinels {
		if bytes.HasPrefix(body, s) {
			body = body[len(s):]
			break
		}
	}

	start := bytes.IndexByte(body, '[')
	if start < 0 {
		return nil
	}
	payload := body[start:]

	var tree []any
	if err := json.Unmarshal(payload, &tree); err == nil {
		return tree
	}

	normalized, ok := normalizeLiteral(payload)
	if !ok {
		return nil
	}
	if err := json.Unmarshal(normalized, &tree); err != nil {
		return nil
	}
	return tree
}

// normalizeLiteral rewrites a Python-style literal structure into strict
// JSON: single-quoted strings become double-quoted, and the bare words
// None/True/False become null/true/false. Content inside strings is left
// untouched apart from re-escaping.
func normalizeLiteral(in []byte) ([]byte, bool) {
	var out bytes.Buffer
	out.Grow(len(in))

	i := 0
	for i < len(in) {
		c := in[i]
		switch {
		case c == '\'' || c == '"':
			quoted, next, ok := readQuoted(in, i)
			if !ok {
				return nil, false
			}
			writeJSONString(&out, quoted)
			i = next
		case hasWordAt(in, i, "None"):
			out.WriteString("null")
			i += 4
		case hasWordAt(in, i, "True"):
			out.WriteString("true")
			i += 4
		case hasWordAt(in, i, "False"):
			out.WriteString("false")
			i += 5
		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.Bytes(), true
}

// readQuoted consumes a quoted string starting at in[start], handling
// backslash escapes, and returns the unescaped content plus the index
// after the closing quote.
func readQuoted(in []byte, start int) (string, int, bool) {
	quote := in[start]
	var sb bytes.Buffer
	i := start + 1
	for i < len(in) {
		c := in[i]
		if c == '\\' && i+1 < len(in) {
			next := in[i+1]
			switch next {
			case quote, '\\', '/':
				sb.WriteByte(next)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(next)
			}
			i += 2
			continue
		}
		if c == quote {
			return sb.String(), i + 1, true
		}
		sb.WriteByte(c)
		i++
	}
	return "", 0, false
}

func writeJSONString(out *bytes.Buffer, s string) {
	encoded, _ := json.Marshal(s)
	out.Write(encoded)
}

// hasWordAt reports whether word occurs at in[i] as a standalone token.
func hasWordAt(in []byte, i int, word string) bool {
	if i+len(word) > len(in) || string(in[i:i+len(word)]) != word {
		return false
	}
	if i > 0 && isWordByte(in[i-1]) {
		return false
	}
	if i+len(word) < len(in) && isWordByte(in[i+len(word)]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
