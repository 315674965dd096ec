package schema

import "strings"

// RepairJSONPayload is the best-effort recovery for near-JSON model
// output: take the substring between the first '{' and the last '}'
// and escape raw newlines inside string literals. Returns "" when no
// brace-delimited candidate exists.
func RepairJSONPayload(payload string) string {
	if payload == "" {
		return ""
	}
	start := strings.IndexByte(payload, '{')
	end := strings.LastIndexByte(payload, '}')
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return escapeNewlinesInStrings(payload[start : end+1])
}

// escapeNewlinesInStrings walks the input tracking string and escape
// state so that quotes and backslash escapes inside literals are never
// corrupted. Bare \n, \r, and \r\n inside a string literal become the
// two-character sequence \n.
func escapeNewlinesInStrings(input string) string {
	var out strings.Builder
	out.Grow(len(input))
	inString := false
	escaping := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if escaping {
			out.WriteByte(ch)
			escaping = false
			continue
		}
		if ch == '\\' && inString {
			out.WriteByte(ch)
			escaping = true
			continue
		}
		if ch == '"' {
			inString = !inString
			out.WriteByte(ch)
			continue
		}
		if (ch == '\n' || ch == '\r') && inString {
			if ch == '\r' && i+1 < len(input) && input[i+1] == '\n' {
				i++
			}
			out.WriteString(`\n`)
			continue
		}
		out.WriteByte(ch)
	}
	return out.String()
}
