package core

import (
	"net/url"
	"strings"
)

const RedactedValue = "[REDACTED]"

var sensitiveKeyParts = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"api_key",
	"apikey",
	"credential",
	"signature",
}

// RedactSensitiveMap returns a copy of fields safe to hand to a log sink.
// Nested maps and slices are walked.
func RedactSensitiveMap(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if isSensitiveKey(key) {
			out[key] = RedactedValue
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

func redactValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return RedactSensitiveMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = redactValue(item)
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

// RedactURL hides userinfo and sensitive query parameters of an endpoint.
// Input that does not parse is redacted textually.
func RedactURL(raw string) string {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Opaque != "" && strings.Contains(parsed.Opaque, "@")) {
		return redactUnparsedURL(raw)
	}
	changed := false
	if parsed.User != nil {
		parsed.User = url.User(RedactedValue)
		changed = true
	}
	if parsed.RawQuery != "" {
		query := parsed.Query()
		for key := range query {
			if isSensitiveKey(key) {
				query.Set(key, RedactedValue)
				changed = true
			}
		}
		if changed {
			parsed.RawQuery = query.Encode()
		}
	}
	if !changed {
		return raw
	}
	return parsed.String()
}

// redactUnparsedURL replaces anything before the last "@" of the authority
// and the values of sensitive query parameters.
func redactUnparsedURL(raw string) string {
	start := 0
	if i := strings.Index(raw, "://"); i >= 0 {
		start = i + len("://")
	}
	end := len(raw)
	if i := strings.IndexAny(raw[start:], "/?#"); i >= 0 {
		end = start + i
	}
	if at := strings.LastIndex(raw[start:end], "@"); at >= 0 {
		raw = raw[:start] + RedactedValue + raw[start+at:]
	}

	head, rest, ok := strings.Cut(raw, "?")
	if !ok {
		return raw
	}
	query, fragment, hasFragment := strings.Cut(rest, "#")
	pairs := strings.Split(query, "&")
	for i, pair := range pairs {
		if key, _, found := strings.Cut(pair, "="); found && isSensitiveKey(key) {
			pairs[i] = key + "=" + RedactedValue
		}
	}
	out := head + "?" + strings.Join(pairs, "&")
	if hasFragment {
		out += "#" + fragment
	}
	return out
}
