package domain

import "strings"

// Attachment is a raw MAX attachment record. MAX sends heterogeneous shapes
// (photo, video, control events, ...) so we keep the decoded JSON tree as-is
// and let callers probe it.
type Attachment map[string]any

// TypeTag returns the uppercased platform type tag, trying the field names
// MAX has been observed to use. Empty string when none is present.
func (a Attachment) TypeTag() string {
	for _, key := range []string{"_type", "type", "kind"} {
		if s, ok := a[key].(string); ok && s != "" {
			return strings.ToUpper(s)
		}
	}
	return ""
}

// String returns the string value under key, or "" when absent or not a string.
func (a Attachment) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Map returns the nested object under key, or nil.
func (a Attachment) Map(key string) map[string]any {
	m, _ := a[key].(map[string]any)
	return m
}

// List returns the array under key, or nil.
func (a Attachment) List(key string) []any {
	l, _ := a[key].([]any)
	return l
}

// Int64 returns a numeric field as int64. JSON numbers decode as float64, but
// ids may also arrive as int64 from hand-built test fixtures.
func (a Attachment) Int64(key string) (int64, bool) {
	switch v := a[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// FileName returns the attachment's file name, if any.
func (a Attachment) FileName() string {
	if s := a.String("name"); s != "" {
		return s
	}
	return a.String("fileName")
}

// MimeType returns the attachment's MIME type, if any.
func (a Attachment) MimeType() string {
	if s := a.String("mimeType"); s != "" {
		return s
	}
	return a.String("contentType")
}

// Label renders the attachment for the "cannot deliver" fallback listing.
func (a Attachment) Label() string {
	tag := a.TypeTag()
	if tag == "" {
		tag = "UNKNOWN"
	}
	if name := a.FileName(); name != "" {
		return tag + ": " + name
	}
	return tag
}
