package attach

import (
	"sort"
	"strconv"
	"strings"

	"maxgram/internal/domain"
)

// maxSearchDepth bounds the recursive URL search. MAX payloads are external
// input; a malformed or self-referencing tree must not blow the stack.
const maxSearchDepth = 8

// urlFields are the known URL-bearing field names, in priority order.
var urlFields = []string{
	"baseUrl",
	"base_url",
	"url",
	"link",
	"fileUrl",
	"downloadUrl",
	"contentUrl",
	"originUrl",
	"rawUrl",
	"baseRawUrl",
	"cdnUrl",
	"previewUrl",
	"sourceUrl",
	"downloadLink",
	"viewUrl",
}

// nestedBlocks are the sub-objects MAX tends to bury the real URL in.
// They are searched before any other nested value.
var nestedBlocks = []string{"file", "preview", "image", "data"}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// FindFirstURL walks an attachment tree looking for the first string that
// looks like a URL. Known URL field names are preferred over recursive
// descent, and the file/preview/image/data blocks over everything else.
func FindFirstURL(value any) string {
	return findURL(value, maxSearchDepth)
}

func findURL(value any, depth int) string {
	if depth <= 0 {
		return ""
	}
	switch v := value.(type) {
	case string:
		if isHTTPURL(v) || strings.HasPrefix(v, "file://") {
			return v
		}
	case domain.Attachment:
		return findURL(map[string]any(v), depth)
	case map[string]any:
		for _, k := range urlFields {
			if s, ok := v[k].(string); ok && isHTTPURL(s) {
				return s
			}
		}
		for _, k := range nestedBlocks {
			if block, ok := v[k].(map[string]any); ok {
				if found := findURL(block, depth-1); found != "" {
					return found
				}
			}
		}
		// Remaining nested containers, in key order so the walk is stable.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch v[k].(type) {
			case map[string]any, []any:
				if found := findURL(v[k], depth-1); found != "" {
					return found
				}
			}
		}
	case []any:
		for _, item := range v {
			if found := findURL(item, depth-1); found != "" {
				return found
			}
		}
	}
	return ""
}

// WithToken appends the MAX auth token as a query parameter, unless the URL
// already carries one or no token is configured.
func WithToken(url, token string) string {
	if token == "" || strings.Contains(strings.ToLower(url), "token=") {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "token=" + token
}

// Resolve extracts or constructs a fetchable URL for an attachment.
// Search order: a URL anywhere in the tree, then baseUrl+id composition from
// the file/preview/data block, then the id field itself when it is already a
// URL. Returns false when nothing deliverable can be found.
func Resolve(att domain.Attachment, token string) (string, bool) {
	if att == nil {
		return "", false
	}

	if direct := FindFirstURL(att); isHTTPURL(direct) {
		return WithToken(direct, token), true
	}

	// Composition uses the first file-ish block present, matching how MAX
	// nests upload metadata.
	for _, block := range []string{"file", "preview", "data"} {
		fileData, ok := att[block].(map[string]any)
		if !ok {
			continue
		}
		base := firstString(fileData, "baseUrl", "base_url", "url")
		fileID := firstID(fileData, "id")
		if fileID == "" {
			fileID = firstID(att, "id", "fileId")
		}
		if base != "" && fileID != "" {
			url := base + "/" + fileID
			if !isHTTPURL(url) {
				url = "https://" + url
			}
			return WithToken(url, token), true
		}
		break
	}

	if id := att.String("id"); isHTTPURL(id) {
		return WithToken(id, token), true
	}

	return "", false
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstID renders the first present id-ish field as a string; MAX sends ids
// both as strings and as numbers.
func firstID(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		case int64:
			return strconv.FormatInt(v, 10)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}
