// Package attach classifies MAX attachments and resolves them to
// downloadable URLs.
package attach

import (
	"path"
	"strings"

	"maxgram/internal/domain"
)

// Kind is the semantic category an attachment maps to on the Telegram side.
type Kind string

const (
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindVoice    Kind = "voice"
	KindSticker  Kind = "sticker"
	KindDocument Kind = "document"
	KindUnknown  Kind = "unknown"
)

var (
	imageExts = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".webp": true, ".bmp": true, ".heic": true, ".heif": true,
	}
	videoExts = map[string]bool{
		".mp4": true, ".mov": true, ".mkv": true, ".avi": true,
	}
	audioExts = map[string]bool{
		".mp3": true, ".wav": true, ".ogg": true, ".m4a": true, ".flac": true,
	}
)

// Classify determines the attachment kind. The explicit type tag wins, then
// the MIME prefix, then the filename extension. Anything that still looks
// like a file becomes a document; the rest is unknown.
func Classify(att domain.Attachment) Kind {
	tag := att.TypeTag()
	mime := strings.ToLower(att.MimeType())
	name := strings.ToLower(att.FileName())

	switch tag {
	case "PHOTO", "IMAGE":
		return KindPhoto
	case "VIDEO":
		return KindVideo
	case "AUDIO":
		return KindAudio
	case "VOICE":
		return KindVoice
	case "STICKER":
		return KindSticker
	}

	switch {
	case strings.HasPrefix(mime, "image/"):
		return KindPhoto
	case strings.HasPrefix(mime, "video/"):
		return KindVideo
	case strings.HasPrefix(mime, "audio/"):
		return KindAudio
	}

	ext := path.Ext(name)
	switch {
	case imageExts[ext]:
		return KindPhoto
	case videoExts[ext]:
		return KindVideo
	case audioExts[ext]:
		return KindAudio
	}

	if tag == "FILE" || tag == "DOCUMENT" || name != "" || mime != "" {
		return KindDocument
	}
	return KindUnknown
}
