package attach

import (
	"testing"

	"maxgram/internal/domain"
)

func TestClassify_ExplicitTypeTag(t *testing.T) {
	// The explicit tag wins regardless of MIME or filename.
	tests := []struct {
		tag  string
		want Kind
	}{
		{"PHOTO", KindPhoto},
		{"IMAGE", KindPhoto},
		{"VIDEO", KindVideo},
		{"AUDIO", KindAudio},
		{"VOICE", KindVoice},
		{"STICKER", KindSticker},
	}
	for _, tt := range tests {
		att := domain.Attachment{
			"_type":    tt.tag,
			"mimeType": "application/octet-stream",
			"name":     "whatever.bin",
		}
		if got := Classify(att); got != tt.want {
			t.Errorf("Classify(_type=%s) = %s, want %s", tt.tag, got, tt.want)
		}
	}
}

func TestClassify_LowercaseTagAndAltField(t *testing.T) {
	if got := Classify(domain.Attachment{"type": "photo"}); got != KindPhoto {
		t.Errorf("lowercase type tag: got %s, want %s", got, KindPhoto)
	}
}

func TestClassify_MimeFallback(t *testing.T) {
	tests := []struct {
		mime string
		want Kind
	}{
		{"image/png", KindPhoto},
		{"video/mp4", KindVideo},
		{"audio/ogg", KindAudio},
	}
	for _, tt := range tests {
		att := domain.Attachment{"mimeType": tt.mime}
		if got := Classify(att); got != tt.want {
			t.Errorf("Classify(mime=%s) = %s, want %s", tt.mime, got, tt.want)
		}
	}
}

func TestClassify_ExtensionFallback(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"picture.JPG", KindPhoto},
		{"clip.mov", KindVideo},
		{"song.flac", KindAudio},
		{"notes.pdf", KindDocument},
	}
	for _, tt := range tests {
		att := domain.Attachment{"fileName": tt.name}
		if got := Classify(att); got != tt.want {
			t.Errorf("Classify(name=%s) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestClassify_DocumentAndUnknown(t *testing.T) {
	if got := Classify(domain.Attachment{"_type": "FILE"}); got != KindDocument {
		t.Errorf("FILE tag: got %s, want document", got)
	}
	if got := Classify(domain.Attachment{"_type": "DOCUMENT"}); got != KindDocument {
		t.Errorf("DOCUMENT tag: got %s, want document", got)
	}
	// MIME presence alone is enough to call it a document.
	if got := Classify(domain.Attachment{"contentType": "application/zip"}); got != KindDocument {
		t.Errorf("mime only: got %s, want document", got)
	}
	if got := Classify(domain.Attachment{"_type": "STICKER_PACK"}); got != KindUnknown {
		t.Errorf("STICKER_PACK: got %s, want unknown", got)
	}
	if got := Classify(domain.Attachment{}); got != KindUnknown {
		t.Errorf("empty attachment: got %s, want unknown", got)
	}
}
