package relay

import (
	"strings"
	"testing"

	"maxgram/internal/domain"
)

func staticResolver(names map[int64]string) ResolveNameFunc {
	return func(id int64) string {
		if name, ok := names[id]; ok {
			return name
		}
		return UnknownName
	}
}

func TestDescribeControl_MembershipEvents(t *testing.T) {
	resolve := staticResolver(map[int64]string{7: "Bob", 8: "Anna"})

	tests := []struct {
		name string
		att  domain.Attachment
		want string
	}{
		{
			name: "add with userIds array",
			att:  domain.Attachment{"_type": "CONTROL", "event": "add", "userIds": []any{float64(7)}},
			want: "✅ Bob добавлен(а) в группу",
		},
		{
			name: "join by link",
			att:  domain.Attachment{"_type": "CONTROL", "event": "joinByLink", "userId": float64(8)},
			want: "🔗 Anna вошёл(а) по ссылке",
		},
		{
			name: "remove with single userId",
			att:  domain.Attachment{"_type": "CONTROL", "event": "remove", "userId": float64(7)},
			want: "❌ Bob удалён(а) из группы",
		},
		{
			name: "leave",
			att:  domain.Attachment{"_type": "CONTROL", "event": "leave", "userId": float64(8)},
			want: "👋 Anna вышел(ла) из группы",
		},
		{
			name: "add without subject",
			att:  domain.Attachment{"_type": "CONTROL", "event": "add"},
			want: "✅ Участник добавлен(а) в группу",
		},
		{
			name: "inline name when lookup has no answer",
			att: domain.Attachment{
				"_type": "CONTROL", "event": "add",
				"user": map[string]any{"id": float64(99), "name": "Carol"},
			},
			want: "✅ Carol добавлен(а) в группу",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescribeControl(tt.att, resolve); got != tt.want {
				t.Errorf("DescribeControl = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribeControl_ShortMessageWins(t *testing.T) {
	att := domain.Attachment{
		"_type":        "CONTROL",
		"shortMessage": "Чат переименован",
		"event":        "add",
		"userId":       float64(7),
	}
	got := DescribeControl(att, staticResolver(map[int64]string{7: "Bob"}))
	if got != "ℹ️ Системное сообщение: Чат переименован" {
		t.Errorf("DescribeControl = %q", got)
	}
}

func TestDescribeControl_Calls(t *testing.T) {
	resolve := staticResolver(map[int64]string{5: "Dina"})

	tests := []struct {
		callType string
		want     string
	}{
		{"VIDEO", "📹 Dina начал звонок"},
		{"VOICE", "☎️ Dina начал звонок"},
		{"GROUP", "📞 Dina начал звонок"},
	}
	for _, tt := range tests {
		att := domain.Attachment{"_type": "CONTROL", "callType": tt.callType, "initiatorId": float64(5)}
		if got := DescribeControl(att, resolve); got != tt.want {
			t.Errorf("callType=%s: got %q, want %q", tt.callType, got, tt.want)
		}
	}

	// No initiator anywhere.
	att := domain.Attachment{"_type": "CONTROL", "callType": "VIDEO"}
	if got := DescribeControl(att, resolve); got != "📹 Неизвестно начал звонок" {
		t.Errorf("call without initiator: got %q", got)
	}
}

func TestDescribeControl_Generic(t *testing.T) {
	att := domain.Attachment{
		"_type": "CONTROL",
		"title": "Chat settings changed",
		"members": []any{
			map[string]any{"name": "Bob"},
			map[string]any{"phone": "+79001112233"},
		},
		"reason": "policy",
	}
	got := DescribeControl(att, staticResolver(nil))
	if !strings.HasPrefix(got, "ℹ️ Системное сообщение: Chat settings changed") {
		t.Errorf("generic description prefix wrong: %q", got)
	}
	if !strings.Contains(got, "участники: Bob, +79001112233") {
		t.Errorf("members missing from %q", got)
	}
	if !strings.Contains(got, "причина: policy") {
		t.Errorf("reason missing from %q", got)
	}
}

func TestDescribeControl_GenericFallsBackToEventName(t *testing.T) {
	att := domain.Attachment{"_type": "CONTROL", "event": "pinMessage"}
	if got := DescribeControl(att, staticResolver(nil)); got != "ℹ️ Системное сообщение: pinMessage" {
		t.Errorf("DescribeControl = %q", got)
	}
	empty := domain.Attachment{"_type": "CONTROL"}
	if got := DescribeControl(empty, staticResolver(nil)); got != "ℹ️ Системное сообщение: CONTROL" {
		t.Errorf("DescribeControl on empty event = %q", got)
	}
}

func TestSplitControl(t *testing.T) {
	atts := []domain.Attachment{
		{"_type": "PHOTO", "url": "https://x.example/p.jpg"},
		{"_type": "CONTROL", "event": "leave", "userId": float64(3)},
		{"_type": "VIDEO"},
	}
	media, notes := SplitControl(atts, staticResolver(map[int64]string{3: "Eve"}))
	if len(media) != 2 {
		t.Fatalf("media count = %d, want 2", len(media))
	}
	if media[0].TypeTag() != "PHOTO" || media[1].TypeTag() != "VIDEO" {
		t.Errorf("media order not preserved: %s, %s", media[0].TypeTag(), media[1].TypeTag())
	}
	if len(notes) != 1 || notes[0] != "👋 Eve вышел(ла) из группы" {
		t.Errorf("notes = %v", notes)
	}
}
