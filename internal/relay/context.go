package relay

import (
	"fmt"
	"strings"

	"maxgram/internal/domain"
)

// ResolveNameFunc resolves a MAX user id to a display name.
type ResolveNameFunc func(id int64) string

// SplitControl separates CONTROL pseudo-attachments from real media and
// renders each control event as a human-readable note.
func SplitControl(attachments []domain.Attachment, resolve ResolveNameFunc) (media []domain.Attachment, notes []string) {
	for _, att := range attachments {
		if att.TypeTag() == "CONTROL" {
			notes = append(notes, DescribeControl(att, resolve))
		} else {
			media = append(media, att)
		}
	}
	return media, notes
}

// DescribeControl renders a system/control attachment into readable text.
// Priority: the server's own short message, then call events, then known
// membership events, then a generic description of whatever fields are set.
func DescribeControl(att domain.Attachment, resolve ResolveNameFunc) string {
	if short := att.String("shortMessage"); short != "" {
		return "ℹ️ Системное сообщение: " + short
	}

	event := att.String("event")

	if callType := att.String("callType"); callType != "" {
		var icon string
		switch strings.ToUpper(callType) {
		case "VIDEO":
			icon = "📹"
		case "VOICE":
			icon = "☎️"
		default:
			icon = "📞"
		}
		name := UnknownName
		if id := controlCallerID(att); id != 0 {
			name = resolve(id)
		}
		return fmt.Sprintf("%s %s начал звонок", icon, name)
	}

	name := ""
	if id := controlUserID(att); id != 0 {
		name = resolve(id)
	}
	if name == "" || name == UnknownName {
		if inline := controlInlineName(att); inline != "" {
			name = inline
		}
	}

	switch event {
	case "add":
		if name != "" {
			return fmt.Sprintf("✅ %s добавлен(а) в группу", name)
		}
		return "✅ Участник добавлен(а) в группу"
	case "joinByLink":
		if name != "" {
			return fmt.Sprintf("🔗 %s вошёл(а) по ссылке", name)
		}
		return "🔗 Участник вошёл по ссылке"
	case "remove":
		if name != "" {
			return fmt.Sprintf("❌ %s удалён(а) из группы", name)
		}
		return "❌ Участник удалён из группы"
	case "leave":
		if name != "" {
			return fmt.Sprintf("👋 %s вышел(ла) из группы", name)
		}
		return "👋 Участник вышел из группы"
	}

	return describeGenericControl(att, event)
}

// describeGenericControl picks the first non-empty descriptive field and
// appends whatever auxiliary details are present.
func describeGenericControl(att domain.Attachment, event string) string {
	first := ""
	for _, key := range []string{"title", "text", "message", "controlType", "type", "event", "status", "action"} {
		if v := att.String(key); v != "" {
			first = v
			break
		}
	}
	if first == "" {
		if event != "" {
			first = event
		} else {
			first = "CONTROL"
		}
	}

	var extras []string
	if members := att.List("members"); len(members) > 0 {
		var names []string
		for _, m := range members {
			if label := memberLabel(m); label != "" {
				names = append(names, label)
			}
		}
		if len(names) > 0 {
			extras = append(extras, "участники: "+strings.Join(names, ", "))
		}
	}
	if v := att.String("callType"); v != "" {
		extras = append(extras, "тип звонка: "+v)
	}
	if v := att.String("action"); v != "" {
		extras = append(extras, "действие: "+v)
	}
	if v := att.String("eventType"); v != "" {
		extras = append(extras, "событие: "+v)
	}
	if v := att.String("reason"); v != "" {
		extras = append(extras, "причина: "+v)
	}
	for _, key := range []string{"member", "user", "author"} {
		if m, ok := att[key]; ok && m != nil {
			if label := memberLabel(m); label != "" {
				extras = append(extras, "участник: "+label)
			}
			break
		}
	}

	tail := ""
	if len(extras) > 0 {
		tail = " (" + strings.Join(extras, "; ") + ")"
	}
	return "ℹ️ Системное сообщение: " + first + tail
}

// memberLabel renders one member entry as name, phone, or id.
func memberLabel(v any) string {
	if m, ok := v.(map[string]any); ok {
		att := domain.Attachment(m)
		if name := att.String("name"); name != "" {
			return name
		}
		if phone := att.String("phone"); phone != "" {
			return phone
		}
		if id, ok := att.Int64("id"); ok {
			return fmt.Sprintf("%d", id)
		}
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// controlCallerID finds who started a call.
func controlCallerID(att domain.Attachment) int64 {
	for _, key := range []string{"initiatorId", "userId"} {
		if id, ok := att.Int64(key); ok && id != 0 {
			return id
		}
	}
	return 0
}

// controlUserID finds the subject of a membership event. "add" carries a
// userIds array while "remove" carries a single userId.
func controlUserID(att domain.Attachment) int64 {
	if id, ok := att.Int64("userId"); ok && id != 0 {
		return id
	}
	if ids := att.List("userIds"); len(ids) > 0 {
		if id := anyToInt64(ids[0]); id != 0 {
			return id
		}
	}
	for _, key := range []string{"memberId", "contactId"} {
		if id, ok := att.Int64(key); ok && id != 0 {
			return id
		}
	}
	for _, key := range []string{"member", "user"} {
		if m, ok := att[key].(map[string]any); ok {
			if id, ok := domain.Attachment(m).Int64("id"); ok && id != 0 {
				return id
			}
		}
	}
	return 0
}

// controlInlineName finds a name embedded directly in the event payload.
func controlInlineName(att domain.Attachment) string {
	for _, key := range []string{"member", "user", "author"} {
		if m, ok := att[key].(map[string]any); ok {
			if name := domain.Attachment(m).String("name"); name != "" {
				return name
			}
		}
	}
	return ""
}

func anyToInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
