// Package relay turns inbound MAX messages into Telegram-ready payloads and
// drives them through the delivery dispatcher.
package relay

import (
	"context"
	"log/slog"

	"maxgram/internal/cache"
	"maxgram/internal/domain"
)

// UnknownName is the fallback when a user cannot be resolved.
const UnknownName = "Неизвестно"

// NameResolver resolves MAX user ids to display names, caching results so a
// chatty user costs one directory call, not one per message.
type NameResolver struct {
	dir    domain.UserDirectory
	cache  *cache.NameCache
	logger *slog.Logger
}

func NewNameResolver(dir domain.UserDirectory, names *cache.NameCache, logger *slog.Logger) *NameResolver {
	return &NameResolver{dir: dir, cache: names, logger: logger}
}

// Resolve returns the display name for id. A cache hit never touches the
// directory; a failed or empty lookup degrades to UnknownName and is not
// cached, so a later retry can still succeed.
func (r *NameResolver) Resolve(ctx context.Context, id int64) string {
	if id == 0 {
		return UnknownName
	}
	if name, ok := r.cache.Get(id); ok {
		return name
	}
	info, err := r.dir.LookupUser(ctx, id)
	if err != nil || info.DisplayName == "" {
		if err != nil {
			r.logger.Warn("user lookup failed", "user_id", id, "err", err)
		}
		return UnknownName
	}
	r.cache.Put(id, info.DisplayName)
	return info.DisplayName
}
