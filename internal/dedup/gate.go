// Package dedup bounds duplicate work per article url. Exists is a cheap,
// racy pre-check; TryReserve is the atomic insert that decides.
package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Gate fronts an ArticleStore. Two workers may both pass Exists for the same
// url and both extract it; only one wins TryReserve, so storage and
// notification happen at most once.
type Gate struct {
	store  ports.ArticleStore
	logger *slog.Logger
}

// NewGate wraps store.
func NewGate(store ports.ArticleStore, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: store, logger: logger}
}

// Exists reports whether url is already stored. A store error counts as not
// seen: the pre-check is advisory and TryReserve still guards the write.
func (g *Gate) Exists(ctx context.Context, url string) bool {
	exists, err := g.store.Exists(ctx, url)
	if err != nil {
		g.logger.Warn("dedup pre-check failed, continuing", "url", url, "error", err)
		return false
	}
	return exists
}

// TryReserve inserts article unless its url is present. inserted=false means
// another worker already owns it.
func (g *Gate) TryReserve(ctx context.Context, article domain.PersistedArticle) (bool, error) {
	inserted, err := g.store.InsertIfAbsent(ctx, article)
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", article.URL, err)
	}
	return inserted, nil
}
