package backend

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/snapshot"
)

// LoadBundle fetches all four collections in parallel and applies them
// to the builder in one pass, so the resulting bundle is coherent. A
// failed load is classified and aborts the whole refresh; aggregation
// never proceeds on partial data.
func LoadBundle(ctx context.Context, store Store, builder *snapshot.Builder) error {
	required := snapshot.Required()
	loaded := make([][]snapshot.Document, len(required))
	owner := builder.Owner()

	g, gctx := errgroup.WithContext(ctx)
	for i, col := range required {
		g.Go(func() error {
			docs, err := store.LoadCollection(gctx, owner, col)
			if err != nil {
				return snapshot.ClassifyUpstream(col, err)
			}
			loaded[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load collections for %s: %w", owner, err)
	}

	for i, col := range required {
		stats := builder.Apply(col, loaded[i])
		if stats.Skipped > 0 {
			slog.WarnContext(ctx, "Skipped malformed documents",
				"owner", owner,
				"collection", string(col),
				"decoded", stats.Decoded,
				"skipped", stats.Skipped)
		}
	}
	return nil
}
