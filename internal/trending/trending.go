package trending

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-stamp-market/internal/composer"
	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/logger"
	"github.com/feral-file/ff-stamp-market/internal/store"
	"github.com/feral-file/ff-stamp-market/internal/store/schema"
)

// Ranker orders entities by an engagement metric.
// Stamps without an insight record never trend.
type Ranker struct {
	store       store.Store
	composer    *composer.Composer
	defaultSize int
}

// New creates a ranker. A non-positive defaultSize falls back to domain.DEFAULT_TRENDING_SIZE.
func New(st store.Store, comp *composer.Composer, defaultSize int) *Ranker {
	if defaultSize <= 0 {
		defaultSize = domain.DEFAULT_TRENDING_SIZE
	}
	return &Ranker{store: st, composer: comp, defaultSize: defaultSize}
}

func (r *Ranker) resolve(metric domain.Metric, n int) (int, error) {
	if !metric.Valid() {
		return 0, fmt.Errorf("%w: unsupported metric %q", domain.ErrInvalidArgument, metric)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: size must not be negative", domain.ErrInvalidArgument)
	}
	if n == 0 {
		n = r.defaultSize
	}
	return min(n, domain.MAX_TRENDING_SIZE), nil
}

// TopN returns the n stamps with the highest metric, ties by creation order
func (r *Ranker) TopN(ctx context.Context, metric domain.Metric, n int) ([]composer.CompositeRecord, error) {
	size, err := r.resolve(metric, n)
	if err != nil {
		return nil, err
	}

	candidates, err := r.store.RankStamps(ctx, metric, size)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		return ranksBefore(
			metricValue(metric, a.Insight.ViewCount, a.Insight.FavouriteCount),
			metricValue(metric, b.Insight.ViewCount, b.Insight.FavouriteCount),
			a.Stamp.CreatedAt, b.Stamp.CreatedAt, a.Stamp.ID, b.Stamp.ID)
	})
	if len(candidates) > size {
		candidates = candidates[:size]
	}

	stamps := make([]schema.Stamp, 0, len(candidates))
	for _, c := range candidates {
		stamps = append(stamps, c.Stamp)
	}

	logger.DebugCtx(ctx, "Ranked trending stamps",
		zap.String("metric", string(metric)),
		zap.Int("requested", size),
		zap.Int("ranked", len(stamps)))

	return r.composer.Compose(ctx, stamps)
}

// TopCollections returns the n collections with the highest metric, ties by creation order
func (r *Ranker) TopCollections(ctx context.Context, metric domain.Metric, n int) ([]composer.CollectionSummary, error) {
	size, err := r.resolve(metric, n)
	if err != nil {
		return nil, err
	}

	collections, err := r.store.RankCollections(ctx, metric, size)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(collections, func(i, j int) bool {
		a, b := collections[i], collections[j]
		return ranksBefore(
			metricValue(metric, a.ViewCount, a.FavouriteCount),
			metricValue(metric, b.ViewCount, b.FavouriteCount),
			a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	if len(collections) > size {
		collections = collections[:size]
	}

	return r.composer.ComposeCollections(ctx, collections)
}

func metricValue(metric domain.Metric, views, favourites int64) int64 {
	if metric == domain.MetricFavouriteCount {
		return favourites
	}
	return views
}

// ranksBefore orders by metric desc, then created_at asc, then id asc
func ranksBefore(av, bv int64, aTime, bTime time.Time, aID, bID string) bool {
	if av != bv {
		return av > bv
	}
	if !aTime.Equal(bTime) {
		return aTime.Before(bTime)
	}
	return aID < bID
}
