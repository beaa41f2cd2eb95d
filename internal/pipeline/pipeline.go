package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-stamp-market/internal/composer"
	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/logger"
	"github.com/feral-file/ff-stamp-market/internal/membership"
	"github.com/feral-file/ff-stamp-market/internal/query"
	"github.com/feral-file/ff-stamp-market/internal/store"
)

// Config holds paging limits
type Config struct {
	DefaultLimit int
	MaxLimit     int
}

// Request describes a filtered, sorted, paged listing
type Request struct {
	Filter *query.Filter
	Sort   query.Sort
	Page   query.Page
}

// Result is one page of a listing.
// Total and Items come from two independent store calls, so a concurrent write
// may make Total disagree with what paging through Items yields.
type Result[T any] struct {
	Items      []T
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// Pipeline validates a request, counts and finds the matching entities, and
// composes the page
type Pipeline struct {
	store      store.Store
	composer   *composer.Composer
	membership *membership.Index
	config     Config
}

// New creates a pipeline
func New(st store.Store, comp *composer.Composer, index *membership.Index, cfg Config) *Pipeline {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = domain.DEFAULT_LIMIT
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = domain.MAX_LIMIT
	}
	return &Pipeline{store: st, composer: comp, membership: index, config: cfg}
}

type plan struct {
	filter *query.Filter
	sort   query.Sort
	window query.Window
}

func (p *Pipeline) prepare(schema query.Schema, req Request) (*plan, error) {
	filter, err := schema.Normalize(req.Filter)
	if err != nil {
		return nil, err
	}
	sort, err := schema.ResolveSort(req.Sort)
	if err != nil {
		return nil, err
	}
	window, err := req.Page.Resolve(p.config.DefaultLimit, p.config.MaxLimit)
	if err != nil {
		return nil, err
	}
	return &plan{filter: filter, sort: sort, window: window}, nil
}

// QueryStamps returns one page of composed stamps
func (p *Pipeline) QueryStamps(ctx context.Context, req Request) (*Result[composer.CompositeRecord], error) {
	pl, err := p.prepare(query.StampSchema, req)
	if err != nil {
		return nil, err
	}

	filter, err := p.expandCollections(ctx, pl.filter)
	if err != nil {
		return nil, err
	}

	total, err := p.store.CountStamps(ctx, filter)
	if err != nil {
		return nil, err
	}

	stamps, err := p.store.FindStamps(ctx, filter, pl.sort, pl.window)
	if err != nil {
		return nil, err
	}

	records, err := p.composer.Compose(ctx, stamps)
	if err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "Queried stamps",
		zap.Int("predicates", filter.Len()),
		zap.String("sort", fmt.Sprintf("%s %s", pl.sort.Field, pl.sort.Order)),
		zap.Int("page", pl.window.Page),
		zap.Int("limit", pl.window.Limit),
		zap.Int64("total", total))

	return &Result[composer.CompositeRecord]{
		Items:      records,
		Total:      total,
		Page:       pl.window.Page,
		Limit:      pl.window.Limit,
		TotalPages: query.TotalPages(total, pl.window.Limit),
	}, nil
}

// QueryCollections returns one page of collection summaries
func (p *Pipeline) QueryCollections(ctx context.Context, req Request) (*Result[composer.CollectionSummary], error) {
	pl, err := p.prepare(query.CollectionSchema, req)
	if err != nil {
		return nil, err
	}

	total, err := p.store.CountCollections(ctx, pl.filter)
	if err != nil {
		return nil, err
	}

	collections, err := p.store.FindCollections(ctx, pl.filter, pl.sort, pl.window)
	if err != nil {
		return nil, err
	}

	summaries, err := p.composer.ComposeCollections(ctx, collections)
	if err != nil {
		return nil, err
	}

	return &Result[composer.CollectionSummary]{
		Items:      summaries,
		Total:      total,
		Page:       pl.window.Page,
		Limit:      pl.window.Limit,
		TotalPages: query.TotalPages(total, pl.window.Limit),
	}, nil
}

// expandCollections replaces collection_id predicates with id set predicates over
// the member stamps. Several collection predicates intersect like any conjunction.
func (p *Pipeline) expandCollections(ctx context.Context, f *query.Filter) (*query.Filter, error) {
	if !f.Has(query.FieldCollectionID) {
		return f, nil
	}

	out := query.NewFilter()
	for _, pred := range f.Predicates() {
		if pred.Target() != query.FieldCollectionID {
			out.Add(pred)
			continue
		}

		var collectionIDs []string
		switch v := pred.(type) {
		case query.Exact:
			collectionIDs = []string{v.Value.(string)}
		case query.In:
			collectionIDs = v.Values
		default:
			return nil, fmt.Errorf("%w: unsupported predicate %T on %q", domain.ErrInvalidArgument, pred, query.FieldCollectionID)
		}

		members := make([]string, 0)
		seen := make(map[string]bool)
		for _, id := range collectionIDs {
			ids, err := p.membership.MembersOf(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, stampID := range ids {
				if !seen[stampID] {
					seen[stampID] = true
					members = append(members, stampID)
				}
			}
		}
		out.In(query.FieldID, members)
	}
	return out, nil
}
