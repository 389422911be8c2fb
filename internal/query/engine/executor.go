package engine

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog"

	"github.com/caremap/caredirectory/backend/internal/domain/entities"
	"github.com/caremap/caredirectory/backend/internal/infrastructure/observability"
	apperrors "github.com/caremap/caredirectory/backend/pkg/errors"
)

// Querier is the subset of database/sql needed to run read queries. Both
// *sql.DB and *sql.Conn satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Source describes one searchable entity kind to the executor
type Source[T any] interface {
	// Count builds the distinct-identifier total for the filter
	Count() *goqu.SelectDataset

	// IdentifierPage builds the page of identifiers in final sort order
	IdentifierPage(limit, offset uint) *goqu.SelectDataset

	// Hydrate assembles the full entity for one identifier, re-applying
	// the request's predicates to every nested collection
	Hydrate(ctx context.Context, q Querier, id string) (T, error)
}

// Execute runs a search in two phases. The count and identifier page run
// sequentially on a single pooled connection; hydration then fans out
// across the pool, one goroutine per identifier, and results keep the
// identifier-page order.
func Execute[T any](ctx context.Context, db *sql.DB, src Source[T], page, perPage int) (*entities.Paginated[T], error) {
	logger := observability.LoggerFromContext(ctx)
	start := time.Now()

	total, ids, err := identify(ctx, db, src, page, perPage)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		logger.Debug().Dur("duration", time.Since(start)).Msg("search matched nothing")
		return entities.EmptyPage[T](page, perPage), nil
	}
	if len(ids) == 0 {
		// Page beyond the last one
		return entities.NewPage([]T{}, page, perPage, total), nil
	}

	items, err := hydrate(ctx, db, src, ids)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Int("total", total).
		Int("page_size", len(ids)).
		Dur("duration", time.Since(start)).
		Msg("search executed")

	return entities.NewPage(items, page, perPage, total), nil
}

// identify runs the count and, when matches exist, the identifier page.
// Both statements share one connection so they see a consistent pool
// slot and release it before hydration starts.
func identify[T any](ctx context.Context, db *sql.DB, src Source[T], page, perPage int) (int, []string, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, nil, wrapQueryErr(ctx, "failed to acquire database connection", err)
	}
	defer conn.Close()

	countSQL, countArgs, err := src.Count().Prepared(true).ToSQL()
	if err != nil {
		return 0, nil, apperrors.NewInternalError("failed to build count query", err)
	}

	var total int
	if err := conn.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return 0, nil, wrapQueryErr(ctx, "failed to count search results", err)
	}
	if total == 0 {
		return 0, nil, nil
	}

	offset := (page - 1) * perPage
	pageSQL, pageArgs, err := src.IdentifierPage(uint(perPage), uint(offset)).Prepared(true).ToSQL()
	if err != nil {
		return 0, nil, apperrors.NewInternalError("failed to build identifier query", err)
	}

	rows, err := conn.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return 0, nil, wrapQueryErr(ctx, "failed to page search results", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, nil, apperrors.NewInternalError("failed to scan identifier", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, wrapQueryErr(ctx, "failed to read identifier page", err)
	}

	return total, ids, nil
}

// hydrate fetches every identifier concurrently. Each result lands in
// the slot matching its identifier's page position, so ordering survives
// goroutine scheduling.
func hydrate[T any](ctx context.Context, db *sql.DB, src Source[T], ids []string) ([]T, error) {
	items := make([]T, len(ids))
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			items[i], errs[i] = src.Hydrate(ctx, db, id)
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

// wrapQueryErr classifies a query failure, surfacing deadline expiry as
// a timeout instead of a generic internal error
func wrapQueryErr(ctx context.Context, message string, err error) *apperrors.AppError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(message, err)
	}
	return apperrors.NewInternalError(message, err)
}

// Relation is one nested aggregation computed during hydration. Build
// returns a single-row, single-column query scoped to the identifier.
type Relation struct {
	Field  string
	Scalar bool
	Build  func(id string) *goqu.SelectDataset
}

// RelValue holds one relation result: Raw for JSON documents, Count for
// scalar relations
type RelValue struct {
	Raw   []byte
	Count int
}

// FetchRelations runs every relation for one identifier concurrently.
// A failed relation degrades to its zero value and is logged; it never
// fails the row it belongs to.
func FetchRelations(ctx context.Context, q Querier, id string, rels []Relation, logger *zerolog.Logger) map[string]RelValue {
	values := make([]RelValue, len(rels))

	var wg sync.WaitGroup
	for i := range rels {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			values[i] = fetchRelation(ctx, q, id, rels[i], logger)
		}(i)
	}
	wg.Wait()

	out := make(map[string]RelValue, len(rels))
	for i, rel := range rels {
		out[rel.Field] = values[i]
	}
	return out
}

func fetchRelation(ctx context.Context, q Querier, id string, rel Relation, logger *zerolog.Logger) RelValue {
	query, args, err := rel.Build(id).Prepared(true).ToSQL()
	if err != nil {
		logger.Warn().Err(err).Str("field", rel.Field).Str("id", id).Msg("failed to build relation query")
		return RelValue{}
	}

	row := q.QueryRowContext(ctx, query, args...)

	if rel.Scalar {
		var n sql.NullInt64
		if err := row.Scan(&n); err != nil && !errors.Is(err, sql.ErrNoRows) {
			logger.Warn().Err(err).Str("field", rel.Field).Str("id", id).Msg("failed to fetch relation")
			return RelValue{}
		}
		return RelValue{Count: int(n.Int64)}
	}

	var raw []byte
	if err := row.Scan(&raw); err != nil && !errors.Is(err, sql.ErrNoRows) {
		logger.Warn().Err(err).Str("field", rel.Field).Str("id", id).Msg("failed to fetch relation")
		return RelValue{}
	}
	return RelValue{Raw: raw}
}
