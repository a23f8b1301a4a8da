package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/locvowork/tablereport/pkg/reportspec"
	"github.com/locvowork/tablereport/pkg/tablereport"
)

// ErrSourceUnavailable is returned for a source whose store is not configured
// or cannot be reached.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrSourceNotConfigured matches ErrSourceUnavailable but marks a source type
// with no registered store, which no retry can fix.
var ErrSourceNotConfigured = fmt.Errorf("%w: not configured", ErrSourceUnavailable)

// Retryable reports whether a fetch failure may succeed on a later attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) && !errors.Is(err, ErrSourceNotConfigured)
}

// RowRepository fetches the data rows of a sheet source.
type RowRepository interface {
	FetchRows(ctx context.Context, src *reportspec.SourceTemplate) ([]tablereport.DataRow, error)
}

// SourceRouter dispatches a source to the repository registered for its type.
type SourceRouter struct {
	repos map[string]RowRepository
}

func NewSourceRouter() *SourceRouter {
	return &SourceRouter{repos: map[string]RowRepository{
		reportspec.SourceInline: inlineRepository{},
	}}
}

// Register binds repo to a source type.
func (r *SourceRouter) Register(sourceType string, repo RowRepository) *SourceRouter {
	r.repos[sourceType] = repo
	return r
}

// FetchRows implements RowRepository.
func (r *SourceRouter) FetchRows(ctx context.Context, src *reportspec.SourceTemplate) ([]tablereport.DataRow, error) {
	typ := reportspec.SourceInline
	if src != nil && src.Type != "" {
		typ = src.Type
	}
	repo, ok := r.repos[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotConfigured, typ)
	}
	return repo.FetchRows(ctx, src)
}

type inlineRepository struct{}

func (inlineRepository) FetchRows(_ context.Context, src *reportspec.SourceTemplate) ([]tablereport.DataRow, error) {
	if src == nil {
		return nil, nil
	}
	rows := make([]tablereport.DataRow, len(src.Rows))
	for i, r := range src.Rows {
		rows[i] = r
	}
	return rows, nil
}
