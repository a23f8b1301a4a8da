package repository

import (
	"context"
	"fmt"

	"github.com/locvowork/tablereport/internal/database"
	"github.com/locvowork/tablereport/pkg/reportspec"
	"github.com/locvowork/tablereport/pkg/tablereport"
)

// ElasticSearcher is the part of database.ElasticSearchClient used for rows.
type ElasticSearcher interface {
	Search(ctx context.Context, index, queryString string, sorts []database.SortField, size int) ([]map[string]interface{}, error)
	ScrollAll(ctx context.Context, index, queryString string, sorts []database.SortField) ([]map[string]interface{}, error)
}

// ElasticRowRepository turns the _source of search hits into rows.
type ElasticRowRepository struct {
	client ElasticSearcher
}

func NewElasticRowRepository(client ElasticSearcher) *ElasticRowRepository {
	return &ElasticRowRepository{client: client}
}

// FetchRows searches src.Index. A zero size scrolls through every hit; limit
// caps the result either way.
func (r *ElasticRowRepository) FetchRows(ctx context.Context, src *reportspec.SourceTemplate) ([]tablereport.DataRow, error) {
	sorts := make([]database.SortField, 0, len(src.Sort))
	for _, s := range src.Sort {
		sorts = append(sorts, database.SortField{Field: s.Field, Desc: s.Desc})
	}

	var docs []map[string]interface{}
	var err error
	if src.Size > 0 {
		docs, err = r.client.Search(ctx, src.Index, src.Query, sorts, src.Size)
	} else {
		docs, err = r.client.ScrollAll(ctx, src.Index, src.Query, sorts)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	if src.Limit > 0 && len(docs) > src.Limit {
		docs = docs[:src.Limit]
	}
	rows := make([]tablereport.DataRow, len(docs))
	for i, d := range docs {
		rows[i] = d
	}
	return rows, nil
}
