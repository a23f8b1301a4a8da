package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/datastore"
	"github.com/locvowork/tablereport/internal/database"
	"github.com/locvowork/tablereport/pkg/reportspec"
	"github.com/locvowork/tablereport/pkg/tablereport"
)

// DatastoreQuerier is the part of database.DatastoreClient used for rows.
type DatastoreQuerier interface {
	Query(ctx context.Context, kind string, filters []database.DatastoreFilter, order []string, limit int) ([]datastore.PropertyList, error)
}

// DatastoreRowRepository loads entities as rows. Nested entities and arrays of
// entities become nested rows.
type DatastoreRowRepository struct {
	client DatastoreQuerier
}

func NewDatastoreRowRepository(client DatastoreQuerier) *DatastoreRowRepository {
	return &DatastoreRowRepository{client: client}
}

// FetchRows queries src.Kind with its filters, sort and limit.
func (r *DatastoreRowRepository) FetchRows(ctx context.Context, src *reportspec.SourceTemplate) ([]tablereport.DataRow, error) {
	filters := make([]database.DatastoreFilter, 0, len(src.Filters))
	for _, f := range src.Filters {
		filters = append(filters, database.DatastoreFilter{Field: f.Field, Op: f.Op, Value: datastoreValue(f.Value)})
	}
	order := make([]string, 0, len(src.Sort))
	for _, s := range src.Sort {
		if s.Desc {
			order = append(order, "-"+s.Field)
		} else {
			order = append(order, s.Field)
		}
	}

	entities, err := r.client.Query(ctx, src.Kind, filters, order, src.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	rows := make([]tablereport.DataRow, len(entities))
	for i, e := range entities {
		rows[i] = PropertiesToRow(e)
	}
	return rows, nil
}

// PropertiesToRow converts the properties of an entity into a row.
func PropertiesToRow(props []datastore.Property) tablereport.DataRow {
	row := make(tablereport.DataRow, len(props))
	for _, p := range props {
		row[p.Name] = propertyValue(p.Value)
	}
	return row
}

func propertyValue(v interface{}) interface{} {
	switch x := v.(type) {
	case *datastore.Entity:
		if x == nil {
			return nil
		}
		return PropertiesToRow(x.Properties)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = propertyValue(e)
		}
		return out
	case *datastore.Key:
		if x == nil {
			return nil
		}
		return x.String()
	default:
		return v
	}
}

// datastoreValue widens template numbers to the int64 datastore stores.
func datastoreValue(v interface{}) interface{} {
	if i, ok := v.(int); ok {
		return int64(i)
	}
	return v
}
