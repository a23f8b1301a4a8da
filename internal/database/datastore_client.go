package database

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/datastore"
	"github.com/locvowork/tablereport/internal/logger"
)

// DatastoreFilter is one property filter of a datastore query.
type DatastoreFilter struct {
	Field string
	Op    string
	Value interface{}
}

// DatastoreClient wraps the cloud datastore client
type DatastoreClient struct {
	client *datastore.Client
}

// NewDatastoreClient connects to projectID. DATASTORE_EMULATOR_HOST is honoured
// by the datastore library itself.
func NewDatastoreClient(ctx context.Context, projectID string) (*DatastoreClient, error) {
	if emulatorHost := os.Getenv("DATASTORE_EMULATOR_HOST"); emulatorHost != "" {
		logger.InfoLog(ctx, "Initializing Datastore client against emulator at %s", emulatorHost)
	}

	client, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}
	return &DatastoreClient{client: client}, nil
}

// Close closes the underlying client.
func (dc *DatastoreClient) Close() error {
	if dc == nil || dc.client == nil {
		return nil
	}
	return dc.client.Close()
}

// Query loads the entities of kind as property lists. Sort fields prefixed with
// "-" are descending.
func (dc *DatastoreClient) Query(ctx context.Context, kind string, filters []DatastoreFilter, order []string, limit int) ([]datastore.PropertyList, error) {
	if dc == nil || dc.client == nil {
		return nil, fmt.Errorf("datastore client is nil")
	}

	q := datastore.NewQuery(kind)
	for _, f := range filters {
		op := strings.TrimSpace(f.Op)
		if op == "" {
			op = "="
		}
		q = q.FilterField(f.Field, op, f.Value)
	}
	for _, o := range order {
		q = q.Order(o)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var result []datastore.PropertyList
	if _, err := dc.client.GetAll(ctx, q, &result); err != nil {
		return nil, fmt.Errorf("query %s failed: %w", kind, err)
	}
	return result, nil
}

// PutTeachers saves teachers under kind, keyed by teacher id.
func (dc *DatastoreClient) PutTeachers(ctx context.Context, kind string, teachers []Teacher) error {
	if dc == nil || dc.client == nil {
		return fmt.Errorf("datastore client is nil")
	}
	if len(teachers) == 0 {
		return nil
	}

	// PutMulti accepts at most 500 entities per call
	const batch = 500
	for start := 0; start < len(teachers); start += batch {
		end := min(start+batch, len(teachers))
		keys := make([]*datastore.Key, 0, end-start)
		for _, t := range teachers[start:end] {
			keys = append(keys, datastore.NameKey(kind, t.ID, nil))
		}
		if _, err := dc.client.PutMulti(ctx, keys, teachers[start:end]); err != nil {
			return fmt.Errorf("put %s[%d:%d] failed: %w", kind, start, end, err)
		}
	}
	return nil
}

// DeleteAll removes every entity of kind.
func (dc *DatastoreClient) DeleteAll(ctx context.Context, kind string) error {
	if dc == nil || dc.client == nil {
		return fmt.Errorf("datastore client is nil")
	}
	keys, err := dc.client.GetAll(ctx, datastore.NewQuery(kind).KeysOnly(), nil)
	if err != nil {
		return fmt.Errorf("list %s keys failed: %w", kind, err)
	}
	const batch = 500
	for start := 0; start < len(keys); start += batch {
		end := min(start+batch, len(keys))
		if err := dc.client.DeleteMulti(ctx, keys[start:end]); err != nil {
			return fmt.Errorf("delete %s failed: %w", kind, err)
		}
	}
	return nil
}
