package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/locvowork/tablereport/internal/logger"
	"github.com/locvowork/tablereport/internal/repository/builder"
	"github.com/locvowork/tablereport/pkg/dataflow"
)

// Seed targets.
const (
	TargetPostgres  = "postgres"
	TargetElastic   = "elastic"
	TargetDatastore = "datastore"
	TargetAll       = "all"
)

// schoolSchema creates the relational form of the school dataset. Classes and
// students are read back as nested rows with json_agg.
const schoolSchema = `
CREATE SCHEMA IF NOT EXISTS school;
CREATE TABLE IF NOT EXISTS school.teacher (
	id         TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL,
	subject    TEXT NOT NULL,
	favorites  TEXT[] NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS school.class (
	code       TEXT PRIMARY KEY,
	teacher_id TEXT NOT NULL REFERENCES school.teacher(id) ON DELETE CASCADE,
	room       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS school.student (
	id         SERIAL PRIMARY KEY,
	class_code TEXT NOT NULL REFERENCES school.class(code) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	score      INT NOT NULL
);`

// DataSeeder writes the school dataset into the configured stores. Stores
// left nil are skipped by the all target.
type DataSeeder struct {
	db *sql.DB
	es *ElasticSearchClient
	ds *DatastoreClient
}

func NewDataSeeder(db *sql.DB, es *ElasticSearchClient, ds *DatastoreClient) *DataSeeder {
	return &DataSeeder{db: db, es: es, ds: ds}
}

// Seed writes teachers into target.
func (s *DataSeeder) Seed(ctx context.Context, target string, teachers []Teacher) error {
	start := time.Now()
	var err error

	switch target {
	case TargetPostgres:
		err = s.SeedPostgres(ctx, teachers)
	case TargetElastic:
		err = s.SeedElastic(ctx, teachers)
	case TargetDatastore:
		err = s.SeedDatastore(ctx, teachers)
	case TargetAll:
		var results []dataflow.Stream[error]
		for _, t := range []string{TargetPostgres, TargetElastic, TargetDatastore} {
			if !s.configured(t) {
				logger.WarnLog(ctx, "Skipping %s: not configured", t)
				continue
			}
			results = append(results, s.seedAsync(ctx, t, teachers))
		}
		var errs []error
		for err := range dataflow.FanIn(ctx, results...) {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("unknown seed target %q", target)
	}
	if err != nil {
		return fmt.Errorf("seed %s: %w", target, err)
	}

	logger.InfoLog(ctx, "Seeded %d teachers into %s in %v", len(teachers), target, time.Since(start))
	return nil
}

// seedAsync seeds target in its own goroutine. The stream carries the error,
// if any, and is closed when seeding ends.
func (s *DataSeeder) seedAsync(ctx context.Context, target string, teachers []Teacher) dataflow.Stream[error] {
	out := make(chan error, 1)
	go func() {
		defer close(out)
		if err := s.Seed(ctx, target, teachers); err != nil {
			out <- err
		}
	}()
	return out
}

func (s *DataSeeder) configured(target string) bool {
	switch target {
	case TargetPostgres:
		return s.db != nil
	case TargetElastic:
		return s.es != nil
	case TargetDatastore:
		return s.ds != nil
	}
	return false
}

// SeedPostgres creates the school schema and upserts teachers, classes and
// students in one transaction.
func (s *DataSeeder) SeedPostgres(ctx context.Context, teachers []Teacher) error {
	if s.db == nil {
		return fmt.Errorf("postgres is not configured")
	}
	if _, err := s.db.ExecContext(ctx, schoolSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	exec := func(b *builder.SQLBuilder) error {
		query, args := b.Build()
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	}

	for _, t := range teachers {
		err := exec(builder.NewSQLBuilder().
			Insert("school.teacher", "id", "first_name", "last_name", "subject", "favorites").
			Values(t.ID, t.FirstName, t.LastName, t.Subject, pq.Array(t.Favorites)).
			OnConflict("(id) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, subject = EXCLUDED.subject, favorites = EXCLUDED.favorites"))
		if err != nil {
			return fmt.Errorf("failed to insert teacher %s: %w", t.ID, err)
		}

		for _, c := range t.Classes {
			err := exec(builder.NewSQLBuilder().
				Insert("school.class", "code", "teacher_id", "room").
				Values(c.Code, t.ID, c.Room).
				OnConflict("(code) DO UPDATE SET room = EXCLUDED.room"))
			if err != nil {
				return fmt.Errorf("failed to insert class %s: %w", c.Code, err)
			}
			if err := exec(builder.NewSQLBuilder().Delete("school.student").Where("class_code = ?", c.Code)); err != nil {
				return fmt.Errorf("failed to reset students of %s: %w", c.Code, err)
			}
			for _, st := range c.Students {
				err := exec(builder.NewSQLBuilder().
					Insert("school.student", "class_code", "name", "score").
					Values(c.Code, st.Name, st.Score))
				if err != nil {
					return fmt.Errorf("failed to insert student of %s: %w", c.Code, err)
				}
			}
		}
	}

	return tx.Commit()
}

// SeedElastic indexes one document per teacher into TeacherIndex.
func (s *DataSeeder) SeedElastic(ctx context.Context, teachers []Teacher) error {
	if s.es == nil {
		return fmt.Errorf("elasticsearch is not configured")
	}
	docs := make(map[string]interface{}, len(teachers))
	for _, t := range teachers {
		docs[t.ID] = t
	}
	return s.es.BulkIndex(ctx, TeacherIndex, docs)
}

// SeedDatastore saves one entity per teacher, classes and students nested.
func (s *DataSeeder) SeedDatastore(ctx context.Context, teachers []Teacher) error {
	if s.ds == nil {
		return fmt.Errorf("datastore is not configured")
	}
	return s.ds.PutTeachers(ctx, TeacherKind, teachers)
}

// Clear removes the school dataset from every configured store.
func (s *DataSeeder) Clear(ctx context.Context) error {
	if s.db != nil {
		if _, err := s.db.ExecContext(ctx, "DROP SCHEMA IF EXISTS school CASCADE"); err != nil {
			return fmt.Errorf("failed to drop school schema: %w", err)
		}
	}
	if s.es != nil {
		if err := s.es.DeleteIndex(ctx, TeacherIndex); err != nil {
			return err
		}
	}
	if s.ds != nil {
		if err := s.ds.DeleteAll(ctx, TeacherKind); err != nil {
			return err
		}
	}
	logger.InfoLog(ctx, "Cleared school dataset")
	return nil
}
