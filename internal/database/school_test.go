package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchool(t *testing.T) {
	a := GenerateSchool(30, 42)
	b := GenerateSchool(30, 42)
	require.Len(t, a, 30)
	assert.Equal(t, a, b, "same seed must give the same dataset")

	assert.Equal(t, "T001", a[0].ID)
	assert.Equal(t, "T030", a[29].ID)

	var emptyTeacher, emptyClass bool
	for _, teacher := range a {
		assert.NotNil(t, teacher.Classes)
		assert.LessOrEqual(t, len(teacher.Classes), 3)
		assert.LessOrEqual(t, len(teacher.Favorites), 2)
		if len(teacher.Classes) == 0 {
			emptyTeacher = true
		}
		for _, c := range teacher.Classes {
			assert.Contains(t, c.Code, teacher.ID+"-")
			if len(c.Students) == 0 {
				emptyClass = true
			}
			for _, s := range c.Students {
				assert.GreaterOrEqual(t, s.Score, 1)
				assert.LessOrEqual(t, s.Score, 10)
			}
		}
	}
	assert.True(t, emptyTeacher, "dataset should contain a teacher without classes")
	assert.True(t, emptyClass, "dataset should contain a class without students")
}

func TestGenerateSchool_Zero(t *testing.T) {
	assert.Empty(t, GenerateSchool(0, 1))
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "report", Password: "secret", DBName: "school", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=report password=secret dbname=school sslmode=disable", cfg.DSN())
}

func TestDataSeeder_Targets(t *testing.T) {
	seeder := NewDataSeeder(nil, nil, nil)
	teachers := GenerateSchool(2, 1)

	assert.NoError(t, seeder.Seed(context.Background(), TargetAll, teachers), "unconfigured stores are skipped")
	assert.Error(t, seeder.Seed(context.Background(), "mongo", teachers))
	assert.NoError(t, seeder.Clear(context.Background()))
}

func TestDataSeeder_SeedAllConcurrent(t *testing.T) {
	client, fake := newFakeClient(t)
	seeder := NewDataSeeder(nil, client, nil)

	require.NoError(t, seeder.Seed(context.Background(), TargetAll, GenerateSchool(3, 7)))
	assert.Contains(t, fake.requests, "POST /_bulk")
	assert.Contains(t, fake.bodies["POST /_bulk"], `"_index":"teachers"`)
}

func TestDataSeeder_SeedAllCollectsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	client, err := NewElasticSearchClient(srv.URL, "", "")
	require.NoError(t, err)

	err = NewDataSeeder(nil, client, nil).Seed(context.Background(), TargetAll, GenerateSchool(1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed elastic")
}
