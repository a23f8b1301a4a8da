package builder

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLBuilder(t *testing.T) {
	t.Run("Select", func(t *testing.T) {
		query, args := NewSQLBuilder().Select("id", "name").From("teachers").Where("id = ?", 1).Build()
		assert.Equal(t, "SELECT id, name FROM teachers WHERE id = $1", query)
		assert.Equal(t, []interface{}{1}, args)
	})

	t.Run("Insert", func(t *testing.T) {
		query, args := NewSQLBuilder().Insert("teachers", "name", "subject").Values("Alice", "Math").Build()
		assert.Equal(t, "INSERT INTO teachers (name, subject) VALUES ($1, $2)", query)
		assert.Equal(t, []interface{}{"Alice", "Math"}, args)
	})

	t.Run("Insert on conflict", func(t *testing.T) {
		query, _ := NewSQLBuilder().Insert("teachers", "id").Values(1).OnConflict("DO NOTHING").Build()
		assert.Equal(t, "INSERT INTO teachers (id) VALUES ($1) ON CONFLICT DO NOTHING", query)
	})

	t.Run("Delete", func(t *testing.T) {
		query, args := NewSQLBuilder().Delete("students").Where("score < ?", 5).Build()
		assert.Equal(t, "DELETE FROM students WHERE score < $1", query)
		assert.Equal(t, []interface{}{5}, args)
	})

	t.Run("Build is repeatable", func(t *testing.T) {
		b := NewSQLBuilder().Select("*").From("t").Where("a = ?", 1).Where("b = ? OR c > ?", 2, 3)
		q1, a1 := b.Build()
		q2, a2 := b.Build()
		assert.Equal(t, q1, q2)
		assert.Equal(t, []interface{}{1, 2, 3}, a1)
		assert.Equal(t, a1, a2)
	})
}

func TestSQLBuilderSelectClauses(t *testing.T) {
	t.Run("Order limit offset", func(t *testing.T) {
		query, args := NewSQLBuilder().Select("*").
			From("students").
			Where("active = ?", true).
			Where("score BETWEEN ? AND ?", 5, 8).
			OrderBy("name DESC").
			Limit(10).
			Offset(20).
			Build()
		assert.Equal(t, "SELECT * FROM students WHERE active = $1 AND score BETWEEN $2 AND $3 ORDER BY name DESC LIMIT 10 OFFSET 20", query)
		assert.Equal(t, []interface{}{true, 5, 8}, args)
	})

	t.Run("Offset without limit", func(t *testing.T) {
		query, _ := NewSQLBuilder().Select("id").From("teachers").Offset(5).Build()
		assert.Equal(t, "SELECT id FROM teachers OFFSET 5", query)
	})
}

func TestWhereCondition(t *testing.T) {
	b := NewSQLBuilder().Select("*").From("students")
	require.NoError(t, b.WhereCondition("grade", "=", 2))
	require.NoError(t, b.WhereCondition("name", "ILIKE", "a%"))
	require.NoError(t, b.WhereCondition("score", "!=", 0))
	require.NoError(t, b.WhereCondition("room", "in", []string{"A1", "B2"}))

	query, args, err := b.BuildSafe()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM students WHERE "grade" = $1 AND "name" ILIKE $2 AND "score" <> $3 AND "room" = ANY($4)`, query)
	require.Len(t, args, 4)
	assert.Equal(t, pq.Array([]string{"A1", "B2"}), args[3])

	assert.Error(t, b.WhereCondition("grade", "~", 1))
	assert.Error(t, b.WhereCondition("grade; DROP TABLE x", "=", 1))
}

func TestQuoteIdent(t *testing.T) {
	q, err := QuoteIdent("school.teacher")
	require.NoError(t, err)
	assert.Equal(t, `"school"."teacher"`, q)

	for _, bad := range []string{"", "a b", "1abc", `x"y`, "a..b"} {
		_, err := QuoteIdent(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildSafe(t *testing.T) {
	_, args, err := NewSQLBuilder().Select("*").From("t").Where("a = ?", 1).Where("b = ?", 2).BuildSafe()
	require.NoError(t, err)
	assert.Len(t, args, 2)

	_, _, err = NewSQLBuilder().Select("*").From("t").Where("a = 1", 1).BuildSafe()
	assert.Error(t, err)
}
