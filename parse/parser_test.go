package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docql/docql/condition"
)

func TestParseSimpleSelect(t *testing.T) {
	q, err := Parse(strings.NewReader(`SELECT name, age FROM (data.json).users WHERE age > 18`))
	require.NoError(t, err)
	require.Len(t, q.Selections, 2)
	assert.Equal(t, "name", q.Selections[0].OriginField)
	assert.Equal(t, "age", q.Selections[1].OriginField)
	require.NotNil(t, q.FromFile)
	assert.Equal(t, "data.json", q.FromFile.Path)
	assert.Equal(t, "users", q.FromFile.Selector)
	require.Len(t, q.Where.Children, 1)
	leaf, ok := q.Where.Children[0].(*condition.Leaf)
	require.True(t, ok)
	assert.Equal(t, "age", leaf.Key)
	assert.Equal(t, condition.Gt, leaf.Op)
	assert.EqualValues(t, 18, leaf.Value)
}

func TestParseSelectAllAndDistinct(t *testing.T) {
	q, err := Parse(strings.NewReader(`SELECT DISTINCT * FROM (shop.xml).SHOP.SHOPITEM`))
	require.NoError(t, err)
	assert.True(t, q.IsDistinct)
	require.Len(t, q.Selections, 1)
	assert.Equal(t, "*", q.Selections[0].OriginField)
}

func TestParseFunctionWithAlias(t *testing.T) {
	q, err := Parse(strings.NewReader(`SELECT COUNT(*) AS total FROM (data.csv).rows`))
	require.NoError(t, err)
	require.Len(t, q.Selections, 1)
	f := q.Selections[0]
	require.NotNil(t, f.Function)
	assert.Equal(t, "COUNT", f.Function.Name)
	assert.Equal(t, "total", f.FinalName)
	assert.True(t, f.IsAlias)
}

func TestParseWhereAndOrChain(t *testing.T) {
	q, err := Parse(strings.NewReader(
		`SELECT name FROM (data.json).users WHERE age > 18 AND city = 'NYC' OR active = TRUE`))
	require.NoError(t, err)
	require.Len(t, q.Where.Children, 3)
	assert.Equal(t, condition.AND, q.Where.Children[1].(*condition.Leaf).Link)
	assert.Equal(t, condition.OR, q.Where.Children[2].(*condition.Leaf).Link)
}

func TestParseInAndNotIn(t *testing.T) {
	q, err := Parse(strings.NewReader(
		`SELECT name FROM (data.json).users WHERE city IN ('NYC', 'LA') AND status NOT IN ('banned')`))
	require.NoError(t, err)
	require.Len(t, q.Where.Children, 2)
	in := q.Where.Children[0].(*condition.Leaf)
	assert.Equal(t, condition.In, in.Op)
	notIn := q.Where.Children[1].(*condition.Leaf)
	assert.Equal(t, condition.NotIn, notIn.Op)
}

func TestParseIsNullAndIsNotNull(t *testing.T) {
	q, err := Parse(strings.NewReader(
		`SELECT name FROM (data.json).users WHERE middle_name IS NULL AND last_name IS NOT NULL`))
	require.NoError(t, err)
	require.Len(t, q.Where.Children, 2)
	assert.Equal(t, condition.Is, q.Where.Children[0].(*condition.Leaf).Op)
	assert.Equal(t, condition.IsNot, q.Where.Children[1].(*condition.Leaf).Op)
}

func TestParseLikeAndNotLike(t *testing.T) {
	q, err := Parse(strings.NewReader(
		`SELECT name FROM (data.json).users WHERE name LIKE 'A%' AND name NOT LIKE '%z'`))
	require.NoError(t, err)
	require.Len(t, q.Where.Children, 2)
	assert.Equal(t, condition.Like, q.Where.Children[0].(*condition.Leaf).Op)
	assert.Equal(t, condition.NotLike, q.Where.Children[1].(*condition.Leaf).Op)
}

func TestParseJoin(t *testing.T) {
	q, err := Parse(strings.NewReader(
		`SELECT name, o.total FROM (users.json).users INNER JOIN (orders.json).orders AS o ON id = o.user_id`))
	require.NoError(t, err)
	require.Len(t, q.Joins, 1)
	j := q.Joins[0]
	assert.Equal(t, "o", j.Alias)
	assert.Equal(t, "id", j.LeftKey)
	assert.Equal(t, "o.user_id", j.RightKey)
	assert.Equal(t, condition.Eq, j.Op)
	require.NotNil(t, j.Source.FileRef)
	assert.Equal(t, "orders.json", j.Source.FileRef.Path)
}

func TestParseGroupByHavingOrderLimitOffset(t *testing.T) {
	q, err := Parse(strings.NewReader(
		`SELECT city, COUNT(*) AS n FROM (data.json).users GROUP BY city HAVING n > 2 ORDER BY n DESC LIMIT 10 OFFSET 5`))
	require.NoError(t, err)
	assert.Equal(t, []string{"city"}, q.GroupByFields)
	require.Len(t, q.Having.Children, 1)
	assert.Equal(t, "n", q.Having.Children[0].(*condition.Leaf).Key)
	require.Len(t, q.OrderByFields, 1)
	assert.Equal(t, "n", q.OrderByFields[0].Field)
	assert.EqualValues(t, 10, q.Limit)
	assert.EqualValues(t, 5, q.Offset)
}

func TestParseLimitCommaForm(t *testing.T) {
	q, err := Parse(strings.NewReader(`SELECT name FROM (data.json).users LIMIT 5, 10`))
	require.NoError(t, err)
	assert.EqualValues(t, 5, q.Offset)
	assert.EqualValues(t, 10, q.Limit)
}

func TestParseUnknownKeywordIsParseError(t *testing.T) {
	_, err := Parse(strings.NewReader(`SELECT name FRUM (data.json).users`))
	require.Error(t, err)
}

func TestParseRoundTrip(t *testing.T) {
	original := `SELECT name, COUNT(*) AS n
  FROM (data.json).users
  WHERE age > 18
  GROUP BY city
  HAVING n > 2
  ORDER BY n DESC
  LIMIT 10 OFFSET 5`

	q1, err := Parse(strings.NewReader(original))
	require.NoError(t, err)

	rendered := q1.Test()
	q2, err := Parse(strings.NewReader(rendered))
	require.NoError(t, err)

	assert.Equal(t, rendered, q2.Test())
}
