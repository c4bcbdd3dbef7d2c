package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docql/docql/adapter/memoryadapter"
	"github.com/docql/docql/condition"
	"github.com/docql/docql/query"
	"github.com/docql/docql/row"
)

func mustGet(t *testing.T, v row.Value, path string) row.Value {
	t.Helper()
	out, err := row.Get(v, path, true)
	require.NoError(t, err)
	return out
}

func productsDoc() *row.Map {
	mk := func(id int64, name string, price int64) *row.Map {
		m := row.NewMap()
		m.Set("id", id)
		m.Set("name", name)
		m.Set("price", price)
		return m
	}
	products := row.Seq{
		mk(1, "A", 100),
		mk(2, "B", 200),
		mk(3, "C", 300),
		mk(4, "D", 400),
	}
	data := row.NewMap()
	data.Set("products", products)
	root := row.NewMap()
	root.Set("data", data)
	return root
}

// Scenario 1: simple filter (spec section 8).
func TestExecSimpleFilter(t *testing.T) {
	src := memoryadapter.New("[mem](p.json)", productsDoc())
	q := query.New().SelectAll().From("data.products").UseSource(src)
	q.Where("price", condition.Gt, int64(100))
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)

	rows, err := res.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "B", mustGet(t, rows[0], "name"))
	assert.Equal(t, "C", mustGet(t, rows[1], "name"))
	assert.Equal(t, "D", mustGet(t, rows[2], "name"))
}

// Scenario 2: fetch-single missing (spec section 8).
func TestExecFetchSingleMissing(t *testing.T) {
	src := memoryadapter.New("[mem](p.json)", productsDoc())
	q := query.New().Select("name").From("data.products").UseSource(src)
	q.Where("price", condition.Eq, int64(100))
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)

	name, err := res.FetchSingle("name")
	require.NoError(t, err)
	assert.Equal(t, "A", name)

	res2, err := e.Run(q)
	require.NoError(t, err)
	_, err = res2.FetchSingle("price")
	assert.Error(t, err)
}

// Scenario 3: aggregate with HAVING (spec section 8).
func TestExecAggregateHaving(t *testing.T) {
	mk := func(cat string, price int64) *row.Map {
		m := row.NewMap()
		m.Set("category", cat)
		m.Set("price", price)
		return m
	}
	items := row.Seq{mk("x", 300), mk("x", 300), mk("y", 100)}
	root := row.NewMap()
	root.Set("products", items)

	src := memoryadapter.New("[mem](p.json)", root)
	q := query.New().
		Select("category").
		Sum("price").As("total").
		From("products").
		UseSource(src)
	q.GroupBy("category")
	q.Having("total", condition.Gt, int64(500))
	q.OrderBy("total", query.Desc)
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)

	rows, err := res.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "x", mustGet(t, rows[0], "category"))
	assert.EqualValues(t, 600, mustGet(t, rows[0], "total"))
}

// Scenario 4: inner join (spec section 8).
func TestExecInnerJoin(t *testing.T) {
	mkUser := func(id int64, name string) *row.Map {
		m := row.NewMap()
		m.Set("id", id)
		m.Set("name", name)
		return m
	}
	usersRoot := row.NewMap()
	usersRoot.Set("users", row.Seq{mkUser(1, "A"), mkUser(2, "B")})

	mkOrder := func(id, userID, total int64) *row.Map {
		m := row.NewMap()
		m.Set("id", id)
		m.Set("user_id", userID)
		m.Set("total", total)
		return m
	}
	ordersRoot := row.NewMap()
	ordersRoot.Set("orders", row.Seq{mkOrder(10, 1, 150), mkOrder(11, 1, 250), mkOrder(12, 3, 300)})

	usersSrc := memoryadapter.New("[mem](users.json)", usersRoot)
	ordersSrc := memoryadapter.New("[mem](orders.json)", ordersRoot)

	q := query.New().
		Select("id, name").
		From("users").
		UseSource(usersSrc)
	q.Select("o.id").As("orderId")
	q.Select("o.total").As("totalPrice")
	q.InnerJoin(ordersSrc, "orders", "o")
	q.On("id", condition.Eq, "user_id")
	q.Having("totalPrice", condition.Gt, int64(200))
	q.OrderBy("totalPrice", query.Desc)
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)

	rows, err := res.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, mustGet(t, rows[0], "id"))
	assert.Equal(t, "A", mustGet(t, rows[0], "name"))
	assert.EqualValues(t, 11, mustGet(t, rows[0], "orderId"))
	assert.EqualValues(t, 250, mustGet(t, rows[0], "totalPrice"))
}

// LEFT JOIN with some unmatched left rows: an unmatched row is emitted
// with every right-side field under the alias set to nil, rather than
// being dropped (spec section 2.1, DESIGN.md design decision 2).
func TestExecLeftJoin(t *testing.T) {
	mkUser := func(id int64, name string) *row.Map {
		m := row.NewMap()
		m.Set("id", id)
		m.Set("name", name)
		return m
	}
	usersRoot := row.NewMap()
	usersRoot.Set("users", row.Seq{mkUser(1, "A"), mkUser(2, "B")})

	mkOrder := func(id, userID, total int64) *row.Map {
		m := row.NewMap()
		m.Set("id", id)
		m.Set("user_id", userID)
		m.Set("total", total)
		return m
	}
	ordersRoot := row.NewMap()
	ordersRoot.Set("orders", row.Seq{mkOrder(10, 1, 150)})

	usersSrc := memoryadapter.New("[mem](users.json)", usersRoot)
	ordersSrc := memoryadapter.New("[mem](orders.json)", ordersRoot)

	q := query.New().
		Select("id, name").
		From("users").
		UseSource(usersSrc)
	q.Select("o.total").As("orderTotal")
	q.LeftJoin(ordersSrc, "orders", "o")
	q.On("id", condition.Eq, "user_id")
	q.OrderBy("id", query.Asc)
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)

	rows, err := res.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", mustGet(t, rows[0], "name"))
	assert.EqualValues(t, 150, mustGet(t, rows[0], "orderTotal"))
	assert.Equal(t, "B", mustGet(t, rows[1], "name"))
	assert.Nil(t, mustGet(t, rows[1], "orderTotal"))
}

// LEFT JOIN against a genuinely empty right-hand source, combined with
// SELECT * and DISTINCT: zeroFilledRight has no right-side row to infer a
// schema from, so every left row must come through unmodified with no
// alias key set at all. Exercising SELECT * + DISTINCT here drives the
// result through row.CanonicalHash, which previously panicked on a typed
// nil *row.Map boxed into the alias field.
func TestExecLeftJoinEmptyRightSide(t *testing.T) {
	mkUser := func(id int64, name string) *row.Map {
		m := row.NewMap()
		m.Set("id", id)
		m.Set("name", name)
		return m
	}
	usersRoot := row.NewMap()
	usersRoot.Set("users", row.Seq{mkUser(1, "A"), mkUser(2, "B")})

	emptyOrdersRoot := row.NewMap()
	emptyOrdersRoot.Set("orders", row.Seq{})

	usersSrc := memoryadapter.New("[mem](users.json)", usersRoot)
	ordersSrc := memoryadapter.New("[mem](orders.json)", emptyOrdersRoot)

	q := query.New().
		SelectAll().
		Distinct().
		From("users").
		UseSource(usersSrc)
	q.LeftJoin(ordersSrc, "orders", "o")
	q.On("id", condition.Eq, "user_id")
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)

	rows, err := res.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		m, ok := r.(*row.Map)
		require.True(t, ok)
		_, hasAlias := m.Get("o")
		assert.False(t, hasAlias, "empty right side should leave the left row unmodified")
	}
	assert.Equal(t, "A", mustGet(t, rows[0], "name"))
	assert.Equal(t, "B", mustGet(t, rows[1], "name"))
}

// Scenario 5: LIKE (spec section 8).
func TestExecLike(t *testing.T) {
	mk := func(name string) *row.Map {
		m := row.NewMap()
		m.Set("name", name)
		return m
	}
	root := row.NewMap()
	root.Set("products", row.Seq{mk("ProdXA"), mk("ProdA"), mk("XProdA"), mk("ProdXB")})

	src := memoryadapter.New("[mem](p.json)", root)
	q := query.New().Select("name").From("products").UseSource(src)
	q.Where("name", condition.Like, "Prod%A")
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)

	rows, err := res.FetchAll()
	require.NoError(t, err)
	var names []string
	for _, r := range rows {
		names = append(names, mustGet(t, r, "name").(string))
	}
	assert.Equal(t, []string{"ProdXA", "ProdA"}, names)
}

// Scenario 6: path extraction (spec section 8).
func TestExecPathExtraction(t *testing.T) {
	z := func(n int64) *row.Map {
		m := row.NewMap()
		m.Set("z", n)
		return m
	}
	e1 := row.NewMap()
	e1.Set("e", row.Seq{z(3), z(4), z(5)})
	a := row.NewMap()
	a.Set("a", e1)
	root := row.NewMap()
	root.Set("rows", row.Seq{a})

	src := memoryadapter.New("[mem](p.json)", root)
	q := query.New().From("rows").UseSource(src)
	q.Select("a.e[]->z").As("zs")
	require.NoError(t, q.Err())

	eng := NewEngine()
	res, err := eng.Run(q)
	require.NoError(t, err)

	rows, err := res.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	zs := mustGet(t, rows[0], "zs")
	seq, ok := zs.(row.Seq)
	require.True(t, ok)
	require.Len(t, seq, 3)
	assert.EqualValues(t, 3, seq[0])
	assert.EqualValues(t, 4, seq[1])
	assert.EqualValues(t, 5, seq[2])
}

// DISTINCT idempotence (spec section 8 invariant 5).
func TestExecDistinctIdempotent(t *testing.T) {
	mk := func(n int64) *row.Map {
		m := row.NewMap()
		m.Set("n", n)
		return m
	}
	root := row.NewMap()
	root.Set("rows", row.Seq{mk(1), mk(1), mk(2), mk(2), mk(2)})

	src := memoryadapter.New("[mem](p.json)", root)
	q := query.New().Select("n").Distinct().From("rows").UseSource(src)
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)
	rows, err := res.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Running DISTINCT again over the already-distinct output changes nothing.
	again := row.NewMap()
	again.Set("rows", row.Seq(rows))
	q2 := query.New().Select("n").Distinct().From("rows").UseSource(memoryadapter.New("[mem](p.json)", again))
	require.NoError(t, q2.Err())
	res2, err := e.Run(q2)
	require.NoError(t, err)
	rows2, err := res2.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, rows, rows2)
}

// Sort stability (spec section 8 invariant 7): equal keys keep source order.
func TestExecSortStability(t *testing.T) {
	mk := func(k int64, tag string) *row.Map {
		m := row.NewMap()
		m.Set("k", k)
		m.Set("tag", tag)
		return m
	}
	root := row.NewMap()
	root.Set("rows", row.Seq{mk(1, "first"), mk(1, "second"), mk(0, "zero")})

	src := memoryadapter.New("[mem](p.json)", root)
	q := query.New().SelectAll().From("rows").UseSource(src)
	q.OrderBy("k", query.Asc)
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)
	rows, err := res.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "zero", mustGet(t, rows[0], "tag"))
	assert.Equal(t, "first", mustGet(t, rows[1], "tag"))
	assert.Equal(t, "second", mustGet(t, rows[2], "tag"))
}

// Limit/offset windowing.
func TestExecLimitOffset(t *testing.T) {
	src := memoryadapter.New("[mem](p.json)", productsDoc())
	q := query.New().SelectAll().From("data.products").UseSource(src)
	q.LimitN(2, 1)
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)
	rows, err := res.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "B", mustGet(t, rows[0], "name"))
	assert.Equal(t, "C", mustGet(t, rows[1], "name"))
}

// Aggregate helpers on Results (sum/avg/min/max/count/exists), memoized.
func TestExecResultsAggregateHelpers(t *testing.T) {
	src := memoryadapter.New("[mem](p.json)", productsDoc())
	q := query.New().SelectAll().From("data.products").UseSource(src)
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)

	sum, err := res.Sum("price")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, sum)

	count, err := res.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	exists, err := res.Exists()
	require.NoError(t, err)
	assert.True(t, exists)

	min, err := res.Min("price")
	require.NoError(t, err)
	assert.EqualValues(t, 100, min)

	max, err := res.Max("price")
	require.NoError(t, err)
	assert.EqualValues(t, 400, max)
}

// Results.Explain lists the stages a query will run through.
func TestExecResultsExplain(t *testing.T) {
	src := memoryadapter.New("[mem](p.json)", productsDoc())
	q := query.New().SelectAll().From("data.products").UseSource(src)
	q.OrderBy("price", query.Desc)
	require.NoError(t, q.Err())

	e := NewEngine()
	res, err := e.Run(q)
	require.NoError(t, err)

	steps := res.Explain()
	assert.Contains(t, steps, "filter + project")
	assert.Contains(t, steps, "sort (materializes remaining rows)")
}
