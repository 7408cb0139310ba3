package query

import (
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func contextFor(rawQuery string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/items?"+rawQuery, nil)
	return c
}

func TestParseDefaults(t *testing.T) {
	p := Parse(contextFor(""))

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, Sort{Field: "created_at", Order: "desc"}, p.Sort)
	assert.Empty(t, p.Filters)
	assert.Equal(t, 0, p.Offset())
}

func TestParseClampsAndFilters(t *testing.T) {
	p := Parse(contextFor("page=-3&limit=500&search=%20acme%20&filters[status]=published&filters[empty]=&filters=x&sort[field]=title&sort[order]=ASC"))

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, "acme", p.Search)
	assert.Equal(t, map[string]string{"status": "published"}, p.Filters)
	assert.Equal(t, Sort{Field: "title", Order: "asc"}, p.Sort)
}

func TestParseBadNumbersFallBack(t *testing.T) {
	p := Parse(contextFor("page=abc&limit=&sort[order]=sideways"))

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, "desc", p.Sort.Order)
}

func TestParseHugePageStaysInRange(t *testing.T) {
	p := Parse(contextFor("page=" + strconv.Itoa(1<<62) + "&limit=100"))

	assert.Equal(t, MaxPage, p.Page)
	assert.Positive(t, p.Offset())
	assert.LessOrEqual(t, p.Offset(), 1<<31-1)
}

func TestPaginate(t *testing.T) {
	r := Params{Page: 2, Limit: 10}.Paginate(25)
	assert.Equal(t, int64(3), r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)

	assert.False(t, Params{Page: 3, Limit: 10}.Paginate(25).HasNext)

	empty := Params{Page: 1, Limit: 10}.Paginate(0)
	assert.Equal(t, int64(0), empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrev)
}

type row struct {
	ID     int
	Email  string
	Status string
}

func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestScopesOnlyUseDeclaredColumns(t *testing.T) {
	cols := Columns{
		Filter: map[string]string{"status": "status"},
		Search: []string{"email"},
		Sort:   map[string]string{"email": "email"},
	}
	p := Parse(contextFor("page=3&limit=10&search=acme&filters[status]=active&filters[password]=x&sort[field]=email&sort[order]=asc"))

	var rows []row
	stmt := dryRun(t).Model(&row{}).Scopes(p.Where(cols), p.Window(cols)).Find(&rows).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, "status = $")
	assert.Contains(t, sql, "email ILIKE $")
	assert.NotContains(t, sql, "password")
	assert.Contains(t, sql, "ORDER BY email ASC")
	assert.Contains(t, stmt.Vars, "%acme%")
	assert.Contains(t, stmt.Vars, 10)
	assert.Contains(t, stmt.Vars, 20)
}

func TestWindowFallsBackToCreatedAt(t *testing.T) {
	p := Parse(contextFor("sort[field]=password"))

	var rows []row
	stmt := dryRun(t).Model(&row{}).Scopes(p.Window(Columns{})).Find(&rows).Statement
	assert.Contains(t, stmt.SQL.String(), "ORDER BY created_at DESC")
}
