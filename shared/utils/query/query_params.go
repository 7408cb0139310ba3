package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit inside a 32-bit OFFSET.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Params is a parsed list request.
type Params struct {
	Page    int
	Limit   int
	Search  string
	Filters map[string]string
	Sort    Sort
}

type Sort struct {
	Field string
	Order string
}

// Columns maps the request names a list accepts onto table columns.
// Anything not listed is ignored.
type Columns struct {
	Filter map[string]string
	Search []string
	Sort   map[string]string
}

// Page is the pagination block returned next to list items.
type Page struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Parse reads page, limit, search, filters[name]=value and
// sort[field]/sort[order] from the request.
func Parse(c *gin.Context) Params {
	p := Params{
		Page:    clamp(intQuery(c, "page", 1), 1, MaxPage),
		Limit:   clamp(intQuery(c, "limit", DefaultLimit), 1, MaxLimit),
		Search:  strings.TrimSpace(c.Query("search")),
		Filters: map[string]string{},
		Sort:    Sort{Field: c.DefaultQuery("sort[field]", "created_at"), Order: strings.ToLower(c.Query("sort[order]"))},
	}
	if p.Sort.Order != "asc" {
		p.Sort.Order = "desc"
	}
	for key, values := range c.Request.URL.Query() {
		name, ok := strings.CutPrefix(key, "filters[")
		if !ok || !strings.HasSuffix(name, "]") || len(values) == 0 || values[0] == "" {
			continue
		}
		p.Filters[strings.TrimSuffix(name, "]")] = values[0]
	}
	return p
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func clamp(n, lo, hi int) int {
	return min(max(n, lo), hi)
}

// Offset is the number of rows before the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Where narrows a query by the allowed filters and the search term.
// Apply it before counting.
func (p Params) Where(cols Columns) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for name, value := range p.Filters {
			if column, ok := cols.Filter[name]; ok {
				db = db.Where(fmt.Sprintf("%s = ?", column), value)
			}
		}
		if p.Search == "" || len(cols.Search) == 0 {
			return db
		}
		like := "%" + p.Search + "%"
		conditions := make([]string, len(cols.Search))
		args := make([]interface{}, len(cols.Search))
		for i, column := range cols.Search {
			conditions[i] = column + " ILIKE ?"
			args[i] = like
		}
		return db.Where(strings.Join(conditions, " OR "), args...)
	}
}

// Window orders the query and cuts out the current page.
func (p Params) Window(cols Columns) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		order := "created_at DESC"
		if column, ok := cols.Sort[p.Sort.Field]; ok {
			order = column + " " + strings.ToUpper(p.Sort.Order)
		}
		return db.Order(order).Offset(p.Offset()).Limit(p.Limit)
	}
}

// Paginate describes where the current page sits among total rows.
func (p Params) Paginate(total int64) Page {
	limit := int64(max(p.Limit, 1))
	pages := (total + limit - 1) / limit
	return Page{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    int64(p.Page) < pages,
		HasPrev:    p.Page > 1,
	}
}
