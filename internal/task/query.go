package task

import (
	"fmt"
	"strings"
)

// SortColumn is an allow-listed column for ordering list results.
type SortColumn string

// Sortable columns.
const (
	SortCreatedAt SortColumn = "created_at"
	SortUpdatedAt SortColumn = "updated_at"
	SortDueDate   SortColumn = "due_date"
	SortPriority  SortColumn = "priority"
)

// Valid returns true if the column is in the allow-list.
func (c SortColumn) Valid() bool {
	switch c {
	case SortCreatedAt, SortUpdatedAt, SortDueDate, SortPriority:
		return true
	}
	return false
}

// SortOrder is the direction for ordering list results.
type SortOrder string

// Sort directions.
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Valid returns true if the order is asc or desc.
func (o SortOrder) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// DefaultLimit is the page size assumed when the caller omits limit.
const DefaultLimit = 10

// ListParams is the validated, strongly typed representation of list
// query intent. It is produced by the validation layer; raw caller
// strings never reach the query builder.
type ListParams struct {
	// Status filters by status equality when non-nil.
	Status *Status

	// Priority filters by priority equality when non-nil.
	Priority *Priority

	// Search applies a case-insensitive substring match over title and
	// description when non-empty.
	Search string

	// SortBy is the ordering column; zero value means created_at.
	SortBy SortColumn

	// Order is the ordering direction; zero value means descending.
	Order SortOrder

	// Limit is the page size in [1,100]; zero means DefaultLimit.
	Limit int

	// Offset is the number of rows to skip.
	Offset int
}

// QueryDescriptor is a parameterized query: SQL text with positional
// placeholders and the arguments to bind. Caller-supplied values only
// ever travel through Args.
type QueryDescriptor struct {
	SQL  string
	Args []interface{}
}

const selectColumns = "id, title, description, status, priority, due_date, created_at, updated_at"

// BuildListQuery translates list parameters into the SELECT for one
// page of results.
func BuildListQuery(p ListParams) QueryDescriptor {
	var sb strings.Builder
	sb.WriteString("SELECT " + selectColumns + " FROM tasks")

	where, args := buildFilters(p)
	sb.WriteString(where)

	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = SortCreatedAt
	}
	order := p.Order
	if order == "" {
		order = OrderDesc
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s", sortBy, strings.ToUpper(string(order))))

	limit := p.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))

	args = append(args, p.Offset)
	sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))

	return QueryDescriptor{SQL: sb.String(), Args: args}
}

// BuildCountQuery translates the same filters into the unbounded total
// count used for the envelope's count field.
func BuildCountQuery(p ListParams) QueryDescriptor {
	where, args := buildFilters(p)
	return QueryDescriptor{
		SQL:  "SELECT COUNT(*) FROM tasks" + where,
		Args: args,
	}
}

// buildFilters produces the WHERE clause shared by list and count
// queries. All predicates bind caller values as parameters.
func buildFilters(p ListParams) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if p.Status != nil {
		args = append(args, *p.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if p.Priority != nil {
		args = append(args, *p.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}

	if p.Search != "" {
		args = append(args, "%"+escapeLike(p.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// escapeLike escapes LIKE metacharacters so a search term matches
// literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
