package validation

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskgate/taskgate/internal/task"
)

func strPtr(s string) *string { return &s }

func TestValidateCreateTask(t *testing.T) {
	tests := []struct {
		name       string
		req        CreateTaskRequest
		wantFields []string
	}{
		{
			name: "valid minimal",
			req:  CreateTaskRequest{Title: strPtr("Write spec")},
		},
		{
			name: "valid full",
			req: CreateTaskRequest{
				Title:       strPtr("Write spec"),
				Description: strPtr("section 4"),
				Priority:    strPtr("high"),
				DueDate:     strPtr("2026-09-15"),
			},
		},
		{
			name:       "missing title",
			req:        CreateTaskRequest{},
			wantFields: []string{"title"},
		},
		{
			name:       "whitespace title",
			req:        CreateTaskRequest{Title: strPtr("   ")},
			wantFields: []string{"title"},
		},
		{
			name:       "title too long",
			req:        CreateTaskRequest{Title: strPtr(strings.Repeat("x", 256))},
			wantFields: []string{"title"},
		},
		{
			name:       "invalid priority",
			req:        CreateTaskRequest{Title: strPtr("ok"), Priority: strPtr("urgent")},
			wantFields: []string{"priority"},
		},
		{
			name:       "invalid due date",
			req:        CreateTaskRequest{Title: strPtr("ok"), DueDate: strPtr("next tuesday")},
			wantFields: []string{"due_date"},
		},
		{
			name: "all violations collected in order",
			req: CreateTaskRequest{
				Priority: strPtr("urgent"),
				DueDate:  strPtr("soon"),
			},
			wantFields: []string{"title", "priority", "due_date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, errs := ValidateCreateTask(tt.req)
			if len(tt.wantFields) > 0 {
				assert.Equal(t, tt.wantFields, errs.Fields())
				return
			}
			require.True(t, errs.Empty(), "unexpected errors: %v", errs)
			assert.NotEmpty(t, params.Title)
		})
	}
}

func TestValidateCreateTask_TrimsTitle(t *testing.T) {
	params, errs := ValidateCreateTask(CreateTaskRequest{Title: strPtr("  Write spec  ")})
	require.True(t, errs.Empty())
	assert.Equal(t, "Write spec", params.Title)
}

func TestValidateTitleLengthCountsCharacters(t *testing.T) {
	// 200 two-byte characters exceed 255 bytes but not 255 characters.
	_, errs := ValidateCreateTask(CreateTaskRequest{Title: strPtr(strings.Repeat("ü", 200))})
	assert.True(t, errs.Empty(), "multibyte title within the character limit")

	_, errs = ValidateCreateTask(CreateTaskRequest{Title: strPtr(strings.Repeat("ü", 256))})
	assert.Equal(t, []string{"title"}, errs.Fields())

	_, errs = ValidateUpdateTask(UpdateTaskRequest{Title: strPtr(strings.Repeat("日", 200))})
	assert.True(t, errs.Empty(), "multibyte update title within the character limit")

	_, errs = ValidateUpdateTask(UpdateTaskRequest{Title: strPtr(strings.Repeat("日", 256))})
	assert.Equal(t, []string{"title"}, errs.Fields())
}

func TestValidateCreateTask_DueDateFormats(t *testing.T) {
	for _, raw := range []string{"2026-09-15", "2026-09-15T10:30:00Z"} {
		_, errs := ValidateCreateTask(CreateTaskRequest{Title: strPtr("ok"), DueDate: strPtr(raw)})
		assert.True(t, errs.Empty(), "due date %q should be accepted", raw)
	}
}

func TestValidateUpdateTask(t *testing.T) {
	tests := []struct {
		name       string
		req        UpdateTaskRequest
		wantFields []string
	}{
		{
			name: "valid status change",
			req:  UpdateTaskRequest{Status: strPtr("completed")},
		},
		{
			name: "valid multi-field",
			req: UpdateTaskRequest{
				Title:    strPtr("New title"),
				Priority: strPtr("low"),
				DueDate:  strPtr("2026-10-01"),
			},
		},
		{
			name:       "empty body",
			req:        UpdateTaskRequest{},
			wantFields: []string{"body"},
		},
		{
			name:       "empty title",
			req:        UpdateTaskRequest{Title: strPtr(" ")},
			wantFields: []string{"title"},
		},
		{
			name:       "invalid status",
			req:        UpdateTaskRequest{Status: strPtr("done")},
			wantFields: []string{"status"},
		},
		{
			name:       "invalid status and priority collected",
			req:        UpdateTaskRequest{Status: strPtr("done"), Priority: strPtr("urgent")},
			wantFields: []string{"status", "priority"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := ValidateUpdateTask(tt.req)
			if len(tt.wantFields) > 0 {
				assert.Equal(t, tt.wantFields, errs.Fields())
				return
			}
			assert.True(t, errs.Empty(), "unexpected errors: %v", errs)
		})
	}
}

func TestValidateUpdateTask_EmptyBodyMessage(t *testing.T) {
	_, errs := ValidateUpdateTask(UpdateTaskRequest{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "at least one field")
}

func TestValidateTaskID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "valid uuid", id: "d9428888-122b-11e1-b85c-61cd3cbb3210"},
		{name: "valid uppercase", id: "D9428888-122B-11E1-B85C-61CD3CBB3210"},
		{name: "empty", id: "", wantErr: true},
		{name: "numeric", id: "42", wantErr: true},
		{name: "missing hyphens", id: "d9428888122b11e1b85c61cd3cbb3210", wantErr: true},
		{name: "too short", id: "d9428888-122b-11e1-b85c", wantErr: true},
		{name: "non-hex", id: "z9428888-122b-11e1-b85c-61cd3cbb3210", wantErr: true},
		{name: "injection", id: "1 OR 1=1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateTaskID(tt.id)
			if tt.wantErr {
				require.Len(t, errs, 1)
				assert.Equal(t, "id", errs[0].Field)
				return
			}
			assert.True(t, errs.Empty())
		})
	}
}

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantFields []string
		check      func(t *testing.T, p task.ListParams)
	}{
		{
			name:  "empty query",
			query: "",
			check: func(t *testing.T, p task.ListParams) {
				assert.Nil(t, p.Status)
				assert.Nil(t, p.Priority)
				assert.Zero(t, p.Limit)
				assert.Zero(t, p.Offset)
			},
		},
		{
			name:  "all parameters",
			query: "status=completed&priority=high&search=spec&sort_by=due_date&order=asc&limit=5&offset=10",
			check: func(t *testing.T, p task.ListParams) {
				require.NotNil(t, p.Status)
				assert.Equal(t, task.StatusCompleted, *p.Status)
				require.NotNil(t, p.Priority)
				assert.Equal(t, task.PriorityHigh, *p.Priority)
				assert.Equal(t, "spec", p.Search)
				assert.Equal(t, task.SortDueDate, p.SortBy)
				assert.Equal(t, task.OrderAsc, p.Order)
				assert.Equal(t, 5, p.Limit)
				assert.Equal(t, 10, p.Offset)
			},
		},
		{name: "invalid status", query: "status=done", wantFields: []string{"status"}},
		{name: "invalid priority", query: "priority=urgent", wantFields: []string{"priority"}},
		{name: "invalid sort column", query: "sort_by=title", wantFields: []string{"sort_by"}},
		{name: "invalid order", query: "order=random", wantFields: []string{"order"}},
		{name: "limit zero", query: "limit=0", wantFields: []string{"limit"}},
		{name: "limit above max", query: "limit=101", wantFields: []string{"limit"}},
		{name: "limit not a number", query: "limit=ten", wantFields: []string{"limit"}},
		{name: "negative offset", query: "offset=-1", wantFields: []string{"offset"}},
		{
			name:       "multiple violations collected",
			query:      "status=done&limit=0&offset=-5",
			wantFields: []string{"status", "limit", "offset"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			params, errs := ParseListQuery(values)
			if len(tt.wantFields) > 0 {
				assert.Equal(t, tt.wantFields, errs.Fields())
				return
			}
			require.True(t, errs.Empty(), "unexpected errors: %v", errs)
			if tt.check != nil {
				tt.check(t, params)
			}
		})
	}
}

func TestParseListQuery_BoundaryLimits(t *testing.T) {
	for _, limit := range []string{"1", "100"} {
		values := url.Values{"limit": {limit}}
		_, errs := ParseListQuery(values)
		assert.True(t, errs.Empty(), "limit %s should be accepted", limit)
	}
}
