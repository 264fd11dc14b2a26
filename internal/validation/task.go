package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taskgate/taskgate/internal/task"
)

// maxTitleLength is the upper bound on task titles, counted in
// characters rather than bytes.
const maxTitleLength = 255

// taskIDPattern matches the store's identifier format: fixed-length
// hyphenated hexadecimal (UUID shape).
var taskIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// dueDateLayouts are the accepted due date formats.
var dueDateLayouts = []string{time.RFC3339, "2006-01-02"}

// CreateTaskRequest is the raw create body before validation. Pointer
// fields distinguish absent from empty.
type CreateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
}

// UpdateTaskRequest is the raw partial update body before validation.
type UpdateTaskRequest struct {
	Title    *string `json:"title"`
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
	DueDate  *string `json:"due_date"`
}

// ValidateCreateTask checks a create body and produces typed create
// parameters. All violations are collected.
func ValidateCreateTask(req CreateTaskRequest) (task.CreateParams, ErrorList) {
	var errs ErrorList
	var params task.CreateParams

	switch {
	case req.Title == nil:
		errs = errs.add("title", "title is required")
	case strings.TrimSpace(*req.Title) == "":
		errs = errs.add("title", "title must not be empty")
	case utf8.RuneCountInString(strings.TrimSpace(*req.Title)) > maxTitleLength:
		errs = errs.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	default:
		params.Title = strings.TrimSpace(*req.Title)
	}

	if req.Description != nil {
		params.Description = *req.Description
	}

	if req.Priority != nil {
		priority := task.Priority(*req.Priority)
		if !priority.Valid() {
			errs = errs.add("priority", "priority must be one of: low, medium, high")
		} else {
			params.Priority = priority
		}
	}

	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			errs = errs.add("due_date", "due_date must be a valid date")
		} else {
			params.DueDate = &due
		}
	}

	return params, errs
}

// ValidateUpdateTask checks a partial update body and produces typed
// update parameters. A body with no recognized field is rejected.
func ValidateUpdateTask(req UpdateTaskRequest) (task.UpdateParams, ErrorList) {
	var errs ErrorList
	var params task.UpdateParams

	if req.Title == nil && req.Status == nil && req.Priority == nil && req.DueDate == nil {
		return params, errs.add("body", "at least one field must be provided")
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		switch {
		case title == "":
			errs = errs.add("title", "title must not be empty")
		case utf8.RuneCountInString(title) > maxTitleLength:
			errs = errs.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
		default:
			params.Title = &title
		}
	}

	if req.Status != nil {
		status := task.Status(*req.Status)
		if !status.Valid() {
			errs = errs.add("status", "status must be one of: pending, in-progress, completed")
		} else {
			params.Status = &status
		}
	}

	if req.Priority != nil {
		priority := task.Priority(*req.Priority)
		if !priority.Valid() {
			errs = errs.add("priority", "priority must be one of: low, medium, high")
		} else {
			params.Priority = &priority
		}
	}

	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			errs = errs.add("due_date", "due_date must be a valid date")
		} else {
			params.DueDate = &due
		}
	}

	return params, errs
}

// ValidateTaskID checks the path identifier shape. This is a
// single-error short-circuit: a malformed id never reaches the store.
func ValidateTaskID(id string) ErrorList {
	if !taskIDPattern.MatchString(id) {
		return ErrorList{{Field: "id", Message: "id must be a valid task identifier"}}
	}
	return nil
}

// ParseListQuery checks list query parameters and produces typed list
// parameters. Raw strings never reach the query builder.
func ParseListQuery(values url.Values) (task.ListParams, ErrorList) {
	var errs ErrorList
	var params task.ListParams

	if raw := values.Get("status"); raw != "" {
		status := task.Status(raw)
		if !status.Valid() {
			errs = errs.add("status", "status must be one of: pending, in-progress, completed")
		} else {
			params.Status = &status
		}
	}

	if raw := values.Get("priority"); raw != "" {
		priority := task.Priority(raw)
		if !priority.Valid() {
			errs = errs.add("priority", "priority must be one of: low, medium, high")
		} else {
			params.Priority = &priority
		}
	}

	params.Search = strings.TrimSpace(values.Get("search"))

	if raw := values.Get("sort_by"); raw != "" {
		sortBy := task.SortColumn(raw)
		if !sortBy.Valid() {
			errs = errs.add("sort_by", "sort_by must be one of: created_at, updated_at, due_date, priority")
		} else {
			params.SortBy = sortBy
		}
	}

	if raw := values.Get("order"); raw != "" {
		order := task.SortOrder(raw)
		if !order.Valid() {
			errs = errs.add("order", "order must be asc or desc")
		} else {
			params.Order = order
		}
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			errs = errs.add("limit", "limit must be an integer between 1 and 100")
		} else {
			params.Limit = limit
		}
	}

	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			errs = errs.add("offset", "offset must be a non-negative integer")
		} else {
			params.Offset = offset
		}
	}

	return params, errs
}

// parseDueDate parses a due date in any accepted layout.
func parseDueDate(raw string) (time.Time, error) {
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date: %s", raw)
}
