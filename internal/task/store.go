package task

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no task exists for the given id.
var ErrNotFound = errors.New("task not found")

// Store provides access to task persistence. Implementations must bind
// all caller-supplied values as query parameters.
type Store interface {
	// Create inserts a new task. The store assigns id and timestamps;
	// missing status and priority take their enum defaults.
	Create(ctx context.Context, params CreateParams) (*Task, error)

	// Get retrieves a task by id.
	Get(ctx context.Context, id string) (*Task, error)

	// List retrieves one page of tasks plus the unbounded total count
	// for the same filters.
	List(ctx context.Context, params ListParams) ([]Task, int, error)

	// Update applies a partial update and refreshes updated_at.
	Update(ctx context.Context, id string, params UpdateParams) (*Task, error)

	// Delete removes a task by id.
	Delete(ctx context.Context, id string) error

	// Stats returns task counts grouped by status.
	Stats(ctx context.Context) (*StatusCounts, error)
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store around an existing pool. The caller
// retains ownership of the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, params CreateParams) (*Task, error) {
	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, status, priority, due_date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+selectColumns,
		params.Title, params.Description, StatusPending, priority, params.DueDate,
	)

	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Task, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+selectColumns+" FROM tasks WHERE id = $1", id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, params ListParams) ([]Task, int, error) {
	query := BuildListQuery(params)

	rows, err := s.pool.Query(ctx, query.SQL, query.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read tasks: %w", err)
	}

	count := BuildCountQuery(params)
	var total int
	if err := s.pool.QueryRow(ctx, count.SQL, count.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return tasks, total, nil
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, id string, params UpdateParams) (*Task, error) {
	var sets []string
	var args []interface{}

	if params.Title != nil {
		args = append(args, *params.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Priority != nil {
		args = append(args, *params.Priority)
		sets = append(sets, fmt.Sprintf("priority = $%d", len(args)))
	}
	if params.DueDate != nil {
		args = append(args, *params.DueDate)
		sets = append(sets, fmt.Sprintf("due_date = $%d", len(args)))
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	sql := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), selectColumns)

	t, err := scanTask(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats implements Store.
func (s *PostgresStore) Stats(ctx context.Context) (*StatusCounts, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT status, COUNT(*) FROM tasks GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	defer rows.Close()

	counts := &StatusCounts{}
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		switch status {
		case StatusPending:
			counts.Pending = n
		case StatusInProgress:
			counts.InProgress = n
		case StatusCompleted:
			counts.Completed = n
		}
		counts.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status counts: %w", err)
	}

	return counts, nil
}

// scanTask scans one task row.
func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
