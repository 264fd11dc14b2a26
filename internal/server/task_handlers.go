package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskgate/taskgate/internal/pipeline"
	"github.com/taskgate/taskgate/internal/task"
)

// createTask handles POST /tasks.
func (s *Server) createTask(c *gin.Context, ex *pipeline.Exchange) {
	params := ex.Params.(task.CreateParams)

	created, err := s.deps.Tasks.Create(c.Request.Context(), params)
	if err != nil {
		s.fail(c, pipeline.Upstream("failed to create task", err))
		return
	}

	respond(c, http.StatusCreated, pipeline.OK("Task created successfully", created))
}

// listTasks handles GET /tasks.
func (s *Server) listTasks(c *gin.Context, ex *pipeline.Exchange) {
	params := ex.Params.(task.ListParams)

	tasks, total, err := s.deps.Tasks.List(c.Request.Context(), params)
	if err != nil {
		s.fail(c, pipeline.Upstream("failed to list tasks", err))
		return
	}

	respond(c, http.StatusOK, pipeline.OKCount("Tasks retrieved successfully", tasks, total))
}

// getTask handles GET /tasks/:id.
func (s *Server) getTask(c *gin.Context, ex *pipeline.Exchange) {
	found, err := s.deps.Tasks.Get(c.Request.Context(), ex.PathID)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			s.fail(c, pipeline.NotFound("Task not found"))
			return
		}
		s.fail(c, pipeline.Upstream("failed to retrieve task", err))
		return
	}

	respond(c, http.StatusOK, pipeline.OK("Task retrieved successfully", found))
}

// updateTask handles PUT /tasks/:id.
func (s *Server) updateTask(c *gin.Context, ex *pipeline.Exchange) {
	params := ex.Params.(task.UpdateParams)

	updated, err := s.deps.Tasks.Update(c.Request.Context(), ex.PathID, params)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			s.fail(c, pipeline.NotFound("Task not found"))
			return
		}
		s.fail(c, pipeline.Upstream("failed to update task", err))
		return
	}

	respond(c, http.StatusOK, pipeline.OK("Task updated successfully", updated))
}

// deleteTask handles DELETE /tasks/:id.
func (s *Server) deleteTask(c *gin.Context, ex *pipeline.Exchange) {
	if err := s.deps.Tasks.Delete(c.Request.Context(), ex.PathID); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			s.fail(c, pipeline.NotFound("Task not found"))
			return
		}
		s.fail(c, pipeline.Upstream("failed to delete task", err))
		return
	}

	respond(c, http.StatusOK, pipeline.OK("Task deleted successfully", nil))
}

// taskStats handles GET /tasks/stats.
func (s *Server) taskStats(c *gin.Context, ex *pipeline.Exchange) {
	counts, err := s.deps.Tasks.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, pipeline.Upstream("failed to retrieve task stats", err))
		return
	}

	respond(c, http.StatusOK, pipeline.OK("Task stats retrieved successfully", counts))
}
