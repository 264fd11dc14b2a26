package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskgate/taskgate/internal/pipeline"
	"github.com/taskgate/taskgate/internal/ratelimit"
	"github.com/taskgate/taskgate/internal/validation"
)

// registerRoutes builds the per-route pipelines and mounts every
// endpoint. Stage order is fixed: rate limit, then auth, then
// validation, then the business call.
func (s *Server) registerRoutes() {
	general := pipeline.NewRateLimitStage(s.deps.Limits, ratelimit.TierGeneral.Name, s.deps.Metrics, s.logger)
	login := pipeline.NewRateLimitStage(s.deps.Limits, ratelimit.TierLogin.Name, s.deps.Metrics, s.logger)
	signup := pipeline.NewRateLimitStage(s.deps.Limits, ratelimit.TierSignup.Name, s.deps.Metrics, s.logger)
	passwordReset := pipeline.NewRateLimitStage(s.deps.Limits, ratelimit.TierPasswordReset.Name, s.deps.Metrics, s.logger)
	taskCreate := pipeline.NewRateLimitStage(s.deps.Limits, ratelimit.TierTaskCreate.Name, s.deps.Metrics, s.logger)

	authRequired := pipeline.NewAuthStage(s.deps.Provider, pipeline.AuthRequired, s.deps.Metrics, s.logger)
	authVerified := pipeline.NewAuthStage(s.deps.Provider, pipeline.AuthRequireVerified, s.deps.Metrics, s.logger)

	e := s.engine

	e.GET("/tasks", s.handle(stages(general, validateListQuery()), s.listTasks))
	e.GET("/tasks/stats", s.handle(stages(general), s.taskStats))
	e.GET("/tasks/:id", s.handle(stages(general, validateTaskID()), s.getTask))
	e.POST("/tasks", s.handle(stages(taskCreate, authVerified, validateCreateTask()), s.createTask))
	e.PUT("/tasks/:id", s.handle(stages(general, authRequired, validateTaskID(), validateUpdateTask()), s.updateTask))
	e.DELETE("/tasks/:id", s.handle(stages(general, authRequired, validateTaskID()), s.deleteTask))

	e.POST("/auth/signup", s.handle(stages(signup, validateSignup()), s.signup))
	e.POST("/auth/login", s.handle(stages(login, validateLogin()), s.login))
	e.POST("/auth/logout", s.handle(stages(general, authRequired), s.logout))
	e.GET("/auth/me", s.handle(stages(general, authRequired), s.me))
	e.POST("/auth/forgot-password", s.handle(stages(passwordReset, validateEmail()), s.forgotPassword))
	e.POST("/auth/reset-password", s.handle(stages(general, authRequired, validatePassword()), s.resetPassword))
	e.POST("/auth/refresh", s.handle(stages(general, validateRefresh()), s.refresh))
	e.POST("/auth/resend-verification", s.handle(stages(general, validateEmail()), s.resendVerification))

	// Probes and metrics bypass the pipeline entirely.
	if s.deps.Health != nil {
		e.GET("/health/live", s.deps.Health.Live)
		e.GET("/health/ready", s.deps.Health.Ready)
	}
	if s.deps.Metrics != nil {
		e.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	e.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, pipeline.NotFound("resource not found").Envelope(false))
	})
}

// stages builds a stage list.
func stages(list ...pipeline.Stage) []pipeline.Stage {
	return list
}

// validateTaskID checks the path identifier shape before any remote
// call.
func validateTaskID() pipeline.Stage {
	return pipeline.StageFunc("validate:task_id", func(ctx context.Context, ex *pipeline.Exchange) pipeline.Outcome {
		if errs := validation.ValidateTaskID(ex.PathID); !errs.Empty() {
			return pipeline.Fail(pipeline.ValidationFailed(errs))
		}
		return pipeline.Continue()
	})
}

// validateListQuery parses and validates list query parameters into
// typed params.
func validateListQuery() pipeline.Stage {
	return pipeline.StageFunc("validate:list_query", func(ctx context.Context, ex *pipeline.Exchange) pipeline.Outcome {
		params, errs := validation.ParseListQuery(ex.Request.URL.Query())
		if !errs.Empty() {
			return pipeline.Fail(pipeline.ValidationFailed(errs))
		}
		ex.Params = params
		return pipeline.Continue()
	})
}

func validateCreateTask() pipeline.Stage {
	return pipeline.StageFunc("validate:create_task", func(ctx context.Context, ex *pipeline.Exchange) pipeline.Outcome {
		var req validation.CreateTaskRequest
		if f := decodeJSON(ex.Request, &req); f != nil {
			return pipeline.Fail(f)
		}
		params, errs := validation.ValidateCreateTask(req)
		if !errs.Empty() {
			return pipeline.Fail(pipeline.ValidationFailed(errs))
		}
		ex.Params = params
		return pipeline.Continue()
	})
}

func validateUpdateTask() pipeline.Stage {
	return pipeline.StageFunc("validate:update_task", func(ctx context.Context, ex *pipeline.Exchange) pipeline.Outcome {
		var req validation.UpdateTaskRequest
		if f := decodeJSON(ex.Request, &req); f != nil {
			return pipeline.Fail(f)
		}
		params, errs := validation.ValidateUpdateTask(req)
		if !errs.Empty() {
			return pipeline.Fail(pipeline.ValidationFailed(errs))
		}
		ex.Params = params
		return pipeline.Continue()
	})
}

func validateSignup() pipeline.Stage {
	return pipeline.StageFunc("validate:signup", func(ctx context.Context, ex *pipeline.Exchange) pipeline.Outcome {
		var req validation.SignupRequest
		if f := decodeJSON(ex.Request, &req); f != nil {
			return pipeline.Fail(f)
		}
		if errs := validation.ValidateSignup(req); !errs.Empty() {
			return pipeline.Fail(pipeline.ValidationFailed(errs))
		}
		ex.Params = req
		return pipeline.Continue()
	})
}

func validateLogin() pipeline.Stage {
	return pipeline.StageFunc("validate:login", func(ctx context.Context, ex *pipeline.Exchange) pipeline.Outcome {
		var req validation.LoginRequest
		if f := decodeJSON(ex.Request, &req); f != nil {
			return pipeline.Fail(f)
		}
		if errs := validation.ValidateLogin(req); !errs.Empty() {
			return pipeline.Fail(pipeline.ValidationFailed(errs))
		}
		ex.Params = req
		return pipeline.Continue()
	})
}

func validateRefresh() pipeline.Stage {
	return pipeline.StageFunc("validate:refresh", func(ctx context.Context, ex *pipeline.Exchange) pipeline.Outcome {
		var req validation.RefreshRequest
		if f := decodeJSON(ex.Request, &req); f != nil {
			return pipeline.Fail(f)
		}
		if errs := validation.ValidateRefresh(req); !errs.Empty() {
			return pipeline.Fail(pipeline.ValidationFailed(errs))
		}
		ex.Params = req
		return pipeline.Continue()
	})
}

func validateEmail() pipeline.Stage {
	return pipeline.StageFunc("validate:email", func(ctx context.Context, ex *pipeline.Exchange) pipeline.Outcome {
		var req validation.EmailRequest
		if f := decodeJSON(ex.Request, &req); f != nil {
			return pipeline.Fail(f)
		}
		if errs := validation.ValidateEmail(req); !errs.Empty() {
			return pipeline.Fail(pipeline.ValidationFailed(errs))
		}
		ex.Params = req
		return pipeline.Continue()
	})
}

func validatePassword() pipeline.Stage {
	return pipeline.StageFunc("validate:password", func(ctx context.Context, ex *pipeline.Exchange) pipeline.Outcome {
		var req validation.PasswordRequest
		if f := decodeJSON(ex.Request, &req); f != nil {
			return pipeline.Fail(f)
		}
		if errs := validation.ValidatePassword(req); !errs.Empty() {
			return pipeline.Fail(pipeline.ValidationFailed(errs))
		}
		ex.Params = req
		return pipeline.Continue()
	})
}
