package pipeline

import (
	"context"
	"net/http"

	"github.com/taskgate/taskgate/internal/auth"
)

// Exchange carries one request through the stages. Stages communicate
// only through the exchange; a stage never writes a response itself.
type Exchange struct {
	// Request is the inbound HTTP request.
	Request *http.Request

	// CallerKey identifies the caller for rate limiting, normally the
	// client IP.
	CallerKey string

	// PathID is the resource identifier from the route path, when the
	// route has one.
	PathID string

	// Token is the bearer token, set by the auth stage when credentials
	// are present.
	Token string

	// Identity is the verified caller, set by the auth stage.
	Identity *auth.Identity

	// Params holds the typed, validated operation input, set by the
	// validation stage.
	Params interface{}
}

// Outcome is a stage verdict. The zero value continues the pipeline.
type Outcome struct {
	failure *Failure
}

// Continue reports success and passes control to the next stage.
func Continue() Outcome {
	return Outcome{}
}

// Fail stops the pipeline with a classified failure.
func Fail(f *Failure) Outcome {
	return Outcome{failure: f}
}

// Failed reports whether the stage failed.
func (o Outcome) Failed() bool {
	return o.failure != nil
}

// Failure returns the failure, or nil.
func (o Outcome) Failure() *Failure {
	return o.failure
}

// Stage is one step of the request pipeline.
type Stage interface {
	// Name identifies the stage in logs.
	Name() string

	// Run inspects the exchange and either continues or fails.
	Run(ctx context.Context, ex *Exchange) Outcome
}

// Run executes the stages in order and returns the first failure, or
// nil when every stage continued. A cancelled context fails as an
// upstream error before the next stage runs.
func Run(ctx context.Context, stages []Stage, ex *Exchange) *Failure {
	for _, stage := range stages {
		select {
		case <-ctx.Done():
			return Upstream("request cancelled", ctx.Err())
		default:
		}

		if outcome := stage.Run(ctx, ex); outcome.Failed() {
			return outcome.Failure()
		}
	}
	return nil
}

// stageFunc adapts a function to the Stage interface.
type stageFunc struct {
	name string
	fn   func(ctx context.Context, ex *Exchange) Outcome
}

// StageFunc wraps a function as a named Stage.
func StageFunc(name string, fn func(ctx context.Context, ex *Exchange) Outcome) Stage {
	return &stageFunc{name: name, fn: fn}
}

// Name implements Stage.
func (s *stageFunc) Name() string {
	return s.name
}

// Run implements Stage.
func (s *stageFunc) Run(ctx context.Context, ex *Exchange) Outcome {
	return s.fn(ctx, ex)
}
