package server

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taskgate/taskgate/internal/pipeline"
	"github.com/taskgate/taskgate/internal/validation"
)

// handle adapts a stage list plus a business handler into one gin
// handler. The stages run first; their first failure becomes the
// response and the business handler never runs.
func (s *Server) handle(stages []pipeline.Stage, fn func(c *gin.Context, ex *pipeline.Exchange)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ex := &pipeline.Exchange{
			Request:   c.Request,
			CallerKey: s.keyFunc(c.Request),
			PathID:    c.Param("id"),
		}

		if failure := pipeline.Run(c.Request.Context(), stages, ex); failure != nil {
			s.fail(c, failure)
			return
		}

		fn(c, ex)
	}
}

// fail converts a classified failure into the envelope response. This
// is the only place a failure becomes HTTP.
func (s *Server) fail(c *gin.Context, failure *pipeline.Failure) {
	if failure.Kind == pipeline.KindUpstream {
		s.logger.Error("upstream failure",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Error(failure),
		)
	}

	envelope := failure.Envelope(s.config.Development)

	if failure.Kind == pipeline.KindRateLimit {
		seconds := int(math.Ceil(failure.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		envelope.Data = gin.H{"retry_after": seconds}
	}

	c.AbortWithStatusJSON(failure.Status(), envelope)
}

// respond writes a success envelope.
func respond(c *gin.Context, status int, envelope pipeline.Envelope) {
	c.JSON(status, envelope)
}

// decodeJSON decodes a request body into out. An absent body decodes as
// the zero value so emptiness rules stay with the validators; malformed
// JSON is a validation failure on the body field.
func decodeJSON(r *http.Request, out interface{}) *pipeline.Failure {
	err := json.NewDecoder(r.Body).Decode(out)
	if err != nil && !errors.Is(err, io.EOF) {
		return pipeline.ValidationFailed(validation.ErrorList{
			{Field: "body", Message: "request body must be valid JSON"},
		})
	}
	return nil
}
