package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskgate/taskgate/internal/auth"
	"github.com/taskgate/taskgate/internal/pipeline"
	"github.com/taskgate/taskgate/internal/validation"
)

// providerFailure classifies an identity provider error. Rejections
// keep the given kind and message; everything else is an upstream
// failure.
func providerFailure(err error, kind pipeline.Kind, message string) *pipeline.Failure {
	if auth.IsRejection(err) {
		if message == "" {
			message = err.Error()
		}
		return &pipeline.Failure{Kind: kind, Message: message, Err: err}
	}
	return pipeline.Upstream("identity provider error", err)
}

// signup handles POST /auth/signup.
func (s *Server) signup(c *gin.Context, ex *pipeline.Exchange) {
	req := ex.Params.(validation.SignupRequest)

	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	identity, err := s.deps.Provider.SignUp(c.Request.Context(), *req.Email, *req.Password, name)
	if err != nil {
		s.fail(c, providerFailure(err, pipeline.KindValidation, ""))
		return
	}

	respond(c, http.StatusCreated, pipeline.OK("Signup successful, please verify your email", identity))
}

// login handles POST /auth/login.
func (s *Server) login(c *gin.Context, ex *pipeline.Exchange) {
	req := ex.Params.(validation.LoginRequest)

	session, err := s.deps.Provider.SignIn(c.Request.Context(), *req.Email, *req.Password)
	if err != nil {
		s.fail(c, providerFailure(err, pipeline.KindAuth, "invalid email or password"))
		return
	}

	respond(c, http.StatusOK, pipeline.OK("Login successful", session))
}

// logout handles POST /auth/logout.
func (s *Server) logout(c *gin.Context, ex *pipeline.Exchange) {
	if err := s.deps.Provider.SignOut(c.Request.Context(), ex.Token); err != nil {
		s.fail(c, providerFailure(err, pipeline.KindAuth, "invalid or expired token"))
		return
	}

	respond(c, http.StatusOK, pipeline.OK("Logout successful", nil))
}

// me handles GET /auth/me.
func (s *Server) me(c *gin.Context, ex *pipeline.Exchange) {
	respond(c, http.StatusOK, pipeline.OK("User retrieved successfully", ex.Identity))
}

// forgotPassword handles POST /auth/forgot-password.
func (s *Server) forgotPassword(c *gin.Context, ex *pipeline.Exchange) {
	req := ex.Params.(validation.EmailRequest)

	if err := s.deps.Provider.SendPasswordReset(c.Request.Context(), *req.Email); err != nil {
		s.fail(c, providerFailure(err, pipeline.KindValidation, ""))
		return
	}

	respond(c, http.StatusOK, pipeline.OK("Password reset email sent", nil))
}

// resetPassword handles POST /auth/reset-password.
func (s *Server) resetPassword(c *gin.Context, ex *pipeline.Exchange) {
	req := ex.Params.(validation.PasswordRequest)

	if err := s.deps.Provider.UpdatePassword(c.Request.Context(), ex.Token, *req.Password); err != nil {
		s.fail(c, providerFailure(err, pipeline.KindValidation, ""))
		return
	}

	respond(c, http.StatusOK, pipeline.OK("Password updated successfully", nil))
}

// refresh handles POST /auth/refresh.
func (s *Server) refresh(c *gin.Context, ex *pipeline.Exchange) {
	req := ex.Params.(validation.RefreshRequest)

	session, err := s.deps.Provider.Refresh(c.Request.Context(), *req.RefreshToken)
	if err != nil {
		s.fail(c, providerFailure(err, pipeline.KindAuth, "invalid refresh token"))
		return
	}

	respond(c, http.StatusOK, pipeline.OK("Session refreshed successfully", session))
}

// resendVerification handles POST /auth/resend-verification.
func (s *Server) resendVerification(c *gin.Context, ex *pipeline.Exchange) {
	req := ex.Params.(validation.EmailRequest)

	if err := s.deps.Provider.ResendVerification(c.Request.Context(), *req.Email); err != nil {
		s.fail(c, providerFailure(err, pipeline.KindValidation, ""))
		return
	}

	respond(c, http.StatusOK, pipeline.OK("Verification email sent", nil))
}
