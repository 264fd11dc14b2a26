package validation

import "net/mail"

// minPasswordLength is the lower bound on passwords at signup and
// reset. The identity provider may enforce stricter rules; this check
// only rejects obviously unusable input before the remote call.
const minPasswordLength = 8

// SignupRequest is the raw signup body before validation.
type SignupRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
}

// LoginRequest is the raw login body before validation.
type LoginRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// RefreshRequest is the raw session refresh body before validation.
type RefreshRequest struct {
	RefreshToken *string `json:"refresh_token"`
}

// EmailRequest is the raw body for operations keyed by email alone
// (forgot password, resend verification).
type EmailRequest struct {
	Email *string `json:"email"`
}

// PasswordRequest is the raw body for password reset completion.
type PasswordRequest struct {
	Password *string `json:"password"`
}

// ValidateSignup checks a signup body. All violations are collected.
func ValidateSignup(req SignupRequest) ErrorList {
	var errs ErrorList
	errs = checkEmail(errs, req.Email)
	errs = checkPassword(errs, req.Password)
	return errs
}

// ValidateLogin checks a login body. Password strength is not enforced
// on login; only presence.
func ValidateLogin(req LoginRequest) ErrorList {
	var errs ErrorList
	errs = checkEmail(errs, req.Email)
	if req.Password == nil || *req.Password == "" {
		errs = errs.add("password", "password is required")
	}
	return errs
}

// ValidateRefresh checks a session refresh body.
func ValidateRefresh(req RefreshRequest) ErrorList {
	if req.RefreshToken == nil || *req.RefreshToken == "" {
		return ErrorList{{Field: "refresh_token", Message: "refresh_token is required"}}
	}
	return nil
}

// ValidateEmail checks an email-only body.
func ValidateEmail(req EmailRequest) ErrorList {
	return checkEmail(nil, req.Email)
}

// ValidatePassword checks a password reset body.
func ValidatePassword(req PasswordRequest) ErrorList {
	return checkPassword(nil, req.Password)
}

// checkEmail appends email presence and format violations.
func checkEmail(errs ErrorList, email *string) ErrorList {
	if email == nil || *email == "" {
		return errs.add("email", "email is required")
	}
	if _, err := mail.ParseAddress(*email); err != nil {
		return errs.add("email", "email must be a valid address")
	}
	return errs
}

// checkPassword appends password presence and length violations.
func checkPassword(errs ErrorList, password *string) ErrorList {
	if password == nil || *password == "" {
		return errs.add("password", "password is required")
	}
	if len(*password) < minPasswordLength {
		return errs.add("password", "password must be at least 8 characters")
	}
	return errs
}
