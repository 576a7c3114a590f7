// Package services defines the business logic for accounts, recipes,
// attempts, and uploads. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Account-related errors.
var (
	// ErrEmailRequired is returned when a register/login payload has no email.
	ErrEmailRequired = errors.New("email is required")

	// ErrPasswordRequired is returned when a register/login payload has no
	// password.
	ErrPasswordRequired = errors.New("password is required")

	// ErrInvalidEmail is returned when a supplied email does not look like an
	// email address.
	ErrInvalidEmail = errors.New("email is invalid")

	// ErrEmailTaken indicates the email is already bound to another account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login when the email is unknown or
	// the password does not match. The two cases are deliberately
	// indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrWrongPassword is returned by password changes when the supplied
	// current password does not match the stored hash.
	ErrWrongPassword = errors.New("current password is incorrect")

	// ErrPasswordTooShort is returned when a new password fails the minimum
	// length rule.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")

	// ErrUserNotFound indicates the session points at an account that no
	// longer exists.
	ErrUserNotFound = errors.New("user not found")
)

// Authorization errors shared across recipe and attempt operations.
var (
	// ErrAuthRequired is returned when an operation needs a session and none
	// was presented.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNotOwner is returned when an authenticated user operates on a
	// recipe they do not own.
	ErrNotOwner = errors.New("not the recipe owner")
)

// Recipe- and attempt-related errors.
var (
	// ErrRecipeNotFound indicates that the requested recipe does not exist.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrAttemptNotFound indicates that the requested attempt does not exist.
	ErrAttemptNotFound = errors.New("attempt not found")

	// ErrTitleRequired is returned when a recipe payload has a blank title.
	ErrTitleRequired = errors.New("title is required")

	// ErrBodyRequired is returned when an attempt payload has a blank body.
	ErrBodyRequired = errors.New("body is required")

	// ErrBestAttemptInvalid is returned when a best-attempt selection names
	// an attempt that is missing or belongs to a different recipe.
	ErrBestAttemptInvalid = errors.New("attempt does not belong to this recipe")
)

// Upload errors.
var (
	// ErrNotAnImage is returned when the decoded upload is not a supported
	// raster image.
	ErrNotAnImage = errors.New("file is not a decodable image")
)
