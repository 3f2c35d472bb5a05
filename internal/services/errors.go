// Package services defines the business logic for plug jobs, configs,
// settings, and accounts. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

// Job lifecycle errors.
var (
	// ErrActiveJobExists is returned when starting a job while another job
	// is already running. The machine runs one job at a time, system-wide.
	ErrActiveJobExists = errors.New("a job is already active")

	// ErrJobNotActive is returned when stopping a job that is not in the
	// started state.
	ErrJobNotActive = errors.New("job is not active")

	// ErrInvalidStatus is returned when a terminal transition names a
	// status outside {stopped, finished, failed}.
	ErrInvalidStatus = errors.New("status must be stopped, finished, or failed")

	// ErrJobNotFound indicates that the requested job does not exist.
	ErrJobNotFound = errors.New("job not found")
)

// Config errors.
var (
	// ErrConfigNotFound indicates that the requested config does not exist.
	ErrConfigNotFound = errors.New("config not found")

	// ErrDuplicateConfigName is returned when a create, rename, or copy
	// would collide with an existing config name.
	ErrDuplicateConfigName = errors.New("config name already exists")

	// ErrConfigArchived is returned when editing or starting against a
	// config that has been archived.
	ErrConfigArchived = errors.New("config has been archived")
)

// Account errors.
var (
	// ErrInvalidCredentials is returned for a bad email/password pair.
	// Deliberately indistinguishable between the two cases.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when a signup or email change collides
	// with an existing account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)
