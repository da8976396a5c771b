package domain

import "errors"

var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionBusy is returned when analysis or finalization is already
	// running for a session; the workflow is a single logical actor.
	ErrSessionBusy = errors.New("session has an operation in flight")

	// ErrAnalysisFailed wraps text extraction or classifier failures.
	// No state is committed when it is returned.
	ErrAnalysisFailed = errors.New("bundle analysis failed")

	// ErrMasterUnreadable means the master document could not be loaded
	// or parsed; fatal to the finalize call, no segments updated.
	ErrMasterUnreadable = errors.New("master document missing or unreadable")

	ErrSegmentNotFound   = errors.New("segment not found")
	ErrEmptyTag          = errors.New("tag must not be empty")
	ErrEmptyCategory     = errors.New("category must not be empty")
	ErrInvalidField      = errors.New("unknown segment field")
	ErrNoBundle          = errors.New("no bundle uploaded for this session")
	ErrNoMaster          = errors.New("no master document uploaded for this session")
	ErrNotFinalized      = errors.New("segment has no finalized artifact")
	ErrWrongPhase        = errors.New("operation not valid in current workflow phase")
	ErrUnsupportedUpload = errors.New("unsupported file type; expected pdf")
)
