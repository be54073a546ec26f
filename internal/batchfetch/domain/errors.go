package domain

import "errors"

var (
	// ErrJobNotFound is returned when a batch fetch job cannot be found
	ErrJobNotFound = errors.New("batch fetch job not found")

	// ErrJobAlreadyActive is returned when a job is created while another
	// one is still queued or running
	ErrJobAlreadyActive = errors.New("a batch fetch job is already active")
)
