package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrAlreadyExists signals a name collision on create.
	ErrAlreadyExists = errors.New("already exists")
	// ErrCollectionNotFound signals a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrInvalidCondition signals a malformed query condition.
	ErrInvalidCondition = errors.New("invalid condition")
	// ErrInvalidRequest signals a malformed request body or parameter.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidTenant signals a missing or malformed tenant identity.
	ErrInvalidTenant = errors.New("invalid tenant")
	// ErrJobNotFound signals an unknown or expired ingestion job.
	ErrJobNotFound = errors.New("job not found")
	// ErrUnsupportedSource signals a tabular file format that cannot be read.
	ErrUnsupportedSource = errors.New("unsupported source format")
	// ErrBackendUnavailable signals the search backend could not be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
