package model

import "errors"

// Domain-specific errors
var (
	// Classification and root resolution errors
	ErrBadInput        = errors.New("query is not a record id or an email address")
	ErrNotFound        = errors.New("nothing found for query")
	ErrAmbiguousResult = errors.New("id lookup matched more than one record")

	// Remote client errors
	ErrAuth        = errors.New("authentication failed")
	ErrNetwork     = errors.New("network request failed")
	ErrRateLimited = errors.New("remote rate limit exceeded")
	ErrRemoteQuery = errors.New("remote service rejected the query")
	ErrTruncated   = errors.New("record list truncated by the server")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)
