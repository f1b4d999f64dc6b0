package api

import "errors"

var (
	// ErrTransport indicates a failure in network communication.
	ErrTransport = errors.New("wikibase api transport error")
	// ErrParse indicates a response body that is not the expected JSON.
	ErrParse = errors.New("wikibase api parse error")
)
