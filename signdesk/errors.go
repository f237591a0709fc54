package signdesk

import "errors"

var (
	ErrSessionNotFound = errors.New("signdesk: session not found")
	ErrNoDocument      = errors.New("signdesk: no document loaded")
	ErrElementNotFound = errors.New("signdesk: element not found")
	ErrBadPointerPhase = errors.New("signdesk: unknown pointer phase")
	ErrStaleView       = errors.New("signdesk: view changed, raster discarded")
)
