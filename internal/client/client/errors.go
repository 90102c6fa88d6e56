package client

import "errors"

var (
	ErrNotConfigured      = errors.New("remote sync is not configured")
	ErrCloudWrite         = errors.New("remote write failed")
	ErrUnavailable        = errors.New("remote unavailable")
	ErrPayloadUnavailable = errors.New("file payload unavailable")
)
