package sources

import "errors"

// ErrNotConfigured is returned when a source is fetched without the settings it needs
var ErrNotConfigured = errors.New("source not configured")
