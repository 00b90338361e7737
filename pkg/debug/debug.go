// Package debug provides global debug logging flags
package debug

import "github.com/teslashibe/go-skipper/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Tracking controls whether per-frame tracking logs are shown (raw detections,
// candidate selection, tracker transitions).
// Use --debug-tracking flag to enable these very verbose logs
var Tracking bool

// Log logs a message only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.Debug(msg, args...)
	}
}

// TrackLog logs a message only if tracking debug mode is enabled
func TrackLog(msg string, args ...any) {
	if Tracking {
		log.Debug(msg, args...)
	}
}
