// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"strings"
)

// Start-time and mid-stream failure conditions. Start-time errors are fatal
// to pipeline startup; ErrStreamInterrupted triggers the engine's bounded
// restart loop instead.
var (
	ErrDeviceUnavailable = errors.New("audio: input device unavailable")
	ErrPermissionDenied  = errors.New("audio: microphone access denied")
	ErrStreamInterrupted = errors.New("audio: input stream interrupted")
)

// classifyOpenErr maps a PortAudio open/start failure onto the engine's
// error taxonomy. PortAudio reports host errors as strings, so this is a
// best-effort match; anything unrecognized counts as device unavailability.
func classifyOpenErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "access denied") {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
}
