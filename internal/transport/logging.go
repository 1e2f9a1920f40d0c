// SPDX-License-Identifier: MIT
package transport

import applog "spectra/internal/log"

// LoggingTransport is a Transport that discards frames, optionally logging
// them at debug level. Used when no UI consumer is configured and in tests.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the frame at debug level. It never fails.
func (lt *LoggingTransport) Send(frame []float64) error {
	applog.Debugf("Transport: frame with %d bands", len(frame))
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
