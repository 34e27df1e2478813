// Package monitoring defines the error reporting contract of the service.
package monitoring

import "time"

// Monitor reports errors and recovered panics to an external tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// CapturePanic reports a value returned by recover().
	CapturePanic(v any, tags map[string]string)
	Flush(timeout time.Duration) bool
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any, map[string]string)       {}
func (NopMonitor) Flush(time.Duration) bool                  { return true }

// OrNop returns m, or NopMonitor when m is nil.
func OrNop(m Monitor) Monitor {
	if m == nil {
		return NopMonitor{}
	}
	return m
}
