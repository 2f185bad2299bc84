// Package monitoring defines the error reporting hook used for failures that
// have no caller left to return them to, such as one student in a batch run.
package monitoring

import "time"

// Monitor reports errors to an external tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// Flush waits up to timeout for buffered reports and reports whether
	// they were all delivered.
	Flush(timeout time.Duration) bool
}

// NopMonitor discards every report.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration) bool                  { return true }
