package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"

	coremon "github.com/kilianp07/studyplan/core/monitoring"
)

type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (r *recordingTransport) Flush(time.Duration) bool       { return true }
func (r *recordingTransport) Configure(sentry.ClientOptions) {}
func (r *recordingTransport) SendEvent(e *sentry.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(Config{})
	require.NoError(t, err)
	require.IsType(t, coremon.NopMonitor{}, m)
}

func TestSentryMonitorCapturesTags(t *testing.T) {
	tr := &recordingTransport{}
	m, err := newSentryMonitor(Config{DSN: "https://key@sentry.example.com/42", Environment: "test"}, tr)
	require.NoError(t, err)

	m.CaptureException(errors.New("profile missing"), map[string]string{"student_id": "s1"})
	m.CaptureException(errors.New("store locked"), nil)
	m.CaptureException(nil, map[string]string{"student_id": "s2"})
	require.True(t, m.Flush(time.Second))

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Len(t, tr.events, 2)
	require.Equal(t, "s1", tr.events[0].Tags["student_id"])
	require.Equal(t, "test", tr.events[0].Environment)
	require.Equal(t, "profile missing", tr.events[0].Exception[0].Value)
	require.NotContains(t, tr.events[1].Tags, "student_id")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, Config{SampleRate: 0.5}.Validate())
	require.Error(t, Config{SampleRate: 2}.Validate())
}
