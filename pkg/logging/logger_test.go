package logging

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type captureOutput struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (c *captureOutput) Write(e LogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureOutput) Sync() error  { return nil }
func (c *captureOutput) Close() error { return nil }

func TestSeverityFiltering(t *testing.T) {
	out := &captureOutput{}
	logger := NewLogger(Config{Severity: WARN, Outputs: []Output{out}})

	ctx := context.Background()
	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	assert.Len(t, out.entries, 2)
	assert.Equal(t, WARN, out.entries[0].Severity)
	assert.Equal(t, ERROR, out.entries[1].Severity)
}

func TestDefaultFields(t *testing.T) {
	out := &captureOutput{}
	logger := NewLogger(Config{
		Severity:      INFO,
		Outputs:       []Output{out},
		DefaultFields: map[string]interface{}{"component": "queue"},
	})

	logger.Info(context.Background(), "hello")
	assert.Len(t, out.entries, 1)
	assert.Equal(t, "queue", out.entries[0].Fields["component"])
}

func TestProviderFromContext(t *testing.T) {
	out := &captureOutput{}
	logger := NewLogger(Config{Severity: DEBUG, Outputs: []Output{out}})

	ctx := WithProvider(context.Background(), "ollama")
	logger.Info(ctx, "describe call")

	assert.Len(t, out.entries, 1)
	assert.Equal(t, "ollama", out.entries[0].Provider)
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, DEBUG, ParseSeverity("DEBUG"))
	assert.Equal(t, ERROR, ParseSeverity("ERROR"))
	assert.Equal(t, INFO, ParseSeverity("bogus"))
}

func TestCallerInformation(t *testing.T) {
	out := &captureOutput{}
	logger := NewLogger(Config{Severity: INFO, Outputs: []Output{out}})

	logger.Info(context.Background(), "where am I")
	assert.Len(t, out.entries, 1)
	assert.True(t, strings.HasSuffix(out.entries[0].File, "logger_test.go"))
	assert.NotZero(t, out.entries[0].Line)
}
