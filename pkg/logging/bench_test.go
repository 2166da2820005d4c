package logging

import (
	"errors"
	"io"
	"testing"
	"time"
)

// BenchmarkLogger benchmarks the formatting and filtering paths hit by every
// lifecycle log line.
func BenchmarkLogger(b *testing.B) {
	fields := []Field{
		String("server", "filesystem"),
		Int("failure_count", 2),
		Duration("latency", 120*time.Millisecond),
		ErrorField(errors.New("connection refused")),
	}

	b.Run("Text", func(b *testing.B) {
		logger := New(io.Discard, NewTextFormatter())
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			logger.Info("Connection failed", fields...)
		}
	})

	b.Run("JSON", func(b *testing.B) {
		logger := New(io.Discard, NewJSONFormatter())
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			logger.Info("Connection failed", fields...)
		}
	})

	b.Run("FilteredLevel", func(b *testing.B) {
		logger := New(io.Discard, NewTextFormatter())
		logger.SetLevel(ErrorLevel)
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			logger.Debug("Connection attempt", fields...)
		}
	})

	b.Run("WithFields", func(b *testing.B) {
		logger := New(io.Discard, NewTextFormatter()).WithFields(String("component", "manager"))
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			logger.Info("Connected to server", fields...)
		}
	})
}
