package logger_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("NewLoggerWithWriters", func() {
		It("writes structured fields to the given writer", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Info("hello", zap.String("key", "value"))

			output := buf.String()
			Expect(output).To(ContainSubstring("hello"))
			Expect(output).To(ContainSubstring("key"))
			Expect(output).To(ContainSubstring("value"))
		})

		It("emits debug records when debug is enabled", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(true, &buf)
			l.Debug("debug msg")

			Expect(buf.String()).To(ContainSubstring("debug msg"))
		})

		It("filters debug records when debug is disabled", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Debug("hidden")

			Expect(buf.String()).To(BeEmpty())
		})

		It("duplicates output across multiple writers", func() {
			var first, second bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &first, &second)
			l.Info("fan out")

			Expect(first.String()).To(ContainSubstring("fan out"))
			Expect(second.String()).To(ContainSubstring("fan out"))
		})
	})

	Describe("Nop", func() {
		It("returns a usable logger that discards everything", func() {
			l := logger.Nop()
			Expect(func() { l.Info("dropped") }).NotTo(Panic())
		})
	})
})
