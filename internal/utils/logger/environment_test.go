package logger

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dwarvesf/escrow-history/internal/types/environments"
)

var _ = Describe("configFor", func() {
	DescribeTable("picks level, encoding and outputs per environment",
		func(env environments.Environment, level zapcore.Level, encoding string, quiet bool, outputs []string) {
			cfg := configFor(env)

			Expect(cfg.Level.Level()).To(Equal(level))
			Expect(cfg.Encoding).To(Equal(encoding))
			Expect(cfg.DisableCaller).To(Equal(quiet))
			Expect(cfg.DisableStacktrace).To(Equal(quiet))
			if outputs == nil {
				Expect(cfg.OutputPaths).To(BeEmpty())
			} else {
				Expect(cfg.OutputPaths).To(Equal(outputs))
			}
		},
		Entry("production", environments.Production, zap.InfoLevel, "json", false, []string{"stdout"}),
		Entry("staging", environments.Staging, zap.InfoLevel, "json", true, []string{"stdout"}),
		Entry("development", environments.Development, zap.DebugLevel, "console", true, []string{"stdout"}),
		Entry("test", environments.Test, zap.InfoLevel, "json", false, nil),
		Entry("unknown", environments.Environment("qa"), zap.InfoLevel, "json", false, []string{"stdout"}),
	)

	It("samples only the json outputs", func() {
		Expect(configFor(environments.Production).Sampling).NotTo(BeNil())
		Expect(configFor(environments.Development).Sampling).To(BeNil())
	})
})
