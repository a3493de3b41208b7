package logger

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dwarvesf/escrow-history/internal/types/environments"
)

type fatalHook struct {
	fired bool
}

func (h *fatalHook) OnWrite(*zapcore.CheckedEntry, []zapcore.Field) {
	h.fired = true
}

func bufferedLogger(level zapcore.Level, opts ...zap.Option) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(buf),
		level,
	)
	return &Logger{wrappedLogger: zap.New(core, opts...)}, buf
}

func lastEntry(buf *bytes.Buffer) map[string]any {
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	entry := map[string]any{}
	Expect(json.Unmarshal(lines[len(lines)-1], &entry)).To(Succeed())
	return entry
}

var _ = Describe("Logger", func() {
	It("builds for every environment", func() {
		for _, env := range []environments.Environment{
			environments.Production, environments.Staging,
			environments.Development, environments.Test, "unknown",
		} {
			Expect(New(env).wrappedLogger).NotTo(BeNil(), string(env))
		}
	})

	DescribeTable("writes fields at each level",
		func(write func(*Logger), level string) {
			l, buf := bufferedLogger(zap.DebugLevel)
			write(l)

			entry := lastEntry(buf)
			Expect(entry["level"]).To(Equal(level))
			Expect(entry["msg"]).To(Equal("chunk scanned"))
			Expect(entry["chain"]).To(Equal("polygon"))
		},
		Entry("debug", func(l *Logger) { l.Debug("chunk scanned", map[string]string{"chain": "polygon"}) }, "debug"),
		Entry("info", func(l *Logger) { l.Info("chunk scanned", map[string]string{"chain": "polygon"}) }, "info"),
		Entry("warn", func(l *Logger) { l.Warn("chunk scanned", map[string]string{"chain": "polygon"}) }, "warn"),
		Entry("error", func(l *Logger) { l.Error("chunk scanned", map[string]string{"chain": "polygon"}) }, "error"),
	)

	It("accepts a call without fields", func() {
		l, buf := bufferedLogger(zap.InfoLevel)
		l.Info("scanner started")
		Expect(lastEntry(buf)).To(HaveKeyWithValue("msg", "scanner started"))
	})

	It("drops entries below the configured level", func() {
		l, buf := bufferedLogger(zap.WarnLevel)
		l.Info("ignored")
		Expect(buf.Len()).To(BeZero())
	})

	It("carries With fields on the child only", func() {
		parent, buf := bufferedLogger(zap.InfoLevel)
		child := parent.With(map[string]string{"escrow": "0xabc"})

		child.Info("child")
		Expect(lastEntry(buf)).To(HaveKeyWithValue("escrow", "0xabc"))

		parent.Info("parent")
		Expect(lastEntry(buf)).NotTo(HaveKey("escrow"))
	})

	It("runs the fatal hook instead of exiting", func() {
		hook := &fatalHook{}
		l, _ := bufferedLogger(zap.InfoLevel, zap.WithFatalHook(hook))
		l.Fatal("rpc unreachable", map[string]string{"chain": "polygon"})
		Expect(hook.fired).To(BeTrue())
	})

	It("maps string pairs to zap fields", func() {
		fields := transformStrMapToFields(map[string]string{"days": "7"})
		Expect(fields).To(ConsistOf(zap.String("days", "7")))
		Expect(transformStrMapToFields(nil)).To(BeEmpty())
	})
})
