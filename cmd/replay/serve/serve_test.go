package servecmder_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/papercomputeco/replay/cmd/replay/serve"
)

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("registers the storage, API and event stream flags", func() {
		cmd := servecmder.NewServeCmd()
		for _, name := range []string{
			"backend", "snapshot", "sqlite", "postgres",
			"listen", "page-size",
			"eventstream", "brokers", "topic",
			"log-file", "no-mcp",
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("defaults to the configured listen address", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(":8081"))
		Expect(cmd.Flags().ShorthandLookup("l")).NotTo(BeNil())
	})

	It("rejects positional arguments", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Args(cmd, []string{"api"})).NotTo(Succeed())
	})
})

var _ = Describe("NewFileLogger", func() {
	It("writes JSON with the caller's source in debug mode", func() {
		var buf bytes.Buffer
		servecmder.NewFileLogger(&buf, true).Debug("request handled", "status", 200)

		var record map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		Expect(record["msg"]).To(Equal("request handled"))

		source, ok := record["source"].(map[string]any)
		Expect(ok).To(BeTrue(), "expected a source object")
		Expect(source["file"]).To(HaveSuffix("serve_test.go"))
	})

	It("omits debug records and the source otherwise", func() {
		var buf bytes.Buffer
		l := servecmder.NewFileLogger(&buf, false)
		l.Debug("hidden")
		l.Info("shown")

		var record map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		Expect(record["msg"]).To(Equal("shown"))
		Expect(record).NotTo(HaveKey("source"))
	})
})
