package replaycmder_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	replaycmder "github.com/papercomputeco/replay/cmd/replay"
	fetchcmder "github.com/papercomputeco/replay/cmd/replay/fetch"
	statscmder "github.com/papercomputeco/replay/cmd/replay/stats"
	"github.com/papercomputeco/replay/pkg/storage"
	"github.com/papercomputeco/replay/pkg/trajectory"
	testutils "github.com/papercomputeco/replay/pkg/utils/test"
)

// run executes the root command with args against configDir and returns stdout.
func run(configDir string, stdin io.Reader, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := replaycmder.NewReplayCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(append([]string{"--config-dir", configDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func fetch(configDir string, args ...string) fetchcmder.Result {
	out, err := run(configDir, nil, append([]string{"fetch", "--json"}, args...)...)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	var result fetchcmder.Result
	ExpectWithOffset(1, json.Unmarshal([]byte(out), &result)).To(Succeed())
	return result
}

var _ = Describe("NewReplayCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := replaycmder.NewReplayCmd()
		Expect(cmd.Use).To(Equal("replay"))
	})

	It("registers every subcommand", func() {
		cmd := replaycmder.NewReplayCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("add", "fetch", "stats", "snapshot", "serve", "config", "init", "version"))
	})

	It("has persistent debug and config-dir flags", func() {
		cmd := replaycmder.NewReplayCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})

var _ = Describe("Adding and fetching trajectories", func() {
	var configDir string

	BeforeEach(func() {
		configDir = filepath.Join(GinkgoT().TempDir(), ".replay")
	})

	It("persists trajectories across invocations through the snapshot", func() {
		_, err := run(configDir, nil, "add", "--tag", "login", "--tag", "form", "--payload", `{"step":1}`)
		Expect(err).NotTo(HaveOccurred())
		_, err = run(configDir, nil, "add", "--tag", "login", "--tag", "form", "--payload", `{"step":2}`)
		Expect(err).NotTo(HaveOccurred())

		Expect(filepath.Join(configDir, "trajectories.snap")).To(BeAnExistingFile())

		result := fetch(configDir, "--tag", "login", "--tag", "form")
		Expect(result.Tags).To(Equal([]string{"login", "form"}))
		Expect(result.PageSize).To(Equal(storage.DefaultPageSize))
		Expect(testutils.Payloads(result.Trajectories)).To(Equal([]string{`{"step":1}`, `{"step":2}`}))
	})

	It("keeps tag order significant", func() {
		_, err := run(configDir, nil, "add", "--tag", "login", "--tag", "form", "--payload", `1`)
		Expect(err).NotTo(HaveOccurred())

		result := fetch(configDir, "--tag", "form", "--tag", "login")
		Expect(result.Trajectories).To(BeEmpty())
	})

	It("pages through a bucket", func() {
		for _, p := range []string{"1", "2", "3"} {
			_, err := run(configDir, nil, "add", "--tag", "t", "--payload", p)
			Expect(err).NotTo(HaveOccurred())
		}

		result := fetch(configDir, "--tag", "t", "--page", "1", "--page-size", "2")
		Expect(result.Page).To(Equal(1))
		Expect(result.PageSize).To(Equal(2))
		Expect(testutils.Payloads(result.Trajectories)).To(Equal([]string{"3"}))

		result = fetch(configDir, "--tag", "t", "--page", "5", "--page-size", "2")
		Expect(result.Trajectories).To(BeEmpty())
	})

	It("reads the payload from stdin", func() {
		_, err := run(configDir, strings.NewReader(`{"from":"stdin"}`), "add", "--tag", "s")
		Expect(err).NotTo(HaveOccurred())

		result := fetch(configDir, "--tag", "s")
		Expect(testutils.Payloads(result.Trajectories)).To(Equal([]string{`{"from":"stdin"}`}))
	})

	It("reads the payload from a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "payload.json")
		Expect(os.WriteFile(path, []byte(`["a","b"]`), 0o644)).To(Succeed())

		_, err := run(configDir, nil, "add", "--tag", "f", "--file", path)
		Expect(err).NotTo(HaveOccurred())

		result := fetch(configDir, "--tag", "f")
		Expect(testutils.Payloads(result.Trajectories)).To(Equal([]string{`["a","b"]`}))
	})

	It("prints the stored trajectory with --json", func() {
		out, err := run(configDir, nil, "add", "--tag", "j", "--payload", `true`, "--json")
		Expect(err).NotTo(HaveOccurred())

		var t trajectory.Trajectory
		Expect(json.Unmarshal([]byte(out), &t)).To(Succeed())
		Expect(t.ID).NotTo(BeEmpty())
		Expect(t.Tags).To(Equal([]string{"j"}))
	})

	It("prints a short confirmation with a payload preview", func() {
		long := `"` + strings.Repeat("x", 100) + `"`
		out, err := run(configDir, nil, "add", "--tag", "p", "--payload", long)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Added"))
		Expect(out).To(ContainSubstring("..."))
		Expect(out).NotTo(ContainSubstring(long))
	})

	It("rejects invalid JSON payloads", func() {
		_, err := run(configDir, nil, "add", "--tag", "x", "--payload", `{not json`)
		Expect(err).To(MatchError(ContainSubstring("not valid JSON")))
	})

	It("rejects an empty payload", func() {
		_, err := run(configDir, strings.NewReader(""), "add", "--tag", "x")
		Expect(err).To(MatchError(ContainSubstring("no payload")))
	})

	It("rejects a zero page size", func() {
		_, err := run(configDir, nil, "fetch", "--tag", "x", "--page-size", "0", "--json")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a negative page", func() {
		_, err := run(configDir, nil, "fetch", "--tag", "x", "--page", "-1", "--json")
		Expect(err).To(MatchError(ContainSubstring("must not be negative")))
	})

	It("honours page_size from config.toml", func() {
		_, err := run(configDir, nil, "config", "set", "fetch.page_size", "1")
		Expect(err).NotTo(HaveOccurred())

		for _, p := range []string{"1", "2"} {
			_, err := run(configDir, nil, "add", "--tag", "c", "--payload", p)
			Expect(err).NotTo(HaveOccurred())
		}

		result := fetch(configDir, "--tag", "c")
		Expect(result.PageSize).To(Equal(1))
		Expect(testutils.Payloads(result.Trajectories)).To(Equal([]string{"1"}))
	})

	It("uses the sqlite backend when selected", func() {
		_, err := run(configDir, nil, "add", "--backend", "sqlite", "--tag", "db", "--payload", `"row"`)
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Join(configDir, "replay.sqlite")).To(BeAnExistingFile())

		result := fetch(configDir, "--backend", "sqlite", "--tag", "db")
		Expect(testutils.Payloads(result.Trajectories)).To(Equal([]string{`"row"`}))

		result = fetch(configDir, "--tag", "db")
		Expect(result.Trajectories).To(BeEmpty())
	})

	It("rejects an unknown backend", func() {
		_, err := run(configDir, nil, "stats", "--backend", "cassandra")
		Expect(err).To(MatchError(ContainSubstring("unknown storage backend")))
	})
})

var _ = Describe("stats", func() {
	It("reports bucket and trajectory counts", func() {
		configDir := filepath.Join(GinkgoT().TempDir(), ".replay")
		for _, tag := range []string{"a", "a", "b"} {
			_, err := run(configDir, nil, "add", "--tag", tag, "--payload", "0")
			Expect(err).NotTo(HaveOccurred())
		}

		out, err := run(configDir, nil, "stats", "--json")
		Expect(err).NotTo(HaveOccurred())

		var stats storage.Stats
		Expect(json.Unmarshal([]byte(out), &stats)).To(Succeed())
		Expect(stats).To(Equal(storage.Stats{Buckets: 2, Trajectories: 3}))
	})

	It("lists bucket keys with --keys", func() {
		configDir := filepath.Join(GinkgoT().TempDir(), ".replay")
		for _, tags := range [][]string{{"login", "form"}, {"b"}, {"login", "form"}} {
			args := []string{"add", "--payload", "0"}
			for _, t := range tags {
				args = append(args, "--tag", t)
			}
			_, err := run(configDir, nil, args...)
			Expect(err).NotTo(HaveOccurred())
		}

		out, err := run(configDir, nil, "stats", "--json", "--keys")
		Expect(err).NotTo(HaveOccurred())

		var result statscmder.Result
		Expect(json.Unmarshal([]byte(out), &result)).To(Succeed())
		Expect(result.Stats).To(Equal(storage.Stats{Buckets: 2, Trajectories: 3}))
		Expect(result.Keys).To(Equal([][]string{{"b"}, {"login", "form"}}))

		out, err = run(configDir, nil, "stats", "--keys")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring(`"login" → "form"`))
	})
})

var _ = Describe("snapshot", func() {
	It("rewrites the snapshot file", func() {
		configDir := filepath.Join(GinkgoT().TempDir(), ".replay")
		_, err := run(configDir, nil, "add", "--tag", "a", "--payload", "0")
		Expect(err).NotTo(HaveOccurred())

		out, err := run(configDir, nil, "snapshot")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Writing snapshot"))

		result := fetch(configDir, "--tag", "a")
		Expect(testutils.Payloads(result.Trajectories)).To(Equal([]string{"0"}))
	})

	It("writes to the path given by --snapshot", func() {
		configDir := filepath.Join(GinkgoT().TempDir(), ".replay")
		path := filepath.Join(GinkgoT().TempDir(), "other.snap")

		_, err := run(configDir, nil, "snapshot", "--snapshot", path)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(BeAnExistingFile())
	})

	It("reports backends without snapshots", func() {
		configDir := filepath.Join(GinkgoT().TempDir(), ".replay")
		_, err := run(configDir, nil, "snapshot", "--backend", "sqlite")
		Expect(err).To(MatchError(storage.ErrSnapshotUnsupported))
	})
})

var _ = Describe("version", func() {
	It("prints the build version", func() {
		out, err := run(GinkgoT().TempDir(), nil, "version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Version: "))
	})
})
