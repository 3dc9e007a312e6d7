package initcmder_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/replay/cmd/replay/init"
	"github.com/papercomputeco/replay/pkg/config"
)

func runInit(args ...string) error {
	cmd := initcmder.NewInitCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	return cmd.Execute()
}

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir = GinkgoT().TempDir()

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates a .replay directory with a default config.toml", func() {
		Expect(runInit()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".replay"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Storage.Backend).To(Equal(config.BackendMemory))
		Expect(cfg.API.Listen).To(Equal(":8081"))
		Expect(cfg.Fetch.PageSize).To(Equal(uint(20)))
	})

	It("does not overwrite an existing config without --preset", func() {
		Expect(runInit("--preset", "sqlite")).To(Succeed())
		Expect(runInit()).To(Succeed())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Storage.Backend).To(Equal(config.BackendSQLite))
	})

	It("keeps other files in an existing .replay directory", func() {
		dir := filepath.Join(tmpDir, ".replay")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())

		snap := filepath.Join(dir, "trajectories.snap")
		Expect(os.WriteFile(snap, []byte("RPLY"), 0o644)).To(Succeed())

		Expect(runInit()).To(Succeed())

		data, err := os.ReadFile(snap)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("RPLY"))
		Expect(filepath.Join(dir, "config.toml")).To(BeAnExistingFile())
	})

	Describe("--preset with named presets", func() {
		It("writes the sqlite preset", func() {
			Expect(runInit("--preset", "sqlite")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Storage.Backend).To(Equal(config.BackendSQLite))
		})

		It("writes the kafka preset", func() {
			Expect(runInit("--preset", "kafka")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.EventStream.Provider).To(Equal(config.EventStreamKafka))
			Expect(cfg.EventStream.Brokers).To(Equal("localhost:9092"))
			Expect(cfg.EventStream.Topic).To(Equal("replay.trajectories"))
		})

		It("overwrites the config when re-run with another preset", func() {
			Expect(runInit("--preset", "sqlite")).To(Succeed())
			Expect(runInit("--preset", "memory")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Storage.Backend).To(Equal(config.BackendMemory))
		})

		It("rejects unknown preset names", func() {
			err := runInit("--preset", "cassandra")
			Expect(err).To(MatchError(ContainSubstring("unknown preset")))
			Expect(filepath.Join(tmpDir, ".replay")).NotTo(BeADirectory())
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes remote config.toml", func() {
			remoteCfg := `version = 0

[storage]
backend = "sqlite"
sqlite_path = "/var/lib/replay/replay.sqlite"

[fetch]
page_size = 50
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				fmt.Fprint(w, remoteCfg)
			}))
			defer server.Close()

			Expect(runInit("--preset", server.URL)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Storage.Backend).To(Equal(config.BackendSQLite))
			Expect(cfg.Storage.SQLitePath).To(Equal("/var/lib/replay/replay.sqlite"))
			Expect(cfg.Fetch.PageSize).To(Equal(uint(50)))
		})

		It("returns error for non-200 HTTP response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			err := runInit("--preset", server.URL)
			Expect(err).To(MatchError(ContainSubstring("HTTP 404")))
		})

		It("returns error for invalid TOML from URL", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			err := runInit("--preset", server.URL)
			Expect(err).To(MatchError(ContainSubstring("parsing")))
		})

		It("returns error for unreachable URL", func() {
			err := runInit("--preset", "http://127.0.0.1:1")
			Expect(err).To(MatchError(ContainSubstring("fetching remote config")))
		})
	})
})

// loadConfig reads and parses the config.toml from the .replay directory
// within the given base directory.
func loadConfig(baseDir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(baseDir, ".replay", "config.toml"))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	ExpectWithOffset(1, toml.Unmarshal(data, cfg)).To(Succeed())
	return cfg
}
