package snapshot_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/replay/pkg/storage"
	"github.com/papercomputeco/replay/pkg/storage/snapshot"
)

var _ = Describe("File", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("ReadFile", func() {
		It("returns nil data for a missing file", func() {
			data, err := snapshot.ReadFile(filepath.Join(dir, "missing.snap"))
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(BeNil())
		})

		It("returns a PersistenceError when the path is a directory", func() {
			_, err := snapshot.ReadFile(dir)
			var perr *storage.PersistenceError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Op).To(Equal("read"))
		})
	})

	Describe("WriteFile", func() {
		It("creates missing parent directories", func() {
			path := filepath.Join(dir, "nested", "deeper", "index.snap")
			Expect(snapshot.WriteFile(path, []byte("data"))).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("data"))
		})

		It("overwrites the previous snapshot and leaves no temp files", func() {
			path := filepath.Join(dir, "index.snap")
			Expect(snapshot.WriteFile(path, []byte("first"))).To(Succeed())
			Expect(snapshot.WriteFile(path, []byte("second"))).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("second"))

			entries, err := os.ReadDir(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("fails with a PersistenceError when the parent cannot be created", func() {
			blocker := filepath.Join(dir, "blocker")
			Expect(os.WriteFile(blocker, []byte("x"), 0o600)).To(Succeed())

			err := snapshot.WriteFile(filepath.Join(blocker, "index.snap"), []byte("data"))
			var perr *storage.PersistenceError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Op).To(Equal("mkdir"))
		})

		It("cleans up the temp file when the rename fails", func() {
			target := filepath.Join(dir, "index.snap")
			Expect(os.MkdirAll(filepath.Join(target, "occupied"), 0o755)).To(Succeed())

			err := snapshot.WriteFile(target, []byte("data"))
			var perr *storage.PersistenceError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Op).To(Equal("rename"))

			entries, err := os.ReadDir(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name()).To(Equal("index.snap"))
		})
	})
})
