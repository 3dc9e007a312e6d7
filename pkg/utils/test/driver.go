package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/replay/pkg/storage"
	"github.com/papercomputeco/replay/pkg/trajectory"
)

// NewTrajectory builds a trajectory with a JSON payload for tests.
func NewTrajectory(payload string, tags ...string) *trajectory.Trajectory {
	return trajectory.New(tags, json.RawMessage(payload))
}

// Payloads returns the payloads of ts as strings, in order.
func Payloads(ts []*trajectory.Trajectory) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, string(t.Payload))
	}
	return out
}

// DescribeDriverContract registers specs every storage.Driver must pass.
// newDriver is called before each spec. Tags are namespaced per spec so the
// contract also runs against shared databases.
func DescribeDriverContract(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
		ns     string
	)

	tags := func(t ...string) []string {
		return append([]string{ns}, t...)
	}

	BeforeEach(func() {
		driver = nil
		ctx = context.Background()
		ns = uuid.NewString()
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	It("pages through a bucket in insertion order", func() {
		Expect(driver.Add(ctx, NewTrajectory(`"A"`, tags("login", "form")...))).To(Succeed())
		Expect(driver.Add(ctx, NewTrajectory(`"B"`, tags("login", "form")...))).To(Succeed())

		got, err := driver.Fetch(ctx, tags("login", "form"), 0, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(Payloads(got)).To(Equal([]string{`"A"`}))

		got, err = driver.Fetch(ctx, tags("login", "form"), 1, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(Payloads(got)).To(Equal([]string{`"B"`}))

		got, err = driver.Fetch(ctx, tags("login", "form"), 2, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeEmpty())
	})

	It("treats tag order as significant", func() {
		Expect(driver.Add(ctx, NewTrajectory(`1`, tags("a", "b")...))).To(Succeed())

		got, err := driver.Fetch(ctx, tags("b", "a"), 0, storage.DefaultPageSize)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeEmpty())
	})

	It("returns max(0, min(s, N - p*s)) items per page", func() {
		for i := range 5 {
			Expect(driver.Add(ctx, NewTrajectory(fmt.Sprint(i), tags("n")...))).To(Succeed())
		}

		for page := range 4 {
			got, err := driver.Fetch(ctx, tags("n"), page, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(max(0, min(2, 5-page*2))), "page %d", page)
		}
	})

	It("round-trips trajectory fields", func() {
		t := NewTrajectory(`{"steps":[{"click":"#submit"}]}`, tags("x", "x")...)
		Expect(driver.Add(ctx, t)).To(Succeed())

		got, err := driver.Fetch(ctx, tags("x", "x"), 0, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1))
		Expect(got[0].Equal(t)).To(BeTrue())
	})

	It("returns an empty, non-nil slice for unknown tags", func() {
		got, err := driver.Fetch(ctx, tags("unknown"), 0, storage.DefaultPageSize)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).NotTo(BeNil())
		Expect(got).To(BeEmpty())
	})

	It("rejects non-positive page sizes", func() {
		_, err := driver.Fetch(ctx, tags("a"), 0, 0)
		var invalid *storage.InvalidArgumentError
		Expect(errors.As(err, &invalid)).To(BeTrue())
	})

	It("rejects nil trajectories", func() {
		err := driver.Add(ctx, nil)
		var invalid *storage.InvalidArgumentError
		Expect(errors.As(err, &invalid)).To(BeTrue())
	})

	It("counts added trajectories in Stats", func() {
		before, err := driver.Stats(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(driver.Add(ctx, NewTrajectory(`1`, tags("s1")...))).To(Succeed())
		Expect(driver.Add(ctx, NewTrajectory(`2`, tags("s1")...))).To(Succeed())
		Expect(driver.Add(ctx, NewTrajectory(`3`, tags("s2")...))).To(Succeed())

		after, err := driver.Stats(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(after.Trajectories - before.Trajectories).To(Equal(3))
		Expect(after.Buckets - before.Buckets).To(Equal(2))
	})

	It("lists each bucket key once, in canonical order", func() {
		kl, ok := driver.(storage.KeyLister)
		if !ok {
			Skip("driver does not list keys")
		}

		Expect(driver.Add(ctx, NewTrajectory(`1`, tags("b")...))).To(Succeed())
		Expect(driver.Add(ctx, NewTrajectory(`2`, tags("a", "x")...))).To(Succeed())
		Expect(driver.Add(ctx, NewTrajectory(`3`, tags("a", "x")...))).To(Succeed())
		Expect(driver.Add(ctx, NewTrajectory(`4`, tags("x", "a")...))).To(Succeed())

		keys, err := kl.Keys(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(slices.IsSortedFunc(keys, func(a, b trajectory.TagKey) int {
			return strings.Compare(a.String(), b.String())
		})).To(BeTrue())

		var own []trajectory.TagKey
		for _, k := range keys {
			if len(k) > 0 && k[0] == ns {
				own = append(own, k)
			}
		}
		Expect(own).To(ConsistOf(
			trajectory.NewTagKey(tags("b")),
			trajectory.NewTagKey(tags("a", "x")),
			trajectory.NewTagKey(tags("x", "a")),
		))
	})
}
