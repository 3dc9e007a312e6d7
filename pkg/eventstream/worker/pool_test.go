package worker

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/replay/pkg/eventstream"
	"github.com/papercomputeco/replay/pkg/trajectory"
	testutils "github.com/papercomputeco/replay/pkg/utils/test"
)

func newEvent(tags ...string) *eventstream.TrajectoryAddedEvent {
	return eventstream.NewTrajectoryAddedEvent(trajectory.New(tags, nil))
}

var _ = Describe("Worker Pool", func() {
	var (
		publisher *testutils.MockPublisher
		wp        *Pool
	)

	BeforeEach(func() {
		publisher = testutils.NewMockPublisher()

		var err error
		wp, err = NewPool(&Config{Publisher: publisher})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		wp.Close()
	})

	It("requires a publisher", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(HaveOccurred())
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			Expect(wp.Enqueue(newEvent("login"))).To(BeTrue())
		})

		It("refuses nil events", func() {
			Expect(wp.Enqueue(nil)).To(BeFalse())
		})

		It("publishes every event once drained", func() {
			for i := range 10 {
				Expect(wp.Enqueue(newEvent(fmt.Sprintf("tag-%d", i)))).To(BeTrue())
			}
			wp.Close()

			Expect(publisher.Events()).To(HaveLen(10))
		})

		It("keeps the order of events for one tag key", func() {
			var ids []string
			for range 20 {
				e := newEvent("login", "form")
				ids = append(ids, e.TrajectoryID)
				Expect(wp.Enqueue(e)).To(BeTrue())
			}
			wp.Close()

			var got []string
			for _, e := range publisher.Events() {
				got = append(got, e.TrajectoryID)
			}
			Expect(got).To(Equal(ids))
		})

		It("drops events when a queue is full", func() {
			blocked := make(chan struct{})
			slow := &blockingPublisher{release: blocked, started: make(chan struct{}, 4)}

			small, err := NewPool(&Config{Publisher: slow, NumWorkers: 1, QueueSize: 1})
			Expect(err).NotTo(HaveOccurred())

			// The worker takes the first event and blocks; the second fills the queue.
			Expect(small.Enqueue(newEvent("a"))).To(BeTrue())
			Eventually(slow.started).Should(Receive())
			Expect(small.Enqueue(newEvent("a"))).To(BeTrue())
			Expect(small.Enqueue(newEvent("a"))).To(BeFalse())

			close(blocked)
			small.Close()
		})
	})

	It("keeps going after publish failures", func() {
		publisher.FailWith = errors.New("broker down")
		Expect(wp.Enqueue(newEvent("a"))).To(BeTrue())
		wp.Close()

		Expect(publisher.Events()).To(BeEmpty())
	})

	It("drops events enqueued after Close", func() {
		wp.Close()

		Expect(wp.Enqueue(newEvent("late"))).To(BeFalse())
		Expect(publisher.Events()).To(BeEmpty())
	})

	It("tolerates repeated Close", func() {
		wp.Close()
		wp.Close()
	})
})

type blockingPublisher struct {
	release chan struct{}
	started chan struct{}
}

func (b *blockingPublisher) PublishTrajectoryAdded(_ context.Context, _ *eventstream.TrajectoryAddedEvent) error {
	b.started <- struct{}{}
	<-b.release
	return nil
}

func (b *blockingPublisher) Close() error { return nil }
