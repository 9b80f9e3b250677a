package worker

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/engine"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/persistence"
	"github.com/papercomputeco/strata/pkg/policy"
	"github.com/papercomputeco/strata/pkg/vector"
)

// recordingSink is an in-memory persistence.Sink capturing written snapshots.
type recordingSink struct {
	mu        sync.Mutex
	snapshots []engine.Snapshot
	writeErr  error
}

func (s *recordingSink) Write(_ context.Context, snap engine.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *recordingSink) Latest(_ context.Context, entity string) (engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].Entity == entity {
			return s.snapshots[i], nil
		}
	}
	return engine.Snapshot{}, persistence.ErrNoSnapshot
}

func (s *recordingSink) Versions(_ context.Context, entity string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, snap := range s.snapshots {
		if snap.Entity == entity {
			count++
		}
	}
	return count, nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) written() []engine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Snapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// recordingDriver is an in-memory vector.Driver capturing added documents.
type recordingDriver struct {
	mu   sync.Mutex
	docs []vector.Document
}

func (d *recordingDriver) Add(_ context.Context, docs []vector.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs = append(d.docs, docs...)
	return nil
}

func (d *recordingDriver) Query(_ context.Context, _ []float32, _ int) ([]vector.QueryResult, error) {
	return nil, nil
}

func (d *recordingDriver) Get(_ context.Context, _ []string) ([]vector.Document, error) {
	return nil, nil
}

func (d *recordingDriver) Delete(_ context.Context, _ []string) error { return nil }

func (d *recordingDriver) Close() error { return nil }

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct{ err error }

func (e *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *fixedEmbedder) Close() error { return nil }

func newJob(entity string) Job {
	raw := memory.NewRawItem("raw", "user", nil)
	summary, err := memory.NewSummaryItem(1, "condensed", []*memory.Item{raw}, nil)
	Expect(err).NotTo(HaveOccurred())

	return Job{
		Entity: entity,
		Actions: []policy.Action{{
			Kind:        policy.ActionCreateL1,
			Produced:    []*memory.Item{summary},
			EvictedIDs:  []string{raw.ID},
			BudgetAfter: 9,
		}},
		Snapshot: engine.Snapshot{
			SchemaVersion: engine.SchemaVersion,
			Entity:        entity,
		},
	}
}

var _ = Describe("Worker Pool", func() {
	var sink *recordingSink

	BeforeEach(func() {
		sink = &recordingSink{}
	})

	Describe("Enqueue", func() {
		It("accepts jobs while the queue has capacity", func() {
			wp, err := NewPool(&Config{Sink: sink, Logger: zap.NewNop()})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(newJob("alice"))).To(BeTrue())
			wp.Close()

			Expect(sink.written()).To(HaveLen(1))
			Expect(sink.written()[0].Entity).To(Equal("alice"))
		})

		It("drops jobs when the queue is full", func() {
			// Zero workers never start, so nothing drains the queue.
			wp := &Pool{
				config: &Config{Sink: sink, Logger: zap.NewNop()},
				queue:  make(chan Job, 1),
				logger: zap.NewNop(),
			}

			Expect(wp.Enqueue(newJob("alice"))).To(BeTrue())
			Expect(wp.Enqueue(newJob("alice"))).To(BeFalse())
		})
	})

	Describe("snapshot persistence", func() {
		It("records the latest snapshot per entity", func() {
			wp, err := NewPool(&Config{Sink: sink, NumWorkers: 1, Logger: zap.NewNop()})
			Expect(err).NotTo(HaveOccurred())

			wp.Enqueue(newJob("alice"))
			wp.Enqueue(newJob("bob"))
			wp.Close()

			latest, err := sink.Latest(context.Background(), "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Entity).To(Equal("alice"))

			versions, err := sink.Versions(context.Background(), "bob")
			Expect(err).NotTo(HaveOccurred())
			Expect(versions).To(Equal(1))
		})

		It("survives sink failures", func() {
			sink.writeErr = errors.New("disk full")
			wp, err := NewPool(&Config{Sink: sink, Logger: zap.NewNop()})
			Expect(err).NotTo(HaveOccurred())

			wp.Enqueue(newJob("alice"))
			wp.Close()

			Expect(sink.written()).To(BeEmpty())
		})
	})

	Describe("embedding indexing", func() {
		It("indexes produced summaries when a vector stack is configured", func() {
			driver := &recordingDriver{}
			wp, err := NewPool(&Config{
				Sink:         sink,
				VectorDriver: driver,
				Embedder:     &fixedEmbedder{},
				NumWorkers:   1,
				Logger:       zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			job := newJob("alice")
			wp.Enqueue(job)
			wp.Close()

			driver.mu.Lock()
			defer driver.mu.Unlock()
			Expect(driver.docs).To(HaveLen(1))
			Expect(driver.docs[0].Text).To(Equal("condensed"))
			Expect(driver.docs[0].Embedding).To(HaveLen(3))
		})

		It("skips indexing when the embedder fails", func() {
			driver := &recordingDriver{}
			wp, err := NewPool(&Config{
				Sink:         sink,
				VectorDriver: driver,
				Embedder:     &fixedEmbedder{err: errors.New("backend down")},
				NumWorkers:   1,
				Logger:       zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			wp.Enqueue(newJob("alice"))
			wp.Close()

			driver.mu.Lock()
			defer driver.mu.Unlock()
			Expect(driver.docs).To(BeEmpty())
			Expect(sink.written()).To(HaveLen(1))
		})
	})
})
