package comphist

import (
	"context"
	"iter"
	"sort"
	"strings"
)

// step is one node of a fake block tree: either a record or a fault.
type step struct {
	rec   BlockRecord
	fault error
	// at overrides the position reported for the fault.
	at *uint64
}

func block(comp CompressionID, lsize, psize uint64) step {
	return step{rec: BlockRecord{Compression: comp, LogicalSize: lsize, PhysicalSize: psize, AllocatedSize: psize}}
}

func fault(err error) step {
	return step{fault: err}
}

type fakeDataset struct {
	steps  []step
	denied bool
}

// fakeService is an in-memory traversal service that records every call.
type fakeService struct {
	datasets map[string]*fakeDataset
	listErr  error
	closeErr error

	opened   int
	closed   int
	acquired []string
	holds    map[string]int
	resumes  map[string][]uint64
	flags    []TraverseFlags
}

func newFakeService(datasets map[string]*fakeDataset) *fakeService {
	return &fakeService{
		datasets: datasets,
		holds:    make(map[string]int),
		resumes:  make(map[string][]uint64),
	}
}

func (f *fakeService) OpenSession(context.Context, SessionMode) (Session, error) {
	f.opened++

	return &fakeSession{svc: f}, nil
}

type fakeSession struct {
	svc *fakeService
}

func (s *fakeSession) ListDescendants(_ context.Context, name string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.svc.listErr != nil {
			yield("", s.svc.listErr)

			return
		}

		names := make([]string, 0, len(s.svc.datasets))
		for n := range s.svc.datasets {
			if strings.Contains(n, "@") {
				continue
			}

			if n == name || strings.HasPrefix(n, name+"/") {
				names = append(names, n)
			}
		}

		if len(names) == 0 {
			yield("", ErrNotFound)

			return
		}

		sort.Strings(names)

		for _, n := range names {
			if !yield(n, nil) {
				return
			}
		}
	}
}

func (s *fakeSession) AcquireDataset(_ context.Context, name string) (Dataset, error) {
	ds, ok := s.svc.datasets[name]
	if !ok {
		return nil, ErrNotFound
	}

	if ds.denied {
		return nil, ErrPermissionDenied
	}

	s.svc.acquired = append(s.svc.acquired, name)
	s.svc.holds[name]++

	return &fakeHandle{svc: s.svc, name: name, ds: ds}, nil
}

func (s *fakeSession) Close() error {
	s.svc.closed++

	return s.svc.closeErr
}

type fakeHandle struct {
	svc  *fakeService
	name string
	ds   *fakeDataset
}

func (h *fakeHandle) Name() string { return h.name }

func (h *fakeHandle) Release() { h.svc.holds[h.name]-- }

func (h *fakeHandle) Traverse(_ context.Context, cp *Checkpoint, flags TraverseFlags, visit func(BlockRecord) error) error {
	h.svc.flags = append(h.svc.flags, flags)

	start := uint64(0)
	if cp != nil {
		start = cp.Position
	}

	h.svc.resumes[h.name] = append(h.svc.resumes[h.name], start)

	for i := start; i < uint64(len(h.ds.steps)); i++ {
		st := h.ds.steps[i]
		if st.fault != nil {
			if cp != nil {
				cp.Position = i
				if st.at != nil {
					cp.Position = *st.at
				}
			}

			return st.fault
		}

		if err := visit(st.rec); err != nil {
			return err
		}
	}

	return nil
}
