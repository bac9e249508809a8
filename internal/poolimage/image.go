package poolimage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/sirupsen/logrus"

	"github.com/idelchi/comphist/internal/comphist"
)

// Image is a traversal service rooted at a pool image directory.
type Image struct {
	root string
	log  logrus.FieldLogger
}

var _ comphist.Service = (*Image)(nil)

// New creates an Image rooted at root.
func New(root string, log logrus.FieldLogger) *Image {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}

	return &Image{root: filepath.Clean(root), log: log}
}

// OpenSession validates the image root and opens a read-only session.
func (img *Image) OpenSession(_ context.Context, mode comphist.SessionMode) (comphist.Session, error) {
	if mode != comphist.SessionRead {
		return nil, fmt.Errorf("unsupported session mode %d", mode)
	}

	info, err := os.Stat(img.root)
	if err != nil {
		return nil, fmt.Errorf("accessing pool image %q: %w", img.root, mapFSError(err))
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("pool image %q is not a directory", img.root)
	}

	img.log.WithField("root", img.root).Debug("session opened")

	return &session{img: img, holds: make(map[string]int)}, nil
}

// session tracks dataset holds between open and close.
type session struct {
	img    *Image
	holds  map[string]int
	closed bool
}

// dir returns the directory of a dataset name, snapshot suffix removed.
func (s *session) dir(name string) string {
	name, _, _ = strings.Cut(name, "@")

	return filepath.Join(s.img.root, filepath.FromSlash(name))
}

// ListDescendants walks the dataset directory with fastwalk and yields the
// dataset and its children in name order.
func (s *session) ListDescendants(ctx context.Context, name string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		names, err := s.descendants(ctx, name)
		if err != nil {
			yield("", err)

			return
		}

		for _, n := range names {
			if !yield(n, nil) {
				return
			}
		}
	}
}

func (s *session) descendants(ctx context.Context, name string) ([]string, error) {
	if s.closed {
		return nil, errors.New("session closed")
	}

	base := s.dir(name)
	if _, err := findManifest(base); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}

	var (
		mu    sync.Mutex
		names []string
	)

	conf := &fastwalk.Config{
		Follow: false,
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return mapFSError(err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() || !isManifest(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(s.img.root, filepath.Dir(path))
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()

		dataset := filepath.ToSlash(rel)
		// A directory may carry more than one manifest variant.
		if !slices.Contains(names, dataset) {
			names = append(names, dataset)
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("listing %q: %w", name, walkErr)
	}

	sort.Strings(names)

	s.img.log.WithFields(logrus.Fields{"dataset": name, "descendants": len(names)}).Debug("listed datasets")

	return names, nil
}

// AcquireDataset loads the dataset manifest and places a hold on it.
func (s *session) AcquireDataset(_ context.Context, name string) (comphist.Dataset, error) {
	if s.closed {
		return nil, errors.New("session closed")
	}

	path, err := findManifest(s.dir(name))
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}

	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}

	if m.Denied {
		return nil, fmt.Errorf("dataset %q: %w", name, comphist.ErrPermissionDenied)
	}

	blocks := m.Blocks

	if _, snap, ok := strings.Cut(name, "@"); ok {
		snapshot, found := m.Snapshots[snap]
		if !found {
			return nil, fmt.Errorf("snapshot %q: %w", name, comphist.ErrNotFound)
		}

		blocks = snapshot.Blocks
	}

	s.holds[name]++

	return &dataset{sess: s, name: name, blocks: blocks}, nil
}

// Holds returns the number of outstanding holds on name.
func (s *session) Holds(name string) int {
	return s.holds[name]
}

// Close ends the session. Outstanding holds are reported as an error.
func (s *session) Close() error {
	if s.closed {
		return errors.New("session already closed")
	}

	s.closed = true

	var leaked []string

	for name, n := range s.holds {
		if n != 0 {
			leaked = append(leaked, name)
		}
	}

	if len(leaked) > 0 {
		sort.Strings(leaked)

		return fmt.Errorf("datasets still held at close: %s", strings.Join(leaked, ", "))
	}

	s.img.log.Debug("session closed")

	return nil
}

// dataset is a held dataset or snapshot.
type dataset struct {
	sess     *session
	name     string
	blocks   []Block
	released bool
}

func (d *dataset) Name() string {
	return d.name
}

// Release drops the hold. Repeated calls are no-ops.
func (d *dataset) Release() {
	if d.released {
		return
	}

	d.released = true
	d.sess.holds[d.name]--
}

// Traverse visits the manifest's blocks starting at cp.Position. On a fault
// the failing position is stored in cp.
func (d *dataset) Traverse(ctx context.Context, cp *comphist.Checkpoint, _ comphist.TraverseFlags, visit func(comphist.BlockRecord) error) error {
	if d.released {
		return fmt.Errorf("dataset %q: traversal after release", d.name)
	}

	start := uint64(0)
	if cp != nil {
		start = cp.Position
	}

	pos := uint64(0)

	for _, b := range d.blocks {
		n := b.count()

		if pos+n <= start {
			pos += n

			continue
		}

		first := uint64(0)
		if start > pos {
			first = start - pos
		}

		fault, _ := parseFault(b.Fault)

		for i := first; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			if fault != nil {
				if cp != nil {
					cp.Position = pos + i
				}

				return fmt.Errorf("dataset %q at position %d: %w", d.name, pos+i, fault)
			}

			if err := visit(b.record()); err != nil {
				return err
			}
		}

		pos += n
	}

	return nil
}
