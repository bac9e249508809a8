package comphist

import (
	"context"
	"fmt"
	"iter"
	"strings"
)

// Enumerate resolves target into the datasets to walk.
//
// Pool targets always expand to every descendant. Dataset targets expand only
// when recursive is set. Anything else is walked as a single dataset.
// Listing errors are yielded by the returned sequence.
func Enumerate(ctx context.Context, sess Session, target string, recursive bool) (iter.Seq2[string, error], error) {
	kind := ClassifyTarget(target)

	switch {
	case kind == TargetBookmark:
		return nil, fmt.Errorf("%w: bookmarks are not supported: %s", ErrInvalidTarget, target)
	case kind == TargetPool:
		return sess.ListDescendants(ctx, target), nil
	case recursive:
		if strings.ContainsAny(target, "@#") {
			return nil, fmt.Errorf("%w: cannot recurse into %s %s", ErrInvalidTarget, kind, target)
		}

		return sess.ListDescendants(ctx, target), nil
	default:
		return func(yield func(string, error) bool) {
			yield(target, nil)
		}, nil
	}
}
