package resolve

import (
	"errors"
	"fmt"

	"github.com/SavagePirate/assetdeploy/internal/domain"
)

// Identity computes the content identity of a tree over the tracked
// paths, in the order given. The path order is canonical: callers must
// pass the same ordering everywhere for identities to be comparable.
func Identity(tree Tree, paths []string) (domain.ContentIdentity, error) {
	identity := make(domain.ContentIdentity, 0, len(paths))
	for _, path := range paths {
		hash, err := tree.Hash(path)
		if err != nil {
			if errors.Is(err, ErrMissingTrackedPath) {
				return nil, fmt.Errorf("%w: %s", ErrMissingTrackedPath, path)
			}
			return nil, err
		}
		identity = append(identity, hash)
	}
	return identity, nil
}
