package resolve

import (
	"errors"

	"github.com/SavagePirate/assetdeploy/internal/domain"
)

// FindMatching walks the ancestry graph from start and returns the ids
// of every commit whose content identity over paths equals target.
//
// The walk prunes aggressively: a commit whose identity differs from
// target (including one missing a tracked path) is not descended into,
// so its parents are never visited. The tracked-path set changes rarely,
// which makes the matching commits a contiguous frontier near the tip;
// pruning keeps the walk from touching the rest of the history.
//
// A commit reachable through several merge parents is visited and
// emitted once: the worklist carries a seen-set, so deduplication is a
// property of the walk rather than of the caller.
func FindMatching(history History, start string, paths []string, target domain.ContentIdentity) (map[string]struct{}, error) {
	matching := make(map[string]struct{})
	seen := map[string]struct{}{start: {}}
	stack := []string{start}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		commit, err := history.Commit(id)
		if err != nil {
			return nil, err
		}

		identity, err := Identity(commit.Tree, paths)
		if err != nil {
			if errors.Is(err, ErrMissingTrackedPath) {
				continue
			}
			return nil, err
		}
		if !identity.Equal(target) {
			continue
		}

		matching[id] = struct{}{}
		for _, parent := range commit.Parents {
			if _, ok := seen[parent]; !ok {
				seen[parent] = struct{}{}
				stack = append(stack, parent)
			}
		}
	}

	return matching, nil
}
