package resolve

import (
	"github.com/SavagePirate/assetdeploy/internal/domain"
	"github.com/SavagePirate/assetdeploy/internal/logging"
)

// Select picks a deployable run from runs, which must be in the store's
// durable insertion order. A run qualifies when its source commit is in
// matching; every qualifying run's disposition is printed for the
// operator. Among qualifying runs that completed successfully the first
// encountered wins. First-found is a deliberate property: the store
// records runs newest-first on initial sync, but the order is insertion
// order, not a recency guarantee.
func Select(runs []*domain.WorkflowRun, matching map[string]struct{}, logger *logging.Logger) (*domain.WorkflowRun, error) {
	var found *domain.WorkflowRun

	logger.Printf("Matching workflow runs:\n")
	for _, run := range runs {
		if _, ok := matching[run.HeadCommit]; !ok {
			continue
		}

		switch {
		case run.Status != domain.RunStatusCompleted:
			logger.Printf("- %s pending.\n", run.HTMLURL)
		case run.Conclusion != domain.ConclusionSuccess:
			logger.Printf("- %s failed.\n", run.HTMLURL)
		default:
			logger.Printf("- %s succeeded.\n", run.HTMLURL)
			if found == nil {
				found = run
			}
		}
	}

	if found == nil {
		return nil, ErrNoMatchingRun
	}

	logger.Printf("Selected %s.\n", found.HTMLURL)
	return found, nil
}
