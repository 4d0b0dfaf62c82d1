package runcache

import (
	"github.com/SavagePirate/assetdeploy/internal/domain"
	"github.com/SavagePirate/assetdeploy/internal/logging"
)

// Page is one page of a run listing, newest runs first. Next is the
// URL of the following (older) page, empty when there is none.
type Page struct {
	Runs []*domain.WorkflowRun
	Next string
}

// Pager fetches one page of workflow runs from the provider.
type Pager interface {
	FetchRuns(url string) (*Page, error)
}

// Sync merges the remote run listing into the repository, newest first.
// Pagination stops once a fetched run is already stored as completed:
// finished runs cannot change, so everything older is already synced.
// A failed page fetch is reported and stops pagination but is not
// fatal; whatever was merged before it stays persisted. Each upsert is
// durable on its own, so partial progress survives every exit path.
func Sync(pager Pager, repo Repository, startURL string, logger *logging.Logger) error {
	added := 0
	synced := false
	url := startURL

	for !synced {
		logger.Printf("Fetching workflow runs ...\n")
		page, err := pager.FetchRuns(url)
		if err != nil {
			logger.Warn("fetching workflow runs: %v", err)
			break
		}

		for _, run := range page.Runs {
			existing, err := repo.Get(run.ID)
			if err != nil {
				return err
			}
			if existing != nil && existing.Status == domain.RunStatusCompleted {
				synced = true
			} else {
				added++
			}
			if err := repo.Upsert(run); err != nil {
				return err
			}
		}

		if page.Next == "" {
			break
		}
		url = page.Next
	}

	logger.Printf("Added/updated %d workflow run(s).\n", added)
	return nil
}
