package resolve

import "errors"

var (
	// ErrMissingTrackedPath signals a commit whose tree lacks one of the
	// tracked paths. At the head commit this makes the inputs
	// unresolvable; on an ancestor it just prunes the walk.
	ErrMissingTrackedPath = errors.New("tracked path missing from commit tree")

	// ErrNoMatchingRun signals that no cached run with a matching source
	// commit completed successfully.
	ErrNoMatchingRun = errors.New("did not find successful matching workflow run")

	// ErrArtifactNotFound signals that the selected run has no artifact
	// with the requested name.
	ErrArtifactNotFound = errors.New("artifact not found")
)
