package resolve

import (
	"fmt"

	"github.com/SavagePirate/assetdeploy/internal/domain"
	"github.com/SavagePirate/assetdeploy/internal/logging"
)

// LocateArtifact finds the artifact with the exact given name. Name
// matching is case-sensitive. An expired artifact is reported but still
// returned; the caller decides whether a stale archive is acceptable.
func LocateArtifact(artifacts []*domain.Artifact, name string, logger *logging.Logger) (*domain.Artifact, error) {
	for _, artifact := range artifacts {
		if artifact.Name != name {
			continue
		}
		if artifact.Expired {
			logger.Warn("artifact %s is expired", name)
		}
		return artifact, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
}
