package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/models"
)

// FeatureCounts tallies a project's features by completion, grounding
// the all_features_complete cascade rule and the project-level
// prerequisite check. Completed counts only features whose status is
// "completed"; ByStatus holds every normalized status. The cascade rule
// reads Completed, while the project -> completed prerequisite sums
// ByStatus over completed, cancelled and deferred.
func (s *Store) FeatureCounts(ctx context.Context, projectID uuid.UUID) (models.FeatureCounts, error) {
	features, err := s.FindFeaturesByProject(ctx, projectID)
	if err != nil {
		return models.FeatureCounts{}, err
	}
	counts := models.FeatureCounts{Total: len(features), ByStatus: map[string]int{}}
	for _, f := range features {
		status := models.NormalizeStatus(f.Status)
		if status == "completed" {
			counts.Completed++
		}
		counts.ByStatus[status]++
	}
	return counts, nil
}
