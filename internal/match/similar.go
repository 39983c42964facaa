package match

import (
	"sort"

	"archivelinker/internal/models"
)

// SimilarityClassifier partitions images into near-duplicate groups by exact
// perceptual-hash equality. No distance threshold is applied: recall is
// traded for zero false positives.
type SimilarityClassifier struct{}

// NewSimilarityClassifier creates a new SimilarityClassifier
func NewSimilarityClassifier() *SimilarityClassifier {
	return &SimilarityClassifier{}
}

// Classify groups records by perceptual hash. Hashes with a single
// occurrence form no group. Records without a perceptual hash (undecodable
// images) are excluded. The partition is independent of the exact-duplicate
// partition and may overlap it.
func (c *SimilarityClassifier) Classify(records []*models.ImageRecord) []*models.SimilarityGroup {
	byHash := make(map[uint64][]*models.ImageRecord)
	for _, r := range records {
		if !r.HasPerceptual {
			continue
		}
		byHash[r.Perceptual] = append(byHash[r.Perceptual], r)
	}

	var groups []*models.SimilarityGroup
	for h, members := range byHash {
		if len(members) < 2 {
			continue
		}
		sortByPath(members)
		groups = append(groups, &models.SimilarityGroup{
			Perceptual: h,
			Members:    members,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Perceptual < groups[j].Perceptual
	})

	return groups
}
