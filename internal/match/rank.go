package match

import (
	"sort"

	"archivelinker/internal/models"
)

// RankMembers orders a group's members by quality and assigns dense ranks
// starting at 1.
//
// Ordering key, descending priority: presence of unique-color data, then
// unique-color count, then pixel count (missing resolution counts as 0).
// Members tying on the whole key share a rank; the next distinct key gets
// the previous rank plus one. Path only breaks ties in the output order,
// never in the rank itself, so a shared rank 1 is visible to callers.
func RankMembers(members []*models.ImageRecord) []models.RankedMember {
	if len(members) == 0 {
		return nil
	}

	sorted := make([]*models.ImageRecord, len(members))
	copy(sorted, members)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if outranks(a, b) {
			return true
		}
		if outranks(b, a) {
			return false
		}
		return a.Path < b.Path
	})

	ranked := make([]models.RankedMember, 0, len(sorted))
	rank := 1
	for i, r := range sorted {
		if i > 0 && outranks(sorted[i-1], r) {
			rank++
		}
		ranked = append(ranked, models.RankedMember{Record: r, Rank: rank})
	}
	return ranked
}

// Ambiguous reports whether more than one member shares rank 1, meaning no
// single keep candidate exists and the choice must not be made silently.
func Ambiguous(ranked []models.RankedMember) bool {
	return len(ranked) > 1 && ranked[1].Rank == 1
}

// outranks reports whether a is strictly better than b on the quality key.
func outranks(a, b *models.ImageRecord) bool {
	if a.HasColors != b.HasColors {
		return a.HasColors
	}
	if a.HasColors && a.UniqueColors != b.UniqueColors {
		return a.UniqueColors > b.UniqueColors
	}
	return a.PixelCount() > b.PixelCount()
}
