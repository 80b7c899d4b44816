package diff

import (
	"fmt"

	"github.com/redline/pkg/models"
)

// AnnotateHunks assigns positional ids ("h1", "h2", ...) and 1-based line
// ranges to an ordered hunk list. Two cursors walk the original and
// proposed sides; each advances only by the lines a hunk truly occupies on
// that side. Added hunks get no original range and removed hunks no
// proposed range; a side with zero lines stays nil.
//
// Ids are assigned purely by position, so callers that hand them out must
// pin the annotated hunks for the lifetime of those ids.
func AnnotateHunks(hunks []models.DiffHunk) []models.DiffHunk {
	annotated := make([]models.DiffHunk, 0, len(hunks))
	origLine, newLine := 1, 1

	for i, h := range hunks {
		h.ID = fmt.Sprintf("h%d", i+1)
		h.OrigStart, h.OrigEnd = nil, nil
		h.NewStart, h.NewEnd = nil, nil

		if h.Kind != models.HunkAdded && h.OrigLines > 0 {
			start, end := origLine, origLine+h.OrigLines-1
			h.OrigStart, h.OrigEnd = &start, &end
		}
		if h.Kind != models.HunkRemoved && h.NewLines > 0 {
			start, end := newLine, newLine+h.NewLines-1
			h.NewStart, h.NewEnd = &start, &end
		}

		origLine += h.OrigLines
		newLine += h.NewLines
		annotated = append(annotated, h)
	}

	return annotated
}
