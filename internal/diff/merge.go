package diff

import (
	"fmt"
	"strings"

	"github.com/redline/pkg/models"
)

// PendingHunkError reports that the merger was invoked while a changed hunk
// still lacks a terminal decision. Callers are expected to resolve every
// changed hunk first, so hitting this is a contract violation, not a state
// to retry.
type PendingHunkError struct {
	HunkID string
}

func (e *PendingHunkError) Error() string {
	return fmt.Sprintf("hunk %s is pending - cannot apply", e.HunkID)
}

// ApplyHunkDecisions reconstructs the merged document from an ordered list
// of decided hunks. Emitted segments are concatenated directly, with no
// separators or normalization, so the result preserves the exact
// line-ending structure of its inputs.
//
// Unchanged hunks always emit their original text. For changed hunks:
// accepted emits the proposed side (nothing for removals), rejected emits
// the original side (nothing for additions), revised emits the revision.
func ApplyHunkDecisions(states []models.HunkState) (string, error) {
	var b strings.Builder
	for _, h := range states {
		seg, err := hunkSegment(h)
		if err != nil {
			return "", err
		}
		b.WriteString(seg)
	}
	return b.String(), nil
}

func hunkSegment(h models.HunkState) (string, error) {
	switch h.Kind {
	case models.HunkUnchanged:
		// never user-actionable; any decision is ignored
		return h.Original, nil

	case models.HunkAdded:
		switch h.Status {
		case models.StatusAccepted:
			return h.Proposed, nil
		case models.StatusRejected:
			return "", nil
		case models.StatusRevised:
			return revisedText(h), nil
		}

	case models.HunkRemoved:
		switch h.Status {
		case models.StatusAccepted:
			return "", nil
		case models.StatusRejected:
			return h.Original, nil
		case models.StatusRevised:
			return revisedText(h), nil
		}

	case models.HunkModified:
		switch h.Status {
		case models.StatusAccepted:
			return h.Proposed, nil
		case models.StatusRejected:
			return h.Original, nil
		case models.StatusRevised:
			return revisedText(h), nil
		}
	}

	return "", &PendingHunkError{HunkID: h.ID}
}

func revisedText(h models.HunkState) string {
	if h.RevisedText == nil {
		return ""
	}
	return *h.RevisedText
}
