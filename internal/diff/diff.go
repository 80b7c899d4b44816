// Package diff computes line-level diffs between an original document and a
// proposed rewrite, producing ordered hunks suitable for per-hunk review.
package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/redline/pkg/models"
)

// MaxUnchangedLinesDisplay is the default cap on lines shown for an
// unchanged block before it is elided for display.
const MaxUnchangedLinesDisplay = 5

// ComputeLineDiff aligns original and proposed line by line and returns the
// ordered hunks. Line terminators stay attached to their lines, so
// concatenating the hunks' Original fields reproduces original byte for
// byte, and likewise Proposed.
//
// truncateUnchanged elides long unchanged blocks for display; set it to
// false whenever the hunks feed content reconstruction. True line counts
// are carried on the hunks either way.
func ComputeLineDiff(original, proposed string, maxUnchangedLines int, truncateUnchanged bool) []models.DiffHunk {
	origLines := splitLines(original)
	newLines := splitLines(proposed)

	if len(origLines) == 0 && len(newLines) == 0 {
		return nil
	}
	if len(origLines) == 0 {
		return []models.DiffHunk{{
			Kind:     models.HunkAdded,
			Proposed: proposed,
			NewLines: len(newLines),
		}}
	}
	if len(newLines) == 0 {
		return []models.DiffHunk{{
			Kind:      models.HunkRemoved,
			Original:  original,
			OrigLines: len(origLines),
		}}
	}

	matcher := difflib.NewMatcher(origLines, newLines)

	var hunks []models.DiffHunk
	for _, op := range matcher.GetOpCodes() {
		origText := strings.Join(origLines[op.I1:op.I2], "")
		newText := strings.Join(newLines[op.J1:op.J2], "")
		// Line counts come from opcode spans, not from the text, so later
		// display elision can never corrupt range math.
		origCount := op.I2 - op.I1
		newCount := op.J2 - op.J1

		switch op.Tag {
		case 'e':
			text := origText
			if truncateUnchanged && text != "" {
				text = truncateUnchangedText(text, maxUnchangedLines)
			}
			hunks = append(hunks, models.DiffHunk{
				Kind:      models.HunkUnchanged,
				Original:  text,
				Proposed:  text,
				OrigLines: origCount,
				NewLines:  newCount,
			})
		case 'r':
			hunks = append(hunks, models.DiffHunk{
				Kind:      models.HunkModified,
				Original:  origText,
				Proposed:  newText,
				OrigLines: origCount,
				NewLines:  newCount,
			})
		case 'd':
			hunks = append(hunks, models.DiffHunk{
				Kind:      models.HunkRemoved,
				Original:  origText,
				OrigLines: origCount,
			})
		case 'i':
			hunks = append(hunks, models.DiffHunk{
				Kind:     models.HunkAdded,
				Proposed: newText,
				NewLines: newCount,
			})
		}
	}

	return mergeAdjacent(hunks)
}

// TruncateForDisplay returns a copy of annotated hunks with long unchanged
// blocks elided. It runs after annotation, so ids and line ranges stay
// accurate; only the display text changes. Hunks held for reconstruction
// must never pass through here.
func TruncateForDisplay(hunks []models.HunkState, maxLines int) []models.HunkState {
	out := make([]models.HunkState, len(hunks))
	for i, h := range hunks {
		if h.Kind == models.HunkUnchanged && h.Original != "" {
			text := truncateUnchangedText(h.Original, maxLines)
			h.Original = text
			h.Proposed = text
		}
		out[i] = h
	}
	return out
}

// splitLines splits s after every newline, keeping the terminator attached.
// A trailing line without a newline is kept as-is, so the pieces always
// concatenate back to s exactly.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func truncateUnchangedText(text string, maxLines int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	half := maxLines / 2
	return strings.Join(lines[:half], "\n") +
		fmt.Sprintf("\n... (%d lines unchanged) ...\n", len(lines)-maxLines) +
		strings.Join(lines[len(lines)-half:], "\n")
}

// mergeAdjacent collapses consecutive hunks of the same kind, summing line
// counts and concatenating text, so no two neighbors share a kind.
func mergeAdjacent(hunks []models.DiffHunk) []models.DiffHunk {
	if len(hunks) == 0 {
		return hunks
	}

	merged := make([]models.DiffHunk, 0, len(hunks))
	current := hunks[0]
	for _, h := range hunks[1:] {
		if h.Kind == current.Kind {
			current.Original += h.Original
			current.Proposed += h.Proposed
			current.OrigLines += h.OrigLines
			current.NewLines += h.NewLines
			continue
		}
		merged = append(merged, current)
		current = h
	}

	return append(merged, current)
}
