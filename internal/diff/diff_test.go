package diff

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redline/pkg/models"
)

func TestComputeLineDiffEdgeCases(t *testing.T) {
	t.Run("both empty", func(t *testing.T) {
		hunks := ComputeLineDiff("", "", MaxUnchangedLinesDisplay, false)
		assert.Empty(t, hunks)
	})

	t.Run("original empty yields single added hunk", func(t *testing.T) {
		hunks := ComputeLineDiff("", "hello\n", MaxUnchangedLinesDisplay, false)
		require.Len(t, hunks, 1)
		assert.Equal(t, models.HunkAdded, hunks[0].Kind)
		assert.Equal(t, "", hunks[0].Original)
		assert.Equal(t, "hello\n", hunks[0].Proposed)
		assert.Equal(t, 1, hunks[0].NewLines)
	})

	t.Run("proposed empty yields single removed hunk", func(t *testing.T) {
		hunks := ComputeLineDiff("a\nb\n", "", MaxUnchangedLinesDisplay, false)
		require.Len(t, hunks, 1)
		assert.Equal(t, models.HunkRemoved, hunks[0].Kind)
		assert.Equal(t, "a\nb\n", hunks[0].Original)
		assert.Equal(t, "", hunks[0].Proposed)
		assert.Equal(t, 2, hunks[0].OrigLines)
	})
}

func TestComputeLineDiffSingleLineChange(t *testing.T) {
	original := "line1\nline2\nline3\n"
	proposed := "line1\nCHANGED\nline3\n"

	hunks := ComputeLineDiff(original, proposed, MaxUnchangedLinesDisplay, false)
	require.Len(t, hunks, 3)

	assert.Equal(t, models.HunkUnchanged, hunks[0].Kind)
	assert.Equal(t, "line1\n", hunks[0].Original)

	assert.Equal(t, models.HunkModified, hunks[1].Kind)
	assert.Equal(t, "line2\n", hunks[1].Original)
	assert.Equal(t, "CHANGED\n", hunks[1].Proposed)

	assert.Equal(t, models.HunkUnchanged, hunks[2].Kind)
	assert.Equal(t, "line3\n", hunks[2].Original)
}

func TestComputeLineDiffReconstruction(t *testing.T) {
	// Concatenating hunk texts in order must reproduce both inputs exactly,
	// including trailing-newline structure and CRLF terminators.
	cases := []struct {
		name     string
		original string
		proposed string
	}{
		{"simple replace", "line1\nline2\nline3\n", "line1\nCHANGED\nline3\n"},
		{"no trailing newline", "alpha\nbeta", "alpha\ngamma"},
		{"trailing newline added", "alpha\nbeta", "alpha\nbeta\n"},
		{"crlf terminators", "a\r\nb\r\nc\r\n", "a\r\nB\r\nc\r\n"},
		{"insertion", "one\ntwo\n", "one\none and a half\ntwo\n"},
		{"deletion", "one\ntwo\nthree\n", "one\nthree\n"},
		{"blank lines", "a\n\n\nb\n", "a\n\nb\n"},
		{"unicode", "héllo\nwörld\n", "héllo\nwørld\n"},
		{"everything changes", "old\n", "new one\nnew two\n"},
		{"identical", "same\ntext\n", "same\ntext\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hunks := ComputeLineDiff(tc.original, tc.proposed, MaxUnchangedLinesDisplay, false)

			var gotOrig, gotNew strings.Builder
			for _, h := range hunks {
				gotOrig.WriteString(h.Original)
				gotNew.WriteString(h.Proposed)
			}
			assert.Equal(t, tc.original, gotOrig.String())
			assert.Equal(t, tc.proposed, gotNew.String())
		})
	}
}

func TestComputeLineDiffNoAdjacentSameKind(t *testing.T) {
	original := "a\nb\nc\nd\ne\nf\ng\nh\n"
	proposed := "a\nB\nc\nd\nE\nF\nnew\ng\nh\n"

	hunks := ComputeLineDiff(original, proposed, MaxUnchangedLinesDisplay, false)
	require.NotEmpty(t, hunks)
	for i := 1; i < len(hunks); i++ {
		assert.NotEqual(t, hunks[i-1].Kind, hunks[i].Kind,
			"hunks %d and %d share kind %s", i-1, i, hunks[i].Kind)
	}
}

func TestComputeLineDiffDeterministic(t *testing.T) {
	original := "one\ntwo\nthree\nfour\n"
	proposed := "one\n2\nthree\nfour\nfive\n"

	first := ComputeLineDiff(original, proposed, MaxUnchangedLinesDisplay, false)
	second := ComputeLineDiff(original, proposed, MaxUnchangedLinesDisplay, false)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("hunks differ between identical runs:\n%s", diff)
	}
}

func TestComputeLineDiffTruncatesUnchangedForDisplay(t *testing.T) {
	var lines []string
	for _, l := range []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7", "l8", "l9", "l10"} {
		lines = append(lines, l+"\n")
	}
	body := strings.Join(lines, "")
	original := body + "tail\n"
	proposed := body + "TAIL\n"

	t.Run("truncation on", func(t *testing.T) {
		hunks := ComputeLineDiff(original, proposed, 5, true)
		require.Len(t, hunks, 2)
		require.Equal(t, models.HunkUnchanged, hunks[0].Kind)

		// Display text is elided but the true line count is preserved.
		assert.Equal(t, "l1\nl2\n... (6 lines unchanged) ...\nl10\n", hunks[0].Original)
		assert.Equal(t, hunks[0].Original, hunks[0].Proposed)
		assert.Equal(t, 10, hunks[0].OrigLines)
	})

	t.Run("truncation off keeps full text", func(t *testing.T) {
		hunks := ComputeLineDiff(original, proposed, 5, false)
		require.Len(t, hunks, 2)
		assert.Equal(t, body, hunks[0].Original)
	})
}

func TestTruncateForDisplay(t *testing.T) {
	full := "a\nb\nc\nd\ne\nf\ng\n"
	states := []models.HunkState{
		{
			DiffHunk: models.DiffHunk{ID: "h1", Kind: models.HunkUnchanged, Original: full, Proposed: full, OrigLines: 7, NewLines: 7},
			Status:   models.StatusAccepted,
		},
		{
			DiffHunk: models.DiffHunk{ID: "h2", Kind: models.HunkAdded, Proposed: "tail\n", NewLines: 1},
			Status:   models.StatusPending,
		},
	}

	out := TruncateForDisplay(states, 5)
	require.Len(t, out, 2)

	assert.Equal(t, "a\nb\n... (3 lines unchanged) ...\ng\n", out[0].Original)
	assert.Equal(t, out[0].Original, out[0].Proposed)
	assert.Equal(t, "h1", out[0].ID)

	// Changed hunks and the input slice stay untouched.
	assert.Equal(t, "tail\n", out[1].Proposed)
	assert.Equal(t, full, states[0].Original)
}
