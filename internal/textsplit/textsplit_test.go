package textsplit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	assert.Nil(t, Split("", 100, 20))
}

func TestSplitWhitespaceOnlyDropped(t *testing.T) {
	assert.Empty(t, Split("   \n\t   ", 100, 20))
}

func TestSplitShortTextSingleSegment(t *testing.T) {
	segments := Split("Just one short sentence.", 1000, 200)

	require.Len(t, segments, 1)
	assert.Equal(t, "Just one short sentence.", segments[0])
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	// The period sits inside the trailing half of the first window, so the
	// first segment must end exactly there rather than mid-word.
	first := strings.Repeat("a", 60) + "."
	text := first + " " + strings.Repeat("b", 100)

	segments := Split(text, 100, 0)

	require.GreaterOrEqual(t, len(segments), 2)
	assert.Equal(t, first, segments[0])
}

func TestSplitFallsBackToWhitespace(t *testing.T) {
	// No sentence terminators at all; the cut should land after a space,
	// never inside a word.
	words := strings.Repeat("alpha bravo charlie delta ", 20)

	segments := Split(words, 100, 0)

	require.Greater(t, len(segments), 1)
	for _, seg := range segments {
		assert.NotContains(t, []string{"alph", "brav", "charli", "delt"}, seg[len(seg)-4:])
	}
}

func TestSplitRawCutWithoutBoundaries(t *testing.T) {
	// One unbroken run of letters forces raw rune cuts.
	text := strings.Repeat("x", 250)

	segments := Split(text, 100, 0)

	require.Len(t, segments, 3)
	assert.Len(t, segments[0], 100)
	assert.Len(t, segments[1], 100)
	assert.Len(t, segments[2], 50)
}

func TestSplitSegmentsRespectSizeBound(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 120)

	segments := Split(text, 1000, 200)

	require.NotEmpty(t, segments)
	for i, seg := range segments {
		assert.LessOrEqual(t, len([]rune(seg)), 1000, "segment %d over size", i)
	}
}

func TestSplitOverlapCarriesSharedText(t *testing.T) {
	text := strings.Repeat("Sentence number one is here. ", 80)

	segments := Split(text, 300, 100)

	require.Greater(t, len(segments), 1)
	// Each later segment starts with text already seen at the end of the
	// previous one.
	for i := 1; i < len(segments); i++ {
		head := string([]rune(segments[i])[:20])
		assert.Contains(t, segments[i-1], head, "segment %d shares no text with its predecessor", i)
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("Determinism matters for idempotent reindexing. ", 60)

	first := Split(text, 400, 80)
	second := Split(text, 400, 80)

	assert.Equal(t, first, second)
}

func TestSplitForwardProgressOnPathologicalOverlap(t *testing.T) {
	// overlap >= size is clamped so the loop still advances; the call must
	// terminate with every segment inside the size bound.
	text := strings.Repeat("z", 50)

	segments := Split(text, 10, 10)

	require.NotEmpty(t, segments)
	for _, seg := range segments {
		assert.LessOrEqual(t, len(seg), 10)
	}
	assert.True(t, strings.HasSuffix(text, segments[len(segments)-1]))
}

func TestSplitTypicalDocumentChunkCount(t *testing.T) {
	// 2500 runes of prose at size 1000 / overlap 200 lands on three chunks:
	// cuts near 1000 and 1800, remainder to the end.
	text := strings.TrimSpace(strings.Repeat("All work and no play makes for dull documentation. ", 49))
	require.Equal(t, 2498, len([]rune(text)))

	segments := Split(text, 1000, 200)

	assert.Len(t, segments, 3)
}
