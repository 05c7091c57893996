package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks := Split("Lewis Hamilton won in 2008. He won again in 2014!", 500)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Lewis Hamilton won in 2008. He won again in 2014.", chunks[0])
}

func TestSplit_NoTerminatorReturnsTrimmedText(t *testing.T) {
	chunks := Split("  Monaco is a street circuit  ", 500)
	assert.Equal(t, []string{"Monaco is a street circuit"}, chunks)
}

func TestSplit_OnlyTerminators(t *testing.T) {
	chunks := Split("...!?", 500)
	assert.Equal(t, []string{"...!?"}, chunks)
}

func TestSplit_BlankInput(t *testing.T) {
	assert.Nil(t, Split("   ", 500))
	assert.Nil(t, Split("", 500))
}

func TestSplit_RespectsMaxLength(t *testing.T) {
	sentence := "Red Bull Racing dominated the season with a fast car"
	text := strings.Repeat(sentence+". ", 40)

	chunks := Split(text, 120)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 120, c)
		assert.True(t, strings.HasSuffix(c, "."))
	}
}

func TestSplit_PreservesEverySentence(t *testing.T) {
	text := "Ferrari is based in Maranello. McLaren is based in Woking. Mercedes is based in Brackley? Williams is based in Grove!"
	chunks := Split(text, 60)

	joined := strings.Join(chunks, " ")
	for _, s := range []string{"Ferrari is based in Maranello", "McLaren is based in Woking", "Mercedes is based in Brackley", "Williams is based in Grove"} {
		assert.Contains(t, joined, s)
	}
}

func TestSplit_LongSentenceKeptWhole(t *testing.T) {
	long := strings.Repeat("a", 80)
	chunks := Split("Short one. "+long+". Tail.", 50)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Short one.", chunks[0])
	assert.Equal(t, long+".", chunks[1])
	assert.Equal(t, "Tail.", chunks[2])
}

func TestSplit_CountsRunes(t *testing.T) {
	text := "Pérez ganó en Mónaco. Checo es piloto de Red Bull."
	chunks := Split(text, utf8.RuneCountInString("Pérez ganó en Mónaco. Checo es piloto de Red Bull."))
	require.Len(t, chunks, 1)
}

func TestSplit_DefaultLength(t *testing.T) {
	text := strings.Repeat("Silverstone hosts the British Grand Prix. ", 30)
	for _, c := range Split(text, 0) {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultMaxLength)
	}
}

func TestSplit_SentenceAtExactLimitKeepsPeriod(t *testing.T) {
	chunks := Split("aaaaaaaaaa. b.", 10)
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaaaaaaaa.", chunks[0])
	assert.Equal(t, 11, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, "b.", chunks[1])
}
