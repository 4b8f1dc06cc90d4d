package moderation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"ws-chat/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
		},
		{
			name:     "Leet speak and internal punctuation",
			input:    "Look at B.4.d.g.€r !",
			expected: "Look at ********** !",
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
		},
		{
			name:     "Clean text is untouched",
			input:    "hello world",
			expected: "hello world",
		},
		{
			name:     "Only noise",
			input:    "... !?",
			expected: "... !?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, mod.Censor(tt.input))
		})
	}
}

func TestNewModerator_Empty_Dictionary(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	_, err := NewModerator(nil, replacementChar, log)
	req.ErrorIs(err, errors.ErrEmptyWords)

	_, err = NewModerator([]string{"...", " "}, replacementChar, log)
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestLoadWords(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "words.txt")
	req.NoError(os.WriteFile(path, []byte("# forbidden\nbadger\n\n  snake  \n"), 0o600))

	words, err := LoadWords(path)

	req.NoError(err)
	req.Equal([]string{"badger", "snake"}, words)

	_, err = LoadWords(filepath.Join(t.TempDir(), "missing.txt"))
	req.Error(err)
}
