package splitter

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var ErrInvalidSize = errors.New("splitter: chunk size must be positive and overlap in [0, size)")

// Splitter cuts text into ordered pieces of at most chunkSize length units,
// neighbouring pieces sharing roughly overlap units.
type Splitter interface {
	Split(text string, chunkSize, overlap int) ([]string, error)
}

// LengthFunc measures a piece of text in whatever unit chunkSize is given in.
type LengthFunc func(text string) int

func RuneLength(text string) int {
	return utf8.RuneCountInString(text)
}

// markdown boundaries, coarsest first; a character split is the implicit last resort
var markdownSeparators = []*regexp.Regexp{
	regexp.MustCompile(`\n#{1,6} `),
	regexp.MustCompile("```\n"),
	regexp.MustCompile(`\n\*\*\*+\n`),
	regexp.MustCompile(`\n---+\n`),
	regexp.MustCompile(`\n___+\n`),
	regexp.MustCompile(`\n\n`),
	regexp.MustCompile(`\n`),
	regexp.MustCompile(` `),
}

// RecursiveSplitter tries each separator in turn and only descends to a
// finer one for pieces that are still too long. Separators stay attached to
// the start of the piece that follows them, so every output is a contiguous
// substring of the input (trimmed).
type RecursiveSplitter struct {
	separators []*regexp.Regexp
	length     LengthFunc
}

func NewMarkdownSplitter(length LengthFunc) *RecursiveSplitter {
	if length == nil {
		length = RuneLength
	}
	return &RecursiveSplitter{separators: markdownSeparators, length: length}
}

func (s *RecursiveSplitter) Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidSize
	}
	return s.split(text, s.separators, chunkSize, overlap), nil
}

func (s *RecursiveSplitter) split(text string, separators []*regexp.Regexp, size, overlap int) []string {
	var sep *regexp.Regexp
	var finer []*regexp.Regexp
	for i, candidate := range separators {
		if candidate.MatchString(text) {
			sep = candidate
			finer = separators[i+1:]
			break
		}
	}

	var final, fitting []string
	for _, piece := range cutBefore(text, sep) {
		if s.length(piece) < size {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			final = append(final, s.merge(fitting, size, overlap)...)
			fitting = nil
		}
		if sep == nil {
			// a single character longer than the budget; nothing finer exists
			final = append(final, piece)
			continue
		}
		final = append(final, s.split(piece, finer, size, overlap)...)
	}
	if len(fitting) > 0 {
		final = append(final, s.merge(fitting, size, overlap)...)
	}
	return final
}

// merge packs consecutive pieces into windows no longer than size, carrying
// up to overlap units of trailing pieces into the next window.
func (s *RecursiveSplitter) merge(pieces []string, size, overlap int) []string {
	var out []string
	var window []string
	total := 0
	for _, piece := range pieces {
		n := s.length(piece)
		if total+n > size && len(window) > 0 {
			if joined := strings.TrimSpace(strings.Join(window, "")); joined != "" {
				out = append(out, joined)
			}
			for total > overlap || (total+n > size && total > 0) {
				total -= s.length(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}
	if joined := strings.TrimSpace(strings.Join(window, "")); joined != "" {
		out = append(out, joined)
	}
	return out
}

// cutBefore splits text at every match of sep, keeping the match at the start
// of the following piece. A nil sep splits into single characters.
func cutBefore(text string, sep *regexp.Regexp) []string {
	if sep == nil {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	var pieces []string
	start := 0
	for _, loc := range sep.FindAllStringIndex(text, -1) {
		if loc[0] > start {
			pieces = append(pieces, text[start:loc[0]])
		}
		start = loc[0]
	}
	if start < len(text) {
		pieces = append(pieces, text[start:])
	}
	return pieces
}
