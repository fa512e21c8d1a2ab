package docextract

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

type TextStats struct {
	Characters        int     `json:"characters"`
	Words             int     `json:"words"`
	Sentences         int     `json:"sentences"`
	Paragraphs        int     `json:"paragraphs"`
	AvgWordLength     float64 `json:"avg_word_length"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
}

func Stats(text string) TextStats {
	words := strings.Fields(text)
	sentences := countNonBlank(sentenceSplit.Split(text, -1))
	paragraphs := countNonBlank(strings.Split(text, "\n\n"))

	s := TextStats{
		Characters: utf8.RuneCountInString(text),
		Words:      len(words),
		Sentences:  sentences,
		Paragraphs: paragraphs,
	}
	if len(words) > 0 {
		total := 0
		for _, w := range words {
			total += utf8.RuneCountInString(w)
		}
		s.AvgWordLength = round1(float64(total) / float64(len(words)))
	}
	if sentences > 0 {
		s.AvgSentenceLength = round1(float64(len(words)) / float64(sentences))
	}
	return s
}

func countNonBlank(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
