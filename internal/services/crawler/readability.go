package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FleschScore is the Flesch Reading Ease result.
// Formula: 206.835 - 1.015*(words/sentences) - 84.6*(syllables/words),
// clamped to 0-100.
type FleschScore struct {
	Score          float64
	Classification string
	SentenceCount  int
	SyllableCount  int
}

// TextHTMLRatio relates visible text length to raw markup length.
// Higher ratio means more content per byte of markup.
type TextHTMLRatio struct {
	TextLength int
	HTMLLength int
	Ratio      float64
}

// computeFlesch scores the paragraph text of a document. Returns nil
// when there is no paragraph text.
func computeFlesch(doc *goquery.Document) *FleschScore {
	var parts []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		parts = append(parts, sel.Text())
	})
	text := strings.Join(parts, " ")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := countSentences(text)
	words := len(strings.Fields(text))
	syllables := countSyllables(text)
	if sentences == 0 || words == 0 {
		return nil
	}

	score := 206.835 -
		1.015*(float64(words)/float64(sentences)) -
		84.6*(float64(syllables)/float64(words))
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	return &FleschScore{
		Score:          score,
		Classification: classifyFlesch(score),
		SentenceCount:  sentences,
		SyllableCount:  syllables,
	}
}

// computeTextHTMLRatio measures trimmed body text against the raw HTML.
func computeTextHTMLRatio(doc *goquery.Document, rawHTML string) TextHTMLRatio {
	textLength := 0
	if body := doc.Find("body").First(); body.Length() > 0 {
		textLength = len(strings.TrimSpace(body.Text()))
	}

	htmlLength := len(rawHTML)
	ratio := 0.0
	if htmlLength > 0 {
		ratio = float64(textLength) / float64(htmlLength) * 100.0
	}

	return TextHTMLRatio{
		TextLength: textLength,
		HTMLLength: htmlLength,
		Ratio:      ratio,
	}
}

func countSentences(text string) int {
	count := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	if count < 1 {
		return 1
	}
	return count
}

func countSyllables(text string) int {
	total := 0
	for _, word := range strings.Fields(text) {
		total += countWordSyllables(word)
	}
	return total
}

// countWordSyllables approximates syllables as vowel groups, with a
// silent-e adjustment and a minimum of one.
func countWordSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false

	for _, ch := range word {
		isVowel := ch == 'a' || ch == 'e' || ch == 'i' || ch == 'o' || ch == 'u'
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}

	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func classifyFlesch(score float64) string {
	switch {
	case score >= 90:
		return "Very Easy"
	case score >= 80:
		return "Easy"
	case score >= 70:
		return "Fairly Easy"
	case score >= 60:
		return "Standard"
	case score >= 50:
		return "Fairly Difficult"
	case score >= 30:
		return "Difficult"
	default:
		return "Very Difficult"
	}
}
