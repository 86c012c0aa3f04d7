// Package sentiment provides a deterministic lexical sentiment estimate for
// debate messages. It is intentionally crude: fixed keyword lists, fixed
// increments, no model calls. Safe for concurrent use.
package sentiment

import "strings"

// Distribution is a distribution over the five fixed categories. The four
// non-neutral values are each capped at 1; neutral keeps a 0.1 floor.
type Distribution struct {
	Joy        float64 `json:"joy"`
	Anger      float64 `json:"anger"`
	Confidence float64 `json:"confidence"`
	Curiosity  float64 `json:"curiosity"`
	Neutral    float64 `json:"neutral"`
}

const (
	baseScore    = 0.05
	hitIncrement = 0.15
	neutralFloor = 0.1
)

var joyWords = []string{
	"great", "excellent", "wonderful", "fantastic", "amazing", "love",
	"happy", "exciting", "delight", "optimistic", "hope", "brilliant",
}

var angerWords = []string{
	"wrong", "terrible", "awful", "bad", "hate", "angry", "frustrat",
	"absurd", "ridiculous", "fail", "disaster", "outrage",
}

var confidenceWords = []string{
	"certainly", "clearly", "definitely", "obviously", "undoubtedly",
	"confident", "evidence", "proven", "must", "strongly", "conclusive",
}

var curiosityWords = []string{
	"why", "how", "what if", "wonder", "curious", "question", "perhaps",
	"maybe", "interesting", "explore", "consider", "imagine",
}

// Analyze scores text into a category distribution. Idempotent and
// side-effect free; identical input always yields identical output.
func Analyze(text string) Distribution {
	lowered := strings.ToLower(text)

	joy := rawScore(lowered, joyWords)
	anger := rawScore(lowered, angerWords)
	confidence := rawScore(lowered, confidenceWords)
	curiosity := rawScore(lowered, curiosityWords)
	neutral := baseScore

	total := joy + anger + confidence + curiosity + neutral

	d := Distribution{
		Joy:        min1(joy / total),
		Anger:      min1(anger / total),
		Confidence: min1(confidence / total),
		Curiosity:  min1(curiosity / total),
	}
	// Neutral is recomputed as the remainder with a floor, not normalized
	// like the others. The asymmetry is deliberate: text with no cues stays
	// mostly neutral, and loud text can never drive neutral to zero.
	remainder := 1 - (d.Joy + d.Anger + d.Confidence + d.Curiosity)
	if remainder < neutralFloor {
		remainder = neutralFloor
	}
	d.Neutral = remainder
	return d
}

func rawScore(lowered string, keywords []string) float64 {
	score := baseScore
	for _, word := range keywords {
		score += float64(strings.Count(lowered, word)) * hitIncrement
	}
	return score
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
