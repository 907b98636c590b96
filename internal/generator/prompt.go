package generator

import (
	"fmt"
	"strings"

	"github.com/placement-portal/daily-quiz-service/internal/models"
)

// difficultyDescriptors maps the configured difficulty enum to the phrase
// embedded in the prompt. An unknown difficulty falls back to the hardest
// descriptor rather than failing the day's quiz.
var difficultyDescriptors = map[models.DifficultyLevel]string{
	models.DifficultyEasy:     "easy, basic, beginner-friendly",
	models.DifficultyMedium:   "moderate, conceptual, exam-oriented",
	models.DifficultyHard:     "difficult, tricky, placement-level",
	models.DifficultyVeryHard: "extremely difficult, trap-based, company-style",
}

const fallbackDescriptor = "difficult, placement-level"

func difficultyText(difficulty models.DifficultyLevel) string {
	normalized := models.DifficultyLevel(strings.ToLower(strings.TrimSpace(string(difficulty))))
	if text, ok := difficultyDescriptors[normalized]; ok {
		return text
	}
	return fallbackDescriptor
}

// buildPrompt produces the deterministic MCQ generation prompt. The format
// section is the contract the validator enforces on the way back.
func buildPrompt(topic string, difficulty models.DifficultyLevel, count int) string {
	var b strings.Builder

	b.WriteString("Act as an elite AI placement MCQ generator for AI engineering students.\n\n")
	fmt.Fprintf(&b, "Generate exactly %d %s multiple choice questions.\n\n", count, difficultyText(difficulty))
	fmt.Fprintf(&b, "Topics strictly limited to:\n%s\n\n", topic)
	b.WriteString("Rules:\n")
	b.WriteString("- One correct option only\n")
	b.WriteString("- No explanations\n")
	b.WriteString("- Questions must strictly match the difficulty level\n")
	b.WriteString("- Avoid repetition\n")
	b.WriteString("- Output STRICT JSON ONLY\n\n")
	b.WriteString("Format:\n")
	b.WriteString("[\n")
	b.WriteString("  {\n")
	b.WriteString(`    "question": "string",` + "\n")
	b.WriteString(`    "options": ["A) ...", "B) ...", "C) ...", "D) ..."],` + "\n")
	b.WriteString(`    "answer": "A"` + "\n")
	b.WriteString("  }\n")
	b.WriteString("]\n")

	return b.String()
}
