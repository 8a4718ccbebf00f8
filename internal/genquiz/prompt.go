package genquiz

import (
	"fmt"
	"strings"

	"github.com/quizie/quizie/internal/domain"
)

var difficultyInstructions = map[domain.Difficulty]string{
	domain.DifficultyEasy: `- Questions should test fundamental concepts and basic understanding
- Use straightforward language and common terminology
- Focus on recall and recognition
- Avoid complex scenarios or multi-step reasoning
- Suitable for beginners or introductory level`,

	domain.DifficultyMedium: `- Questions should require understanding and application of concepts
- Include some scenario-based questions
- Test analytical thinking and problem-solving
- Mix conceptual and practical questions
- Suitable for intermediate learners`,

	domain.DifficultyDifficult: `- Questions should demand deep understanding and critical thinking
- Include complex scenarios requiring multi-step reasoning
- Test synthesis, evaluation, and advanced application
- Use professional/technical terminology
- Suitable for advanced learners or professionals`,

	domain.DifficultyExtreme: `- Questions should challenge expert-level knowledge
- Include edge cases, rare scenarios, and advanced theoretical concepts
- Require comprehensive understanding across multiple domains
- Test mastery, innovation, and expert judgment
- Suitable only for experts and specialists`,
}

// BuildPrompt renders the quiz generation prompt for the LLM. The output
// contract is a bare JSON object matching the generatedQuiz schema.
func BuildPrompt(p Params) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert examination question generator for competitive exams and professional certifications.\n\n")
	fmt.Fprintf(&b, "TASK: Generate exactly %d high-quality, exam-grade multiple-choice questions on the topic: %q\n\n", p.NumberOfQuestions, p.Topic)
	fmt.Fprintf(&b, "DIFFICULTY LEVEL: %s\n%s\n\n", strings.ToUpper(string(p.Difficulty)), difficultyInstructions[p.Difficulty])

	fmt.Fprintf(&b, `CRITICAL REQUIREMENTS:
1. Generate EXACTLY %d questions - no more, no less
2. Each question must have EXACTLY 4 options (A, B, C, D)
3. Each question must have EXACTLY ONE correct answer
4. Questions must be factually accurate and professionally written
5. Avoid ambiguous or trick questions
6. No duplicate or very similar questions
7. Options should be plausible and of similar length
8. Explanations must be clear, educational, and justify the correct answer

`, p.NumberOfQuestions)

	if p.AdditionalDescription != "" {
		fmt.Fprintf(&b, "ADDITIONAL CONTEXT/REQUIREMENTS:\n%s\n\n", p.AdditionalDescription)
	}

	fmt.Fprintf(&b, `OUTPUT FORMAT (CRITICAL - FOLLOW EXACTLY):
Return ONLY a valid JSON object with NO additional text, explanations, or markdown formatting.
Do NOT wrap the JSON in markdown code blocks.

Schema:
{
  "quizTitle": "string (auto-generate an engaging, descriptive title)",
  "topic": %q,
  "difficulty": %q,
  "totalQuestions": %d,
  "questions": [
    {
      "questionId": 1,
      "questionText": "string (the question)",
      "options": {"A": "string", "B": "string", "C": "string", "D": "string"},
      "correctAnswer": "A | B | C | D (single letter only)",
      "explanation": "string (why this answer is correct and others are wrong)"
    }
  ]
}

All questionId values must be sequential starting at 1.

Generate the quiz now:`, p.Topic, p.Difficulty, p.NumberOfQuestions)

	return b.String()
}

// ExtractJSON tolerates models that wrap their output in markdown fences
// despite the prompt, and returns the bare JSON payload.
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSpace(s)
	}

	// Fall back to the outermost object when the model added prose around it.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
