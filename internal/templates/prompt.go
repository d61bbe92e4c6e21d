package templates

import (
	"fmt"
	"strings"
)

// System instructions and sampling temperatures for the two LLM roles:
// generating exercise content and grading free-text answers.
const (
	genSystemPrompt = "You are an expert educational content creator. " +
		"Return ONLY valid JSON matching the requested structure. " +
		"No markdown, no explanations outside the JSON."
	gradeSystemPrompt = "You are a fair educational evaluator. " +
		"Be encouraging but accurate. Return ONLY valid JSON."

	genTemperature   = 1
	gradeTemperature = 1
)

var difficultyDescriptions = map[int]string{
	1: "very basic recall or recognition",
	2: "straightforward understanding",
	3: "moderate application or analysis",
	4: "complex reasoning or synthesis",
	5: "expert-level critical thinking",
}

// writePromptHeader writes the shared prompt preamble: what to
// generate, the difficulty line, and (when study material was
// supplied) a block instructing the model to ground the exercise
// strictly in that material.
func writePromptHeader(sb *strings.Builder, what string, in PromptInput) {
	fmt.Fprintf(sb, "Generate %s about %q for a %s exam.\n\n", what, in.Topic, in.Kind)
	fmt.Fprintf(sb, "DIFFICULTY: %d/5 - %s\n", in.Difficulty, difficultyDescriptions[in.Difficulty])

	if in.Material != "" {
		sb.WriteString("\nSTUDY MATERIALS PROVIDED:\n")
		sb.WriteString("The student has uploaded the following study materials. ")
		sb.WriteString("Base your content on SPECIFIC concepts, facts, or details from these materials:\n\n")
		sb.WriteString(in.Material)
		sb.WriteString("\n\nIMPORTANT: Test knowledge that can be directly derived from the materials above. ")
		sb.WriteString("Use specific terminology, examples, or concepts mentioned in the materials.\n")
	}
	sb.WriteString("\n")
}
