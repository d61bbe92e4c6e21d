package templates

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/studyloop/studyloop/internal/model"
)

func init() {
	register(multipleChoice{})
	register(trueFalseJustify{})
	register(flashcard{})
	register(fillInBlank{})
	register(numericalProblem{})
}

// MultipleChoicePayload is a standard MCQ with four options and one
// correct answer letter. Field names follow the JSON the generation
// prompt demands from the LLM.
type MultipleChoicePayload struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type multipleChoice struct{}

func (multipleChoice) Name() string           { return "multiple_choice" }
func (multipleChoice) Tier() int              { return 1 }
func (multipleChoice) Strategy() EvalStrategy { return StrategyAutomatic }
func (multipleChoice) NewPayload() any        { return &MultipleChoicePayload{} }

func (multipleChoice) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a multiple choice question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Create a clear, unambiguous question\n")
	sb.WriteString("- Provide exactly 4 options labeled A, B, C, D\n")
	sb.WriteString("- Make distractors plausible but clearly incorrect to someone who understands the concept\n")
	sb.WriteString("- Avoid \"all of the above\" or \"none of the above\" options\n")
	sb.WriteString("- Explanation should be 1-2 sentences\n\n")
	sb.WriteString("Return this EXACT JSON structure (options are plain text without A/B/C/D labels):\n")
	sb.WriteString(`{
  "question": "your question text here",
  "options": ["first option", "second option", "third option", "fourth option"],
  "correctAnswer": "B",
  "explanation": "why B is correct"
}`)
	return sb.String()
}

func (multipleChoice) Evaluate(_ context.Context, payload any, resp model.Response, _ Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*MultipleChoicePayload)
	if !ok {
		return nil, fmt.Errorf("multiple_choice: unexpected payload type %T", payload)
	}

	correct := strings.EqualFold(strings.TrimSpace(resp.Answer), p.CorrectAnswer)

	feedback := fmt.Sprintf("Correct! %s", p.Explanation)
	if !correct {
		feedback = fmt.Sprintf("Incorrect. The correct answer is %s. %s", p.CorrectAnswer, p.Explanation)
	}

	return &model.EvaluationResult{
		IsCorrect:     correct,
		Score:         boolScore(correct),
		Feedback:      feedback,
		CorrectAnswer: p.CorrectAnswer,
	}, nil
}

// TrueFalsePayload is a statement to judge true or false; the
// justification is checked against required keywords.
type TrueFalsePayload struct {
	Statement        string   `json:"statement"`
	CorrectAnswer    bool     `json:"correctAnswer"`
	Explanation      string   `json:"explanation"`
	RequiredKeywords []string `json:"requiredKeywords"`
}

type trueFalseJustify struct{}

func (trueFalseJustify) Name() string           { return "true_false_justify" }
func (trueFalseJustify) Tier() int              { return 1 }
func (trueFalseJustify) Strategy() EvalStrategy { return StrategySemiAutomatic }
func (trueFalseJustify) NewPayload() any        { return &TrueFalsePayload{} }

func (trueFalseJustify) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a true/false question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Create a statement that is definitively true or false (not ambiguous)\n")
	sb.WriteString("- If false, the statement should contain a common misconception\n")
	sb.WriteString("- Explanation should clarify why it's true/false in 2-3 sentences\n")
	sb.WriteString("- Provide 2-4 keywords that a good justification should include\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "statement": "your statement here",
  "correctAnswer": false,
  "explanation": "detailed explanation of why true/false",
  "requiredKeywords": ["keyword1", "keyword2", "keyword3"]
}`)
	return sb.String()
}

func (trueFalseJustify) Evaluate(_ context.Context, payload any, resp model.Response, _ Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*TrueFalsePayload)
	if !ok {
		return nil, fmt.Errorf("true_false_justify: unexpected payload type %T", payload)
	}

	if resp.BoolAnswer == nil || *resp.BoolAnswer != p.CorrectAnswer {
		return &model.EvaluationResult{
			IsCorrect:     false,
			Score:         0,
			Feedback:      fmt.Sprintf("Incorrect. The statement is %t. %s", p.CorrectAnswer, p.Explanation),
			CorrectAnswer: strconv.FormatBool(p.CorrectAnswer),
		}, nil
	}

	found, missed := matchKeywords(resp.Justification, p.RequiredKeywords)
	adequate := coverage(len(found), len(p.RequiredKeywords)) >= 0.5 || len(p.RequiredKeywords) == 0

	score := 100
	feedback := fmt.Sprintf("Correct! Your justification covers the key points. %s", p.Explanation)
	if !adequate {
		// Partial credit: right boolean, thin rationale.
		score = 60
		feedback = fmt.Sprintf("Right idea, but justification is thin. Mention: %s. %s",
			strings.Join(p.RequiredKeywords, ", "), p.Explanation)
	}

	return &model.EvaluationResult{
		IsCorrect:       adequate,
		Score:           score,
		Feedback:        feedback,
		CorrectAnswer:   strconv.FormatBool(p.CorrectAnswer),
		KeywordsCovered: found,
		KeywordsMissed:  missed,
	}, nil
}

// FlashcardPayload is a prompt on the front and the answer on the
// back, with key points for the optional typed-answer check.
type FlashcardPayload struct {
	Front     string   `json:"front"`
	Back      string   `json:"back"`
	KeyPoints []string `json:"keyPoints"`
}

type flashcard struct{}

func (flashcard) Name() string           { return "flashcard" }
func (flashcard) Tier() int              { return 1 }
func (flashcard) Strategy() EvalStrategy { return StrategySelfReport }
func (flashcard) NewPayload() any        { return &FlashcardPayload{} }

func (flashcard) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a flashcard", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Front: a clear question or prompt (not just a term)\n")
	sb.WriteString("- Back: concise answer/explanation (2-4 sentences max)\n")
	sb.WriteString("- Include 2-3 key points that the answer must cover\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "front": "What is [concept]?",
  "back": "concise but complete explanation",
  "keyPoints": ["point 1", "point 2", "point 3"]
}`)
	return sb.String()
}

// Evaluate handles both interaction modes: self-report (Knew set) and
// a typed answer checked against the key points at a 60% threshold.
func (flashcard) Evaluate(_ context.Context, payload any, resp model.Response, _ Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*FlashcardPayload)
	if !ok {
		return nil, fmt.Errorf("flashcard: unexpected payload type %T", payload)
	}

	if resp.Knew != nil {
		knew := *resp.Knew
		feedback := "Great! Keep reviewing regularly."
		if !knew {
			feedback = "No problem - review this again later."
		}
		return &model.EvaluationResult{
			IsCorrect:   knew,
			Score:       boolScore(knew),
			Feedback:    feedback,
			NeedsReview: resp.WantsReview || !knew,
		}, nil
	}

	found, missed := matchKeywords(resp.Answer, p.KeyPoints)
	score := int(math.Round(coverage(len(found), len(p.KeyPoints)) * 100))
	correct := score >= 60

	feedback := fmt.Sprintf("Good! You covered %d/%d key points.", len(found), len(p.KeyPoints))
	if !correct {
		feedback = fmt.Sprintf("You missed some key points: %s. Correct answer: %s",
			strings.Join(p.KeyPoints, ", "), p.Back)
	}

	return &model.EvaluationResult{
		IsCorrect:       correct,
		Score:           score,
		Feedback:        feedback,
		KeywordsCovered: found,
		KeywordsMissed:  missed,
		NeedsReview:     resp.WantsReview || !correct,
	}, nil
}

// Blank is one gap in a fill-in-the-blank sentence, with all accepted
// answer variants.
type Blank struct {
	Position       int      `json:"position"`
	CorrectAnswers []string `json:"correctAnswers"`
	CaseSensitive  bool     `json:"caseSensitive"`
}

// FillInBlankPayload is a sentence with one or more blanks.
type FillInBlankPayload struct {
	Sentence    string  `json:"sentence"`
	Blanks      []Blank `json:"blanks"`
	Explanation string  `json:"explanation"`
}

type fillInBlank struct{}

func (fillInBlank) Name() string           { return "fill_in_blank" }
func (fillInBlank) Tier() int              { return 1 }
func (fillInBlank) Strategy() EvalStrategy { return StrategyAutomatic }
func (fillInBlank) NewPayload() any        { return &FillInBlankPayload{} }

func (fillInBlank) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a fill-in-the-blank question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Create a sentence with 1-2 blank spaces marked with ___\n")
	sb.WriteString("- Provide all acceptable answers for each blank (including common valid variations)\n")
	sb.WriteString("- Blanks should test key terminology or concepts\n")
	sb.WriteString("- Sentence should provide enough context to make the answer clear\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "sentence": "The ___ is the powerhouse of the cell",
  "blanks": [
    {"position": 0, "correctAnswers": ["mitochondria", "mitochondrion"], "caseSensitive": false}
  ],
  "explanation": "brief explanation of the correct answer"
}`)
	return sb.String()
}

func (fillInBlank) Evaluate(_ context.Context, payload any, resp model.Response, _ Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*FillInBlankPayload)
	if !ok {
		return nil, fmt.Errorf("fill_in_blank: unexpected payload type %T", payload)
	}
	if len(p.Blanks) == 0 {
		return &model.EvaluationResult{Feedback: p.Explanation}, nil
	}

	correctCount := 0
	for i, blank := range p.Blanks {
		answer := ""
		if i < len(resp.Answers) {
			answer = strings.TrimSpace(resp.Answers[i])
		}
		for _, want := range blank.CorrectAnswers {
			if blank.CaseSensitive && answer == want {
				correctCount++
				break
			}
			if !blank.CaseSensitive && strings.EqualFold(answer, want) {
				correctCount++
				break
			}
		}
	}

	allCorrect := correctCount == len(p.Blanks)
	score := int(math.Round(float64(correctCount) / float64(len(p.Blanks)) * 100))

	feedback := fmt.Sprintf("Correct! %s", p.Explanation)
	if !allCorrect {
		feedback = fmt.Sprintf("Not quite. %s", p.Explanation)
	}

	firstAnswers := make([]string, 0, len(p.Blanks))
	for _, b := range p.Blanks {
		if len(b.CorrectAnswers) > 0 {
			firstAnswers = append(firstAnswers, b.CorrectAnswers[0])
		}
	}

	return &model.EvaluationResult{
		IsCorrect:     allCorrect,
		Score:         score,
		Feedback:      feedback,
		CorrectAnswer: strings.Join(firstAnswers, ", "),
	}, nil
}

// defaultTolerance is the absolute tolerance for numerical comparison
// when the generated payload does not set one.
const defaultTolerance = 0.01

// NumericalPayload is a calculation problem with a numeric answer and
// an absolute comparison tolerance.
type NumericalPayload struct {
	Question      string   `json:"question"`
	CorrectAnswer float64  `json:"correctAnswer"`
	Tolerance     float64  `json:"tolerance"`
	Units         string   `json:"units"`
	ShowWork      bool     `json:"showWork"`
	SolutionSteps []string `json:"solutionSteps"`
}

type numericalProblem struct{}

func (numericalProblem) Name() string           { return "numerical_problem" }
func (numericalProblem) Tier() int              { return 1 }
func (numericalProblem) Strategy() EvalStrategy { return StrategyAutomatic }
func (numericalProblem) NewPayload() any        { return &NumericalPayload{} }

func (numericalProblem) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a numerical problem", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Create a clear problem that requires calculation\n")
	sb.WriteString("- Provide the exact numeric answer\n")
	sb.WriteString("- Specify units if applicable (or null if unitless)\n")
	sb.WriteString("- Provide solution steps if it's a multi-step problem\n")
	sb.WriteString("- Set appropriate tolerance for floating-point answers (usually 0.01)\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "question": "If f(x) = 2x + 3, what is f(5)?",
  "correctAnswer": 13,
  "tolerance": 0.01,
  "units": null,
  "showWork": false,
  "solutionSteps": ["Substitute x=5", "Calculate 2(5)+3 = 13"]
}`)
	return sb.String()
}

// Evaluate fails closed: non-numeric input is an incorrect answer with
// explanatory feedback, never an error.
func (numericalProblem) Evaluate(_ context.Context, payload any, resp model.Response, _ Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*NumericalPayload)
	if !ok {
		return nil, fmt.Errorf("numerical_problem: unexpected payload type %T", payload)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(resp.Answer), 64)
	if err != nil {
		return &model.EvaluationResult{
			IsCorrect:     false,
			Score:         0,
			Feedback:      "Please provide a numeric answer.",
			CorrectAnswer: formatFloat(p.CorrectAnswer),
		}, nil
	}

	tolerance := p.Tolerance
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	correct := math.Abs(value-p.CorrectAnswer) <= tolerance

	answer := formatFloat(p.CorrectAnswer)
	if p.Units != "" {
		answer += " " + p.Units
	}

	var sb strings.Builder
	if correct {
		fmt.Fprintf(&sb, "Correct! The answer is %s.", answer)
	} else {
		fmt.Fprintf(&sb, "Incorrect. The correct answer is %s.", answer)
		if len(p.SolutionSteps) > 0 {
			sb.WriteString("\n\nSolution steps:")
			for i, step := range p.SolutionSteps {
				fmt.Fprintf(&sb, "\n%d. %s", i+1, step)
			}
		}
	}

	return &model.EvaluationResult{
		IsCorrect:     correct,
		Score:         boolScore(correct),
		Feedback:      sb.String(),
		CorrectAnswer: formatFloat(p.CorrectAnswer),
	}, nil
}

func boolScore(correct bool) int {
	if correct {
		return 100
	}
	return 0
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
