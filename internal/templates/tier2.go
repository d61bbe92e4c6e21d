package templates

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/studyloop/studyloop/internal/model"
)

func init() {
	register(shortAnswerDefine{})
	register(shortAnswerExplain{})
	register(shortAnswerCompare{})
	register(oneSentenceDefinition{})
	register(problemTypeRecognition{})
	register(conceptComparison{})
}

// ShortAnswerPayload is shared by the define and explain variants: a
// question, the key points a complete answer covers, and a sample
// answer. MinKeyPoints is the correctness threshold.
type ShortAnswerPayload struct {
	Question     string   `json:"question"`
	KeyPoints    []string `json:"keyPoints"`
	SampleAnswer string   `json:"sampleAnswer"`
	MinKeyPoints int      `json:"minKeyPoints"`
	MaxSentences int      `json:"maxSentences"`
}

type shortAnswerDefine struct{}

func (shortAnswerDefine) Name() string           { return "short_answer_define" }
func (shortAnswerDefine) Tier() int              { return 2 }
func (shortAnswerDefine) Strategy() EvalStrategy { return StrategySemiAutomatic }
func (shortAnswerDefine) NewPayload() any        { return &ShortAnswerPayload{} }

func (shortAnswerDefine) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a definition question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Ask student to define a specific term or concept related to the topic\n")
	sb.WriteString("- Identify 3-4 key points that MUST be in a complete definition\n")
	sb.WriteString("- Provide a sample answer that's 1-2 sentences and includes all key points\n")
	sb.WriteString("- Set minKeyPoints to 2 (student must cover at least 2 of the key points)\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "question": "Define [term/concept]",
  "keyPoints": ["key point 1", "key point 2", "key point 3"],
  "sampleAnswer": "sample 1-2 sentence definition",
  "minKeyPoints": 2,
  "maxSentences": 2
}`)
	return sb.String()
}

func (shortAnswerDefine) Evaluate(_ context.Context, payload any, resp model.Response, _ Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*ShortAnswerPayload)
	if !ok {
		return nil, fmt.Errorf("short_answer_define: unexpected payload type %T", payload)
	}

	found, missed := matchKeywords(resp.Answer, p.KeyPoints)
	score := int(math.Round(coverage(len(found), len(p.KeyPoints)) * 100))
	correct := len(found) >= p.MinKeyPoints
	tooLong := countSentences(resp.Answer) > p.MaxSentences+1

	var feedback string
	switch {
	case correct && !tooLong:
		feedback = fmt.Sprintf("Good definition! You covered %d/%d key points.", len(found), len(p.KeyPoints))
	case correct && tooLong:
		score = max(70, score-10)
		feedback = fmt.Sprintf("Your definition is correct but could be more concise. Aim for %d sentences.", p.MaxSentences)
	default:
		feedback = fmt.Sprintf("Your definition is incomplete. Make sure to mention: %s. Sample answer: %s",
			strings.Join(p.KeyPoints, ", "), p.SampleAnswer)
	}

	return &model.EvaluationResult{
		IsCorrect:       correct,
		Score:           score,
		Feedback:        feedback,
		KeywordsCovered: found,
		KeywordsMissed:  missed,
		CorrectAnswer:   p.SampleAnswer,
	}, nil
}

type shortAnswerExplain struct{}

func (shortAnswerExplain) Name() string           { return "short_answer_explain" }
func (shortAnswerExplain) Tier() int              { return 2 }
func (shortAnswerExplain) Strategy() EvalStrategy { return StrategyGPTAssisted }
func (shortAnswerExplain) NewPayload() any        { return &ShortAnswerPayload{} }

func (shortAnswerExplain) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "an explanation question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Ask student to explain HOW something works or WHY something happens\n")
	sb.WriteString("- Identify 3-5 key points that should be in a complete explanation\n")
	sb.WriteString("- Provide a sample answer that's 3-4 sentences\n")
	sb.WriteString("- Set minKeyPoints to 2-3 (depending on complexity)\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "question": "Explain how [process] works",
  "keyPoints": ["point 1", "point 2", "point 3", "point 4"],
  "sampleAnswer": "sample 3-4 sentence explanation",
  "minKeyPoints": 3,
  "maxSentences": 4
}`)
	return sb.String()
}

// Evaluate runs a keyword pre-filter first: an answer clearly below
// the threshold is scored without spending an LLM call.
func (shortAnswerExplain) Evaluate(ctx context.Context, payload any, resp model.Response, provider Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*ShortAnswerPayload)
	if !ok {
		return nil, fmt.Errorf("short_answer_explain: unexpected payload type %T", payload)
	}

	found, missed := matchKeywords(resp.Answer, p.KeyPoints)
	if len(found) < p.MinKeyPoints-1 {
		return &model.EvaluationResult{
			IsCorrect: false,
			Score:     int(math.Round(coverage(len(found), len(p.KeyPoints)) * 60)),
			Feedback: fmt.Sprintf("Your explanation is incomplete. Make sure to cover: %s. Sample answer: %s",
				strings.Join(p.KeyPoints, ", "), p.SampleAnswer),
			KeywordsCovered: found,
			KeywordsMissed:  missed,
		}, nil
	}

	var sb strings.Builder
	sb.WriteString("Evaluate this student's explanation.\n\n")
	fmt.Fprintf(&sb, "QUESTION: %s\n", p.Question)
	fmt.Fprintf(&sb, "KEY POINTS TO COVER: %s\n", strings.Join(p.KeyPoints, ", "))
	fmt.Fprintf(&sb, "SAMPLE CORRECT ANSWER: %s\n", p.SampleAnswer)
	fmt.Fprintf(&sb, "STUDENT'S ANSWER: %s\n\n", resp.Answer)
	sb.WriteString("CRITERIA:\n")
	fmt.Fprintf(&sb, "- Does it cover at least %d of the key points?\n", p.MinKeyPoints)
	sb.WriteString("- Is the explanation accurate and clear?\n")
	sb.WriteString("- Are there any significant errors or misconceptions?\n\n")
	sb.WriteString("Return ONLY this JSON:\n")
	sb.WriteString(`{
  "score": 0-100,
  "isCorrect": true or false (true if score >= 70),
  "feedback": "2-3 sentence feedback on what was good and what could be improved",
  "coveredPoints": ["points they mentioned"],
  "missedPoints": ["points they didn't cover"]
}`)

	var grade struct {
		Score         float64  `json:"score"`
		IsCorrect     bool     `json:"isCorrect"`
		Feedback      string   `json:"feedback"`
		CoveredPoints []string `json:"coveredPoints"`
		MissedPoints  []string `json:"missedPoints"`
	}
	if err := completeJSON(ctx, provider, gradeSystemPrompt, sb.String(), &grade); err != nil {
		return nil, err
	}

	return &model.EvaluationResult{
		IsCorrect:       grade.IsCorrect,
		Score:           int(math.Round(grade.Score)),
		Feedback:        grade.Feedback,
		KeywordsCovered: grade.CoveredPoints,
		KeywordsMissed:  grade.MissedPoints,
	}, nil
}

// ComparisonPayload is shared by the compare and concept-comparison
// variants: two concepts and the aspects to compare them on.
type ComparisonPayload struct {
	Question           string            `json:"question"`
	ConceptA           string            `json:"conceptA"`
	ConceptB           string            `json:"conceptB"`
	Aspects            []string          `json:"aspects"`
	Dimensions         []string          `json:"dimensions"`
	CorrectComparisons map[string]string `json:"correctComparisons"`
	MinAspects         int               `json:"minAspects"`
	MinDimensions      int               `json:"minDimensions"`
}

// aspectList returns whichever of aspects/dimensions the generation
// filled, and the matching minimum.
func (p *ComparisonPayload) aspectList() ([]string, int) {
	if len(p.Dimensions) > 0 {
		return p.Dimensions, p.MinDimensions
	}
	return p.Aspects, p.MinAspects
}

type shortAnswerCompare struct{}

func (shortAnswerCompare) Name() string           { return "short_answer_compare" }
func (shortAnswerCompare) Tier() int              { return 2 }
func (shortAnswerCompare) Strategy() EvalStrategy { return StrategyGPTAssisted }
func (shortAnswerCompare) NewPayload() any        { return &ComparisonPayload{} }

func (shortAnswerCompare) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a comparison question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Ask student to compare and contrast two related concepts\n")
	sb.WriteString("- Identify 3-4 key aspects that should be compared\n")
	sb.WriteString("- For each aspect, provide the correct comparison\n")
	sb.WriteString("- Set minAspects to 2 (must compare at least 2 aspects)\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "question": "Compare [concept A] and [concept B]",
  "conceptA": "first concept",
  "conceptB": "second concept",
  "aspects": ["aspect 1", "aspect 2", "aspect 3"],
  "correctComparisons": {
    "aspect 1": "how they differ on aspect 1",
    "aspect 2": "how they differ on aspect 2",
    "aspect 3": "how they differ on aspect 3"
  },
  "minAspects": 2
}`)
	return sb.String()
}

func (shortAnswerCompare) Evaluate(ctx context.Context, payload any, resp model.Response, provider Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*ComparisonPayload)
	if !ok {
		return nil, fmt.Errorf("short_answer_compare: unexpected payload type %T", payload)
	}
	return gradeComparison(ctx, provider, p, resp.Answer,
		"- Did they note both similarities AND differences?")
}

// OneSentencePayload asks for a single-sentence definition of a term,
// the quick-recall quiz variant.
type OneSentencePayload struct {
	Term             string   `json:"term"`
	SampleDefinition string   `json:"sampleDefinition"`
	KeyPoints        []string `json:"keyPoints"`
	MinKeyPoints     int      `json:"minKeyPoints"`
}

type oneSentenceDefinition struct{}

func (oneSentenceDefinition) Name() string           { return "one_sentence_definition" }
func (oneSentenceDefinition) Tier() int              { return 2 }
func (oneSentenceDefinition) Strategy() EvalStrategy { return StrategySemiAutomatic }
func (oneSentenceDefinition) NewPayload() any        { return &OneSentencePayload{} }

func (oneSentenceDefinition) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a one-sentence definition question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Choose an important term/concept from the topic\n")
	sb.WriteString("- Provide a concise one-sentence definition\n")
	sb.WriteString("- Identify 2-3 key points that must be in the definition\n")
	sb.WriteString("- This is for quick recall, so keep it simple\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "term": "the term to define",
  "sampleDefinition": "one sentence definition",
  "keyPoints": ["key point 1", "key point 2"],
  "minKeyPoints": 2
}`)
	return sb.String()
}

func (oneSentenceDefinition) Evaluate(_ context.Context, payload any, resp model.Response, _ Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*OneSentencePayload)
	if !ok {
		return nil, fmt.Errorf("one_sentence_definition: unexpected payload type %T", payload)
	}

	found, missed := matchKeywords(resp.Answer, p.KeyPoints)
	correct := len(found) >= p.MinKeyPoints
	score := int(math.Round(coverage(len(found), len(p.KeyPoints)) * 100))
	if !correct {
		// Floor: a wrong answer still shows effort, so it never
		// scores below 40.
		score = max(score, 40)
	}

	var feedback string
	switch {
	case correct && countSentences(resp.Answer) <= 1:
		feedback = fmt.Sprintf("Good! You covered the key points: %s.", strings.Join(found, ", "))
	case correct:
		feedback = "Correct, but try to be more concise - aim for one sentence."
	default:
		feedback = fmt.Sprintf("Incomplete definition. Make sure to mention: %s. Example: %s",
			strings.Join(p.KeyPoints, ", "), p.SampleDefinition)
	}

	return &model.EvaluationResult{
		IsCorrect:       correct,
		Score:           score,
		Feedback:        feedback,
		KeywordsCovered: found,
		KeywordsMissed:  missed,
		CorrectAnswer:   p.SampleDefinition,
	}, nil
}

// ProblemTypePayload asks which method or formula applies to a given
// problem.
type ProblemTypePayload struct {
	Problem       string   `json:"problem"`
	CorrectMethod string   `json:"correctMethod"`
	Alternatives  []string `json:"alternatives"`
	Explanation   string   `json:"explanation"`
}

type problemTypeRecognition struct{}

func (problemTypeRecognition) Name() string           { return "problem_type_recognition" }
func (problemTypeRecognition) Tier() int              { return 2 }
func (problemTypeRecognition) Strategy() EvalStrategy { return StrategyAutomatic }
func (problemTypeRecognition) NewPayload() any        { return &ProblemTypePayload{} }

func (problemTypeRecognition) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a problem type recognition question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Present a problem that could be solved multiple ways (but one is most appropriate)\n")
	sb.WriteString("- Identify the correct method/approach\n")
	sb.WriteString("- Provide 3-4 plausible alternative methods\n")
	sb.WriteString("- Explain why the correct method is best\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "problem": "the problem statement",
  "correctMethod": "the best method to use",
  "alternatives": ["alternative 1", "alternative 2", "alternative 3"],
  "explanation": "why this method is most appropriate"
}`)
	return sb.String()
}

// Evaluate accepts the answer if either string contains the other
// after normalization, so "power rule" matches "the Power Rule".
func (problemTypeRecognition) Evaluate(_ context.Context, payload any, resp model.Response, _ Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*ProblemTypePayload)
	if !ok {
		return nil, fmt.Errorf("problem_type_recognition: unexpected payload type %T", payload)
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Answer))
	want := strings.ToLower(p.CorrectMethod)
	correct := answer != "" &&
		(answer == want || strings.Contains(answer, want) || strings.Contains(want, answer))

	feedback := fmt.Sprintf("Correct! %s", p.Explanation)
	if !correct {
		feedback = fmt.Sprintf("Incorrect. The best method is %q. %s", p.CorrectMethod, p.Explanation)
	}

	return &model.EvaluationResult{
		IsCorrect:     correct,
		Score:         boolScore(correct),
		Feedback:      feedback,
		CorrectAnswer: p.CorrectMethod,
	}, nil
}

type conceptComparison struct{}

func (conceptComparison) Name() string           { return "concept_comparison" }
func (conceptComparison) Tier() int              { return 2 }
func (conceptComparison) Strategy() EvalStrategy { return StrategyGPTAssisted }
func (conceptComparison) NewPayload() any        { return &ComparisonPayload{} }

func (conceptComparison) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a concept comparison question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Choose two related concepts to compare\n")
	sb.WriteString("- Specify 2-4 dimensions of comparison (e.g., efficiency, complexity, use cases)\n")
	sb.WriteString("- Provide correct comparisons for each dimension\n")
	sb.WriteString("- Set minDimensions to 2\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "question": "Compare [A] and [B] in terms of [dimension 1] and [dimension 2]",
  "conceptA": "first concept",
  "conceptB": "second concept",
  "dimensions": ["dimension 1", "dimension 2", "dimension 3"],
  "correctComparisons": {
    "dimension 1": "comparison for dimension 1",
    "dimension 2": "comparison for dimension 2",
    "dimension 3": "comparison for dimension 3"
  },
  "minDimensions": 2
}`)
	return sb.String()
}

func (conceptComparison) Evaluate(ctx context.Context, payload any, resp model.Response, provider Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*ComparisonPayload)
	if !ok {
		return nil, fmt.Errorf("concept_comparison: unexpected payload type %T", payload)
	}
	return gradeComparison(ctx, provider, p, resp.Answer,
		"- Did they highlight the key differences?")
}

// gradeComparison is the shared LLM grading path for the two
// comparison archetypes.
func gradeComparison(ctx context.Context, provider Provider, p *ComparisonPayload, answer, extraCriterion string) (*model.EvaluationResult, error) {
	aspects, minAspects := p.aspectList()

	var sb strings.Builder
	sb.WriteString("Evaluate this comparison answer.\n\n")
	fmt.Fprintf(&sb, "QUESTION: %s\n", p.Question)
	fmt.Fprintf(&sb, "CONCEPTS: %s vs %s\n", p.ConceptA, p.ConceptB)
	fmt.Fprintf(&sb, "ASPECTS TO COMPARE: %s\n", strings.Join(aspects, ", "))
	sb.WriteString("CORRECT COMPARISONS:\n")
	for _, aspect := range aspects {
		fmt.Fprintf(&sb, "- %s: %s\n", aspect, p.CorrectComparisons[aspect])
	}
	fmt.Fprintf(&sb, "\nSTUDENT'S ANSWER: %s\n\n", answer)
	sb.WriteString("CRITERIA:\n")
	fmt.Fprintf(&sb, "- Did they compare at least %d aspects?\n", minAspects)
	sb.WriteString("- Are the comparisons accurate?\n")
	sb.WriteString(extraCriterion + "\n\n")
	sb.WriteString("Return ONLY this JSON:\n")
	sb.WriteString(`{
  "score": 0-100,
  "isCorrect": true or false (true if score >= 70),
  "feedback": "specific feedback on their comparison",
  "aspectsCovered": ["aspects they compared"],
  "aspectsMissed": ["aspects they didn't compare"]
}`)

	var grade struct {
		Score          float64  `json:"score"`
		IsCorrect      bool     `json:"isCorrect"`
		Feedback       string   `json:"feedback"`
		AspectsCovered []string `json:"aspectsCovered"`
		AspectsMissed  []string `json:"aspectsMissed"`
	}
	if err := completeJSON(ctx, provider, gradeSystemPrompt, sb.String(), &grade); err != nil {
		return nil, err
	}

	return &model.EvaluationResult{
		IsCorrect:       grade.IsCorrect,
		Score:           int(math.Round(grade.Score)),
		Feedback:        grade.Feedback,
		KeywordsCovered: grade.AspectsCovered,
		KeywordsMissed:  grade.AspectsMissed,
	}, nil
}
