package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/studyloop/studyloop/internal/model"
)

func init() {
	register(scenarioApplication{})
	register(scenarioPrediction{})
	register(errorIdentification{})
	register(miniProblemSet{})
}

// ScenarioApplicationPayload presents a realistic situation and asks
// the student to apply concepts to it.
type ScenarioApplicationPayload struct {
	Scenario         string   `json:"scenario"`
	Question         string   `json:"question"`
	RelevantConcepts []string `json:"relevantConcepts"`
	CorrectAnalysis  string   `json:"correctAnalysis"`
	KeyPoints        []string `json:"keyPoints"`
	MinKeyPoints     int      `json:"minKeyPoints"`
}

type scenarioApplication struct{}

func (scenarioApplication) Name() string           { return "scenario_application" }
func (scenarioApplication) Tier() int              { return 3 }
func (scenarioApplication) Strategy() EvalStrategy { return StrategyGPTAssisted }
func (scenarioApplication) NewPayload() any        { return &ScenarioApplicationPayload{} }

func (scenarioApplication) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a scenario-based application question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Create a realistic scenario (2-4 sentences) where the student must apply concepts\n")
	sb.WriteString("- Ask a specific question about what concept applies, what they should do, or what would happen\n")
	sb.WriteString("- Identify the relevant concepts from the topic\n")
	sb.WriteString("- Provide the correct analysis/answer\n")
	sb.WriteString("- List 3-4 key points that must be in a good answer\n")
	sb.WriteString("- Set minKeyPoints to 2\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "scenario": "detailed realistic scenario (2-4 sentences)",
  "question": "What concept applies here? What should be done? What would happen?",
  "relevantConcepts": ["concept 1", "concept 2"],
  "correctAnalysis": "expected answer/analysis",
  "keyPoints": ["key point 1", "key point 2", "key point 3"],
  "minKeyPoints": 2
}`)
	return sb.String()
}

func (scenarioApplication) Evaluate(ctx context.Context, payload any, resp model.Response, provider Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*ScenarioApplicationPayload)
	if !ok {
		return nil, fmt.Errorf("scenario_application: unexpected payload type %T", payload)
	}

	var sb strings.Builder
	sb.WriteString("Evaluate this scenario analysis answer.\n\n")
	fmt.Fprintf(&sb, "SCENARIO: %s\n", p.Scenario)
	fmt.Fprintf(&sb, "QUESTION: %s\n", p.Question)
	fmt.Fprintf(&sb, "RELEVANT CONCEPTS: %s\n", strings.Join(p.RelevantConcepts, ", "))
	fmt.Fprintf(&sb, "KEY POINTS TO COVER: %s\n", strings.Join(p.KeyPoints, ", "))
	fmt.Fprintf(&sb, "CORRECT ANALYSIS: %s\n\n", p.CorrectAnalysis)
	fmt.Fprintf(&sb, "STUDENT'S ANSWER: %s\n\n", resp.Answer)
	sb.WriteString("CRITERIA:\n")
	sb.WriteString("- Did they identify the correct concepts?\n")
	sb.WriteString("- Did they apply them appropriately to the scenario?\n")
	fmt.Fprintf(&sb, "- Did they cover at least %d key points?\n", p.MinKeyPoints)
	sb.WriteString("- Is their reasoning sound?\n\n")
	sb.WriteString("Return ONLY this JSON:\n")
	sb.WriteString(`{
  "score": 0-100,
  "isCorrect": true or false (true if score >= 70),
  "feedback": "specific feedback on their analysis - what was good, what was missing",
  "conceptsIdentified": ["concepts they correctly identified"],
  "keyPointsCovered": ["key points they mentioned"],
  "keyPointsMissed": ["key points they didn't mention"],
  "misconceptions": ["any errors or misconceptions in their answer"]
}`)

	var grade struct {
		Score              float64  `json:"score"`
		IsCorrect          bool     `json:"isCorrect"`
		Feedback           string   `json:"feedback"`
		ConceptsIdentified []string `json:"conceptsIdentified"`
		KeyPointsCovered   []string `json:"keyPointsCovered"`
		KeyPointsMissed    []string `json:"keyPointsMissed"`
		Misconceptions     []string `json:"misconceptions"`
	}
	if err := completeJSON(ctx, provider, gradeSystemPrompt, sb.String(), &grade); err != nil {
		return nil, err
	}

	return &model.EvaluationResult{
		IsCorrect:          grade.IsCorrect,
		Score:              int(math.Round(grade.Score)),
		Feedback:           grade.Feedback,
		ConceptsIdentified: grade.ConceptsIdentified,
		KeywordsCovered:    grade.KeyPointsCovered,
		KeywordsMissed:     grade.KeyPointsMissed,
		Misconceptions:     grade.Misconceptions,
	}, nil
}

// ScenarioPredictionPayload sets up conditions and asks what outcome
// would follow.
type ScenarioPredictionPayload struct {
	Scenario          string   `json:"scenario"`
	Question          string   `json:"question"`
	CorrectPrediction string   `json:"correctPrediction"`
	Reasoning         string   `json:"reasoning"`
	KeyPoints         []string `json:"keyPoints"`
	MinKeyPoints      int      `json:"minKeyPoints"`
}

type scenarioPrediction struct{}

func (scenarioPrediction) Name() string           { return "scenario_prediction" }
func (scenarioPrediction) Tier() int              { return 3 }
func (scenarioPrediction) Strategy() EvalStrategy { return StrategyGPTAssisted }
func (scenarioPrediction) NewPayload() any        { return &ScenarioPredictionPayload{} }

func (scenarioPrediction) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a prediction scenario question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Describe a situation with specific conditions\n")
	sb.WriteString("- Ask \"What would happen if...\" or \"What is the likely outcome...\"\n")
	sb.WriteString("- Provide the correct prediction\n")
	sb.WriteString("- Explain the reasoning behind this prediction\n")
	sb.WriteString("- List key points that support the prediction\n")
	sb.WriteString("- Set minKeyPoints to 2\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "scenario": "setup situation with conditions",
  "question": "What would happen if [change/action]?",
  "correctPrediction": "the expected outcome",
  "reasoning": "why this outcome would occur",
  "keyPoints": ["point 1", "point 2", "point 3"],
  "minKeyPoints": 2
}`)
	return sb.String()
}

func (scenarioPrediction) Evaluate(ctx context.Context, payload any, resp model.Response, provider Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*ScenarioPredictionPayload)
	if !ok {
		return nil, fmt.Errorf("scenario_prediction: unexpected payload type %T", payload)
	}

	var sb strings.Builder
	sb.WriteString("Evaluate this prediction answer.\n\n")
	fmt.Fprintf(&sb, "SCENARIO: %s\n", p.Scenario)
	fmt.Fprintf(&sb, "QUESTION: %s\n", p.Question)
	fmt.Fprintf(&sb, "CORRECT PREDICTION: %s\n", p.CorrectPrediction)
	fmt.Fprintf(&sb, "REASONING: %s\n", p.Reasoning)
	fmt.Fprintf(&sb, "KEY POINTS: %s\n\n", strings.Join(p.KeyPoints, ", "))
	fmt.Fprintf(&sb, "STUDENT'S ANSWER: %s\n\n", resp.Answer)
	sb.WriteString("CRITERIA:\n")
	sb.WriteString("- Did they make a reasonable prediction?\n")
	sb.WriteString("- Did they explain their reasoning?\n")
	fmt.Fprintf(&sb, "- Did they cover at least %d key points?\n", p.MinKeyPoints)
	sb.WriteString("- Is their logic sound?\n\n")
	sb.WriteString("Return ONLY this JSON:\n")
	sb.WriteString(`{
  "score": 0-100,
  "isCorrect": true or false (true if score >= 70),
  "feedback": "detailed feedback on their prediction and reasoning",
  "keyPointsCovered": ["points they mentioned"],
  "keyPointsMissed": ["points they missed"]
}`)

	var grade struct {
		Score            float64  `json:"score"`
		IsCorrect        bool     `json:"isCorrect"`
		Feedback         string   `json:"feedback"`
		KeyPointsCovered []string `json:"keyPointsCovered"`
		KeyPointsMissed  []string `json:"keyPointsMissed"`
	}
	if err := completeJSON(ctx, provider, gradeSystemPrompt, sb.String(), &grade); err != nil {
		return nil, err
	}

	return &model.EvaluationResult{
		IsCorrect:       grade.IsCorrect,
		Score:           int(math.Round(grade.Score)),
		Feedback:        grade.Feedback,
		KeywordsCovered: grade.KeyPointsCovered,
		KeywordsMissed:  grade.KeyPointsMissed,
	}, nil
}

// SolutionError is one planted mistake in an error-identification
// exercise.
type SolutionError struct {
	Type        string `json:"type"`
	Location    string `json:"location"`
	Explanation string `json:"explanation"`
	Correction  string `json:"correction"`
}

// ErrorIdentificationPayload shows an incorrect worked solution the
// student must find the mistakes in.
type ErrorIdentificationPayload struct {
	Question          string          `json:"question"`
	IncorrectSolution string          `json:"incorrectSolution"`
	Errors            []SolutionError `json:"errors"`
	CorrectSolution   string          `json:"correctSolution"`
}

type errorIdentification struct{}

func (errorIdentification) Name() string           { return "error_identification" }
func (errorIdentification) Tier() int              { return 3 }
func (errorIdentification) Strategy() EvalStrategy { return StrategyGPTAssisted }
func (errorIdentification) NewPayload() any        { return &ErrorIdentificationPayload{} }

func (errorIdentification) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "an error identification question", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Present a problem and an INCORRECT solution\n")
	sb.WriteString("- The solution should contain 1-2 common mistakes students make\n")
	sb.WriteString("- Identify each error with its type, location, and explanation\n")
	sb.WriteString("- Provide the correct solution\n")
	sb.WriteString("- Errors should be subtle enough to require understanding, not just obvious typos\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "question": "the original problem",
  "incorrectSolution": "step-by-step solution with errors",
  "errors": [
    {
      "type": "conceptual error | calculation error | logical error | formula misapplication",
      "location": "where in the solution this occurs",
      "explanation": "what is wrong",
      "correction": "what should be done instead"
    }
  ],
  "correctSolution": "the correct solution"
}`)
	return sb.String()
}

func (errorIdentification) Evaluate(ctx context.Context, payload any, resp model.Response, provider Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*ErrorIdentificationPayload)
	if !ok {
		return nil, fmt.Errorf("error_identification: unexpected payload type %T", payload)
	}

	var sb strings.Builder
	sb.WriteString("Evaluate this error identification answer.\n\n")
	fmt.Fprintf(&sb, "ORIGINAL PROBLEM: %s\n", p.Question)
	fmt.Fprintf(&sb, "INCORRECT SOLUTION: %s\n\n", p.IncorrectSolution)
	sb.WriteString("ACTUAL ERRORS:\n")
	for i, e := range p.Errors {
		fmt.Fprintf(&sb, "Error %d: %s - %s\n", i+1, e.Type, e.Explanation)
	}
	fmt.Fprintf(&sb, "\nCORRECT SOLUTION: %s\n\n", p.CorrectSolution)
	fmt.Fprintf(&sb, "STUDENT'S ANSWER: %s\n\n", resp.Answer)
	sb.WriteString("CRITERIA:\n")
	sb.WriteString("- Did they identify the error(s)?\n")
	sb.WriteString("- Did they explain what was wrong?\n")
	sb.WriteString("- Did they provide or suggest the correction?\n")
	sb.WriteString("- Do they understand the underlying concept?\n\n")
	sb.WriteString("Return ONLY this JSON:\n")
	sb.WriteString(`{
  "score": 0-100,
  "isCorrect": true or false (true if score >= 70),
  "feedback": "detailed feedback on their error identification",
  "errorsFound": ["errors they correctly identified"],
  "errorsMissed": ["errors they didn't catch"]
}`)

	var grade struct {
		Score       float64  `json:"score"`
		IsCorrect   bool     `json:"isCorrect"`
		Feedback    string   `json:"feedback"`
		ErrorsFound []string `json:"errorsFound"`
		ErrorsMiss  []string `json:"errorsMissed"`
	}
	if err := completeJSON(ctx, provider, gradeSystemPrompt, sb.String(), &grade); err != nil {
		return nil, err
	}

	return &model.EvaluationResult{
		IsCorrect:       grade.IsCorrect,
		Score:           int(math.Round(grade.Score)),
		Feedback:        grade.Feedback,
		KeywordsCovered: grade.ErrorsFound,
		KeywordsMissed:  grade.ErrorsMiss,
	}, nil
}

// SubProblem is one item in a mini problem set. CorrectAnswer is kept
// raw because the LLM emits a number for numerical problems and a
// string otherwise.
type SubProblem struct {
	Question      string          `json:"question"`
	Type          string          `json:"type"`
	CorrectAnswer json.RawMessage `json:"correctAnswer"`
	Options       []string        `json:"options,omitempty"`
	Explanation   string          `json:"explanation"`
	Points        int             `json:"points"`
}

func (sp *SubProblem) answerString() string {
	var s string
	if err := json.Unmarshal(sp.CorrectAnswer, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(sp.CorrectAnswer))
}

func (sp *SubProblem) answerFloat() (float64, error) {
	var f float64
	if err := json.Unmarshal(sp.CorrectAnswer, &f); err == nil {
		return f, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(sp.answerString()), 64)
}

// MiniProblemSetPayload is a point-weighted composite of 3-5 quick
// sub-problems, each graded by its own declared type.
type MiniProblemSetPayload struct {
	Instructions string       `json:"instructions"`
	Problems     []SubProblem `json:"problems"`
	TotalPoints  int          `json:"totalPoints"`
}

type miniProblemSet struct{}

func (miniProblemSet) Name() string           { return "mini_problem_set" }
func (miniProblemSet) Tier() int              { return 3 }
func (miniProblemSet) Strategy() EvalStrategy { return StrategyMixed }
func (miniProblemSet) NewPayload() any        { return &MiniProblemSetPayload{} }

func (miniProblemSet) BuildPrompt(in PromptInput) string {
	var sb strings.Builder
	writePromptHeader(&sb, "a mini problem set", in)
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Create 3-5 related problems that build on each other or test the same concept\n")
	sb.WriteString("- Mix problem types: numerical calculations, short conceptual questions, or quick MCQs\n")
	sb.WriteString("- For multiple_choice type, include an options array with 4 choices (A, B, C, D)\n")
	sb.WriteString("- Each problem should be solvable in 1-2 minutes\n")
	sb.WriteString("- Assign points based on difficulty (1-3 points per problem)\n")
	sb.WriteString("- Total should be 10 points\n\n")
	sb.WriteString("Return this EXACT JSON structure:\n")
	sb.WriteString(`{
  "instructions": "overall instructions for the problem set",
  "problems": [
    {"question": "problem 1", "type": "numerical", "correctAnswer": 42, "explanation": "how to solve", "points": 2},
    {"question": "problem 2", "type": "short_answer", "correctAnswer": "brief answer", "explanation": "explanation", "points": 3},
    {"question": "problem 3", "type": "multiple_choice", "correctAnswer": "B", "options": ["A text", "B text", "C text", "D text"], "explanation": "why B", "points": 2}
  ],
  "totalPoints": 10
}`)
	return sb.String()
}

// Evaluate grades each sub-problem by its declared type: numerical and
// multiple-choice automatically, short answers through the provider.
// The set is correct at >=70% of the total points.
func (miniProblemSet) Evaluate(ctx context.Context, payload any, resp model.Response, provider Provider) (*model.EvaluationResult, error) {
	p, ok := payload.(*MiniProblemSetPayload)
	if !ok {
		return nil, fmt.Errorf("mini_problem_set: unexpected payload type %T", payload)
	}

	results := make([]model.ProblemResult, 0, len(p.Problems))
	earned := 0
	possible := p.TotalPoints
	if possible == 0 {
		for _, prob := range p.Problems {
			possible += prob.Points
		}
	}

	for i, prob := range p.Problems {
		answer := ""
		if i < len(resp.Answers) {
			answer = resp.Answers[i]
		}

		var pr model.ProblemResult
		switch prob.Type {
		case "numerical":
			want, err := prob.answerFloat()
			if err != nil {
				return nil, fmt.Errorf("mini_problem_set: problem %d has non-numeric answer: %w", i+1, err)
			}
			value, perr := strconv.ParseFloat(strings.TrimSpace(answer), 64)
			correct := perr == nil && math.Abs(value-want) <= defaultTolerance
			pr = subResult(i, correct, prob,
				fmt.Sprintf("Incorrect. Expected %s. %s", formatFloat(want), prob.Explanation))

		case "multiple_choice":
			correct := strings.EqualFold(strings.TrimSpace(answer), prob.answerString())
			pr = subResult(i, correct, prob,
				fmt.Sprintf("Incorrect. Correct answer is %s. %s", prob.answerString(), prob.Explanation))

		default:
			var err error
			pr, err = gradeSubProblem(ctx, provider, prob, answer, i)
			if err != nil {
				return nil, err
			}
		}

		results = append(results, pr)
		earned += pr.PointsEarned
	}

	percent := 0
	if possible > 0 {
		percent = int(math.Round(float64(earned) / float64(possible) * 100))
	}
	correct := percent >= 70

	return &model.EvaluationResult{
		IsCorrect:      correct,
		Score:          percent,
		Feedback:       fmt.Sprintf("You scored %d/%d points (%d%%)", earned, possible, percent),
		ProblemResults: results,
		PointsEarned:   earned,
		PointsPossible: possible,
	}, nil
}

func subResult(index int, correct bool, prob SubProblem, wrongFeedback string) model.ProblemResult {
	pr := model.ProblemResult{
		ProblemNumber: index + 1,
		IsCorrect:     correct,
		Feedback:      wrongFeedback,
	}
	if correct {
		pr.PointsEarned = prob.Points
		pr.Feedback = fmt.Sprintf("Correct! %s", prob.Explanation)
	}
	return pr
}

func gradeSubProblem(ctx context.Context, provider Provider, prob SubProblem, answer string, index int) (model.ProblemResult, error) {
	var sb strings.Builder
	sb.WriteString("Evaluate this short answer.\n\n")
	fmt.Fprintf(&sb, "QUESTION: %s\n", prob.Question)
	fmt.Fprintf(&sb, "CORRECT ANSWER: %s\n", prob.answerString())
	fmt.Fprintf(&sb, "EXPLANATION: %s\n", prob.Explanation)
	fmt.Fprintf(&sb, "STUDENT'S ANSWER: %s\n", answer)
	fmt.Fprintf(&sb, "POINTS POSSIBLE: %d\n\n", prob.Points)
	sb.WriteString("Return ONLY this JSON:\n")
	fmt.Fprintf(&sb, `{
  "isCorrect": true or false,
  "pointsEarned": 0-%d,
  "feedback": "brief feedback"
}`, prob.Points)

	var grade struct {
		IsCorrect    bool    `json:"isCorrect"`
		PointsEarned float64 `json:"pointsEarned"`
		Feedback     string  `json:"feedback"`
	}
	if err := completeJSON(ctx, provider, gradeSystemPrompt, sb.String(), &grade); err != nil {
		return model.ProblemResult{}, err
	}

	return model.ProblemResult{
		ProblemNumber: index + 1,
		IsCorrect:     grade.IsCorrect,
		PointsEarned:  int(math.Round(grade.PointsEarned)),
		Feedback:      grade.Feedback,
	}, nil
}
