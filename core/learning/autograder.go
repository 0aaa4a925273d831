package learning

import "github.com/pkg/errors"

// GradeQuiz scores answers against the answer key of quiz.
// A question earns its weight when its selected option is the correct one; unanswered questions earn 0.
// The result is clamped to [0, quiz.QuizScore].
// Any malformed answer fails the whole submission with ErrMalformedAnswer.
func GradeQuiz(quiz Quiz, answers []QuizAnswer) (float64, error) {
	nQuestions := len(quiz.Questions)
	if len(answers) > nQuestions {
		return 0, errors.Wrapf(ErrMalformedAnswer, "%d answers for %d questions", len(answers), nQuestions)
	}

	answered := make([]bool, nQuestions)
	selected := make([]int, nQuestions)
	for _, ans := range answers {
		qi := ans.QuestionIndex
		if qi < 0 || qi >= nQuestions {
			return 0, errors.Wrapf(ErrMalformedAnswer, "question index %d out of range", qi)
		}
		if answered[qi] {
			return 0, errors.Wrapf(ErrMalformedAnswer, "question %d answered twice", qi)
		}
		answered[qi] = true
		selected[qi] = -1

		if ans.SelectedAnswerIndex != nil {
			si := *ans.SelectedAnswerIndex
			if si < 0 || si >= len(quiz.Questions[qi].Options) {
				return 0, errors.Wrapf(ErrMalformedAnswer, "question %d: option %d out of range", qi, si)
			}
			selected[qi] = si
		}
	}

	var score float64
	for i, q := range quiz.Questions {
		if answered[i] && selected[i] == q.CorrectAnswerIndex {
			score += q.Score
		}
	}

	switch {
	case score < 0:
		score = 0
	case score > quiz.QuizScore:
		score = quiz.QuizScore
	}
	return score, nil
}
