package learning

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/trainings/core"
)

var (
	answerKeyTag  = "answerkey"
	answerKeyText = "the correct answer must be one of the options"
)

// InitValidators registers the learning validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(questionStructLevelValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, answerKeyTag, answerKeyText)
}

// Custom Validators

// questionStructLevelValidation checks that the answer key points to one of the question options
func questionStructLevelValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(NewQuestion)
	if q.CorrectAnswerIndex >= len(q.Options) {
		sl.ReportError(q.CorrectAnswerIndex, "correct_answer_index", "CorrectAnswerIndex", answerKeyTag, "")
	}
}
