package learning

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/trainings/core"
)

const (
	MinQuizOptions = 2
	MaxQuizOptions = 4
	MaxTaskScore   = 100
)

// Module is a reading assignment graded manually.
// A MaxScore of 0 means any non-negative score is accepted.
type Module struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meeting_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	MaxScore  float64   `json:"max_score"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Question struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`
	Score              float64  `json:"score"`
}

// Quiz is a multiple-choice assessment graded automatically against its answer key.
type Quiz struct {
	ID        string     `json:"id"`
	MeetingID string     `json:"meeting_id"`
	Title     string     `json:"title"`
	QuizScore float64    `json:"quiz_score"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"created_at"` // UTC
}

// QuestionView is a Question without its answer key.
type QuestionView struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Score    float64  `json:"score"`
}

// QuizView is the Quiz as shown to students.
type QuizView struct {
	ID        string         `json:"id"`
	MeetingID string         `json:"meeting_id"`
	Title     string         `json:"title"`
	QuizScore float64        `json:"quiz_score"`
	Questions []QuestionView `json:"questions"`
	CreatedAt time.Time      `json:"created_at"`
}

func (q Quiz) StudentView() QuizView {
	qs := make([]QuestionView, 0, len(q.Questions))
	for _, question := range q.Questions {
		qs = append(qs, QuestionView{
			Question: question.Question,
			Options:  question.Options,
			Score:    question.Score,
		})
	}
	return QuizView{
		ID:        q.ID,
		MeetingID: q.MeetingID,
		Title:     q.Title,
		QuizScore: q.QuizScore,
		Questions: qs,
		CreatedAt: q.CreatedAt,
	}
}

// Task is a file-upload assignment graded manually on a 0-100 scale.
type Task struct {
	ID           string    `json:"id"`
	MeetingID    string    `json:"meeting_id"`
	Title        string    `json:"title"`
	TaskQuestion string    `json:"task_question"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// ModuleSubmission is the answer of a student to a Module. Score is nil until graded.
type ModuleSubmission struct {
	ID             string    `json:"id"`
	ModuleID       string    `json:"module_id"`
	StudentID      string    `json:"student_id"`
	TrainingUserID string    `json:"training_user_id"`
	Answer         string    `json:"answer"`
	Score          *float64  `json:"score"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// QuizAnswer selects an option of the question at QuestionIndex.
// A nil SelectedAnswerIndex leaves the question unanswered.
type QuizAnswer struct {
	QuestionIndex       int  `json:"question_index" validate:"min=0"`
	SelectedAnswerIndex *int `json:"selected_answer_index" validate:"omitempty,min=0"`
}

// QuizSubmission is write-once: its Score is computed on submission.
type QuizSubmission struct {
	ID             string       `json:"id"`
	QuizID         string       `json:"quiz_id"`
	StudentID      string       `json:"student_id"`
	TrainingUserID string       `json:"training_user_id"`
	Answers        []QuizAnswer `json:"answers"`
	Score          float64      `json:"score"`
	CreatedAt      time.Time    `json:"created_at"` // UTC
}

// TaskSubmission references the file uploaded by a student for a Task. Score is nil until graded.
type TaskSubmission struct {
	ID             string    `json:"id"`
	TaskID         string    `json:"task_id"`
	StudentID      string    `json:"student_id"`
	TrainingUserID string    `json:"training_user_id"`
	Answer         string    `json:"answer"`
	Score          *float64  `json:"score"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// MeetingItems lists the learning items of a meeting in creation order.
type MeetingItems struct {
	Modules []Module `json:"modules"`
	Quizzes []Quiz   `json:"quizzes"`
	Tasks   []Task   `json:"tasks"`
}

// MeetingSubmissions lists the submissions of a student under a meeting in creation order.
type MeetingSubmissions struct {
	Modules []ModuleSubmission `json:"modules"`
	Quizzes []QuizSubmission   `json:"quizzes"`
	Tasks   []TaskSubmission   `json:"tasks"`
}

// NewModule contains information needed to create a new Module.
type NewModule struct {
	Title    string  `json:"title" validate:"required,notblank,max=255"`
	Content  string  `json:"content"`
	MaxScore float64 `json:"max_score" validate:"min=0"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	return validate.Struct(nm)
}

type NewQuestion struct {
	Question           string   `json:"question" validate:"required,notblank"`
	Options            []string `json:"options" validate:"min=2,max=4,dive,required,notblank"`
	CorrectAnswerIndex int      `json:"correct_answer_index" validate:"min=0,max=3"`
	Score              float64  `json:"score" validate:"min=0"`
}

// NewQuiz contains information needed to create a new Quiz.
type NewQuiz struct {
	Title     string        `json:"title" validate:"required,notblank,max=255"`
	QuizScore float64       `json:"quiz_score" validate:"gt=0"`
	Questions []NewQuestion `json:"questions" validate:"required,min=1,dive"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	for i := range nq.Questions {
		nq.Questions[i].Question = core.CleanString(nq.Questions[i].Question)
	}
	return validate.Struct(nq)
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	Title        string `json:"title" validate:"required,notblank,max=255"`
	TaskQuestion string `json:"task_question" validate:"required,notblank"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.TaskQuestion = core.CleanString(nt.TaskQuestion)
	return validate.Struct(nt)
}

type NewModuleSubmission struct {
	TrainingUserID string `json:"training_user_id" validate:"required"`
	Answer         string `json:"answer" validate:"required,notblank"`
}

func (ns *NewModuleSubmission) Validate(validate *validator.Validate) error {
	ns.TrainingUserID = core.CleanString(ns.TrainingUserID)
	return validate.Struct(ns)
}

type NewQuizSubmission struct {
	TrainingUserID string       `json:"training_user_id" validate:"required"`
	Answers        []QuizAnswer `json:"answers" validate:"dive"`
}

func (ns *NewQuizSubmission) Validate(validate *validator.Validate) error {
	ns.TrainingUserID = core.CleanString(ns.TrainingUserID)
	return validate.Struct(ns)
}

type NewTaskSubmission struct {
	TrainingUserID string `json:"training_user_id" validate:"required"`
	Answer         string `json:"answer" validate:"required,notblank"` // file reference
}

func (ns *NewTaskSubmission) Validate(validate *validator.Validate) error {
	ns.TrainingUserID = core.CleanString(ns.TrainingUserID)
	ns.Answer = core.CleanString(ns.Answer)
	return validate.Struct(ns)
}

type ModuleGrade struct {
	Score *float64 `json:"score" validate:"required"`
}

func (g *ModuleGrade) Validate(validate *validator.Validate) error {
	return validate.Struct(g)
}

type TaskGrade struct {
	TrainingUserID string   `json:"training_user_id" validate:"required"`
	Score          *float64 `json:"score" validate:"required"`
}

func (g *TaskGrade) Validate(validate *validator.Validate) error {
	g.TrainingUserID = core.CleanString(g.TrainingUserID)
	return validate.Struct(g)
}
