package learning

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/training"
)

var (
	// errors
	ErrModuleNotFound           = core.NewError(core.CodeNotFound, "module not found")
	ErrQuizNotFound             = core.NewError(core.CodeNotFound, "quiz not found")
	ErrTaskNotFound             = core.NewError(core.CodeNotFound, "task not found")
	ErrModuleSubmissionNotFound = core.NewError(core.CodeNotFound, "module submission not found")
	ErrQuizSubmissionNotFound   = core.NewError(core.CodeNotFound, "quiz submission not found")
	ErrTaskSubmissionNotFound   = core.NewError(core.CodeNotFound, "task submission not found")
	ErrAlreadySubmitted         = core.NewError(core.CodeAlreadyExists, "already submitted")
	ErrMalformedAnswer          = core.NewError(core.CodeMalformedAnswer, "malformed answer")
	ErrScoreOutOfRange          = core.NewError(core.CodeOutOfRange, "score out of range")
	ErrCrossTraining            = core.NewError(core.CodeCrossTrainingMismatch, "training user does not belong to this training")
)

type (
	Repository interface {
		CreateModule(ctx context.Context, mod Module) (Module, error)
		GetModule(ctx context.Context, id string) (Module, error)
		QueryModules(ctx context.Context, meetingID string) ([]Module, error)

		CreateQuiz(ctx context.Context, quiz Quiz) (Quiz, error)
		GetQuiz(ctx context.Context, id string) (Quiz, error)
		QueryQuizzes(ctx context.Context, meetingID string) ([]Quiz, error)

		CreateTask(ctx context.Context, task Task) (Task, error)
		GetTask(ctx context.Context, id string) (Task, error)
		QueryTasks(ctx context.Context, meetingID string) ([]Task, error)

		// Submissions are unique per (item, student): creating a second one returns ErrAlreadySubmitted
		// and leaves the first one untouched.

		CreateModuleSubmission(ctx context.Context, sub ModuleSubmission) (ModuleSubmission, error)
		GetModuleSubmission(ctx context.Context, id string) (ModuleSubmission, error)
		UpdateModuleSubmissionScore(ctx context.Context, id string, score float64, updatedAt time.Time) (ModuleSubmission, error)

		CreateQuizSubmission(ctx context.Context, sub QuizSubmission) (QuizSubmission, error)
		GetQuizSubmission(ctx context.Context, quizID, studentID string) (QuizSubmission, error)

		CreateTaskSubmission(ctx context.Context, sub TaskSubmission) (TaskSubmission, error)
		GetTaskSubmission(ctx context.Context, taskID, trainingUserID string) (TaskSubmission, error)
		UpdateTaskSubmissionScore(ctx context.Context, id string, score float64, updatedAt time.Time) (TaskSubmission, error)

		// QueryMeetingSubmissions returns the submissions of a student to the items of a meeting.
		QueryMeetingSubmissions(ctx context.Context, meetingID, studentID string) (MeetingSubmissions, error)
	}

	// TrainingFinder resolves the meetings and enrollments learning items hang off.
	TrainingFinder interface {
		GetMeeting(ctx context.Context, id string) (training.Meeting, error)
		GetEnrollment(ctx context.Context, id string) (training.TrainingUser, error)
	}

	Service struct {
		repo      Repository
		trainings TrainingFinder
	}
)

func NewService(repo Repository, trainings TrainingFinder) *Service {
	return &Service{repo: repo, trainings: trainings}
}

// Authoring

func (svc *Service) CreateModule(ctx context.Context, meetingID string, nm NewModule) (Module, error) {
	if _, err := svc.trainings.GetMeeting(ctx, meetingID); err != nil {
		return Module{}, err
	}
	mod := Module{
		MeetingID: meetingID,
		Title:     nm.Title,
		Content:   nm.Content,
		MaxScore:  nm.MaxScore,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateModule(ctx, mod)
}

func (svc *Service) CreateQuiz(ctx context.Context, meetingID string, nq NewQuiz) (Quiz, error) {
	if _, err := svc.trainings.GetMeeting(ctx, meetingID); err != nil {
		return Quiz{}, err
	}
	questions := make([]Question, 0, len(nq.Questions))
	for _, q := range nq.Questions {
		if len(q.Options) < MinQuizOptions || len(q.Options) > MaxQuizOptions ||
			q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
			err := errors.New("invalid answer key")
			return Quiz{}, core.NewValidationError(err, core.FieldError{Field: "questions", Error: err.Error()})
		}
		questions = append(questions, Question{
			Question:           q.Question,
			Options:            q.Options,
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			Score:              q.Score,
		})
	}
	quiz := Quiz{
		MeetingID: meetingID,
		Title:     nq.Title,
		QuizScore: nq.QuizScore,
		Questions: questions,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateQuiz(ctx, quiz)
}

func (svc *Service) CreateTask(ctx context.Context, meetingID string, nt NewTask) (Task, error) {
	if _, err := svc.trainings.GetMeeting(ctx, meetingID); err != nil {
		return Task{}, err
	}
	task := Task{
		MeetingID:    meetingID,
		Title:        nt.Title,
		TaskQuestion: nt.TaskQuestion,
		CreatedAt:    time.Now().UTC(),
	}
	return svc.repo.CreateTask(ctx, task)
}

func (svc *Service) GetModule(ctx context.Context, id string) (Module, error) {
	return svc.repo.GetModule(ctx, id)
}

func (svc *Service) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, id)
}

func (svc *Service) GetTask(ctx context.Context, id string) (Task, error) {
	return svc.repo.GetTask(ctx, id)
}

func (svc *Service) GetModuleSubmission(ctx context.Context, id string) (ModuleSubmission, error) {
	return svc.repo.GetModuleSubmission(ctx, id)
}

func (svc *Service) GetQuizSubmission(ctx context.Context, quizID, studentID string) (QuizSubmission, error) {
	return svc.repo.GetQuizSubmission(ctx, quizID, studentID)
}

// MeetingItems lists the modules, quizzes and tasks of a meeting.
func (svc *Service) MeetingItems(ctx context.Context, meetingID string) (MeetingItems, error) {
	if _, err := svc.trainings.GetMeeting(ctx, meetingID); err != nil {
		return MeetingItems{}, err
	}
	var (
		items MeetingItems
		err   error
	)
	if items.Modules, err = svc.repo.QueryModules(ctx, meetingID); err != nil {
		return MeetingItems{}, errors.Wrap(err, "querying modules")
	}
	if items.Quizzes, err = svc.repo.QueryQuizzes(ctx, meetingID); err != nil {
		return MeetingItems{}, errors.Wrap(err, "querying quizzes")
	}
	if items.Tasks, err = svc.repo.QueryTasks(ctx, meetingID); err != nil {
		return MeetingItems{}, errors.Wrap(err, "querying tasks")
	}
	return items, nil
}

// MeetingSubmissions lists the submissions of a student to the items of a meeting.
func (svc *Service) MeetingSubmissions(ctx context.Context, meetingID, studentID string) (MeetingSubmissions, error) {
	return svc.repo.QueryMeetingSubmissions(ctx, meetingID, studentID)
}

// Submissions

// checkParticipant returns the TrainingUser identified by trainingUserID if it is an enrollment of
// studentID in the training of the meeting.
func (svc *Service) checkParticipant(ctx context.Context, meetingID, studentID, trainingUserID string) (training.TrainingUser, error) {
	mtg, err := svc.trainings.GetMeeting(ctx, meetingID)
	if err != nil {
		return training.TrainingUser{}, err
	}
	tu, err := svc.trainings.GetEnrollment(ctx, trainingUserID)
	if err != nil {
		return training.TrainingUser{}, err
	}
	if tu.TrainingID != mtg.TrainingID || tu.UserID != studentID {
		return training.TrainingUser{}, ErrCrossTraining
	}
	return tu, nil
}

// SubmitQuiz grades answers and stores the submission with its score.
// A student can submit a quiz only once: later attempts fail with ErrAlreadySubmitted.
func (svc *Service) SubmitQuiz(ctx context.Context, quizID, studentID, trainingUserID string, answers []QuizAnswer) (QuizSubmission, error) {
	quiz, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizSubmission{}, err
	}
	tu, err := svc.checkParticipant(ctx, quiz.MeetingID, studentID, trainingUserID)
	if err != nil {
		return QuizSubmission{}, err
	}

	score, err := GradeQuiz(quiz, answers)
	if err != nil {
		return QuizSubmission{}, err
	}

	if answers == nil {
		answers = []QuizAnswer{}
	}
	sub := QuizSubmission{
		QuizID:         quiz.ID,
		StudentID:      studentID,
		TrainingUserID: tu.ID,
		Answers:        answers,
		Score:          score,
		CreatedAt:      time.Now().UTC(),
	}
	return svc.repo.CreateQuizSubmission(ctx, sub)
}

func (svc *Service) SubmitModuleAnswer(ctx context.Context, moduleID, studentID string, ns NewModuleSubmission) (ModuleSubmission, error) {
	mod, err := svc.repo.GetModule(ctx, moduleID)
	if err != nil {
		return ModuleSubmission{}, err
	}
	tu, err := svc.checkParticipant(ctx, mod.MeetingID, studentID, ns.TrainingUserID)
	if err != nil {
		return ModuleSubmission{}, err
	}

	now := time.Now().UTC()
	sub := ModuleSubmission{
		ModuleID:       mod.ID,
		StudentID:      studentID,
		TrainingUserID: tu.ID,
		Answer:         ns.Answer,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateModuleSubmission(ctx, sub)
}

func (svc *Service) SubmitTask(ctx context.Context, taskID, studentID string, ns NewTaskSubmission) (TaskSubmission, error) {
	task, err := svc.repo.GetTask(ctx, taskID)
	if err != nil {
		return TaskSubmission{}, err
	}
	tu, err := svc.checkParticipant(ctx, task.MeetingID, studentID, ns.TrainingUserID)
	if err != nil {
		return TaskSubmission{}, err
	}

	now := time.Now().UTC()
	sub := TaskSubmission{
		TaskID:         task.ID,
		StudentID:      studentID,
		TrainingUserID: tu.ID,
		Answer:         ns.Answer,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateTaskSubmission(ctx, sub)
}

// Manual grading

// GradeModule sets the score of a module submission, overwriting any previous grade.
func (svc *Service) GradeModule(ctx context.Context, submissionID string, score float64) (ModuleSubmission, error) {
	sub, err := svc.repo.GetModuleSubmission(ctx, submissionID)
	if err != nil {
		return ModuleSubmission{}, err
	}
	mod, err := svc.repo.GetModule(ctx, sub.ModuleID)
	if err != nil {
		return ModuleSubmission{}, errors.Wrap(err, "getting module")
	}
	mtg, err := svc.trainings.GetMeeting(ctx, mod.MeetingID)
	if err != nil {
		return ModuleSubmission{}, errors.Wrap(err, "getting meeting")
	}
	tu, err := svc.trainings.GetEnrollment(ctx, sub.TrainingUserID)
	if err != nil {
		return ModuleSubmission{}, errors.Wrap(err, "getting training user")
	}
	if tu.TrainingID != mtg.TrainingID {
		return ModuleSubmission{}, ErrCrossTraining
	}

	if score < 0 || (mod.MaxScore > 0 && score > mod.MaxScore) {
		return ModuleSubmission{}, errors.Wrapf(ErrScoreOutOfRange, "module score must be between 0 and %v", mod.MaxScore)
	}
	return svc.repo.UpdateModuleSubmissionScore(ctx, sub.ID, score, time.Now().UTC())
}

// GradeTask sets the score of the task submission of a TrainingUser, overwriting any previous grade.
func (svc *Service) GradeTask(ctx context.Context, taskID, trainingUserID string, score float64) (TaskSubmission, error) {
	if score < 0 || score > MaxTaskScore {
		return TaskSubmission{}, errors.Wrapf(ErrScoreOutOfRange, "task score must be between 0 and %d", MaxTaskScore)
	}

	task, err := svc.repo.GetTask(ctx, taskID)
	if err != nil {
		return TaskSubmission{}, err
	}
	mtg, err := svc.trainings.GetMeeting(ctx, task.MeetingID)
	if err != nil {
		return TaskSubmission{}, errors.Wrap(err, "getting meeting")
	}
	tu, err := svc.trainings.GetEnrollment(ctx, trainingUserID)
	if err != nil {
		return TaskSubmission{}, err
	}
	if tu.TrainingID != mtg.TrainingID {
		return TaskSubmission{}, ErrCrossTraining
	}

	sub, err := svc.repo.GetTaskSubmission(ctx, task.ID, tu.ID)
	if err != nil {
		return TaskSubmission{}, err
	}
	return svc.repo.UpdateTaskSubmissionScore(ctx, sub.ID, score, time.Now().UTC())
}
