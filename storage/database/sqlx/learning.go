package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/trainings/core/learning"
)

const (
	moduleColumns           = `id, meeting_id, title, content, max_score, created_at`
	quizColumns             = `id, meeting_id, title, quiz_score, questions, created_at`
	taskColumns             = `id, meeting_id, title, task_question, created_at`
	moduleSubmissionColumns = `id, module_id, student_id, training_user_id, answer, score, created_at, updated_at`
	quizSubmissionColumns   = `id, quiz_id, student_id, training_user_id, answers, score, created_at`
	taskSubmissionColumns   = `id, task_id, student_id, training_user_id, answer, score, created_at, updated_at`
)

type moduleRow struct {
	ID        string    `db:"id"`
	MeetingID string    `db:"meeting_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	MaxScore  float64   `db:"max_score"`
	CreatedAt time.Time `db:"created_at"`
}

func (r moduleRow) module() learning.Module {
	return learning.Module{
		ID:        r.ID,
		MeetingID: r.MeetingID,
		Title:     r.Title,
		Content:   r.Content,
		MaxScore:  r.MaxScore,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type quizRow struct {
	ID        string         `db:"id"`
	MeetingID string         `db:"meeting_id"`
	Title     string         `db:"title"`
	QuizScore float64        `db:"quiz_score"`
	Questions types.JSONText `db:"questions"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r quizRow) quiz() (learning.Quiz, error) {
	quiz := learning.Quiz{
		ID:        r.ID,
		MeetingID: r.MeetingID,
		Title:     r.Title,
		QuizScore: r.QuizScore,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if err := r.Questions.Unmarshal(&quiz.Questions); err != nil {
		return learning.Quiz{}, errors.Wrapf(err, "decoding questions of quiz %s", r.ID)
	}
	return quiz, nil
}

type taskRow struct {
	ID           string    `db:"id"`
	MeetingID    string    `db:"meeting_id"`
	Title        string    `db:"title"`
	TaskQuestion string    `db:"task_question"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r taskRow) task() learning.Task {
	return learning.Task{
		ID:           r.ID,
		MeetingID:    r.MeetingID,
		Title:        r.Title,
		TaskQuestion: r.TaskQuestion,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type moduleSubmissionRow struct {
	ID             string       `db:"id"`
	ModuleID       string       `db:"module_id"`
	StudentID      string       `db:"student_id"`
	TrainingUserID string       `db:"training_user_id"`
	Answer         string       `db:"answer"`
	Score          null.Float64 `db:"score"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

func (r moduleSubmissionRow) submission() learning.ModuleSubmission {
	return learning.ModuleSubmission{
		ID:             r.ID,
		ModuleID:       r.ModuleID,
		StudentID:      r.StudentID,
		TrainingUserID: r.TrainingUserID,
		Answer:         r.Answer,
		Score:          r.Score.Ptr(),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type quizSubmissionRow struct {
	ID             string         `db:"id"`
	QuizID         string         `db:"quiz_id"`
	StudentID      string         `db:"student_id"`
	TrainingUserID string         `db:"training_user_id"`
	Answers        types.JSONText `db:"answers"`
	Score          float64        `db:"score"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r quizSubmissionRow) submission() (learning.QuizSubmission, error) {
	sub := learning.QuizSubmission{
		ID:             r.ID,
		QuizID:         r.QuizID,
		StudentID:      r.StudentID,
		TrainingUserID: r.TrainingUserID,
		Score:          r.Score,
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if err := r.Answers.Unmarshal(&sub.Answers); err != nil {
		return learning.QuizSubmission{}, errors.Wrapf(err, "decoding answers of quiz submission %s", r.ID)
	}
	return sub, nil
}

type taskSubmissionRow struct {
	ID             string       `db:"id"`
	TaskID         string       `db:"task_id"`
	StudentID      string       `db:"student_id"`
	TrainingUserID string       `db:"training_user_id"`
	Answer         string       `db:"answer"`
	Score          null.Float64 `db:"score"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

func (r taskSubmissionRow) submission() learning.TaskSubmission {
	return learning.TaskSubmission{
		ID:             r.ID,
		TaskID:         r.TaskID,
		StudentID:      r.StudentID,
		TrainingUserID: r.TrainingUserID,
		Answer:         r.Answer,
		Score:          r.Score.Ptr(),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type learningRepository struct {
	exec Executor
}

var _ learning.Repository = (*learningRepository)(nil) // interface compliance check

func NewLearningRepository(exec Executor) learning.Repository {
	return &learningRepository{exec: exec}
}

// Modules

func (repo learningRepository) CreateModule(ctx context.Context, mod learning.Module) (learning.Module, error) {
	mod.ID = newID()
	var row moduleRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `
		INSERT INTO module (`+moduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+moduleColumns,
		mod.ID, mod.MeetingID, mod.Title, mod.Content, mod.MaxScore, mod.CreatedAt.UTC())
	if err != nil {
		return learning.Module{}, errors.Wrap(err, "inserting module")
	}
	return row.module(), nil
}

func (repo learningRepository) GetModule(ctx context.Context, id string) (learning.Module, error) {
	if !isUUID(id) {
		return learning.Module{}, learning.ErrModuleNotFound
	}
	var row moduleRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `SELECT `+moduleColumns+` FROM module WHERE id = $1`, id)
	if err != nil {
		return learning.Module{}, trapNoRowsErr(err, learning.ErrModuleNotFound, "getting module")
	}
	return row.module(), nil
}

func (repo learningRepository) QueryModules(ctx context.Context, meetingID string) ([]learning.Module, error) {
	mods := make([]learning.Module, 0)
	if !isUUID(meetingID) {
		return mods, nil
	}
	var rows []moduleRow
	err := sqlx.SelectContext(ctx, repo.exec, &rows,
		`SELECT `+moduleColumns+` FROM module WHERE meeting_id = $1 ORDER BY seq`, meetingID)
	if err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	for _, r := range rows {
		mods = append(mods, r.module())
	}
	return mods, nil
}

// Quizzes

func (repo learningRepository) CreateQuiz(ctx context.Context, quiz learning.Quiz) (learning.Quiz, error) {
	quiz.ID = newID()
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return learning.Quiz{}, errors.Wrap(err, "encoding questions")
	}
	var row quizRow
	err = sqlx.GetContext(ctx, repo.exec, &row, `
		INSERT INTO quiz (`+quizColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+quizColumns,
		quiz.ID, quiz.MeetingID, quiz.Title, quiz.QuizScore, types.JSONText(questions), quiz.CreatedAt.UTC())
	if err != nil {
		return learning.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return row.quiz()
}

func (repo learningRepository) GetQuiz(ctx context.Context, id string) (learning.Quiz, error) {
	if !isUUID(id) {
		return learning.Quiz{}, learning.ErrQuizNotFound
	}
	var row quizRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `SELECT `+quizColumns+` FROM quiz WHERE id = $1`, id)
	if err != nil {
		return learning.Quiz{}, trapNoRowsErr(err, learning.ErrQuizNotFound, "getting quiz")
	}
	return row.quiz()
}

func (repo learningRepository) QueryQuizzes(ctx context.Context, meetingID string) ([]learning.Quiz, error) {
	quizzes := make([]learning.Quiz, 0)
	if !isUUID(meetingID) {
		return quizzes, nil
	}
	var rows []quizRow
	err := sqlx.SelectContext(ctx, repo.exec, &rows,
		`SELECT `+quizColumns+` FROM quiz WHERE meeting_id = $1 ORDER BY seq`, meetingID)
	if err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	for _, r := range rows {
		quiz, err := r.quiz()
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

// Tasks

func (repo learningRepository) CreateTask(ctx context.Context, task learning.Task) (learning.Task, error) {
	task.ID = newID()
	var row taskRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `
		INSERT INTO task (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+taskColumns,
		task.ID, task.MeetingID, task.Title, task.TaskQuestion, task.CreatedAt.UTC())
	if err != nil {
		return learning.Task{}, errors.Wrap(err, "inserting task")
	}
	return row.task(), nil
}

func (repo learningRepository) GetTask(ctx context.Context, id string) (learning.Task, error) {
	if !isUUID(id) {
		return learning.Task{}, learning.ErrTaskNotFound
	}
	var row taskRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `SELECT `+taskColumns+` FROM task WHERE id = $1`, id)
	if err != nil {
		return learning.Task{}, trapNoRowsErr(err, learning.ErrTaskNotFound, "getting task")
	}
	return row.task(), nil
}

func (repo learningRepository) QueryTasks(ctx context.Context, meetingID string) ([]learning.Task, error) {
	tasks := make([]learning.Task, 0)
	if !isUUID(meetingID) {
		return tasks, nil
	}
	var rows []taskRow
	err := sqlx.SelectContext(ctx, repo.exec, &rows,
		`SELECT `+taskColumns+` FROM task WHERE meeting_id = $1 ORDER BY seq`, meetingID)
	if err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	for _, r := range rows {
		tasks = append(tasks, r.task())
	}
	return tasks, nil
}

// Module submissions

func (repo learningRepository) CreateModuleSubmission(ctx context.Context, sub learning.ModuleSubmission) (learning.ModuleSubmission, error) {
	sub.ID = newID()
	var row moduleSubmissionRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `
		INSERT INTO module_submission (`+moduleSubmissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (module_id, student_id) DO NOTHING
		RETURNING `+moduleSubmissionColumns,
		sub.ID, sub.ModuleID, sub.StudentID, sub.TrainingUserID, sub.Answer,
		null.Float64FromPtr(sub.Score), sub.CreatedAt.UTC(), sub.UpdatedAt.UTC())
	if err != nil {
		return learning.ModuleSubmission{}, trapNoRowsErr(err, learning.ErrAlreadySubmitted, "inserting module submission")
	}
	return row.submission(), nil
}

func (repo learningRepository) GetModuleSubmission(ctx context.Context, id string) (learning.ModuleSubmission, error) {
	if !isUUID(id) {
		return learning.ModuleSubmission{}, learning.ErrModuleSubmissionNotFound
	}
	var row moduleSubmissionRow
	err := sqlx.GetContext(ctx, repo.exec, &row,
		`SELECT `+moduleSubmissionColumns+` FROM module_submission WHERE id = $1`, id)
	if err != nil {
		return learning.ModuleSubmission{}, trapNoRowsErr(err, learning.ErrModuleSubmissionNotFound, "getting module submission")
	}
	return row.submission(), nil
}

func (repo learningRepository) UpdateModuleSubmissionScore(ctx context.Context, id string, score float64, updatedAt time.Time) (learning.ModuleSubmission, error) {
	if !isUUID(id) {
		return learning.ModuleSubmission{}, learning.ErrModuleSubmissionNotFound
	}
	var row moduleSubmissionRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `
		UPDATE module_submission SET score = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+moduleSubmissionColumns,
		id, score, updatedAt.UTC())
	if err != nil {
		return learning.ModuleSubmission{}, trapNoRowsErr(err, learning.ErrModuleSubmissionNotFound, "updating module submission score")
	}
	return row.submission(), nil
}

// Quiz submissions

func (repo learningRepository) CreateQuizSubmission(ctx context.Context, sub learning.QuizSubmission) (learning.QuizSubmission, error) {
	sub.ID = newID()
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return learning.QuizSubmission{}, errors.Wrap(err, "encoding answers")
	}
	var row quizSubmissionRow
	err = sqlx.GetContext(ctx, repo.exec, &row, `
		INSERT INTO quiz_submission (`+quizSubmissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (quiz_id, student_id) DO NOTHING
		RETURNING `+quizSubmissionColumns,
		sub.ID, sub.QuizID, sub.StudentID, sub.TrainingUserID, types.JSONText(answers), sub.Score, sub.CreatedAt.UTC())
	if err != nil {
		return learning.QuizSubmission{}, trapNoRowsErr(err, learning.ErrAlreadySubmitted, "inserting quiz submission")
	}
	return row.submission()
}

func (repo learningRepository) GetQuizSubmission(ctx context.Context, quizID, studentID string) (learning.QuizSubmission, error) {
	if !isUUID(quizID) || !isUUID(studentID) {
		return learning.QuizSubmission{}, learning.ErrQuizSubmissionNotFound
	}
	var row quizSubmissionRow
	err := sqlx.GetContext(ctx, repo.exec, &row,
		`SELECT `+quizSubmissionColumns+` FROM quiz_submission WHERE quiz_id = $1 AND student_id = $2`, quizID, studentID)
	if err != nil {
		return learning.QuizSubmission{}, trapNoRowsErr(err, learning.ErrQuizSubmissionNotFound, "getting quiz submission")
	}
	return row.submission()
}

// Task submissions

func (repo learningRepository) CreateTaskSubmission(ctx context.Context, sub learning.TaskSubmission) (learning.TaskSubmission, error) {
	sub.ID = newID()
	var row taskSubmissionRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `
		INSERT INTO task_submission (`+taskSubmissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (task_id, student_id) DO NOTHING
		RETURNING `+taskSubmissionColumns,
		sub.ID, sub.TaskID, sub.StudentID, sub.TrainingUserID, sub.Answer,
		null.Float64FromPtr(sub.Score), sub.CreatedAt.UTC(), sub.UpdatedAt.UTC())
	if err != nil {
		return learning.TaskSubmission{}, trapNoRowsErr(err, learning.ErrAlreadySubmitted, "inserting task submission")
	}
	return row.submission(), nil
}

func (repo learningRepository) GetTaskSubmission(ctx context.Context, taskID, trainingUserID string) (learning.TaskSubmission, error) {
	if !isUUID(taskID) || !isUUID(trainingUserID) {
		return learning.TaskSubmission{}, learning.ErrTaskSubmissionNotFound
	}
	var row taskSubmissionRow
	err := sqlx.GetContext(ctx, repo.exec, &row,
		`SELECT `+taskSubmissionColumns+` FROM task_submission WHERE task_id = $1 AND training_user_id = $2`, taskID, trainingUserID)
	if err != nil {
		return learning.TaskSubmission{}, trapNoRowsErr(err, learning.ErrTaskSubmissionNotFound, "getting task submission")
	}
	return row.submission(), nil
}

func (repo learningRepository) UpdateTaskSubmissionScore(ctx context.Context, id string, score float64, updatedAt time.Time) (learning.TaskSubmission, error) {
	if !isUUID(id) {
		return learning.TaskSubmission{}, learning.ErrTaskSubmissionNotFound
	}
	var row taskSubmissionRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `
		UPDATE task_submission SET score = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+taskSubmissionColumns,
		id, score, updatedAt.UTC())
	if err != nil {
		return learning.TaskSubmission{}, trapNoRowsErr(err, learning.ErrTaskSubmissionNotFound, "updating task submission score")
	}
	return row.submission(), nil
}

// Aggregation

func (repo learningRepository) QueryMeetingSubmissions(ctx context.Context, meetingID, studentID string) (learning.MeetingSubmissions, error) {
	subs := learning.MeetingSubmissions{
		Modules: make([]learning.ModuleSubmission, 0),
		Quizzes: make([]learning.QuizSubmission, 0),
		Tasks:   make([]learning.TaskSubmission, 0),
	}
	if !isUUID(meetingID) || !isUUID(studentID) {
		return subs, nil
	}

	var modRows []moduleSubmissionRow
	err := sqlx.SelectContext(ctx, repo.exec, &modRows, `
		SELECT `+prefixColumns("s", moduleSubmissionColumns)+`
		FROM module_submission s JOIN module m ON m.id = s.module_id
		WHERE m.meeting_id = $1 AND s.student_id = $2
		ORDER BY s.seq`, meetingID, studentID)
	if err != nil {
		return learning.MeetingSubmissions{}, errors.Wrap(err, "querying module submissions")
	}
	for _, r := range modRows {
		subs.Modules = append(subs.Modules, r.submission())
	}

	var quizRows []quizSubmissionRow
	err = sqlx.SelectContext(ctx, repo.exec, &quizRows, `
		SELECT `+prefixColumns("s", quizSubmissionColumns)+`
		FROM quiz_submission s JOIN quiz q ON q.id = s.quiz_id
		WHERE q.meeting_id = $1 AND s.student_id = $2
		ORDER BY s.seq`, meetingID, studentID)
	if err != nil {
		return learning.MeetingSubmissions{}, errors.Wrap(err, "querying quiz submissions")
	}
	for _, r := range quizRows {
		sub, err := r.submission()
		if err != nil {
			return learning.MeetingSubmissions{}, err
		}
		subs.Quizzes = append(subs.Quizzes, sub)
	}

	var taskRows []taskSubmissionRow
	err = sqlx.SelectContext(ctx, repo.exec, &taskRows, `
		SELECT `+prefixColumns("s", taskSubmissionColumns)+`
		FROM task_submission s JOIN task t ON t.id = s.task_id
		WHERE t.meeting_id = $1 AND s.student_id = $2
		ORDER BY s.seq`, meetingID, studentID)
	if err != nil {
		return learning.MeetingSubmissions{}, errors.Wrap(err, "querying task submissions")
	}
	for _, r := range taskRows {
		subs.Tasks = append(subs.Tasks, r.submission())
	}
	return subs, nil
}
