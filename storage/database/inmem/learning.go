package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/trainings/core/learning"
)

type learningRepository struct {
	db *DB
}

var _ learning.Repository = (*learningRepository)(nil) // interface compliance check

func NewLearningRepository(db *DB) learning.Repository {
	return &learningRepository{db: db}
}

func copyQuiz(quiz *learning.Quiz) learning.Quiz {
	q := *quiz
	q.Questions = make([]learning.Question, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		question.Options = append([]string(nil), question.Options...)
		q.Questions = append(q.Questions, question)
	}
	return q
}

func copyModuleSubmission(sub *learning.ModuleSubmission) learning.ModuleSubmission {
	s := *sub
	s.Score = copyFloat(sub.Score)
	return s
}

func copyQuizSubmission(sub *learning.QuizSubmission) learning.QuizSubmission {
	s := *sub
	s.Answers = make([]learning.QuizAnswer, 0, len(sub.Answers))
	for _, ans := range sub.Answers {
		if ans.SelectedAnswerIndex != nil {
			sel := *ans.SelectedAnswerIndex
			ans.SelectedAnswerIndex = &sel
		}
		s.Answers = append(s.Answers, ans)
	}
	return s
}

func copyTaskSubmission(sub *learning.TaskSubmission) learning.TaskSubmission {
	s := *sub
	s.Score = copyFloat(sub.Score)
	return s
}

// Modules

func (repo *learningRepository) CreateModule(_ context.Context, mod learning.Module) (learning.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	mod.ID = newID()
	row := mod
	repo.db.modules = append(repo.db.modules, &row)
	return mod, nil
}

func (repo *learningRepository) getModule(id string) *learning.Module {
	for _, mod := range repo.db.modules {
		if mod.ID == id {
			return mod
		}
	}
	return nil
}

func (repo *learningRepository) GetModule(_ context.Context, id string) (learning.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if mod := repo.getModule(id); mod != nil {
		return *mod, nil
	}
	return learning.Module{}, learning.ErrModuleNotFound
}

func (repo *learningRepository) QueryModules(_ context.Context, meetingID string) ([]learning.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	mods := make([]learning.Module, 0)
	for _, mod := range repo.db.modules {
		if mod.MeetingID == meetingID {
			mods = append(mods, *mod)
		}
	}
	return mods, nil
}

// Quizzes

func (repo *learningRepository) CreateQuiz(_ context.Context, quiz learning.Quiz) (learning.Quiz, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	quiz.ID = newID()
	row := copyQuiz(&quiz)
	repo.db.quizzes = append(repo.db.quizzes, &row)
	return quiz, nil
}

func (repo *learningRepository) getQuiz(id string) *learning.Quiz {
	for _, quiz := range repo.db.quizzes {
		if quiz.ID == id {
			return quiz
		}
	}
	return nil
}

func (repo *learningRepository) GetQuiz(_ context.Context, id string) (learning.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if quiz := repo.getQuiz(id); quiz != nil {
		return copyQuiz(quiz), nil
	}
	return learning.Quiz{}, learning.ErrQuizNotFound
}

func (repo *learningRepository) QueryQuizzes(_ context.Context, meetingID string) ([]learning.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	quizzes := make([]learning.Quiz, 0)
	for _, quiz := range repo.db.quizzes {
		if quiz.MeetingID == meetingID {
			quizzes = append(quizzes, copyQuiz(quiz))
		}
	}
	return quizzes, nil
}

// Tasks

func (repo *learningRepository) CreateTask(_ context.Context, task learning.Task) (learning.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	task.ID = newID()
	row := task
	repo.db.tasks = append(repo.db.tasks, &row)
	return task, nil
}

func (repo *learningRepository) getTask(id string) *learning.Task {
	for _, task := range repo.db.tasks {
		if task.ID == id {
			return task
		}
	}
	return nil
}

func (repo *learningRepository) GetTask(_ context.Context, id string) (learning.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if task := repo.getTask(id); task != nil {
		return *task, nil
	}
	return learning.Task{}, learning.ErrTaskNotFound
}

func (repo *learningRepository) QueryTasks(_ context.Context, meetingID string) ([]learning.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tasks := make([]learning.Task, 0)
	for _, task := range repo.db.tasks {
		if task.MeetingID == meetingID {
			tasks = append(tasks, *task)
		}
	}
	return tasks, nil
}

// Module submissions

func (repo *learningRepository) CreateModuleSubmission(_ context.Context, sub learning.ModuleSubmission) (learning.ModuleSubmission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, row := range repo.db.moduleSubmissions {
		if row.ModuleID == sub.ModuleID && row.StudentID == sub.StudentID {
			return learning.ModuleSubmission{}, learning.ErrAlreadySubmitted
		}
	}
	sub.ID = newID()
	row := copyModuleSubmission(&sub)
	repo.db.moduleSubmissions = append(repo.db.moduleSubmissions, &row)
	return sub, nil
}

func (repo *learningRepository) getModuleSubmission(id string) *learning.ModuleSubmission {
	for _, sub := range repo.db.moduleSubmissions {
		if sub.ID == id {
			return sub
		}
	}
	return nil
}

func (repo *learningRepository) GetModuleSubmission(_ context.Context, id string) (learning.ModuleSubmission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub := repo.getModuleSubmission(id); sub != nil {
		return copyModuleSubmission(sub), nil
	}
	return learning.ModuleSubmission{}, learning.ErrModuleSubmissionNotFound
}

func (repo *learningRepository) UpdateModuleSubmissionScore(_ context.Context, id string, score float64, updatedAt time.Time) (learning.ModuleSubmission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub := repo.getModuleSubmission(id)
	if sub == nil {
		return learning.ModuleSubmission{}, learning.ErrModuleSubmissionNotFound
	}
	sub.Score = &score
	sub.UpdatedAt = updatedAt
	return copyModuleSubmission(sub), nil
}

// Quiz submissions

func (repo *learningRepository) CreateQuizSubmission(_ context.Context, sub learning.QuizSubmission) (learning.QuizSubmission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, row := range repo.db.quizSubmissions {
		if row.QuizID == sub.QuizID && row.StudentID == sub.StudentID {
			return learning.QuizSubmission{}, learning.ErrAlreadySubmitted
		}
	}
	sub.ID = newID()
	row := copyQuizSubmission(&sub)
	repo.db.quizSubmissions = append(repo.db.quizSubmissions, &row)
	return sub, nil
}

func (repo *learningRepository) GetQuizSubmission(_ context.Context, quizID, studentID string) (learning.QuizSubmission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sub := range repo.db.quizSubmissions {
		if sub.QuizID == quizID && sub.StudentID == studentID {
			return copyQuizSubmission(sub), nil
		}
	}
	return learning.QuizSubmission{}, learning.ErrQuizSubmissionNotFound
}

// Task submissions

func (repo *learningRepository) CreateTaskSubmission(_ context.Context, sub learning.TaskSubmission) (learning.TaskSubmission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, row := range repo.db.taskSubmissions {
		if row.TaskID == sub.TaskID && row.StudentID == sub.StudentID {
			return learning.TaskSubmission{}, learning.ErrAlreadySubmitted
		}
	}
	sub.ID = newID()
	row := copyTaskSubmission(&sub)
	repo.db.taskSubmissions = append(repo.db.taskSubmissions, &row)
	return sub, nil
}

func (repo *learningRepository) GetTaskSubmission(_ context.Context, taskID, trainingUserID string) (learning.TaskSubmission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sub := range repo.db.taskSubmissions {
		if sub.TaskID == taskID && sub.TrainingUserID == trainingUserID {
			return copyTaskSubmission(sub), nil
		}
	}
	return learning.TaskSubmission{}, learning.ErrTaskSubmissionNotFound
}

func (repo *learningRepository) UpdateTaskSubmissionScore(_ context.Context, id string, score float64, updatedAt time.Time) (learning.TaskSubmission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, sub := range repo.db.taskSubmissions {
		if sub.ID == id {
			sub.Score = &score
			sub.UpdatedAt = updatedAt
			return copyTaskSubmission(sub), nil
		}
	}
	return learning.TaskSubmission{}, learning.ErrTaskSubmissionNotFound
}

// Aggregation

func (repo *learningRepository) QueryMeetingSubmissions(_ context.Context, meetingID, studentID string) (learning.MeetingSubmissions, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := learning.MeetingSubmissions{
		Modules: make([]learning.ModuleSubmission, 0),
		Quizzes: make([]learning.QuizSubmission, 0),
		Tasks:   make([]learning.TaskSubmission, 0),
	}
	for _, sub := range repo.db.moduleSubmissions {
		if mod := repo.getModule(sub.ModuleID); sub.StudentID == studentID && mod != nil && mod.MeetingID == meetingID {
			subs.Modules = append(subs.Modules, copyModuleSubmission(sub))
		}
	}
	for _, sub := range repo.db.quizSubmissions {
		if quiz := repo.getQuiz(sub.QuizID); sub.StudentID == studentID && quiz != nil && quiz.MeetingID == meetingID {
			subs.Quizzes = append(subs.Quizzes, copyQuizSubmission(sub))
		}
	}
	for _, sub := range repo.db.taskSubmissions {
		if task := repo.getTask(sub.TaskID); sub.StudentID == studentID && task != nil && task.MeetingID == meetingID {
			subs.Tasks = append(subs.Tasks, copyTaskSubmission(sub))
		}
	}
	return subs, nil
}
