package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/trainings/core/learning"
	"github.com/trezcool/trainings/core/training"
	"github.com/trezcool/trainings/core/user"
)

// DB is an in-memory store. Rows are kept in insertion order.
// A single lock guards every table so that check-and-insert operations are atomic.
type DB struct {
	sync.RWMutex

	users         []*user.User
	trainings     []*training.Training
	meetings      []*training.Meeting
	trainingUsers []*training.TrainingUser

	modules           []*learning.Module
	quizzes           []*learning.Quiz
	tasks             []*learning.Task
	moduleSubmissions []*learning.ModuleSubmission
	quizSubmissions   []*learning.QuizSubmission
	taskSubmissions   []*learning.TaskSubmission
}

func Open() *DB {
	return &DB{}
}

// Flush empties every table.
func (db *DB) Flush() {
	db.Lock()
	defer db.Unlock()
	db.users = nil
	db.trainings = nil
	db.meetings = nil
	db.trainingUsers = nil
	db.modules = nil
	db.quizzes = nil
	db.tasks = nil
	db.moduleSubmissions = nil
	db.quizSubmissions = nil
	db.taskSubmissions = nil
}

func newID() string {
	return uuid.New().String()
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
