// Package testutil provides an in-memory application stack and fixtures for tests.
package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/learning"
	"github.com/trezcool/trainings/core/score"
	"github.com/trezcool/trainings/core/training"
	"github.com/trezcool/trainings/core/user"
	"github.com/trezcool/trainings/services/email"
	"github.com/trezcool/trainings/services/logger"
	"github.com/trezcool/trainings/storage/database/inmem"
)

// Env wires the services on top of an in-memory store.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	MailSvc    *emailsvc.ConsoleServiceMock
	DB         *inmemdb.DB
	UsrRepo    user.Repository
	TrnRepo    training.Repository
	LrnRepo    learning.Repository
	UsrSvc     *user.Service
	TrnSvc     *training.Service
	LrnSvc     *learning.Service
	ScoreAggr  *score.Aggregator
}

func NewEnv() *Env {
	conf := core.NewConfig()
	conf.TestMode = true

	logger := NewLogger(conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	learning.InitValidators(validate, translator)

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	trnRepo := inmemdb.NewTrainingRepository(db)
	lrnRepo := inmemdb.NewLearningRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(usrRepo)
	trnSvc := training.NewService(trnRepo, usrSvc, mailSvc, logger)
	lrnSvc := learning.NewService(lrnRepo, trnSvc)

	return &Env{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		MailSvc:    mailSvc,
		DB:         db,
		UsrRepo:    usrRepo,
		TrnRepo:    trnRepo,
		LrnRepo:    lrnRepo,
		UsrSvc:     usrSvc,
		TrnSvc:     trnSvc,
		LrnSvc:     lrnSvc,
		ScoreAggr:  score.NewAggregator(trnSvc, lrnSvc),
	}
}

// Reset empties the store and the sent emails.
func (env *Env) Reset() {
	env.DB.Flush()
	env.MailSvc.Reset()
}

// NewLogger returns a silent logger with Rollbar reporting disabled.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

func CreateUser(t *testing.T, repo user.Repository, name, email string, roles ...string) user.User {
	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      name,
		Email:     email,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateTraining(t *testing.T, repo training.Repository, title, instructorID string) training.Training {
	now := time.Now().UTC()
	trn, err := repo.CreateTraining(context.Background(), training.Training{
		Title:        title,
		InstructorID: instructorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("createTraining() failed: %v", err)
	}
	return trn
}

func CreateMeeting(t *testing.T, repo training.Repository, trainingID, title string) training.Meeting {
	mtg, err := repo.CreateMeeting(context.Background(), training.Meeting{
		TrainingID: trainingID,
		Title:      title,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createMeeting() failed: %v", err)
	}
	return mtg
}

func Enroll(t *testing.T, repo training.Repository, trainingID, userID string, status ...training.Status) training.TrainingUser {
	st := training.StatusEnrolled
	if len(status) > 0 {
		st = status[0]
	}
	now := time.Now().UTC()
	tu, err := repo.CreateTrainingUser(context.Background(), training.TrainingUser{
		TrainingID: trainingID,
		UserID:     userID,
		Status:     st,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
	return tu
}

func CreateModule(t *testing.T, repo learning.Repository, meetingID, title string, maxScore float64) learning.Module {
	mod, err := repo.CreateModule(context.Background(), learning.Module{
		MeetingID: meetingID,
		Title:     title,
		Content:   "Read chapter 1.",
		MaxScore:  maxScore,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createModule() failed: %v", err)
	}
	return mod
}

// CreateQuiz creates a quiz with one question per weight. Every question has the options
// "a", "b", "c" and the correct answer is "a" (index 0).
func CreateQuiz(t *testing.T, repo learning.Repository, meetingID string, quizScore float64, weights ...float64) learning.Quiz {
	questions := make([]learning.Question, 0, len(weights))
	for _, w := range weights {
		questions = append(questions, learning.Question{
			Question:           "Pick a",
			Options:            []string{"a", "b", "c"},
			CorrectAnswerIndex: 0,
			Score:              w,
		})
	}
	quiz, err := repo.CreateQuiz(context.Background(), learning.Quiz{
		MeetingID: meetingID,
		Title:     "Quiz",
		QuizScore: quizScore,
		Questions: questions,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createQuiz() failed: %v", err)
	}
	return quiz
}

func CreateTask(t *testing.T, repo learning.Repository, meetingID, title string) learning.Task {
	task, err := repo.CreateTask(context.Background(), learning.Task{
		MeetingID:    meetingID,
		Title:        title,
		TaskQuestion: "Upload your report.",
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createTask() failed: %v", err)
	}
	return task
}

func IntPtr(i int) *int           { return &i }
func FloatPtr(f float64) *float64 { return &f }
