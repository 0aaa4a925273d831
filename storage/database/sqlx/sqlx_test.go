package sqlxrepos_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/trainings/core/learning"
	"github.com/trezcool/trainings/core/training"
	"github.com/trezcool/trainings/core/user"
	"github.com/trezcool/trainings/storage/database"
	sqlxrepos "github.com/trezcool/trainings/storage/database/sqlx"
	"github.com/trezcool/trainings/testutil"
)

// openTx connects to DATABASE_URL, applies the migrations and returns a transaction rolled back on cleanup.
func openTx(t *testing.T) *sqlx.Tx {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	tx, err := db.Beginx()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

func TestRepositories_conflicts(t *testing.T) {
	ctx := context.Background()
	tx := openTx(t)
	usrRepo := sqlxrepos.NewUserRepository(tx)
	trnRepo := sqlxrepos.NewTrainingRepository(tx)
	lrnRepo := sqlxrepos.NewLearningRepository(tx)

	suffix := uuid.New().String()
	instructor := testutil.CreateUser(t, usrRepo, "Instructor", "instructor-"+suffix+"@test.cd", user.RoleInstructor)
	student := testutil.CreateUser(t, usrRepo, "Student", "student-"+suffix+"@test.cd", user.RoleStudent)
	trn := testutil.CreateTraining(t, trnRepo, "Go", instructor.ID)
	mtg := testutil.CreateMeeting(t, trnRepo, trn.ID, "Week 1")
	tu := testutil.Enroll(t, trnRepo, trn.ID, student.ID)
	quiz := testutil.CreateQuiz(t, lrnRepo, mtg.ID, 100, 60, 40)

	submitQuiz := func() error {
		_, err := lrnRepo.CreateQuizSubmission(ctx, learning.QuizSubmission{
			QuizID:         quiz.ID,
			StudentID:      student.ID,
			TrainingUserID: tu.ID,
			Answers:        []learning.QuizAnswer{{QuestionIndex: 0, SelectedAnswerIndex: testutil.IntPtr(0)}},
			Score:          60,
			CreatedAt:      time.Now().UTC(),
		})
		return err
	}
	setStatus := func(from, to training.Status) func() error {
		return func() error {
			_, err := trnRepo.UpdateTrainingUserStatus(ctx, tu.ID, from, to, time.Now().UTC())
			return err
		}
	}

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name: "duplicate enrollment",
			run: func() error {
				_, err := trnRepo.CreateTrainingUser(ctx, training.TrainingUser{
					TrainingID: trn.ID,
					UserID:     student.ID,
					Status:     training.StatusEnrolled,
					CreatedAt:  time.Now().UTC(),
					UpdatedAt:  time.Now().UTC(),
				})
				return err
			},
			wantErr: training.ErrAlreadyEnrolled,
		},
		{name: "first quiz submission", run: submitQuiz},
		{name: "duplicate quiz submission", run: submitQuiz, wantErr: learning.ErrAlreadySubmitted},
		{name: "status from current", run: setStatus(training.StatusEnrolled, training.StatusCompleted)},
		{name: "status from stale", run: setStatus(training.StatusEnrolled, training.StatusDropped), wantErr: training.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); errors.Cause(err) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	got, err := trnRepo.GetTrainingUser(ctx, tu.ID)
	require.NoError(t, err)
	require.Equal(t, training.StatusCompleted, got.Status)
}
