package training_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/training"
	"github.com/trezcool/trainings/core/user"
	"github.com/trezcool/trainings/testutil"
)

func TestService_Enroll(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv()
	svc := env.TrnSvc

	instructor := testutil.CreateUser(t, env.UsrRepo, "Instructor", "instructor@test.cd", user.RoleInstructor)
	student := testutil.CreateUser(t, env.UsrRepo, "Student", "student@test.cd", user.RoleStudent)
	trn := testutil.CreateTraining(t, env.TrnRepo, "Go", instructor.ID)

	tu, err := svc.Enroll(ctx, trn.ID, training.NewEnrollment{UserID: student.ID})
	require.NoError(t, err)
	assert.Equal(t, training.StatusEnrolled, tu.Status)
	assert.Equal(t, trn.ID, tu.TrainingID)
	assert.Equal(t, student.ID, tu.UserID)

	tests := []struct {
		name       string
		trainingID string
		ne         training.NewEnrollment
		wantErr    error
	}{
		{name: "already enrolled", trainingID: trn.ID, ne: training.NewEnrollment{UserID: student.ID}, wantErr: training.ErrAlreadyEnrolled},
		{
			name: "already enrolled with another status", trainingID: trn.ID,
			ne: training.NewEnrollment{UserID: student.ID, Status: training.StatusCompleted}, wantErr: training.ErrAlreadyEnrolled,
		},
		{name: "unknown training", trainingID: "unknown", ne: training.NewEnrollment{UserID: student.ID}, wantErr: training.ErrNotFound},
		{name: "unknown user", trainingID: trn.ID, ne: training.NewEnrollment{UserID: "unknown"}, wantErr: user.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Enroll(ctx, tt.trainingID, tt.ne); errors.Cause(err) != tt.wantErr {
				t.Errorf("Enroll() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("already enrolled is already_exists", func(t *testing.T) {
		_, err := svc.Enroll(ctx, trn.ID, training.NewEnrollment{UserID: student.ID})
		assert.True(t, core.HasCode(err, core.CodeAlreadyExists))
	})

	tus, err := svc.QueryEnrollments(ctx, trn.ID)
	require.NoError(t, err)
	assert.Equal(t, []training.TrainingUser{tu}, tus)
}

func TestService_Enroll_concurrent(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv()
	instructor := testutil.CreateUser(t, env.UsrRepo, "Instructor", "instructor@test.cd", user.RoleInstructor)
	student := testutil.CreateUser(t, env.UsrRepo, "Student", "student@test.cd", user.RoleStudent)
	trn := testutil.CreateTraining(t, env.TrnRepo, "Go", instructor.ID)

	const n = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		enrolled int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.TrnSvc.Enroll(ctx, trn.ID, training.NewEnrollment{UserID: student.ID}); err == nil {
				mu.Lock()
				enrolled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, enrolled)
}

func TestService_SetStatus(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv()
	svc := env.TrnSvc

	instructor := testutil.CreateUser(t, env.UsrRepo, "Instructor", "instructor@test.cd", user.RoleInstructor)
	trn := testutil.CreateTraining(t, env.TrnRepo, "Go", instructor.ID)
	newTU := func(name string, status training.Status) training.TrainingUser {
		usr := testutil.CreateUser(t, env.UsrRepo, name, strings.ToLower(name)+"@test.cd", user.RoleStudent)
		return testutil.Enroll(t, env.TrnRepo, trn.ID, usr.ID, status)
	}

	tests := []struct {
		name       string
		from       training.Status
		to         training.Status
		want       training.Status
		wantErr    error
		wantEmails int
	}{
		{name: "enrolled to enrolled", from: training.StatusEnrolled, to: training.StatusEnrolled, want: training.StatusEnrolled},
		{name: "enrolled to completed", from: training.StatusEnrolled, to: training.StatusCompleted, want: training.StatusCompleted, wantEmails: 1},
		{name: "enrolled to dropped", from: training.StatusEnrolled, to: training.StatusDropped, want: training.StatusDropped, wantEmails: 1},
		{name: "completed to enrolled", from: training.StatusCompleted, to: training.StatusEnrolled, wantErr: training.ErrInvalidTransition},
		{name: "completed to completed", from: training.StatusCompleted, to: training.StatusCompleted, wantErr: training.ErrInvalidTransition},
		{name: "completed to dropped", from: training.StatusCompleted, to: training.StatusDropped, wantErr: training.ErrInvalidTransition},
		{name: "dropped to enrolled", from: training.StatusDropped, to: training.StatusEnrolled, wantErr: training.ErrInvalidTransition},
		{name: "dropped to completed", from: training.StatusDropped, to: training.StatusCompleted, wantErr: training.ErrInvalidTransition},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.MailSvc.Reset()
			tu := newTU("Student"+string(rune('A'+i)), tt.from)

			got, err := svc.SetStatus(ctx, tu.ID, tt.to)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("SetStatus() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				assert.Equal(t, tt.want, got.Status)
			}

			stored, err := svc.GetEnrollment(ctx, tu.ID)
			require.NoError(t, err)
			if tt.wantErr == nil {
				assert.Equal(t, tt.want, stored.Status)
			} else {
				assert.Equal(t, tt.from, stored.Status)
			}
			assert.Len(t, env.MailSvc.SentMessages(), tt.wantEmails)
		})
	}

	t.Run("unknown training user", func(t *testing.T) {
		if _, err := svc.SetStatus(ctx, "unknown", training.StatusCompleted); errors.Cause(err) != training.ErrTrainingUserNotFound {
			t.Errorf("SetStatus() error = %v, wantErr %v", err, training.ErrTrainingUserNotFound)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		tu := newTU("Invalid", training.StatusEnrolled)
		_, err := svc.SetStatus(ctx, tu.ID, training.Status("paused"))
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok, "SetStatus() error = %v, want a validation error", err)
	})

	t.Run("notification email", func(t *testing.T) {
		env.MailSvc.Reset()
		tu := newTU("Notified", training.StatusEnrolled)
		_, err := svc.SetStatus(ctx, tu.ID, training.StatusCompleted)
		require.NoError(t, err)

		msgs := env.MailSvc.SentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "notified@test.cd", msgs[0].To[0].Address)
		assert.Contains(t, msgs[0].TextContent, `"Go" is now completed`)
		assert.Contains(t, msgs[0].HTMLContent, "Notified")
	})
}

func TestService_SetStatus_concurrent(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv()
	instructor := testutil.CreateUser(t, env.UsrRepo, "Instructor", "instructor@test.cd", user.RoleInstructor)
	student := testutil.CreateUser(t, env.UsrRepo, "Student", "student@test.cd", user.RoleStudent)
	trn := testutil.CreateTraining(t, env.TrnRepo, "Go", instructor.ID)
	tu := testutil.Enroll(t, env.TrnRepo, trn.ID, student.ID)

	var (
		wg        sync.WaitGroup
		completed error
		dropped   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, completed = env.TrnSvc.SetStatus(ctx, tu.ID, training.StatusCompleted)
	}()
	go func() {
		defer wg.Done()
		_, dropped = env.TrnSvc.SetStatus(ctx, tu.ID, training.StatusDropped)
	}()
	wg.Wait()

	// exactly one transition wins
	if (completed == nil) == (dropped == nil) {
		t.Fatalf("SetStatus() completed error = %v, dropped error = %v; want exactly one error", completed, dropped)
	}
	for _, err := range []error{completed, dropped} {
		if err != nil {
			assert.Equal(t, training.ErrInvalidTransition, errors.Cause(err))
		}
	}
}

func TestService_trainings(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv()
	svc := env.TrnSvc

	instructor := testutil.CreateUser(t, env.UsrRepo, "Instructor", "instructor@test.cd", user.RoleInstructor)
	student := testutil.CreateUser(t, env.UsrRepo, "Student", "student@test.cd", user.RoleStudent)

	t.Run("create", func(t *testing.T) {
		trn, err := svc.CreateTraining(ctx, training.NewTraining{Title: "Go", Description: "Basics", InstructorID: instructor.ID})
		require.NoError(t, err)
		assert.Equal(t, instructor.ID, trn.InstructorID)

		desc := "Advanced"
		updated, err := svc.UpdateTraining(ctx, trn.ID, training.UpdateTraining{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, "Go", updated.Title)
		assert.Equal(t, "Advanced", updated.Description)
	})

	t.Run("student cannot be the instructor", func(t *testing.T) {
		_, err := svc.CreateTraining(ctx, training.NewTraining{Title: "Go", InstructorID: student.ID})
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok, "CreateTraining() error = %v, want a validation error", err)
		assert.Equal(t, "instructor_id", verr.Fields[0].Field)
	})

	t.Run("meetings in creation order", func(t *testing.T) {
		trn := testutil.CreateTraining(t, env.TrnRepo, "Meetings", instructor.ID)
		titles := []string{"Week 1", "Week 2", "Week 3"}
		for _, title := range titles {
			_, err := svc.CreateMeeting(ctx, trn.ID, training.NewMeeting{Title: title})
			require.NoError(t, err)
		}
		meetings, err := svc.QueryMeetings(ctx, trn.ID)
		require.NoError(t, err)
		got := make([]string, 0, len(meetings))
		for _, mtg := range meetings {
			got = append(got, mtg.Title)
		}
		assert.Equal(t, titles, got)

		if _, err = svc.CreateMeeting(ctx, "unknown", training.NewMeeting{Title: "Week 1"}); errors.Cause(err) != training.ErrNotFound {
			t.Errorf("CreateMeeting() error = %v, wantErr %v", err, training.ErrNotFound)
		}
	})
}
