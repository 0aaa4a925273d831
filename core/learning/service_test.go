package learning_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/learning"
	"github.com/trezcool/trainings/core/training"
	"github.com/trezcool/trainings/core/user"
	"github.com/trezcool/trainings/testutil"
)

type fixtures struct {
	env        *testutil.Env
	instructor user.User
	student    user.User
	other      user.User
	trn        training.Training
	otherTrn   training.Training
	mtg        training.Meeting
	otherMtg   training.Meeting
	tu         training.TrainingUser
	otherTU    training.TrainingUser
}

func setup(t *testing.T) fixtures {
	env := testutil.NewEnv()
	f := fixtures{env: env}
	f.instructor = testutil.CreateUser(t, env.UsrRepo, "Instructor", "instructor@test.cd", user.RoleInstructor)
	f.student = testutil.CreateUser(t, env.UsrRepo, "Student", "student@test.cd", user.RoleStudent)
	f.other = testutil.CreateUser(t, env.UsrRepo, "Other", "other@test.cd", user.RoleStudent)
	f.trn = testutil.CreateTraining(t, env.TrnRepo, "Go", f.instructor.ID)
	f.otherTrn = testutil.CreateTraining(t, env.TrnRepo, "Rust", f.instructor.ID)
	f.mtg = testutil.CreateMeeting(t, env.TrnRepo, f.trn.ID, "Week 1")
	f.otherMtg = testutil.CreateMeeting(t, env.TrnRepo, f.otherTrn.ID, "Week 1")
	f.tu = testutil.Enroll(t, env.TrnRepo, f.trn.ID, f.student.ID)
	f.otherTU = testutil.Enroll(t, env.TrnRepo, f.otherTrn.ID, f.student.ID)
	return f
}

func TestService_SubmitQuiz(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	svc := f.env.LrnSvc
	quiz := testutil.CreateQuiz(t, f.env.LrnRepo, f.mtg.ID, 100, 60, 40)
	otherUserTU := testutil.Enroll(t, f.env.TrnRepo, f.trn.ID, f.other.ID)

	malformed := []learning.QuizAnswer{
		{QuestionIndex: 0, SelectedAnswerIndex: testutil.IntPtr(0)},
		{QuestionIndex: 1, SelectedAnswerIndex: testutil.IntPtr(5)},
	}
	t.Run("malformed answer stores nothing", func(t *testing.T) {
		_, err := svc.SubmitQuiz(ctx, quiz.ID, f.student.ID, f.tu.ID, malformed)
		if errors.Cause(err) != learning.ErrMalformedAnswer {
			t.Fatalf("SubmitQuiz() error = %v, wantErr %v", err, learning.ErrMalformedAnswer)
		}
		if _, err = svc.GetQuizSubmission(ctx, quiz.ID, f.student.ID); errors.Cause(err) != learning.ErrQuizSubmissionNotFound {
			t.Errorf("GetQuizSubmission() error = %v, wantErr %v", err, learning.ErrQuizSubmissionNotFound)
		}
	})

	tests := []struct {
		name           string
		quizID         string
		studentID      string
		trainingUserID string
		wantErr        error
	}{
		{name: "unknown quiz", quizID: "unknown", studentID: f.student.ID, trainingUserID: f.tu.ID, wantErr: learning.ErrQuizNotFound},
		{name: "unknown training user", quizID: quiz.ID, studentID: f.student.ID, trainingUserID: "unknown", wantErr: training.ErrTrainingUserNotFound},
		{name: "training user of another training", quizID: quiz.ID, studentID: f.student.ID, trainingUserID: f.otherTU.ID, wantErr: learning.ErrCrossTraining},
		{name: "training user of another student", quizID: quiz.ID, studentID: f.student.ID, trainingUserID: otherUserTU.ID, wantErr: learning.ErrCrossTraining},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := []learning.QuizAnswer{{QuestionIndex: 0, SelectedAnswerIndex: testutil.IntPtr(0)}}
			if _, err := svc.SubmitQuiz(ctx, tt.quizID, tt.studentID, tt.trainingUserID, answers); errors.Cause(err) != tt.wantErr {
				t.Errorf("SubmitQuiz() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("graded once", func(t *testing.T) {
		answers := []learning.QuizAnswer{
			{QuestionIndex: 0, SelectedAnswerIndex: testutil.IntPtr(0)},
			{QuestionIndex: 1, SelectedAnswerIndex: testutil.IntPtr(1)},
		}
		sub, err := svc.SubmitQuiz(ctx, quiz.ID, f.student.ID, f.tu.ID, answers)
		require.NoError(t, err)
		assert.Equal(t, 60.0, sub.Score)
		assert.Equal(t, f.tu.ID, sub.TrainingUserID)

		// a better second attempt is rejected
		better := []learning.QuizAnswer{
			{QuestionIndex: 0, SelectedAnswerIndex: testutil.IntPtr(0)},
			{QuestionIndex: 1, SelectedAnswerIndex: testutil.IntPtr(0)},
		}
		_, err = svc.SubmitQuiz(ctx, quiz.ID, f.student.ID, f.tu.ID, better)
		if errors.Cause(err) != learning.ErrAlreadySubmitted {
			t.Fatalf("SubmitQuiz() error = %v, wantErr %v", err, learning.ErrAlreadySubmitted)
		}
		assert.True(t, core.HasCode(err, core.CodeAlreadyExists))

		stored, err := svc.GetQuizSubmission(ctx, quiz.ID, f.student.ID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, stored.ID)
		assert.Equal(t, 60.0, stored.Score)
	})
}

func TestService_SubmitQuiz_concurrent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	quiz := testutil.CreateQuiz(t, f.env.LrnRepo, f.mtg.ID, 100, 60, 40)
	answers := []learning.QuizAnswer{
		{QuestionIndex: 0, SelectedAnswerIndex: testutil.IntPtr(0)},
		{QuestionIndex: 1, SelectedAnswerIndex: testutil.IntPtr(0)},
	}

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		submitted int
		rejected  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.env.LrnSvc.SubmitQuiz(ctx, quiz.ID, f.student.ID, f.tu.ID, answers)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				submitted++
			case errors.Cause(err) == learning.ErrAlreadySubmitted:
				rejected++
			default:
				t.Errorf("SubmitQuiz() error = %v, wantErr %v", err, learning.ErrAlreadySubmitted)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, submitted)
	assert.Equal(t, n-1, rejected)

	stored, err := f.env.LrnSvc.GetQuizSubmission(ctx, quiz.ID, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Score)

	subs, err := f.env.LrnSvc.MeetingSubmissions(ctx, f.mtg.ID, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, subs.Quizzes, 1)
}

func TestService_GradeTask(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	svc := f.env.LrnSvc
	task := testutil.CreateTask(t, f.env.LrnRepo, f.mtg.ID, "Report")
	otherTask := testutil.CreateTask(t, f.env.LrnRepo, f.mtg.ID, "Slides")

	sub, err := svc.SubmitTask(ctx, task.ID, f.student.ID, learning.NewTaskSubmission{TrainingUserID: f.tu.ID, Answer: "uploads/report.pdf"})
	require.NoError(t, err)
	assert.Nil(t, sub.Score)

	tests := []struct {
		name           string
		taskID         string
		trainingUserID string
		score          float64
		wantErr        error
	}{
		{name: "score above 100", taskID: task.ID, trainingUserID: f.tu.ID, score: 150, wantErr: learning.ErrScoreOutOfRange},
		{name: "negative score", taskID: task.ID, trainingUserID: f.tu.ID, score: -1, wantErr: learning.ErrScoreOutOfRange},
		{name: "unknown task", taskID: "unknown", trainingUserID: f.tu.ID, score: 50, wantErr: learning.ErrTaskNotFound},
		{name: "unknown training user", taskID: task.ID, trainingUserID: "unknown", score: 50, wantErr: training.ErrTrainingUserNotFound},
		{name: "training user of another training", taskID: task.ID, trainingUserID: f.otherTU.ID, score: 50, wantErr: learning.ErrCrossTraining},
		{name: "no submission", taskID: otherTask.ID, trainingUserID: f.tu.ID, score: 50, wantErr: learning.ErrTaskSubmissionNotFound},
		{name: "graded", taskID: task.ID, trainingUserID: f.tu.ID, score: 80},
		{name: "regraded", taskID: task.ID, trainingUserID: f.tu.ID, score: 100},
		{name: "out of range keeps the last grade", taskID: task.ID, trainingUserID: f.tu.ID, score: 150, wantErr: learning.ErrScoreOutOfRange},
	}
	lastScore := (*float64)(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GradeTask(ctx, tt.taskID, tt.trainingUserID, tt.score)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("GradeTask() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				require.NotNil(t, got.Score)
				assert.Equal(t, tt.score, *got.Score)
				lastScore = testutil.FloatPtr(tt.score)
			}

			stored, err := f.env.LrnRepo.GetTaskSubmission(ctx, task.ID, f.tu.ID)
			require.NoError(t, err)
			assert.Equal(t, lastScore, stored.Score)
		})
	}
}

func TestService_GradeModule(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	svc := f.env.LrnSvc
	capped := testutil.CreateModule(t, f.env.LrnRepo, f.mtg.ID, "Capped", 10)
	unbounded := testutil.CreateModule(t, f.env.LrnRepo, f.mtg.ID, "Unbounded", 0)

	cappedSub, err := svc.SubmitModuleAnswer(ctx, capped.ID, f.student.ID, learning.NewModuleSubmission{TrainingUserID: f.tu.ID, Answer: "42"})
	require.NoError(t, err)
	unboundedSub, err := svc.SubmitModuleAnswer(ctx, unbounded.ID, f.student.ID, learning.NewModuleSubmission{TrainingUserID: f.tu.ID, Answer: "42"})
	require.NoError(t, err)

	// stored against an enrollment in another training
	mismatched := testutil.CreateModule(t, f.env.LrnRepo, f.mtg.ID, "Mismatched", 10)
	now := time.Now().UTC()
	mismatchedSub, err := f.env.LrnRepo.CreateModuleSubmission(ctx, learning.ModuleSubmission{
		ModuleID:       mismatched.ID,
		StudentID:      f.student.ID,
		TrainingUserID: f.otherTU.ID,
		Answer:         "42",
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)

	tests := []struct {
		name         string
		submissionID string
		score        float64
		wantErr      error
	}{
		{name: "unknown submission", submissionID: "unknown", score: 5, wantErr: learning.ErrModuleSubmissionNotFound},
		{name: "training user of another training", submissionID: mismatchedSub.ID, score: 5, wantErr: learning.ErrCrossTraining},
		{name: "negative score", submissionID: cappedSub.ID, score: -1, wantErr: learning.ErrScoreOutOfRange},
		{name: "above max score", submissionID: cappedSub.ID, score: 10.5, wantErr: learning.ErrScoreOutOfRange},
		{name: "max score", submissionID: cappedSub.ID, score: 10},
		{name: "unbounded", submissionID: unboundedSub.ID, score: 1000},
		{name: "unbounded negative", submissionID: unboundedSub.ID, score: -5, wantErr: learning.ErrScoreOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GradeModule(ctx, tt.submissionID, tt.score)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("GradeModule() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				require.NotNil(t, got.Score)
				assert.Equal(t, tt.score, *got.Score)
			}
		})
	}

	stored, err := svc.GetModuleSubmission(ctx, cappedSub.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Score)
	assert.Equal(t, 10.0, *stored.Score)

	stored, err = svc.GetModuleSubmission(ctx, mismatchedSub.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Score)
}

func TestService_submissions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	svc := f.env.LrnSvc
	mod := testutil.CreateModule(t, f.env.LrnRepo, f.mtg.ID, "Intro", 0)
	task := testutil.CreateTask(t, f.env.LrnRepo, f.mtg.ID, "Report")
	otherMod := testutil.CreateModule(t, f.env.LrnRepo, f.otherMtg.ID, "Intro", 0)

	t.Run("module answer", func(t *testing.T) {
		ns := learning.NewModuleSubmission{TrainingUserID: f.tu.ID, Answer: "my answer"}
		sub, err := svc.SubmitModuleAnswer(ctx, mod.ID, f.student.ID, ns)
		require.NoError(t, err)
		assert.Equal(t, mod.ID, sub.ModuleID)
		assert.Nil(t, sub.Score)

		if _, err = svc.SubmitModuleAnswer(ctx, mod.ID, f.student.ID, ns); errors.Cause(err) != learning.ErrAlreadySubmitted {
			t.Errorf("SubmitModuleAnswer() error = %v, wantErr %v", err, learning.ErrAlreadySubmitted)
		}
	})

	t.Run("module of another training", func(t *testing.T) {
		ns := learning.NewModuleSubmission{TrainingUserID: f.tu.ID, Answer: "my answer"}
		if _, err := svc.SubmitModuleAnswer(ctx, otherMod.ID, f.student.ID, ns); errors.Cause(err) != learning.ErrCrossTraining {
			t.Errorf("SubmitModuleAnswer() error = %v, wantErr %v", err, learning.ErrCrossTraining)
		}
	})

	t.Run("task file", func(t *testing.T) {
		ns := learning.NewTaskSubmission{TrainingUserID: f.tu.ID, Answer: "uploads/report.pdf"}
		_, err := svc.SubmitTask(ctx, task.ID, f.student.ID, ns)
		require.NoError(t, err)

		if _, err = svc.SubmitTask(ctx, task.ID, f.student.ID, ns); errors.Cause(err) != learning.ErrAlreadySubmitted {
			t.Errorf("SubmitTask() error = %v, wantErr %v", err, learning.ErrAlreadySubmitted)
		}
	})

	t.Run("meeting submissions", func(t *testing.T) {
		subs, err := svc.MeetingSubmissions(ctx, f.mtg.ID, f.student.ID)
		require.NoError(t, err)
		assert.Len(t, subs.Modules, 1)
		assert.Len(t, subs.Tasks, 1)
		assert.Len(t, subs.Quizzes, 0)

		subs, err = svc.MeetingSubmissions(ctx, f.mtg.ID, f.other.ID)
		require.NoError(t, err)
		assert.Len(t, subs.Modules, 0)
	})
}

func TestService_authoring(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	svc := f.env.LrnSvc

	nq := learning.NewQuiz{
		Title:     "Basics",
		QuizScore: 10,
		Questions: []learning.NewQuestion{
			{Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswerIndex: 1, Score: 5},
			{Question: "3+3?", Options: []string{"6", "7", "8"}, CorrectAnswerIndex: 0, Score: 5},
		},
	}
	quiz, err := svc.CreateQuiz(ctx, f.mtg.ID, nq)
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 2)

	_, err = svc.CreateQuiz(ctx, "unknown", nq)
	assert.Equal(t, training.ErrMeetingNotFound, errors.Cause(err))

	nq.Questions[0].CorrectAnswerIndex = 2
	_, err = svc.CreateQuiz(ctx, f.mtg.ID, nq)
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok, "CreateQuiz() error = %v, want a validation error", err)

	mod, err := svc.CreateModule(ctx, f.mtg.ID, learning.NewModule{Title: "Intro", Content: "Read", MaxScore: 10})
	require.NoError(t, err)
	task, err := svc.CreateTask(ctx, f.mtg.ID, learning.NewTask{Title: "Report", TaskQuestion: "Write it"})
	require.NoError(t, err)

	items, err := svc.MeetingItems(ctx, f.mtg.ID)
	require.NoError(t, err)
	assert.Equal(t, []learning.Module{mod}, items.Modules)
	assert.Equal(t, []learning.Task{task}, items.Tasks)
	require.Len(t, items.Quizzes, 1)
	assert.Equal(t, quiz.ID, items.Quizzes[0].ID)

	view := items.Quizzes[0].StudentView()
	assert.Equal(t, quiz.ID, view.ID)
	assert.Len(t, view.Questions, 2)
}
