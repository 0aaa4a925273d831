package score_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/trainings/core/learning"
	"github.com/trezcool/trainings/core/score"
	"github.com/trezcool/trainings/core/training"
	"github.com/trezcool/trainings/core/user"
	"github.com/trezcool/trainings/testutil"
)

func TestAggregator(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv()
	aggr := env.ScoreAggr
	lrnSvc := env.LrnSvc

	instructor := testutil.CreateUser(t, env.UsrRepo, "Instructor", "instructor@test.cd", user.RoleInstructor)
	student := testutil.CreateUser(t, env.UsrRepo, "Student", "student@test.cd", user.RoleStudent)
	idle := testutil.CreateUser(t, env.UsrRepo, "Idle", "idle@test.cd", user.RoleStudent)
	stranger := testutil.CreateUser(t, env.UsrRepo, "Stranger", "stranger@test.cd", user.RoleStudent)

	trn := testutil.CreateTraining(t, env.TrnRepo, "Go", instructor.ID)
	mtg1 := testutil.CreateMeeting(t, env.TrnRepo, trn.ID, "Week 1")
	mtg2 := testutil.CreateMeeting(t, env.TrnRepo, trn.ID, "Week 2")
	mtg3 := testutil.CreateMeeting(t, env.TrnRepo, trn.ID, "Week 3")
	tu := testutil.Enroll(t, env.TrnRepo, trn.ID, student.ID)
	testutil.Enroll(t, env.TrnRepo, trn.ID, idle.ID)

	// week 1: graded module (7) + ungraded module + quiz (60 of 100) + graded task (80)
	mod1 := testutil.CreateModule(t, env.LrnRepo, mtg1.ID, "Intro", 10)
	mod2 := testutil.CreateModule(t, env.LrnRepo, mtg1.ID, "Setup", 10)
	quiz1 := testutil.CreateQuiz(t, env.LrnRepo, mtg1.ID, 100, 60, 40)
	task1 := testutil.CreateTask(t, env.LrnRepo, mtg1.ID, "Report")

	modSub, err := lrnSvc.SubmitModuleAnswer(ctx, mod1.ID, student.ID, learning.NewModuleSubmission{TrainingUserID: tu.ID, Answer: "a"})
	require.NoError(t, err)
	_, err = lrnSvc.GradeModule(ctx, modSub.ID, 7)
	require.NoError(t, err)
	_, err = lrnSvc.SubmitModuleAnswer(ctx, mod2.ID, student.ID, learning.NewModuleSubmission{TrainingUserID: tu.ID, Answer: "b"})
	require.NoError(t, err)
	_, err = lrnSvc.SubmitQuiz(ctx, quiz1.ID, student.ID, tu.ID, []learning.QuizAnswer{
		{QuestionIndex: 0, SelectedAnswerIndex: testutil.IntPtr(0)},
		{QuestionIndex: 1, SelectedAnswerIndex: testutil.IntPtr(2)},
	})
	require.NoError(t, err)
	_, err = lrnSvc.SubmitTask(ctx, task1.ID, student.ID, learning.NewTaskSubmission{TrainingUserID: tu.ID, Answer: "report.pdf"})
	require.NoError(t, err)
	_, err = lrnSvc.GradeTask(ctx, task1.ID, tu.ID, 80)
	require.NoError(t, err)

	// week 2: ungraded task only
	task2 := testutil.CreateTask(t, env.LrnRepo, mtg2.ID, "Slides")
	_, err = lrnSvc.SubmitTask(ctx, task2.ID, student.ID, learning.NewTaskSubmission{TrainingUserID: tu.ID, Answer: "slides.pdf"})
	require.NoError(t, err)

	week1 := score.MeetingScore{MeetingID: mtg1.ID, Title: "Week 1", ModuleScore: 7, QuizScore: 60, TaskScore: 80, TotalScore: 147}
	week2 := score.MeetingScore{MeetingID: mtg2.ID, Title: "Week 2"}
	week3 := score.MeetingScore{MeetingID: mtg3.ID, Title: "Week 3"}

	t.Run("MeetingScores", func(t *testing.T) {
		tests := []struct {
			name      string
			meetingID string
			studentID string
			want      score.MeetingScore
			wantErr   error
		}{
			{name: "graded and ungraded submissions", meetingID: mtg1.ID, studentID: student.ID, want: week1},
			{name: "ungraded submissions only", meetingID: mtg2.ID, studentID: student.ID, want: week2},
			{name: "no submissions", meetingID: mtg3.ID, studentID: student.ID, want: week3},
			{
				name: "student without submissions", meetingID: mtg1.ID, studentID: idle.ID,
				want: score.MeetingScore{MeetingID: mtg1.ID, Title: "Week 1"},
			},
			{name: "unknown meeting", meetingID: "unknown", studentID: student.ID, wantErr: training.ErrMeetingNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := aggr.MeetingScores(ctx, tt.meetingID, tt.studentID)
				if errors.Cause(err) != tt.wantErr {
					t.Fatalf("MeetingScores() error = %v, wantErr %v", err, tt.wantErr)
				}
				assert.Equal(t, tt.want, got)
				assert.Equal(t, got.ModuleScore+got.QuizScore+got.TaskScore, got.TotalScore)
			})
		}
	})

	t.Run("TrainingScores", func(t *testing.T) {
		tests := []struct {
			name       string
			trainingID string
			studentID  string
			want       score.TrainingScore
			wantErr    error
		}{
			{
				name: "enrolled student", trainingID: trn.ID, studentID: student.ID,
				want: score.TrainingScore{
					TrainingID:         trn.ID,
					StudentID:          student.ID,
					Meetings:           []score.MeetingScore{week1, week2, week3},
					TotalTrainingScore: 147,
				},
			},
			{
				name: "student without submissions", trainingID: trn.ID, studentID: idle.ID,
				want: score.TrainingScore{
					TrainingID: trn.ID,
					StudentID:  idle.ID,
					Meetings: []score.MeetingScore{
						{MeetingID: mtg1.ID, Title: "Week 1"},
						{MeetingID: mtg2.ID, Title: "Week 2"},
						{MeetingID: mtg3.ID, Title: "Week 3"},
					},
				},
			},
			{name: "student not enrolled", trainingID: trn.ID, studentID: stranger.ID, wantErr: training.ErrTrainingUserNotFound},
			{name: "unknown training", trainingID: "unknown", studentID: student.ID, wantErr: training.ErrTrainingUserNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := aggr.TrainingScores(ctx, tt.trainingID, tt.studentID)
				if errors.Cause(err) != tt.wantErr {
					t.Fatalf("TrainingScores() error = %v, wantErr %v", err, tt.wantErr)
				}
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("idempotent reads", func(t *testing.T) {
		first, err := aggr.TrainingScores(ctx, trn.ID, student.ID)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := aggr.TrainingScores(ctx, trn.ID, student.ID)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("rollups follow grades", func(t *testing.T) {
		_, err := lrnSvc.GradeTask(ctx, task2.ID, tu.ID, 50)
		require.NoError(t, err)

		got, err := aggr.TrainingScores(ctx, trn.ID, student.ID)
		require.NoError(t, err)
		var sum float64
		for _, ms := range got.Meetings {
			sum += ms.TotalScore
		}
		assert.Equal(t, sum, got.TotalTrainingScore)
		assert.Equal(t, 197.0, got.TotalTrainingScore)
	})
}
