package inmemdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/trainings/core/training"
	"github.com/trezcool/trainings/core/user"
	inmemdb "github.com/trezcool/trainings/storage/database/inmem"
	"github.com/trezcool/trainings/testutil"
)

func TestTrainingRepository_meetingDateIsolation(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	repo := inmemdb.NewTrainingRepository(db)

	instructor := testutil.CreateUser(t, usrRepo, "Instructor", "instructor@test.cd", user.RoleInstructor)
	trn := testutil.CreateTraining(t, repo, "Go", instructor.ID)

	date := time.Date(2021, time.March, 1, 9, 0, 0, 0, time.UTC)
	want := date
	mtg, err := repo.CreateMeeting(ctx, training.Meeting{
		TrainingID:  trn.ID,
		Title:       "Week 1",
		MeetingDate: &date,
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)

	// the caller's value is not stored by reference
	date = date.AddDate(1, 0, 0)

	got, err := repo.GetMeeting(ctx, mtg.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MeetingDate)
	assert.True(t, want.Equal(*got.MeetingDate))

	*got.MeetingDate = got.MeetingDate.AddDate(0, 1, 0)

	meetings, err := repo.QueryMeetings(ctx, trn.ID)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	require.NotNil(t, meetings[0].MeetingDate)
	assert.True(t, want.Equal(*meetings[0].MeetingDate))

	*meetings[0].MeetingDate = time.Time{}

	got, err = repo.GetMeeting(ctx, mtg.ID)
	require.NoError(t, err)
	assert.True(t, want.Equal(*got.MeetingDate))
}
