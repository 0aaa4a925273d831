// Package score computes meeting and training score rollups from stored submissions.
// Rollups are never persisted: every read recomputes them.
package score

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core/learning"
	"github.com/trezcool/trainings/core/training"
)

type (
	MeetingScore struct {
		MeetingID   string  `json:"meeting_id"`
		Title       string  `json:"title"`
		ModuleScore float64 `json:"module_score"`
		QuizScore   float64 `json:"quiz_score"`
		TaskScore   float64 `json:"task_score"`
		TotalScore  float64 `json:"total_score"`
	}

	TrainingScore struct {
		TrainingID         string         `json:"training_id"`
		StudentID          string         `json:"student_id"`
		Meetings           []MeetingScore `json:"meetings"`
		TotalTrainingScore float64        `json:"total_training_score"`
	}

	TrainingFinder interface {
		GetMeeting(ctx context.Context, id string) (training.Meeting, error)
		QueryMeetings(ctx context.Context, trainingID string) ([]training.Meeting, error)
		GetEnrollmentByUser(ctx context.Context, trainingID, userID string) (training.TrainingUser, error)
	}

	SubmissionFinder interface {
		MeetingSubmissions(ctx context.Context, meetingID, studentID string) (learning.MeetingSubmissions, error)
	}

	Aggregator struct {
		trainings   TrainingFinder
		submissions SubmissionFinder
	}
)

func NewAggregator(trainings TrainingFinder, submissions SubmissionFinder) *Aggregator {
	return &Aggregator{trainings: trainings, submissions: submissions}
}

// MeetingScores sums the scores of the submissions of a student under a meeting.
// Ungraded submissions count as 0.
func (agg *Aggregator) MeetingScores(ctx context.Context, meetingID, studentID string) (MeetingScore, error) {
	mtg, err := agg.trainings.GetMeeting(ctx, meetingID)
	if err != nil {
		return MeetingScore{}, err
	}
	return agg.meetingScore(ctx, mtg, studentID)
}

// TrainingScores lists the MeetingScore of every meeting of the training, in creation order,
// and their total. The student must be enrolled in the training.
func (agg *Aggregator) TrainingScores(ctx context.Context, trainingID, studentID string) (TrainingScore, error) {
	if _, err := agg.trainings.GetEnrollmentByUser(ctx, trainingID, studentID); err != nil {
		return TrainingScore{}, err
	}
	meetings, err := agg.trainings.QueryMeetings(ctx, trainingID)
	if err != nil {
		return TrainingScore{}, errors.Wrap(err, "querying meetings")
	}

	ts := TrainingScore{
		TrainingID: trainingID,
		StudentID:  studentID,
		Meetings:   make([]MeetingScore, 0, len(meetings)),
	}
	for _, mtg := range meetings {
		ms, err := agg.meetingScore(ctx, mtg, studentID)
		if err != nil {
			return TrainingScore{}, err
		}
		ts.Meetings = append(ts.Meetings, ms)
		ts.TotalTrainingScore += ms.TotalScore
	}
	return ts, nil
}

func (agg *Aggregator) meetingScore(ctx context.Context, mtg training.Meeting, studentID string) (MeetingScore, error) {
	subs, err := agg.submissions.MeetingSubmissions(ctx, mtg.ID, studentID)
	if err != nil {
		return MeetingScore{}, errors.Wrapf(err, "querying submissions of meeting %s", mtg.ID)
	}

	ms := MeetingScore{MeetingID: mtg.ID, Title: mtg.Title}
	for _, sub := range subs.Modules {
		if sub.Score != nil {
			ms.ModuleScore += *sub.Score
		}
	}
	for _, sub := range subs.Quizzes {
		ms.QuizScore += sub.Score
	}
	for _, sub := range subs.Tasks {
		if sub.Score != nil {
			ms.TaskScore += *sub.Score
		}
	}
	ms.TotalScore = ms.ModuleScore + ms.QuizScore + ms.TaskScore
	return ms, nil
}
