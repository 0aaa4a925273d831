package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/trainings/core/training"
)

type trainingRepository struct {
	db *DB
}

var _ training.Repository = (*trainingRepository)(nil) // interface compliance check

func NewTrainingRepository(db *DB) training.Repository {
	return &trainingRepository{db: db}
}

func copyMeeting(mtg *training.Meeting) training.Meeting {
	m := *mtg
	if mtg.MeetingDate != nil {
		date := *mtg.MeetingDate
		m.MeetingDate = &date
	}
	return m
}

func (repo *trainingRepository) getTraining(id string) *training.Training {
	for _, trn := range repo.db.trainings {
		if trn.ID == id {
			return trn
		}
	}
	return nil
}

func (repo *trainingRepository) getTrainingUser(id string) *training.TrainingUser {
	for _, tu := range repo.db.trainingUsers {
		if tu.ID == id {
			return tu
		}
	}
	return nil
}

func (repo *trainingRepository) CreateTraining(_ context.Context, trn training.Training) (training.Training, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	trn.ID = newID()
	row := trn
	repo.db.trainings = append(repo.db.trainings, &row)
	return trn, nil
}

func (repo *trainingRepository) GetTraining(_ context.Context, id string) (training.Training, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if trn := repo.getTraining(id); trn != nil {
		return *trn, nil
	}
	return training.Training{}, training.ErrNotFound
}

func (repo *trainingRepository) UpdateTraining(_ context.Context, trn training.Training) (training.Training, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig := repo.getTraining(trn.ID)
	if orig == nil {
		return training.Training{}, training.ErrNotFound
	}
	orig.Title = trn.Title
	orig.Description = trn.Description
	orig.UpdatedAt = trn.UpdatedAt
	return *orig, nil
}

func (repo *trainingRepository) QueryTrainings(_ context.Context, filter training.QueryFilter) ([]training.Training, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	trainings := make([]training.Training, 0)
	for _, trn := range repo.db.trainings {
		if search != "" && !strings.Contains(strings.ToLower(trn.Title), search) {
			continue
		}
		if filter.InstructorID != "" && trn.InstructorID != filter.InstructorID {
			continue
		}
		trainings = append(trainings, *trn)
	}
	return trainings, nil
}

func (repo *trainingRepository) CreateMeeting(_ context.Context, mtg training.Meeting) (training.Meeting, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.getTraining(mtg.TrainingID) == nil {
		return training.Meeting{}, training.ErrNotFound
	}
	mtg.ID = newID()
	row := copyMeeting(&mtg)
	repo.db.meetings = append(repo.db.meetings, &row)
	return mtg, nil
}

func (repo *trainingRepository) GetMeeting(_ context.Context, id string) (training.Meeting, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, mtg := range repo.db.meetings {
		if mtg.ID == id {
			return copyMeeting(mtg), nil
		}
	}
	return training.Meeting{}, training.ErrMeetingNotFound
}

func (repo *trainingRepository) QueryMeetings(_ context.Context, trainingID string) ([]training.Meeting, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	meetings := make([]training.Meeting, 0)
	for _, mtg := range repo.db.meetings {
		if mtg.TrainingID == trainingID {
			meetings = append(meetings, copyMeeting(mtg))
		}
	}
	return meetings, nil
}

func (repo *trainingRepository) CreateTrainingUser(_ context.Context, tu training.TrainingUser) (training.TrainingUser, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, row := range repo.db.trainingUsers {
		if row.TrainingID == tu.TrainingID && row.UserID == tu.UserID {
			return training.TrainingUser{}, training.ErrAlreadyEnrolled
		}
	}
	tu.ID = newID()
	row := tu
	repo.db.trainingUsers = append(repo.db.trainingUsers, &row)
	return tu, nil
}

func (repo *trainingRepository) GetTrainingUser(_ context.Context, id string) (training.TrainingUser, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if tu := repo.getTrainingUser(id); tu != nil {
		return *tu, nil
	}
	return training.TrainingUser{}, training.ErrTrainingUserNotFound
}

func (repo *trainingRepository) GetTrainingUserByUser(_ context.Context, trainingID, userID string) (training.TrainingUser, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, tu := range repo.db.trainingUsers {
		if tu.TrainingID == trainingID && tu.UserID == userID {
			return *tu, nil
		}
	}
	return training.TrainingUser{}, training.ErrTrainingUserNotFound
}

func (repo *trainingRepository) QueryTrainingUsers(_ context.Context, trainingID string) ([]training.TrainingUser, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tus := make([]training.TrainingUser, 0)
	for _, tu := range repo.db.trainingUsers {
		if tu.TrainingID == trainingID {
			tus = append(tus, *tu)
		}
	}
	return tus, nil
}

func (repo *trainingRepository) UpdateTrainingUserStatus(_ context.Context, id string, from, to training.Status, updatedAt time.Time) (training.TrainingUser, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	tu := repo.getTrainingUser(id)
	if tu == nil {
		return training.TrainingUser{}, training.ErrTrainingUserNotFound
	}
	if tu.Status != from {
		return training.TrainingUser{}, training.ErrInvalidTransition
	}
	tu.Status = to
	tu.UpdatedAt = updatedAt
	return *tu, nil
}
