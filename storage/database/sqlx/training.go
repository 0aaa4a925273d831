package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/trainings/core/training"
)

const (
	trainingColumns     = `id, title, description, instructor_id, created_at, updated_at`
	meetingColumns      = `id, training_id, title, meeting_date, created_at`
	trainingUserColumns = `id, training_id, user_id, status, created_at, updated_at`
)

type trainingRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	InstructorID string    `db:"instructor_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r trainingRow) training() training.Training {
	return training.Training{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		InstructorID: r.InstructorID,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type meetingRow struct {
	ID          string    `db:"id"`
	TrainingID  string    `db:"training_id"`
	Title       string    `db:"title"`
	MeetingDate null.Time `db:"meeting_date"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r meetingRow) meeting() training.Meeting {
	mtg := training.Meeting{
		ID:         r.ID,
		TrainingID: r.TrainingID,
		Title:      r.Title,
		CreatedAt:  r.CreatedAt.UTC(),
	}
	if r.MeetingDate.Valid {
		date := r.MeetingDate.Time.UTC()
		mtg.MeetingDate = &date
	}
	return mtg
}

type trainingUserRow struct {
	ID         string    `db:"id"`
	TrainingID string    `db:"training_id"`
	UserID     string    `db:"user_id"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r trainingUserRow) trainingUser() training.TrainingUser {
	return training.TrainingUser{
		ID:         r.ID,
		TrainingID: r.TrainingID,
		UserID:     r.UserID,
		Status:     training.Status(r.Status),
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type trainingRepository struct {
	exec Executor
}

var _ training.Repository = (*trainingRepository)(nil) // interface compliance check

func NewTrainingRepository(exec Executor) training.Repository {
	return &trainingRepository{exec: exec}
}

// Trainings

func (repo trainingRepository) CreateTraining(ctx context.Context, trn training.Training) (training.Training, error) {
	trn.ID = newID()
	var row trainingRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `
		INSERT INTO training (`+trainingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+trainingColumns,
		trn.ID, trn.Title, trn.Description, trn.InstructorID, trn.CreatedAt.UTC(), trn.UpdatedAt.UTC())
	if err != nil {
		return training.Training{}, errors.Wrap(err, "inserting training")
	}
	return row.training(), nil
}

func (repo trainingRepository) GetTraining(ctx context.Context, id string) (training.Training, error) {
	if !isUUID(id) {
		return training.Training{}, training.ErrNotFound
	}
	var row trainingRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `SELECT `+trainingColumns+` FROM training WHERE id = $1`, id)
	if err != nil {
		return training.Training{}, trapNoRowsErr(err, training.ErrNotFound, "getting training")
	}
	return row.training(), nil
}

func (repo trainingRepository) UpdateTraining(ctx context.Context, trn training.Training) (training.Training, error) {
	if !isUUID(trn.ID) {
		return training.Training{}, training.ErrNotFound
	}
	var row trainingRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `
		UPDATE training SET title = $2, description = $3, updated_at = $4
		WHERE id = $1
		RETURNING `+trainingColumns,
		trn.ID, trn.Title, trn.Description, trn.UpdatedAt.UTC())
	if err != nil {
		return training.Training{}, trapNoRowsErr(err, training.ErrNotFound, "updating training")
	}
	return row.training(), nil
}

func (repo trainingRepository) QueryTrainings(ctx context.Context, filter training.QueryFilter) ([]training.Training, error) {
	q := `SELECT ` + trainingColumns + ` FROM training WHERE TRUE`
	var args []interface{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		q += ` AND title ILIKE ` + placeholder(len(args))
	}
	if filter.InstructorID != "" {
		if !isUUID(filter.InstructorID) {
			return []training.Training{}, nil
		}
		args = append(args, filter.InstructorID)
		q += ` AND instructor_id = ` + placeholder(len(args))
	}
	q += ` ORDER BY created_at, id`

	var rows []trainingRow
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying trainings")
	}
	trainings := make([]training.Training, 0, len(rows))
	for _, r := range rows {
		trainings = append(trainings, r.training())
	}
	return trainings, nil
}

// Meetings

func (repo trainingRepository) CreateMeeting(ctx context.Context, mtg training.Meeting) (training.Meeting, error) {
	mtg.ID = newID()
	var row meetingRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `
		INSERT INTO meeting (`+meetingColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+meetingColumns,
		mtg.ID, mtg.TrainingID, mtg.Title, null.TimeFromPtr(mtg.MeetingDate), mtg.CreatedAt.UTC())
	if err != nil {
		return training.Meeting{}, errors.Wrap(err, "inserting meeting")
	}
	return row.meeting(), nil
}

func (repo trainingRepository) GetMeeting(ctx context.Context, id string) (training.Meeting, error) {
	if !isUUID(id) {
		return training.Meeting{}, training.ErrMeetingNotFound
	}
	var row meetingRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `SELECT `+meetingColumns+` FROM meeting WHERE id = $1`, id)
	if err != nil {
		return training.Meeting{}, trapNoRowsErr(err, training.ErrMeetingNotFound, "getting meeting")
	}
	return row.meeting(), nil
}

func (repo trainingRepository) QueryMeetings(ctx context.Context, trainingID string) ([]training.Meeting, error) {
	meetings := make([]training.Meeting, 0)
	if !isUUID(trainingID) {
		return meetings, nil
	}
	var rows []meetingRow
	err := sqlx.SelectContext(ctx, repo.exec, &rows,
		`SELECT `+meetingColumns+` FROM meeting WHERE training_id = $1 ORDER BY seq`, trainingID)
	if err != nil {
		return nil, errors.Wrap(err, "querying meetings")
	}
	for _, r := range rows {
		meetings = append(meetings, r.meeting())
	}
	return meetings, nil
}

// Training users

func (repo trainingRepository) CreateTrainingUser(ctx context.Context, tu training.TrainingUser) (training.TrainingUser, error) {
	tu.ID = newID()
	var row trainingUserRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `
		INSERT INTO training_user (`+trainingUserColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (training_id, user_id) DO NOTHING
		RETURNING `+trainingUserColumns,
		tu.ID, tu.TrainingID, tu.UserID, string(tu.Status), tu.CreatedAt.UTC(), tu.UpdatedAt.UTC())
	if err != nil {
		return training.TrainingUser{}, trapNoRowsErr(err, training.ErrAlreadyEnrolled, "inserting training user")
	}
	return row.trainingUser(), nil
}

func (repo trainingRepository) GetTrainingUser(ctx context.Context, id string) (training.TrainingUser, error) {
	if !isUUID(id) {
		return training.TrainingUser{}, training.ErrTrainingUserNotFound
	}
	var row trainingUserRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `SELECT `+trainingUserColumns+` FROM training_user WHERE id = $1`, id)
	if err != nil {
		return training.TrainingUser{}, trapNoRowsErr(err, training.ErrTrainingUserNotFound, "getting training user")
	}
	return row.trainingUser(), nil
}

func (repo trainingRepository) GetTrainingUserByUser(ctx context.Context, trainingID, userID string) (training.TrainingUser, error) {
	if !isUUID(trainingID) || !isUUID(userID) {
		return training.TrainingUser{}, training.ErrTrainingUserNotFound
	}
	var row trainingUserRow
	err := sqlx.GetContext(ctx, repo.exec, &row,
		`SELECT `+trainingUserColumns+` FROM training_user WHERE training_id = $1 AND user_id = $2`, trainingID, userID)
	if err != nil {
		return training.TrainingUser{}, trapNoRowsErr(err, training.ErrTrainingUserNotFound, "getting training user")
	}
	return row.trainingUser(), nil
}

func (repo trainingRepository) QueryTrainingUsers(ctx context.Context, trainingID string) ([]training.TrainingUser, error) {
	tus := make([]training.TrainingUser, 0)
	if !isUUID(trainingID) {
		return tus, nil
	}
	var rows []trainingUserRow
	err := sqlx.SelectContext(ctx, repo.exec, &rows,
		`SELECT `+trainingUserColumns+` FROM training_user WHERE training_id = $1 ORDER BY seq`, trainingID)
	if err != nil {
		return nil, errors.Wrap(err, "querying training users")
	}
	for _, r := range rows {
		tus = append(tus, r.trainingUser())
	}
	return tus, nil
}

// UpdateTrainingUserStatus is a compare-and-set on the status column.
func (repo trainingRepository) UpdateTrainingUserStatus(ctx context.Context, id string, from, to training.Status, updatedAt time.Time) (training.TrainingUser, error) {
	if !isUUID(id) {
		return training.TrainingUser{}, training.ErrTrainingUserNotFound
	}
	var row trainingUserRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `
		UPDATE training_user SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+trainingUserColumns,
		id, string(from), string(to), updatedAt.UTC())
	if err != nil {
		return training.TrainingUser{}, trapNoRowsErr(err, training.ErrInvalidTransition, "updating training user status")
	}
	return row.trainingUser(), nil
}
