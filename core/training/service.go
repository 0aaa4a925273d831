package training

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/user"
)

var (
	// errors
	ErrNotFound             = core.NewError(core.CodeNotFound, "training not found")
	ErrMeetingNotFound      = core.NewError(core.CodeNotFound, "meeting not found")
	ErrTrainingUserNotFound = core.NewError(core.CodeNotFound, "training user not found")
	ErrAlreadyEnrolled      = core.NewError(core.CodeAlreadyExists, "user is already enrolled in this training")
	ErrInvalidTransition    = core.NewError(core.CodeInvalidTransition, "invalid enrollment status transition")
)

const statusEmailTemplate = "enrollment_status"

type (
	Repository interface {
		CreateTraining(ctx context.Context, trn Training) (Training, error)
		GetTraining(ctx context.Context, id string) (Training, error)
		UpdateTraining(ctx context.Context, trn Training) (Training, error)
		// QueryTrainings applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Training.Title.
		QueryTrainings(ctx context.Context, filter QueryFilter) ([]Training, error)

		CreateMeeting(ctx context.Context, mtg Meeting) (Meeting, error)
		GetMeeting(ctx context.Context, id string) (Meeting, error)
		// QueryMeetings returns the meetings of a training in creation order.
		QueryMeetings(ctx context.Context, trainingID string) ([]Meeting, error)

		// CreateTrainingUser returns ErrAlreadyEnrolled if (TrainingID, UserID) is already taken.
		CreateTrainingUser(ctx context.Context, tu TrainingUser) (TrainingUser, error)
		GetTrainingUser(ctx context.Context, id string) (TrainingUser, error)
		GetTrainingUserByUser(ctx context.Context, trainingID, userID string) (TrainingUser, error)
		QueryTrainingUsers(ctx context.Context, trainingID string) ([]TrainingUser, error)
		// UpdateTrainingUserStatus sets the status only if it still equals from.
		// It returns ErrInvalidTransition otherwise.
		UpdateTrainingUserStatus(ctx context.Context, id string, from, to Status, updatedAt time.Time) (TrainingUser, error)
	}

	// UserFinder resolves users referenced by trainings and enrollments.
	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo    Repository
		users   UserFinder
		mailSvc core.EmailService
		logger  core.Logger
	}

	statusEmailData struct {
		Name          string
		TrainingID    string
		TrainingTitle string
		Status        string
	}
)

func NewService(repo Repository, users UserFinder, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, users: users, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) CreateTraining(ctx context.Context, nt NewTraining) (Training, error) {
	instructor, err := svc.users.GetByID(ctx, nt.InstructorID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Training{}, core.NewValidationError(err, core.FieldError{Field: "instructor_id", Error: err.Error()})
		}
		return Training{}, errors.Wrap(err, "getting instructor")
	}
	if !(instructor.IsInstructor() || instructor.IsAdmin()) {
		err := errors.New("user is not an instructor")
		return Training{}, core.NewValidationError(err, core.FieldError{Field: "instructor_id", Error: err.Error()})
	}

	now := time.Now().UTC()
	trn := Training{
		Title:        nt.Title,
		Description:  nt.Description,
		InstructorID: instructor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateTraining(ctx, trn)
}

func (svc *Service) GetTraining(ctx context.Context, id string) (Training, error) {
	return svc.repo.GetTraining(ctx, id)
}

func (svc *Service) QueryTrainings(ctx context.Context, filter QueryFilter) ([]Training, error) {
	return svc.repo.QueryTrainings(ctx, filter)
}

func (svc *Service) UpdateTraining(ctx context.Context, id string, ut UpdateTraining) (Training, error) {
	trn, err := svc.repo.GetTraining(ctx, id)
	if err != nil {
		return Training{}, err
	}
	if ut.Title != "" {
		trn.Title = ut.Title
	}
	if ut.Description != nil {
		trn.Description = *ut.Description
	}
	trn.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTraining(ctx, trn)
}

func (svc *Service) CreateMeeting(ctx context.Context, trainingID string, nm NewMeeting) (Meeting, error) {
	if _, err := svc.repo.GetTraining(ctx, trainingID); err != nil {
		return Meeting{}, err
	}
	mtg := Meeting{
		TrainingID: trainingID,
		Title:      nm.Title,
		CreatedAt:  time.Now().UTC(),
	}
	if nm.MeetingDate != nil {
		date := nm.MeetingDate.UTC()
		mtg.MeetingDate = &date
	}
	return svc.repo.CreateMeeting(ctx, mtg)
}

func (svc *Service) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	return svc.repo.GetMeeting(ctx, id)
}

func (svc *Service) QueryMeetings(ctx context.Context, trainingID string) ([]Meeting, error) {
	if _, err := svc.repo.GetTraining(ctx, trainingID); err != nil {
		return nil, err
	}
	return svc.repo.QueryMeetings(ctx, trainingID)
}

// Enroll creates the TrainingUser of ne.UserID in the training.
// A user can be enrolled at most once per training; existing enrollments are never re-activated.
func (svc *Service) Enroll(ctx context.Context, trainingID string, ne NewEnrollment) (TrainingUser, error) {
	if _, err := svc.repo.GetTraining(ctx, trainingID); err != nil {
		return TrainingUser{}, err
	}
	if _, err := svc.users.GetByID(ctx, ne.UserID); err != nil {
		return TrainingUser{}, err
	}

	status := ne.Status
	if status == "" {
		status = StatusEnrolled
	}
	if !status.IsValid() {
		err := errors.Errorf("invalid status: %q", status)
		return TrainingUser{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
	}

	now := time.Now().UTC()
	tu := TrainingUser{
		TrainingID: trainingID,
		UserID:     ne.UserID,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateTrainingUser(ctx, tu)
}

func (svc *Service) GetEnrollment(ctx context.Context, id string) (TrainingUser, error) {
	return svc.repo.GetTrainingUser(ctx, id)
}

func (svc *Service) GetEnrollmentByUser(ctx context.Context, trainingID, userID string) (TrainingUser, error) {
	return svc.repo.GetTrainingUserByUser(ctx, trainingID, userID)
}

func (svc *Service) QueryEnrollments(ctx context.Context, trainingID string) ([]TrainingUser, error) {
	if _, err := svc.repo.GetTraining(ctx, trainingID); err != nil {
		return nil, err
	}
	return svc.repo.QueryTrainingUsers(ctx, trainingID)
}

// SetStatus moves a TrainingUser along enrolled -> completed | dropped.
// Terminal statuses are final: any change from them fails with ErrInvalidTransition.
func (svc *Service) SetStatus(ctx context.Context, trainingUserID string, status Status) (TrainingUser, error) {
	if !status.IsValid() {
		err := errors.Errorf("invalid status: %q", status)
		return TrainingUser{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
	}

	tu, err := svc.repo.GetTrainingUser(ctx, trainingUserID)
	if err != nil {
		return TrainingUser{}, err
	}
	if tu.Status.IsTerminal() {
		return TrainingUser{}, ErrInvalidTransition
	}
	if tu.Status == status {
		return tu, nil
	}

	tu, err = svc.repo.UpdateTrainingUserStatus(ctx, tu.ID, tu.Status, status, time.Now().UTC())
	if err != nil {
		return TrainingUser{}, err
	}
	if tu.Status.IsTerminal() {
		svc.notifyStatusChange(ctx, tu)
	}
	return tu, nil
}

// notifyStatusChange emails the student about a status change.
// The transition is already persisted: failures are logged, not returned.
func (svc *Service) notifyStatusChange(ctx context.Context, tu TrainingUser) {
	if svc.mailSvc == nil {
		return
	}
	usr, err := svc.users.GetByID(ctx, tu.UserID)
	if err != nil {
		svc.logError(fmt.Sprintf("status notification: getting user %s", tu.UserID), err)
		return
	}
	trn, err := svc.repo.GetTraining(ctx, tu.TrainingID)
	if err != nil {
		svc.logError(fmt.Sprintf("status notification: getting training %s", tu.TrainingID), err)
		return
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("%s: %s", trn.Title, tu.Status),
		TemplateName: statusEmailTemplate,
		TemplateData: statusEmailData{
			Name:          usr.Name,
			TrainingID:    trn.ID,
			TrainingTitle: trn.Title,
			Status:        string(tu.Status),
		},
	})
}

func (svc *Service) logError(msg string, err error) {
	if svc.logger != nil {
		svc.logger.Error(fmt.Sprintf("%s: %v", msg, err), err)
	}
}
