package training

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/trainings/core"
)

// Status is the lifecycle status of a TrainingUser.
// enrolled is the initial status; completed and dropped are terminal.
type Status string

const (
	StatusEnrolled  Status = "enrolled"
	StatusCompleted Status = "completed"
	StatusDropped   Status = "dropped"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusEnrolled, StatusCompleted, StatusDropped:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusDropped
}

type Training struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	InstructorID string    `json:"instructor_id"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

type Meeting struct {
	ID          string     `json:"id"`
	TrainingID  string     `json:"training_id"`
	Title       string     `json:"title"`
	MeetingDate *time.Time `json:"meeting_date"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
}

// TrainingUser is the enrollment of a user in a Training. It is never deleted.
type TrainingUser struct {
	ID         string    `json:"id"`
	TrainingID string    `json:"training_id"`
	UserID     string    `json:"user_id"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// NewTraining contains information needed to create a new Training.
type NewTraining struct {
	Title        string `json:"title" validate:"required,notblank,max=255"`
	Description  string `json:"description"`
	InstructorID string `json:"instructor_id" validate:"required"`
}

func (nt *NewTraining) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	nt.InstructorID = core.CleanString(nt.InstructorID)
	return validate.Struct(nt)
}

// UpdateTraining defines the metadata that may be edited on an existing Training.
// Empty fields keep their original value.
type UpdateTraining struct {
	Title       string  `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
}

func (ut *UpdateTraining) Validate(validate *validator.Validate) error {
	ut.Title = core.CleanString(ut.Title)
	if ut.Description != nil {
		desc := core.CleanString(*ut.Description)
		ut.Description = &desc
	}
	return validate.Struct(ut)
}

type NewMeeting struct {
	Title       string     `json:"title" validate:"required,notblank,max=255"`
	MeetingDate *time.Time `json:"meeting_date"`
}

func (nm *NewMeeting) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	return validate.Struct(nm)
}

// NewEnrollment enrolls UserID in a Training. Status defaults to StatusEnrolled.
type NewEnrollment struct {
	UserID string `json:"user_id" validate:"required"`
	Status Status `json:"status" validate:"omitempty,oneof=enrolled completed dropped"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.UserID = core.CleanString(ne.UserID)
	return validate.Struct(ne)
}

type UpdateEnrollmentStatus struct {
	Status Status `json:"status" validate:"required,oneof=enrolled completed dropped"`
}

func (us *UpdateEnrollmentStatus) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

type QueryFilter struct {
	Search       string `query:"search"`
	InstructorID string `query:"instructor_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.InstructorID = core.CleanString(qf.InstructorID)
}
