package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core/training"
	"github.com/trezcool/trainings/core/user"
)

// rolesMiddleware lets the request through if the context user has any of the roles.
func rolesMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := getContextClaims(ctx); err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return rolesMiddleware(user.RoleAdmin)
}

func staffMiddleware() echo.MiddlewareFunc {
	return rolesMiddleware(user.RoleAdmin, user.RoleInstructor)
}

func studentMiddleware() echo.MiddlewareFunc {
	return rolesMiddleware(user.RoleStudent)
}

// trainingOwner returns the training if the context user is an admin or its instructor.
func trainingOwner(ctx echo.Context, svc *training.Service, trainingID string) (training.Training, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return training.Training{}, errors.Wrap(err, "getting context claims")
	}
	trn, err := svc.GetTraining(ctx.Request().Context(), trainingID)
	if err != nil {
		return training.Training{}, errors.Wrap(err, "finding training by ID")
	}
	if !isOwner(claims, trn) {
		return training.Training{}, errHttpForbidden
	}
	return trn, nil
}

// meetingOwner is trainingOwner for the training of a meeting.
func meetingOwner(ctx echo.Context, svc *training.Service, meetingID string) (training.Meeting, error) {
	mtg, err := svc.GetMeeting(ctx.Request().Context(), meetingID)
	if err != nil {
		return training.Meeting{}, errors.Wrap(err, "finding meeting by ID")
	}
	if _, err = trainingOwner(ctx, svc, mtg.TrainingID); err != nil {
		return training.Meeting{}, err
	}
	return mtg, nil
}

func isOwner(claims Claims, trn training.Training) bool {
	return claims.IsAdmin() || (claims.IsInstructor() && trn.InstructorID == claims.Subject)
}

// scoreStudentID returns the `student_id` query param, defaulting to the context user.
// Only the owner of the training may read the scores of another student.
func scoreStudentID(ctx echo.Context, svc *training.Service, trainingID string) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	studentID := ctx.QueryParam("student_id")
	if studentID == "" || studentID == claims.Subject {
		return claims.Subject, nil
	}
	if _, err := trainingOwner(ctx, svc, trainingID); err != nil {
		return "", err
	}
	return studentID, nil
}
