package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core/training"
)

type trainingApi struct {
	svc      *training.Service
	validate *validator.Validate
}

func registerTrainingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *training.Service, validate *validator.Validate) {
	api := trainingApi{
		svc:      svc,
		validate: validate,
	}

	tg := g.Group("/trainings", jwt)
	tg.POST("", api.create, staffMiddleware())
	tg.GET("", api.query)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.POST("/:id/meetings", api.createMeeting)
	tg.GET("/:id/meetings", api.queryMeetings)
	tg.POST("/:id/enrollments", api.enroll)
	tg.GET("/:id/enrollments", api.queryEnrollments)

	eg := g.Group("/enrollments", jwt)
	eg.PUT("/:id/status", api.setEnrollmentStatus)
}

// Handlers

func (api *trainingApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data training.NewTraining
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTraining")
	}
	// instructors create their own trainings; admins may assign any instructor
	if data.InstructorID == "" {
		data.InstructorID = claims.Subject
	}
	if !claims.IsAdmin() && data.InstructorID != claims.Subject {
		return errHttpForbidden
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	trn, err := api.svc.CreateTraining(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating training")
	}
	return ctx.JSON(http.StatusCreated, trn)
}

func (api *trainingApi) query(ctx echo.Context) error {
	filter := training.QueryFilter{
		Search:       ctx.QueryParam("search"),
		InstructorID: ctx.QueryParam("instructor_id"),
	}
	filter.Clean()

	trainings, err := api.svc.QueryTrainings(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying trainings")
	}
	if trainings == nil {
		trainings = []training.Training{}
	}
	return ctx.JSON(http.StatusOK, trainings)
}

func (api *trainingApi) retrieve(ctx echo.Context) error {
	trn, err := api.svc.GetTraining(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding training by ID")
	}
	return ctx.JSON(http.StatusOK, trn)
}

func (api *trainingApi) update(ctx echo.Context) error {
	trn, err := trainingOwner(ctx, api.svc, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data training.UpdateTraining
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTraining")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	trn, err = api.svc.UpdateTraining(ctx.Request().Context(), trn.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating training")
	}
	return ctx.JSON(http.StatusOK, trn)
}

func (api *trainingApi) createMeeting(ctx echo.Context) error {
	trn, err := trainingOwner(ctx, api.svc, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data training.NewMeeting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMeeting")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mtg, err := api.svc.CreateMeeting(ctx.Request().Context(), trn.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating meeting")
	}
	return ctx.JSON(http.StatusCreated, mtg)
}

func (api *trainingApi) queryMeetings(ctx echo.Context) error {
	meetings, err := api.svc.QueryMeetings(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying meetings")
	}
	if meetings == nil {
		meetings = []training.Meeting{}
	}
	return ctx.JSON(http.StatusOK, meetings)
}

func (api *trainingApi) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data training.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if data.UserID == "" {
		data.UserID = claims.Subject
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	trainingID := ctx.Param("id")
	selfEnroll := data.UserID == claims.Subject && claims.IsStudent() &&
		(data.Status == "" || data.Status == training.StatusEnrolled)
	if !selfEnroll {
		if _, err := trainingOwner(ctx, api.svc, trainingID); err != nil {
			return err
		}
	}

	tu, err := api.svc.Enroll(ctx.Request().Context(), trainingID, data)
	if err != nil {
		return errors.Wrap(err, "enrolling user")
	}
	return ctx.JSON(http.StatusCreated, tu)
}

func (api *trainingApi) queryEnrollments(ctx echo.Context) error {
	trn, err := trainingOwner(ctx, api.svc, ctx.Param("id"))
	if err != nil {
		return err
	}

	enrollments, err := api.svc.QueryEnrollments(ctx.Request().Context(), trn.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []training.TrainingUser{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

// setEnrollmentStatus lets the owner of the training set any status; students may only drop out.
func (api *trainingApi) setEnrollmentStatus(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data training.UpdateEnrollmentStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEnrollmentStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tu, err := api.svc.GetEnrollment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding enrollment by ID")
	}
	if !(tu.UserID == claims.Subject && data.Status == training.StatusDropped) {
		if _, err := trainingOwner(ctx, api.svc, tu.TrainingID); err != nil {
			return err
		}
	}

	tu, err = api.svc.SetStatus(ctx.Request().Context(), tu.ID, data.Status)
	if err != nil {
		return errors.Wrap(err, "setting enrollment status")
	}
	return ctx.JSON(http.StatusOK, tu)
}
