package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core/score"
	"github.com/trezcool/trainings/core/training"
)

type scoreApi struct {
	aggr      *score.Aggregator
	trainings *training.Service
}

func registerScoreAPI(g *echo.Group, jwt echo.MiddlewareFunc, aggr *score.Aggregator, trainings *training.Service) {
	api := scoreApi{
		aggr:      aggr,
		trainings: trainings,
	}

	g.GET("/trainings/:id/scores", api.trainingScores, jwt)
	g.GET("/meetings/:id/scores", api.meetingScores, jwt)
}

// Handlers

func (api *scoreApi) trainingScores(ctx echo.Context) error {
	trn, err := api.trainings.GetTraining(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding training by ID")
	}
	studentID, err := scoreStudentID(ctx, api.trainings, trn.ID)
	if err != nil {
		return err
	}

	scores, err := api.aggr.TrainingScores(ctx.Request().Context(), trn.ID, studentID)
	if err != nil {
		return errors.Wrap(err, "aggregating training scores")
	}
	return ctx.JSON(http.StatusOK, scores)
}

func (api *scoreApi) meetingScores(ctx echo.Context) error {
	mtg, err := api.trainings.GetMeeting(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding meeting by ID")
	}
	studentID, err := scoreStudentID(ctx, api.trainings, mtg.TrainingID)
	if err != nil {
		return err
	}

	scores, err := api.aggr.MeetingScores(ctx.Request().Context(), mtg.ID, studentID)
	if err != nil {
		return errors.Wrap(err, "aggregating meeting scores")
	}
	return ctx.JSON(http.StatusOK, scores)
}
