package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core/learning"
	"github.com/trezcool/trainings/core/training"
)

type learningApi struct {
	svc       *learning.Service
	trainings *training.Service
	validate  *validator.Validate
}

func registerLearningAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *learning.Service,
	trainings *training.Service,
	validate *validator.Validate,
) {
	api := learningApi{
		svc:       svc,
		trainings: trainings,
		validate:  validate,
	}

	mg := g.Group("/meetings/:id", jwt)
	mg.POST("/modules", api.createModule)
	mg.POST("/quizzes", api.createQuiz)
	mg.POST("/tasks", api.createTask)
	mg.GET("/items", api.queryItems)
	mg.GET("/submissions", api.querySubmissions)

	sg := g.Group("", jwt)
	sg.POST("/modules/:id/submissions", api.submitModuleAnswer, studentMiddleware())
	sg.POST("/quizzes/:id/submissions", api.submitQuiz, studentMiddleware())
	sg.POST("/tasks/:id/submissions", api.submitTask, studentMiddleware())
	sg.PUT("/module-submissions/:id/score", api.gradeModule, staffMiddleware())
	sg.PUT("/tasks/:id/score", api.gradeTask, staffMiddleware())
}

type (
	// meetingItemsResponse holds either learning.Quiz or learning.QuizView values in Quizzes.
	meetingItemsResponse struct {
		Modules []learning.Module `json:"modules"`
		Quizzes interface{}       `json:"quizzes"`
		Tasks   []learning.Task   `json:"tasks"`
	}
)

// Handlers

func (api *learningApi) createModule(ctx echo.Context) error {
	mtg, err := meetingOwner(ctx, api.trainings, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data learning.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mod, err := api.svc.CreateModule(ctx.Request().Context(), mtg.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, mod)
}

func (api *learningApi) createQuiz(ctx echo.Context) error {
	mtg, err := meetingOwner(ctx, api.trainings, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data learning.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	quiz, err := api.svc.CreateQuiz(ctx.Request().Context(), mtg.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, quiz)
}

func (api *learningApi) createTask(ctx echo.Context) error {
	mtg, err := meetingOwner(ctx, api.trainings, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data learning.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	task, err := api.svc.CreateTask(ctx.Request().Context(), mtg.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, task)
}

// queryItems hides the quiz answer keys from anyone but the owner of the training.
func (api *learningApi) queryItems(ctx echo.Context) error {
	items, err := api.svc.MeetingItems(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying meeting items")
	}

	resp := meetingItemsResponse{
		Modules: items.Modules,
		Tasks:   items.Tasks,
	}
	if resp.Modules == nil {
		resp.Modules = []learning.Module{}
	}
	if resp.Tasks == nil {
		resp.Tasks = []learning.Task{}
	}

	_, err = meetingOwner(ctx, api.trainings, ctx.Param("id"))
	switch {
	case err == nil:
		quizzes := items.Quizzes
		if quizzes == nil {
			quizzes = []learning.Quiz{}
		}
		resp.Quizzes = quizzes
	case err == errHttpForbidden:
		views := make([]learning.QuizView, 0, len(items.Quizzes))
		for _, quiz := range items.Quizzes {
			views = append(views, quiz.StudentView())
		}
		resp.Quizzes = views
	default:
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *learningApi) querySubmissions(ctx echo.Context) error {
	mtg, err := api.trainings.GetMeeting(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding meeting by ID")
	}
	studentID, err := scoreStudentID(ctx, api.trainings, mtg.TrainingID)
	if err != nil {
		return err
	}

	subs, err := api.svc.MeetingSubmissions(ctx.Request().Context(), mtg.ID, studentID)
	if err != nil {
		return errors.Wrap(err, "querying meeting submissions")
	}
	if subs.Modules == nil {
		subs.Modules = []learning.ModuleSubmission{}
	}
	if subs.Quizzes == nil {
		subs.Quizzes = []learning.QuizSubmission{}
	}
	if subs.Tasks == nil {
		subs.Tasks = []learning.TaskSubmission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *learningApi) submitModuleAnswer(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data learning.NewModuleSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModuleSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.SubmitModuleAnswer(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting module answer")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *learningApi) submitQuiz(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data learning.NewQuizSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuizSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.SubmitQuiz(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.TrainingUserID, data.Answers)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *learningApi) submitTask(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data learning.NewTaskSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTaskSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.SubmitTask(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting task")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *learningApi) gradeModule(ctx echo.Context) error {
	var data learning.ModuleGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ModuleGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.GetModuleSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding module submission by ID")
	}
	mod, err := api.svc.GetModule(ctx.Request().Context(), sub.ModuleID)
	if err != nil {
		return errors.Wrap(err, "finding module by ID")
	}
	if _, err := meetingOwner(ctx, api.trainings, mod.MeetingID); err != nil {
		return err
	}

	sub, err = api.svc.GradeModule(ctx.Request().Context(), sub.ID, *data.Score)
	if err != nil {
		return errors.Wrap(err, "grading module")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *learningApi) gradeTask(ctx echo.Context) error {
	var data learning.TaskGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TaskGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	task, err := api.svc.GetTask(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding task by ID")
	}
	if _, err := meetingOwner(ctx, api.trainings, task.MeetingID); err != nil {
		return err
	}

	sub, err := api.svc.GradeTask(ctx.Request().Context(), task.ID, data.TrainingUserID, *data.Score)
	if err != nil {
		return errors.Wrap(err, "grading task")
	}
	return ctx.JSON(http.StatusOK, sub)
}
