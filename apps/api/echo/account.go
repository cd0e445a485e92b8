package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core"
	"github.com/abdullahshahporan/KUET-CSE-Automation-Web-Portal/core/account"
)

type accountApi struct {
	svc      account.Service
	validate *validator.Validate
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc account.Service, validate *validator.Validate) {
	api := accountApi{svc: svc, validate: validate}
	admin := adminMiddleware()

	sg := g.Group("/students", jwt, admin)
	sg.POST("", api.createStudent)
	sg.GET("", api.queryStudents)
	sg.DELETE("", api.deactivateAccount)

	tg := g.Group("/teachers", jwt, admin)
	tg.POST("", api.createTeacher)
	tg.GET("", api.queryTeachers)
	tg.DELETE("", api.deactivateAccount)
	tg.PATCH("", api.patchTeacher)

	g.GET("/stats", api.stats, jwt, admin)
}

// Handlers

func (api *accountApi) createStudent(ctx echo.Context) error {
	var data account.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acct, secret, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}

	// the initial password appears here once and is never retrievable again
	return ctx.JSON(http.StatusCreated, DataResponse{
		Success:         true,
		Data:            acct,
		InitialPassword: secret,
	})
}

func (api *accountApi) queryStudents(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	accts := api.svc.QueryStudents(ctx.Request().Context(), ordering.Orderings...)
	return ctx.JSON(http.StatusOK, accts)
}

func (api *accountApi) createTeacher(ctx echo.Context) error {
	var data account.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acct, secret, generated, err := api.svc.CreateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}

	resp := DataResponse{Success: true, Data: acct}
	if generated {
		// only echo back secrets the caller does not already know
		resp.GeneratedPassword = secret
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (api *accountApi) queryTeachers(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	accts := api.svc.QueryTeachers(ctx.Request().Context(), ordering.Orderings...)
	return ctx.JSON(http.StatusOK, accts)
}

func (api *accountApi) deactivateAccount(ctx echo.Context) error {
	userID := ctx.QueryParam("userId")
	if userID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "userId", Error: "this field is required"})
	}

	if err := api.svc.Deactivate(ctx.Request().Context(), userID); err != nil {
		return errors.Wrap(err, "deactivating account")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (api *accountApi) patchTeacher(ctx echo.Context) error {
	var data TeacherPatchRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TeacherPatchRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	switch data.Action {
	case actionResetPassword:
		secret, err := api.svc.ResetTeacherPassword(ctx.Request().Context(), data.UserID)
		if err != nil {
			return errors.Wrap(err, "resetting teacher password")
		}
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, NewPassword: secret})

	case actionUpdateProfile:
		if data.UpdateTeacher.IsEmpty() {
			return core.NewValidationError(nil, core.FieldError{Field: "updates", Error: "no updatable fields provided"})
		}
		if err := data.UpdateTeacher.Validate(api.validate); err != nil {
			return err
		}
		acct, err := api.svc.UpdateTeacherProfile(ctx.Request().Context(), data.UserID, data.UpdateTeacher)
		if err != nil {
			return errors.Wrap(err, "updating teacher profile")
		}
		return ctx.JSON(http.StatusOK, DataResponse{Success: true, Data: acct})
	}
	return core.NewValidationError(nil, core.FieldError{Field: "action", Error: "invalid action"})
}

func (api *accountApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "counting accounts")
	}
	return ctx.JSON(http.StatusOK, DataResponse{Success: true, Data: stats})
}

const (
	actionResetPassword = "reset_password"
	actionUpdateProfile = "update_profile"
)

type (
	DataResponse struct {
		Success           bool        `json:"success"`
		Data              interface{} `json:"data"`
		InitialPassword   string      `json:"initialPassword,omitempty"`
		GeneratedPassword string      `json:"generatedPassword,omitempty"`
	}

	SuccessResponse struct {
		Success     bool   `json:"success"`
		NewPassword string `json:"newPassword,omitempty"`
	}

	// TeacherPatchRequest carries the update fields flat alongside the
	// action, e.g. {"userId": ..., "action": "update_profile", "phone": ...}.
	TeacherPatchRequest struct {
		UserID string `json:"userId" validate:"required"`
		Action string `json:"action" validate:"required,oneof=reset_password update_profile"`
		account.UpdateTeacher
	}
)

func (tp *TeacherPatchRequest) Validate(validate *validator.Validate) error {
	tp.UserID = core.CleanString(tp.UserID)
	tp.Action = core.CleanString(tp.Action, true /* lower */)
	return validate.StructExcept(tp, "UpdateTeacher")
}
