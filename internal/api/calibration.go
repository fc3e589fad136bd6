package api

import (
	"errors"
	"net/http"

	"github.com/evolab/calgo/internal/calibration"
	"github.com/evolab/calgo/internal/sensors"
	"github.com/labstack/echo/v4"
)

type startProcedureRequest struct {
	Template string   `json:"template"`
	Sensors  []string `json:"sensors"`
}

func registerCalibrationEndpoints(rest *echo.Echo, service *calibration.Service) {
	group := rest.Group("/calibration")

	group.GET("/", func(c echo.Context) error {
		return listProcedures(c, service)
	})
	group.POST("/", func(c echo.Context) error {
		return startProcedure(c, service)
	})
	group.GET("/:"+urlParamId+"/", func(c echo.Context) error {
		return getProcedureStatus(c, service)
	})
	group.POST("/:"+urlParamId+"/advance/", func(c echo.Context) error {
		return advanceProcedure(c, service)
	})
	group.POST("/:"+urlParamId+"/input/", func(c echo.Context) error {
		return provideProcedureInput(c, service)
	})
	group.POST("/:"+urlParamId+"/resume/", func(c echo.Context) error {
		return resumeProcedure(c, service)
	})
	group.DELETE("/:"+urlParamId+"/", func(c echo.Context) error {
		return abortProcedure(c, service)
	})
}

func listProcedures(c echo.Context, service *calibration.Service) error {
	return c.JSONPretty(http.StatusOK, service.List(), indentationChar)
}

func startProcedure(c echo.Context, service *calibration.Service) error {
	request := startProcedureRequest{}
	if err := c.Bind(&request); err != nil {
		return c.JSONPretty(http.StatusBadRequest, &Result{
			Name:    "Invalid request",
			Message: err.Error(),
		}, indentationChar)
	}

	status, err := service.Start(request.Template, request.Sensors)
	if err != nil {
		return returnCalibrationError(c, err)
	}
	return c.JSONPretty(http.StatusCreated, status, indentationChar)
}

func getProcedureStatus(c echo.Context, service *calibration.Service) error {
	status, err := service.Status(c.Param(urlParamId))
	if err != nil {
		return returnCalibrationError(c, err)
	}
	return c.JSONPretty(http.StatusOK, status, indentationChar)
}

func advanceProcedure(c echo.Context, service *calibration.Service) error {
	status, err := service.Advance(c.Param(urlParamId))
	if err != nil {
		return returnCalibrationError(c, err)
	}
	return c.JSONPretty(http.StatusOK, status, indentationChar)
}

func provideProcedureInput(c echo.Context, service *calibration.Service) error {
	input := calibration.Input{}
	if err := c.Bind(&input); err != nil {
		return c.JSONPretty(http.StatusBadRequest, &Result{
			Name:    "Invalid request",
			Message: err.Error(),
		}, indentationChar)
	}

	status, err := service.ProvideInput(c.Param(urlParamId), input)
	if err != nil {
		return returnCalibrationError(c, err)
	}
	return c.JSONPretty(http.StatusOK, status, indentationChar)
}

func resumeProcedure(c echo.Context, service *calibration.Service) error {
	status, err := service.Resume(c.Param(urlParamId))
	if err != nil {
		return returnCalibrationError(c, err)
	}
	return c.JSONPretty(http.StatusOK, status, indentationChar)
}

func abortProcedure(c echo.Context, service *calibration.Service) error {
	status, err := service.Abort(c.Param(urlParamId))
	if err != nil {
		return returnCalibrationError(c, err)
	}
	return c.JSONPretty(http.StatusOK, status, indentationChar)
}

// returnCalibrationError maps the engine's typed errors onto HTTP status
// codes the caller can present verbatim.
func returnCalibrationError(c echo.Context, err error) error {
	var conflictErr *calibration.ProcedureConflictError
	var notFoundErr *calibration.ProcedureNotFoundError
	var templateErr *calibration.TemplateNotFoundError
	var hardwareErr *calibration.HardwareReadError
	var unknownSensorErr *sensors.UnknownSensorError

	switch {
	case errors.As(err, &conflictErr):
		return c.JSONPretty(http.StatusConflict, &Result{
			Name:    "Conflict",
			Message: err.Error(),
		}, indentationChar)
	case errors.As(err, &notFoundErr):
		return returnNotFound(c, notFoundErr.ProcedureId)
	case errors.As(err, &templateErr):
		return returnNotFound(c, templateErr.TemplateId)
	case errors.As(err, &unknownSensorErr):
		return returnNotFound(c, unknownSensorErr.SensorId)
	case errors.As(err, &hardwareErr):
		return c.JSONPretty(http.StatusBadGateway, &Result{
			Name:    "Hardware Error",
			Message: err.Error() + " (retry the advance call)",
		}, indentationChar)
	case errors.Is(err, calibration.ErrNoInputExpected),
		errors.Is(err, calibration.ErrProcedureTerminal):
		return c.JSONPretty(http.StatusConflict, &Result{
			Name:    "Invalid State",
			Message: err.Error(),
		}, indentationChar)
	default:
		return returnError(c, err)
	}
}
