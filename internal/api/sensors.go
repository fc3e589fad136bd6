package api

import (
	"net/http"

	"github.com/evolab/calgo/internal/sensors"
	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"
)

type sensorDto struct {
	Id         string   `json:"id"`
	Label      string   `json:"label"`
	Vial       int      `json:"vial"`
	Bus        string   `json:"bus"`
	MovingAvg  float64  `json:"movingAvg"`
	Calibrated bool     `json:"calibrated"`
	Value      *float64 `json:"value,omitempty"`
}

func registerSensorEndpoints(rest *echo.Echo, manager *sensors.Manager) {
	group := rest.Group("/sensor")

	group.GET("/", func(c echo.Context) error {
		return getSensors(c, manager)
	})
	group.GET("/:"+urlParamId+"/", func(c echo.Context) error {
		return getSensor(c, manager)
	})
	group.GET("/:"+urlParamId+"/calibration/", func(c echo.Context) error {
		return getSensorCalibration(c, manager)
	})
}

func getSensors(c echo.Context, manager *sensors.Manager) error {
	data := map[string]sensorDto{}
	for _, id := range manager.Ids() {
		sensor, _ := manager.Get(id)
		data[id] = sensorToDto(manager, sensor)
	}
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func getSensor(c echo.Context, manager *sensors.Manager) error {
	id := c.Param(urlParamId)

	sensor, exists := manager.Get(id)
	if !exists {
		return returnNotFound(c, id)
	}
	return c.JSONPretty(http.StatusOK, sensorToDto(manager, sensor), indentationChar)
}

func getSensorCalibration(c echo.Context, manager *sensors.Manager) error {
	id := c.Param(urlParamId)

	if _, exists := manager.Get(id); !exists {
		return returnNotFound(c, id)
	}

	calibrationData, exists := manager.Calibration(id)
	if !exists {
		return returnNotFound(c, id)
	}

	// committed calibrations are immutable, hand out a copy anyway so
	// consumers cannot tamper with the registry's payload
	data := reprint.This(calibrationData)
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func sensorToDto(manager *sensors.Manager, sensor sensors.Sensor) sensorDto {
	config := sensor.GetConfig()
	dto := sensorDto{
		Id:        sensor.GetId(),
		Label:     sensor.GetLabel(),
		Vial:      config.Vial,
		Bus:       config.Bus,
		MovingAvg: sensor.GetMovingAvg(),
	}

	if calibrated, ok := manager.Transform(sensor.GetId(), sensor.GetMovingAvg()); ok {
		dto.Calibrated = true
		dto.Value = &calibrated
	}

	return dto
}
