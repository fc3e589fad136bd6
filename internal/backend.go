package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evolab/calgo/internal/api"
	"github.com/evolab/calgo/internal/calibration"
	"github.com/evolab/calgo/internal/configuration"
	"github.com/evolab/calgo/internal/hwio"
	"github.com/evolab/calgo/internal/persistence"
	"github.com/evolab/calgo/internal/sensors"
	"github.com/evolab/calgo/internal/statistics"
	"github.com/evolab/calgo/internal/ui"
	"github.com/evolab/calgo/internal/util"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// storedCommitter makes a committed calibration the current one: it swaps
// the sensor registry entry, writes the payload to the database and
// refreshes the JSON snapshot external tools read.
type storedCommitter struct {
	manager      *sensors.Manager
	pers         persistence.Persistence
	snapshotPath string
}

func (c *storedCommitter) Commit(sensorId string, data *calibration.Data) error {
	if err := c.manager.Commit(sensorId, data); err != nil {
		return err
	}
	if err := c.pers.SaveCalibration(sensorId, data); err != nil {
		return err
	}
	c.exportSnapshot()
	return nil
}

func (c *storedCommitter) exportSnapshot() {
	if len(c.snapshotPath) <= 0 {
		return
	}

	snapshot := map[string]*calibration.Data{}
	for _, sensorId := range c.manager.Ids() {
		if data, ok := c.manager.Calibration(sensorId); ok {
			snapshot[sensorId] = data
		}
	}

	if err := util.WriteJsonFileAtomic(snapshot, c.snapshotPath); err != nil {
		ui.Warning("Unable to write calibration snapshot to %s: %v", c.snapshotPath, err)
	}
}

func RunDaemon() {
	pers := persistence.NewPersistence(configuration.CurrentConfig.DbPath)
	if err := pers.Init(); err != nil {
		ui.Fatal("Unable to initialize persistence: %v", err)
	}

	buses := hwio.NewBusLocks()
	manager := sensors.NewManager(buses)

	for _, config := range configuration.CurrentConfig.Sensors {
		sensor, err := sensors.NewSensor(config)
		if err != nil {
			ui.Fatal("Unable to process sensor configuration: %s", config.ID)
		}
		if err := manager.Register(sensor); err != nil {
			ui.Fatal("Unable to register sensor %s: %v", config.ID, err)
		}
	}

	if len(configuration.CurrentConfig.Sensors) == 0 {
		ui.Fatal("No valid sensor configurations, exiting.")
	}

	// restore calibrations committed by previous runs
	committed, err := pers.LoadCalibrations()
	if err != nil {
		ui.Warning("Unable to load persisted calibrations: %v", err)
	}
	for sensorId, data := range committed {
		if err := manager.Commit(sensorId, data); err != nil {
			ui.Warning("Persisted calibration for unknown sensor %s ignored", sensorId)
		}
	}

	committer := &storedCommitter{
		manager:      manager,
		pers:         pers,
		snapshotPath: configuration.CurrentConfig.SnapshotPath,
	}
	service := calibration.NewService(configuration.CurrentConfig.Procedures, manager, committer, pers)

	restored, err := service.RestoreActive()
	if err != nil {
		ui.Warning("Unable to restore persisted procedures: %v", err)
	} else if restored > 0 {
		ui.Info("Restored %d suspended calibration procedure(s)", restored)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	{
		enabled := configuration.CurrentConfig.Statistics.Enabled
		if enabled {
			// === Prometheus Exporter
			statistics.Register(statistics.NewSensorCollector(manager))
			statistics.Register(statistics.NewProcedureCollector(service))

			g.Add(func() error {
				port := configuration.CurrentConfig.Statistics.Port
				if port <= 0 || port >= 65535 {
					port = 9441
				}
				addr := fmt.Sprintf(":%d", port)
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				server := &http.Server{Addr: addr, Handler: mux}

				go func() {
					<-ctx.Done()
					ui.Info("Stopping statistics server...")
					timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer timeoutCancel()
					_ = server.Shutdown(timeoutCtx)
				}()

				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					ui.Error("Cannot start prometheus metrics endpoint (%s)", err.Error())
					return err
				}
				return nil
			}, func(err error) {
				if err != nil {
					ui.Warning("Error stopping statistics server: " + err.Error())
				} else {
					ui.Info("Statistics server stopped.")
				}
			})
		}
	}
	{
		enabled := configuration.CurrentConfig.Api.Enabled
		if enabled {
			// === REST API
			g.Add(func() error {
				restService := api.CreateRestService(manager, service)

				go func() {
					<-ctx.Done()
					ui.Info("Stopping REST api...")
					timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer timeoutCancel()
					_ = restService.Shutdown(timeoutCtx)
				}()

				address := fmt.Sprintf("%s:%d", configuration.CurrentConfig.Api.Host, configuration.CurrentConfig.Api.Port)
				if err := restService.Start(address); err != nil && err != http.ErrServerClosed {
					ui.Error("Cannot start REST api endpoint (%s)", err.Error())
					return err
				}
				return nil
			}, func(err error) {
				if err != nil {
					ui.Warning("Error stopping REST api: " + err.Error())
				} else {
					ui.Info("REST api stopped.")
				}
			})
		}
	}
	{
		// === sensor monitoring
		pollingRate := configuration.CurrentConfig.SensorPollingRate
		windowSize := configuration.CurrentConfig.SensorRollingWindowSize

		for _, sensorId := range manager.Ids() {
			id := sensorId
			mon := NewSensorMonitor(manager, id, pollingRate, windowSize)

			g.Add(func() error {
				err := mon.Run(ctx)
				ui.Info("Sensor monitor for sensor %s stopped.", id)
				return err
			}, func(err error) {
				if err != nil {
					ui.Warning("Error monitoring sensor %s: %v", id, err)
				}
			})
		}
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			<-sig
			ui.Info("Received SIGTERM signal, exiting...")
			return nil
		}, func(err error) {
			defer close(sig)
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		ui.Fatal("%v", err)
	}
}
