package sensor

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/evolab/calgo/cmd/global"
	"github.com/evolab/calgo/internal/configuration"
	"github.com/evolab/calgo/internal/persistence"
	"github.com/evolab/calgo/internal/ui"
	"github.com/guptarohit/asciigraph"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Print the committed calibration curve of a sensor to console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(sensorId) <= 0 {
			return fmt.Errorf("a sensor id is required, use --id")
		}

		loadConfig()

		pers := persistence.NewPersistence(configuration.CurrentConfig.DbPath)

		data, err := pers.LoadCalibration(sensorId)
		if err != nil || data == nil {
			ui.Printfln("No committed calibration for sensor '%s' yet...", sensorId)
			return nil
		}

		fit := data.FitResult()

		// print table
		ui.Printfln(sensorId)
		rows := [][]string{
			{"Points", fmt.Sprintf("%d", len(data.Points))},
		}
		if fit != nil {
			rows = append(rows,
				[]string{"Fit type", fit.Type},
				[]string{"Slope", fmt.Sprintf("%f", fit.Parameters[0])},
				[]string{"Intercept", fmt.Sprintf("%f", fit.Parameters[1])},
				[]string{"Quality (R²)", fmt.Sprintf("%.4f", fit.Quality)},
			)
		}
		tab := table.Table{
			Headers: []string{"", ""},
			Rows:    rows,
		}
		var buf bytes.Buffer
		tableErr := tab.WriteTable(&buf, &table.Config{
			ShowIndex:       false,
			Color:           !global.NoColor,
			AlternateColors: true,
			TitleColorCode:  ansi.ColorCode("white+buf"),
			AltColorCodes: []string{
				ansi.ColorCode("white"),
				ansi.ColorCode("white:236"),
			},
		})
		if tableErr != nil {
			panic(tableErr)
		}
		ui.Printfln(buf.String())

		if fit == nil {
			ui.Printfln("No fit computed for sensor '%s' yet...", sensorId)
			return nil
		}

		// plot the fitted conversion over the raw range the points cover
		rawValues := []float64{}
		for _, point := range data.CompletePoints() {
			rawValues = append(rawValues, *point.Raw)
		}
		sort.Float64s(rawValues)
		if len(rawValues) < 2 {
			return nil
		}

		minRaw := rawValues[0]
		maxRaw := rawValues[len(rawValues)-1]
		values := make([]float64, 0, 100)
		for i := 0; i < 100; i++ {
			raw := minRaw + (maxRaw-minRaw)*float64(i)/99.0
			values = append(values, fit.Apply(raw))
		}

		caption := "physical / raw"
		graph := asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(100), asciigraph.Caption(caption))
		ui.Printfln(graph)
		return nil
	},
}
