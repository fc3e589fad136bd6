package sensor

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/evolab/calgo/cmd/global"
	"github.com/evolab/calgo/internal/configuration"
	"github.com/evolab/calgo/internal/persistence"
	"github.com/evolab/calgo/internal/ui"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sensors and their calibration state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()

		pers := persistence.NewPersistence(configuration.CurrentConfig.DbPath)

		rows := [][]string{}
		for _, config := range configuration.CurrentConfig.Sensors {
			calibrated := "no"
			quality := ""

			data, err := pers.LoadCalibration(config.ID)
			if err == nil && data != nil && data.FitResult() != nil {
				calibrated = "yes"
				quality = fmt.Sprintf("%.4f", data.FitResult().Quality)
			}

			rows = append(rows, []string{
				config.ID,
				config.Label,
				strconv.Itoa(config.Vial),
				config.Bus,
				calibrated,
				quality,
			})
		}

		tab := table.Table{
			Headers: []string{"ID", "Label", "Vial", "Bus", "Calibrated", "Quality"},
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
	},
}
