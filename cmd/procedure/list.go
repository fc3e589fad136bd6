package procedure

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
	Short: "List procedure templates and persisted procedure runs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()

		tableConfig := &table.Config{
			ShowIndex:       false,
			Color:           !global.NoColor,
			AlternateColors: true,
			TitleColorCode:  ansi.ColorCode("white+buf"),
			AltColorCodes: []string{
				ansi.ColorCode("white"),
				ansi.ColorCode("white:236"),
			},
		}

		// templates
		templateRows := [][]string{}
		for _, template := range configuration.CurrentConfig.Procedures {
			templateRows = append(templateRows, []string{
				template.ID,
				template.Description,
				strconv.Itoa(len(template.Steps)),
			})
		}
		printTable("Templates", table.Table{
			Headers: []string{"ID", "Description", "Steps"},
			Rows:    templateRows,
		}, tableConfig)

		// persisted runs
		pers := persistence.NewPersistence(configuration.CurrentConfig.DbPath)
		states, err := pers.ListProcedureStates()
		if err != nil {
			ui.FatalWithoutStacktrace("Unable to list persisted procedures: %v", err)
		}

		runRows := [][]string{}
		for _, state := range states {
			runRows = append(runRows, []string{
				state.Id,
				state.TemplateId,
				string(state.State),
				fmt.Sprintf("%d/%d", state.Cursor, len(state.Steps)),
			})
		}
		printTable("Runs", table.Table{
			Headers: []string{"ID", "Template", "State", "Progress"},
			Rows:    runRows,
		}, tableConfig)
	},
}

func printTable(title string, tab table.Table, config *table.Config) {
	ui.Printfln(title)
	var buf bytes.Buffer
	if err := tab.WriteTable(&buf, config); err != nil {
		panic(err)
	}
	ui.Printfln(buf.String())
}
