// cmd/client/cmd/doc/get.go
package doc

import (
	"fmt"

	"github.com/spf13/cobra"

	"docsync/internal/app/client"
)

var GetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Показать документ",
	Long:  `Выводит документ из локального кэша по идентификатору.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		defer app.Close()

		doc, found := app.Repository().GetByID(args[0])
		if !found {
			return fmt.Errorf("документ не найден: %s", args[0])
		}

		return printDocumentJSON(doc)
	},
}
