// cmd/client/cmd/doc/delete.go
package doc

import (
	"fmt"

	"github.com/spf13/cobra"

	"docsync/internal/app/client"
)

var DeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Удалить документ",
	Long: `Мягкое удаление: документ помечается tombstone и пропадает из
списков, а удаление отправляется на сервер при следующей синхронизации.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		defer app.Close()

		if err := app.Repository().Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("ошибка удаления документа: %w", err)
		}

		fmt.Printf("✅ Документ удален: %s\n", args[0])
		fmt.Printf("В очереди на отправку: %d изменений\n", app.Repository().PendingChanges())
		return nil
	},
}
