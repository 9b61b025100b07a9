// cmd/client/cmd/doc/update.go
package doc

import (
	"fmt"

	"github.com/spf13/cobra"

	"docsync/internal/app/client"
)

var (
	updateData   string
	updateFields []string
)

var UpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Обновить документ",
	Long: `Частичное обновление документа: указанные поля перекрывают
существующие, остальные остаются без изменений.

Примеры:
  docsync doc update 7b1c... --field done=true
  docsync doc update 7b1c... --data '{"priority":1}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		defer app.Close()

		fields, err := parseFields(updateData, updateFields)
		if err != nil {
			return err
		}

		doc, err := app.Repository().Update(cmd.Context(), args[0], fields)
		if err != nil {
			return fmt.Errorf("ошибка обновления документа: %w", err)
		}

		fmt.Printf("✅ Документ обновлен: %s (версия %d)\n", doc.ID, doc.Version)
		fmt.Printf("В очереди на отправку: %d изменений\n", app.Repository().PendingChanges())
		return nil
	},
}

func init() {
	UpdateCmd.Flags().StringVar(&updateData, "data", "", "обновляемые поля в формате JSON")
	UpdateCmd.Flags().StringArrayVar(&updateFields, "field", nil, "обновляемое поле в формате ключ=значение")
}
