// cmd/client/cmd/doc/create.go
package doc

import (
	"fmt"

	"github.com/spf13/cobra"

	"docsync/internal/app/client"
)

var (
	createID     string
	createData   string
	createFields []string
)

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать новый документ",
	Long: `Создание документа в локальном кэше коллекции.

Документ появляется в коллекции мгновенно, без обращения к серверу.
Изменение попадает в очередь и будет отправлено при следующей
синхронизации.

Примеры:
  docsync doc create --field title="Купить молоко" --field done=false
  docsync doc create --data '{"title":"Отчет","priority":2}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		defer app.Close()

		fields, err := parseFields(createData, createFields)
		if err != nil {
			return err
		}

		doc, err := app.Repository().Create(cmd.Context(), createID, fields)
		if err != nil {
			return fmt.Errorf("ошибка создания документа: %w", err)
		}

		fmt.Printf("✅ Документ создан: %s\n", doc.ID)
		fmt.Printf("В очереди на отправку: %d изменений\n", app.Repository().PendingChanges())
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVar(&createID, "id", "", "идентификатор документа (по умолчанию генерируется)")
	CreateCmd.Flags().StringVar(&createData, "data", "", "поля документа в формате JSON")
	CreateCmd.Flags().StringArrayVar(&createFields, "field", nil, "поле документа в формате ключ=значение")
}
