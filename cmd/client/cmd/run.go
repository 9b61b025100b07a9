// cmd/client/cmd/run.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"docsync/internal/app/client"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Запустить фоновую синхронизацию",
	Long: `Запускает клиент с периодической фоновой синхронизацией.

Интервал задается переменной окружения SYNC_INTERVAL_SECONDS.
Остановка — по сигналу SIGINT или SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		defer app.Close()

		return app.Run()
	},
}
