package sync

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"docsync/internal/app/client"
	syncengine "docsync/internal/domain/sync"
)

var (
	syncStatus bool
	fullSync   bool
	watchState bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Управление синхронизацией",
	Long: `Синхронизация локальной коллекции с сервером.

Без флагов выполняет один цикл: отправляет накопленную очередь изменений,
затем вытягивает и применяет изменения сервера.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		defer app.Close()

		if syncStatus {
			return showSyncStatus(app)
		}

		if watchState {
			return watchSyncState(cmd.Context(), app)
		}

		if fullSync {
			return runFullSync(cmd.Context(), app)
		}

		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	fmt.Println("=== Синхронизация коллекции ===")

	fmt.Println("Проверка соединения с сервером...")
	if err := app.CheckConnection(); err != nil {
		return fmt.Errorf("сервер недоступен: %v", err)
	}

	fmt.Println("Начало синхронизации...")
	result := app.SyncNow(ctx)

	if result.Skipped {
		fmt.Println("⚠️  Синхронизация пропущена (пауза, офлайн или уже идет)")
		return nil
	}
	if result.Err != nil {
		return fmt.Errorf("ошибка синхронизации: %w", result.Err)
	}

	fmt.Println()
	fmt.Println("✅ Синхронизация завершена!")
	fmt.Printf("Время выполнения: %v\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("Отправлено на сервер: %d изменений\n", result.Pushed)
	fmt.Printf("Получено с сервера: %d документов\n", result.Pulled)

	if result.Conflicts > 0 {
		fmt.Printf("Разрешено конфликтов: %d\n", result.Conflicts)
	}
	if result.Pruned > 0 {
		fmt.Printf("Очищено tombstone: %d\n", result.Pruned)
	}

	return nil
}

func runFullSync(ctx context.Context, app *client.App) error {
	fmt.Println("=== Полная синхронизация ===")
	fmt.Println("⚠️  Локальный кэш и очередь изменений будут сброшены")

	if err := app.FullSync(ctx); err != nil {
		return fmt.Errorf("ошибка полной синхронизации: %w", err)
	}

	fmt.Printf("✅ Коллекция заново вытянута с сервера: %d документов\n",
		len(app.Repository().GetAll()))
	return nil
}

func showSyncStatus(app *client.App) error {
	fmt.Println("=== Статус синхронизации ===")

	state := app.Repository().State()

	fmt.Printf("Состояние: %s\n", coloredStatus(state.Status))
	fmt.Printf("Изменений в очереди: %d\n", state.PendingChanges)

	if !state.LastSyncedAt.IsZero() {
		fmt.Printf("Последняя синхронизация: %s\n",
			state.LastSyncedAt.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Последняя синхронизация: никогда")
	}

	if state.Err != nil {
		color.Red("Последняя ошибка: %v", state.Err)
	}

	cfg := app.Config()
	fmt.Println()
	fmt.Println("⚙️  Конфигурация:")
	fmt.Printf("  Коллекция: %s\n", cfg.Collection)
	fmt.Printf("  Интервал: %d сек\n", cfg.SyncInterval)
	fmt.Printf("  Стратегия конфликтов: %s\n", cfg.ConflictStrategy)

	fmt.Printf("\n🌐 Соединение с сервером: ")
	if err := app.CheckConnection(); err != nil {
		color.Red("❌ Ошибка: %v", err)
		return nil
	}
	color.Green("✅ OK")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if status, err := app.ServerStatus(ctx); err == nil && status != nil {
		fmt.Printf("  Документов на сервере: %d (из них удалено: %d)\n",
			status.TotalDocuments, status.DeletedCount)
		if status.LastPushAt != nil {
			fmt.Printf("  Последняя запись на сервере: %s\n",
				status.LastPushAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func watchSyncState(ctx context.Context, app *client.App) error {
	fmt.Println("Наблюдение за состоянием синхронизации (Ctrl+C для выхода)")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	states, unsubscribe := app.Repository().WatchState()
	defer unsubscribe()

	app.StartAutoSync()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stdout)
			return nil
		case state, open := <-states:
			if !open {
				return nil
			}
			line := fmt.Sprintf("[%s] %s | очередь: %d",
				time.Now().Format("15:04:05"),
				coloredStatus(state.Status),
				state.PendingChanges)
			if state.Progress != nil {
				line += fmt.Sprintf(" | прогресс: %.0f%%", *state.Progress*100)
			}
			if state.Err != nil {
				line += color.RedString(" | ошибка: %v", state.Err)
			}
			fmt.Println(line)
		}
	}
}

func coloredStatus(status syncengine.Status) string {
	switch status {
	case syncengine.StatusIdle:
		return color.GreenString(string(status))
	case syncengine.StatusSyncing:
		return color.CyanString(string(status))
	case syncengine.StatusError:
		return color.RedString(string(status))
	case syncengine.StatusPaused, syncengine.StatusOffline:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
	SyncCmd.Flags().BoolVar(&fullSync, "full", false, "сбросить кэш и вытянуть коллекцию заново")
	SyncCmd.Flags().BoolVar(&watchState, "watch", false, "наблюдать за переходами состояния")
}
