package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/exp/slog"
	"golang.org/x/term"

	"docsync/internal/domain/document"
	"docsync/internal/domain/sync"
)

// terminalDecision возвращает обратный вызов ручного разрешения конфликтов,
// который показывает обе версии документа и ждет выбора пользователя.
// Вне интерактивного терминала откатывается на last-write-wins, чтобы
// фоновая синхронизация не зависала на вводе.
func terminalDecision(log *slog.Logger) sync.ManualDecision {
	return func(ctx context.Context, local, remote document.Document) (document.Document, error) {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			log.Warn("Ручное разрешение недоступно без терминала, применен last-write-wins",
				"document_id", local.ID)
			return sync.LastWriteWins{}.Resolve(ctx, local, remote)
		}

		color.Yellow("Конфликт по документу %s", local.ID)
		fmt.Println()
		color.Cyan("Локальная версия (обновлена %s):", local.UpdatedAt.Format("2006-01-02 15:04:05"))
		printDocumentJSON(local)
		color.Cyan("Серверная версия (обновлена %s):", remote.UpdatedAt.Format("2006-01-02 15:04:05"))
		printDocumentJSON(remote)

		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Print("Какую версию оставить? [l]окальную / [s]ерверную: ")
			answer, err := reader.ReadString('\n')
			if err != nil {
				return document.Document{}, fmt.Errorf("ошибка чтения выбора: %w", err)
			}

			switch strings.ToLower(strings.TrimSpace(answer)) {
			case "l", "local", "л":
				return local, nil
			case "s", "server", "с":
				return remote, nil
			}
			fmt.Println("Введите l или s")
		}
	}
}

func printDocumentJSON(doc document.Document) {
	data, err := json.MarshalIndent(doc.Fields, "  ", "  ")
	if err != nil {
		fmt.Printf("  <ошибка сериализации: %v>\n", err)
		return
	}
	fmt.Printf("  %s\n", data)
}
