// cmd/client/cmd/doc/list.go
package doc

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docsync/internal/app/client"
	"docsync/internal/domain/document"
)

var listFormat string

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список документов",
	Long: `Просмотр всех документов коллекции из локального кэша.

Удаленные документы (tombstone) в списке не показываются.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := cmd.Context().Value("app").(*client.App)
		if !ok || app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}
		defer app.Close()

		docs := app.Repository().GetAll()

		switch listFormat {
		case "json":
			return printDocsJSON(docs)
		case "table":
			return printDocsTable(docs)
		default:
			return printDocsSimple(docs)
		}
	},
}

func printDocsSimple(docs []document.Document) error {
	if len(docs) == 0 {
		fmt.Println("Документы не найдены")
		return nil
	}

	fmt.Printf("Найдено документов: %d\n\n", len(docs))

	for i, doc := range docs {
		fmt.Printf("%d. %s\n", i+1, docTitle(doc))
		fmt.Printf("   ID: %s | Версия: %d | Обновлено: %s\n",
			doc.ID,
			doc.Version,
			doc.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}

	return nil
}

func printDocsTable(docs []document.Document) error {
	if len(docs) == 0 {
		fmt.Println("Документы не найдены")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tНазвание\tВерсия\tОбновлено\t\n")
	fmt.Fprintf(w, "---\t---\t---\t---\t\n")

	for _, doc := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t\n",
			doc.ID,
			docTitle(doc),
			doc.Version,
			doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	return w.Flush()
}

func printDocsJSON(docs []document.Document) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	ListCmd.Flags().StringVar(&listFormat, "format", "simple", "формат вывода: simple, table, json")
}
