package doc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docsync/internal/domain/document"
)

// DocCmd - родительская команда для всех операций с документами
var DocCmd = &cobra.Command{
	Use:   "doc",
	Short: "Управление документами",
	Long:  `Создание, просмотр, обновление и удаление документов коллекции.`,
}

// parseFields собирает поля документа из JSON (--data) и пар ключ=значение
// (--field). Пары перекрывают одноименные ключи из JSON.
func parseFields(data string, kvs []string) (document.Fields, error) {
	fields := make(document.Fields)

	if data != "" {
		if err := json.Unmarshal([]byte(data), &fields); err != nil {
			return nil, fmt.Errorf("ошибка разбора --data: %w", err)
		}
	}

	for _, kv := range kvs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("ожидается ключ=значение, получено: %s", kv)
		}
		fields[key] = document.String(value)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("документ без полей: укажите --data или --field")
	}

	return fields, nil
}

func printDocumentJSON(doc document.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации документа: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// docTitle достает человекочитаемое название документа
func docTitle(doc document.Document) string {
	if v, ok := doc.Fields["title"]; ok && v.Kind() == document.KindString {
		return v.StringVal()
	}
	return "Без названия"
}
