package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) getChangesOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-changes",
		Method:      http.MethodPost,
		Path:        "/api/sync/changes",
		Summary:     "Получить изменения для синхронизации",
		Description: "Возвращает документы коллекции, измененные после указанного времени",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) pushChangeOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-push",
		Method:      http.MethodPost,
		Path:        "/api/sync/push",
		Summary:     "Применить одну мутацию",
		Description: "Принимает одну мутацию документа (create, update, delete)",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) pushBatchOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-batch",
		Method:      http.MethodPost,
		Path:        "/api/sync/batch",
		Summary:     "Пакетная отправка изменений",
		Description: "Принимает пакет мутаций и применяет его в одной транзакции",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getStatusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-status",
		Method:      http.MethodGet,
		Path:        "/api/sync/status",
		Summary:     "Получить сводку по коллекции",
		Description: "Возвращает количество документов и время последней записи",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
