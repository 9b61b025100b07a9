package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/exp/slog"

	"docsync/internal/app/client/config"
	"docsync/internal/domain/backend"
	"docsync/internal/domain/document"
)

// httpClient реализация sync.RemoteDataSource поверх HTTP API сервера
type httpClient struct {
	client    *http.Client
	config    *config.Config
	log       *slog.Logger
	baseURL   string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) (*httpClient, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			DisableCompression:  false,
			DisableKeepAlives:   false,
			MaxIdleConnsPerHost: 10,
		},
	}

	// Определяем протокол
	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}
	baseURL := scheme + cfg.ServerAddress

	return &httpClient{
		client:    client,
		config:    cfg,
		log:       log,
		baseURL:   baseURL,
		userAgent: "DocSync-Client/1.0",
	}, nil
}

// Name возвращает стабильный идентификатор бэкенда
func (h *httpClient) Name() string {
	return "http:" + h.config.ServerAddress
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("сервер недоступен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервер вернул статус: %d", resp.StatusCode)
	}

	return nil
}

// FetchChanges возвращает документы коллекции, измененные после since
func (h *httpClient) FetchChanges(ctx context.Context, collection string, since time.Time, scopeID string) ([]document.Document, error) {
	req := backend.ChangesRequest{
		Collection: collection,
		ScopeID:    scopeID,
	}
	if !since.IsZero() {
		req.Since = &since
	}

	resp, err := h.doRequest(ctx, "POST", "/api/sync/changes", req)
	if err != nil {
		return nil, err
	}

	var changesResp backend.ChangesResponse
	if err := h.parseResponse(resp, &changesResp); err != nil {
		return nil, err
	}
	if changesResp.Status != "Ok" {
		return nil, fmt.Errorf("ошибка сервера: %s", changesResp.Error)
	}

	return changesResp.Documents, nil
}

// PushChange отправляет одну мутацию
func (h *httpClient) PushChange(ctx context.Context, collection string, doc document.Document, op document.Operation) error {
	req := backend.PushRequest{
		Collection: collection,
		ScopeID:    h.config.ScopeID,
		Operation:  op,
		Document:   doc,
	}

	resp, err := h.doRequest(ctx, "POST", "/api/sync/push", req)
	if err != nil {
		return err
	}

	var pushResp backend.PushResponse
	if err := h.parseResponse(resp, &pushResp); err != nil {
		return err
	}
	if pushResp.Status != "Ok" {
		return fmt.Errorf("ошибка сервера: %s", pushResp.Error)
	}

	return nil
}

// PushBatch отправляет пакет изменений одной транзакцией
func (h *httpClient) PushBatch(ctx context.Context, collection string, changes []document.Change) error {
	req := backend.BatchRequest{
		Collection: collection,
		ScopeID:    h.config.ScopeID,
		Changes:    changes,
	}

	resp, err := h.doRequest(ctx, "POST", "/api/sync/batch", req)
	if err != nil {
		return err
	}

	var batchResp backend.BatchResponse
	if err := h.parseResponse(resp, &batchResp); err != nil {
		return err
	}
	if batchResp.Status != "Ok" {
		return fmt.Errorf("ошибка сервера: %s", batchResp.Error)
	}

	return nil
}

// CollectionStatus возвращает сводку по коллекции с сервера
func (h *httpClient) CollectionStatus(ctx context.Context, collection string) (*backend.CollectionStatus, error) {
	q := url.Values{}
	q.Set("collection", collection)
	if h.config.ScopeID != "" {
		q.Set("scope_id", h.config.ScopeID)
	}

	resp, err := h.doRequest(ctx, "GET", "/api/sync/status?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var statusResp backend.StatusResponse
	if err := h.parseResponse(resp, &statusResp); err != nil {
		return nil, err
	}
	if statusResp.Status != "Ok" {
		return nil, fmt.Errorf("ошибка сервера: %s", statusResp.Error)
	}

	return statusResp.Data, nil
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ",
		"status", resp.StatusCode,
	)

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("ошибка сервера: %s", errResp.Error)
		}
		return fmt.Errorf("ошибка сервера: статус %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}
