package sync

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"docsync/internal/domain/backend"
)

type Handler struct {
	service    backend.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service backend.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.getChangesOp(), h.getChanges)
	huma.Register(api, h.pushChangeOp(), h.pushChange)
	huma.Register(api, h.pushBatchOp(), h.pushBatch)
	huma.Register(api, h.getStatusOp(), h.getStatus)
}

func (h *Handler) getChanges(ctx context.Context, input *getChangesInput) (*getChangesOutput, error) {
	response, err := h.service.Changes(ctx, input.Body)
	if err != nil {
		return &getChangesOutput{
			Body: backend.ChangesResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &getChangesOutput{
		Body: *response,
	}, nil
}

func (h *Handler) pushChange(ctx context.Context, input *pushChangeInput) (*pushChangeOutput, error) {
	response, err := h.service.Push(ctx, input.Body)
	if err != nil {
		return &pushChangeOutput{
			Body: backend.PushResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &pushChangeOutput{
		Body: *response,
	}, nil
}

func (h *Handler) pushBatch(ctx context.Context, input *pushBatchInput) (*pushBatchOutput, error) {
	response, err := h.service.PushBatch(ctx, input.Body)
	if err != nil {
		return &pushBatchOutput{
			Body: backend.BatchResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &pushBatchOutput{
		Body: *response,
	}, nil
}

func (h *Handler) getStatus(ctx context.Context, input *getStatusInput) (*getStatusOutput, error) {
	response, err := h.service.Status(ctx, input.Collection, input.ScopeID)
	if err != nil {
		return &getStatusOutput{
			Body: backend.StatusResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &getStatusOutput{
		Body: *response,
	}, nil
}
