package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/countrycache/internal/config"
	"github.com/hpungsan/countrycache/internal/db"
	"github.com/hpungsan/countrycache/internal/errors"
	"github.com/hpungsan/countrycache/internal/ops"
	"github.com/hpungsan/countrycache/internal/report"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store     *db.Store
	refresher *ops.Refresher
	renderer  *report.Renderer
	cfg       *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store *db.Store, refresher *ops.Refresher, renderer *report.Renderer, cfg *config.Config) *Handlers {
	return &Handlers{store: store, refresher: refresher, renderer: renderer, cfg: cfg}
}

// ListRequest represents the arguments for country_list.
type ListRequest struct {
	Region   string `json:"region,omitempty"`
	Currency string `json:"currency,omitempty"`
	Sort     string `json:"sort,omitempty"`
}

// NameRequest represents the arguments for country_get and country_delete.
type NameRequest struct {
	Name string `json:"name"`
}

// StatusOutput is the country_status result.
type StatusOutput struct {
	TotalCountries  int     `json:"total_countries"`
	LastRefreshedAt *string `json:"last_refreshed_at"`
	SummaryImage    *string `json:"summary_image"`
}

// HandleRefresh handles the country_refresh tool call.
func (h *Handlers) HandleRefresh(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.refresher.Refresh(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the country_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.store, ops.ListInput{
		Region:   input.Region,
		Currency: input.Currency,
		Sort:     input.Sort,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGet handles the country_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.store, ops.FetchInput{Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the country_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.store, ops.DeleteInput{Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStatus handles the country_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := ops.Status(ctx, h.store)
	if err != nil {
		return errorResult(err), nil
	}

	out := StatusOutput{
		TotalCountries:  status.TotalCountries,
		LastRefreshedAt: status.LastRefreshedAt,
	}
	if path, err := ops.SummaryImage(h.renderer); err == nil {
		out.SummaryImage = &path
	}
	return successResult(out)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// INTERNAL messages and details are withheld; they can carry SQL or file paths.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Code != errors.ErrInternal {
		errorObj := map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
			"status":  appErr.Status,
		}
		if appErr.Details != nil {
			errorObj["details"] = appErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
