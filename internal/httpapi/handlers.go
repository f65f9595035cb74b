package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/khanglvm/devtools-hub/internal/blob"
	"github.com/khanglvm/devtools-hub/internal/history"
	"github.com/khanglvm/devtools-hub/internal/ranking"
	"github.com/khanglvm/devtools-hub/internal/storage"
)

// HistoryService is the history API used by the handlers.
type HistoryService interface {
	Add(ctx context.Context, tool string, params url.Values, e history.Entry) (storage.HistoryRecord, error)
	List(ctx context.Context, tool string, limit int) ([]history.Item, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context, tool string) error
	Search(ctx context.Context, tool, text string, limit int) ([]history.Item, error)
}

// PreferenceService is the preference API used by the handlers.
type PreferenceService interface {
	Get(ctx context.Context, tool string) (map[string]any, error)
	Set(ctx context.Context, tool string, data map[string]any) error
	Merge(ctx context.Context, tool string, partial map[string]any) (map[string]any, error)
	Delete(ctx context.Context, tool string) error
}

// Services are the backends served by the API.
type Services struct {
	History     HistoryService
	Preferences PreferenceService
	Ranker      *ranking.Scorer
	Stats       ranking.StatsSource
}

type handlers struct {
	svc Services
	log zerolog.Logger
}

type addHistoryRequest struct {
	Input        string `json:"input"`
	Output       string `json:"output"`
	InputBase64  []byte `json:"inputBase64"`
	OutputBase64 []byte `json:"outputBase64"`
	InputType    string `json:"inputType"`
	OutputType   string `json:"outputType"`
	Label        string `json:"label"`
	// Params is the query string the tool was used with.
	Params string `json:"params"`
}

func (r addHistoryRequest) entry() history.Entry {
	e := history.Entry{
		Input:      r.Input,
		Output:     r.Output,
		InputType:  r.InputType,
		OutputType: r.OutputType,
		Label:      r.Label,
	}
	if r.InputBase64 != nil {
		e.Input = r.InputBase64
	}
	if r.OutputBase64 != nil {
		e.Output = r.OutputBase64
	}
	return e
}

type historyEntryResponse struct {
	history.Item
	InputBase64  []byte `json:"inputBase64,omitempty"`
	OutputBase64 []byte `json:"outputBase64,omitempty"`
}

func toEntryResponses(items []history.Item) []historyEntryResponse {
	out := make([]historyEntryResponse, len(items))
	for i, item := range items {
		out[i] = historyEntryResponse{Item: item}
		if !blob.IsTextType(item.InputType) {
			out[i].InputBase64 = item.Input
		}
		if !blob.IsTextType(item.OutputType) {
			out[i].OutputBase64 = item.Output
		}
	}
	return out
}

func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		badRequest(c, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

func (h *handlers) listTools(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	tools, err := h.svc.Ranker.RankTools(c.Request.Context(), h.svc.Stats, limit)
	if err != nil {
		h.fail(c, err, "failed to rank tools")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

func (h *handlers) listHistory(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	items, err := h.svc.History.List(c.Request.Context(), c.Param("tool"), limit)
	if err != nil {
		h.fail(c, err, "failed to list history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": toEntryResponses(items)})
}

func (h *handlers) addHistory(c *gin.Context) {
	var req addHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	params, err := url.ParseQuery(req.Params)
	if err != nil {
		badRequest(c, "params must be a query string")
		return
	}

	rec, err := h.svc.History.Add(c.Request.Context(), c.Param("tool"), params, req.entry())
	if err != nil {
		h.fail(c, err, "failed to add history")
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *handlers) clearHistory(c *gin.Context) {
	if err := h.svc.History.Clear(c.Request.Context(), c.Param("tool")); err != nil {
		h.fail(c, err, "failed to clear history")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) deleteHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "id must be an integer")
		return
	}
	if err := h.svc.History.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, "failed to delete history entry")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) searchHistory(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	items, err := h.svc.History.Search(c.Request.Context(), c.Param("tool"), c.Query("q"), limit)
	if err != nil {
		h.fail(c, err, "failed to search history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": toEntryResponses(items)})
}

func (h *handlers) getPreferences(c *gin.Context) {
	data, err := h.svc.Preferences.Get(c.Request.Context(), c.Param("tool"))
	if err != nil {
		h.fail(c, err, "failed to load preferences")
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no preferences stored"})
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *handlers) putPreferences(c *gin.Context) {
	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c, "body must be a JSON object")
		return
	}
	if err := h.svc.Preferences.Set(c.Request.Context(), c.Param("tool"), data); err != nil {
		h.fail(c, err, "failed to save preferences")
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	c.JSON(http.StatusOK, data)
}

func (h *handlers) patchPreferences(c *gin.Context) {
	var partial map[string]any
	if err := c.ShouldBindJSON(&partial); err != nil {
		badRequest(c, "body must be a JSON object")
		return
	}
	merged, err := h.svc.Preferences.Merge(c.Request.Context(), c.Param("tool"), partial)
	if err != nil {
		h.fail(c, err, "failed to merge preferences")
		return
	}
	c.JSON(http.StatusOK, merged)
}

func (h *handlers) deletePreferences(c *gin.Context) {
	if err := h.svc.Preferences.Delete(c.Request.Context(), c.Param("tool")); err != nil {
		h.fail(c, err, "failed to delete preferences")
		return
	}
	c.Status(http.StatusNoContent)
}
