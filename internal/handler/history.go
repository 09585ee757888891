package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonathanw33/mrsa-kds/internal/model"
	"github.com/jonathanw33/mrsa-kds/internal/service"
)

type HistoryHandler struct {
	history *service.HistoryService
	explain *service.ExplainService
}

func NewHistoryHandler(history *service.HistoryService, explain *service.ExplainService) *HistoryHandler {
	return &HistoryHandler{history: history, explain: explain}
}

// List godoc
// @Summary List analysis history
// @Description Server-side history when reachable, otherwise the locally saved results (most recent first).
// @Tags history
// @Produce json
// @Success 200 {object} model.HistoryListResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.history.List(c.Request.Context(), GetAccessToken(c)))
}

// Get godoc
// @Summary Get one analysis result
// @Description key is a record id, a savedAt stamp or a position in the local history.
// @Tags history
// @Produce json
// @Param key path string true "Record id, savedAt or position"
// @Success 200 {object} model.HistoryDetailEnvelope
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/history/{key} [get]
func (h *HistoryHandler) Get(c *gin.Context) {
	env, err := h.history.Get(c.Request.Context(), GetAccessToken(c), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// Delete godoc
// @Summary Remove a locally saved result
// @Tags history
// @Produce json
// @Param key path string true "Record id, savedAt or position"
// @Success 200 {object} model.HistoryDeleteResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/history/{key} [delete]
func (h *HistoryHandler) Delete(c *gin.Context) {
	key := c.Param("key")
	if err := h.history.Remove(c.Request.Context(), key); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.HistoryDeleteResponse{Status: "deleted", Key: key})
}

// Explain godoc
// @Summary Explain a result in plain language
// @Tags history
// @Produce json
// @Param key path string true "Record id, savedAt or position"
// @Success 200 {object} model.ExplainResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /api/v1/history/{key}/explain [post]
func (h *HistoryHandler) Explain(c *gin.Context) {
	resp, err := h.explain.Explain(c.Request.Context(), GetAccessToken(c), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
