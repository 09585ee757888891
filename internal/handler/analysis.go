package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jonathanw33/mrsa-kds/internal/fasta"
	"github.com/jonathanw33/mrsa-kds/internal/model"
	"github.com/jonathanw33/mrsa-kds/internal/service"
)

type AnalysisHandler struct {
	svc *service.AnalysisService
}

func NewAnalysisHandler(svc *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

// Analyze godoc
// @Summary Analyze a sequence for MRSA resistance
// @Description Uploads a FASTA file, runs the analysis and saves the result to the local history.
// @Tags analysis
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "FASTA file (.fasta, .fa, .fna)"
// @Param threshold formData number false "Similarity threshold (0-1, default 0.75)"
// @Success 200 {object} model.AnalysisResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 413 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/analyses [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	upload, ok := readUpload(c)
	if !ok {
		return
	}

	var threshold *float64
	if raw := strings.TrimSpace(c.PostForm("threshold")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid threshold"})
			return
		}
		threshold = &v
	}

	resp, err := h.svc.Analyze(c.Request.Context(), GetAccessToken(c), upload, threshold)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RunBlast godoc
// @Summary Run a BLAST search
// @Tags analysis
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "FASTA file"
// @Param evalue formData number false "E-value cutoff (default 1e-10)"
// @Param max_hits formData integer false "Maximum hits (default 10)"
// @Success 200 {object} object
// @Failure 400 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/blast [post]
func (h *AnalysisHandler) RunBlast(c *gin.Context) {
	upload, ok := readUpload(c)
	if !ok {
		return
	}

	var evalue float64
	if raw := strings.TrimSpace(c.PostForm("evalue")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid evalue"})
			return
		}
		evalue = v
	}
	var maxHits int
	if raw := strings.TrimSpace(c.PostForm("max_hits")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid max_hits"})
			return
		}
		maxHits = v
	}

	body, err := h.svc.RunBlast(c.Request.Context(), GetAccessToken(c), upload, evalue, maxHits)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// ReferenceGenes godoc
// @Summary List reference resistance genes
// @Tags analysis
// @Produce json
// @Success 200 {object} object
// @Failure 502 {object} model.ErrorResponse
// @Router /api/v1/reference-genes [get]
func (h *AnalysisHandler) ReferenceGenes(c *gin.Context) {
	body, err := h.svc.ReferenceGenes(c.Request.Context(), GetAccessToken(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// readUpload reads the multipart "file" field, answering the request itself
// when the upload is missing or too large.
func readUpload(c *gin.Context) (service.Upload, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "file is required"})
		return service.Upload{}, false
	}
	if header.Size > fasta.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{
			Error: fmt.Sprintf("file exceeds %d MB", fasta.MaxUploadBytes>>20),
		})
		return service.Upload{}, false
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "unreadable upload"})
		return service.Upload{}, false
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, fasta.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "unreadable upload"})
		return service.Upload{}, false
	}
	return service.Upload{Filename: header.Filename, Content: content}, true
}
