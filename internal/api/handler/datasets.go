package handler

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/logger"
	"github.com/timmy/insights/internal/service"
	"github.com/timmy/insights/internal/store"
	"github.com/timmy/insights/internal/view"
)

// DatasetStore is the part of *store.Store the handlers use.
type DatasetStore interface {
	Subscribe(obs store.Observer) *store.Subscription
	Load(ctx context.Context) error
	Upload(ctx context.Context, meta domain.FileMeta) (string, error)
	Delete(id string) error
	MarkAnalyzed(id string) error
	MarkAllAnalyzed() int
	Snapshot() []domain.Dataset
	Get(id string) (domain.Dataset, error)
	Version() uint64
}

// DatasetHandler serves the dataset collection.
type DatasetHandler struct {
	store    DatasetStore
	analysis *service.AnalysisService
	maxBytes int64
}

// NewDatasetHandler creates a dataset handler. Uploads larger than
// maxBytes are rejected.
func NewDatasetHandler(s DatasetStore, analysis *service.AnalysisService, maxBytes int64) *DatasetHandler {
	return &DatasetHandler{store: s, analysis: analysis, maxBytes: maxBytes}
}

// List handles GET /api/v1/datasets?search=&status=.
func (h *DatasetHandler) List(c *gin.Context) {
	filter, err := view.ParseStatusFilter(c.Query("status"))
	if err != nil {
		respondError(c, NewBadRequestError("Invalid status filter", err))
		return
	}
	all := h.store.Snapshot()
	items := view.Project(all, c.Query("search"), filter)
	c.JSON(http.StatusOK, gin.H{
		"datasets": items,
		"count":    len(items),
		"total":    len(all),
		"version":  h.store.Version(),
	})
}

// Summary handles GET /api/v1/datasets/summary.
func (h *DatasetHandler) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, view.Summarize(h.store.Snapshot()))
}

// Get handles GET /api/v1/datasets/:id.
func (h *DatasetHandler) Get(c *gin.Context) {
	ds, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

// Load handles POST /api/v1/datasets/load.
func (h *DatasetHandler) Load(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.store.Load(ctx); err != nil {
		respondError(c, err)
		return
	}
	count := len(h.store.Snapshot())
	logger.CtxInfo(ctx, "Datasets reloaded: count=%d", count)
	c.JSON(http.StatusOK, gin.H{"count": count, "version": h.store.Version()})
}

// Upload handles POST /api/v1/datasets (multipart field "file", optional
// comma separated "tags"). CSV files are profiled before they are stored.
func (h *DatasetHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, NewBadRequestError("A file is required", err))
		return
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		respondError(c, NewTooLargeError(fh.Size, h.maxBytes))
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, NewBadRequestError("Could not read the uploaded file", err))
		return
	}
	defer f.Close()

	meta := domain.FileMeta{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
		Tags:        splitTags(c.PostForm("tags")),
	}

	if strings.EqualFold(path.Ext(fh.Filename), ".csv") {
		if prof, perr := service.ProfileCSV(f); perr != nil {
			logger.CtxWarn(ctx, "CSV profiling failed for %s: %v", fh.Filename, perr)
		} else {
			meta.Rows, meta.Columns = prof.Rows, prof.Columns
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			respondError(c, NewBadRequestError("Could not read the uploaded file", err))
			return
		}
	}

	id, err := h.store.Upload(ctx, meta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

// Delete handles DELETE /api/v1/datasets/:id.
func (h *DatasetHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Analyze handles POST /api/v1/datasets/:id/analyze. The dataset is
// marked analyzed and its insights are returned.
func (h *DatasetHandler) Analyze(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.MarkAnalyzed(id); err != nil {
		respondError(c, err)
		return
	}
	ds, err := h.store.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	in, err := h.analysis.Insights(c.Request.Context(), ds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dataset": ds, "insights": in})
}

// AnalyzeAll handles POST /api/v1/datasets/analyze.
func (h *DatasetHandler) AnalyzeAll(c *gin.Context) {
	n := h.store.MarkAllAnalyzed()
	c.JSON(http.StatusOK, gin.H{"analyzed": n})
}

// Correlations handles GET /api/v1/datasets/correlations.
func (h *DatasetHandler) Correlations(c *gin.Context) {
	corr := service.Correlate(h.store.Snapshot())
	c.JSON(http.StatusOK, gin.H{"correlations": corr, "count": len(corr)})
}

// Insights handles GET /api/v1/analysis/insights/:id.
func (h *DatasetHandler) Insights(c *gin.Context) {
	ds, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	in, err := h.analysis.Insights(c.Request.Context(), ds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, in)
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
