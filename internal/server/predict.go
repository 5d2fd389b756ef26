package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hed1ad/theftguard/internal/logging"
	"github.com/hed1ad/theftguard/internal/metrics"
	tgio "github.com/hed1ad/theftguard/pkg/io"
	"github.com/hed1ad/theftguard/pkg/io/csv"
	"github.com/hed1ad/theftguard/pkg/scoring"
)

// predictHandler scores uploaded usage files. Nothing is stored.
type predictHandler struct {
	scorer   *scoring.Scorer
	metrics  *metrics.Metrics
	maxBytes int64
}

func newPredictHandler(scorer *scoring.Scorer, m *metrics.Metrics, maxBytes int64) *predictHandler {
	return &predictHandler{scorer: scorer, metrics: m, maxBytes: maxBytes}
}

// RegisterRoutes sets up prediction routes under the given group.
func (h *predictHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/predict", h.Predict)
}

// Predict scores every row of the uploaded CSV in the "file" form field.
// The first row's verdict is returned as the headline verdict.
func (h *predictHandler) Predict(c *gin.Context) {
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload_too_large", "message": "upload exceeds size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file", "message": "multipart field \"file\" is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_file", "message": err.Error()})
		return
	}
	defer f.Close()

	reader, err := csv.NewReaderFrom(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_csv", "message": err.Error()})
		return
	}
	rows, err := reader.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_csv", "message": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_upload", "message": tgio.ErrEmptyUpload.Error()})
		return
	}
	h.metrics.UploadedRowsTotal.Add(float64(len(rows)))

	results, err := h.scorer.ScoreAll(rows)
	if err != nil {
		logging.L(ctx).Error("scoring failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	coerced := 0
	for _, r := range results {
		coerced += r.CoercedReadings
		h.metrics.PredictionsTotal.WithLabelValues(r.Prediction.Label.String()).Inc()
	}
	h.metrics.CoercedReadings.Add(float64(coerced))

	if coerced > 0 {
		logging.L(ctx).Warn("readings coerced to zero",
			zap.String("file", fh.Filename),
			zap.Int("coerced", coerced),
		)
	}

	c.JSON(http.StatusOK, gin.H{
		"verdict":          results[0].Verdict,
		"results":          results,
		"count":            len(results),
		"reading_columns":  len(reader.ReadingColumns()),
		"coerced_readings": coerced,
		"model_run_id":     h.scorer.RunID(),
	})
}
