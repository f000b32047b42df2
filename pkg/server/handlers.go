package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"houseprice/pkg/band"
	"houseprice/pkg/schema"
)

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": serviceName, "ok": true})
}

func (s *Server) health(c *gin.Context) {
	a := s.predictor.Get()
	info := gin.H{
		"fallback": a.Fallback,
		"columns":  len(a.Columns),
	}
	if a.R2 != nil {
		info["r2"] = *a.R2
	}
	if a.RunID != "" {
		info["run_id"] = a.RunID
		info["trained_at"] = a.TrainedAt
		info["rows"] = a.Rows
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "model": info})
}

func (s *Server) predict(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPredictBody))
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	req, err := schema.ParseRequest(bytes.NewReader(body))
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	pred, err := s.predictor.Predict(c.Request.Context(), req)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, pred.Response(c.Query("band") == "true"))
}

func (s *Server) retrain(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			respondWithDomainError(c, err)
			return
		}
		RespondWithError(c, http.StatusBadRequest, ErrBadRequestCode, "multipart field \"file\" is required", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, ErrBadRequestCode, "cannot read uploaded file", err)
		return
	}
	defer f.Close()

	res, err := s.trainer.FitReader(c.Request.Context(), f)
	if err != nil {
		respondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"r2":        res.R2,
		"n_columns": len(res.Columns),
		"run_id":    res.RunID,
		"rows":      res.Rows,
		"mae":       res.MAE,
		"rmse":      res.RMSE,
	})
}

type bandRequest struct {
	Price *float64 `json:"price" binding:"required"`
	R2    *float64 `json:"r2"`
}

func (s *Server) band(c *gin.Context) {
	var req bandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, ErrBadRequestCode, "body must be {\"price\": number, \"r2\": number|null}", err)
		return
	}
	c.JSON(http.StatusOK, band.Compute(*req.Price, req.R2))
}
