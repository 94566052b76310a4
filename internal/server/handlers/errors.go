package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/service/stock"
)

var statusByKind = map[stock.ErrorKind]int{
	stock.KindInsufficientStock:     http.StatusConflict,
	stock.KindDependentRecordsExist: http.StatusConflict,
	stock.KindSourceLotNotFound:     http.StatusUnprocessableEntity,
	stock.KindInvalidRecord:         http.StatusBadRequest,
	stock.KindRecordNotFound:        http.StatusNotFound,
	stock.KindPersistenceFailure:    http.StatusServiceUnavailable,
}

// writeError maps engine and store failures to HTTP responses.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	se, ok := stock.AsError(err)
	if !ok {
		logger.Error("unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status, ok := statusByKind[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if se.OutcomeUnknown {
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{
		"error":   se.Error(),
		"kind":    se.Kind,
		"details": se,
	})
}
