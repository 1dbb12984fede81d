package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fintrack/internal/logger"
	"fintrack/internal/services"
)

// ExportHandler handles spreadsheet export requests.
type ExportHandler struct {
	exportService services.ExportServicer
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService services.ExportServicer) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// ExportTransactions streams the user's transactions as an xlsx workbook.
// @Summary     Export transactions to Excel
// @Description Download all of the authenticated user's transactions as an xlsx workbook
// @Tags        export
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
// @Success     200 {file} file "Workbook"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /export/excel [get]
func (h *ExportHandler) ExportTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	f, err := h.exportService.TransactionsWorkbook(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Get().Warnw("closing export workbook", "error", cerr.Error())
		}
	}()

	filename := fmt.Sprintf("transactions_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		// Headers are already sent; all we can do is log.
		logger.Get().Errorw("writing export workbook", "error", err.Error())
	}
}
