package services

import (
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

const exportSheet = "transactions"

// exportService builds spreadsheet exports of a user's transaction history.
type exportService struct {
	db *gorm.DB
}

// NewExportService creates a new ExportServicer.
func NewExportService(db *gorm.DB) ExportServicer {
	return &exportService{db: db}
}

// TransactionsWorkbook renders all of a user's transactions into an xlsx
// workbook with one row per transaction. The caller owns closing the file.
func (s *exportService) TransactionsWorkbook(userID string) (*excelize.File, error) {
	var transactions []models.Transaction
	err := s.db.Preload("Category").
		Where("user_id = ?", userID).
		Order("date").
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	headers := []string{"ID", "Amount", "Type", "Date", "Note", "Category"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	for row, tx := range transactions {
		date := ""
		if tx.Date != nil {
			date = tx.Date.Format("2006-01-02")
		}
		category := ""
		if tx.Category != nil {
			category = tx.Category.Name
		}

		values := []interface{}{
			tx.ID,
			tx.Amount.InexactFloat64(),
			string(tx.Type),
			date,
			tx.Note,
			category,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
	}

	return f, nil
}
