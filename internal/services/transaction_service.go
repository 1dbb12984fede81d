package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

// transactionService handles transaction-related business logic. Every
// expense write runs through the budget evaluation engine first.
type transactionService struct {
	db            *gorm.DB
	budgetService BudgetServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, budgetService BudgetServicer) TransactionServicer {
	return &transactionService{db: db, budgetService: budgetService}
}

func validateTransactionInput(input TransactionInput) error {
	switch input.Type {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
	default:
		return apperrors.ErrInvalidTransactionType
	}
	if input.Amount.Sign() < 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be negative")
	}
	return nil
}

// resolveCategory checks that a referenced category exists and belongs to the
// user. A nil reference passes through untouched.
func (s *transactionService) resolveCategory(userID string, categoryID *string) (*string, error) {
	if categoryID == nil || *categoryID == "" {
		return nil, nil
	}

	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", *categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category.ID, nil
}

// CreateTransaction validates and persists a new transaction. Expenses are
// checked against the month's budgets: a prevent-exceed budget rejects the
// write, otherwise an over-limit expense persists with a warning attached.
func (s *transactionService) CreateTransaction(userID string, input TransactionInput) (*models.Transaction, *BudgetValidation, error) {
	if err := validateTransactionInput(input); err != nil {
		return nil, nil, err
	}

	categoryID, err := s.resolveCategory(userID, input.CategoryID)
	if err != nil {
		return nil, nil, err
	}

	tx := &models.Transaction{
		UserID:     userID,
		CategoryID: categoryID,
		Type:       input.Type,
		Amount:     input.Amount,
		Date:       input.Date,
		Note:       input.Note,
	}

	validation := &BudgetValidation{Allowed: true}
	if tx.IsExpense() {
		validation, err = s.budgetService.ValidateExpense(userID, tx)
		if err != nil {
			return nil, nil, err
		}
		if !validation.Allowed {
			return nil, validation, apperrors.WithMessage(apperrors.ErrBudgetExceeded, validation.Message)
		}
	}

	if err := s.db.Create(tx).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tx, validation, nil
}

// GetUserTransactions returns all of a user's transactions, newest first.
func (s *transactionService) GetUserTransactions(userID string) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.db.Preload("Category").
		Where("user_id = ?", userID).
		Order("date DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// GetTransactionByID returns a transaction if it belongs to the user.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.Preload("Category").
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &tx, nil
}

// UpdateTransaction replaces a transaction's fields and re-validates budget
// constraints when the row is, or becomes, an expense.
func (s *transactionService) UpdateTransaction(userID, transactionID string, input TransactionInput) (*models.Transaction, *BudgetValidation, error) {
	tx, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, nil, err
	}

	if err := validateTransactionInput(input); err != nil {
		return nil, nil, err
	}

	categoryID, err := s.resolveCategory(userID, input.CategoryID)
	if err != nil {
		return nil, nil, err
	}

	tx.Type = input.Type
	tx.Amount = input.Amount
	tx.Date = input.Date
	tx.CategoryID = categoryID
	tx.Category = nil
	tx.Note = input.Note

	validation := &BudgetValidation{Allowed: true}
	if tx.IsExpense() {
		// The stored row still counts toward current spending here; the
		// check is against the history as it exists before this write.
		validation, err = s.budgetService.ValidateExpense(userID, tx)
		if err != nil {
			return nil, nil, err
		}
		if !validation.Allowed {
			return nil, validation, apperrors.WithMessage(apperrors.ErrBudgetExceeded, validation.Message)
		}
	}

	if err := s.db.Save(tx).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tx, validation, nil
}

// DeleteTransaction removes a transaction owned by the user.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	tx, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(tx).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
