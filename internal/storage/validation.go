// Package storage provides the SQLite record store behind the gateway's collaborator contracts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spicewise/internal/model"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrInvalidDateRange    = errors.New("start date must be before end date")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInvalidConversation = errors.New("invalid conversation")
	ErrInvalidMessage      = errors.New("invalid message")
	ErrInvalidInsight      = errors.New("invalid insight")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.Account) == "" {
		return fmt.Errorf("%w: missing account", ErrInvalidTransaction)
	}
	if txn.Type != model.CategoryTypeIncome && txn.Type != model.CategoryTypeExpense {
		return fmt.Errorf("%w: type %q", ErrInvalidTransaction, txn.Type)
	}
	return nil
}

func validateConversation(conv *model.Conversation) error {
	if conv == nil {
		return fmt.Errorf("%w: conversation", ErrNilParameter)
	}
	if conv.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidConversation)
	}
	if conv.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing creation time", ErrInvalidConversation)
	}
	return nil
}

func validateMessage(msg *model.Message) error {
	switch msg.Role {
	case model.RoleUser, model.RoleAssistant, model.RoleSystem:
	default:
		return fmt.Errorf("%w: role %q", ErrInvalidMessage, msg.Role)
	}
	if msg.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidMessage)
	}
	return nil
}

func validateInsight(insight *model.InsightResult) error {
	if insight == nil {
		return fmt.Errorf("%w: insight", ErrNilParameter)
	}
	if strings.TrimSpace(insight.Period) == "" {
		return fmt.Errorf("%w: missing period", ErrInvalidInsight)
	}
	return nil
}
