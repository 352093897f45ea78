package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/showyourproject/backend/pkg/db/pagination"
	"gorm.io/gorm"
)

type AwardRequest struct {
	UserID      snowflake.ID
	Action      Action
	Amount      int64
	ProjectID   *snowflake.ID
	Description string
}

type SpendRequest struct {
	UserID      snowflake.ID
	Action      Action
	Amount      int64
	ProjectID   *snowflake.ID
	Description string
}

type HistoryRequest struct {
	UserID    string
	PageToken string
	PageSize  int32
}

type HistoryResponse struct {
	pagination.PageInfo
	Transactions []PointTransaction `json:"transactions"`
}

// Service is the single authority over user point balances. Every mutation
// appends a PointTransaction and adjusts the user counters in one
// transaction; a failure persists neither half.
type Service interface {
	Award(ctx context.Context, req AwardRequest) (PointTransaction, error)
	Spend(ctx context.Context, req SpendRequest) (PointTransaction, error)
	// SpendTx runs the debit inside a caller-owned transaction so callers
	// can make the debit atomic with their own writes.
	SpendTx(ctx context.Context, tx *gorm.DB, req SpendRequest) (PointTransaction, error)
	Balance(ctx context.Context, userID snowflake.ID) (int64, error)
	History(ctx context.Context, req HistoryRequest) (HistoryResponse, error)
}

var (
	ErrInvalidAction      = errors.New("invalid_action")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidID          = errors.New("invalid_id")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrInsufficientPoints = errors.New("insufficient_points")
)
