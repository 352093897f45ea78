package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/showyourproject/backend/internal/metrics"
	"github.com/showyourproject/backend/internal/points/domain"
	"github.com/showyourproject/backend/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("points.service"),
		genID:   p.GenID,
		metrics: p.Metrics,
	}
}

func (s *Service) Award(ctx context.Context, req domain.AwardRequest) (domain.PointTransaction, error) {
	if err := validate(req.Action, req.Amount, req.UserID); err != nil {
		return domain.PointTransaction{}, err
	}

	var txn domain.PointTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = s.award(ctx, tx, req)
		return err
	})
	if err != nil {
		return domain.PointTransaction{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordPointTransaction(string(domain.DirectionEarned), string(req.Action), req.Amount)
	}
	return txn, nil
}

func (s *Service) award(ctx context.Context, tx *gorm.DB, req domain.AwardRequest) (domain.PointTransaction, error) {
	now := time.Now().UTC()

	result := tx.WithContext(ctx).Exec(
		`UPDATE users
		 SET points_balance = points_balance + ?,
		     points_earned = points_earned + ?,
		     updated_at = ?
		 WHERE id = ?`,
		req.Amount,
		req.Amount,
		now,
		req.UserID,
	)
	if result.Error != nil {
		return domain.PointTransaction{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.PointTransaction{}, domain.ErrUserNotFound
	}

	txn := domain.PointTransaction{
		ID:          s.genID.Generate(),
		UserID:      req.UserID,
		Direction:   domain.DirectionEarned,
		Action:      req.Action,
		Amount:      req.Amount,
		ProjectID:   req.ProjectID,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
	}
	if err := insertTransaction(ctx, tx, txn); err != nil {
		return domain.PointTransaction{}, err
	}
	return txn, nil
}

func (s *Service) Spend(ctx context.Context, req domain.SpendRequest) (domain.PointTransaction, error) {
	var txn domain.PointTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = s.SpendTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return domain.PointTransaction{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordPointTransaction(string(domain.DirectionSpent), string(req.Action), req.Amount)
	}
	return txn, nil
}

// SpendTx debits the balance inside the caller's transaction. The debit is
// a conditional update guarded on points_balance >= amount, so two
// concurrent spends whose sum exceeds the balance cannot both succeed and
// the balance can never go negative. Metrics are the caller's concern; a
// debit only counts once its transaction commits.
func (s *Service) SpendTx(ctx context.Context, tx *gorm.DB, req domain.SpendRequest) (domain.PointTransaction, error) {
	if err := validate(req.Action, req.Amount, req.UserID); err != nil {
		return domain.PointTransaction{}, err
	}

	now := time.Now().UTC()
	result := tx.WithContext(ctx).Exec(
		`UPDATE users
		 SET points_balance = points_balance - ?,
		     points_spent = points_spent + ?,
		     updated_at = ?
		 WHERE id = ? AND points_balance >= ?`,
		req.Amount,
		req.Amount,
		now,
		req.UserID,
		req.Amount,
	)
	if result.Error != nil {
		return domain.PointTransaction{}, result.Error
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM users WHERE id = ?`, req.UserID,
		).Scan(&exists).Error; err != nil {
			return domain.PointTransaction{}, err
		}
		if exists == 0 {
			return domain.PointTransaction{}, domain.ErrUserNotFound
		}
		return domain.PointTransaction{}, domain.ErrInsufficientPoints
	}

	txn := domain.PointTransaction{
		ID:          s.genID.Generate(),
		UserID:      req.UserID,
		Direction:   domain.DirectionSpent,
		Action:      req.Action,
		Amount:      req.Amount,
		ProjectID:   req.ProjectID,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
	}
	if err := insertTransaction(ctx, tx, txn); err != nil {
		return domain.PointTransaction{}, err
	}
	return txn, nil
}

func (s *Service) Balance(ctx context.Context, userID snowflake.ID) (int64, error) {
	if userID == 0 {
		return 0, domain.ErrUserNotFound
	}
	var rows []struct {
		ID            snowflake.ID
		PointsBalance int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, points_balance FROM users WHERE id = ?`, userID,
	).Scan(&rows).Error
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || rows[0].ID == 0 {
		return 0, domain.ErrUserNotFound
	}
	return rows[0].PointsBalance, nil
}

func (s *Service) History(ctx context.Context, req domain.HistoryRequest) (domain.HistoryResponse, error) {
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		return domain.HistoryResponse{}, domain.ErrInvalidID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	stmt := s.db.WithContext(ctx).
		Model(&domain.PointTransaction{}).
		Where("user_id = ?", userID).
		Limit(int(pageSize) + 1)
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.HistoryResponse{}, domain.ErrInvalidID
		}
		createdAt, err := time.Parse(time.RFC3339, cursor.CreatedAt)
		if err != nil {
			return domain.HistoryResponse{}, domain.ErrInvalidID
		}
		cursorID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.HistoryResponse{}, domain.ErrInvalidID
		}
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursorID)
	}

	var items []*domain.PointTransaction
	if err := stmt.Order("created_at desc, id desc").Find(&items).Error; err != nil {
		return domain.HistoryResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(txn *domain.PointTransaction) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        txn.ID.String(),
			CreatedAt: txn.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	transactions := make([]domain.PointTransaction, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		transactions = append(transactions, *item)
	}

	resp := domain.HistoryResponse{Transactions: transactions}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func validate(action domain.Action, amount int64, userID snowflake.ID) error {
	if !action.Valid() {
		return domain.ErrInvalidAction
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if userID == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *gorm.DB, txn domain.PointTransaction) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO point_transactions (id, user_id, direction, action, amount, project_id, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.UserID,
		string(txn.Direction),
		string(txn.Action),
		txn.Amount,
		txn.ProjectID,
		txn.Description,
		txn.CreatedAt,
	).Error
}
