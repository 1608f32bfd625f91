package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vaultwise-core/pkg/errutil"
	"vaultwise-core/pkg/repository"
)

var Module = fx.Module("wallet.store", fx.Provide(NewStore))

// Store is the only writer of wallet rows. Every mutation is a single
// conditional UPDATE so two concurrent movements on the same wallet can
// never lose each other, and a debit can never drive the balance negative.
type Store struct {
	db      *gorm.DB
	wallets repository.Repository[Wallet]
}

type Params struct {
	fx.In
	DB *gorm.DB
}

func NewStore(p Params) *Store {
	return &Store{
		db:      p.DB,
		wallets: repository.ProvideStore[Wallet](p.DB),
	}
}

// WithTrx rebinds the store to an open transaction so a balance movement
// commits or rolls back together with its ledger transition.
func (s *Store) WithTrx(tx *gorm.DB) *Store {
	if tx == nil {
		return s
	}
	return &Store{
		db:      tx,
		wallets: s.wallets.WithTrx(tx),
	}
}

// Get returns the user's wallet, provisioning a zero wallet on first use.
func (s *Store) Get(ctx context.Context, userID int64) (*Wallet, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}
	return s.wallets.FindOne(ctx, &Wallet{UserID: userID})
}

func (s *Store) ensure(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Wallet{UserID: userID, MainBalance: decimal.Zero, ProfitBalance: decimal.Zero}).
		Error
}

// Credit unconditionally increases the main balance.
func (s *Store) Credit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errutil.InvalidAmount("credit amount must be positive", nil)
	}
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(&Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"main_balance": gorm.Expr("main_balance + ?", amount),
			"updated_at":   time.Now(),
		}).Error
}

// CreditProfit increases the accrued-profit balance.
func (s *Store) CreditProfit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errutil.InvalidAmount("credit amount must be positive", nil)
	}
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(&Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"profit_balance": gorm.Expr("profit_balance + ?", amount),
			"updated_at":     time.Now(),
		}).Error
}

// Debit decreases the main balance. The guard lives in the WHERE clause:
// when the balance is short the statement matches zero rows and nothing
// is applied.
func (s *Store) Debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errutil.InvalidAmount("debit amount must be positive", nil)
	}
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&Wallet{}).
		Where("user_id = ? AND main_balance >= ?", userID, amount).
		Updates(map[string]any{
			"main_balance": gorm.Expr("main_balance - ?", amount),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		zap.L().Warn("debit rejected",
			zap.Int64("user_id", userID),
			zap.String("amount", amount.String()),
		)
		return errutil.InsufficientFunds("insufficient balance", nil)
	}

	return nil
}

// AdminAdjust applies a staff override to either balance. Deltas may be
// negative but the movement is refused when it would leave a balance
// below zero.
func (s *Store) AdminAdjust(ctx context.Context, userID int64, mainDelta, profitDelta decimal.Decimal) error {
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&Wallet{}).
		Where("user_id = ? AND main_balance + ? >= 0 AND profit_balance + ? >= 0", userID, mainDelta, profitDelta).
		Updates(map[string]any{
			"main_balance":   gorm.Expr("main_balance + ?", mainDelta),
			"profit_balance": gorm.Expr("profit_balance + ?", profitDelta),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.InsufficientFunds("adjustment would leave a negative balance", nil)
	}

	return nil
}
