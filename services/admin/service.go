package admin

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vaultwise-core/pkg/errutil"
	"vaultwise-core/pkg/repository"
	"vaultwise-core/services/ledger"
	"vaultwise-core/services/referral"
	"vaultwise-core/services/wallet"
)

var Module = fx.Module("admin.service", fx.Provide(NewService))

// Service applies staff decisions to pending ledger entries. Authorization
// lives with the surrounding platform; the engine only honors the staff
// capability flag passed in.
type Service struct {
	db           *gorm.DB
	node         *snowflake.Node
	ledger       *ledger.Service
	referrals    *referral.Service
	wallets      *wallet.Store
	transactions repository.Repository[ledger.Transaction]
}

type Params struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Ledger    *ledger.Service
	Referrals *referral.Service
	Wallets   *wallet.Store
}

func NewService(p Params) *Service {
	return &Service{
		db:           p.DB,
		node:         p.Node,
		ledger:       p.Ledger,
		referrals:    p.Referrals,
		wallets:      p.Wallets,
		transactions: repository.ProvideStore[ledger.Transaction](p.DB),
	}
}

// Decide approves or rejects a pending transaction. The status transition,
// any compensating wallet movement and a qualifying referral bonus commit
// as a single unit.
func (s *Service) Decide(ctx context.Context, transactionID snowflake.ID, action ledger.Action, callerIsStaff bool) (*ledger.Transaction, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if !callerIsStaff {
		return nil, errutil.Forbidden("staff privileges required", nil)
	}
	if action != ledger.ActionApprove && action != ledger.ActionReject {
		return nil, errutil.BadRequest("unsupported action", nil)
	}

	txn, err := s.ledger.Find(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.Transition(ctx, tx, txn, action); err != nil {
			return err
		}
		if txn.Type == ledger.TypeDeposit && action == ledger.ActionApprove {
			return s.referrals.QualifyDeposit(ctx, tx, txn.UserID, txn.Amount)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	zap.L().Info("transaction adjudicated",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("action", string(action)),
		zap.String("type", string(txn.Type)),
	)

	return txn, nil
}

// Delete removes a ledger row without reversing any wallet mutation that
// already applied. This is an audit-trail correction, not a business
// transition.
func (s *Service) Delete(ctx context.Context, transactionID snowflake.ID, callerIsStaff bool) error {
	if !callerIsStaff {
		return errutil.Forbidden("staff privileges required", nil)
	}

	txn, err := s.ledger.Find(ctx, transactionID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Delete(&ledger.Transaction{}, "id = ?", txn.ID).Error
}

// ListPending returns the adjudication queue.
func (s *Service) ListPending(ctx context.Context, callerIsStaff bool) ([]*ledger.Transaction, error) {
	if !callerIsStaff {
		return nil, errutil.Forbidden("staff privileges required", nil)
	}
	return s.ledger.ListPending(ctx)
}

// Fund applies a direct staff adjustment to a user's balances with an audit
// entry alongside.
func (s *Service) Fund(ctx context.Context, userID int64, mainDelta, profitDelta decimal.Decimal, callerIsStaff bool) error {
	if !callerIsStaff {
		return errutil.Forbidden("staff privileges required", nil)
	}
	// The audit amount is the total money moved, so opposite-sign deltas
	// add up instead of cancelling out.
	amount := mainDelta.Abs().Add(profitDelta.Abs())
	if amount.IsZero() {
		return errutil.InvalidAmount("nothing to adjust", nil)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.wallets.WithTrx(tx).AdminAdjust(ctx, userID, mainDelta, profitDelta); err != nil {
			return err
		}
		return s.transactions.WithTrx(tx).Create(ctx, &ledger.Transaction{
			ID:     s.node.Generate(),
			UserID: userID,
			Type:   ledger.TypeProfit,
			Amount: amount,
			Status: ledger.StatusCompleted,
			Metadata: ledger.NewMeta(map[string]any{
				"source":       "admin_fund",
				"main_delta":   mainDelta.String(),
				"profit_delta": profitDelta.String(),
			}),
		})
	})
}
