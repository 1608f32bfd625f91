package ledger

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vaultwise-core/pkg/config"
	"vaultwise-core/pkg/db/option"
	"vaultwise-core/pkg/errutil"
	"vaultwise-core/pkg/repository"
	"vaultwise-core/services/wallet"
)

// Sweeper settles any matured investments for a user. The ledger invokes it
// before read paths so reported balances include due payouts.
type Sweeper interface {
	Sweep(ctx context.Context, userID int64) error
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

type Service struct {
	db           *gorm.DB
	node         *snowflake.Node
	wallets      *wallet.Store
	transactions repository.Repository[Transaction]

	minWithdraw decimal.Decimal
	sweeper     Sweeper
}

type Params struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Wallets *wallet.Store
	Config  *config.Config
	Sweeper Sweeper `optional:"true"`
}

func NewService(p Params) *Service {
	return &Service{
		db:           p.DB,
		node:         p.Node,
		wallets:      p.Wallets,
		transactions: repository.ProvideStore[Transaction](p.DB),
		minWithdraw:  decimal.NewFromFloat(p.Config.Engine.MinWithdraw),
		sweeper:      p.Sweeper,
	}
}

// RequestDeposit records a pending deposit. The wallet is untouched until
// staff approve the entry.
func (s *Service) RequestDeposit(ctx context.Context, userID int64, amount decimal.Decimal, method, externalTxID string) (*Transaction, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errutil.InvalidAmount("deposit amount must be positive", nil)
	}

	txn := &Transaction{
		ID:     s.node.Generate(),
		UserID: userID,
		Type:   TypeDeposit,
		Amount: amount,
		Status: StatusPending,
		Metadata: NewMeta(map[string]any{
			"method": method,
			"tx_id":  externalTxID,
		}),
	}

	if err := s.transactions.Create(ctx, txn); err != nil {
		zap.L().Error("failed to create deposit entry", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	return txn, nil
}

// RequestWithdraw locks the requested funds immediately: the debit and the
// pending entry commit as one unit, and a later rejection refunds the debit.
func (s *Service) RequestWithdraw(ctx context.Context, userID int64, amount decimal.Decimal, method, destination string) (*Transaction, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errutil.InvalidAmount("withdrawal amount must be positive", nil)
	}
	if amount.LessThan(s.minWithdraw) {
		return nil, errutil.BelowMinimum("withdrawal amount is below the minimum", nil)
	}

	txn := &Transaction{
		ID:     s.node.Generate(),
		UserID: userID,
		Type:   TypeWithdraw,
		Amount: amount,
		Status: StatusPending,
		Metadata: NewMeta(map[string]any{
			"method":      method,
			"destination": destination,
		}),
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.wallets.WithTrx(tx).Debit(ctx, userID, amount); err != nil {
			return err
		}
		return s.transactions.WithTrx(tx).Create(ctx, txn)
	}); err != nil {
		return nil, err
	}

	return txn, nil
}

// Transition applies a staff decision to a pending entry inside the caller's
// transaction. The status flip is a conditional update guarded on the prior
// status, so replaying a decision matches zero rows and no wallet movement
// is ever applied twice.
func (s *Service) Transition(ctx context.Context, tx *gorm.DB, txn *Transaction, action Action) error {
	if txn.Status != StatusPending {
		return errutil.InvalidState("transaction is not pending", nil)
	}

	next := StatusCompleted
	if action == ActionReject {
		next = StatusRejected
	}

	res := tx.WithContext(ctx).Model(&Transaction{}).
		Where("id = ? AND status = ?", txn.ID, StatusPending).
		Updates(map[string]any{"status": next, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.InvalidState("transaction is not pending", nil)
	}

	wallets := s.wallets.WithTrx(tx)
	switch {
	case txn.Type == TypeDeposit && action == ActionApprove:
		if err := wallets.Credit(ctx, txn.UserID, txn.Amount); err != nil {
			return err
		}
	case txn.Type == TypeWithdraw && action == ActionReject:
		// Funds were locked at request time; put them back.
		if err := wallets.Credit(ctx, txn.UserID, txn.Amount); err != nil {
			return err
		}
	}

	txn.Status = next
	return nil
}

// Find returns a single entry by id, regardless of owner.
func (s *Service) Find(ctx context.Context, id snowflake.ID) (*Transaction, error) {
	txn, err := s.transactions.FindOne(ctx, &Transaction{ID: id})
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, errutil.NotFound("transaction not found", nil)
	}
	return txn, nil
}

// List returns the user's ledger, most recent first. A limit of zero returns
// everything.
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	return s.transactions.Find(ctx, &Transaction{UserID: userID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
		option.WithLimit(limit),
	)
}

// ListPending returns all entries awaiting adjudication, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]*Transaction, error) {
	return s.transactions.Find(ctx, &Transaction{Status: StatusPending},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
}

type DashboardSummary struct {
	MainBalance      decimal.Decimal `json:"main_balance"`
	ProfitBalance    decimal.Decimal `json:"profit_balance"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	TotalInvestments decimal.Decimal `json:"total_investments"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	Recent           []*Transaction  `json:"recent"`
}

// GetDashboardSummary sweeps matured investments for the user and then folds
// the ledger into per-type totals plus the ten most recent entries.
func (s *Service) GetDashboardSummary(ctx context.Context, userID int64) (*DashboardSummary, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if s.sweeper != nil {
		if err := s.sweeper.Sweep(ctx, userID); err != nil {
			zap.L().Error("maturity sweep failed", zap.Int64("user_id", userID), zap.Error(err))
			return nil, err
		}
	}

	w, err := s.wallets.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	txns, err := s.List(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	sum := func(typ Type, statuses ...Status) decimal.Decimal {
		total := decimal.Zero
		for _, t := range txns {
			if t.Type != typ {
				continue
			}
			for _, st := range statuses {
				if t.Status == st {
					total = total.Add(t.Amount)
					break
				}
			}
		}
		return total
	}

	// Earnings are profit entries plus the profit portion of each payout;
	// a payout's amount is principal plus profit, so only its metadata
	// carries the earned part.
	earnings := sum(TypeProfit, StatusCompleted)
	for _, t := range txns {
		if t.Type != TypePayout || t.Status != StatusCompleted {
			continue
		}
		profit, err := decimal.NewFromString(t.MetaString("profit"))
		if err != nil {
			continue
		}
		earnings = earnings.Add(profit)
	}

	out := &DashboardSummary{
		MainBalance:      w.MainBalance,
		ProfitBalance:    w.ProfitBalance,
		TotalDeposits:    sum(TypeDeposit, StatusCompleted),
		TotalWithdrawals: sum(TypeWithdraw, StatusCompleted),
		TotalInvestments: sum(TypeInvestment, StatusActive, StatusCompleted),
		TotalEarnings:    earnings,
		Recent:           txns,
	}
	if len(out.Recent) > 10 {
		out.Recent = out.Recent[:10]
	}

	return out, nil
}
