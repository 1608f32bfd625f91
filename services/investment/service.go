package investment

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
	"vaultwise-core/services/ledger"
	"vaultwise-core/services/wallet"
)

type Service struct {
	db           *gorm.DB
	node         *snowflake.Node
	wallets      *wallet.Store
	investments  repository.Repository[Investment]
	transactions repository.Repository[ledger.Transaction]
	plans        map[string]Plan

	// Shortest configured holding period; no position younger than this can
	// be due, so the sweep filters on it in SQL.
	minHolding time.Duration
}

type Params struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Wallets *wallet.Store
	Config  *config.Config
}

func NewService(p Params) *Service {
	plans := PlansFromConfig(p.Config)

	var minHolding time.Duration
	for _, plan := range plans {
		if minHolding == 0 || plan.HoldingPeriod < minHolding {
			minHolding = plan.HoldingPeriod
		}
	}

	return &Service{
		db:           p.DB,
		node:         p.Node,
		wallets:      p.Wallets,
		investments:  repository.ProvideStore[Investment](p.DB),
		transactions: repository.ProvideStore[ledger.Transaction](p.DB),
		plans:        plans,
		minHolding:   minHolding,
	}
}

// Invest debits the principal and records the position in both
// representations (registry row plus investment-type ledger entry) as one
// atomic unit.
func (s *Service) Invest(ctx context.Context, userID int64, planName string, principal decimal.Decimal) (*Investment, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	plan, ok := s.plans[planName]
	if !ok {
		return nil, errutil.UnknownPlan("unknown investment plan", nil)
	}
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, errutil.InvalidAmount("investment principal must be positive", nil)
	}

	txn := &ledger.Transaction{
		ID:     s.node.Generate(),
		UserID: userID,
		Type:   ledger.TypeInvestment,
		Amount: principal,
		Status: ledger.StatusActive,
		Metadata: ledger.NewMeta(map[string]any{
			"plan": plan.Name,
			"rate": plan.Rate.InexactFloat64(),
		}),
	}
	inv := &Investment{
		ID:         s.node.Generate(),
		UserID:     userID,
		Plan:       plan.Name,
		Principal:  principal,
		Earnings:   decimal.Zero,
		Status:     StatusActive,
		LedgerTxID: txn.ID,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.wallets.WithTrx(tx).Debit(ctx, userID, principal); err != nil {
			return err
		}
		if err := s.investments.WithTrx(tx).Create(ctx, inv); err != nil {
			return err
		}
		return s.transactions.WithTrx(tx).Create(ctx, txn)
	}); err != nil {
		return nil, err
	}

	return inv, nil
}

// Sweep settles every matured position belonging to the user. It first folds
// legacy ledger-only positions into the registry, then matures registry rows.
// Each position is settled in its own transaction: a failure on one is
// logged and does not block the rest, and the conditional completion makes
// a rerun of the sweep a no-op.
func (s *Service) Sweep(ctx context.Context, userID int64) error {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if err := s.migrateLegacy(ctx, userID); err != nil {
		return err
	}

	now := time.Now()
	active, err := s.investments.Find(ctx, &Investment{UserID: userID, Status: StatusActive},
		option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.LTE,
			Value:    now.Add(-s.minHolding),
		}),
	)
	if err != nil {
		return err
	}

	for _, inv := range active {
		plan, ok := s.plans[inv.Plan]
		if !ok {
			zap.L().Warn("active investment references unknown plan",
				zap.Int64("user_id", userID),
				zap.String("plan", inv.Plan),
				zap.String("investment_id", inv.ID.String()),
			)
			continue
		}
		if now.Sub(inv.CreatedAt) < plan.HoldingPeriod {
			continue
		}
		if err := s.settle(ctx, inv, plan); err != nil {
			zap.L().Error("failed to settle matured investment",
				zap.Int64("user_id", userID),
				zap.String("investment_id", inv.ID.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

// settle pays out one matured position: principal plus profit to the main
// balance, profit accrued on the profit balance, registry row and linked
// ledger row completed, and a terminal payout entry appended. All inside one
// transaction keyed on the Active -> Completed flip.
func (s *Service) settle(ctx context.Context, inv *Investment, plan Plan) error {
	profit := inv.Principal.Mul(plan.Rate).Round(2)
	payout := inv.Principal.Add(profit)

	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Model(&Investment{}).
			Where("id = ? AND status = ?", inv.ID, StatusActive).
			Updates(map[string]any{
				"status":     StatusCompleted,
				"earnings":   profit,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already settled by a concurrent sweep.
			return nil
		}

		wallets := s.wallets.WithTrx(tx)
		if err := wallets.Credit(ctx, inv.UserID, payout); err != nil {
			return err
		}
		if err := wallets.CreditProfit(ctx, inv.UserID, profit); err != nil {
			return err
		}

		if inv.LedgerTxID != 0 {
			if err := tx.WithContext(ctx).Model(&ledger.Transaction{}).
				Where("id = ? AND status = ?", inv.LedgerTxID, ledger.StatusActive).
				Updates(map[string]any{"status": ledger.StatusCompleted, "updated_at": time.Now()}).
				Error; err != nil {
				return err
			}
		}

		return s.transactions.WithTrx(tx).Create(ctx, &ledger.Transaction{
			ID:     s.node.Generate(),
			UserID: inv.UserID,
			Type:   ledger.TypePayout,
			Amount: payout,
			Status: ledger.StatusCompleted,
			Metadata: ledger.NewMeta(map[string]any{
				"source":    "investment",
				"plan":      plan.Name,
				"principal": inv.Principal.String(),
				"profit":    profit.String(),
			}),
		})
	})
}

// migrateLegacy converts investment-type ledger entries that predate the
// registry into registry rows, so the registry is the single maturing
// representation. Rows whose plan no longer exists are left alone.
func (s *Service) migrateLegacy(ctx context.Context, userID int64) error {
	entries, err := s.transactions.Find(ctx, &ledger.Transaction{
		UserID: userID,
		Type:   ledger.TypeInvestment,
		Status: ledger.StatusActive,
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	registered, err := s.investments.Find(ctx, &Investment{UserID: userID})
	if err != nil {
		return err
	}
	linked := make(map[snowflake.ID]bool, len(registered))
	for _, inv := range registered {
		linked[inv.LedgerTxID] = true
	}

	for _, entry := range entries {
		if linked[entry.ID] {
			continue
		}
		plan, ok := s.plans[entry.MetaString("plan")]
		if !ok {
			zap.L().Warn("legacy investment entry references unknown plan",
				zap.Int64("user_id", userID),
				zap.String("transaction_id", entry.ID.String()),
				zap.String("plan", entry.MetaString("plan")),
			)
			continue
		}

		entry := entry
		if err := s.db.Transaction(func(tx *gorm.DB) error {
			// Re-check under lock so two concurrent sweeps cannot both
			// register the same legacy entry.
			current, err := s.transactions.WithTrx(tx).FindOne(ctx,
				&ledger.Transaction{ID: entry.ID},
				option.WithLockingUpdate(),
			)
			if err != nil {
				return err
			}
			if current == nil || current.Status != ledger.StatusActive {
				return nil
			}
			dup, err := s.investments.WithTrx(tx).FindOne(ctx, &Investment{LedgerTxID: entry.ID})
			if err != nil {
				return err
			}
			if dup != nil {
				return nil
			}

			return s.investments.WithTrx(tx).Create(ctx, &Investment{
				ID:         s.node.Generate(),
				UserID:     userID,
				Plan:       plan.Name,
				Principal:  entry.Amount,
				Earnings:   decimal.Zero,
				Status:     StatusActive,
				LedgerTxID: entry.ID,
				CreatedAt:  entry.CreatedAt,
			})
		}); err != nil {
			zap.L().Error("failed to migrate legacy investment entry",
				zap.Int64("user_id", userID),
				zap.String("transaction_id", entry.ID.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

// List sweeps first, then returns the user's positions with projected
// earnings and payout date computed for still-active ones.
func (s *Service) List(ctx context.Context, userID int64) ([]*View, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if err := s.Sweep(ctx, userID); err != nil {
		return nil, err
	}

	invs, err := s.investments.Find(ctx, &Investment{UserID: userID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
	if err != nil {
		return nil, err
	}

	out := make([]*View, 0, len(invs))
	for _, inv := range invs {
		view := &View{Investment: *inv}
		if inv.Status == StatusActive {
			if plan, ok := s.plans[inv.Plan]; ok {
				view.ProjectedEarnings = inv.Principal.Mul(plan.Rate).Round(2)
				view.PayoutDate = inv.CreatedAt.Add(plan.HoldingPeriod)
			}
		}
		out = append(out, view)
	}

	return out, nil
}
