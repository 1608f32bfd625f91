package referral

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
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

var Module = fx.Module("referral.service", fx.Provide(NewService))

type Service struct {
	db           *gorm.DB
	node         *snowflake.Node
	wallets      *wallet.Store
	referrals    repository.Repository[Referral]
	transactions repository.Repository[ledger.Transaction]

	bonusRate decimal.Decimal
}

type Params struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Wallets *wallet.Store
	Config  *config.Config
}

func NewService(p Params) *Service {
	return &Service{
		db:           p.DB,
		node:         p.Node,
		wallets:      p.Wallets,
		referrals:    repository.ProvideStore[Referral](p.DB),
		transactions: repository.ProvideStore[ledger.Transaction](p.DB),
		bonusRate:    decimal.NewFromFloat(p.Config.Engine.ReferralBonusRate),
	}
}

// Record registers the referral relationship at sign-up with a zero bonus.
// A user can only ever be referred once.
func (s *Service) Record(ctx context.Context, referrerUserID, referredUserID int64) (*Referral, error) {
	if referrerUserID == referredUserID {
		return nil, errutil.ValidationFailed("users cannot refer themselves", nil)
	}

	existing, err := s.referrals.FindOne(ctx, &Referral{ReferredUserID: referredUserID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.Conflict("user is already referred", nil)
	}

	ref := &Referral{
		ID:             s.node.Generate(),
		ReferrerUserID: referrerUserID,
		ReferredUserID: referredUserID,
		BonusAmount:    decimal.Zero,
	}
	if err := s.referrals.Create(ctx, ref); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errutil.Conflict("user is already referred", err)
		}
		return nil, err
	}
	return ref, nil
}

// QualifyDeposit awards the referrer's bonus for the referred user's first
// completed deposit. It runs inside the deposit-approval transaction; the
// conditional bonus update on bonus_amount = 0 makes it fire at most once.
// A non-referred user is a no-op.
func (s *Service) QualifyDeposit(ctx context.Context, tx *gorm.DB, referredUserID int64, depositAmount decimal.Decimal) error {
	ref, err := s.referrals.WithTrx(tx).FindOne(ctx,
		&Referral{ReferredUserID: referredUserID},
		option.WithLockingUpdate(),
	)
	if err != nil {
		return err
	}
	if ref == nil || ref.BonusAmount.GreaterThan(decimal.Zero) {
		return nil
	}

	bonus := depositAmount.Mul(s.bonusRate).Round(2)
	if bonus.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	res := tx.WithContext(ctx).Model(&Referral{}).
		Where("id = ? AND bonus_amount = 0", ref.ID).
		Update("bonus_amount", bonus)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	if err := s.transactions.WithTrx(tx).Create(ctx, &ledger.Transaction{
		ID:     s.node.Generate(),
		UserID: ref.ReferrerUserID,
		Type:   ledger.TypeProfit,
		Amount: bonus,
		Status: ledger.StatusCompleted,
		Metadata: ledger.NewMeta(map[string]any{
			"source":           "referral",
			"referred_user_id": referredUserID,
		}),
	}); err != nil {
		return err
	}

	if err := s.wallets.WithTrx(tx).Credit(ctx, ref.ReferrerUserID, bonus); err != nil {
		return err
	}

	zap.L().Info("referral bonus credited",
		zap.Int64("referrer_user_id", ref.ReferrerUserID),
		zap.Int64("referred_user_id", referredUserID),
		zap.String("bonus", bonus.String()),
	)

	return nil
}

// List returns the referrals made by a user, most recent first.
func (s *Service) List(ctx context.Context, referrerUserID int64) ([]*Referral, error) {
	return s.referrals.Find(ctx, &Referral{ReferrerUserID: referrerUserID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
}
