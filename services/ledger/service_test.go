package ledger

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vaultwise-core/pkg/config"
	"vaultwise-core/pkg/errutil"
	"vaultwise-core/services/testutil"
	"vaultwise-core/services/wallet"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Engine.MinWithdraw = 1.00
	cfg.Engine.ReferralBonusRate = 0.05
	return cfg
}

func newTestService(t *testing.T) (*Service, *wallet.Store, *gorm.DB) {
	db := testutil.NewTestDB(t, &wallet.Wallet{}, &Transaction{})
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	wallets := wallet.NewStore(wallet.Params{DB: db})
	svc := NewService(Params{DB: db, Node: node, Wallets: wallets, Config: testConfig()})
	return svc, wallets, db
}

func TestRequestDepositLeavesWalletUntouched(t *testing.T) {
	svc, wallets, _ := newTestService(t)
	ctx := context.Background()

	txn, err := svc.RequestDeposit(ctx, 1, decimal.NewFromInt(100), "bank_transfer", "ext-1")
	require.NoError(t, err)
	require.Equal(t, StatusPending, txn.Status)
	require.Equal(t, TypeDeposit, txn.Type)
	require.Equal(t, "bank_transfer", txn.MetaString("method"))

	w, err := wallets.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, w.MainBalance.IsZero())
}

func TestRequestDepositRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RequestDeposit(context.Background(), 1, decimal.Zero, "bank_transfer", "")
	require.Equal(t, errutil.StatusInvalidAmount, errutil.StatusOf(err))
}

func TestRequestWithdrawLocksFundsImmediately(t *testing.T) {
	svc, wallets, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, wallets.Credit(ctx, 1, decimal.NewFromInt(100)))

	txn, err := svc.RequestWithdraw(ctx, 1, decimal.NewFromInt(30), "crypto", "wallet-addr")
	require.NoError(t, err)
	require.Equal(t, StatusPending, txn.Status)

	w, err := wallets.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, w.MainBalance.Equal(decimal.NewFromInt(70)))
}

func TestRequestWithdrawBelowMinimum(t *testing.T) {
	svc, wallets, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, wallets.Credit(ctx, 1, decimal.NewFromInt(100)))

	_, err := svc.RequestWithdraw(ctx, 1, decimal.NewFromFloat(0.50), "crypto", "addr")
	require.Equal(t, errutil.StatusBelowMinimum, errutil.StatusOf(err))
}

func TestRequestWithdrawInsufficientFundsWritesNothing(t *testing.T) {
	svc, wallets, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, wallets.Credit(ctx, 1, decimal.NewFromInt(10)))

	_, err := svc.RequestWithdraw(ctx, 1, decimal.NewFromInt(50), "crypto", "addr")
	require.Equal(t, errutil.StatusInsufficientFunds, errutil.StatusOf(err))

	n, err := svc.transactions.Count(ctx, &Transaction{UserID: 1})
	require.NoError(t, err)
	require.Zero(t, n)

	w, err := wallets.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, w.MainBalance.Equal(decimal.NewFromInt(10)))
}

func TestTransitionApproveDepositCreditsOnce(t *testing.T) {
	svc, wallets, db := newTestService(t)
	ctx := context.Background()

	txn, err := svc.RequestDeposit(ctx, 1, decimal.NewFromInt(100), "bank_transfer", "")
	require.NoError(t, err)

	stale := *txn

	require.NoError(t, svc.Transition(ctx, db, txn, ActionApprove))
	require.Equal(t, StatusCompleted, txn.Status)

	w, err := wallets.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, w.MainBalance.Equal(decimal.NewFromInt(100)))

	// Replaying the decision against a stale copy must match zero rows.
	err = svc.Transition(ctx, db, &stale, ActionApprove)
	require.Equal(t, errutil.StatusInvalidState, errutil.StatusOf(err))

	w, err = wallets.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, w.MainBalance.Equal(decimal.NewFromInt(100)))
}

func TestTransitionRejectWithdrawRefunds(t *testing.T) {
	svc, wallets, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, wallets.Credit(ctx, 1, decimal.NewFromInt(100)))

	txn, err := svc.RequestWithdraw(ctx, 1, decimal.NewFromInt(40), "crypto", "addr")
	require.NoError(t, err)

	require.NoError(t, svc.Transition(ctx, db, txn, ActionReject))
	require.Equal(t, StatusRejected, txn.Status)

	w, err := wallets.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, w.MainBalance.Equal(decimal.NewFromInt(100)))
}

func TestTransitionApproveWithdrawKeepsDebit(t *testing.T) {
	svc, wallets, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, wallets.Credit(ctx, 1, decimal.NewFromInt(100)))

	txn, err := svc.RequestWithdraw(ctx, 1, decimal.NewFromInt(40), "crypto", "addr")
	require.NoError(t, err)

	require.NoError(t, svc.Transition(ctx, db, txn, ActionApprove))

	w, err := wallets.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, w.MainBalance.Equal(decimal.NewFromInt(60)))
}

func TestFindUnknownTransaction(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Find(context.Background(), snowflake.ID(12345))
	require.Equal(t, errutil.StatusNotFound, errutil.StatusOf(err))
}

type sweeperSpy struct {
	calls []int64
}

func (s *sweeperSpy) Sweep(_ context.Context, userID int64) error {
	s.calls = append(s.calls, userID)
	return nil
}

func TestGetDashboardSummary(t *testing.T) {
	svc, wallets, db := newTestService(t)
	ctx := context.Background()

	spy := &sweeperSpy{}
	svc.sweeper = spy

	dep, err := svc.RequestDeposit(ctx, 1, decimal.NewFromInt(200), "bank_transfer", "")
	require.NoError(t, err)
	require.NoError(t, svc.Transition(ctx, db, dep, ActionApprove))

	wd, err := svc.RequestWithdraw(ctx, 1, decimal.NewFromInt(50), "crypto", "addr")
	require.NoError(t, err)
	require.NoError(t, svc.Transition(ctx, db, wd, ActionApprove))

	// A pending deposit must not count toward totals.
	_, err = svc.RequestDeposit(ctx, 1, decimal.NewFromInt(999), "bank_transfer", "")
	require.NoError(t, err)

	require.NoError(t, wallets.CreditProfit(ctx, 1, decimal.NewFromInt(7)))

	out, err := svc.GetDashboardSummary(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, spy.calls)
	require.True(t, out.MainBalance.Equal(decimal.NewFromInt(150)))
	require.True(t, out.ProfitBalance.Equal(decimal.NewFromInt(7)))
	require.True(t, out.TotalDeposits.Equal(decimal.NewFromInt(200)))
	require.True(t, out.TotalWithdrawals.Equal(decimal.NewFromInt(50)))
	require.Len(t, out.Recent, 3)
}

func TestGetDashboardSummaryCountsPayoutProfitAsEarnings(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// A settled investment leaves a payout whose amount is principal plus
	// profit; only the metadata says how much was earned.
	require.NoError(t, svc.transactions.Create(ctx, &Transaction{
		ID:     svc.node.Generate(),
		UserID: 1,
		Type:   TypePayout,
		Amount: decimal.NewFromInt(550),
		Status: StatusCompleted,
		Metadata: NewMeta(map[string]any{
			"source":    "investment",
			"principal": "500",
			"profit":    "50",
		}),
	}))
	require.NoError(t, svc.transactions.Create(ctx, &Transaction{
		ID:       svc.node.Generate(),
		UserID:   1,
		Type:     TypeProfit,
		Amount:   decimal.NewFromInt(5),
		Status:   StatusCompleted,
		Metadata: NewMeta(map[string]any{"source": "referral"}),
	}))

	out, err := svc.GetDashboardSummary(ctx, 1)
	require.NoError(t, err)
	require.True(t, out.TotalEarnings.Equal(decimal.NewFromInt(55)), "got %s", out.TotalEarnings)
}
