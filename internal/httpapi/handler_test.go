package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vaultwise-core/pkg/config"
	"vaultwise-core/pkg/health"
	"vaultwise-core/services/admin"
	"vaultwise-core/services/investment"
	"vaultwise-core/services/ledger"
	"vaultwise-core/services/referral"
	"vaultwise-core/services/testutil"
	"vaultwise-core/services/wallet"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	db := testutil.NewTestDB(t,
		&wallet.Wallet{},
		&ledger.Transaction{},
		&investment.Investment{},
		&referral.Referral{},
	)
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Engine.MinWithdraw = 1.00
	cfg.Engine.ReferralBonusRate = 0.05
	cfg.Engine.Plans = []config.PlanConfig{
		{Name: "Amateur Plan", Rate: 0.05, HoldingPeriod: 168 * time.Hour},
	}

	wallets := wallet.NewStore(wallet.Params{DB: db})
	ldg := ledger.NewService(ledger.Params{DB: db, Node: node, Wallets: wallets, Config: cfg})
	inv := investment.NewService(investment.Params{DB: db, Node: node, Wallets: wallets, Config: cfg})
	refs := referral.NewService(referral.Params{DB: db, Node: node, Wallets: wallets, Config: cfg})
	adm := admin.NewService(admin.Params{DB: db, Node: node, Ledger: ldg, Referrals: refs, Wallets: wallets})

	handler := NewHandler(HandlerParams{Ledger: ldg, Investments: inv, Admin: adm, Referrals: refs})
	hs := health.ProvideHealth(health.HealthParams{DB: db})

	return NewRouter(cfg, handler, hs)
}

func do(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestDepositRequiresIdentity(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodPost, "/v1/transactions/deposit", `{"amount":"100"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDepositCreatesPendingEntry(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodPost, "/v1/transactions/deposit",
		`{"amount":"100","method":"bank_transfer"}`,
		map[string]string{HeaderUserID: "1"},
	)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"pending"`)
}

func TestWithdrawBelowMinimumMapsToBadRequest(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodPost, "/v1/transactions/withdraw",
		`{"amount":"0.50","method":"crypto"}`,
		map[string]string{HeaderUserID: "1"},
	)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "BELOW_MINIMUM")
}

func TestInvestInsufficientFundsMapsToUnprocessable(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodPost, "/v1/investments",
		`{"plan":"Amateur Plan","amount":"500"}`,
		map[string]string{HeaderUserID: "1"},
	)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "INSUFFICIENT_FUNDS")
}

func TestAdminRoutesRequireStaffHeader(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodGet, "/v1/admin/transactions", "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(r, http.MethodGet, "/v1/admin/transactions", "",
		map[string]string{HeaderStaff: "true"},
	)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
