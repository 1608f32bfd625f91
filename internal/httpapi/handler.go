package httpapi

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"vaultwise-core/pkg/errutil"
	"vaultwise-core/services/admin"
	"vaultwise-core/services/investment"
	"vaultwise-core/services/ledger"
	"vaultwise-core/services/referral"
)

// Identity headers filled in by the platform edge. Authentication itself
// (JWT verification, sessions) lives outside this service.
const (
	HeaderUserID = "X-User-ID"
	HeaderStaff  = "X-Staff"
)

type Handler struct {
	ledger      *ledger.Service
	investments *investment.Service
	admin       *admin.Service
	referrals   *referral.Service
}

type HandlerParams struct {
	fx.In
	Ledger      *ledger.Service
	Investments *investment.Service
	Admin       *admin.Service
	Referrals   *referral.Service
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		ledger:      p.Ledger,
		investments: p.Investments,
		admin:       p.Admin,
		referrals:   p.Referrals,
	}
}

func fail(c *gin.Context, err error) {
	code, body := errutil.ToHTTP(err)
	c.AbortWithStatusJSON(code, body)
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader(HeaderUserID), 10, 64)
	if err != nil || id <= 0 {
		fail(c, errutil.Unauthorized("missing or invalid user identity", err))
		return 0, false
	}
	return id, true
}

func isStaff(c *gin.Context) bool {
	return c.GetHeader(HeaderStaff) == "true"
}

type depositRequest struct {
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Method       string          `json:"method"`
	ExternalTxID string          `json:"external_tx_id"`
}

func (h *Handler) Deposit(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errutil.BadRequest("invalid request body", err))
		return
	}

	txn, err := h.ledger.RequestDeposit(c.Request.Context(), uid, req.Amount, req.Method, req.ExternalTxID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, txn)
}

type withdrawRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Method      string          `json:"method"`
	Destination string          `json:"destination"`
}

func (h *Handler) Withdraw(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errutil.BadRequest("invalid request body", err))
		return
	}

	txn, err := h.ledger.RequestWithdraw(c.Request.Context(), uid, req.Amount, req.Method, req.Destination)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, txn)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	txns, err := h.ledger.List(c.Request.Context(), uid, limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, txns)
}

func (h *Handler) Dashboard(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	summary, err := h.ledger.GetDashboardSummary(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

type investRequest struct {
	Plan   string          `json:"plan" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func (h *Handler) Invest(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req investRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errutil.BadRequest("invalid request body", err))
		return
	}

	inv, err := h.investments.Invest(c.Request.Context(), uid, req.Plan, req.Amount)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, inv)
}

func (h *Handler) ListInvestments(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	views, err := h.investments.List(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

type recordReferralRequest struct {
	ReferrerUserID int64 `json:"referrer_user_id" binding:"required"`
	ReferredUserID int64 `json:"referred_user_id" binding:"required"`
}

func (h *Handler) RecordReferral(c *gin.Context) {
	var req recordReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errutil.BadRequest("invalid request body", err))
		return
	}

	ref, err := h.referrals.Record(c.Request.Context(), req.ReferrerUserID, req.ReferredUserID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, ref)
}

func (h *Handler) ListReferrals(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	refs, err := h.referrals.List(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, refs)
}

func (h *Handler) AdminListPending(c *gin.Context) {
	txns, err := h.admin.ListPending(c.Request.Context(), isStaff(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, txns)
}

func (h *Handler) AdminDecide(action ledger.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := snowflake.ParseString(c.Param("id"))
		if err != nil {
			fail(c, errutil.BadRequest("invalid transaction id", err))
			return
		}

		txn, err := h.admin.Decide(c.Request.Context(), id, action, isStaff(c))
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, txn)
	}
}

func (h *Handler) AdminDelete(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		fail(c, errutil.BadRequest("invalid transaction id", err))
		return
	}

	if err := h.admin.Delete(c.Request.Context(), id, isStaff(c)); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type fundRequest struct {
	UserID      int64           `json:"user_id" binding:"required"`
	MainDelta   decimal.Decimal `json:"main_delta"`
	ProfitDelta decimal.Decimal `json:"profit_delta"`
}

func (h *Handler) AdminFund(c *gin.Context) {
	var req fundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errutil.BadRequest("invalid request body", err))
		return
	}

	if err := h.admin.Fund(c.Request.Context(), req.UserID, req.MainDelta, req.ProfitDelta, isStaff(c)); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
