package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"vaultwise-core/pkg/config"
	"vaultwise-core/pkg/health"
	"vaultwise-core/services/ledger"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewHandler, NewRouter, NewServer),
	fx.Invoke(Run),
)

func NewRouter(cfg *config.Config, h *Handler, hs health.HealthService) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", hs.Liveness)
	r.GET("/readyz", hs.Readiness)

	v1 := r.Group("/v1")
	{
		v1.POST("/transactions/deposit", h.Deposit)
		v1.POST("/transactions/withdraw", h.Withdraw)
		v1.GET("/transactions", h.ListTransactions)
		v1.GET("/dashboard", h.Dashboard)

		v1.POST("/investments", h.Invest)
		v1.GET("/investments", h.ListInvestments)

		v1.POST("/referrals", h.RecordReferral)
		v1.GET("/referrals", h.ListReferrals)

		admin := v1.Group("/admin")
		{
			admin.GET("/transactions", h.AdminListPending)
			admin.POST("/transactions/:id/approve", h.AdminDecide(ledger.ActionApprove))
			admin.POST("/transactions/:id/reject", h.AdminDecide(ledger.ActionReject))
			admin.DELETE("/transactions/:id", h.AdminDelete)
			admin.POST("/fund", h.AdminFund)
		}
	}

	return r
}

type Server struct {
	server *http.Server
}

type ServerParams struct {
	fx.In
	Config *config.Config
	Router *gin.Engine
}

func NewServer(p ServerParams) *Server {
	cfg := p.Config
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Addr),
			Handler:      p.Router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}
}

func Run(lc fx.Lifecycle, srv *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			zap.L().Info("Starting HTTP server", zap.String("addr", srv.server.Addr))
			go func() {
				if err := srv.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					zap.L().Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			zap.L().Info("Shutting down HTTP server gracefully...")
			return srv.server.Shutdown(ctx)
		},
	})
}
