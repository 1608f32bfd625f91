package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vaultwise-core/internal/httpapi"
	"vaultwise-core/pkg/config"
	"vaultwise-core/pkg/db"
	"vaultwise-core/pkg/gen"
	"vaultwise-core/pkg/health"
	"vaultwise-core/pkg/logger"
	"vaultwise-core/services/admin"
	"vaultwise-core/services/investment"
	"vaultwise-core/services/ledger"
	"vaultwise-core/services/referral"
	"vaultwise-core/services/wallet"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		gen.Module,
		health.Module,
		wallet.Module,
		ledger.Module,
		investment.Module,
		referral.Module,
		admin.Module,
		httpapi.Module,
		fx.Invoke(migrate),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&wallet.Wallet{},
		&ledger.Transaction{},
		&investment.Investment{},
		&referral.Referral{},
	)
}
