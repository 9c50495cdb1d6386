// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background workers, then tears down DB connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if svc != nil {
		if svc.sweeper != nil {
			svc.sweeper.Stop()
		}
		if svc.limiter != nil {
			svc.limiter.Stop()
		}
	}
	if deps.CivicMongoClient != nil {
		logger.Info("disconnecting civic MongoDB client")
		if err := deps.CivicMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
