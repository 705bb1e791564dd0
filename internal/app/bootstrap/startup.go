// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/propertyhub/internal/app/engine/reconcile"
	"github.com/dalemusser/propertyhub/internal/app/system/tasks"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// taskRunner owns the background reconciliation job for the life of the
// process. Started here, stopped in Shutdown.
var taskRunner *tasks.Runner

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// PropertyHub starts the periodic lease/occupancy reconciliation job here so
// that drift introduced by crashes or manual data edits heals without an
// operator having to call /admin/reconcile.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.ReconcileInterval <= 0 {
		logger.Info("background reconciliation disabled")
		return nil
	}

	svc := reconcile.New(deps.PropertyHubMongoDatabase, logger)

	taskRunner = tasks.NewRunner(logger)
	taskRunner.Add(tasks.ReconcileJob(svc, logger, appCfg.ReconcileInterval))
	taskRunner.Start()

	return nil
}
