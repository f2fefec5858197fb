// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	identitystore "github.com/dalemusser/lodgehub/internal/app/store/identities"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It optionally promotes the configured system admin identity, then checks
// the at-least-one SYSTEM_ADMIN invariant. A violation is an advisory, not a
// startup failure: the store may legitimately be empty before the first
// reconciliation run.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{Batch: appCfg.BatchTimeout})

	canonical := identitystore.New(deps.LodgeHubMongoDatabase)

	if appCfg.SystemAdminEmail != "" {
		ident, err := canonical.GetByEmail(ctx, appCfg.SystemAdminEmail)
		switch {
		case err == mongo.ErrNoDocuments:
			logger.Warn("configured system admin email has no canonical identity",
				zap.String("email", appCfg.SystemAdminEmail))
		case err != nil:
			return err
		case ident.Role != roles.SystemAdmin:
			if err := canonical.UpdateRole(ctx, ident.ID, roles.SystemAdmin); err != nil {
				return err
			}
			logger.Info("promoted configured identity to SYSTEM_ADMIN",
				zap.String("email", appCfg.SystemAdminEmail))
		}
	}

	n, err := canonical.CountByRole(ctx, roles.SystemAdmin)
	if err != nil {
		return err
	}
	if n == 0 {
		logger.Warn("no SYSTEM_ADMIN identity exists; administrative recovery requires one")
	}
	return nil
}
