// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	admingrantsfeature "github.com/dalemusser/lodgehub/internal/app/features/admingrants"
	adminopsfeature "github.com/dalemusser/lodgehub/internal/app/features/adminops"
	healthfeature "github.com/dalemusser/lodgehub/internal/app/features/health"
	identitiesfeature "github.com/dalemusser/lodgehub/internal/app/features/identities"
	lodgesfeature "github.com/dalemusser/lodgehub/internal/app/features/lodges"
	loginfeature "github.com/dalemusser/lodgehub/internal/app/features/login"
	permissionsfeature "github.com/dalemusser/lodgehub/internal/app/features/permissions"
	transferrolefeature "github.com/dalemusser/lodgehub/internal/app/features/transferrole"
	"github.com/dalemusser/lodgehub/internal/app/migrate"
	grantstore "github.com/dalemusser/lodgehub/internal/app/store/admingrants"
	"github.com/dalemusser/lodgehub/internal/app/store/directory"
	identitystore "github.com/dalemusser/lodgehub/internal/app/store/identities"
	legacystore "github.com/dalemusser/lodgehub/internal/app/store/legacy"
	lodgestore "github.com/dalemusser/lodgehub/internal/app/store/lodges"
	snapshotstore "github.com/dalemusser/lodgehub/internal/app/store/snapshots"
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/dalemusser/lodgehub/internal/app/system/authz"
	"github.com/dalemusser/lodgehub/internal/app/system/maintlock"
	"github.com/dalemusser/lodgehub/internal/app/transfer"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. LodgeHub builds its store layer, the
// token service, the authorization resolver, and the batch engines here, then
// mounts a feature router per API area.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.LodgeHubMongoDatabase

	// Stores.
	canonical := identitystore.New(db)
	legacy := legacystore.New(db)
	lodges := lodgestore.New(db)
	grants := grantstore.New(db)
	snapshots := snapshotstore.New(db)
	dir := directory.New(canonical, legacy)

	// Services.
	tokens, err := auth.NewTokenService(appCfg.TokenSecret, appCfg.TokenExpiry, lodges, logger)
	if err != nil {
		logger.Error("token service init failed", zap.Error(err))
		return nil, err
	}
	resolver := authz.New(lodges, grants)
	lock := maintlock.New(db, logger)
	reconciler := migrate.NewReconciler(db, legacy, canonical, snapshots, lock, logger)
	rollback := migrate.NewRollbackManager(legacy, canonical, snapshots, lock, logger)
	protocol := transfer.New(dir, canonical, legacy, lodges, logger)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.LodgeHubMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(dir, canonical, tokens, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	// Identity registration and lookup
	identitiesHandler := identitiesfeature.NewHandler(dir, canonical, resolver, logger)
	r.Mount("/identities", identitiesfeature.Routes(identitiesHandler, tokens))

	// Permission resolution
	permissionsHandler := permissionsfeature.NewHandler(dir, resolver, logger)
	r.Mount("/permissions", permissionsfeature.Routes(permissionsHandler, tokens))

	// Lodge management and jurisdiction queries
	lodgesHandler := lodgesfeature.NewHandler(dir, lodges, resolver, logger)
	r.Mount("/lodges", lodgesfeature.Routes(lodgesHandler, tokens))

	// Per-lodge admin grants
	grantsHandler := admingrantsfeature.NewHandler(dir, grants, lodges, resolver, logger)
	r.Mount("/grants", admingrantsfeature.Routes(grantsHandler, tokens))

	// Privilege transfers
	transferHandler := transferrolefeature.NewHandler(dir, protocol, logger)
	r.Mount("/transfers", transferrolefeature.Routes(transferHandler, tokens))

	// Batch maintenance: reconciliation, rollback, snapshots
	adminHandler := adminopsfeature.NewHandler(reconciler, rollback, snapshots, logger)
	r.Mount("/admin", adminopsfeature.Routes(adminHandler, tokens))

	return r, nil
}
