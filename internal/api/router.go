package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/medrep/promostock/internal/config"
	"github.com/medrep/promostock/internal/model"
	"github.com/medrep/promostock/internal/workflow"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, cfg *config.Config, jwtSecret string, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, Log: log}
	usersHandler := &UsersHandler{DB: db, Log: log}
	categoriesHandler := &CategoriesHandler{DB: db, Log: log}
	itemsHandler := &ItemsHandler{DB: db, Log: log}
	transfersHandler := &TransfersHandler{DB: db, Log: log}
	requestsHandler := &RequestsHandler{
		DB:       db,
		Workflow: workflow.NewService(db, log.Named("workflow")),
		Log:      log,
	}
	analyticsHandler := &AnalyticsHandler{
		DB:                db,
		Log:               log,
		ExpiryWindowDays:  cfg.ExpiryWindowDays,
		LowStockThreshold: cfg.LowStockThreshold,
	}

	authMW := AuthMiddleware(jwtSecret, db)
	manageUsers := RequirePermission(func(p model.Permissions) bool { return p.ManageUsers })
	manageCatalog := RequirePermission(func(p model.Permissions) bool { return p.ManageCatalog })
	moveStock := RequirePermission(func(p model.Permissions) bool { return p.MoveStock })
	viewAnalytics := RequirePermission(func(p model.Permissions) bool { return p.ViewAnalytics })

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users.
	mux.Handle("GET /api/users", authMW(http.HandlerFunc(usersHandler.List)))
	mux.Handle("POST /api/users", authMW(manageUsers(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(http.HandlerFunc(usersHandler.Get)))
	mux.Handle("PUT /api/users/{id}", authMW(manageUsers(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("DELETE /api/users/{id}", authMW(manageUsers(http.HandlerFunc(usersHandler.Delete))))

	// Catalog: read (all roles), write (catalog managers).
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(categoriesHandler.ListCategories)))
	mux.Handle("POST /api/categories", authMW(manageCatalog(http.HandlerFunc(categoriesHandler.CreateCategory))))
	mux.Handle("DELETE /api/categories/{id}", authMW(manageCatalog(http.HandlerFunc(categoriesHandler.DeleteCategory))))
	mux.Handle("GET /api/specialties", authMW(http.HandlerFunc(categoriesHandler.ListSpecialties)))
	mux.Handle("POST /api/specialties", authMW(manageCatalog(http.HandlerFunc(categoriesHandler.CreateSpecialty))))

	// Items: read (all roles), write (catalog managers), quantity
	// adjustments (stock movers).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(manageCatalog(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(manageCatalog(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(manageCatalog(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("POST /api/items/{id}/quantity", authMW(moveStock(http.HandlerFunc(itemsHandler.AdjustQuantity))))
	mux.Handle("PUT /api/items/{id}/image", authMW(manageCatalog(http.HandlerFunc(itemsHandler.UploadImage))))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.GetImage)))

	// Transfers and history.
	mux.Handle("POST /api/transfers", authMW(moveStock(http.HandlerFunc(transfersHandler.Create))))
	mux.Handle("GET /api/movements", authMW(http.HandlerFunc(transfersHandler.ListMovements)))
	mux.Handle("GET /api/allocations", authMW(http.HandlerFunc(transfersHandler.ListAllocations)))

	// Request workflow. Any authenticated user can create and view;
	// the workflow service enforces who may act on each request.
	mux.Handle("POST /api/requests", authMW(http.HandlerFunc(requestsHandler.Create)))
	mux.Handle("GET /api/requests", authMW(http.HandlerFunc(requestsHandler.List)))
	mux.Handle("GET /api/requests/{id}", authMW(http.HandlerFunc(requestsHandler.Get)))
	mux.Handle("POST /api/requests/{id}/approve", authMW(http.HandlerFunc(requestsHandler.Approve)))
	mux.Handle("POST /api/requests/{id}/forward", authMW(http.HandlerFunc(requestsHandler.Forward)))
	mux.Handle("POST /api/requests/{id}/final-approve", authMW(http.HandlerFunc(requestsHandler.FinalApprove)))
	mux.Handle("POST /api/requests/{id}/deny", authMW(http.HandlerFunc(requestsHandler.Deny)))
	mux.Handle("POST /api/requests/{id}/complete", authMW(http.HandlerFunc(requestsHandler.Complete)))

	// Analytics.
	mux.Handle("GET /api/analytics/items", authMW(viewAnalytics(http.HandlerFunc(analyticsHandler.ItemSummaries))))
	mux.Handle("GET /api/analytics/holdings", authMW(viewAnalytics(http.HandlerFunc(analyticsHandler.UserHoldings))))
	mux.Handle("GET /api/analytics/movements", authMW(viewAnalytics(http.HandlerFunc(analyticsHandler.MovementVolumes))))
	mux.Handle("GET /api/analytics/expiring", authMW(viewAnalytics(http.HandlerFunc(analyticsHandler.Expiring))))
	mux.Handle("GET /api/analytics/low-stock", authMW(viewAnalytics(http.HandlerFunc(analyticsHandler.LowStock))))
	mux.Handle("GET /api/analytics/integrity", authMW(viewAnalytics(http.HandlerFunc(analyticsHandler.Integrity))))

	return LoggingMiddleware(log)(mux)
}
