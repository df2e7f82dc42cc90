package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata" // Load timezone data

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/app"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/config"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/controllers"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/routes"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/services"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/fx"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/paymob"
	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/utils/tabby"
	middleware "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-middleware"
	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

const metricsNamespace = "gymmawy"

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize the application:", err)
	}
	defer application.Close()

	// Repositories
	txManager := repositories.NewTxManager(application.DB)
	userRepo := repositories.NewUserRepository(application.DB, cfg.DBEncryptionKey)
	tokenRepo := repositories.NewTokenRepository(application.DB)
	productRepo := repositories.NewProductRepository(application.DB)
	programmeRepo := repositories.NewProgrammeRepository(application.DB)
	planRepo := repositories.NewSubscriptionPlanRepository(application.DB)
	couponRepo := repositories.NewCouponRepository(application.DB)
	cartRepo := repositories.NewCartRepository(application.DB)
	orderRepo := repositories.NewOrderRepository(application.DB)
	subRepo := repositories.NewUserSubscriptionRepository(application.DB)
	loyaltyRepo := repositories.NewLoyaltyRepository(application.DB)
	eventRepo := repositories.NewPaymentEventRepository(application.DB)
	rateRepo := repositories.NewExchangeRateRepository(application.DB)
	auditRepo := repositories.NewAdminAuditLogRepository(application.DB)

	if cfg.LDFlag_SeedDbWithTestData {
		seeder := &app.Seeder{
			Users:      userRepo,
			Products:   productRepo,
			Programmes: programmeRepo,
			Plans:      planRepo,
			Coupons:    couponRepo,
		}
		seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := seeder.SeedAll(seedCtx); err != nil {
			seedCancel()
			utils.Logger.Fatal("Failed to seed test data:", err)
		}
		seedCancel()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(registry, metricsNamespace)
	httpMetrics := middleware.NewHTTPMetrics(registry, metricsNamespace)

	// Gateways
	paymobClient := paymob.NewClient(cfg.PaymobBaseURL, cfg.PaymobAPIKey, cfg.PaymobIntegrationID, cfg.PaymobIframeID, constants.ProviderRequestTimeout)
	tabbyClient := tabby.NewClient(cfg.TabbyBaseURL, cfg.TabbySecretKey, cfg.TabbyMerchantCode, constants.ProviderRequestTimeout)

	var rateFetcher services.RateFetcher
	if cfg.FXAPIURL != "" {
		rateFetcher = fx.NewClient(cfg.FXAPIURL, cfg.FXAPIKey, constants.FXRequestTimeout, constants.FXRetryAttempts, constants.FXRetryDelay)
	}

	// Only enabled providers are offered at checkout. Webhooks stay routed
	// for every provider so late notifications for existing orders land.
	var providers []services.PaymentProvider
	if cfg.LDFlag_PaymobEnabled {
		providers = append(providers, services.NewPaymobProvider(cfg, paymobClient))
	}
	if cfg.LDFlag_TabbyEnabled {
		providers = append(providers, services.NewTabbyProvider(cfg, tabbyClient))
	}
	if cfg.LDFlag_StripeEnabled {
		providers = append(providers, services.NewStripeProvider(cfg, nil))
	}
	if len(providers) == 0 {
		utils.Logger.Warn("No payment provider is enabled; checkout will reject every request")
	}

	// Services
	notifier := services.NewNotificationService(cfg, services.NewSendgridMailer(cfg.SendgridAPIKey), services.NewTwilioSMS(cfg))
	rewardsService := services.NewRewardsService(cfg, userRepo, loyaltyRepo)
	couponService := services.NewCouponService(couponRepo)
	currencyService := services.NewCurrencyService(cfg, rateFetcher, rateRepo, metrics)
	lifecycle := services.NewOrderLifecycleService(
		txManager, orderRepo, productRepo, couponRepo, programmeRepo, planRepo, subRepo, cartRepo, userRepo,
		rewardsService, notifier, metrics,
	)
	jwtService := services.NewJWTService(cfg, tokenRepo)
	authService := services.NewAuthService(cfg, userRepo, tokenRepo, jwtService)
	catalogService := services.NewCatalogService(productRepo, programmeRepo, planRepo)
	cartService := services.NewCartService(cfg, cartRepo, productRepo, programmeRepo, planRepo)
	checkoutService := services.NewCheckoutService(
		cfg, txManager, cartRepo, userRepo, orderRepo, productRepo, programmeRepo, planRepo,
		couponService, rewardsService, currencyService, lifecycle, metrics,
		providers...,
	)
	orderService := services.NewOrderService(orderRepo, subRepo, planRepo, programmeRepo, lifecycle)
	webhookService := services.NewPaymentWebhookService(cfg, txManager, orderRepo, eventRepo, lifecycle, tabbyClient, metrics)
	adminService := services.NewAdminService(
		cfg, txManager, productRepo, programmeRepo, planRepo, couponRepo, orderRepo, auditRepo,
		rewardsService, lifecycle,
	)
	jobsService := services.NewJobsService(cfg, orderRepo, subRepo, tokenRepo, lifecycle, webhookService, currencyService, metrics)

	// Controllers
	healthController := controllers.NewHealthController(application.DB)
	authController := controllers.NewAuthController(authService)
	catalogController := controllers.NewCatalogController(catalogService)
	cartController := controllers.NewCartController(cartService)
	checkoutController := controllers.NewCheckoutController(checkoutService)
	orderController := controllers.NewOrderController(orderService, rewardsService)
	webhookController := controllers.NewPaymentWebhookController(cfg, webhookService)
	adminController := controllers.NewAdminController(adminService)

	// Scheduled jobs run in UTC, one at a time per job.
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	schedule := func(spec, name string, job func(context.Context) error) {
		_, schErr := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), constants.CronJobTimeout)
			defer cancel()
			if err := job(ctx); err != nil {
				utils.Logger.WithError(err).Errorf("Scheduled %s failed", name)
			}
		})
		if schErr != nil {
			utils.Logger.WithError(schErr).Fatalf("Failed to schedule %s", name)
		}
	}
	schedule(constants.ExpirePendingOrdersCronSpec, "pending order expiry", jobsService.ExpireStalePendingOrders)
	schedule(constants.ExpireSubscriptionsCronSpec, "subscription expiry", jobsService.ExpireSubscriptions)
	schedule(constants.FXRefreshCronSpec, "exchange rate refresh", jobsService.RefreshExchangeRates)
	schedule(constants.TokenCleanupCronSpec, "refresh token cleanup", jobsService.CleanupRefreshTokens)
	c.Start()
	defer c.Stop()

	// Router
	router := mux.NewRouter()
	router.Use(httpMetrics.Middleware)

	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods(http.MethodGet)
	router.Handle(routes.Metrics, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Public auth
	router.HandleFunc(routes.AuthRegister, authController.Register).Methods(http.MethodPost)
	router.HandleFunc(routes.AuthLogin, authController.Login).Methods(http.MethodPost)
	router.HandleFunc(routes.AuthAdminLogin, authController.AdminLogin).Methods(http.MethodPost)
	router.HandleFunc(routes.AuthRefresh, authController.Refresh).Methods(http.MethodPost)
	router.HandleFunc(routes.AuthLogout, authController.Logout).Methods(http.MethodPost)

	// Public catalog
	router.HandleFunc(routes.Products, catalogController.ListProducts).Methods(http.MethodGet)
	router.HandleFunc(routes.Product, catalogController.GetProduct).Methods(http.MethodGet)
	router.HandleFunc(routes.Programmes, catalogController.ListProgrammes).Methods(http.MethodGet)
	router.HandleFunc(routes.Programme, catalogController.GetProgramme).Methods(http.MethodGet)
	router.HandleFunc(routes.Plans, catalogController.ListPlans).Methods(http.MethodGet)
	router.HandleFunc(routes.Plan, catalogController.GetPlan).Methods(http.MethodGet)

	// Gateway callbacks authenticate by signature, not JWT
	router.HandleFunc(routes.PaymobWebhook, webhookController.PaymobWebhook).Methods(http.MethodPost)
	router.HandleFunc(routes.PaymobRedirect, webhookController.PaymobRedirect).Methods(http.MethodGet)
	router.HandleFunc(routes.TabbyWebhook, webhookController.TabbyWebhook).Methods(http.MethodPost)
	router.HandleFunc(routes.StripeWebhook, webhookController.StripeWebhook).Methods(http.MethodPost)

	// Protected routes (JWT middleware)
	secured := router.NewRoute().Subrouter()
	secured.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))

	secured.HandleFunc(routes.AuthMe, authController.Me).Methods(http.MethodGet)

	secured.HandleFunc(routes.Cart, cartController.GetCart).Methods(http.MethodGet)
	secured.HandleFunc(routes.Cart, cartController.Clear).Methods(http.MethodDelete)
	secured.HandleFunc(routes.CartItems, cartController.AddItem).Methods(http.MethodPost)
	secured.HandleFunc(routes.CartItem, cartController.UpdateItem).Methods(http.MethodPatch)
	secured.HandleFunc(routes.CartItem, cartController.RemoveItem).Methods(http.MethodDelete)

	secured.HandleFunc(routes.CheckoutQuote, checkoutController.Quote).Methods(http.MethodPost)
	secured.HandleFunc(routes.Checkout, checkoutController.Checkout).Methods(http.MethodPost)
	secured.HandleFunc(routes.CouponsValidate, checkoutController.ValidateCoupon).Methods(http.MethodPost)

	secured.HandleFunc(routes.Orders, orderController.ListMyOrders).Methods(http.MethodGet)
	secured.HandleFunc(routes.Order, orderController.GetMyOrder).Methods(http.MethodGet)
	secured.HandleFunc(routes.OrderCancel, orderController.CancelMyOrder).Methods(http.MethodPost)
	secured.HandleFunc(routes.MeSubscriptions, orderController.ListMySubscriptions).Methods(http.MethodGet)
	secured.HandleFunc(routes.MeProgrammes, orderController.ListMyProgrammes).Methods(http.MethodGet)
	secured.HandleFunc(routes.MeRewards, orderController.GetMyRewards).Methods(http.MethodGet)

	// Admin routes
	admin := router.NewRoute().Subrouter()
	admin.Use(middleware.AdminAuthMiddleware(cfg.RSAPublicKey))

	admin.HandleFunc(routes.AdminProducts, adminController.ListProducts).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminProducts, adminController.CreateProduct).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminProduct, adminController.UpdateProduct).Methods(http.MethodPatch)
	admin.HandleFunc(routes.AdminProduct, adminController.DeleteProduct).Methods(http.MethodDelete)
	admin.HandleFunc(routes.AdminStock, adminController.AdjustStock).Methods(http.MethodPost)

	admin.HandleFunc(routes.AdminProgrammes, adminController.ListProgrammes).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminProgrammes, adminController.CreateProgramme).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminProgramme, adminController.UpdateProgramme).Methods(http.MethodPatch)
	admin.HandleFunc(routes.AdminProgramme, adminController.DeleteProgramme).Methods(http.MethodDelete)

	admin.HandleFunc(routes.AdminPlans, adminController.ListPlans).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminPlans, adminController.CreatePlan).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminPlan, adminController.UpdatePlan).Methods(http.MethodPatch)
	admin.HandleFunc(routes.AdminPlan, adminController.DeletePlan).Methods(http.MethodDelete)

	admin.HandleFunc(routes.AdminCoupons, adminController.ListCoupons).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminCoupons, adminController.CreateCoupon).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminCoupon, adminController.UpdateCoupon).Methods(http.MethodPatch)
	admin.HandleFunc(routes.AdminCoupon, adminController.DeactivateCoupon).Methods(http.MethodDelete)

	admin.HandleFunc(routes.AdminOrders, adminController.ListOrders).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminOrder, adminController.GetOrder).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminOrderRefund, adminController.RefundOrder).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminUserPoints, adminController.AdjustPoints).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminDashboard, adminController.Dashboard).Methods(http.MethodGet)

	allowedOrigins := []string{cfg.FrontendURL}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, utils.CORSLowSecurityAllowedOriginLocalhost)
	}

	// CORS config
	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           co.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	utils.Logger.Infof("Shutting down %s", cfg.AppName)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Logger.WithError(err).Error("Graceful shutdown failed")
	}
}
