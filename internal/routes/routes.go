package routes

const (
	// Health & metrics
	Health  = "/health"
	Metrics = "/metrics"

	APIBase = "/api/v1"

	// ───────────────────────────────
	// Auth
	// ───────────────────────────────
	AuthRegister   = "/api/v1/auth/register"
	AuthLogin      = "/api/v1/auth/login"
	AuthAdminLogin = "/api/v1/auth/admin/login"
	AuthRefresh    = "/api/v1/auth/refresh"
	AuthLogout     = "/api/v1/auth/logout"
	AuthMe         = "/api/v1/auth/me"

	// ───────────────────────────────
	// Catalog (public)
	// ───────────────────────────────
	Products   = "/api/v1/products"
	Product    = "/api/v1/products/{id}"
	Programmes = "/api/v1/programmes"
	Programme  = "/api/v1/programmes/{id}"
	Plans      = "/api/v1/plans"
	Plan       = "/api/v1/plans/{id}"

	// ───────────────────────────────
	// Cart & checkout
	// ───────────────────────────────
	Cart            = "/api/v1/cart"
	CartItems       = "/api/v1/cart/items"
	CartItem        = "/api/v1/cart/items/{id}"
	CheckoutQuote   = "/api/v1/checkout/quote"
	Checkout        = "/api/v1/checkout"
	CouponsValidate = "/api/v1/coupons/validate"

	// ───────────────────────────────
	// Customer orders & entitlements
	// ───────────────────────────────
	Orders          = "/api/v1/orders"
	Order           = "/api/v1/orders/{id}"
	OrderCancel     = "/api/v1/orders/{id}/cancel"
	MeSubscriptions = "/api/v1/me/subscriptions"
	MeProgrammes    = "/api/v1/me/programmes"
	MeRewards       = "/api/v1/me/rewards"

	// ───────────────────────────────
	// Payment gateway callbacks
	// ───────────────────────────────
	PaymobWebhook  = "/api/v1/payments/paymob/webhook"
	PaymobRedirect = "/api/v1/payments/paymob/redirect"
	TabbyWebhook   = "/api/v1/payments/tabby/webhook"
	StripeWebhook  = "/api/v1/payments/stripe/webhook"

	// ───────────────────────────────
	// Admin
	// ───────────────────────────────
	AdminBase        = "/api/v1/admin"
	AdminProducts    = "/api/v1/admin/products"
	AdminProduct     = "/api/v1/admin/products/{id}"
	AdminStock       = "/api/v1/admin/products/{id}/stock"
	AdminProgrammes  = "/api/v1/admin/programmes"
	AdminProgramme   = "/api/v1/admin/programmes/{id}"
	AdminPlans       = "/api/v1/admin/plans"
	AdminPlan        = "/api/v1/admin/plans/{id}"
	AdminCoupons     = "/api/v1/admin/coupons"
	AdminCoupon      = "/api/v1/admin/coupons/{id}"
	AdminOrders      = "/api/v1/admin/orders"
	AdminOrder       = "/api/v1/admin/orders/{id}"
	AdminOrderRefund = "/api/v1/admin/orders/{id}/refund"
	AdminUserPoints  = "/api/v1/admin/users/{id}/points"
	AdminDashboard   = "/api/v1/admin/dashboard"
)
