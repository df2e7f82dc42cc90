package constants

import (
	"time"
)

// Auth
const (
	AccessTokenTTL         = 15 * time.Minute
	RefreshTokenTTL        = 30 * 24 * time.Hour
	MaxFailedLoginAttempts = 5
	LoginLockoutDuration   = 15 * time.Minute
	MinPasswordLength      = 8
	RefreshTokenBytes      = 32
)

// Rewards defaults, overridable via env.
const (
	DefaultPointsPerCurrencyUnit = 1
	DefaultPointValueCents       = 10
	DefaultMinRedeemPoints       = 100
	DefaultMaxRedeemPercent      = 50
	RewardsHistoryLimit          = 20
)

// Orders & checkout
const (
	DefaultOrderPaymentTTL   = 30 * time.Minute
	DefaultLowStockThreshold = 5
	MaxCartLineQuantity      = 99
	ExpireOrdersBatchSize    = 100
	DefaultPageLimit         = 20
	MaxPageLimit             = 100
	DashboardRevenueDays     = 30
)

// Currency
const (
	DefaultBaseCurrency    = "EGP"
	DefaultTabbyCurrency   = "AED"
	DefaultStripeCurrency  = "USD"
	DefaultFXAPIURL        = "https://open.er-api.com/v6/latest"
	DefaultFXCacheTTL      = time.Hour
	DefaultFXFallbackRates = "EGP:AED=0.075,EGP:SAR=0.077,EGP:USD=0.02"
	FXCacheSize            = 64
	FXRequestTimeout       = 5 * time.Second
	FXRetryAttempts        = 3
	FXRetryDelay           = 200 * time.Millisecond
)

// Providers
const (
	PaymobDefaultBaseURL      = "https://accept.paymob.com"
	TabbyDefaultBaseURL       = "https://api.tabby.ai"
	DefaultTabbyWebhookHeader = "X-Tabby-Signature"
	ProviderRequestTimeout    = 15 * time.Second
)

const DefaultFromEmail = "no-reply@gymmawy.com"

// Cron schedules (UTC)
const (
	ExpirePendingOrdersCronSpec = "*/5 * * * *"
	ExpireSubscriptionsCronSpec = "0 * * * *"
	FXRefreshCronSpec           = "0 */6 * * *"
	TokenCleanupCronSpec        = "30 3 * * *"
	CronJobTimeout              = 2 * time.Minute
)
