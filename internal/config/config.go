package config

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MohamedAbdelsamiea/gymmawy--sub004/internal/constants"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

type Config struct {
	OrganizationName string
	AppName          string
	Env              string
	AppPort          string
	AppUrl           string
	FrontendURL      string
	DBUrl            string
	DBEncryptionKey  []byte
	RSAPrivateKey    *rsa.PrivateKey
	RSAPublicKey     *rsa.PublicKey

	BaseCurrency string

	PaymobBaseURL       string
	PaymobAPIKey        string
	PaymobIntegrationID int
	PaymobIframeID      string
	PaymobHMACSecret    string

	TabbyBaseURL       string
	TabbySecretKey     string
	TabbyMerchantCode  string
	TabbyCurrency      string
	TabbyWebhookHeader string
	TabbyWebhookSecret string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string

	FXAPIURL        string
	FXAPIKey        string
	FXCacheTTL      time.Duration
	FXFallbackRates map[string]float64
	FXRefreshPairs  []string

	SendgridAPIKey   string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromPhone  string

	PointsPerCurrencyUnit int64
	PointValueCents       int64
	MinRedeemPoints       int64
	MaxRedeemPercent      int64
	OrderPaymentTTL       time.Duration
	LowStockThreshold     int

	LDFlag_SeedDbWithTestData  bool
	LDFlag_SendgridSandboxMode bool
	LDFlag_SendgridFromEmail   string
	LDFlag_CORSHighSecurity    bool
	LDFlag_SendOrderSMS        bool
	LDFlag_PaymobEnabled       bool
	LDFlag_TabbyEnabled        bool
	LDFlag_StripeEnabled       bool
}

const OrganizationName = utils.OrganizationName

// AppName may be overridden with -ldflags "-X .../internal/config.AppName=...".
var AppName = "store-service"

func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	env := requireEnv("ENV")
	appUrl := requireEnv("APP_URL")
	appPort := envOr("APP_PORT", "8080")

	secrets, err := utils.NewSecretSource(
		fmt.Sprintf("shared-%s", env),
		fmt.Sprintf("%s-%s", AppName, env),
	)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to load secrets")
	}
	if utils.BWSEnabled() {
		utils.Logger.Info("Secrets loaded from Bitwarden")
	}

	dbURL := requireSecret(secrets, "DB_URL")

	dbEncKey, err := base64.StdEncoding.DecodeString(requireSecret(secrets, "DB_ENCRYPTION_KEY_BASE64"))
	if err != nil || len(dbEncKey) != 32 {
		utils.Logger.Fatal("DB_ENCRYPTION_KEY_BASE64 invalid, expect 32-byte key")
	}

	privPEM, _ := base64.StdEncoding.DecodeString(requireSecret(secrets, "RSA_PRIVATE_KEY_BASE64"))
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA private key")
	}
	pubPEM, _ := base64.StdEncoding.DecodeString(requireSecret(secrets, "RSA_PUBLIC_KEY_BASE64"))
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
	}

	fallbackRates, err := ParseFallbackRates(envOr("FX_FALLBACK_RATES", constants.DefaultFXFallbackRates))
	if err != nil {
		utils.Logger.WithError(err).Fatal("FX_FALLBACK_RATES invalid")
	}

	flags := newFlagSource(secrets.Get("LD_SDK_KEY"), env)
	defer flags.Close()

	cfg := &Config{
		OrganizationName: OrganizationName,
		AppName:          AppName,
		Env:              env,
		AppPort:          appPort,
		AppUrl:           strings.TrimRight(appUrl, "/"),
		FrontendURL:      strings.TrimRight(envOr("FRONTEND_URL", appUrl), "/"),
		DBUrl:            dbURL,
		DBEncryptionKey:  dbEncKey,
		RSAPrivateKey:    privKey,
		RSAPublicKey:     pubKey,

		BaseCurrency: strings.ToUpper(envOr("BASE_CURRENCY", constants.DefaultBaseCurrency)),

		PaymobBaseURL:       envOr("PAYMOB_BASE_URL", constants.PaymobDefaultBaseURL),
		PaymobAPIKey:        secrets.Get("PAYMOB_API_KEY"),
		PaymobIntegrationID: envInt("PAYMOB_INTEGRATION_ID", 0),
		PaymobIframeID:      os.Getenv("PAYMOB_IFRAME_ID"),
		PaymobHMACSecret:    secrets.Get("PAYMOB_HMAC_SECRET"),

		TabbyBaseURL:       envOr("TABBY_BASE_URL", constants.TabbyDefaultBaseURL),
		TabbySecretKey:     secrets.Get("TABBY_SECRET_KEY"),
		TabbyMerchantCode:  os.Getenv("TABBY_MERCHANT_CODE"),
		TabbyCurrency:      strings.ToUpper(envOr("TABBY_CURRENCY", constants.DefaultTabbyCurrency)),
		TabbyWebhookHeader: envOr("TABBY_WEBHOOK_HEADER", constants.DefaultTabbyWebhookHeader),
		TabbyWebhookSecret: secrets.Get("TABBY_WEBHOOK_SECRET"),

		StripeSecretKey:     secrets.Get("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: secrets.Get("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:      strings.ToUpper(envOr("STRIPE_CURRENCY", constants.DefaultStripeCurrency)),

		FXAPIURL:        envOr("FX_API_URL", constants.DefaultFXAPIURL),
		FXAPIKey:        secrets.Get("FX_API_KEY"),
		FXCacheTTL:      envDuration("FX_CACHE_TTL", constants.DefaultFXCacheTTL),
		FXFallbackRates: fallbackRates,

		SendgridAPIKey:   secrets.Get("SENDGRID_API_KEY"),
		TwilioAccountSID: secrets.Get("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  secrets.Get("TWILIO_AUTH_TOKEN"),
		TwilioFromPhone:  os.Getenv("TWILIO_FROM_PHONE"),

		PointsPerCurrencyUnit: int64(envInt("POINTS_PER_CURRENCY_UNIT", constants.DefaultPointsPerCurrencyUnit)),
		PointValueCents:       int64(envInt("POINT_VALUE_CENTS", constants.DefaultPointValueCents)),
		MinRedeemPoints:       int64(envInt("MIN_REDEEM_POINTS", constants.DefaultMinRedeemPoints)),
		MaxRedeemPercent:      int64(envInt("MAX_REDEEM_PERCENT", constants.DefaultMaxRedeemPercent)),
		OrderPaymentTTL:       envDuration("ORDER_PAYMENT_TTL", constants.DefaultOrderPaymentTTL),
		LowStockThreshold:     envInt("LOW_STOCK_THRESHOLD", constants.DefaultLowStockThreshold),

		LDFlag_SeedDbWithTestData:  flags.Bool("seed_db_with_test_data", false),
		LDFlag_SendgridSandboxMode: flags.Bool("sendgrid_sandbox_mode", env != "prod"),
		LDFlag_SendgridFromEmail:   flags.String("sendgrid_from_email", constants.DefaultFromEmail),
		LDFlag_CORSHighSecurity:    flags.Bool("cors_high_security", env == "prod"),
		LDFlag_SendOrderSMS:        flags.Bool("send_order_sms", false),
		LDFlag_PaymobEnabled:       flags.Bool("paymob_enabled", true),
		LDFlag_TabbyEnabled:        flags.Bool("tabby_enabled", true),
		LDFlag_StripeEnabled:       flags.Bool("stripe_enabled", false),
	}
	cfg.FXRefreshPairs = cfg.refreshPairs()

	if cfg.LDFlag_PaymobEnabled && (cfg.PaymobAPIKey == "" || cfg.PaymobHMACSecret == "" || cfg.PaymobIntegrationID == 0) {
		utils.Logger.Fatal("Paymob enabled but PAYMOB_API_KEY, PAYMOB_HMAC_SECRET or PAYMOB_INTEGRATION_ID is missing")
	}
	if cfg.LDFlag_TabbyEnabled && (cfg.TabbySecretKey == "" || cfg.TabbyWebhookSecret == "") {
		utils.Logger.Fatal("Tabby enabled but TABBY_SECRET_KEY or TABBY_WEBHOOK_SECRET is missing")
	}
	if cfg.LDFlag_StripeEnabled && (cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "") {
		utils.Logger.Fatal("Stripe enabled but STRIPE_SECRET_KEY or STRIPE_WEBHOOK_SECRET is missing")
	}
	return cfg
}

// refreshPairs lists every base->charge currency pair the cron keeps warm.
func (c *Config) refreshPairs() []string {
	seen := map[string]bool{}
	var out []string
	for _, cur := range []string{c.TabbyCurrency, c.StripeCurrency} {
		if cur == "" || cur == c.BaseCurrency || seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, c.BaseCurrency+":"+cur)
	}
	return out
}

// ParseFallbackRates reads "EGP:AED=0.075,EGP:USD=0.02".
func ParseFallbackRates(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pair, val, ok := strings.Cut(part, "=")
		if !ok || !strings.Contains(pair, ":") {
			return nil, fmt.Errorf("malformed rate %q", part)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid rate in %q", part)
		}
		out[strings.ToUpper(strings.TrimSpace(pair))] = rate
	}
	return out, nil
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		utils.Logger.Fatalf("%s env var is missing", key)
	}
	return v
}

func requireSecret(s *utils.SecretSource, key string) string {
	v := s.Get(key)
	if v == "" {
		utils.Logger.Fatalf("%s not found in secrets", key)
	}
	return v
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		utils.Logger.Fatalf("%s must be an integer, got %q", key, v)
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		utils.Logger.Fatalf("%s must be a duration, got %q", key, v)
	}
	return d
}
