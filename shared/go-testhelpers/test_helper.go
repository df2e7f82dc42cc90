package testhelpers

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"os"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/require"

	repositories "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-repositories"
	utils "github.com/MohamedAbdelsamiea/gymmawy--sub004/shared/go-utils"
)

// TestHelper carries what integration tests need to drive a running
// store-service: its URL, the shared signing keys and direct repository
// access for seeding and assertions.
type TestHelper struct {
	T       *testing.T
	Ctx     context.Context
	BaseURL string
	DB      *pgxpool.Pool

	PrivateKey      *rsa.PrivateKey
	DBEncryptionKey []byte

	PaymobHMACSecret    string
	TabbyWebhookHeader  string
	TabbyWebhookSecret  string
	StripeWebhookSecret string

	// Repositories
	UserRepo      repositories.UserRepository
	ProductRepo   repositories.ProductRepository
	ProgrammeRepo repositories.ProgrammeRepository
	PlanRepo      repositories.SubscriptionPlanRepository
	CouponRepo    repositories.CouponRepository
	OrderRepo     repositories.OrderRepository
	SubRepo       repositories.UserSubscriptionRepository
	LoyaltyRepo   repositories.LoyaltyRepository
}

// NewTestHelper loads secrets the way the service does, connects to the
// service database and builds the repositories. Call it once per test.
func NewTestHelper(t *testing.T, appName string) *TestHelper {
	baseURL := os.Getenv("APP_URL_FROM_ANYWHERE")
	if baseURL == "" {
		t.Fatal("APP_URL_FROM_ANYWHERE env var is missing")
	}
	env := os.Getenv("ENV")
	if env == "" {
		t.Fatal("ENV env var is missing")
	}

	secrets, err := utils.NewSecretSource(
		fmt.Sprintf("shared-%s", env),
		fmt.Sprintf("%s-%s", appName, env),
	)
	require.NoError(t, err, "Failed to load secrets")

	privPEM, err := base64.StdEncoding.DecodeString(secrets.Get("RSA_PRIVATE_KEY_BASE64"))
	require.NoError(t, err)
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	require.NoError(t, err, "Failed to parse RSA_PRIVATE_KEY_BASE64")

	dbEncryptionKey, err := base64.StdEncoding.DecodeString(secrets.Get("DB_ENCRYPTION_KEY_BASE64"))
	require.NoError(t, err)
	require.Len(t, dbEncryptionKey, 32, "DB encryption key must be 32 bytes")

	dbURL := secrets.Get("DB_URL")
	require.NotEmpty(t, dbURL, "DB_URL not found in secrets")

	ctx := context.Background()
	dbPool, err := pgxpool.Connect(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(dbPool.Close)

	tabbyHeader := os.Getenv("TABBY_WEBHOOK_HEADER")
	if tabbyHeader == "" {
		tabbyHeader = "X-Tabby-Signature"
	}

	return &TestHelper{
		T:                   t,
		Ctx:                 ctx,
		BaseURL:             baseURL,
		DB:                  dbPool,
		PrivateKey:          privateKey,
		DBEncryptionKey:     dbEncryptionKey,
		PaymobHMACSecret:    secrets.Get("PAYMOB_HMAC_SECRET"),
		TabbyWebhookHeader:  tabbyHeader,
		TabbyWebhookSecret:  secrets.Get("TABBY_WEBHOOK_SECRET"),
		StripeWebhookSecret: secrets.Get("STRIPE_WEBHOOK_SECRET"),
		UserRepo:            repositories.NewUserRepository(dbPool, dbEncryptionKey),
		ProductRepo:         repositories.NewProductRepository(dbPool),
		ProgrammeRepo:       repositories.NewProgrammeRepository(dbPool),
		PlanRepo:            repositories.NewSubscriptionPlanRepository(dbPool),
		CouponRepo:          repositories.NewCouponRepository(dbPool),
		OrderRepo:           repositories.NewOrderRepository(dbPool),
		SubRepo:             repositories.NewUserSubscriptionRepository(dbPool),
		LoyaltyRepo:         repositories.NewLoyaltyRepository(dbPool),
	}
}

// URL joins path onto the service base URL.
func (h *TestHelper) URL(path string) string {
	return h.BaseURL + path
}
