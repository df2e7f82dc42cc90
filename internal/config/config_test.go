package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFallbackRates(t *testing.T) {
	rates, err := ParseFallbackRates(" egp:aed=0.075, EGP:USD=0.02 ,")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"EGP:AED": 0.075, "EGP:USD": 0.02}, rates)

	_, err = ParseFallbackRates("EGPAED=1")
	assert.Error(t, err)
	_, err = ParseFallbackRates("EGP:AED=-1")
	assert.Error(t, err)
	_, err = ParseFallbackRates("EGP:AED=abc")
	assert.Error(t, err)
}

func TestRefreshPairsSkipsBaseAndDuplicates(t *testing.T) {
	c := &Config{BaseCurrency: "EGP", TabbyCurrency: "AED", StripeCurrency: "AED"}
	assert.Equal(t, []string{"EGP:AED"}, c.refreshPairs())

	c = &Config{BaseCurrency: "EGP", TabbyCurrency: "EGP", StripeCurrency: "USD"}
	assert.Equal(t, []string{"EGP:USD"}, c.refreshPairs())
}

func TestFlagSourceEnvFallback(t *testing.T) {
	t.Setenv("FLAG_SEND_ORDER_SMS", "true")
	t.Setenv("FLAG_SENDGRID_FROM_EMAIL", "shop@example.com")
	fs := &flagSource{}

	assert.True(t, fs.Bool("send_order_sms", false))
	assert.False(t, fs.Bool("tabby_enabled", false))
	assert.Equal(t, "shop@example.com", fs.String("sendgrid_from_email", "x"))
	assert.Equal(t, "x", fs.String("unknown", "x"))
}
