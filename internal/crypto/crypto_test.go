package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSigner_HeadersAt(t *testing.T) {
	s := &WebhookSigner{Secret: "topsecret"}
	body := []byte(`{"type":"action.simulated"}`)

	h := s.HeadersAt(body, 1700000000)
	require.Equal(t, "1700000000", h[HeaderTimestamp])

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write([]byte("1700000000." + string(body)))
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), h[HeaderSignature])

	assert.True(t, s.Verify(body, "1700000000", h[HeaderSignature]))
	assert.False(t, s.Verify(body, "1700000001", h[HeaderSignature]))
	assert.False(t, (&WebhookSigner{Secret: "other"}).Verify(body, "1700000000", h[HeaderSignature]))
}

func TestWebhookSigner_StringRedacts(t *testing.T) {
	assert.Equal(t, "WebhookSigner{secret=tops****}", (&WebhookSigner{Secret: "topsecret"}).String())
	assert.Equal(t, "WebhookSigner{secret=****}", (&WebhookSigner{Secret: "abc"}).String())
}

func TestRulesHash(t *testing.T) {
	a := RulesHash("Resolves YES if BTC trades above $100,000\n on Coinbase.")
	b := RulesHash("resolves yes if btc trades   above $100,000 on coinbase.")
	assert.Equal(t, a, b)
	assert.Len(t, a, 66)
	assert.Equal(t, "", RulesHash("   "))

	match, ok := RulesMatch("x", "X ")
	assert.True(t, ok)
	assert.True(t, match)

	_, ok = RulesMatch("", "x")
	assert.False(t, ok)

	match, ok = RulesMatch("above", "below")
	assert.True(t, ok)
	assert.False(t, match)
}

func TestIsMarketAddress(t *testing.T) {
	assert.True(t, IsMarketAddress("0x52908400098527886E0F7030069857D2E4169EE7"))
	assert.True(t, IsMarketAddress("0x52908400098527886e0f7030069857d2e4169ee7"))
	assert.False(t, IsMarketAddress("52908400098527886E0F7030069857D2E4169EE7"))
	assert.False(t, IsMarketAddress("0x1234"))
	assert.False(t, IsMarketAddress("will-btc-hit-100k"))
	assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", ChecksumAddress("0x52908400098527886e0f7030069857d2e4169ee7"))
}
