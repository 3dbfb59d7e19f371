// Package apple_signature authenticates webhook deliveries signed with a shared secret.
package apple_signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/fatflowers/entitlement/internal/app/apperrors"
	"github.com/fatflowers/entitlement/pkg/config"
	"go.uber.org/fx"
)

const HeaderName = "X-Apple-Signature"

type Verifier interface {
	// Verify returns apperrors.ErrMissingSignature or apperrors.ErrInvalidSignature.
	Verify(body []byte, signature string) error
}

var errEmptySecret = errors.New("apple_iap.webhook_secret must be set")

// HMACVerifier checks base64(HMAC-SHA256(secret, body)). A verifier without a secret
// rejects every delivery.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func newFromConfig(cfg *config.Config) (Verifier, error) {
	if cfg.AppleIAP.WebhookSecret == "" {
		return nil, errEmptySecret
	}
	return NewHMACVerifier(cfg.AppleIAP.WebhookSecret), nil
}

// Sign returns the header value a sender with the same secret would attach to body.
func (v *HMACVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (v *HMACVerifier) Verify(body []byte, signature string) error {
	if signature == "" {
		return apperrors.ErrMissingSignature
	}
	if len(v.secret) == 0 {
		return apperrors.ErrInvalidSignature
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return apperrors.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return apperrors.ErrInvalidSignature
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(newFromConfig),
)
