package payments

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// AlipayConfig holds the public key Alipay signs notifications with.
type AlipayConfig struct {
	AppID         string
	NotifyURL     string
	AlipayPubPEM  string // Alipay's RSA public key, PEM-encoded
}

type AlipayClient struct {
	Config     AlipayConfig
	HTTPClient *http.Client

	publicKey *rsa.PublicKey
}

func NewAlipayClient(cfg AlipayConfig) (*AlipayClient, error) {
	block, _ := pem.Decode([]byte(cfg.AlipayPubPEM))
	if block == nil {
		return nil, errors.New("alipay: invalid public key PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("alipay: parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("alipay: public key is not RSA")
	}
	return &AlipayClient{Config: cfg, HTTPClient: &http.Client{}, publicKey: rsaPub}, nil
}

type alipayNotification struct {
	OrderID   string `json:"out_trade_no"`
	TxnID     string `json:"trade_no"`
	TradeStat string `json:"trade_status"`
	Sign      string `json:"sign"`
}

// VerifyNotification checks the RSA2 signature Alipay attaches to every
// server notification: the signable content is every non-empty field
// except sign/sign_type, joined as key=value&..., sorted by key.
func (c *AlipayClient) VerifyNotification(ctx context.Context, payload []byte, _ string) (orderID, providerTxnID string, err error) {
	var n alipayNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return "", "", fmt.Errorf("alipay: invalid notification payload: %w", err)
	}
	if n.TradeStat != "TRADE_SUCCESS" && n.TradeStat != "TRADE_FINISHED" {
		return "", "", errors.New("alipay: notification reports a non-success trade status")
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return "", "", fmt.Errorf("alipay: invalid notification payload: %w", err)
	}

	signable := signableContent(raw)
	sig, err := base64.StdEncoding.DecodeString(n.Sign)
	if err != nil {
		return "", "", fmt.Errorf("alipay: invalid signature encoding: %w", err)
	}

	digest := sha256.Sum256([]byte(signable))
	if err := rsa.VerifyPKCS1v15(c.publicKey, crypto.SHA256, digest[:], sig); err != nil {
		return "", "", fmt.Errorf("alipay: signature verification failed: %w", err)
	}

	return n.OrderID, n.TxnID, nil
}

func signableContent(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "sign" || k == "sign_type" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := fields[k]
		if v == nil || v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		fmt.Fprintf(&b, "%s=%v", k, v)
	}
	return b.String()
}
