package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// WeChatConfig holds the merchant credentials a WeChat Pay integration
// needs to sign outbound requests and verify inbound notifications.
type WeChatConfig struct {
	AppID     string
	MchID     string
	APIKey    string
	NotifyURL string
}

// WeChatClient implements Verifier for provider=wechat. HTTPClient is
// exported as a struct field (not a package-level default) so tests can
// substitute a fake RoundTripper the way slot-machine-backend's
// WechatService does.
type WeChatClient struct {
	Config     WeChatConfig
	HTTPClient *http.Client
}

func NewWeChatClient(cfg WeChatConfig) *WeChatClient {
	return &WeChatClient{Config: cfg, HTTPClient: &http.Client{}}
}

type wechatNotification struct {
	OrderID  string `json:"out_trade_no"`
	TxnID    string `json:"transaction_id"`
	Amount   int64  `json:"total_fee"`
	ResultOK string `json:"result_code"`
	Sign     string `json:"sign"`
}

// VerifyNotification checks the notification's sign field against an
// HMAC-SHA256 computed from the merchant API key the way WeChat Pay's
// classic signing scheme works: sort non-empty fields, join as
// key=value&..., HMAC with the merchant API key, compare.
func (c *WeChatClient) VerifyNotification(ctx context.Context, payload []byte, _ string) (orderID, providerTxnID string, err error) {
	var n wechatNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return "", "", fmt.Errorf("wechat: invalid notification payload: %w", err)
	}
	if n.ResultOK != "SUCCESS" {
		return "", "", errors.New("wechat: notification reports a failed payment")
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return "", "", fmt.Errorf("wechat: invalid notification payload: %w", err)
	}
	expected := c.sign(raw)
	if !strings.EqualFold(expected, n.Sign) {
		return "", "", errors.New("wechat: notification signature mismatch")
	}

	return n.OrderID, n.TxnID, nil
}

func (c *WeChatClient) sign(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "sign" {
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
		fmt.Fprintf(&b, "%s=%v&", k, v)
	}

	mac := hmac.New(sha256.New, []byte(c.Config.APIKey))
	mac.Write([]byte(strings.TrimSuffix(b.String(), "&")))
	return hex.EncodeToString(mac.Sum(nil))
}
