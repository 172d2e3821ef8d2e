package payments

import (
	"context"
	"encoding/json"
	"testing"
)

func TestWeChatClient_VerifyNotification_ValidSignature(t *testing.T) {
	client := NewWeChatClient(WeChatConfig{APIKey: "test-api-key"})

	fields := map[string]any{
		"out_trade_no":  "order_1",
		"transaction_id": "txn_1",
		"total_fee":     2999,
		"result_code":   "SUCCESS",
	}
	fields["sign"] = client.sign(fields)

	payload, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	orderID, txnID, err := client.VerifyNotification(context.Background(), payload, "")
	if err != nil {
		t.Fatalf("VerifyNotification: %v", err)
	}
	if orderID != "order_1" || txnID != "txn_1" {
		t.Fatalf("unexpected result: orderID=%s txnID=%s", orderID, txnID)
	}
}

func TestWeChatClient_VerifyNotification_TamperedSignatureRejected(t *testing.T) {
	client := NewWeChatClient(WeChatConfig{APIKey: "test-api-key"})

	fields := map[string]any{
		"out_trade_no":  "order_1",
		"transaction_id": "txn_1",
		"total_fee":     2999,
		"result_code":   "SUCCESS",
		"sign":          "not-a-real-signature",
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if _, _, err := client.VerifyNotification(context.Background(), payload, ""); err == nil {
		t.Fatal("expected a tampered signature to be rejected")
	}
}

func TestWeChatClient_VerifyNotification_FailedResultRejected(t *testing.T) {
	client := NewWeChatClient(WeChatConfig{APIKey: "test-api-key"})

	fields := map[string]any{
		"out_trade_no": "order_1",
		"result_code":  "FAIL",
	}
	fields["sign"] = client.sign(fields)
	payload, _ := json.Marshal(fields)

	if _, _, err := client.VerifyNotification(context.Background(), payload, ""); err == nil {
		t.Fatal("expected a FAIL result_code to be rejected")
	}
}
