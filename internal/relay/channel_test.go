package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// echoRelay upgrades the connection and echoes every message it receives
// back to the same client, standing in for a real relay server in tests.
func echoRelay(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestChannelSendPaymentAndReceiveEcho(t *testing.T) {
	server := echoRelay(t)
	defer server.Close()

	ch, err := Dial(context.Background(), wsURL(server.URL), DefaultConfig())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ch.Close()

	sub := ch.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Listen(ctx)

	payment := SwapPayment{SwapID: "swap-1", PaymentTxID: "tx-1"}
	if err := ch.SendPayment(context.Background(), payment); err != nil {
		t.Fatalf("SendPayment: %v", err)
	}

	select {
	case env := <-sub:
		if env.Type != TypeSwapPayment {
			t.Fatalf("Type = %v, want %v", env.Type, TypeSwapPayment)
		}
		raw, err := json.Marshal(env.Payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		var got SwapPayment
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if got.SwapID != payment.SwapID || got.PaymentTxID != payment.PaymentTxID {
			t.Errorf("got %+v, want %+v", got, payment)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed envelope")
	}
}

func TestChannelSendSecretRoundTrip(t *testing.T) {
	server := echoRelay(t)
	defer server.Close()

	ch, err := Dial(context.Background(), wsURL(server.URL), DefaultConfig())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ch.Close()

	sub := ch.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Listen(ctx)

	secret := SwapSecret{SwapID: "swap-1", Secret: []byte("0123456789abcdef0123456789abcde")}
	if err := ch.SendSecret(context.Background(), secret); err != nil {
		t.Fatalf("SendSecret: %v", err)
	}

	select {
	case env := <-sub:
		if env.Type != TypeSwapSecret {
			t.Fatalf("Type = %v, want %v", env.Type, TypeSwapSecret)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed secret envelope")
	}
}

func TestDialFailsOnUnreachableRelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DialTimeout = 200 * time.Millisecond
	if _, err := Dial(context.Background(), "ws://127.0.0.1:1", cfg); err == nil {
		t.Fatal("expected Dial to fail against an unreachable address")
	}
}
