package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"galaswap-agent/pkg/types"
)

func newTestChannel() *NotificationChannel {
	return NewNotificationChannel("ws://unused", testLogger())
}

func TestAwaitTransaction_ResolvesOnMatchingDispatch(t *testing.T) {
	t.Parallel()

	n := newTestChannel()

	resultCh := make(chan *types.TransactionNotification, 1)
	errCh := make(chan error, 1)
	go func() {
		evt, err := n.AwaitTransaction(context.Background(), "tx-1", time.Second)
		resultCh <- evt
		errCh <- err
	}()

	// Give the goroutine a moment to register its waiter before dispatch.
	time.Sleep(10 * time.Millisecond)

	data, _ := json.Marshal(types.TransactionNotification{TransactionID: "tx-1", Status: types.NotificationProcessed})
	n.dispatchMessage(data)

	if err := <-errCh; err != nil {
		t.Fatalf("AwaitTransaction: %v", err)
	}
	evt := <-resultCh
	if evt.Status != types.NotificationProcessed {
		t.Errorf("Status = %q, want %q", evt.Status, types.NotificationProcessed)
	}
}

func TestAwaitTransaction_TimesOutWithoutMatch(t *testing.T) {
	t.Parallel()

	n := newTestChannel()

	_, err := n.AwaitTransaction(context.Background(), "tx-2", 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error when no notification ever arrives")
	}
}

func TestAwaitTransaction_CancelledContext(t *testing.T) {
	t.Parallel()

	n := newTestChannel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := n.AwaitTransaction(ctx, "tx-3", time.Second)
	if err == nil {
		t.Fatal("expected an error when the context is already cancelled")
	}
}

func TestDispatchMessage_IgnoresNonJSONAndEmptyID(t *testing.T) {
	t.Parallel()

	n := newTestChannel()

	// Neither call should panic; there is no way to observe a discarded
	// message other than the absence of a panic or deadlock.
	n.dispatchMessage([]byte("not json"))

	data, _ := json.Marshal(types.TransactionNotification{Status: types.NotificationFailed})
	n.dispatchMessage(data)
}

func TestDispatchMessage_DropsWhenWaiterChannelFull(t *testing.T) {
	t.Parallel()

	n := newTestChannel()
	ch := make(chan types.TransactionNotification, 1)
	n.waitersMu.Lock()
	n.waiters["tx-4"] = ch
	n.waitersMu.Unlock()

	data, _ := json.Marshal(types.TransactionNotification{TransactionID: "tx-4", Status: types.NotificationProcessed})
	n.dispatchMessage(data) // fills the buffered channel
	n.dispatchMessage(data) // should drop silently rather than block

	select {
	case <-ch:
	default:
		t.Fatal("expected the first dispatch to have delivered into the waiter channel")
	}
}

func TestNotificationURL_SchemeConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://dex-backend-prod1.defi.gala.com", "wss://dex-backend-prod1.defi.gala.com/v1/trade/socket"},
		{"http://localhost:8080", "ws://localhost:8080/v1/trade/socket"},
		{"http://localhost:8080/", "ws://localhost:8080/v1/trade/socket"},
	}
	for _, tt := range tests {
		if got := NotificationURL(tt.in); got != tt.want {
			t.Errorf("NotificationURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
