// notifications.go implements the transaction-notification channel: a
// single multiplexed WebSocket connection delivering terminal transaction
// outcomes by transaction id. Per the redesign flag in spec.md §9, this is
// encapsulated as an owned collaborator with explicit open()/close() and a
// typed waiter registry, rather than the process-wide global the source
// exposes.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"galaswap-agent/internal/errs"
	"galaswap-agent/pkg/types"
)

// notificationPath is the bundler's transaction-status socket path.
const notificationPath = "/v1/trade/socket"

// NotificationURL derives the notification channel's websocket URL from an
// HTTP(S) base URL (https -> wss, http -> ws).
func NotificationURL(baseURL string) string {
	u := baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimSuffix(u, "/") + notificationPath
}

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// NotificationChannel owns the single connection and a waiter registry
// keyed by transaction id. Register a waiter before submitting a swap;
// the matching event resolves it, or it resolves on timeout.
type NotificationChannel struct {
	url    string
	logger *slog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	waitersMu sync.Mutex
	waiters   map[string]chan types.TransactionNotification
}

// NewNotificationChannel creates a channel bound to the given websocket URL.
// It does not connect until Run is called.
func NewNotificationChannel(url string, logger *slog.Logger) *NotificationChannel {
	return &NotificationChannel{
		url:     url,
		waiters: make(map[string]chan types.TransactionNotification),
		logger:  logger.With("component", "notifications"),
	}
}

// Run connects and maintains the connection with auto-reconnect until ctx
// is cancelled. Intended to run as one of the engine's long-lived tasks.
func (n *NotificationChannel) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := n.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n.logger.Warn("notification channel disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// AwaitTransaction registers a waiter for txID, blocking until a matching
// notification arrives, the timeout elapses, or ctx is cancelled. Exactly
// one of (*types.TransactionNotification, error) is meaningful.
func (n *NotificationChannel) AwaitTransaction(ctx context.Context, txID string, timeout time.Duration) (*types.TransactionNotification, error) {
	ch := make(chan types.TransactionNotification, 1)

	n.waitersMu.Lock()
	n.waiters[txID] = ch
	n.waitersMu.Unlock()

	defer func() {
		n.waitersMu.Lock()
		delete(n.waiters, txID)
		n.waitersMu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case evt := <-ch:
		return &evt, nil
	case <-timer.C:
		return nil, errs.ExecutionTimeout(nil, "transaction %s did not resolve within %s", txID, timeout)
	case <-ctx.Done():
		return nil, errs.Cancelled(ctx.Err(), "transaction %s", txID)
	}
}

// Close closes the underlying connection, if any.
func (n *NotificationChannel) Close() error {
	n.connMu.Lock()
	defer n.connMu.Unlock()
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

func (n *NotificationChannel) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, n.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	n.connMu.Lock()
	n.conn = conn
	n.connMu.Unlock()

	defer func() {
		n.connMu.Lock()
		conn.Close()
		n.conn = nil
		n.connMu.Unlock()
	}()

	n.logger.Info("notification channel connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go n.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		n.dispatchMessage(msg)
	}
}

func (n *NotificationChannel) dispatchMessage(data []byte) {
	var evt types.TransactionNotification
	if err := json.Unmarshal(data, &evt); err != nil {
		n.logger.Debug("ignoring non-json notification message", "data", string(data))
		return
	}
	if evt.TransactionID == "" {
		return
	}

	n.waitersMu.Lock()
	ch, ok := n.waiters[evt.TransactionID]
	n.waitersMu.Unlock()

	if !ok {
		n.logger.Debug("no waiter for transaction, discarding", "txId", evt.TransactionID)
		return
	}

	select {
	case ch <- evt:
	default:
		n.logger.Warn("waiter channel full, dropping notification", "txId", evt.TransactionID)
	}
}

func (n *NotificationChannel) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.connMu.Lock()
			conn := n.conn
			n.connMu.Unlock()
			if conn == nil {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				n.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}
