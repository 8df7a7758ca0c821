package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"

	"estate-marketplace-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the store the pool needs.
type SubscriptionStore interface {
	Subscriptions(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// WorkerPool delivers events in the background. It implements Sink.
type WorkerPool struct {
	size    int
	jobs    chan Event
	relay   Relay
	subs    SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. A nil webpushOptions disables web push.
func NewWorkerPool(size, queueSize int, relay Relay, subs SubscriptionStore, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize < size {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, queueSize),
		relay:   relay,
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has stopped.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	slog.Debug("notification worker started", "worker", id)
	for {
		select {
		case ev := <-wp.jobs:
			wp.deliver(ctx, ev)
		case <-ctx.Done():
			slog.Debug("notification worker shutting down", "worker", id)
			return
		}
	}
}

// Notify queues an event. A full queue drops the event.
func (wp *WorkerPool) Notify(ev Event) {
	select {
	case wp.jobs <- ev:
	default:
		slog.Warn("notification queue full; dropping event", "event", ev.Name, "user", ev.UserID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("notification delivery panicked", "event", ev.Name, "panic", r)
		}
	}()

	if wp.relay != nil && ev.Name != "" {
		if !wp.relay.Send(ev.UserID, ev.Name, ev.Data) {
			slog.Debug("user offline; realtime event dropped", "event", ev.Name, "user", ev.UserID)
		}
	}
	if ev.Push != nil && wp.webpush != nil && wp.subs != nil {
		wp.sendPush(ctx, ev.UserID, ev.Push)
	}
}

// sendPush sends the push payload to every subscription of userID.
func (wp *WorkerPool) sendPush(ctx context.Context, userID uuid.UUID, push *Push) {
	subscriptions, err := wp.subs.Subscriptions(ctx, userID)
	if err != nil {
		slog.Warn("could not load push subscriptions", "user", userID, "error", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(push)
	if err != nil {
		slog.Warn("could not encode push payload", "error", err)
		return
	}
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		slog.Warn("push delivery failed", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		slog.Info("push subscription expired; deleting", "endpoint", sub.Endpoint)
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			slog.Warn("failed to delete expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
