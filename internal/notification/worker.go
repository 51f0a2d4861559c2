package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"machine-access-backend/internal/engine"
	"machine-access-backend/internal/history"
	"machine-access-backend/internal/model"
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

// WorkerPool fans audit events out to the history store, the Slack
// channel, and subscribed staff browsers. Events are dispatched after
// the state mutation has already persisted; a delivery failure here is
// logged and never rolls anything back.
type WorkerPool struct {
	size    int
	jobs    chan engine.Event
	history history.Store
	slack   SlackSender
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool. slack may be nil when no
// webhook is configured.
func NewWorkerPool(size int, hist history.Store, slack SlackSender, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan engine.Event, size*4),
		history: hist,
		slack:   slack,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notification worker %d started", id)
	for {
		select {
		case ev := <-wp.jobs:
			wp.deliver(ctx, ev)
		case <-ctx.Done():
			log.Printf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues events for delivery. It never blocks the caller for
// long: if the queue is full the event is still recorded synchronously
// and only the announcement is dropped.
func (wp *WorkerPool) Dispatch(events []engine.Event) {
	for _, ev := range events {
		select {
		case wp.jobs <- ev:
		default:
			log.Printf("notification queue full; recording %s event for %s without announcing", ev.Kind, ev.Machine)
			wp.record(context.Background(), ev)
		}
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan engine.Event {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, ev engine.Event) {
	wp.record(ctx, ev)

	line := Render(ev)
	logAuditLine(ev, line)

	if wp.slack != nil {
		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := wp.slack.Send(sendCtx, line); err != nil {
			log.Printf("slack announce failed for %s: %v", ev.Machine, err)
		}
		cancel()
	}

	if isAlert(ev.Kind) && wp.webpush != nil && wp.webpush.VAPIDPrivateKey != "" {
		wp.pushAlert(ctx, ev, line)
	}
}

func (wp *WorkerPool) record(ctx context.Context, ev engine.Event) {
	if wp.history == nil {
		return
	}
	if err := wp.history.Record(ctx, ev); err != nil {
		log.Printf("failed to record %s event for %s: %v", ev.Kind, ev.Machine, err)
	}
}

// logAuditLine emits a structured JSON audit record alongside the
// human-readable announcement.
func logAuditLine(ev engine.Event, line string) {
	entry := map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"type":    "audit",
		"event":   string(ev.Kind),
		"machine": ev.Machine,
		"message": line,
	}
	if ev.AccountID != "" {
		entry["account_id"] = ev.AccountID
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("audit log marshal failed: %v", err)
		return
	}
	log.Println(string(data))
}

// pushAlert fans an alert out to every subscription that follows the
// machine (or follows everything).
func (wp *WorkerPool) pushAlert(ctx context.Context, ev engine.Event, line string) {
	var subscriptions []model.PushSubscription
	err := wp.history.DB().WithContext(ctx).Find(&subscriptions).Error
	if err != nil {
		log.Printf("error fetching push subscriptions: %v", err)
		return
	}

	for _, sub := range subscriptions {
		if !subscriptionWantsMachine(sub, ev.Machine) {
			continue
		}
		wp.sendNotification(ctx, sub, []byte(line))
	}
}

func subscriptionWantsMachine(sub model.PushSubscription, machine string) bool {
	if strings.TrimSpace(sub.Machines) == "" {
		return true
	}
	for _, name := range strings.Split(sub.Machines, ",") {
		if strings.TrimSpace(name) == machine {
			return true
		}
	}
	return false
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
		log.Printf("error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("subscription for endpoint %s is expired, deleting", sub.Endpoint)
		if err := wp.history.DB().WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
