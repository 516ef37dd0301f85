package services

import (
	"context"
	"log"
	"sync"
	"time"

	"nomadlinkAPI/internal/types/notification"
)

// PushProvider delivers a push message to a set of device tokens.
// Implemented by push.FCMService; tests swap in a recorder.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

const (
	dispatcherWorkers   = 5
	dispatcherQueueSize = 100
)

// NotificationDispatcher pushes persisted notifications to devices through a
// small worker pool, so HTTP handlers never block on FCM.
type NotificationDispatcher struct {
	notifications *NotificationService
	provider      PushProvider
	queue         chan *notification.Notification
	stop          chan struct{}
	wg            sync.WaitGroup
}

func NewNotificationDispatcher(notifications *NotificationService, provider PushProvider) *NotificationDispatcher {
	return &NotificationDispatcher{
		notifications: notifications,
		provider:      provider,
		queue:         make(chan *notification.Notification, dispatcherQueueSize),
		stop:          make(chan struct{}),
	}
}

// Start launches the workers and the daily cleanup ticker.
func (d *NotificationDispatcher) Start() {
	for i := 0; i < dispatcherWorkers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	d.wg.Add(1)
	go d.cleanupLoop()

	log.Printf("notification dispatcher started with %d workers", dispatcherWorkers)
}

// Stop drains in-flight work and returns once all workers exit.
func (d *NotificationDispatcher) Stop() {
	close(d.stop)
	d.wg.Wait()
	log.Println("notification dispatcher stopped")
}

// Enqueue hands a notification to the pool. A full queue drops the push (the
// notification stays pending in the DB) rather than blocking the caller.
func (d *NotificationDispatcher) Enqueue(n *notification.Notification) {
	select {
	case d.queue <- n:
	default:
		log.Printf("dispatcher queue full, dropping push for notification %s", n.ID)
	}
}

func (d *NotificationDispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-d.stop:
			// Drain what is already queued before exiting.
			for {
				select {
				case n := <-d.queue:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (d *NotificationDispatcher) deliver(n *notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ok, err := d.notifications.shouldPush(ctx, n)
	if err != nil {
		log.Printf("dispatcher: preference check failed for %s: %v", n.ID, err)
		d.notifications.markAsFailed(ctx, n.ID)
		return
	}
	if !ok {
		// Nothing to push; the in-app notification was already stored.
		d.notifications.markAsSent(ctx, n.ID)
		return
	}

	tokens, err := d.notifications.deviceTokensFor(ctx, n.UserID)
	if err != nil {
		log.Printf("dispatcher: token lookup failed for %s: %v", n.ID, err)
		d.notifications.markAsFailed(ctx, n.ID)
		return
	}

	err = d.provider.SendPush(ctx, tokens, n.Title, n.Body, n.Data)
	if err != nil && n.Priority != notification.PriorityNormal {
		// High and urgent pushes (SOS alerts) get one more attempt.
		log.Printf("dispatcher: push failed for %s, retrying: %v", n.ID, err)
		err = d.provider.SendPush(ctx, tokens, n.Title, n.Body, n.Data)
	}
	if err != nil {
		log.Printf("dispatcher: push failed for %s: %v", n.ID, err)
		d.notifications.markAsFailed(ctx, n.ID)
		return
	}

	d.notifications.markAsSent(ctx, n.ID)
}

func (d *NotificationDispatcher) cleanupLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			deleted, err := d.notifications.CleanupOld(ctx)
			cancel()
			if err != nil {
				log.Printf("dispatcher: cleanup failed: %v", err)
			} else if deleted > 0 {
				log.Printf("dispatcher: cleaned up %d old notifications", deleted)
			}
		case <-d.stop:
			return
		}
	}
}
