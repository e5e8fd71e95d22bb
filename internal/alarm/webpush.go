package alarm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"sensor-endpoint/internal/model"
	"sensor-endpoint/internal/store"
)

// NotificationSender sends a single web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

type webpushClient struct{}

func (webpushClient) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WebPushSender pushes alarms to every stored browser subscription.
type WebPushSender struct {
	store   store.Store
	options *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWebPushSender creates a sender backed by the real web push client.
func NewWebPushSender(s store.Store, options *webpush.Options, log *zap.Logger) *WebPushSender {
	return &WebPushSender{store: s, options: options, sender: webpushClient{}, log: log}
}

func (w *WebPushSender) Name() string { return "webpush" }

// Send delivers a to each subscription. Expired subscriptions are deleted.
func (w *WebPushSender) Send(ctx context.Context, a Alarm) error {
	subs, err := w.store.ListSubscriptions(ctx)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	payload := []byte(a.Message())
	var failed int
	for _, sub := range subs {
		if err := w.sendOne(ctx, sub, payload); err != nil {
			w.log.Warn("web push failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("web push failed for %d of %d subscriptions", failed, len(subs))
	}
	return nil
}

func (w *WebPushSender) sendOne(ctx context.Context, sub model.AlarmSubscription, payload []byte) error {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := w.sender.Send(payload, wpSub, w.options)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		w.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		return w.store.DeleteSubscription(ctx, sub.Endpoint)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
