// Package push delivers Web Push notifications to household devices.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/rowanvale/choreboard/internal/model"
)

// ErrExpired marks a subscription the push service reports as gone. The
// caller should drop the stored subscription.
var ErrExpired = errors.New("push subscription expired")

// Payload is what the service worker receives.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Service signs and sends Web Push messages with a VAPID key pair.
type Service struct {
	opts webpush.Options
}

const defaultTTL = 24 * time.Hour

func NewService(publicKey, privateKey string) *Service {
	return &Service{
		opts: webpush.Options{
			VAPIDPublicKey:  publicKey,
			VAPIDPrivateKey: privateKey,
			Subscriber:      "mailto:noreply@choreboard.app",
			TTL:             int(defaultTTL / time.Second),
			Urgency:         webpush.UrgencyNormal,
		},
	}
}

// VAPIDPublicKey is handed to browsers so they can create subscriptions
// addressed to this server.
func (s *Service) VAPIDPublicKey() string {
	return s.opts.VAPIDPublicKey
}

// Send pushes one payload to one subscription.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	target := webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dhKey, Auth: sub.AuthKey},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, body, &target, &s.opts)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrExpired
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys makes a fresh P-256 pair in the URL-safe base64 form
// the browser push API expects. Used by deployments to mint keys once.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate vapid keys: %w", err)
	}
	return publicKey, privateKey, nil
}
