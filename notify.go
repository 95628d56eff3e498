package offlinecache

import "context"

// Notification is a push-style message surfaced to the user
type Notification struct {
	Title string
	Body  string
	Icon  string
	Badge string
}

// Notifier displays notifications on behalf of the relay
type Notifier interface {
	Show(ctx context.Context, n Notification) error
}

// Relay surfaces push payloads as notifications with fixed iconography and
// routes a notification click to the application root. It keeps no state and
// never touches the cache layer.
type Relay struct {
	notifier Notifier
	title    string
	icon     string
	badge    string
	landing  string
}

// NewRelay creates a notification relay with the application's fixed title
// and icon set.
func NewRelay(notifier Notifier) *Relay {
	return &Relay{
		notifier: notifier,
		title:    "UniStay",
		icon:     "/icons/icon-192x192.png",
		badge:    "/icons/icon-72x72.png",
		landing:  "/",
	}
}

// HandlePush displays a notification for the payload. An empty payload is
// allowed and shows the fixed title alone.
func (r *Relay) HandlePush(ctx context.Context, payload string) error {
	return r.notifier.Show(ctx, Notification{
		Title: r.title,
		Body:  payload,
		Icon:  r.icon,
		Badge: r.badge,
	})
}

// HandleClick dismisses the clicked notification and returns the landing
// location the user should be taken to.
func (r *Relay) HandleClick(dismiss func()) string {
	if dismiss != nil {
		dismiss()
	}
	return r.landing
}
