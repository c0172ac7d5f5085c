package notify

import "context"

// Sink receives operation notifications.
type Sink interface {
	Publish(ctx context.Context, n Notification) error
}

// Multi fans a notification out to several sinks, stopping on first error.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, n Notification) error {
	for _, sink := range m {
		if err := sink.Publish(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops all notifications.
type Discard struct{}

func (Discard) Publish(context.Context, Notification) error { return nil }
