package domain

import "context"

// EventSink receives every successfully interpreted gaze event.
type EventSink interface {
	Publish(ctx context.Context, ev GazeEvent) error
}
