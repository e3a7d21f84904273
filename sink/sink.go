// Package sink provides observers for interpreted gaze events.
package sink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hxri-nxrxyxn/eyetap/domain"
)

// Log writes every event to the default slog logger.
type Log struct{}

func (Log) Publish(_ context.Context, ev domain.GazeEvent) error {
	slog.Info("gaze event received", "direction", ev.Direction, "clientId", ev.ClientID)
	return nil
}

// Func adapts an application callback to domain.EventSink.
type Func func(ctx context.Context, ev domain.GazeEvent) error

func (f Func) Publish(ctx context.Context, ev domain.GazeEvent) error {
	return f(ctx, ev)
}

// Multi publishes to every sink in order. A failing sink does not stop the
// others; their errors are joined.
type Multi []domain.EventSink

func (m Multi) Publish(ctx context.Context, ev domain.GazeEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
