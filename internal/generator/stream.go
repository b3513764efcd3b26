package generator

import (
	"context"
	"time"

	"github.com/helixir/paper-generator-service/internal/domain"
)

// GenerateStream runs the pipeline and streams progress events on the
// returned channel. The channel is closed after a terminal event: a
// completed event carrying the assembled paper, or a failed event with
// the error message. The caller owns draining the channel; sends block
// until received, so pipeline pacing follows the consumer.
func (g *Generator) GenerateStream(ctx context.Context, req Request) <-chan domain.ProgressEvent {
	events := make(chan domain.ProgressEvent)

	go func() {
		defer close(events)

		emit := func(event domain.ProgressEvent) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		}

		paper, err := g.run(ctx, req, emit)
		if err != nil {
			emit(domain.ProgressEvent{
				Type:      domain.EventFailed,
				Message:   err.Error(),
				Timestamp: time.Now().UTC(),
			})
			return
		}

		emit(domain.ProgressEvent{
			Type:      domain.EventCompleted,
			PaperID:   paper.ID.String(),
			Paper:     paper,
			Timestamp: time.Now().UTC(),
		})
	}()

	return events
}
