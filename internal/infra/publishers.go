package infra

import (
	"context"
	"errors"

	"storefront/internal/infra/rabbitmq"
)

// Publishers fans an event out to every sink. A failing sink does not stop
// the others; all errors are joined.
type Publishers []rabbitmq.PublisherInterface

func (p Publishers) Publish(ctx context.Context, routingKey string, data any) error {
	var errs []error
	for _, sink := range p {
		if err := sink.Publish(ctx, routingKey, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ rabbitmq.PublisherInterface = Publishers(nil)
