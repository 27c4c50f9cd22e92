package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

// RetryingRowSource wraps a RowSource with exponential-backoff retry via
// github.com/cenkalti/backoff. A backing-store failure is still never
// surfaced as an error to the caller: once retries are exhausted, the
// failure is logged and empty columns are returned.
type RetryingRowSource struct {
	Inner RowSource
	// Log receives a warning for every retried attempt. Defaults to a new
	// logrus logger writing to stderr if nil.
	Log logrus.FieldLogger
}

// Execute retries Inner.Execute with exponential backoff until it
// succeeds or the backoff policy's default maximum elapsed time runs out.
// ctx is passed to every attempt; its cancellation does not stop the
// retry loop itself.
func (r RetryingRowSource) Execute(ctx context.Context, q Query) (Columns, error) {
	log := r.Log
	if log == nil {
		log = logrus.New()
	}
	var cols Columns
	op := func() error {
		var err error
		cols, err = r.Inner.Execute(ctx, q)
		return err
	}
	b := backoff.NewExponentialBackOff()
	err := backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		log.WithError(err).WithField("retryIn", d).Warn("store: backing-store query failed, retrying")
	})
	if err != nil {
		log.WithError(err).Warn("store: backing-store query failed, giving up")
		return Columns{}, nil
	}
	return cols, nil
}
