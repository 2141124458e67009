package utils

import (
	"context"
	"time"

	"github.com/iov-one/custody"
)

// Logging writes the operation name, its duration and result to the context
// logger. Errors are logged at error level, successful operations at info
// level unless lowPrio is set, in which case they are logged at debug level.
func Logging(msg string, lowPrio bool) Decorator {
	return func(next Operation) Operation {
		return func(ctx context.Context, db custody.KVStore) error {
			start := time.Now()
			err := next(ctx, db)
			LogDuration(ctx, start, msg, err, lowPrio)
			return err
		}
	}
}

// LogDuration writes information about the time and result to the logger
func LogDuration(ctx context.Context, start time.Time, msg string, err error, lowPrio bool) {
	delta := time.Now().Sub(start)
	logger := custody.GetLogger(ctx).With("duration", delta/time.Microsecond)

	if err != nil {
		logger = logger.With("err", err)
	}

	if err != nil {
		logger.Error(msg)
	} else {
		if lowPrio {
			logger.Debug(msg)
		} else {
			logger.Info(msg)
		}
	}
}
