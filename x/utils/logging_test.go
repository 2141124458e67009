package utils

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/store"
	"github.com/stretchr/testify/assert"
	"github.com/tendermint/tendermint/libs/log"
)

func TestLogging(t *testing.T) {
	cases := map[string]struct {
		err      error
		lowPrio  bool
		allow    log.Option
		wantLogs bool
	}{
		"success logged at info": {
			allow:    log.AllowInfo(),
			wantLogs: true,
		},
		"low priority success hidden at info": {
			lowPrio:  true,
			allow:    log.AllowInfo(),
			wantLogs: false,
		},
		"low priority success logged at debug": {
			lowPrio:  true,
			allow:    log.AllowDebug(),
			wantLogs: true,
		},
		"failure logged at error": {
			err:      fmt.Errorf("failure"),
			lowPrio:  true,
			allow:    log.AllowError(),
			wantLogs: true,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var buf bytes.Buffer
			logger := log.NewFilter(log.NewTMLogger(log.NewSyncWriter(&buf)), tc.allow)
			ctx := custody.WithLogger(context.Background(), logger)

			op := func(ctx context.Context, db custody.KVStore) error { return tc.err }
			err := Chain(op, Logging("my operation", tc.lowPrio))(ctx, store.MemStore())
			assert.Equal(t, tc.err, err)

			if tc.wantLogs {
				assert.Contains(t, buf.String(), "my operation")
				assert.Contains(t, buf.String(), "duration")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}
