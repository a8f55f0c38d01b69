// Package kvutil provides small helpers for NATS JetStream KeyValue buckets.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const ensureAttempts = 3

// EnsureBucket creates the KV bucket described by config, or opens it if
// another group member created it first.
//
// Several processes race to create the rank bucket when a group boots, so
// ErrBucketExists is the expected outcome for all but one of them. Transient
// failures are retried a few times with short backoff.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - config: Bucket configuration (name, TTL, storage)
//
// Returns:
//   - jetstream.KeyValue: The created or opened bucket
//   - error: Last failure after all attempts, or context cancellation
func EnsureBucket(ctx context.Context, js jetstream.JetStream, config jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	var lastErr error

	for attempt := 0; attempt < ensureAttempts; attempt++ {
		kv, err := js.CreateKeyValue(ctx, config)
		if err == nil {
			return kv, nil
		}

		if errors.Is(err, jetstream.ErrBucketExists) {
			if kv, err = js.KeyValue(ctx, config.Bucket); err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but open failed: %w", err)
		} else {
			lastErr = err
		}

		backoff := time.Duration(attempt+1) * 25 * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("ensure KV bucket %s: %w", config.Bucket, lastErr)
}
