// Package txn runs multi-document MongoDB transactions with a graceful
// fallback for deployments that cannot support them (standalone servers
// without a replica set).
//
// Callers pass a function that performs every read and write through the
// context it receives. Under a transaction that context is the session
// context, so all operations share one atomic unit; under the fallback the
// operations run sequentially without isolation. Production deployments are
// expected to run against a replica set so the transactional path is taken.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// WithTransaction executes fn inside a MongoDB multi-document transaction.
// If the server does not support transactions or sessions, fn is re-run
// outside a transaction as a degraded fallback.
func WithTransaction(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	session, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return fn(ctx)
	}
	return err
}

// Server error codes that indicate transactions are unavailable:
// 20 IllegalOperation (not a replica set member), 51 and 263 are raised for
// operations that cannot run inside a transaction on this topology.
var notSupportedCodes = map[int32]bool{
	20:  true,
	51:  true,
	263: true,
}

// IsNotSupported reports whether err indicates the server cannot run
// multi-document transactions at all, as opposed to a transaction that
// failed and could be retried.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if notSupportedCodes[ce.Code] {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "transaction") && strings.Contains(msg, "replica set"):
		return true
	case strings.Contains(msg, "session") && strings.Contains(msg, "not supported"):
		return true
	case strings.Contains(msg, "transaction") && strings.Contains(msg, "session"):
		return true
	case strings.Contains(msg, "illegal operation"):
		return true
	}
	return false
}

// IsRetryable reports whether err is a transient transaction failure the
// caller may safely retry: write contention inside a transaction, an
// uncertain commit, or a commit that ran out of time.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.HasErrorLabel("TransientTransactionError") ||
			ce.HasErrorLabel("UnknownTransactionCommitResult")
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, label := range we.Labels {
			if label == "TransientTransactionError" {
				return true
			}
		}
	}
	return false
}
