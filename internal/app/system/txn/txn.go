// Package txn runs multi-document writes inside a MongoDB transaction and
// falls back to plain writes on servers that cannot start one (standalone
// mongod, some test containers).
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runner implements governance.Transactor over a mongo client.
type Runner struct {
	client      *mongo.Client
	log         *zap.Logger
	unsupported atomic.Bool
}

// New returns a Runner. A nil client runs every function without a
// transaction.
func New(client *mongo.Client, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{client: client, log: logger}
}

// WithinTx runs fn inside a transaction. If the server does not support
// transactions, fn runs directly and later calls skip the attempt.
func (r *Runner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.client == nil || r.unsupported.Load() {
		return fn(ctx)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			r.disable(err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		r.disable(err)
		return fn(ctx)
	}
	return err
}

func (r *Runner) disable(err error) {
	if r.unsupported.CompareAndSwap(false, true) {
		r.log.Warn("mongo transactions unavailable; running writes without a transaction", zap.Error(err))
	}
}

// Server replies that mean the deployment cannot run multi-document
// transactions. Matching is on these exact phrases so ordinary failures
// inside a transaction are never mistaken for them.
var notSupportedMessages = []string{
	"transaction numbers are only allowed on a replica set member",
	"current topology does not support sessions",
	"sessions are not supported",
}

// IsNotSupported reports whether err means the deployment cannot run
// multi-document transactions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, m := range notSupportedMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
