// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	for _, set := range []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"groups", ensureGroups},
		{"group_members", ensureGroupMembers},
		{"join_requests", ensureJoinRequests},
		{"proposals", ensureProposals},
		{"audit_log", ensureAuditLog},
		{"funds", ensureFunds},
		{"users", ensureUsers},
	} {
		if err := set.fn(ctx, db); err != nil {
			problems = append(problems, set.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	return (a != nil && *a) == (b != nil && *b)
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

// listIndexes maps key signature to the existing index.
func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	for _, m := range models {
		if err := ensureOne(ctx, coll, m); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ensureOne creates m unless an index with the same keys, uniqueness, and
// name exists. A same-key index with another name or uniqueness is dropped
// and recreated.
func ensureOne(ctx context.Context, coll *mongo.Collection, m mongo.IndexModel) error {
	var name string
	var unique *bool
	if m.Options != nil {
		if m.Options.Name != nil {
			name = *m.Options.Name
		}
		unique = m.Options.Unique
	}
	sig := keySig(m.Keys.(bson.D))
	isUnique := unique != nil && *unique
	start := time.Now()
	log := zap.L().With(
		zap.String("collection", coll.Name()),
		zap.String("name", name),
		zap.String("keys", sig),
		zap.Bool("unique", isUnique))

	if ex, ok := listIndexes(ctx, coll)[sig]; ok {
		if sameBoolPtr(unique, ex.Unique) && (name == "" || ex.Name == name) {
			log.Info("reusing existing index", zap.String("took", time.Since(start).String()))
			return nil
		}
		log.Info("replacing index with different name or options", zap.String("existing", ex.Name))
		if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
			return fmt.Errorf("%s(%s): drop failed: %v", coll.Name(), name, err)
		}
	}

	_, err := coll.Indexes().CreateOne(ctx, m)
	if isOptionsConflictErr(err) {
		if match, ok := listIndexes(ctx, coll)[sig]; ok {
			if _, dropErr := coll.Indexes().DropOne(ctx, match.Name); dropErr != nil {
				log.Warn("failed to drop conflicting index", zap.String("existing", match.Name), zap.Error(dropErr))
			}
			_, err = coll.Indexes().CreateOne(ctx, m)
		}
	}
	if err != nil {
		log.Warn("index ensure failed", zap.String("took", time.Since(start).String()), zap.Error(err))
		if isDuplicateKeyErr(err) && isUnique {
			return fmt.Errorf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name)
		}
		return fmt.Errorf("%s(%s): %v", coll.Name(), name, err)
	}
	log.Info("index ensured", zap.String("took", time.Since(start).String()))
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("groups"), []mongo.IndexModel{
		// Directory listing by folded name with stable tiebreak
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_groups_nameci__id"),
		},
	})
}

func ensureGroupMembers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("group_members"), []mongo.IndexModel{
		// Exactly one membership per (group, user); role changes update the doc
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_gm_group_user"),
		},
		// Live role counts
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "role", Value: 1}},
			Options: options.Index().SetName("idx_gm_group_role"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_gm_user"),
		},
	})
}

func ensureJoinRequests(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("join_requests"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_jr_group_status_created"),
		},
		// Open request lookup for one applicant
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_jr_group_user_status"),
		},
	})
}

func ensureProposals(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("proposals"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_prop_group_status_created"),
		},
		// Expiry sweep
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_prop_status_expires"),
		},
		// Participation window
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "resolved_at", Value: -1}},
			Options: options.Index().SetName("idx_prop_group_resolved"),
		},
	})
}

func ensureAuditLog(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_log"), []mongo.IndexModel{
		// Keyset paging, newest first
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_audit_group_created__id"),
		},
		// Filtered paging (roles, members, proposals, moderation)
		{
			Keys: bson.D{
				{Key: "group_id", Value: 1},
				{Key: "action_type", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_group_action_created__id"),
		},
	})
}

func ensureFunds(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("funds"), []mongo.IndexModel{
		// One fund per approved proposal; a retried execution cannot create a second
		{
			Keys:    bson.D{{Key: "proposal_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_funds_proposal"),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_funds_group_created"),
		},
	})
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_fullnameci__id"),
		},
	})
}
