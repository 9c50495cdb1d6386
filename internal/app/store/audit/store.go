// internal/app/store/audit/store.go
package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/dalemusser/civic/internal/app/system/paging"
	"github.com/dalemusser/civic/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is the page size used when a query passes none.
const DefaultLimit = paging.PageSize

// Store is the governance ledger. Entries are inserted and never updated or
// deleted; the type exposes no method that could do either.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_log")}
}

// Insert appends an entry, assigning its id and timestamp when unset.
// Timestamps are truncated to the millisecond precision MongoDB stores.
func (s *Store) Insert(ctx context.Context, e models.AuditEntry) (models.AuditEntry, error) {
	e = Prepare(e)
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.AuditEntry{}, err
	}
	return e, nil
}

// GetByID returns one entry or mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.AuditEntry, error) {
	var e models.AuditEntry
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return models.AuditEntry{}, err
	}
	return e, nil
}

// Query returns a newest-first page of a group's entries.
func (s *Store) Query(ctx context.Context, q models.AuditQuery) (models.AuditPage, error) {
	filter := bson.M{"group_id": q.GroupID}
	if len(q.Actions) > 0 {
		filter["action_type"] = bson.M{"$in": q.Actions}
	}
	if at, id, ok := DecodeCursor(q.Cursor); ok {
		filter["$or"] = []bson.M{
			{"created_at": bson.M{"$lt": at}},
			{"created_at": at, "_id": bson.M{"$lt": id}},
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(paging.LimitPlusOne(limit))

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return models.AuditPage{}, err
	}
	defer cur.Close(ctx)

	var entries []models.AuditEntry
	if err := cur.All(ctx, &entries); err != nil {
		return models.AuditPage{}, err
	}
	return Page(entries, limit), nil
}

// CountByGroup returns the number of entries written for a group.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID})
}

// Prepare fills in the id and timestamp of a new entry.
func Prepare(e models.AuditEntry) models.AuditEntry {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Millisecond)
	return e
}

// Page trims a result fetched with limit+1 rows and sets the next cursor when
// more rows remain.
func Page(entries []models.AuditEntry, limit int64) models.AuditPage {
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	rows, more := paging.TrimPage(entries, limit)
	page := models.AuditPage{Entries: rows}
	if more {
		page.NextCursor = EncodeCursor(rows[len(rows)-1])
	}
	return page
}

// EncodeCursor returns the keyset cursor positioned after e.
func EncodeCursor(e models.AuditEntry) string {
	return wafflemongo.EncodeCursor(strconv.FormatInt(e.CreatedAt.UnixMilli(), 10), e.ID)
}

// DecodeCursor parses a cursor from EncodeCursor.
func DecodeCursor(s string) (time.Time, primitive.ObjectID, bool) {
	if s == "" {
		return time.Time{}, primitive.NilObjectID, false
	}
	c, ok := wafflemongo.DecodeCursor(s)
	if !ok {
		return time.Time{}, primitive.NilObjectID, false
	}
	ms, err := strconv.ParseInt(c.CI, 10, 64)
	if err != nil {
		return time.Time{}, primitive.NilObjectID, false
	}
	return time.UnixMilli(ms).UTC(), c.ID, true
}
