package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nhle/taskboard/internal/model"
)

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MongoStore)(nil)
)

// MongoStore implements the Store interface on MongoDB. Live queries are
// change streams and batches run inside a transaction, so the deployment
// must be a replica set.
type MongoStore struct {
	client        *mongo.Client
	notifications *mongo.Collection
	projects      *mongo.Collection
	tasks         *mongo.Collection
	messages      *mongo.Collection
	users         *mongo.Collection
	now           func() time.Time
}

// notificationDoc stores a notification under "<project>/<id>" so the
// composite key stays unique across projects.
type notificationDoc struct {
	Key                string `bson:"_id"`
	model.Notification `bson:",inline"`
}

func notificationKey(ref model.NotificationRef) string {
	return ref.ProjectID + "/" + ref.ID
}

// NewMongoStore connects to uri and prepares the collections of database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:        client,
		notifications: db.Collection("notifications"),
		projects:      db.Collection("projects"),
		tasks:         db.Collection("tasks"),
		messages:      db.Collection("messages"),
		users:         db.Collection("users"),
		now:           time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.notifications, mongo.IndexModel{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}}},
		{s.notifications, mongo.IndexModel{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "recipient_id", Value: 1}}}},
		{s.projects, mongo.IndexModel{Keys: bson.D{{Key: "members", Value: 1}}}},
		{s.tasks, mongo.IndexModel{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "order", Value: 1}}}},
		{s.messages, mongo.IndexModel{Keys: bson.D{{Key: "task_id", Value: 1}, {Key: "created_at", Value: 1}}}},
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "email_lower", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("creating index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

// UpsertNotification replaces the document with the same ref, resetting
// read and created_at.
func (s *MongoStore) UpsertNotification(ctx context.Context, n model.Notification) error {
	const op = "upserting notification"
	if n.ProjectID == "" || n.ID == "" {
		return Errorf(op, CodeInvalidArgument, "project and id are required")
	}
	n.Read = false
	n.CreatedAt = s.now().UTC()

	doc := notificationDoc{Key: notificationKey(n.Ref()), Notification: n}
	_, err := s.notifications.ReplaceOne(ctx,
		bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true))
	return classifyMongo(op, err)
}

// SetNotificationRead updates the read flag of a single notification.
func (s *MongoStore) SetNotificationRead(ctx context.Context, ref model.NotificationRef, read bool) error {
	const op = "marking notification"
	res, err := s.notifications.UpdateOne(ctx,
		bson.M{"_id": notificationKey(ref)}, bson.M{"$set": bson.M{"read": read}})
	if err != nil {
		return classifyMongo(op, err)
	}
	if res.MatchedCount == 0 {
		return Errorf(op, CodeNotFound, "notification %s not found", ref.ID)
	}
	return nil
}

// DeleteNotification removes a notification.
func (s *MongoStore) DeleteNotification(ctx context.Context, ref model.NotificationRef) error {
	_, err := s.notifications.DeleteOne(ctx, bson.M{"_id": notificationKey(ref)})
	return classifyMongo("deleting notification", err)
}

func notificationQuery(f NotificationFilter) bson.M {
	filter := bson.M{"recipient_id": f.RecipientID}
	if !f.Grouped() {
		filter["project_id"] = f.ProjectID
	}
	if f.UnreadOnly {
		filter["read"] = false
	}
	return filter
}

// QueryNotifications returns the notifications matching f, newest first.
func (s *MongoStore) QueryNotifications(ctx context.Context, f NotificationFilter) ([]model.Notification, error) {
	const op = "querying notifications"
	if f.RecipientID == "" {
		return nil, Errorf(op, CodeInvalidArgument, "recipient is required")
	}

	cursor, err := s.notifications.Find(ctx, notificationQuery(f),
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, classifyMongo(op, err)
	}
	var docs []notificationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classifyMongo(op, err)
	}

	list := make([]model.Notification, 0, len(docs))
	for _, d := range docs {
		list = append(list, d.Notification)
	}
	return list, nil
}

// WatchNotifications runs f as a live query backed by a change stream.
func (s *MongoStore) WatchNotifications(
	f NotificationFilter,
	onChange func([]model.Notification),
	onError func(error),
) Unsubscribe {
	return watchStream(s.notifications,
		func(ctx context.Context) ([]model.Notification, error) {
			return s.QueryNotifications(ctx, f)
		},
		onChange, onError,
	)
}

// CommitBatch applies ops inside a transaction.
func (s *MongoStore) CommitBatch(ctx context.Context, ops []BatchOp) error {
	const op = "committing batch"
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > MaxBatchWrites {
		return Errorf(op, CodeInvalidArgument,
			"%d writes exceeds the limit of %d", len(ops), MaxBatchWrites)
	}

	var updates int64
	writes := make([]mongo.WriteModel, 0, len(ops))
	for _, o := range ops {
		filter := bson.M{"_id": notificationKey(o.Ref)}
		switch o.Kind {
		case BatchSetRead:
			updates++
			writes = append(writes, mongo.NewUpdateOneModel().
				SetFilter(filter).
				SetUpdate(bson.M{"$set": bson.M{"read": o.Read}}))
		case BatchDelete:
			writes = append(writes, mongo.NewDeleteOneModel().SetFilter(filter))
		default:
			return Errorf(op, CodeInvalidArgument, "unknown batch op %d", o.Kind)
		}
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return classifyMongo(op, err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := s.notifications.BulkWrite(sc, writes, options.BulkWrite().SetOrdered(true))
		if err != nil {
			return nil, err
		}
		if res.MatchedCount < updates {
			return nil, Errorf(op, CodeNotFound,
				"%d of %d notifications not found", updates-res.MatchedCount, updates)
		}
		return res, nil
	})
	return classifyMongo(op, err)
}

// watchStream delivers query results once and after every change event on
// coll. Events already buffered are drained first so a burst of writes
// costs one query.
func watchStream[T any](
	coll *mongo.Collection,
	query func(ctx context.Context) ([]T, error),
	onChange func([]T),
	onError func(error),
) Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())

	fail := func(err error) {
		if ctx.Err() == nil && onError != nil {
			onError(classifyMongo("watching "+coll.Name(), err))
		}
	}

	go func() {
		stream, err := coll.Watch(ctx, mongo.Pipeline{})
		if err != nil {
			fail(err)
			return
		}
		defer stream.Close(context.Background())

		deliver := func() bool {
			list, err := query(ctx)
			if ctx.Err() != nil {
				return false
			}
			if err != nil {
				fail(err)
				return false
			}
			onChange(list)
			return true
		}

		if !deliver() {
			return
		}
		for stream.Next(ctx) {
			for stream.RemainingBatchLength() > 0 && stream.Next(ctx) {
			}
			if !deliver() {
				return
			}
		}
		if err := stream.Err(); err != nil {
			fail(err)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }
}

// Server error codes used for classification.
const (
	mongoUnauthorized         = 13
	mongoAuthenticationFailed = 18
	mongoWriteConflict        = 112
	mongoNoSuchTransaction    = 251
	mongoChangeStreamNoRepl   = 40573
)

// classifyMongo maps driver errors onto the store error taxonomy.
func classifyMongo(op string, err error) error {
	if err == nil {
		return nil
	}

	var storeErr *Error
	if errors.As(err, &storeErr) {
		return err
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return &Error{Op: op, Code: CodeNotFound, Err: err}
	case mongo.IsTimeout(err):
		return &Error{Op: op, Code: CodeDeadlineExceeded, Err: err}
	case mongo.IsNetworkError(err):
		return &Error{Op: op, Code: CodeUnavailable, Err: err}
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case mongoUnauthorized:
			return &Error{Op: op, Code: CodePermissionDenied, Err: err}
		case mongoAuthenticationFailed:
			return &Error{Op: op, Code: CodeUnauthenticated, Err: err}
		case mongoWriteConflict, mongoNoSuchTransaction:
			return &Error{Op: op, Code: CodeAborted, Err: err}
		case mongoChangeStreamNoRepl:
			return &Error{Op: op, Code: CodeFailedPrecondition, Err: err}
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
