package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDoc is the on-disk shape of a document in a Mongo collection.
type mongoDoc struct {
	ID        string    `bson:"_id"`
	Version   int64     `bson:"version"`
	Data      bson.M    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore maps each collection onto a Mongo collection of the same
// name.  Multi-document commits use a session transaction, so the server
// must run as a replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// OpenMongo connects to uri and verifies the connection with a ping.
func OpenMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// NewMongoStore returns a MongoStore using database dbName.
func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the created_at index used for recency queries.
func (s *MongoStore) EnsureIndexes(ctx context.Context, collections ...string) error {
	for _, c := range collections {
		_, err := s.db.Collection(c).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: CreatedAtField, Value: -1}},
			Options: options.Index().SetName(c + "_created_at"),
		})
		if err != nil {
			return fmt.Errorf("%s indexes: %w", c, err)
		}
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var md mongoDoc
	if err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&md); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return md.toDocument()
}

func (s *MongoStore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	filter := bson.D{}
	for _, f := range q.Filters {
		filter = append(filter, bson.E{Key: "data." + f.Field, Value: f.Value})
	}
	opts := options.Find()
	if q.OrderBy != "" {
		key := "data." + q.OrderBy
		if q.OrderBy == CreatedAtField {
			key = CreatedAtField
		}
		dir := 1
		if q.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: key, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	out := make([]Document, 0)
	for cur.Next(ctx) {
		var md mongoDoc
		if err := cur.Decode(&md); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		d, err := md.toDocument()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list %s cursor: %w", collection, err)
	}
	return out, nil
}

func (s *MongoStore) Create(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.NewString()
	if err := s.CreateWithID(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MongoStore) CreateWithID(ctx context.Context, collection, id string, data any) error {
	payload, err := marshalPayload(data)
	if err != nil {
		return err
	}
	return s.insert(ctx, collection, id, payload)
}

func (s *MongoStore) insert(ctx context.Context, collection, id string, payload json.RawMessage) error {
	fields, err := toBSON(payload)
	if err != nil {
		return err
	}
	now := s.now()
	_, err = s.db.Collection(collection).InsertOne(ctx, mongoDoc{
		ID: id, Version: 1, Data: fields, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	set := bson.M{"updated_at": s.now()}
	for k, v := range partial {
		set["data."+k] = v
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Commit runs writes inside one session transaction.
func (s *MongoStore) Commit(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, w := range writes {
			if err := s.apply(sc, w); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *MongoStore) apply(ctx context.Context, w Write) error {
	coll := s.db.Collection(w.Collection)
	filter := bson.M{"_id": w.ID, "version": w.ExpectedVersion}
	switch {
	case w.ExpectedVersion == 0 && !w.Delete:
		return s.insert(ctx, w.Collection, w.ID, w.Data)
	case w.Delete:
		res, err := coll.DeleteOne(ctx, filter)
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrConflict
		}
	default:
		fields, err := toBSON(w.Data)
		if err != nil {
			return err
		}
		res, err := coll.UpdateOne(ctx, filter, bson.M{
			"$set": bson.M{"data": fields, "updated_at": s.now()},
			"$inc": bson.M{"version": 1},
		})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrConflict
		}
	}
	return nil
}

func (md mongoDoc) toDocument() (Document, error) {
	data, err := bson.MarshalExtJSON(md.Data, false, false)
	if err != nil {
		return Document{}, fmt.Errorf("encode %s: %w", md.ID, err)
	}
	return Document{
		ID:        md.ID,
		Version:   md.Version,
		Data:      json.RawMessage(data),
		CreatedAt: md.CreatedAt,
		UpdatedAt: md.UpdatedAt,
	}, nil
}

func toBSON(payload json.RawMessage) (bson.M, error) {
	var fields bson.M
	if err := bson.UnmarshalExtJSON(payload, false, &fields); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return fields, nil
}
