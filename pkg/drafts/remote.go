package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/figura/pkg/httputil"
)

// =============================================================================
// HTTP
// =============================================================================

// HTTPRemote posts drafts to a sync endpoint.
type HTTPRemote struct {
	URL    string
	Client *httputil.Client
}

// NewHTTPRemote returns a remote posting to url.
func NewHTTPRemote(url string, timeout time.Duration) *HTTPRemote {
	return &HTTPRemote{URL: url, Client: httputil.NewClient(timeout)}
}

// Push sends the draft and validates the receipt. Bodies that are not a
// JSON object with a syncId and syncedAt yield ErrInvalidPayload.
func (r *HTTPRemote) Push(ctx context.Context, req Request) (Receipt, error) {
	client := r.Client
	if client == nil {
		client = httputil.NewClient(0)
	}
	body, err := client.PostJSON(ctx, r.URL, req)
	if err != nil {
		return Receipt{}, err
	}
	return DecodeReceipt(body)
}

// DecodeReceipt parses and validates a receipt body.
func DecodeReceipt(body []byte) (Receipt, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return Receipt{}, fmt.Errorf("%w: not a JSON object", ErrInvalidPayload)
	}
	var rc Receipt
	if err := json.Unmarshal(body, &rc); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := rc.Validate(); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return rc, nil
}

// =============================================================================
// Redis
// =============================================================================

// RedisRemote keeps drafts in one Redis list per tool, newest first,
// trimmed to Capacity entries.
type RedisRemote struct {
	Client   redis.Cmdable
	Prefix   string
	Capacity int
}

// NewRedisRemote connects to a redis:// URL.
func NewRedisRemote(url string) (*RedisRemote, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisRemote{Client: redis.NewClient(opts), Prefix: "figura:drafts:", Capacity: DefaultCapacity}, nil
}

// Key returns the list key of a tool.
func (r *RedisRemote) Key(toolID string) string { return r.Prefix + toolID }

// Push stores the draft.
func (r *RedisRemote) Push(ctx context.Context, req Request) (Receipt, error) {
	e := Entry{SyncID: uuid.NewString(), ToolID: req.ToolID, SyncedAt: req.SyncedAt.UTC(), Payload: req.Payload}
	data, err := json.Marshal(e)
	if err != nil {
		return Receipt{}, err
	}
	capacity := r.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	key := r.Key(req.ToolID)
	_, err = r.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, data)
		p.LTrim(ctx, key, 0, int64(capacity-1))
		return nil
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("redis push: %w", err)
	}
	return Receipt{SyncID: e.SyncID, SyncedAt: e.SyncedAt}, nil
}

// =============================================================================
// MongoDB
// =============================================================================

// MongoRemote inserts drafts as documents of a collection.
type MongoRemote struct {
	Collection *mongo.Collection
}

// NewMongoRemote connects to uri and uses database.collection.
func NewMongoRemote(ctx context.Context, uri, database, collection string) (*MongoRemote, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &MongoRemote{Collection: client.Database(database).Collection(collection)}, nil
}

// Push stores the draft.
func (r *MongoRemote) Push(ctx context.Context, req Request) (Receipt, error) {
	e := Entry{SyncID: uuid.NewString(), ToolID: req.ToolID, SyncedAt: req.SyncedAt.UTC(), Payload: req.Payload}
	doc := bson.M{
		"_id":       e.SyncID,
		"tool_id":   e.ToolID,
		"synced_at": e.SyncedAt,
		"payload":   string(e.Payload),
	}
	if _, err := r.Collection.InsertOne(ctx, doc); err != nil {
		return Receipt{}, fmt.Errorf("mongo insert: %w", err)
	}
	return Receipt{SyncID: e.SyncID, SyncedAt: e.SyncedAt}, nil
}

// Close disconnects the underlying client.
func (r *MongoRemote) Close(ctx context.Context) error {
	return r.Collection.Database().Client().Disconnect(ctx)
}

var (
	_ Remote = (*HTTPRemote)(nil)
	_ Remote = (*RedisRemote)(nil)
	_ Remote = (*MongoRemote)(nil)
)
