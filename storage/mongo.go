package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gocrud/engine/logging"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoOpTimeout 连接检查与关闭的兜底超时
const mongoOpTimeout = 10 * time.Second

// MongoOptions Mongo 后端配置选项
type MongoOptions struct {
	URI         string `json:"uri"`
	Database    string `json:"database"`
	Collection  string `json:"collection"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	MaxPoolSize uint64 `json:"max_pool_size"`
	MinPoolSize uint64 `json:"min_pool_size"`
}

// saveDocument 集合中的存档文档，键直接作主键
type saveDocument struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore 基于单个 Mongo 集合的存档仓库，写入走 upsert
type MongoStore struct {
	client *mongo.Client
	col    *mongo.Collection
	logger logging.Logger
}

// NewMongoStore 创建 Mongo 存档仓库。
// 驱动延迟建连，连通性在 Startup 阶段验证。
func NewMongoStore(opts MongoOptions, logger logging.Logger) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.Username != "" || opts.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	clientOpts.SetConnectTimeout(mongoOpTimeout)

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create mongo client: %w", err)
	}

	return &MongoStore{
		client: client,
		col:    client.Database(opts.Database).Collection(opts.Collection),
		logger: logger.WithCategory("Storage"),
	}, nil
}

// Startup 验证连通性
func (s *MongoStore) Startup() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("storage: failed to connect to mongo: %w", err)
	}
	s.logger.Info(fmt.Sprintf("Mongo store ready using collection '%s'", s.col.Name()))
	return nil
}

// Shutdown 断开客户端
func (s *MongoStore) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	s.logger.Info("Closing mongo store")
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("storage: failed to close mongo client: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc saveDocument
	err := s.col.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to read key '%s': %w", key, err)
	}
	return doc.Value, nil
}

func (s *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	doc := saveDocument{Key: key, Value: value, UpdatedAt: time.Now()}
	_, err := s.col.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("storage: failed to write key '%s': %w", key, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	_, err := s.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}})
	if err != nil {
		return fmt.Errorf("storage: failed to delete key '%s': %w", key, err)
	}
	return nil
}

func (s *MongoStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.col.Distinct(ctx, "_id", bson.D{}).Decode(&keys); err != nil {
		return nil, fmt.Errorf("storage: failed to list keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
