// Package mongostore implements store.Conversations on
// go.mongodb.org/mongo-driver/v2, the document-shaped alternative to
// internal/store/postgres's relational conversations table. Grounded on
// the teacher's features/runlog/mongo/clients/mongo/client.go: one
// document struct per collection with bson tags, an indexed
// conversation/cursor field pair for pagination, and a thin client type
// wrapping *mongo.Client plus *mongo.Database. Unlike the teacher's
// client, this package skips the health.Pinger/collection-interface
// abstraction layer (goa.design/clue isn't part of this module's
// dependency surface) and exposes Store directly.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/convoflow/workflow-engine/internal/store"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "conversation_messages"
	defaultTimeout          = 5 * time.Second
)

type conversationDocument struct {
	ID          string    `bson:"_id"`
	TenantID    string    `bson:"tenant_id"`
	Participant string    `bson:"participant"`
	Channel     string    `bson:"channel"`
	CreatedAt   time.Time `bson:"created_at"`
}

type messageDocument struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	ConversationID string        `bson:"conversation_id"`
	Role           string        `bson:"role"`
	Body           string        `bson:"body"`
	CreatedAt      time.Time     `bson:"created_at"`
}

// Options configures Connect.
type Options struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store is a Mongo-backed conversation transcript store.
type Store struct {
	client      *mongo.Client
	conversations *mongo.Collection
	messages    *mongo.Collection
	timeout     time.Duration
}

// Connect dials MongoDB, pings it, and ensures the indexes this store
// relies on for lookup and pagination.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("mongostore: uri is required")
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("mongostore: database is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client, err := mongo.Connect(options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	db := client.Database(opts.Database)
	s := &Store{
		client:        client,
		conversations: db.Collection(conversationsCollection),
		messages:      db.Collection(messagesCollection),
		timeout:       timeout,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "participant", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongostore: conversation index: %w", err)
	}

	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongostore: message index: %w", err)
	}
	return nil
}

// Disconnect closes the underlying client.
func (s *Store) Disconnect(ctx context.Context) error {
	return s.client.Disconnect()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) EnsureConversation(ctx context.Context, tenantID, participant, channel string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id := tenantID + ":" + participant
	_, err := s.conversations.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$setOnInsert": conversationDocument{
			ID:          id,
			TenantID:    tenantID,
			Participant: participant,
			Channel:     channel,
			CreatedAt:   time.Now().UTC(),
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return "", fmt.Errorf("mongostore: ensure conversation: %w", err)
	}
	return id, nil
}

func (s *Store) StoreMessage(ctx context.Context, conversationID, role, body string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.messages.InsertOne(ctx, messageDocument{
		ConversationID: conversationID,
		Role:           role,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("mongostore: store message: %w", err)
	}
	return nil
}

// Message is one transcript entry returned by History.
type Message struct {
	Role      string
	Body      string
	CreatedAt time.Time
}

// History returns up to limit messages for a conversation in
// chronological order, the schema-less-query capability a relational
// table doesn't give the LLM context-builder for free (spec §4.7's
// recent-message window). Grounded on the teacher's runlog.List cursor
// pagination, simplified to an offset-free "most recent N" query since
// this store has no resumable-cursor requirement.
func (s *Store) History(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.messages.Find(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("mongostore: history: %w", err)
	}
	defer cur.Close(ctx)

	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongostore: decode history: %w", err)
	}

	out := make([]Message, len(docs))
	for i, d := range docs {
		out[len(docs)-1-i] = Message{Role: d.Role, Body: d.Body, CreatedAt: d.CreatedAt}
	}
	return out, nil
}

var _ store.Conversations = (*Store)(nil)
