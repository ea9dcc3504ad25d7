package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type messageDoc struct {
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
}

type conversationDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Messages  []messageDoc       `bson:"messages"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
}

// MongoDB DateTime хранит миллисекунды.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

func toMessageDocs(msgs []models.ConversationMessage) []messageDoc {
	out := make([]messageDoc, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageDoc{Role: m.Role, Content: m.Content, CreatedAt: toMS(m.CreatedAt)})
	}

	return out
}

func (d *conversationDoc) model() (*models.Conversation, error) {
	uid, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("bad user_id %q: %w", d.UserID, err)
	}

	msgs := make([]models.ConversationMessage, 0, len(d.Messages))
	for _, m := range d.Messages {
		msgs = append(msgs, models.ConversationMessage{Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt.UTC()})
	}

	return &models.Conversation{
		ID:        d.ID.Hex(),
		UserID:    uid,
		Messages:  msgs,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		ExpiresAt: d.ExpiresAt.UTC(),
	}, nil
}

// ownerFilter — документ владельца, срок которого ещё не истёк
// (TTL-монитор удаляет документы с задержкой).
func ownerFilter(oid primitive.ObjectID, userID uuid.UUID, now time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: oid},
		{Key: "user_id", Value: userID.String()},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: toMS(now)}}},
	}
}

// CreateConversation вставляет диалог. ID генерирует драйвер.
func (m *Mongo) CreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	const op = "storage/mongo/CreateConversation"

	now := toMS(time.Now())
	doc := conversationDoc{
		UserID:    conv.UserID.String(),
		Messages:  toMessageDocs(conv.Messages),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: toMS(conv.ExpiresAt),
	}

	res, err := m.conversations.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: inserted id type", op)
	}
	doc.ID = oid

	return doc.model()
}

// ConversationByID возвращает диалог владельца. Некорректный id,
// чужой или истёкший диалог — storage.ErrNotFound.
func (m *Mongo) ConversationByID(ctx context.Context, userID uuid.UUID, id string) (*models.Conversation, error) {
	const op = "storage/mongo/ConversationByID"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc conversationDoc
	if err := m.conversations.FindOne(ctx, ownerFilter(oid, userID, time.Now())).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := doc.model()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// AppendMessages дописывает реплики одним обновлением. Ограничение на
// длину истории проверяется в фильтре, поэтому параллельные запросы не
// могут превысить maxMessages.
func (m *Mongo) AppendMessages(ctx context.Context, userID uuid.UUID, id string, msgs []models.ConversationMessage, expiresAt time.Time, maxMessages int) (*models.Conversation, error) {
	const op = "storage/mongo/AppendMessages"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if len(msgs) == 0 || len(msgs) > maxMessages {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	now := time.Now()
	filter := append(ownerFilter(oid, userID, now), bson.E{Key: "$expr", Value: bson.D{
		{Key: "$lte", Value: bson.A{
			bson.D{{Key: "$size", Value: "$messages"}},
			maxMessages - len(msgs),
		}},
	}})

	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "messages", Value: bson.D{{Key: "$each", Value: toMessageDocs(msgs)}}}}},
		{Key: "$set", Value: bson.D{
			{Key: "updated_at", Value: toMS(now)},
			{Key: "expires_at", Value: toMS(expiresAt)},
		}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc conversationDoc
	err = m.conversations.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		out, err := doc.model()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return out, nil
	}

	if !errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Не подошёл фильтр: диалога нет либо история заполнена.
	n, err := m.conversations.CountDocuments(ctx, ownerFilter(oid, userID, now))
	if err != nil {
		return nil, fmt.Errorf("%s: count: %w", op, err)
	}

	if n == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil, fmt.Errorf("%s: %w", op, storage.ErrLimitReached)
}
