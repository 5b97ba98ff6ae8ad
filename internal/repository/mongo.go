package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/apperr"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/models"
)

type MongoStore struct {
	convCol *mongo.Collection
	msgCol  *mongo.Collection
}

func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		convCol: db.Collection("conversations"),
		msgCol:  db.Collection("messages"),
	}
}

// EnsureIndexes creates the retrieval and uniqueness indexes. The partial
// unique index on pair_key is what makes FindOrCreatePrivate race-free.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.msgCol.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("conversation_created_idx"),
	})
	if err != nil {
		return fmt.Errorf("messages index: %w", err)
	}
	_, err = s.convCol.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "participants.user", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("participant_updated_idx"),
		},
		{
			Keys: bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().
				SetName("private_pair_idx").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"kind": models.KindPrivate}),
		},
	})
	if err != nil {
		return fmt.Errorf("conversations indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) FindOrCreatePrivate(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	now := time.Now().UTC()
	onInsert := bson.M{
		"_id": uuid.NewString(),
		"participants": []models.Participant{
			{UserID: userA, Role: models.RoleMember, JoinedAt: now, IsActive: true},
			{UserID: userB, Role: models.RoleMember, JoinedAt: now, IsActive: true},
		},
		"messages": []string{},
		"unread_counts": []models.UnreadCount{
			{UserID: userA, Count: 0},
			{UserID: userB, Count: 0},
		},
		"created_at": now,
		"updated_at": now,
	}
	filter := bson.M{"kind": models.KindPrivate, "pair_key": models.PairKeyFor(userA, userB)}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv models.Conversation
	err := s.convCol.FindOneAndUpdate(ctx, filter, bson.M{"$setOnInsert": onInsert}, opts).Decode(&conv)
	if mongo.IsDuplicateKeyError(err) {
		// lost the upsert race; the other writer's document is there now
		err = s.convCol.FindOneAndUpdate(ctx, filter, bson.M{"$setOnInsert": onInsert}, opts).Decode(&conv)
	}
	if err != nil {
		return nil, fmt.Errorf("find or create private conversation: %w", err)
	}
	return &conv, nil
}

func (s *MongoStore) ConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.convCol.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	return &conv, nil
}

func (s *MongoStore) ConversationsForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	filter := bson.M{"participants": bson.M{"$elemMatch": bson.M{"user": userID, "is_active": true}}}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.convCol.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*models.Conversation{}
	for cur.Next(ctx) {
		var c models.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (s *MongoStore) CreateGroup(ctx context.Context, conv *models.Conversation) error {
	_, err := s.convCol.InsertOne(ctx, conv)
	return err
}

func (s *MongoStore) AddParticipant(ctx context.Context, convID string, p models.Participant) (bool, error) {
	filter := bson.M{
		"_id":               convID,
		"kind":              models.KindGroup,
		"participants.user": bson.M{"$ne": p.UserID},
	}
	update := bson.M{
		"$push": bson.M{
			"participants":  p,
			"unread_counts": models.UnreadCount{UserID: p.UserID, Count: 0},
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.convCol.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, msg *models.Message, recipientIDs []string) error {
	if _, err := s.msgCol.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	update := bson.M{
		"$push": bson.M{"messages": msg.ID},
		"$set":  bson.M{"last_message": msg.ID, "updated_at": msg.CreatedAt},
	}
	opts := options.Update()
	if len(recipientIDs) > 0 {
		update["$inc"] = bson.M{"unread_counts.$[r].count": 1}
		opts.SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"r.user": bson.M{"$in": recipientIDs}}},
		})
	}
	res, err := s.convCol.UpdateOne(ctx, bson.M{"_id": msg.ConversationID}, update, opts)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("conversation %s: %w", msg.ConversationID, apperr.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) Messages(ctx context.Context, convID string, limit int64) ([]*models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := s.msgCol.Find(ctx, bson.M{"conversation_id": convID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	// chronological order for the caller
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *MongoStore) MessagesByID(ctx context.Context, ids []string) (map[string]*models.Message, error) {
	out := make(map[string]*models.Message, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.msgCol.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out[m.ID] = &m
	}
	return out, cur.Err()
}

func (s *MongoStore) MarkMessagesRead(ctx context.Context, convID, userID string, at time.Time) error {
	filter := bson.M{
		"conversation_id": convID,
		"read_by.user":    bson.M{"$ne": userID},
	}
	update := bson.M{"$push": bson.M{"read_by": models.ReadReceipt{UserID: userID, ReadAt: at}}}
	_, err := s.msgCol.UpdateMany(ctx, filter, update)
	return err
}

func (s *MongoStore) ResetUnread(ctx context.Context, convID, userID string) error {
	update := bson.M{"$set": bson.M{"unread_counts.$[r].count": 0, "updated_at": time.Now().UTC()}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"r.user": userID}},
	})
	_, err := s.convCol.UpdateOne(ctx, bson.M{"_id": convID}, update, opts)
	return err
}
