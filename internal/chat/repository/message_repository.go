package repository

import (
	"context"
	"fmt"

	"legal_marketplace_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition durable message store
type MessageRepository interface {
	// InsertMessage persists one stored message.
	InsertMessage(ctx context.Context, msg *domain.Message) error
	// FindByRoom returns all room messages in display order.
	FindByRoom(ctx context.Context, roomID string) ([]domain.Message, error)
	// MarkRead sets read_at on every unread message addressed to viewerID.
	MarkRead(ctx context.Context, roomID, viewerID string, readAt int64) (int64, error)
	// ClearRoom deletes all messages of the room.
	ClearRoom(ctx context.Context, roomID string) (int64, error)
	// ListRoomSummaries returns one summary per room the member takes part
	// in, newest room first.
	ListRoomSummaries(ctx context.Context, memberID string) ([]domain.RoomSummary, error)
}

type chatMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoChatMessageRepository create a MessageRepository
func NewMongoChatMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll: db.Collection("chat_messages"),
	}
}

func (r *chatMessageRepository) InsertMessage(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *chatMessageRepository) FindByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	filter := bson.M{"chat_room_id": roomID}
	opts := options.Find().SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "_id", Value: 1},
	})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	messages := []domain.Message{}
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatMessageRepository) MarkRead(ctx context.Context, roomID, viewerID string, readAt int64) (int64, error) {
	filter := bson.M{
		"chat_room_id": roomID,
		"receiver_id":  viewerID,
		"read_at":      bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"read_at": readAt}}

	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *chatMessageRepository) ClearRoom(ctx context.Context, roomID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"chat_room_id": roomID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *chatMessageRepository) ListRoomSummaries(ctx context.Context, memberID string) ([]domain.RoomSummary, error) {
	pipeline := mongo.Pipeline{
		// rooms the member takes part in
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "sender_id", Value: memberID}},
				bson.D{{Key: "receiver_id", Value: memberID}},
			}},
		}}},
		// display order so $last picks the newest message per room
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "timestamp", Value: 1},
			{Key: "_id", Value: 1},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$chat_room_id"},
			{Key: "last_message", Value: bson.D{{Key: "$last", Value: "$$ROOT"}}},
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$and", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{"$receiver_id", memberID}}},
						bson.D{{Key: "$lte", Value: bson.A{"$read_at", nil}}},
					}}},
					1,
					0,
				}},
			}}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "last_message.timestamp", Value: -1},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate error: %w", err)
	}

	var results []domain.RoomSummary
	if err := cur.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}

	return results, nil
}
