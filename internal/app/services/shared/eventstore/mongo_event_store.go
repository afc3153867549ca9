package eventstore

import (
	"context"
	"time"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"

	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoEventStore struct {
	collection *mongo.Collection
}

// NewMongoEventStore appends to a collection with a unique (stream_id, seq)
// index, so two writers racing on one stream cannot both commit.
func NewMongoEventStore(db *mongo.Database) (contracts.EventStore, error) {
	collection := db.Collection(constvars.MongoCollectionSlotEvents)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "stream_id", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, exceptions.ErrMongoDBInsertDocument(err)
	}
	return &mongoEventStore{collection: collection}, nil
}

func (s *mongoEventStore) Append(ctx context.Context, streamID string, events []models.StoredEvent) error {
	if len(events) == 0 {
		return nil
	}

	lastSeq, err := s.lastSeq(ctx, streamID)
	if err != nil {
		return err
	}

	documents := make([]interface{}, 0, len(events))
	for i := range events {
		events[i].StreamID = streamID
		events[i].Seq = lastSeq + int64(i) + 1
		documents = append(documents, events[i])
	}

	_, err = s.collection.InsertMany(ctx, documents)
	if err != nil {
		return exceptions.ErrMongoDBInsertDocument(err)
	}
	return nil
}

func (s *mongoEventStore) Load(ctx context.Context, streamID string) ([]models.StoredEvent, error) {
	cursor, err := s.collection.Find(ctx,
		bson.M{"stream_id": streamID},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	defer cursor.Close(ctx)

	var events []models.StoredEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, exceptions.ErrMongoDBIterateDocuments(err)
	}
	return events, nil
}

func (s *mongoEventStore) lastSeq(ctx context.Context, streamID string) (int64, error) {
	var last models.StoredEvent
	err := s.collection.FindOne(ctx,
		bson.M{"stream_id": streamID},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}}),
	).Decode(&last)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, exceptions.ErrMongoDBFindDocument(err)
	}
	return last.Seq, nil
}
