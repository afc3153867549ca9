package booking

import (
	"context"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/app/models"
	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/exceptions"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SagaMongoRepository struct {
	Sagas        *mongo.Collection
	Correlations *mongo.Collection
}

type correlationDocument struct {
	CorrelationID string `bson:"correlation_id"`
	BookingID     string `bson:"booking_id"`
}

func NewSagaMongoRepository(db *mongo.Database) contracts.SagaRepository {
	return &SagaMongoRepository{
		Sagas:        db.Collection(constvars.MongoCollectionBookingSagas),
		Correlations: db.Collection(constvars.MongoCollectionCorrelations),
	}
}

func (r *SagaMongoRepository) Save(ctx context.Context, instance *models.BookingSagaInstance) error {
	filter := bson.M{"booking_id": instance.BookingID}
	update := bson.M{"$set": instance}
	_, err := r.Sagas.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *SagaMongoRepository) FindByBookingID(ctx context.Context, bookingID string) (*models.BookingSagaInstance, error) {
	var instance models.BookingSagaInstance
	err := r.Sagas.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&instance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &instance, nil
}

func (r *SagaMongoRepository) BindCorrelation(ctx context.Context, correlationID, bookingID string) error {
	filter := bson.M{"correlation_id": correlationID}
	update := bson.M{"$set": correlationDocument{CorrelationID: correlationID, BookingID: bookingID}}
	_, err := r.Correlations.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *SagaMongoRepository) ResolveCorrelation(ctx context.Context, correlationID string) (string, error) {
	var document correlationDocument
	err := r.Correlations.FindOne(ctx, bson.M{"correlation_id": correlationID}).Decode(&document)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil
		}
		return "", exceptions.ErrMongoDBFindDocument(err)
	}
	return document.BookingID, nil
}

func (r *SagaMongoRepository) ListActive(ctx context.Context) ([]*models.BookingSagaInstance, error) {
	filter := bson.M{"state": bson.M{"$nin": []models.SagaState{
		models.SagaStateCompleted,
		models.SagaStateFailed,
	}}}

	cursor, err := r.Sagas.Find(ctx, filter)
	if err != nil {
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	defer cursor.Close(ctx)

	var instances []*models.BookingSagaInstance
	if err := cursor.All(ctx, &instances); err != nil {
		return nil, exceptions.ErrMongoDBIterateDocuments(err)
	}
	return instances, nil
}
