package booking

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

type StatusMongoRepository struct {
	Collection *mongo.Collection
}

func NewStatusMongoRepository(db *mongo.Database) contracts.BookingStatusRepository {
	return &StatusMongoRepository{
		Collection: db.Collection(constvars.MongoCollectionBookingStatus),
	}
}

func (r *StatusMongoRepository) Upsert(ctx context.Context, view *models.BookingStatusView) error {
	view.UpdatedAt = time.Now().UTC()

	filter := bson.M{"booking_id": view.BookingID}
	update := bson.M{"$set": view}
	_, err := r.Collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *StatusMongoRepository) FindByBookingID(ctx context.Context, bookingID string) (*models.BookingStatusView, error) {
	var view models.BookingStatusView
	err := r.Collection.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&view)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &view, nil
}
