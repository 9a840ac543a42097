package implementation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
)

// ReadingCollection is the schema-flexible collection holding telemetry
// readings.
const ReadingCollection = "sensors_reading"

type MongoReadingRepository struct {
	coll *mongo.Collection
}

func NewMongoReadingRepository(db *mongo.Database) *MongoReadingRepository {
	return &MongoReadingRepository{coll: db.Collection(ReadingCollection)}
}

func (r *MongoReadingRepository) UpsertReading(ctx context.Context, rd dmtmodels.Reading) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx, bson.M{"deviceId": rd.DeviceID}, upsertUpdate(rd), options.Update().SetUpsert(true))
	return err
}

// upsertUpdate builds the update document for the one-row-per-device write:
// mutable fields and updatedAt are overwritten on every message, createdAt
// is only written when the row is first inserted.
func upsertUpdate(rd dmtmodels.Reading) bson.M {
	set := bson.M{
		"updatedAt": rd.UpdatedAt,
		"source":    rd.Source,
	}
	if rd.Area != "" {
		set["area"] = rd.Area
	}
	if rd.Values != nil {
		set["values"] = rd.Values
	}
	for k, v := range rd.Extra {
		set[k] = v
	}

	return bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"createdAt": rd.CreatedAt},
	}
}

func (r *MongoReadingRepository) InsertReading(ctx context.Context, rd dmtmodels.Reading) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.coll.InsertOne(ctx, rd)
	return err
}

func (r *MongoReadingRepository) FindAll(ctx context.Context) ([]dmtmodels.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var readings []dmtmodels.Reading
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, err
	}
	if readings == nil {
		readings = []dmtmodels.Reading{}
	}
	return readings, nil
}

func (r *MongoReadingRepository) FindLatestByArea(ctx context.Context, areaLabel string, limit int) ([]dmtmodels.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{"area": areaLabel}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var readings []dmtmodels.Reading
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, err
	}
	if readings == nil {
		return []dmtmodels.Reading{}, nil
	}

	// Query returns newest first; charts want chronological order.
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}
