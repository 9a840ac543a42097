package implementation

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	config "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Config"
	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
)

// uniqueDeviceIndexName names the one-row-per-device index so it can be
// dropped when a deployment switches to append mode.
const uniqueDeviceIndexName = "deviceId_unique"

// EnsureReadingIndexes creates the indexes the query paths depend on. The
// unique deviceId index only applies in upsert mode; in append mode a
// leftover unique index from an earlier upsert deployment would reject
// every sample after the first per device, so it is dropped.
func EnsureReadingIndexes(ctx context.Context, db *mongo.Database, writeMode string) error {
	coll := db.Collection(ReadingCollection)

	if writeMode == config.WriteModeAppend {
		if err := dropIndexIfExists(ctx, coll, uniqueDeviceIndexName); err != nil {
			return err
		}
	}

	_, err := coll.Indexes().CreateMany(ctx, readingIndexModels(writeMode))
	return err
}

// readingIndexModels returns the index set for the configured write mode.
func readingIndexModels(writeMode string) []mongo.IndexModel {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "area", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}
	if writeMode == config.WriteModeUpsert {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "deviceId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(uniqueDeviceIndexName),
		})
	}
	return indexes
}

func dropIndexIfExists(ctx context.Context, coll *mongo.Collection, name string) error {
	_, err := coll.Indexes().DropOne(ctx, name)
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "IndexNotFound" {
		return nil
	}
	return err
}

// EnsureSolutionSchema attaches a $jsonSchema validator to the Solutions
// collection so the constraints hold even for writes that bypass this
// service. The controller's request validation is advisory; this is the
// canonical check.
func EnsureSolutionSchema(ctx context.Context, db *mongo.Database, maxQuantity float64) error {
	validator := bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": []string{"area", "type", "concentration", "quantity", "date"},
			"properties": bson.M{
				"area": bson.M{
					"enum": dmtmodels.SolutionAreas,
				},
				"type": bson.M{
					"bsonType":  "string",
					"minLength": dmtmodels.SolutionTypeMinLen,
					"maxLength": dmtmodels.SolutionTypeMaxLen,
				},
				"concentration": bson.M{
					"bsonType": "string",
					"pattern":  `^\d+(\.\d+)?\s?(EC|pH)$`,
				},
				"quantity": bson.M{
					"bsonType": []string{"double", "int", "long", "decimal"},
					"minimum":  dmtmodels.SolutionMinQuantity,
					"maximum":  maxQuantity,
				},
				"date": bson.M{
					"bsonType": "date",
				},
				"notes": bson.M{
					"bsonType":  "string",
					"maxLength": dmtmodels.SolutionNotesMaxLen,
				},
			},
		},
	}

	err := db.CreateCollection(ctx, SolutionCollection, options.CreateCollection().SetValidator(validator))
	if err == nil {
		return nil
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
		res := db.RunCommand(ctx, bson.D{
			{Key: "collMod", Value: SolutionCollection},
			{Key: "validator", Value: validator},
		})
		if res.Err() != nil {
			return fmt.Errorf("collMod %s: %w", SolutionCollection, res.Err())
		}
		return nil
	}
	return err
}
