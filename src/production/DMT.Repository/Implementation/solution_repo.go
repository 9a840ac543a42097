package implementation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
)

// SolutionCollection is the constrained collection holding solution
// application events.
const SolutionCollection = "Solutions"

type MongoSolutionRepository struct {
	coll *mongo.Collection
}

func NewMongoSolutionRepository(db *mongo.Database) *MongoSolutionRepository {
	return &MongoSolutionRepository{coll: db.Collection(SolutionCollection)}
}

func (r *MongoSolutionRepository) InsertSolution(ctx context.Context, sol dmtmodels.SolutionApplication) (*dmtmodels.SolutionApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if sol.CreatedAt.IsZero() {
		sol.CreatedAt = time.Now().UTC()
	}

	res, err := r.coll.InsertOne(ctx, sol)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		sol.ID = oid
	}
	return &sol, nil
}

func (r *MongoSolutionRepository) FindAllSolutions(ctx context.Context) ([]dmtmodels.SolutionApplication, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var solutions []dmtmodels.SolutionApplication
	if err := cursor.All(ctx, &solutions); err != nil {
		return nil, err
	}
	if solutions == nil {
		solutions = []dmtmodels.SolutionApplication{}
	}
	return solutions, nil
}
