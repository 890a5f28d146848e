package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"villabook/internal/domain/availability"
)

type BlockStore struct {
	col *mongo.Collection
}

func NewBlockStore(db *mongo.Database) *BlockStore {
	return &BlockStore{col: db.Collection("blocked_ranges")}
}

func (s *BlockStore) List(ctx context.Context) ([]*availability.BlockedRange, error) {
	cur, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "start", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []blockDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*availability.BlockedRange, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (s *BlockStore) Add(ctx context.Context, block *availability.BlockedRange) error {
	_, err := s.col.InsertOne(ctx, newBlockDocument(block))
	return err
}

func (s *BlockStore) Delete(ctx context.Context, id availability.BlockID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return availability.ErrBlockNotFound
	}
	return nil
}

var _ availability.BlockStore = (*BlockStore)(nil)
