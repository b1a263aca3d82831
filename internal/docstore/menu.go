package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

type menuDocument struct {
	ID          string               `bson:"id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Image       string               `bson:"image"`
	Category    string               `bson:"category"`
}

type MenuStore struct {
	coll *mongo.Collection
}

func NewMenuStore(db *mongo.Database) *MenuStore {
	return &MenuStore{coll: db.Collection(menuCollection)}
}

func (s *MenuStore) ListAll(ctx context.Context) ([]domain.MenuItem, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().
		SetProjection(bson.M{"_id": 0}).
		SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []menuDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	items := make([]domain.MenuItem, 0, len(docs))
	for _, doc := range docs {
		price, err := fromDecimal128(doc.Price)
		if err != nil {
			return nil, fmt.Errorf("decode price of %s: %w", doc.ID, err)
		}
		items = append(items, domain.MenuItem{
			ID:          doc.ID,
			Name:        doc.Name,
			Description: doc.Description,
			Price:       price,
			Image:       doc.Image,
			Category:    doc.Category,
		})
	}

	return items, nil
}

// Upsert replaces catalog documents by their catalog id.
func (s *MenuStore) Upsert(ctx context.Context, items []domain.MenuItem) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(items))
	for _, item := range items {
		price, err := toDecimal128(item.Price)
		if err != nil {
			return fmt.Errorf("encode price of %s: %w", item.ID, err)
		}
		doc := menuDocument{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Price:       price,
			Image:       item.Image,
			Category:    item.Category,
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"id": item.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	_, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}
