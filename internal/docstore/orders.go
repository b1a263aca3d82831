package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

type itemDocument struct {
	ItemID   string               `bson:"item_id"`
	Name     string               `bson:"name"`
	Price    primitive.Decimal128 `bson:"price"`
	Quantity int                  `bson:"quantity"`
}

type deliveryDocument struct {
	Name    string `bson:"name"`
	Address string `bson:"address"`
	Phone   string `bson:"phone"`
}

type orderDocument struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	Items           []itemDocument       `bson:"items"`
	DeliveryDetails deliveryDocument     `bson:"delivery_details"`
	Total           primitive.Decimal128 `bson:"total"`
	Status          string               `bson:"status"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

type OrderStore struct {
	coll *mongo.Collection
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{coll: db.Collection(ordersCollection)}
}

// EnsureIndexes creates the indexes backing list ordering and resume scans.
func (s *OrderStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return err
}

func (s *OrderStore) Create(ctx context.Context, order *domain.Order) error {
	// BSON dates hold milliseconds.
	order.CreatedAt = order.CreatedAt.Truncate(time.Millisecond)
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	order.UpdatedAt = order.UpdatedAt.Truncate(time.Millisecond)

	doc, err := toOrderDocument(order)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return err
	}

	order.ID = doc.ID.Hex()
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var doc orderDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return fromOrderDocument(doc)
}

// AdvanceStatus sets status only when the stored status ranks below it.
func (s *OrderStore) AdvanceStatus(ctx context.Context, id string, status domain.OrderStatus) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, domain.ErrInvalidID
	}

	prior := status.Before()
	if len(prior) == 0 {
		return false, nil
	}

	from := make(bson.A, len(prior))
	for i, st := range prior {
		from[i] = string(st)
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"status": string(status), "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}

	if res.MatchedCount > 0 {
		return true, nil
	}

	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, domain.ErrNotFound
	}

	return false, nil
}

func (s *OrderStore) List(ctx context.Context) ([]domain.Order, error) {
	// ObjectIDs grow with insertion order, which breaks createdAt ties.
	return s.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
}

func (s *OrderStore) ListUnfinished(ctx context.Context) ([]domain.Order, error) {
	return s.find(ctx,
		bson.M{"status": bson.M{"$ne": string(domain.OrderStatusDelivered)}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	)
}

func (s *OrderStore) find(ctx context.Context, filter any, opts *options.FindOptions) ([]domain.Order, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := fromOrderDocument(doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	return orders, nil
}

func toOrderDocument(order *domain.Order) (orderDocument, error) {
	total, err := toDecimal128(order.Total)
	if err != nil {
		return orderDocument{}, fmt.Errorf("encode total: %w", err)
	}

	items := make([]itemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		price, err := toDecimal128(item.Price)
		if err != nil {
			return orderDocument{}, fmt.Errorf("encode price of %s: %w", item.ItemID, err)
		}
		items = append(items, itemDocument{
			ItemID:   item.ItemID,
			Name:     item.Name,
			Price:    price,
			Quantity: item.Quantity,
		})
	}

	return orderDocument{
		Items: items,
		DeliveryDetails: deliveryDocument{
			Name:    order.DeliveryDetails.Name,
			Address: order.DeliveryDetails.Address,
			Phone:   order.DeliveryDetails.Phone,
		},
		Total:     total,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}, nil
}

func fromOrderDocument(doc orderDocument) (*domain.Order, error) {
	total, err := fromDecimal128(doc.Total)
	if err != nil {
		return nil, fmt.Errorf("decode total of %s: %w", doc.ID.Hex(), err)
	}

	items := make([]domain.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		price, err := fromDecimal128(item.Price)
		if err != nil {
			return nil, fmt.Errorf("decode price of %s: %w", item.ItemID, err)
		}
		items = append(items, domain.OrderItem{
			ItemID:   item.ItemID,
			Name:     item.Name,
			Price:    price,
			Quantity: item.Quantity,
		})
	}

	return &domain.Order{
		ID:    doc.ID.Hex(),
		Items: items,
		DeliveryDetails: domain.DeliveryDetails{
			Name:    doc.DeliveryDetails.Name,
			Address: doc.DeliveryDetails.Address,
			Phone:   doc.DeliveryDetails.Phone,
		},
		Total:     total,
		Status:    domain.OrderStatus(doc.Status),
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}, nil
}
