package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cinepass/booking-core/internal/domain"
	"github.com/cinepass/booking-core/internal/observability"
)

// CatalogRepository reads the show and snack catalogs owned by the
// catalog service. This side never writes them.
type CatalogRepository struct {
	shows  *mongo.Collection
	snacks *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		shows:  db.Collection("shows"),
		snacks: db.Collection("snacks"),
		logger: logger,
	}
}

type ShowDoc struct {
	ID       uuid.UUID `bson:"_id"`
	Hall     string    `bson:"hall"`
	Type     string    `bson:"type"`
	Prices   PriceDoc  `bson:"prices"`
	StartsAt time.Time `bson:"starts_at"`
}

// PriceDoc holds per-seat prices in minor currency units.
type PriceDoc struct {
	Regular int64 `bson:"regular"`
	VIP     int64 `bson:"vip"`
}

type SnackDoc struct {
	Name      string `bson:"_id"`
	UnitPrice int64  `bson:"unit_price"`
}

func (c *CatalogRepository) GetShow(ctx context.Context, id uuid.UUID) (*domain.Show, error) {
	var doc ShowDoc
	err := c.shows.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithError(err).Error("failed to get show")
		return nil, err
	}
	return &domain.Show{
		ID:   doc.ID,
		Hall: doc.Hall,
		Type: doc.Type,
		Prices: map[domain.Category]int64{
			domain.CategoryRegular: doc.Prices.Regular,
			domain.CategoryVIP:     doc.Prices.VIP,
		},
		StartsAt: doc.StartsAt,
	}, nil
}

func (c *CatalogRepository) GetSnack(ctx context.Context, name string) (*domain.Snack, error) {
	var doc SnackDoc
	err := c.snacks.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithError(err).Error("failed to get snack")
		return nil, err
	}
	return &domain.Snack{Name: doc.Name, UnitPrice: doc.UnitPrice}, nil
}
