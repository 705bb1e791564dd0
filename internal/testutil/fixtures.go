package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/propertyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateLandlord creates a test landlord user.
func (f *Fixtures) CreateLandlord(ctx context.Context, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		FullName:  "Test Landlord",
		Email:     email,
		EmailCI:   text.Fold(email),
		Role:      models.RoleLandlord,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateProperty creates a vacant single-unit property for the owner.
func (f *Fixtures) CreateProperty(ctx context.Context, ownerID primitive.ObjectID, name string, rent float64) models.Property {
	f.t.Helper()

	now := time.Now().UTC()
	property := models.Property{
		ID:           primitive.NewObjectID(),
		OwnerID:      ownerID,
		Name:         name,
		NameCI:       text.Fold(name),
		AddressLine1: "1 Test Street",
		City:         "Testville",
		Postcode:     "TE5 7PC",
		PropertyType: "house",
		MonthlyRent:  rent,
		Status:       models.PropertyStatusAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("properties").InsertOne(ctx, property); err != nil {
		f.t.Fatalf("failed to create test property: %v", err)
	}
	return property
}

// CreateMultiUnitProperty creates a property with the given vacant unit numbers.
func (f *Fixtures) CreateMultiUnitProperty(ctx context.Context, ownerID primitive.ObjectID, name string, unitNumbers ...string) models.Property {
	f.t.Helper()

	now := time.Now().UTC()
	property := models.Property{
		ID:           primitive.NewObjectID(),
		OwnerID:      ownerID,
		Name:         name,
		NameCI:       text.Fold(name),
		AddressLine1: "1 Test Street",
		City:         "Testville",
		Postcode:     "TE5 7PC",
		PropertyType: "apartment_block",
		Status:       models.PropertyStatusAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, n := range unitNumbers {
		property.Units = append(property.Units, models.Unit{
			UnitNumber:  n,
			MonthlyRent: 900,
			Status:      models.UnitStatusAvailable,
		})
	}

	if _, err := f.db.Collection("properties").InsertOne(ctx, property); err != nil {
		f.t.Fatalf("failed to create test property: %v", err)
	}
	return property
}

// CreateTenant creates a tenant with the given gross monthly income (0 means
// no income information at all).
func (f *Fixtures) CreateTenant(ctx context.Context, ownerID primitive.ObjectID, fullName string, grossIncome float64) models.Tenant {
	f.t.Helper()

	now := time.Now().UTC()
	tenant := models.Tenant{
		ID:         primitive.NewObjectID(),
		OwnerID:    ownerID,
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      text.Fold(fullName) + "@test.com",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if grossIncome > 0 {
		tenant.Employment = models.Employment{
			Status:             "employed",
			GrossMonthlyIncome: &grossIncome,
		}
	}

	if _, err := f.db.Collection("tenants").InsertOne(ctx, tenant); err != nil {
		f.t.Fatalf("failed to create test tenant: %v", err)
	}
	return tenant
}

// LeaseDates returns lease dates that pass request validation: one year
// starting now.
func LeaseDates() (start, end time.Time) {
	start = time.Now().UTC().Truncate(time.Second)
	return start, start.AddDate(1, 0, 0)
}
