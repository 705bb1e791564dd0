package properties_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/propertyhub/internal/app/features/properties"
	propertystore "github.com/dalemusser/propertyhub/internal/app/store/properties"
	"github.com/dalemusser/propertyhub/internal/domain/models"
	"github.com/dalemusser/propertyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestHandleCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := properties.NewHandler(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/properties", owner.ID, map[string]interface{}{
		"name":          "Rose Cottage",
		"address_line1": "1 Lane",
		"city":          "Testville",
		"postcode":      "TE5 7PC",
		"property_type": "house",
		"monthly_rent":  1200,
	})
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d (%s)", rec.Code, rec.Body.String())
	}

	var created models.Property
	testutil.DecodeJSON(t, rec, &created)
	if created.OwnerID != owner.ID {
		t.Errorf("OwnerID: got %v, want %v", created.OwnerID, owner.ID)
	}
	if created.Status != models.PropertyStatusAvailable {
		t.Errorf("Status: got %q, want %q", created.Status, models.PropertyStatusAvailable)
	}
}

func TestHandleCreate_Invalid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := properties.NewHandler(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/properties", owner.ID, map[string]interface{}{
		"name": "   ",
	})
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleGet_OtherOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := properties.NewHandler(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	other := fixtures.CreateLandlord(ctx, "other@test.com")
	property := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1200)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/properties/"+property.ID.Hex(), other.ID)
	req = testutil.WithChiURLParam(req, "id", property.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleGet(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleDelete_BlockedWhileOccupied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := properties.NewHandler(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	property := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1200)

	start := time.Now().UTC()
	store := propertystore.New(db)
	if err := store.SetOccupied(ctx, property.ID, primitive.NewObjectID(), start, start.AddDate(1, 0, 0)); err != nil {
		t.Fatalf("SetOccupied failed: %v", err)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/properties/"+property.ID.Hex(), owner.ID)
	req = testutil.WithChiURLParam(req, "id", property.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleDelete(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("occupied delete: got %d, want %d", rec.Code, http.StatusConflict)
	}

	// Vacate, then delete goes through.
	if err := store.ClearOccupancy(ctx, property.ID); err != nil {
		t.Fatalf("ClearOccupancy failed: %v", err)
	}
	req = testutil.NewAuthenticatedRequest(http.MethodDelete, "/properties/"+property.ID.Hex(), owner.ID)
	req = testutil.WithChiURLParam(req, "id", property.ID.Hex())
	rec = httptest.NewRecorder()
	h.HandleDelete(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("vacant delete: got %d (%s)", rec.Code, rec.Body.String())
	}
}
