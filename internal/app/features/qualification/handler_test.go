package qualification_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/propertyhub/internal/app/features/qualification"
	"github.com/dalemusser/propertyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestHandleCheck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := qualification.NewHandler(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	tenant := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 4000)

	req := testutil.NewAuthenticatedRequest(http.MethodGet,
		"/tenants/"+tenant.ID.Hex()+"/qualification?rent=1500", owner.ID)
	req = testutil.WithChiURLParam(req, "id", tenant.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", rec.Code, rec.Body.String())
	}

	var result qualification.Result
	testutil.DecodeJSON(t, rec, &result)
	if !result.Income.Qualified {
		t.Errorf("expected 4000 gross to qualify for 1500 rent: %+v", result.Income)
	}
	if result.Income.Ratio != 2.67 {
		t.Errorf("ratio: got %v, want 2.67", result.Income.Ratio)
	}

	// Higher rent fails the multiple.
	req = testutil.NewAuthenticatedRequest(http.MethodGet,
		"/tenants/"+tenant.ID.Hex()+"/qualification?rent=2000", owner.ID)
	req = testutil.WithChiURLParam(req, "id", tenant.ID.Hex())
	rec = httptest.NewRecorder()
	h.HandleCheck(rec, req)

	testutil.DecodeJSON(t, rec, &result)
	if result.Income.Qualified {
		t.Errorf("expected 4000 gross to fail for 2000 rent: %+v", result.Income)
	}
}

func TestHandleCheck_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := qualification.NewHandler(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	tenant := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 4000)

	// Missing or non-positive rent is rejected.
	for _, target := range []string{
		"/tenants/" + tenant.ID.Hex() + "/qualification",
		"/tenants/" + tenant.ID.Hex() + "/qualification?rent=-5",
	} {
		req := testutil.NewAuthenticatedRequest(http.MethodGet, target, owner.ID)
		req = testutil.WithChiURLParam(req, "id", tenant.ID.Hex())
		rec := httptest.NewRecorder()
		h.HandleCheck(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want %d", target, rec.Code, http.StatusBadRequest)
		}
	}

	// Unknown tenant is 404.
	unknown := primitive.NewObjectID()
	req := testutil.NewAuthenticatedRequest(http.MethodGet,
		"/tenants/"+unknown.Hex()+"/qualification?rent=1500", owner.ID)
	req = testutil.WithChiURLParam(req, "id", unknown.Hex())
	rec := httptest.NewRecorder()
	h.HandleCheck(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown tenant: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}
