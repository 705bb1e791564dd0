package assignment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/propertyhub/internal/app/engine/assignment"
	"github.com/dalemusser/propertyhub/internal/app/engine/reconcile"
	propertystore "github.com/dalemusser/propertyhub/internal/app/store/properties"
	tenantstore "github.com/dalemusser/propertyhub/internal/app/store/tenants"
	"github.com/dalemusser/propertyhub/internal/domain/models"
	"github.com/dalemusser/propertyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// recordingNotifier collects the owner ids the engine reports.
type recordingNotifier struct {
	mu     sync.Mutex
	owners []primitive.ObjectID
}

func (n *recordingNotifier) Notify(ownerID primitive.ObjectID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owners = append(n.owners, ownerID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.owners)
}

func newEngine(db *mongo.Database, policy assignment.Policy) (*assignment.Engine, *recordingNotifier) {
	notifier := &recordingNotifier{}
	return assignment.New(db.Client(), db, notifier, policy, zap.NewNop()), notifier
}

func leaseData(rent float64) assignment.LeaseData {
	start, end := testutil.LeaseDates()
	return assignment.LeaseData{
		StartDate:   start,
		EndDate:     end,
		MonthlyRent: rent,
	}
}

func TestEngine_Assign_SingleUnit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine, notifier := newEngine(db, assignment.Policy{})
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	property := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1200)
	tenant := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 4000)

	result, err := engine.Assign(ctx, assignment.AssignParams{
		TenantID:    tenant.ID,
		PropertyID:  property.ID,
		RequestedBy: owner.ID,
		Lease:       leaseData(1200),
	})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if result.Lease.Status != models.LeaseStatusActive {
		t.Errorf("lease status: got %q, want %q", result.Lease.Status, models.LeaseStatusActive)
	}
	if result.Lease.PropertyID != property.ID {
		t.Errorf("lease property: got %v, want %v", result.Lease.PropertyID, property.ID)
	}
	if result.Tenant.ActiveLeaseFor(property.ID, "") == nil {
		t.Error("expected the tenant to hold an active lease for the property")
	}

	occ := result.Property.Occupancy
	if occ == nil || !occ.IsOccupied || occ.TenantID == nil || *occ.TenantID != tenant.ID {
		t.Error("expected the property occupancy to point at the tenant")
	}
	if result.Property.Status != models.PropertyStatusOccupied {
		t.Errorf("property status: got %q, want %q", result.Property.Status, models.PropertyStatusOccupied)
	}

	waitForNotify(t, notifier, 1)
}

func TestEngine_Assign_Unit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine, _ := newEngine(db, assignment.Policy{})
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	block := fixtures.CreateMultiUnitProperty(ctx, owner.ID, "The Block", "1A", "1B")
	tenant := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 4000)

	result, err := engine.Assign(ctx, assignment.AssignParams{
		TenantID:    tenant.ID,
		PropertyID:  block.ID,
		UnitNumber:  "1B",
		RequestedBy: owner.ID,
		Lease:       leaseData(900),
	})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if result.Lease.UnitNumber == nil || *result.Lease.UnitNumber != "1B" {
		t.Error("expected the lease to name unit 1B")
	}
	unit := result.Property.Unit("1B")
	if unit == nil || !unit.IsOccupied || unit.TenantID == nil || *unit.TenantID != tenant.ID {
		t.Error("expected unit 1B to point at the tenant")
	}
	if other := result.Property.Unit("1A"); other == nil || other.IsOccupied {
		t.Error("expected unit 1A to stay vacant")
	}
}

func TestEngine_Assign_UnitShapeErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine, _ := newEngine(db, assignment.Policy{})
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	house := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1200)
	block := fixtures.CreateMultiUnitProperty(ctx, owner.ID, "The Block", "1A")
	tenant := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 4000)

	// Multi-unit property without a unit number.
	_, err := engine.Assign(ctx, assignment.AssignParams{
		TenantID: tenant.ID, PropertyID: block.ID, RequestedBy: owner.ID, Lease: leaseData(900),
	})
	if !errors.Is(err, assignment.ErrUnitRequired) {
		t.Errorf("missing unit number: got %v, want ErrUnitRequired", err)
	}

	// Single-unit property with a unit number.
	_, err = engine.Assign(ctx, assignment.AssignParams{
		TenantID: tenant.ID, PropertyID: house.ID, UnitNumber: "1A", RequestedBy: owner.ID, Lease: leaseData(1200),
	})
	if !errors.Is(err, assignment.ErrUnitNotAllowed) {
		t.Errorf("unexpected unit number: got %v, want ErrUnitNotAllowed", err)
	}

	// Unit number that does not exist on the property.
	_, err = engine.Assign(ctx, assignment.AssignParams{
		TenantID: tenant.ID, PropertyID: block.ID, UnitNumber: "9Z", RequestedBy: owner.ID, Lease: leaseData(900),
	})
	if !errors.Is(err, assignment.ErrNotFound) {
		t.Errorf("missing unit: got %v, want ErrNotFound", err)
	}
}

func TestEngine_Assign_OwnershipScoping(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine, _ := newEngine(db, assignment.Policy{})
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	other := fixtures.CreateLandlord(ctx, "other@test.com")
	property := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1200)
	tenant := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 4000)

	// Someone else's records are indistinguishable from missing ones.
	_, err := engine.Assign(ctx, assignment.AssignParams{
		TenantID: tenant.ID, PropertyID: property.ID, RequestedBy: other.ID, Lease: leaseData(1200),
	})
	if !errors.Is(err, assignment.ErrNotFound) {
		t.Errorf("foreign records: got %v, want ErrNotFound", err)
	}

	_, err = engine.Assign(ctx, assignment.AssignParams{
		TenantID: primitive.NewObjectID(), PropertyID: property.ID, RequestedBy: owner.ID, Lease: leaseData(1200),
	})
	if !errors.Is(err, assignment.ErrNotFound) {
		t.Errorf("missing tenant: got %v, want ErrNotFound", err)
	}
}

func TestEngine_Assign_Conflicts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine, _ := newEngine(db, assignment.Policy{})
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	property := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1200)
	alice := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 4000)
	bob := fixtures.CreateTenant(ctx, owner.ID, "Bob Example", 4000)

	if _, err := engine.Assign(ctx, assignment.AssignParams{
		TenantID: alice.ID, PropertyID: property.ID, RequestedBy: owner.ID, Lease: leaseData(1200),
	}); err != nil {
		t.Fatalf("first Assign failed: %v", err)
	}

	// Same tenant, same slot.
	_, err := engine.Assign(ctx, assignment.AssignParams{
		TenantID: alice.ID, PropertyID: property.ID, RequestedBy: owner.ID, Lease: leaseData(1200),
	})
	assertConflict(t, err, assignment.ReasonDuplicateAssignment)

	// Different tenant, occupied slot.
	_, err = engine.Assign(ctx, assignment.AssignParams{
		TenantID: bob.ID, PropertyID: property.ID, RequestedBy: owner.ID, Lease: leaseData(1200),
	})
	assertConflict(t, err, assignment.ReasonAlreadyOccupied)
}

func TestEngine_Assign_DriftedPointerBlocks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine, _ := newEngine(db, assignment.Policy{})
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	property := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1200)
	tenant := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 4000)

	// Pointer set with no lease behind it, as crash drift would leave it.
	start := time.Now().UTC()
	props := propertystore.New(db)
	if err := props.SetOccupied(ctx, property.ID, primitive.NewObjectID(), start, start.AddDate(1, 0, 0)); err != nil {
		t.Fatalf("SetOccupied failed: %v", err)
	}

	_, err := engine.Assign(ctx, assignment.AssignParams{
		TenantID: tenant.ID, PropertyID: property.ID, RequestedBy: owner.ID, Lease: leaseData(1200),
	})
	assertConflict(t, err, assignment.ReasonAlreadyOccupied)

	// The failed assign must not have left a lease behind.
	got, err := tenantstore.New(db).GetByID(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.Leases) != 0 {
		t.Errorf("leases after blocked assign: got %d, want 0", len(got.Leases))
	}
}

func TestEngine_Assign_QualificationGate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	property := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1200)
	// 3000 gross fails the 2.5x multiple for 1500 rent.
	tenant := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 3000)

	gated, _ := newEngine(db, assignment.Policy{RequireQualification: true})
	_, err := gated.Assign(ctx, assignment.AssignParams{
		TenantID: tenant.ID, PropertyID: property.ID, RequestedBy: owner.ID, Lease: leaseData(1500),
	})
	assertConflict(t, err, assignment.ReasonNotQualified)

	// With the gate off the same assignment goes through.
	open, _ := newEngine(db, assignment.Policy{})
	if _, err := open.Assign(ctx, assignment.AssignParams{
		TenantID: tenant.ID, PropertyID: property.ID, RequestedBy: owner.ID, Lease: leaseData(1500),
	}); err != nil {
		t.Fatalf("ungated Assign failed: %v", err)
	}
}

func TestEngine_Unassign(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine, _ := newEngine(db, assignment.Policy{})
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	property := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1200)
	tenant := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 4000)

	if _, err := engine.Assign(ctx, assignment.AssignParams{
		TenantID: tenant.ID, PropertyID: property.ID, RequestedBy: owner.ID, Lease: leaseData(1200),
	}); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	err := engine.Unassign(ctx, assignment.UnassignParams{
		TenantID:          tenant.ID,
		PropertyID:        property.ID,
		RequestedBy:       owner.ID,
		TerminationReason: "tenant moved out",
	})
	if err != nil {
		t.Fatalf("Unassign failed: %v", err)
	}

	gotTenant, err := tenantstore.New(db).GetByID(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(gotTenant.ActiveLeases()) != 0 {
		t.Error("expected no active leases after unassign")
	}
	if gotTenant.Leases[0].TerminationReason != "tenant moved out" {
		t.Errorf("termination reason: got %q", gotTenant.Leases[0].TerminationReason)
	}

	gotProperty, err := propertystore.New(db).GetByID(ctx, property.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if gotProperty.Occupancy != nil && gotProperty.Occupancy.IsOccupied {
		t.Error("expected the property to be vacant after unassign")
	}
	if gotProperty.Status != models.PropertyStatusAvailable {
		t.Errorf("property status: got %q, want %q", gotProperty.Status, models.PropertyStatusAvailable)
	}

	// Unassigning the now-vacant slot is an error, not a no-op.
	err = engine.Unassign(ctx, assignment.UnassignParams{
		TenantID: tenant.ID, PropertyID: property.ID, RequestedBy: owner.ID,
	})
	if !errors.Is(err, assignment.ErrNoActiveLease) {
		t.Errorf("second Unassign: got %v, want ErrNoActiveLease", err)
	}
}

func TestEngine_ForceUnassignTenant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine, _ := newEngine(db, assignment.Policy{})
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	house := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1200)
	block := fixtures.CreateMultiUnitProperty(ctx, owner.ID, "The Block", "1A", "1B")
	drifted := fixtures.CreateProperty(ctx, owner.ID, "Drift House", 900)
	tenant := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 9000)

	if _, err := engine.Assign(ctx, assignment.AssignParams{
		TenantID: tenant.ID, PropertyID: house.ID, RequestedBy: owner.ID, Lease: leaseData(1200),
	}); err != nil {
		t.Fatalf("Assign house failed: %v", err)
	}
	if _, err := engine.Assign(ctx, assignment.AssignParams{
		TenantID: tenant.ID, PropertyID: block.ID, UnitNumber: "1A", RequestedBy: owner.ID, Lease: leaseData(900),
	}); err != nil {
		t.Fatalf("Assign unit failed: %v", err)
	}

	// A pointer referencing the tenant with no lease behind it is cleared too.
	start := time.Now().UTC()
	props := propertystore.New(db)
	if err := props.SetOccupied(ctx, drifted.ID, tenant.ID, start, start.AddDate(1, 0, 0)); err != nil {
		t.Fatalf("SetOccupied failed: %v", err)
	}

	result, err := engine.ForceUnassignTenant(ctx, tenant.ID, owner.ID)
	if err != nil {
		t.Fatalf("ForceUnassignTenant failed: %v", err)
	}
	if result.LeasesTerminated != 2 {
		t.Errorf("LeasesTerminated: got %d, want 2", result.LeasesTerminated)
	}
	if result.PropertiesUpdated != 3 {
		t.Errorf("PropertiesUpdated: got %d, want 3", result.PropertiesUpdated)
	}

	for _, id := range []primitive.ObjectID{house.ID, drifted.ID} {
		p, err := props.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if p.Occupancy != nil && p.Occupancy.IsOccupied {
			t.Errorf("property %s still occupied", p.Name)
		}
	}
	p, err := props.GetByID(ctx, block.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if u := p.Unit("1A"); u == nil || u.IsOccupied {
		t.Error("expected unit 1A to be vacant")
	}

	// Running it again finds nothing to do and succeeds.
	again, err := engine.ForceUnassignTenant(ctx, tenant.ID, owner.ID)
	if err != nil {
		t.Fatalf("second ForceUnassignTenant failed: %v", err)
	}
	if again.LeasesTerminated != 0 || again.PropertiesUpdated != 0 {
		t.Errorf("second run: got %+v, want zero counts", again)
	}
}

// Full tenancy lifecycle: assign, verify both sides, unassign, verify both
// sides vacated, then confirm a reconcile pass finds nothing to repair.
func TestEngine_Lifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine, _ := newEngine(db, assignment.Policy{})
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	property := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1500)
	tenant := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 4000)

	result, err := engine.Assign(ctx, assignment.AssignParams{
		TenantID:    tenant.ID,
		PropertyID:  property.ID,
		RequestedBy: owner.ID,
		Lease:       leaseData(1500),
	})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if result.Property.Occupancy == nil || !result.Property.Occupancy.IsOccupied {
		t.Fatal("expected the property to be occupied after assign")
	}
	if result.Property.Status != models.PropertyStatusOccupied {
		t.Errorf("property status: got %q, want %q", result.Property.Status, models.PropertyStatusOccupied)
	}
	if got := len(result.Tenant.ActiveLeases()); got != 1 {
		t.Fatalf("active leases: got %d, want 1", got)
	}

	err = engine.Unassign(ctx, assignment.UnassignParams{
		TenantID:    tenant.ID,
		PropertyID:  property.ID,
		RequestedBy: owner.ID,
	})
	if err != nil {
		t.Fatalf("Unassign failed: %v", err)
	}

	refreshed, err := propertystore.New(db).GetByID(ctx, property.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if refreshed.Occupancy != nil && refreshed.Occupancy.IsOccupied {
		t.Error("expected the property to be vacant after unassign")
	}
	if refreshed.Status != models.PropertyStatusAvailable {
		t.Errorf("property status: got %q, want %q", refreshed.Status, models.PropertyStatusAvailable)
	}
	after, err := tenantstore.New(db).GetByID(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got := len(after.ActiveLeases()); got != 0 {
		t.Errorf("active leases after unassign: got %d, want 0", got)
	}
	if after.Leases[0].Status != models.LeaseStatusTerminated {
		t.Errorf("lease status: got %q, want %q", after.Leases[0].Status, models.LeaseStatusTerminated)
	}

	// Everything already agrees, so reconciliation has nothing to do.
	synced, err := reconcile.New(db, zap.NewNop()).SyncTenantAssignments(ctx, owner.ID)
	if err != nil {
		t.Fatalf("SyncTenantAssignments failed: %v", err)
	}
	if synced != 0 {
		t.Errorf("synced: got %d, want 0", synced)
	}
}

func TestEngine_ConcurrentAssign_OneWinner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine, _ := newEngine(db, assignment.Policy{})
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateLandlord(ctx, "owner@test.com")
	property := fixtures.CreateProperty(ctx, owner.ID, "Rose Cottage", 1200)
	alice := fixtures.CreateTenant(ctx, owner.ID, "Alice Example", 4000)
	bob := fixtures.CreateTenant(ctx, owner.ID, "Bob Example", 4000)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, tenantID := range []primitive.ObjectID{alice.ID, bob.ID} {
		wg.Add(1)
		go func(i int, tenantID primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = engine.Assign(context.Background(), assignment.AssignParams{
				TenantID: tenantID, PropertyID: property.ID, RequestedBy: owner.ID, Lease: leaseData(1200),
			})
		}(i, tenantID)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case assignment.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("got %d winners and %d conflicts, want exactly one of each", wins, conflicts)
	}

	// Exactly one active lease exists across both tenants and it matches the
	// occupancy pointer.
	ts := tenantstore.New(db)
	var holders []primitive.ObjectID
	for _, id := range []primitive.ObjectID{alice.ID, bob.ID} {
		tn, err := ts.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if len(tn.ActiveLeases()) > 0 {
			holders = append(holders, id)
		}
	}
	if len(holders) != 1 {
		t.Fatalf("active lease holders: got %d, want 1", len(holders))
	}

	p, err := propertystore.New(db).GetByID(ctx, property.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if p.Occupancy == nil || p.Occupancy.TenantID == nil || *p.Occupancy.TenantID != holders[0] {
		t.Error("expected the occupancy pointer to match the lease holder")
	}
}

func assertConflict(t *testing.T, err error, reason string) {
	t.Helper()
	var conflict *assignment.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("got %v, want ConflictError", err)
	}
	if conflict.Reason != reason {
		t.Errorf("conflict reason: got %q, want %q", conflict.Reason, reason)
	}
}

func waitForNotify(t *testing.T, n *recordingNotifier, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n.count() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("notifier calls: got %d, want at least %d", n.count(), want)
}
