package tenantstore

import (
	"context"
	"time"

	"github.com/dalemusser/propertyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tenants")}
}

// Create inserts a new tenant document. If CreatedAt is zero it is set to
// now (UTC); the case-folded name is always derived here.
func (s *Store) Create(ctx context.Context, t models.Tenant) (models.Tenant, error) {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.FullNameCI = text.Fold(t.FullName)

	res, err := s.c.InsertOne(ctx, t)
	if err != nil {
		return t, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		t.ID = oid
	}
	return t, nil
}

// GetByID returns a single tenant by its _id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Tenant, error) {
	var t models.Tenant
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	return t, err
}

// GetOwned returns the tenant only if it is owned by ownerID. Existence of
// other landlords' tenants is not revealed: the not-found and not-owned
// cases are both mongo.ErrNoDocuments.
func (s *Store) GetOwned(ctx context.Context, id, ownerID primitive.ObjectID) (models.Tenant, error) {
	var t models.Tenant
	err := s.c.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&t)
	return t, err
}

// ListByOwner returns all tenants owned by ownerID.
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Tenant, error) {
	cur, err := s.c.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Tenant
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListWithActiveLeases returns the owner's tenants that have at least one
// active lease. Reconciliation scans these.
func (s *Store) ListWithActiveLeases(ctx context.Context, ownerID primitive.ObjectID) ([]models.Tenant, error) {
	filter := bson.M{
		"owner_id":      ownerID,
		"leases.status": models.LeaseStatusActive,
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Tenant
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DistinctOwnersWithActiveLeases returns the owner ids of every tenant
// holding at least one active lease. The scheduled reconciliation sweep uses
// it to cover all landlords.
func (s *Store) DistinctOwnersWithActiveLeases(ctx context.Context) ([]primitive.ObjectID, error) {
	raw, err := s.c.Distinct(ctx, "owner_id", bson.M{"leases.status": models.LeaseStatusActive})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Update replaces an existing tenant identified by its _id. The lease log is
// deliberately preserved from the stored document: leases are append-only
// and only the assignment engine transitions them (via the lease methods
// below).
func (s *Store) Update(ctx context.Context, t models.Tenant) (models.Tenant, error) {
	if t.ID.IsZero() {
		return t, mongo.ErrNilDocument
	}

	current, err := s.GetByID(ctx, t.ID)
	if err != nil {
		return t, err
	}
	t.Leases = current.Leases

	t.UpdatedAt = time.Now().UTC()
	t.FullNameCI = text.Fold(t.FullName)

	_, err = s.c.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	return t, err
}

// Delete removes the tenant with the given _id.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// AppendLease pushes a new lease onto the tenant's lease log. A zero lease
// ID gets a fresh ObjectID so the lease is individually addressable later.
func (s *Store) AppendLease(ctx context.Context, tenantID primitive.ObjectID, lease models.Lease) (models.Lease, error) {
	if lease.ID.IsZero() {
		lease.ID = primitive.NewObjectID()
	}
	if lease.CreatedAt.IsZero() {
		lease.CreatedAt = time.Now().UTC()
	}

	update := bson.M{
		"$push": bson.M{"leases": lease},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": tenantID}, update)
	if err != nil {
		return lease, err
	}
	if res.MatchedCount == 0 {
		return lease, mongo.ErrNoDocuments
	}
	return lease, nil
}

// RemoveLease pulls one lease out of the tenant's lease log. Committed
// leases are never deleted; this exists solely so a failed assign can back
// out the lease it just appended when no transaction is there to do it.
func (s *Store) RemoveLease(ctx context.Context, tenantID, leaseID primitive.ObjectID) error {
	update := bson.M{
		"$pull": bson.M{"leases": bson.M{"_id": leaseID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": tenantID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// TerminateLease transitions one lease to terminated, recording when and
// why. The array filter requires the lease to still be active, so a
// double-terminate matches nothing and reports mongo.ErrNoDocuments.
func (s *Store) TerminateLease(ctx context.Context, tenantID, leaseID primitive.ObjectID, when time.Time, reason string) error {
	update := bson.M{"$set": bson.M{
		"leases.$[l].status":             models.LeaseStatusTerminated,
		"leases.$[l].termination_date":   when,
		"leases.$[l].termination_reason": reason,
		"updated_at":                     time.Now().UTC(),
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{
			"l._id":    leaseID,
			"l.status": models.LeaseStatusActive,
		}},
	})

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": tenantID}, update, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 || res.ModifiedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// TerminateActiveLeases transitions every active lease on the tenant to
// terminated in one write. Force-unassign uses it; callers that need the
// count of affected leases read the tenant first.
func (s *Store) TerminateActiveLeases(ctx context.Context, tenantID primitive.ObjectID, when time.Time, reason string) error {
	update := bson.M{"$set": bson.M{
		"leases.$[l].status":             models.LeaseStatusTerminated,
		"leases.$[l].termination_date":   when,
		"leases.$[l].termination_reason": reason,
		"updated_at":                     time.Now().UTC(),
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"l.status": models.LeaseStatusActive}},
	})

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": tenantID}, update, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
