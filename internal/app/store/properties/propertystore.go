package propertystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/propertyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotVacant is returned by the occupancy setters when the target slot's
// occupied-precondition fails: the property/unit exists but something already
// holds the slot. The precondition lives in the update filter so a concurrent
// assign race surfaces here even outside a transaction.
var ErrNotVacant = errors.New("occupancy slot is not vacant")

// ErrUnitNotFound is returned when a unit number does not exist on the
// property, distinguishable from ErrNotVacant only when the caller has
// already confirmed the unit exists.
var ErrUnitNotFound = errors.New("unit not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("properties")}
}

// Create inserts a new property document. If CreatedAt is zero it is set to
// now (UTC); the case-folded name is always derived here.
func (s *Store) Create(ctx context.Context, p models.Property) (models.Property, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.NameCI = text.Fold(p.Name)

	res, err := s.c.InsertOne(ctx, p)
	if err != nil {
		return p, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return p, nil
}

// GetByID returns a single property by its _id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Property, error) {
	var p models.Property
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	return p, err
}

// GetOwned returns the property only if it is owned by ownerID. A property
// that exists but belongs to someone else decodes the same
// mongo.ErrNoDocuments as one that does not exist, so callers cannot probe
// for other landlords' records.
func (s *Store) GetOwned(ctx context.Context, id, ownerID primitive.ObjectID) (models.Property, error) {
	var p models.Property
	err := s.c.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&p)
	return p, err
}

// ListByOwner returns all properties owned by ownerID, sorted by folded name.
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Property, error) {
	cur, err := s.c.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Property
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByOccupant returns every property whose occupancy pointer (property
// level or any unit) references tenantID. Force-unassign and drift detection
// use it to find pointer-side state that may lack a backing lease.
func (s *Store) FindByOccupant(ctx context.Context, tenantID primitive.ObjectID) ([]models.Property, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"occupancy.tenant_id": tenantID},
		bson.M{"units.tenant_id": tenantID},
	}}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Property
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces an existing property identified by its _id. Occupancy and
// unit-occupancy fields are deliberately preserved from the stored document:
// they are only mutable through the occupancy methods below.
func (s *Store) Update(ctx context.Context, p models.Property) (models.Property, error) {
	if p.ID.IsZero() {
		return p, mongo.ErrNilDocument
	}

	current, err := s.GetByID(ctx, p.ID)
	if err != nil {
		return p, err
	}
	p.Occupancy = current.Occupancy
	p.Status = current.Status
	for i := range p.Units {
		if cu := current.Unit(p.Units[i].UnitNumber); cu != nil {
			p.Units[i].TenantID = cu.TenantID
			p.Units[i].IsOccupied = cu.IsOccupied
			p.Units[i].Status = cu.Status
		}
	}

	p.UpdatedAt = time.Now().UTC()
	p.NameCI = text.Fold(p.Name)

	_, err = s.c.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	return p, err
}

// Delete removes the property with the given _id.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// SetOccupied marks a single-unit property as occupied by tenantID. The
// update filter requires the occupancy slot to be vacant, so a concurrent
// writer that got there first turns this call into ErrNotVacant rather than
// a silent overwrite.
func (s *Store) SetOccupied(ctx context.Context, propertyID, tenantID primitive.ObjectID, leaseStart, leaseEnd time.Time) error {
	filter := bson.M{
		"_id":                   propertyID,
		"occupancy.is_occupied": bson.M{"$ne": true},
	}
	update := bson.M{"$set": bson.M{
		"occupancy": models.Occupancy{
			IsOccupied: true,
			TenantID:   &tenantID,
			LeaseStart: &leaseStart,
			LeaseEnd:   &leaseEnd,
		},
		"status":     models.PropertyStatusOccupied,
		"updated_at": time.Now().UTC(),
	}}

	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotVacant
	}
	return nil
}

// ClearOccupancy vacates a single-unit property regardless of which tenant
// the pointer currently holds. Used by unassign, force-unassign, and repair.
func (s *Store) ClearOccupancy(ctx context.Context, propertyID primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{
			"occupancy":  models.Occupancy{IsOccupied: false},
			"status":     models.PropertyStatusAvailable,
			"updated_at": time.Now().UTC(),
		},
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": propertyID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetUnitOccupied marks one unit of a multi-unit property as occupied by
// tenantID, with the same vacancy precondition as SetOccupied.
func (s *Store) SetUnitOccupied(ctx context.Context, propertyID primitive.ObjectID, unitNumber string, tenantID primitive.ObjectID) error {
	filter := bson.M{
		"_id": propertyID,
		"units": bson.M{"$elemMatch": bson.M{
			"unit_number": unitNumber,
			"is_occupied": bson.M{"$ne": true},
		}},
	}
	update := bson.M{"$set": bson.M{
		"units.$.tenant_id":   tenantID,
		"units.$.is_occupied": true,
		"units.$.status":      models.UnitStatusOccupied,
		"updated_at":          time.Now().UTC(),
	}}

	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotVacant
	}
	return nil
}

// ClearUnitOccupancy vacates one unit regardless of its current pointer.
func (s *Store) ClearUnitOccupancy(ctx context.Context, propertyID primitive.ObjectID, unitNumber string) error {
	filter := bson.M{
		"_id":               propertyID,
		"units.unit_number": unitNumber,
	}
	update := bson.M{
		"$set": bson.M{
			"units.$.is_occupied": false,
			"units.$.status":      models.UnitStatusAvailable,
			"updated_at":          time.Now().UTC(),
		},
		"$unset": bson.M{"units.$.tenant_id": ""},
	}

	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUnitNotFound
	}
	return nil
}

// RepairOccupancy overwrites a single-unit property's occupancy pointer
// without the vacancy precondition. Reconciliation uses it to correct a
// drifted pointer; nothing else should.
func (s *Store) RepairOccupancy(ctx context.Context, propertyID, tenantID primitive.ObjectID, leaseStart, leaseEnd time.Time) error {
	update := bson.M{"$set": bson.M{
		"occupancy": models.Occupancy{
			IsOccupied: true,
			TenantID:   &tenantID,
			LeaseStart: &leaseStart,
			LeaseEnd:   &leaseEnd,
		},
		"status":     models.PropertyStatusOccupied,
		"updated_at": time.Now().UTC(),
	}}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": propertyID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RepairUnitOccupancy overwrites one unit's occupancy pointer without the
// vacancy precondition. Reconciliation only.
func (s *Store) RepairUnitOccupancy(ctx context.Context, propertyID primitive.ObjectID, unitNumber string, tenantID primitive.ObjectID) error {
	filter := bson.M{
		"_id":               propertyID,
		"units.unit_number": unitNumber,
	}
	update := bson.M{"$set": bson.M{
		"units.$.tenant_id":   tenantID,
		"units.$.is_occupied": true,
		"units.$.status":      models.UnitStatusOccupied,
		"updated_at":          time.Now().UTC(),
	}}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUnitNotFound
	}
	return nil
}
