// Package reconcile repairs drift between tenant lease logs and property
// occupancy pointers.
//
// The lease is the source of truth: for every active lease, the referenced
// property or unit must point back at the tenant. A sync pass restores the
// property side to match and never touches tenants or leases. It is a batch
// repair job, not a user-facing atomic operation — each correction is one
// single-document write, a failure on one property does not stop the scan,
// and running it twice in a row corrects nothing on the second pass.
package reconcile

import (
	"context"
	"errors"

	propertystore "github.com/dalemusser/propertyhub/internal/app/store/properties"
	tenantstore "github.com/dalemusser/propertyhub/internal/app/store/tenants"
	"github.com/dalemusser/propertyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Service scans and repairs tenant-assignment drift for one owner at a time.
// It only ever writes property documents, one at a time, and never locks a
// tenant — so it cannot deadlock against an in-flight assign/unassign, which
// locks tenant first, then property.
type Service struct {
	properties *propertystore.Store
	tenants    *tenantstore.Store
	log        *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Service {
	return &Service{
		properties: propertystore.New(db),
		tenants:    tenantstore.New(db),
		log:        logger,
	}
}

// SyncTenantAssignments repairs every property/unit whose occupancy pointer
// disagrees with one of the owner's active leases, and returns the number of
// properties corrected. Per-item failures are logged and skipped; the only
// error returned is failure to even start the scan.
func (s *Service) SyncTenantAssignments(ctx context.Context, ownerID primitive.ObjectID) (int, error) {
	tenants, err := s.tenants.ListWithActiveLeases(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, tenant := range tenants {
		for _, lease := range tenant.ActiveLeases() {
			repaired, err := s.repairSlot(ctx, tenant.ID, lease)
			if err != nil {
				s.log.Warn("reconcile: slot repair failed",
					zap.String("tenant_id", tenant.ID.Hex()),
					zap.String("property_id", lease.PropertyID.Hex()),
					zap.Error(err))
				continue
			}
			if repaired {
				synced++
			}
		}
	}
	return synced, nil
}

// SyncAll runs SyncTenantAssignments for every owner that has tenants with
// active leases. The scheduled sweep calls this; per-owner failures are
// logged and do not stop the pass.
func (s *Service) SyncAll(ctx context.Context) (int, error) {
	owners, err := s.tenants.DistinctOwnersWithActiveLeases(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, ownerID := range owners {
		synced, err := s.SyncTenantAssignments(ctx, ownerID)
		if err != nil {
			s.log.Warn("reconcile: owner sweep failed",
				zap.String("owner_id", ownerID.Hex()),
				zap.Error(err))
			continue
		}
		total += synced
	}
	return total, nil
}

// repairSlot checks one active lease against its property-side pointer and
// repairs the property when they disagree. Returns whether a write was made.
func (s *Service) repairSlot(ctx context.Context, tenantID primitive.ObjectID, lease models.Lease) (bool, error) {
	property, err := s.properties.GetByID(ctx, lease.PropertyID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// The lease references a property that no longer exists. Repair
		// cannot invent it; force-unassign is the tool for orphaned leases.
		s.log.Warn("reconcile: active lease references missing property",
			zap.String("tenant_id", tenantID.Hex()),
			zap.String("property_id", lease.PropertyID.Hex()))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if lease.UnitNumber != nil {
		unit := property.Unit(*lease.UnitNumber)
		if unit == nil {
			s.log.Warn("reconcile: active lease references missing unit",
				zap.String("property_id", property.ID.Hex()),
				zap.String("unit", *lease.UnitNumber))
			return false, nil
		}
		if unit.IsOccupied && unit.TenantID != nil && *unit.TenantID == tenantID &&
			unit.Status == models.UnitStatusOccupied {
			return false, nil
		}
		if err := s.properties.RepairUnitOccupancy(ctx, property.ID, *lease.UnitNumber, tenantID); err != nil {
			return false, err
		}
		return true, nil
	}

	occ := property.Occupancy
	if occ != nil && occ.IsOccupied && occ.TenantID != nil && *occ.TenantID == tenantID &&
		property.Status == models.PropertyStatusOccupied {
		return false, nil
	}
	if err := s.properties.RepairOccupancy(ctx, property.ID, tenantID, lease.StartDate, lease.EndDate); err != nil {
		return false, err
	}
	return true, nil
}

// Drift describes one disagreement between a tenant's active lease and the
// property-side pointer, for the admin dry-run report.
type Drift struct {
	TenantID   primitive.ObjectID  `json:"tenant_id"`
	PropertyID primitive.ObjectID  `json:"property_id"`
	UnitNumber *string             `json:"unit_number,omitempty"`
	Kind       string              `json:"kind"` // missing_pointer | wrong_pointer | stale_status | missing_property | missing_unit
	PointerAt  *primitive.ObjectID `json:"pointer_at,omitempty"`
}

// DetectDrift reports every disagreement a sync pass would repair, without
// writing anything.
func (s *Service) DetectDrift(ctx context.Context, ownerID primitive.ObjectID) ([]Drift, error) {
	tenants, err := s.tenants.ListWithActiveLeases(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var out []Drift
	for _, tenant := range tenants {
		for _, lease := range tenant.ActiveLeases() {
			d := Drift{
				TenantID:   tenant.ID,
				PropertyID: lease.PropertyID,
				UnitNumber: lease.UnitNumber,
			}

			property, err := s.properties.GetByID(ctx, lease.PropertyID)
			if errors.Is(err, mongo.ErrNoDocuments) {
				d.Kind = "missing_property"
				out = append(out, d)
				continue
			}
			if err != nil {
				return nil, err
			}

			if lease.UnitNumber != nil {
				unit := property.Unit(*lease.UnitNumber)
				switch {
				case unit == nil:
					d.Kind = "missing_unit"
				case !unit.IsOccupied || unit.TenantID == nil:
					d.Kind = "missing_pointer"
				case *unit.TenantID != tenant.ID:
					d.Kind = "wrong_pointer"
					d.PointerAt = unit.TenantID
				case unit.Status != models.UnitStatusOccupied:
					d.Kind = "stale_status"
				default:
					continue
				}
				out = append(out, d)
				continue
			}

			occ := property.Occupancy
			switch {
			case occ == nil || !occ.IsOccupied || occ.TenantID == nil:
				d.Kind = "missing_pointer"
			case *occ.TenantID != tenant.ID:
				d.Kind = "wrong_pointer"
				d.PointerAt = occ.TenantID
			case property.Status != models.PropertyStatusOccupied:
				d.Kind = "stale_status"
			default:
				continue
			}
			out = append(out, d)
		}
	}
	return out, nil
}
