// Package assignment is the only writer of the tenant↔property relationship.
//
// A tenancy is recorded in two places: an active lease on the tenant's lease
// log, and an occupancy pointer on the property (or one of its units). This
// engine performs every transition between those states as one atomic unit —
// assign, unassign, and the wider-blast-radius force-unassign — so that after
// any committed operation the two sides agree. Direct field-level mutation of
// leases or occupancy anywhere else is a bug; the reconcile package is the
// only sanctioned repair path for state that drifted anyway.
package assignment

import (
	"context"
	"errors"
	"time"

	propertystore "github.com/dalemusser/propertyhub/internal/app/store/properties"
	tenantstore "github.com/dalemusser/propertyhub/internal/app/store/tenants"
	"github.com/dalemusser/propertyhub/internal/app/system/txn"
	"github.com/dalemusser/propertyhub/internal/domain/models"
	"github.com/dalemusser/propertyhub/internal/domain/qualify"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Notifier receives the owner id after every committed transition so the
// read model can recompute. Calls are fire-and-forget: implementations log
// their own failures and must never block or fail the assignment.
type Notifier interface {
	Notify(ownerID primitive.ObjectID)
}

// Policy configures optional engine behavior.
type Policy struct {
	// RequireQualification makes the income qualification check a hard gate
	// on Assign. Off by default: qualification is advisory and a landlord
	// may override it.
	RequireQualification bool
}

// Engine performs atomic tenant-assignment state transitions.
type Engine struct {
	client     *mongo.Client
	properties *propertystore.Store
	tenants    *tenantstore.Store
	notifier   Notifier
	policy     Policy
	log        *zap.Logger
}

// New constructs an Engine. notifier may be nil (no read-model push).
func New(client *mongo.Client, db *mongo.Database, notifier Notifier, policy Policy, logger *zap.Logger) *Engine {
	return &Engine{
		client:     client,
		properties: propertystore.New(db),
		tenants:    tenantstore.New(db),
		notifier:   notifier,
		policy:     policy,
		log:        logger,
	}
}

// LeaseData carries the caller-supplied terms for a new lease.
type LeaseData struct {
	StartDate       time.Time
	EndDate         time.Time
	MonthlyRent     float64
	SecurityDeposit float64
	TenancyType     string
	RentDueDate     *int
}

// AssignParams identifies the slot and tenant for Assign. UnitNumber is
// empty for single-unit properties.
type AssignParams struct {
	TenantID    primitive.ObjectID
	PropertyID  primitive.ObjectID
	UnitNumber  string
	RequestedBy primitive.ObjectID
	Lease       LeaseData
}

// AssignResult returns the post-commit state of both documents plus the
// lease that was created.
type AssignResult struct {
	Tenant   models.Tenant   `json:"tenant"`
	Property models.Property `json:"property"`
	Lease    models.Lease    `json:"lease"`
}

// Assign creates an active lease on the tenant and points the property's (or
// unit's) occupancy at them, atomically. Tenant is written before property —
// the fixed acquisition order that, together with reconciliation only ever
// locking properties, rules out deadlock.
func (e *Engine) Assign(ctx context.Context, p AssignParams) (AssignResult, error) {
	var result AssignResult

	err := txn.WithTransaction(ctx, e.client, func(ctx context.Context) error {
		tenant, err := e.tenants.GetOwned(ctx, p.TenantID, p.RequestedBy)
		if err != nil {
			return mapNotFound(err)
		}
		property, err := e.properties.GetOwned(ctx, p.PropertyID, p.RequestedBy)
		if err != nil {
			return mapNotFound(err)
		}

		if property.HasUnits() {
			if p.UnitNumber == "" {
				return ErrUnitRequired
			}
			if property.Unit(p.UnitNumber) == nil {
				return ErrNotFound
			}
		} else if p.UnitNumber != "" {
			return ErrUnitNotAllowed
		}

		if e.policy.RequireQualification {
			if res := qualify.CheckIncome(tenant, p.Lease.MonthlyRent); !res.Qualified {
				return &ConflictError{Reason: ReasonNotQualified}
			}
		}

		if tenant.ActiveLeaseFor(property.ID, p.UnitNumber) != nil {
			return &ConflictError{Reason: ReasonDuplicateAssignment}
		}

		// The occupancy check is on the pointer, not on lease records, so a
		// drifted pointer blocks assignment early instead of compounding.
		if property.HasUnits() {
			if property.Unit(p.UnitNumber).IsOccupied {
				return &ConflictError{Reason: ReasonAlreadyOccupied}
			}
		} else if property.Occupancy != nil && property.Occupancy.IsOccupied {
			return &ConflictError{Reason: ReasonAlreadyOccupied}
		}

		lease := models.Lease{
			ID:              primitive.NewObjectID(),
			PropertyID:      property.ID,
			Status:          models.LeaseStatusActive,
			StartDate:       p.Lease.StartDate,
			EndDate:         p.Lease.EndDate,
			MonthlyRent:     p.Lease.MonthlyRent,
			SecurityDeposit: p.Lease.SecurityDeposit,
			TenancyType:     p.Lease.TenancyType,
			RentDueDate:     p.Lease.RentDueDate,
		}
		if p.UnitNumber != "" {
			n := p.UnitNumber
			lease.UnitNumber = &n
		}

		lease, err = e.tenants.AppendLease(ctx, tenant.ID, lease)
		if err != nil {
			return err
		}

		if property.HasUnits() {
			err = e.properties.SetUnitOccupied(ctx, property.ID, p.UnitNumber, tenant.ID)
		} else {
			err = e.properties.SetOccupied(ctx, property.ID, tenant.ID, lease.StartDate, lease.EndDate)
		}
		if err != nil {
			// A concurrent assign won the slot between our read and write.
			// In a transaction the abort rolls the lease append back; on a
			// standalone deployment we back it out ourselves.
			if rmErr := e.tenants.RemoveLease(ctx, tenant.ID, lease.ID); rmErr != nil {
				e.log.Warn("failed to back out lease after occupancy write failure",
					zap.String("tenant_id", tenant.ID.Hex()),
					zap.Error(rmErr))
			}
			if errors.Is(err, propertystore.ErrNotVacant) {
				return &ConflictError{Reason: ReasonAlreadyOccupied}
			}
			return err
		}

		result.Lease = lease
		if result.Tenant, err = e.tenants.GetByID(ctx, tenant.ID); err != nil {
			return err
		}
		if result.Property, err = e.properties.GetByID(ctx, property.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return AssignResult{}, err
	}

	e.notify(p.RequestedBy)
	return result, nil
}

// UnassignParams identifies the slot to vacate.
type UnassignParams struct {
	TenantID          primitive.ObjectID
	PropertyID        primitive.ObjectID
	UnitNumber        string
	RequestedBy       primitive.ObjectID
	TerminationReason string
}

// Unassign terminates the tenant's active lease for the slot and vacates the
// occupancy pointer, atomically. Unassigning a slot with no active lease is
// ErrNoActiveLease, not a no-op.
func (e *Engine) Unassign(ctx context.Context, p UnassignParams) error {
	err := txn.WithTransaction(ctx, e.client, func(ctx context.Context) error {
		tenant, err := e.tenants.GetOwned(ctx, p.TenantID, p.RequestedBy)
		if err != nil {
			return mapNotFound(err)
		}
		property, err := e.properties.GetOwned(ctx, p.PropertyID, p.RequestedBy)
		if err != nil {
			return mapNotFound(err)
		}

		if property.HasUnits() {
			if p.UnitNumber == "" {
				return ErrUnitRequired
			}
			if property.Unit(p.UnitNumber) == nil {
				return ErrNotFound
			}
		} else if p.UnitNumber != "" {
			return ErrUnitNotAllowed
		}

		lease := tenant.ActiveLeaseFor(property.ID, p.UnitNumber)
		if lease == nil {
			return ErrNoActiveLease
		}

		now := time.Now().UTC()
		if err := e.tenants.TerminateLease(ctx, tenant.ID, lease.ID, now, p.TerminationReason); err != nil {
			return err
		}

		if property.HasUnits() {
			return e.properties.ClearUnitOccupancy(ctx, property.ID, p.UnitNumber)
		}
		return e.properties.ClearOccupancy(ctx, property.ID)
	})
	if err != nil {
		return err
	}

	e.notify(p.RequestedBy)
	return nil
}

// ForceUnassignResult reports the blast radius of a force-unassign.
type ForceUnassignResult struct {
	PropertiesUpdated int `json:"properties_updated"`
	LeasesTerminated  int `json:"leases_terminated"`
}

// ForceUnassignTenant terminates every active lease the tenant holds and
// vacates every occupancy pointer that references them, whether or not the
// two sides currently agree. It is a cleanup operation: idempotent, and
// never an error when there is nothing to do.
func (e *Engine) ForceUnassignTenant(ctx context.Context, tenantID, requestedBy primitive.ObjectID) (ForceUnassignResult, error) {
	var result ForceUnassignResult

	err := txn.WithTransaction(ctx, e.client, func(ctx context.Context) error {
		result = ForceUnassignResult{}

		tenant, err := e.tenants.GetOwned(ctx, tenantID, requestedBy)
		if err != nil {
			return mapNotFound(err)
		}

		active := tenant.ActiveLeases()
		result.LeasesTerminated = len(active)
		if len(active) > 0 {
			if err := e.tenants.TerminateActiveLeases(ctx, tenant.ID, time.Now().UTC(), "force unassigned"); err != nil {
				return err
			}
		}

		// Slots to vacate: every slot named by an active lease, plus every
		// slot whose pointer references the tenant without a lease backing
		// it. The two sides are cleared independently.
		slots := make(map[primitive.ObjectID]map[string]bool)
		addSlot := func(propertyID primitive.ObjectID, unit string) {
			if slots[propertyID] == nil {
				slots[propertyID] = make(map[string]bool)
			}
			slots[propertyID][unit] = true
		}

		for _, l := range active {
			unit := ""
			if l.UnitNumber != nil {
				unit = *l.UnitNumber
			}
			addSlot(l.PropertyID, unit)
		}

		occupied, err := e.properties.FindByOccupant(ctx, tenant.ID)
		if err != nil {
			return err
		}
		for _, prop := range occupied {
			if prop.Occupancy != nil && prop.Occupancy.TenantID != nil && *prop.Occupancy.TenantID == tenant.ID {
				addSlot(prop.ID, "")
			}
			for _, u := range prop.Units {
				if u.TenantID != nil && *u.TenantID == tenant.ID {
					addSlot(prop.ID, u.UnitNumber)
				}
			}
		}

		for propertyID, units := range slots {
			cleared := false
			for unit := range units {
				var err error
				if unit == "" {
					err = e.properties.ClearOccupancy(ctx, propertyID)
				} else {
					err = e.properties.ClearUnitOccupancy(ctx, propertyID, unit)
				}
				switch {
				case err == nil:
					cleared = true
				case errors.Is(err, mongo.ErrNoDocuments), errors.Is(err, propertystore.ErrUnitNotFound):
					// Property or unit no longer exists; nothing to vacate.
					e.log.Debug("force-unassign: slot already gone",
						zap.String("property_id", propertyID.Hex()),
						zap.String("unit", unit))
				default:
					return err
				}
			}
			if cleared {
				result.PropertiesUpdated++
			}
		}
		return nil
	})
	if err != nil {
		return ForceUnassignResult{}, err
	}

	if result.LeasesTerminated > 0 || result.PropertiesUpdated > 0 {
		e.notify(requestedBy)
	}
	return result, nil
}

func (e *Engine) notify(ownerID primitive.ObjectID) {
	if e.notifier == nil {
		return
	}
	go e.notifier.Notify(ownerID)
}

func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
