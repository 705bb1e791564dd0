// internal/domain/models/property.go
package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Property statuses. Single-unit properties carry the occupancy state on the
// property itself; multi-unit properties carry it per unit, and the property
// status reflects the building as a whole.
const (
	PropertyStatusAvailable   = "available"
	PropertyStatusOccupied    = "occupied"
	PropertyStatusMaintenance = "maintenance"
	PropertyStatusOffMarket   = "off_market"
	PropertyStatusPending     = "pending"
)

// Unit statuses (no "pending": units are never in moderation).
const (
	UnitStatusAvailable   = "available"
	UnitStatusOccupied    = "occupied"
	UnitStatusMaintenance = "maintenance"
	UnitStatusOffMarket   = "off_market"
)

// Occupancy records which tenant currently occupies a single-unit property.
//
// Invariant: IsOccupied == true iff TenantID != nil iff the parent property's
// Status == "occupied". The occupancy fields are a derived cache of the
// tenant's active lease; only the assignment engine and the reconciliation
// service write them (via the property store's occupancy methods).
type Occupancy struct {
	IsOccupied bool                `bson:"is_occupied" json:"is_occupied"`
	TenantID   *primitive.ObjectID `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	LeaseStart *time.Time          `bson:"lease_start,omitempty" json:"lease_start,omitempty"`
	LeaseEnd   *time.Time          `bson:"lease_end,omitempty" json:"lease_end,omitempty"`
}

// Unit is one independently-lettable unit inside a multi-unit property
// (e.g., a flat in an apartment block). UnitNumber is unique within the
// parent property.
//
// Invariant: IsOccupied == true iff TenantID != nil iff Status == "occupied".
type Unit struct {
	UnitNumber  string              `bson:"unit_number" json:"unit_number"`
	MonthlyRent float64             `bson:"monthly_rent" json:"monthly_rent"`
	TenantID    *primitive.ObjectID `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	IsOccupied  bool                `bson:"is_occupied" json:"is_occupied"`
	Status      string              `bson:"status" json:"status"`
}

// Property is a landlord's property. Units is empty for single-unit
// properties (houses, flats let whole), in which case Occupancy holds the
// tenancy state. OwnerID is the landlord user who manages the record.
type Property struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID      primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	AddressLine1 string             `bson:"address_line1" json:"address_line1"`
	City         string             `bson:"city" json:"city"`
	Postcode     string             `bson:"postcode" json:"postcode"`
	PropertyType string             `bson:"property_type" json:"property_type"` // house | flat | apartment_block | hmo
	MonthlyRent  float64            `bson:"monthly_rent" json:"monthly_rent"`

	Units     []Unit     `bson:"units,omitempty" json:"units,omitempty"`
	Occupancy *Occupancy `bson:"occupancy,omitempty" json:"occupancy,omitempty"`
	Status    string     `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasUnits reports whether the property is multi-unit.
func (p *Property) HasUnits() bool {
	return len(p.Units) > 0
}

// Unit returns the unit with the given number, or nil if none exists.
func (p *Property) Unit(unitNumber string) *Unit {
	for i := range p.Units {
		if p.Units[i].UnitNumber == unitNumber {
			return &p.Units[i]
		}
	}
	return nil
}

// ValidPropertyStatus reports whether s is a recognized property status.
func ValidPropertyStatus(s string) bool {
	switch s {
	case PropertyStatusAvailable, PropertyStatusOccupied, PropertyStatusMaintenance,
		PropertyStatusOffMarket, PropertyStatusPending:
		return true
	}
	return false
}

// Validate checks field-level constraints on a property record. It does not
// check cross-document invariants; those belong to the assignment engine.
func (p *Property) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("property name is required")
	}
	if p.OwnerID.IsZero() {
		return fmt.Errorf("property owner is required")
	}
	if !ValidPropertyStatus(p.Status) {
		return fmt.Errorf("invalid property status %q", p.Status)
	}
	if p.MonthlyRent < 0 {
		return fmt.Errorf("monthly rent cannot be negative")
	}
	seen := make(map[string]bool, len(p.Units))
	for _, u := range p.Units {
		if strings.TrimSpace(u.UnitNumber) == "" {
			return fmt.Errorf("unit number is required")
		}
		if seen[u.UnitNumber] {
			return fmt.Errorf("duplicate unit number %q", u.UnitNumber)
		}
		seen[u.UnitNumber] = true
	}
	if p.HasUnits() && p.Occupancy != nil {
		return fmt.Errorf("multi-unit property cannot carry property-level occupancy")
	}
	return nil
}
