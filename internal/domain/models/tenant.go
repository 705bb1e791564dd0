// internal/domain/models/tenant.go
package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lease statuses. Lifecycle: pending → active → terminated | expired | renewed.
// Terminated and expired are terminal.
const (
	LeaseStatusPending    = "pending"
	LeaseStatusActive     = "active"
	LeaseStatusTerminated = "terminated"
	LeaseStatusExpired    = "expired"
	LeaseStatusRenewed    = "renewed"
)

// Lease is one tenancy in a tenant's lease history. Leases are append-only:
// they are never deleted, only status-transitioned, and only by the
// assignment engine.
//
// UnitNumber is nil when the lease covers a single-unit property's occupancy.
type Lease struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PropertyID        primitive.ObjectID `bson:"property_id" json:"property_id"`
	UnitNumber        *string            `bson:"unit_number,omitempty" json:"unit_number,omitempty"`
	Status            string             `bson:"status" json:"status"`
	StartDate         time.Time          `bson:"start_date" json:"start_date"`
	EndDate           time.Time          `bson:"end_date" json:"end_date"`
	MonthlyRent       float64            `bson:"monthly_rent" json:"monthly_rent"`
	SecurityDeposit   float64            `bson:"security_deposit" json:"security_deposit"`
	TenancyType       string             `bson:"tenancy_type,omitempty" json:"tenancy_type,omitempty"` // assured_shorthold | periodic | company_let
	RentDueDate       *int               `bson:"rent_due_date,omitempty" json:"rent_due_date,omitempty"`
	TerminationDate   *time.Time         `bson:"termination_date,omitempty" json:"termination_date,omitempty"`
	TerminationReason string             `bson:"termination_reason,omitempty" json:"termination_reason,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
}

// CoversSlot reports whether the lease refers to the given (property, unit)
// pair. A nil/empty unit number means the property's single-unit occupancy.
func (l *Lease) CoversSlot(propertyID primitive.ObjectID, unitNumber string) bool {
	if l.PropertyID != propertyID {
		return false
	}
	if l.UnitNumber == nil {
		return unitNumber == ""
	}
	return *l.UnitNumber == unitNumber
}

// Employment holds a tenant's employment and income details, used by the
// qualification checks. Income fields are pointers so "not provided" is
// distinguishable from zero.
type Employment struct {
	Employer           string   `bson:"employer,omitempty" json:"employer,omitempty"`
	Status             string   `bson:"status,omitempty" json:"status,omitempty"` // employed | self_employed | retired | student
	GrossMonthlyIncome *float64 `bson:"gross_monthly_income,omitempty" json:"gross_monthly_income,omitempty"`
	NetMonthlyIncome   *float64 `bson:"net_monthly_income,omitempty" json:"net_monthly_income,omitempty"`
}

// Affordability is an explicit affordability assessment supplied for a
// tenant, preferred over employment income when present.
type Affordability struct {
	MonthlyIncome      float64 `bson:"monthly_income" json:"monthly_income"`
	MonthlyExpenses    float64 `bson:"monthly_expenses" json:"monthly_expenses"`
	MonthlyCommitments float64 `bson:"monthly_commitments" json:"monthly_commitments"`
}

// Referencing records the outcome of third-party tenant referencing.
type Referencing struct {
	Status      string     `bson:"status,omitempty" json:"status,omitempty"` // not_started | in_progress | passed | failed
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// RightToRent records the landlord's right-to-rent check.
type RightToRent struct {
	Verified     bool       `bson:"verified" json:"verified"`
	CheckedAt    *time.Time `bson:"checked_at,omitempty" json:"checked_at,omitempty"`
	DocumentType string     `bson:"document_type,omitempty" json:"document_type,omitempty"`
}

// Tenant is a tenant record owned by the landlord who created it. OwnerID is
// an access-control boundary, not a business relationship: the tenant's
// actual occupancies are recorded in Leases.
type Tenant struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID    primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`

	Employment    Employment     `bson:"employment,omitempty" json:"employment"`
	Affordability *Affordability `bson:"affordability,omitempty" json:"affordability,omitempty"`
	Referencing   Referencing    `bson:"referencing,omitempty" json:"referencing"`
	RightToRent   RightToRent    `bson:"right_to_rent,omitempty" json:"right_to_rent"`

	Leases []Lease `bson:"leases,omitempty" json:"leases,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ActiveLeases returns the tenant's leases with active status.
func (t *Tenant) ActiveLeases() []Lease {
	var out []Lease
	for _, l := range t.Leases {
		if l.Status == LeaseStatusActive {
			out = append(out, l)
		}
	}
	return out
}

// ActiveLeaseFor returns the tenant's active lease for the given
// (property, unit) slot, or nil if none exists. At most one active lease per
// slot is an invariant the assignment engine enforces.
func (t *Tenant) ActiveLeaseFor(propertyID primitive.ObjectID, unitNumber string) *Lease {
	for i := range t.Leases {
		l := &t.Leases[i]
		if l.Status == LeaseStatusActive && l.CoversSlot(propertyID, unitNumber) {
			return l
		}
	}
	return nil
}

// ValidLeaseStatus reports whether s is a recognized lease status.
func ValidLeaseStatus(s string) bool {
	switch s {
	case LeaseStatusPending, LeaseStatusActive, LeaseStatusTerminated,
		LeaseStatusExpired, LeaseStatusRenewed:
		return true
	}
	return false
}

// Validate checks field-level constraints on a tenant record.
func (t *Tenant) Validate() error {
	if strings.TrimSpace(t.FullName) == "" {
		return fmt.Errorf("tenant full name is required")
	}
	if t.OwnerID.IsZero() {
		return fmt.Errorf("tenant owner is required")
	}
	for _, l := range t.Leases {
		if l.PropertyID.IsZero() {
			return fmt.Errorf("lease property is required")
		}
		if !ValidLeaseStatus(l.Status) {
			return fmt.Errorf("invalid lease status %q", l.Status)
		}
	}
	return nil
}
