// Package portfolio provides the read-side aggregate analytics computed over
// a landlord's properties and tenants. It is a read-model consumer of the
// consistent state the assignment engine produces: the notifier recomputes
// these numbers after every committed transition, and the analytics endpoint
// serves them on demand.
package portfolio

import (
	"context"

	"github.com/dalemusser/propertyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Summary is a landlord's portfolio at a glance. Slot counts treat each unit
// of a multi-unit property as one lettable slot.
type Summary struct {
	Properties       int     `json:"properties"`
	TotalSlots       int     `json:"total_slots"`
	OccupiedSlots    int     `json:"occupied_slots"`
	AvailableSlots   int     `json:"available_slots"`
	MaintenanceSlots int     `json:"maintenance_slots"`
	OccupancyRate    float64 `json:"occupancy_rate"` // occupied / total, 0 when no slots
	MonthlyRentRoll  float64 `json:"monthly_rent_roll"`
	ActiveTenants    int     `json:"active_tenants"`
}

// Compute builds the portfolio summary for one owner. Rent roll is taken
// from active leases (the source of truth), not from occupancy pointers, so
// analytics degrade gracefully while drift awaits reconciliation.
func Compute(ctx context.Context, db *mongo.Database, ownerID primitive.ObjectID) (Summary, error) {
	var s Summary

	cur, err := db.Collection("properties").Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return s, err
	}
	defer cur.Close(ctx)

	var properties []models.Property
	if err := cur.All(ctx, &properties); err != nil {
		return s, err
	}

	s.Properties = len(properties)
	for _, p := range properties {
		if p.HasUnits() {
			for _, u := range p.Units {
				s.TotalSlots++
				switch u.Status {
				case models.UnitStatusOccupied:
					s.OccupiedSlots++
				case models.UnitStatusMaintenance:
					s.MaintenanceSlots++
				case models.UnitStatusAvailable:
					s.AvailableSlots++
				}
			}
			continue
		}
		s.TotalSlots++
		switch p.Status {
		case models.PropertyStatusOccupied:
			s.OccupiedSlots++
		case models.PropertyStatusMaintenance:
			s.MaintenanceSlots++
		case models.PropertyStatusAvailable:
			s.AvailableSlots++
		}
	}
	if s.TotalSlots > 0 {
		s.OccupancyRate = float64(s.OccupiedSlots) / float64(s.TotalSlots)
	}

	rentRoll, activeTenants, err := activeLeaseStats(ctx, db, ownerID)
	if err != nil {
		return s, err
	}
	s.MonthlyRentRoll = rentRoll
	s.ActiveTenants = activeTenants
	return s, nil
}

// activeLeaseStats sums monthly rent across active leases and counts the
// tenants holding at least one.
func activeLeaseStats(ctx context.Context, db *mongo.Database, ownerID primitive.ObjectID) (float64, int, error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"owner_id":      ownerID,
			"leases.status": models.LeaseStatusActive,
		}},
		{"$unwind": "$leases"},
		{"$match": bson.M{"leases.status": models.LeaseStatusActive}},
		{"$group": bson.M{
			"_id":       nil,
			"rent_roll": bson.M{"$sum": "$leases.monthly_rent"},
			"tenants":   bson.M{"$addToSet": "$_id"},
		}},
		{"$project": bson.M{
			"rent_roll": 1,
			"tenants":   bson.M{"$size": "$tenants"},
		}},
	}

	cur, err := db.Collection("tenants").Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		var row struct {
			RentRoll float64 `bson:"rent_roll"`
			Tenants  int     `bson:"tenants"`
		}
		if err := cur.Decode(&row); err != nil {
			return 0, 0, err
		}
		return row.RentRoll, row.Tenants, nil
	}
	return 0, 0, cur.Err()
}
