// Package indexes creates the MongoDB indexes the application relies on.
// EnsureAll is called at startup; each ensure function is idempotent, and
// errors are aggregated so any problem is visible and startup can fail fast.
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureProperties(ctx, db); err != nil {
		problems = append(problems, "properties: "+err.Error())
	}
	if err := ensureTenants(ctx, db); err != nil {
		problems = append(problems, "tenants: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetName("email_ci_unique").SetUnique(true),
		},
	})
	return err
}

func ensureProperties(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("properties").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("owner_name"),
		},
		// Occupancy pointers, both property-level and per-unit. Force-unassign
		// and drift scans look properties up by occupant.
		{
			Keys:    bson.D{{Key: "occupancy.tenant_id", Value: 1}},
			Options: options.Index().SetName("occupancy_tenant").SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "units.tenant_id", Value: 1}},
			Options: options.Index().SetName("unit_tenant").SetSparse(true),
		},
	})
	return err
}

func ensureTenants(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("tenants").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "full_name_ci", Value: 1}},
			Options: options.Index().SetName("owner_name"),
		},
		// Reconciliation scans owners' tenants by active lease status.
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "leases.status", Value: 1}},
			Options: options.Index().SetName("owner_lease_status"),
		},
		{
			Keys:    bson.D{{Key: "leases.property_id", Value: 1}},
			Options: options.Index().SetName("lease_property").SetSparse(true),
		},
	})
	return err
}
