// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP ports, TLS,
// logging level and format, CORS, request limits). AppConfig is everything
// specific to PropertyHub: the MongoDB connection, API token signing, and
// the assignment engine's knobs.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// API authentication
	AuthSecret   string        // HMAC secret for signing bearer tokens (must be strong in production)
	AuthTokenTTL time.Duration // Token lifetime (default 24h)

	// Assignment engine configuration
	RequireQualification bool          // Make the income check a hard gate on assignment
	ReconcileInterval    time.Duration // Background lease/occupancy reconciliation period (0 disables)
}
