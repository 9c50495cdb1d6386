// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// Both fields are nil when the memory backend is configured.
type DBDeps struct {
	CivicMongoClient   *mongo.Client
	CivicMongoDatabase *mongo.Database
}

func (d DBDeps) usingMongo() bool {
	return d.CivicMongoDatabase != nil
}
