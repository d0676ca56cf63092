// Package domain holds the entity types shared between the API handlers, the
// orchestration service, the background worker and the storage layer.
package domain
