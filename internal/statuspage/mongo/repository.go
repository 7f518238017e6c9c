// Package mongo provides a MongoDB implementation of the status page repository.
// Each organization is one document in the organizations collection keyed by _id.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/statuspage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// CollectionName is the collection holding organization documents.
const CollectionName = "organizations"

// Repository implements statuspage.Repository using MongoDB.
type Repository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewRepository creates a repository over the organizations collection of db.
func NewRepository(client *mongo.Client, db *mongo.Database) *Repository {
	return &Repository{
		client: client,
		coll:   db.Collection(CollectionName),
	}
}

// EnsureContainer implements statuspage.Repository. The document is upserted
// first, then the container is set only where it is not already an embedded
// document, so concurrent callers never clear each other's children.
func (r *Repository) EnsureContainer(ctx context.Context, orgID string, container domain.Container) error {
	field := string(container)

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": orgID},
		bson.M{"$setOnInsert": bson.M{field: bson.M{}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert organization: %w", err)
	}

	_, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": orgID, field: bson.M{"$not": bson.M{"$type": "object"}}},
		bson.M{"$set": bson.M{field: bson.M{}}},
	)
	if err != nil {
		return fmt.Errorf("initialize %s: %w", field, err)
	}
	return nil
}

// GetOrganization implements statuspage.Repository.
func (r *Repository) GetOrganization(ctx context.Context, orgID string) (*domain.Organization, error) {
	var org domain.Organization
	err := r.coll.FindOne(ctx, bson.M{"_id": orgID}).Decode(&org)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, statuspage.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return &org, nil
}

// Patch implements statuspage.Repository. Timestamps are stamped by the
// server with $currentDate.
func (r *Repository) Patch(ctx context.Context, orgID string, p statuspage.Patch) error {
	update := updateDocument(p)
	if len(update) == 0 {
		return nil
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": orgID}, update)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	if res.MatchedCount == 0 {
		return statuspage.ErrOrganizationNotFound
	}
	return nil
}

func updateDocument(p statuspage.Patch) bson.M {
	update := bson.M{}

	if len(p.Set) > 0 {
		set := bson.M{}
		for path, value := range p.Set {
			set[path] = value
		}
		update["$set"] = set
	}

	if len(p.Timestamps) > 0 {
		current := bson.M{}
		for _, path := range p.Timestamps {
			current[path] = true
		}
		update["$currentDate"] = current
	}

	if len(p.Delete) > 0 {
		unset := bson.M{}
		for _, path := range p.Delete {
			unset[path] = ""
		}
		update["$unset"] = unset
	}

	return update
}

// ListOrganizationIDs implements statuspage.Repository.
func (r *Repository) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	cur, err := r.coll.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find organizations: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode organizations: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// Ping implements statuspage.Repository.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}
