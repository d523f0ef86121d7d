package sermonimport

// sync.go reconciles the persisted collections of one sermon with the
// desired list from an import row.
//
// Collections are identified by lowercased, trimmed name. Matching names get
// their description updated when it differs, new names are inserted and every
// persisted collection left unmatched is deleted. A name repeated in the row
// is kept as many times as it appears, the same as on create. The mutations
// touch disjoint rows, so they are issued concurrently and joined before
// returning. The first failure fails the whole sync.

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/sermonimport/internal/metrics"
)

type collectionOp struct {
	kind        string // insert, update, delete
	id          string
	name        string
	description *string
}

// planCollectionSync computes the mutations needed to turn existing into
// desired. Each desired collection claims the first unclaimed persisted
// collection with the same name key, so repeated names pair up one to one and
// no id receives more than one mutation.
func planCollectionSync(existing []CollectionRecord, desired []Collection) []collectionOp {
	available := make(map[string][]CollectionRecord, len(existing))
	for _, c := range existing {
		if c.ID == "" || c.Name == "" {
			continue
		}
		key := foldValue(c.Name)
		available[key] = append(available[key], c)
	}

	var ops []collectionOp
	claimed := make(map[string]bool, len(existing))

	for _, c := range desired {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		description := normalizeDescription(&c.Description)
		key := strings.ToLower(name)

		if candidates := available[key]; len(candidates) > 0 {
			current := candidates[0]
			available[key] = candidates[1:]
			claimed[current.ID] = true
			if !sameDescription(current.Description, description) {
				ops = append(ops, collectionOp{kind: "update", id: current.ID, description: description})
			}
			continue
		}
		ops = append(ops, collectionOp{kind: "insert", name: name, description: description})
	}

	for _, c := range existing {
		if c.ID == "" || c.Name == "" || claimed[c.ID] {
			continue
		}
		ops = append(ops, collectionOp{kind: "delete", id: c.ID})
	}

	return ops
}

// SyncCollections makes the persisted collections of sermonID equal desired.
func SyncCollections(ctx context.Context, store CollectionStore, sermonID string, desired []Collection) error {
	existing, err := store.ListCollections(ctx, sermonID)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	ops := planCollectionSync(existing, desired)
	if len(ops) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, op := range ops {
		g.Go(func() error {
			var err error
			switch op.kind {
			case "update":
				err = store.UpdateCollection(gctx, op.id, op.description)
			case "insert":
				err = store.InsertCollection(gctx, sermonID, CollectionInput{Name: op.name, Description: op.description})
			case "delete":
				err = store.DeleteCollection(gctx, op.id)
			}
			if err != nil {
				return fmt.Errorf("%s collection: %w", op.kind, err)
			}
			metrics.CollectionMutations.WithLabelValues(op.kind).Inc()
			return nil
		})
	}
	return g.Wait()
}
