package graph

import (
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"github.com/sakif/needley/internal/apperror"
)

// Node kinds, the type half of every global ID.
const (
	kindUser    = "User"
	kindProfile = "Profile"
	kindArticle = "Article"
)

// globalID is base64("<Kind>:<json primary key>").
func globalID(kind, pk string) graphql.ID {
	return relay.MarshalID(kind, pk)
}

// decodeID splits a global ID into kind and primary key.
func decodeID(id graphql.ID, field string) (kind, pk string, err error) {
	kind = relay.UnmarshalKind(id)
	if kind == "" || relay.UnmarshalSpec(id, &pk) != nil || pk == "" {
		return "", "", apperror.ValidationFailed(field, "malformed id: "+string(id))
	}
	return kind, pk, nil
}

// primaryKey decodes id and checks it names an entity of the wanted kind.
// An id of another kind cannot resolve, so it is reported as not found.
func primaryKey(id graphql.ID, want, field, resource string) (string, error) {
	kind, pk, err := decodeID(id, field)
	if err != nil {
		return "", err
	}
	if kind != want {
		return "", apperror.NotFound(resource, string(id))
	}
	return pk, nil
}

// Cursors use the same encoding as node IDs: they name the last (or first)
// row seen, and paging continues by primary key from there.
func encodeCursor(kind, pk string) string {
	return string(globalID(kind, pk))
}

func decodeCursor(cursor *string, kind, field string) (string, error) {
	if cursor == nil || *cursor == "" {
		return "", nil
	}
	k, pk, err := decodeID(graphql.ID(*cursor), field)
	if err != nil {
		return "", err
	}
	if k != kind {
		return "", apperror.ValidationFailed(field, "cursor belongs to another collection")
	}
	return pk, nil
}
