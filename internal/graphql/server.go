// Package graphql wires the schema bundle and root resolver into an HTTP
// handler, generalizing the teacher's own API server entry point (its
// cmd/ffindexer or api package wires graphql-go the same way: parse the
// schema once at startup, serve it behind relay.Handler for queries and
// mutations, and a graphql-transport-ws handler for subscriptions).
package graphql

import (
	"net/http"

	graphqlgo "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/graph-gophers/graphql-transport-ws/graphqlws"
	"github.com/rs/cors"

	"github.com/concordium/ccdscan-go/internal/config"
	"github.com/concordium/ccdscan-go/internal/graphql/resolvers"
	gqlschema "github.com/concordium/ccdscan-go/internal/graphql/schema"
	"github.com/concordium/ccdscan-go/internal/logger"
	"github.com/concordium/ccdscan-go/internal/store"
)

// NewSchema parses the schema bundle against the root resolver. Parsing
// fails fast at startup if the SDL and resolver method set ever drift
// apart, rather than surfacing as a runtime field-resolution error.
func NewSchema(st *store.Store, cfg *config.Config, log logger.Logger) (*graphqlgo.Schema, *resolvers.Root, error) {
	root := resolvers.New(st, cfg, log)
	schema, err := graphqlgo.ParseSchema(gqlschema.Schema, root,
		graphqlgo.UseFieldResolvers(),
	)
	if err != nil {
		return nil, nil, err
	}
	return schema, root, nil
}

// NewHandler builds the HTTP handler serving both ordinary query/mutation
// requests (via relay.Handler) and the onBlock subscription (via the
// graphql-transport-ws protocol), with CORS applied the way the teacher's
// own API server wraps its handler.
func NewHandler(schema *graphqlgo.Schema, allowedOrigins []string) http.Handler {
	queryHandler := &relay.Handler{Schema: schema}
	wsHandler := graphqlws.NewHandlerFunc(schema, queryHandler)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(wsHandler)
}
