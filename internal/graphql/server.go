// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package graphql

import (
	"net/http"

	gogql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
)

// NewHandler parses Schema against resolver and returns the mounted
// GraphQL-over-HTTP endpoint (POST /graphql), following the relay.Handler
// convention shipped by graph-gophers/graphql-go itself — no separate web
// framework adapter needed since the caller just mounts this at a chi route.
func NewHandler(resolver *Resolver) (http.Handler, error) {
	schema, err := gogql.ParseSchema(Schema, resolver, gogql.UseFieldResolvers())
	if err != nil {
		return nil, err
	}
	return &relay.Handler{Schema: schema}, nil
}
