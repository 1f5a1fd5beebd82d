// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package graphql implements the dynamic CRUD surface of spec.md section 6:
// subscriber-scoped queries over owned entities plus the named mutations
// credential3rdCheckAvailable, subscriptionSyncOneFeedsIncremental/Full/Sources,
// subscriberTaskRetryOne, systemTaskRetryOne, systemTaskCreateOne. Grounded
// on _examples/other_examples/manifests/ethereum-go-ethereum/go.mod, which
// carries the same github.com/graph-gophers/graphql-go dependency for its
// own schema-first, hand-written-resolver GraphQL API (see DESIGN.md
// "Boundary glue").
package graphql

// Schema is the GraphQL SDL served by this package. Every field here is
// backed by a hand-written resolver method in resolvers.go; there is no
// code generation step.
const Schema = `
schema {
	query: Query
	mutation: Mutation
}

type Query {
	me: Subscriber!
	subscriptions: [Subscription!]!
	subscription(id: Int!): Subscription
	bangumis: [Bangumi!]!
	episodes(subscriptionId: Int!): [Episode!]!
	credentials: [Credential3rd!]!
	subscriberTasks(limit: Int): [Task!]!
	systemTasks(limit: Int): [Task!]!
	crons: [Cron!]!
}

type Mutation {
	credential3rdCreate(input: Credential3rdCreateInput!): Credential3rd!
	credential3rdUpdate(id: Int!, input: Credential3rdUpdateInput!): Credential3rd!
	credential3rdDelete(id: Int!): Boolean!
	credential3rdCheckAvailable(id: Int!): Boolean!

	subscriptionCreate(input: SubscriptionCreateInput!): Subscription!
	subscriptionDelete(id: Int!): Boolean!
	subscriptionSyncOneFeedsIncremental(id: Int!): Boolean!
	subscriptionSyncOneFeedsFull(id: Int!): Boolean!
	subscriptionSyncOneSources(id: Int!): Boolean!

	subscriberTaskRetryOne(id: String!): Task!
	systemTaskRetryOne(id: String!): Task!
	systemTaskCreateOne(input: SystemTaskCreateInput!): Task!
}

type Subscriber {
	id: Int!
	pid: String!
	displayName: String!
}

type Subscription {
	id: Int!
	subscriberId: Int!
	category: String!
	displayName: String!
	sourceUrl: String!
	enabled: Boolean!
	credentialId: Int
}

type Bangumi {
	id: Int!
	subscriberId: Int!
	mikanBangumiId: String
	mikanFansubId: String
	displayName: String!
	rawName: String!
	season: Int!
	fansub: String
	rssLink: String
	posterLink: String
	homepage: String
}

type Episode {
	id: Int!
	subscriberId: Int!
	bangumiId: Int!
	displayName: String!
	rawName: String!
	season: Int!
	episodeIndex: Int!
	resolution: String
	fansub: String
	source: String
	homepage: String
	enclosureMagnetLink: String
	enclosureTorrentLink: String
}

type Credential3rd {
	id: Int!
	subscriberId: Int!
	credentialType: String!
	userAgent: String
}

type Task {
	id: String!
	jobType: String!
	status: String!
	attempts: Int!
	maxAttempts: Int!
	lastError: String
	subscriberId: Int
	subscriptionId: Int
	taskType: String
}

type Cron {
	id: Int!
	cronSource: String!
	cronExpr: String!
	enabled: Boolean!
	status: String!
	attempts: Int!
	maxAttempts: Int!
}

input Credential3rdCreateInput {
	credentialType: String!
	cookies: String
	username: String
	password: String
	userAgent: String
}

input Credential3rdUpdateInput {
	cookies: String
	username: String
	password: String
	userAgent: String
}

input SubscriptionCreateInput {
	category: String!
	displayName: String!
	sourceUrl: String!
	enabled: Boolean
	credentialId: Int
}

input SystemTaskCreateInput {
	sourcePath: String!
	targetPath: String!
	format: String!
	quality: Int
}
`
