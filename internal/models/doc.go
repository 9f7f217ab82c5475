// Package models defines the entities exchanged with the MagicStream movie API and stored locally.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): JSON payloads of the REST API
//   - [Movie] : Movie with genres, admin review and sentiment [Ranking]
//   - [Genre] : Genre id and name
//   - [Registration], [Credentials] : Account creation and login payloads
//   - [ReviewUpdate], [ReviewResult] : Admin review submission and its ranking
//
// 2. Local state
//   - [Identity] : The logged in user, owned by the auth store and persisted between runs
//   - [CachedMovie] : A [Movie] stored in the local cache
//
// Payloads implement [Model] so callers can validate them before a request is sent.
package models
