// Package acl is the anti-corruption layer between quotekeeper and the mock
// REST endpoint it syncs with.
//
// The remote speaks in "posts" ({userId, id, title, body}). Nothing outside
// this package sees that shape: responses are decoded into unexported DTOs,
// translated into [domain.Quote] values, and every transport or status failure
// is mapped onto a domain error, almost always [domain.ErrUnavailable].
//
// Failure mapping:
//
//   - circuit open, retries exhausted, network errors → [domain.ErrUnavailable]
//   - 5xx and 429 → [domain.ErrUnavailable]
//   - 400 and 422 → [domain.ErrValidation]
//   - any other non-2xx → [domain.ErrUnavailable]
package acl
