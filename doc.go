// Package familysearch provides a discovery-driven client for the FamilySearch
// hypermedia REST API:
//
//   - One discovery document per Client, fetched lazily and shared by concurrent callers
//   - Named operations resolved from discovery links ("person", "ancestry-query", ...)
//   - URI template validation and expansion (path variables inlined, query groups returned as parameters)
//   - Explicit request pipeline: auth injection, status classification, body decoding
//   - Strict redirect following, optional rate limiting, Prometheus metrics and hclog debug logging
//
// Callers never hard-code endpoint URLs. They name a link and supply only the
// variable parts:
//
//	client := familysearch.New(
//	    familysearch.WithEnvironment(familysearch.Sandbox),
//	    familysearch.WithDeveloperKey(key),
//	)
//	if _, err := client.Authenticate(ctx, username, password); err != nil {
//	    return err
//	}
//	resp, err := client.Operation(familysearch.LinkPerson).Get(ctx, familysearch.Values{"pid": "KWQX-52J"})
//
// Failures are classified, never retried: ErrBadCredentials for 401,
// ErrClientError for any other 4xx/5xx, and ErrTemplateNotFound,
// ErrMethodNotAllowed or ErrUnknownTemplateVariable before anything is sent.
// Response bodies arrive as a tagged Body; narrow it with Mapping, Feed,
// Sequence, Scalar or Bytes.
package familysearch
