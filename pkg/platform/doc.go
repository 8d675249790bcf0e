// Package platform is the core of a multi-tenant content platform. Tenants
// publish stories, media and events through their own administrators, and a
// platform administrator moderates that content before it becomes public.
//
// The package decides who may act on which resource (guard.go,
// ownership.go), what lifecycle state a resource may be in (moderation.go)
// and how failures are classified (errors.go). Service ties those rules to a
// pluggable Repository, SessionStore, BlobStore and Mailer; implementations
// live in the repo, session, storage and mail subpackages.
//
// Approval and publication are independent axes. Public reads always require
// both approved and published, so neither flag alone exposes a resource.
package platform
