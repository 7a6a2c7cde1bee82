/*
Package session manages client-side authentication state on top of a pluggable
identity-provider client.

# Overview

A Manager owns four pieces of in-memory state:

  - a token cache keyed by audience, with a distinguished default slot
  - the identity token from the most recent authentication
  - the user profile loaded from the provider's userinfo endpoint
  - a registry of listeners notified whenever the authentication state changes

All network and redirect work is delegated to a Provider. The package ships no
provider of its own; pkg/authsdk implements one over HTTP, and tests use fakes.

	m, err := session.New(session.Properties{
		Domain:      "login.example.com",
		ClientID:    "abc",
		RedirectURI: "https://app.example.com/callback",
	}, authsdk.Factory(authsdk.WithLocation(cb)), session.WithLocation(cb))

	// On the page (or handler) that receives the provider redirect:
	profile, err := m.ParseHash(ctx)

	// Later, silently re-check the provider session for an API audience:
	ok, err := m.CheckSession(ctx, "urn:api", "")

# Token cache

The first token of a session always seeds the default slot. Audience-scoped
tokens never overwrite an existing default, so whenever an audience entry is
present a default entry is present too. Entries are replaced whole, never
mutated, and nothing expires them on a timer: AccessToken returns whatever is
cached and callers check Token(...).ExpiresAt themselves.

IsAuthenticated is a presence check unless the manager is built with
WithExpiryPolicy(RequireUnexpired).

# Errors

Errors returned by the provider are passed through as-is, so callers can use
errors.As against the provider's own error type. The single exception is the
"login_required" outcome of CheckSession, which is reported as (false, nil).

# Concurrency

ParseHash and CheckSession are serialized against each other; a second flow
waits for the first to finish instead of interleaving writes to the cache.
Readers never block on a running flow. Listeners run synchronously after the
state change is committed, outside of any lock, and a panicking listener is
recovered and logged without affecting the others.
*/
package session
