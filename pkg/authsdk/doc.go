/*
Package authsdk is an HTTP client for a hosted-login identity provider that
speaks the OAuth2 implicit flow with OpenID Connect ID tokens.

# Overview

WebAuth implements session.Provider. It is normally built by a session.Manager
through Factory:

	client, _ := authsdk.NewSessionClient()
	cb := authsdk.NewCallback()

	m, err := session.New(props,
		authsdk.Factory(
			authsdk.WithHTTPClient(client),
			authsdk.WithLocation(cb),
			authsdk.WithNavigator(authsdk.WriterNavigator{W: os.Stdout}),
		),
		session.WithLocation(cb),
	)

BaseURL is derived from the Domain property: "login.example.com" becomes
"https://login.example.com", and a value that already has a scheme is used as
given. Endpoint paths default to /authorize, /userinfo, /v2/logout and
/.well-known/jwks.json. Discover replaces them with the values from the
provider's /.well-known/openid-configuration.

# Redirects

A browser login is a full-page redirect out of the application and back to
the redirect URI with the result in the URL fragment. The package models the
two halves separately:

  - a Navigator performs the outbound redirect. WriterNavigator prints the URL.
    HTTPNavigator follows it headlessly and submits a username and password to
    the provider's login form.
  - a Callback holds the fragment of the inbound redirect. Whatever receives
    the redirect (a loopback server, HTTPNavigator, a test) calls Set.

ParseHash parses the Callback fragment. With WithIDTokenVerifier it verifies
the ID token signature, the nonce of the last Authorize call and at_hash. The
state parameter is passed through to AuthResult.State and is not compared.

# Silent checks

CheckSession sends prompt=none to the authorize endpoint over the shared cookie
jar and does not follow the provider's redirect. The Location fragment of that
302 is the answer. A provider without a session for the user answers
error=login_required, which is returned as an *OAuth2Error whose ErrorCode is
"login_required".

# Errors

Provider errors, from JSON bodies, WWW-Authenticate challenges, or error
fragments, are returned as *OAuth2Error. errors.Is matches on the error code:

	if errors.Is(err, authsdk.ErrLoginRequired) {
		// show the login button
	}

Client-side failures use codes the provider never sends: invalid_hash for a
callback without a result and invalid_response for an unexpected reply.
*/
package authsdk
