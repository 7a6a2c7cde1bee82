package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
	"github.com/aussiebroadwan/authsession/pkg/session"
)

// flow is one Manager wired to a WebAuth provider. The HTTP client and
// callback are shared so navigators can reuse the provider session.
type flow struct {
	manager  *session.Manager
	web      *authsdk.WebAuth
	client   *http.Client
	callback *authsdk.Callback
}

type navigatorFactory func(client *http.Client, cb *authsdk.Callback) authsdk.Navigator

func (c *cliContext) properties(audience string) session.Properties {
	return session.Properties{
		Domain:      c.cfg.Domain,
		ClientID:    c.cfg.ClientID,
		RedirectURI: c.cfg.RedirectURI,
		Audience:    audience,
		Scope:       c.cfg.Scope,
		ReturnTo:    c.cfg.ReturnTo,
	}
}

// newFlow builds the provider client, discovering endpoints and loading the
// signing keys unless verification is disabled.
func (c *cliContext) newFlow(ctx context.Context, audience string, nav navigatorFactory) (*flow, error) {
	client, err := authsdk.NewSessionClient()
	if err != nil {
		return nil, err
	}
	cb := authsdk.NewCallback()
	props := c.properties(audience)

	opts := []authsdk.Option{
		authsdk.WithHTTPClient(client),
		authsdk.WithLocation(cb),
		authsdk.WithLogger(c.logger),
	}
	if nav != nil {
		opts = append(opts, authsdk.WithNavigator(nav(client, cb)))
	}

	keys := jwtx.NewKeySet()
	verifyOpts := jwtx.VerifyOptions{Audience: []string{props.ClientID}}
	verifier := &discoveredVerifier{v: jwtx.NewVerifierEdDSA(keys, verifyOpts)}
	if !c.cfg.SkipVerify {
		opts = append(opts, authsdk.WithIDTokenVerifier(verifier))
	}

	web, err := authsdk.NewWebAuth(session.ProviderConfig{Properties: props}, opts...)
	if err != nil {
		return nil, err
	}

	if doc, err := web.Discover(ctx); err != nil {
		c.logger.Debug("discovery failed, using default endpoints", "error", err)
	} else {
		verifyOpts.Issuer = doc.Issuer
		verifier.v = jwtx.NewVerifierEdDSA(keys, verifyOpts)
	}
	if !c.cfg.SkipVerify {
		if err := web.RefreshKeySet(ctx, keys); err != nil {
			return nil, fmt.Errorf("failed to load provider keys (use --skip-verify to ignore): %w", err)
		}
	}

	m, err := session.New(props, session.StaticProvider(web),
		session.WithLocation(cb),
		session.WithLogger(c.logger),
	)
	if err != nil {
		return nil, err
	}
	return &flow{manager: m, web: web, client: client, callback: cb}, nil
}

// discoveredVerifier lets the issuer check be filled in after discovery,
// once the provider client already holds the verifier.
type discoveredVerifier struct {
	v jwtx.Verifier
}

func (d *discoveredVerifier) Verify(token string) (jwtx.Claims, error) {
	return d.v.Verify(token)
}
