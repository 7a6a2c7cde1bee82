package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/authsession/internal/devidp/domain"
	"github.com/aussiebroadwan/authsession/internal/devidp/service"
	"github.com/aussiebroadwan/authsession/internal/devidp/store"
)

// DefaultClientID is the client registered when none are configured. Its
// redirect URIs match the authsession CLI loopback defaults.
const DefaultClientID = "authsession-cli"

func DefaultClients() []SeedClient {
	return []SeedClient{{
		ID:   DefaultClientID,
		Name: "authsession CLI",
		RedirectURIs: []string{
			"http://127.0.0.1:8085/callback",
			"http://127.0.0.1:8085/",
		},
	}}
}

func DefaultUsers() []SeedUser {
	return []SeedUser{{
		Username: "demo",
		Password: "demo",
		Name:     "Demo User",
		Email:    "demo@example.com",
	}}
}

// seed loads the configured clients and users into st.
func seed(ctx context.Context, st store.Store, login *service.LoginService, clients []SeedClient, users []SeedUser) error {
	for _, c := range clients {
		err := st.Clients().CreateClient(ctx, domain.Client{
			ID:           c.ID,
			Name:         c.Name,
			RedirectURIs: c.RedirectURIs,
			Audiences:    c.Audiences,
			Scopes:       c.Scopes,
		})
		if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("seed client %s: %w", c.ID, err)
		}
	}
	for _, u := range users {
		_, err := login.CreateUser(ctx, u.Username, u.Password, u.Name, u.Email)
		if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}
	return nil
}
