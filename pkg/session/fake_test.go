package session_test

import (
	"context"
	"sync"

	"github.com/aussiebroadwan/authsession/pkg/session"
)

// codeError mimics a provider error that carries an OAuth code.
type codeError struct {
	code string
}

func (e *codeError) Error() string     { return "provider: " + e.code }
func (e *codeError) ErrorCode() string { return e.code }

type fakeProvider struct {
	mu sync.Mutex

	hashResult  *session.AuthResult
	hashErr     error
	checkResult *session.AuthResult
	checkErr    error
	profile     session.Profile
	userInfoErr error

	authorizeCalls []session.AuthorizeOptions
	logoutCalls    []session.LogoutOptions
	checkCalls     []session.CheckSessionOptions
	userInfoTokens []string

	// onCheck runs inside CheckSession before it returns.
	onCheck func()
}

func (f *fakeProvider) Authorize(_ context.Context, opts session.AuthorizeOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorizeCalls = append(f.authorizeCalls, opts)
	return nil
}

func (f *fakeProvider) Logout(_ context.Context, opts session.LogoutOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls = append(f.logoutCalls, opts)
	return nil
}

func (f *fakeProvider) ParseHash(context.Context) (*session.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hashResult, f.hashErr
}

func (f *fakeProvider) CheckSession(_ context.Context, opts session.CheckSessionOptions) (*session.AuthResult, error) {
	f.mu.Lock()
	f.checkCalls = append(f.checkCalls, opts)
	res, err, hook := f.checkResult, f.checkErr, f.onCheck
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return res, err
}

func (f *fakeProvider) UserInfo(_ context.Context, accessToken string) (session.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userInfoTokens = append(f.userInfoTokens, accessToken)
	if f.userInfoErr != nil {
		return nil, f.userInfoErr
	}
	return f.profile.Clone(), nil
}

func (f *fakeProvider) userInfoCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.userInfoTokens)
}

type fakeLocation struct {
	fragment string
	cleared  int
}

func (l *fakeLocation) Fragment() string { return l.fragment }
func (l *fakeLocation) ClearFragment() {
	l.fragment = ""
	l.cleared++
}
