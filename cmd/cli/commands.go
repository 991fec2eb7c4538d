package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"

	authv1 "github.com/and161185/authcore/internal/rpc/authv1"
)

var errUsage = errors.New("usage")

// authAPI is the subset of *authv1.AuthClient the commands call.
type authAPI interface {
	Register(ctx context.Context, in *authv1.RegisterRequest, opts ...grpc.CallOption) (*authv1.RegisterResponse, error)
	Login(ctx context.Context, in *authv1.LoginRequest, opts ...grpc.CallOption) (*authv1.TokensResponse, error)
	Refresh(ctx context.Context, in *authv1.RefreshRequest, opts ...grpc.CallOption) (*authv1.TokensResponse, error)
	Logout(ctx context.Context, in *authv1.LogoutRequest, opts ...grpc.CallOption) (*authv1.LogoutResponse, error)
	Whoami(ctx context.Context, in *authv1.WhoamiRequest, opts ...grpc.CallOption) (*authv1.WhoamiResponse, error)
	ListSessions(ctx context.Context, in *authv1.ListSessionsRequest, opts ...grpc.CallOption) (*authv1.ListSessionsResponse, error)
}

type cliApp struct {
	api    authAPI
	out    io.Writer
	secure bool
	now    func() time.Time
}

func (a *cliApp) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "refresh":
		_, err := a.refresh(ctx)
		return err
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "sessions":
		return a.sessions(ctx)
	default:
		return errUsage
	}
}

func credentialFlags(name string, args []string) (email, password string, err error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	e := fs.String("e", "", "email")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return "", "", errUsage
	}
	if *e == "" || *p == "" {
		return "", "", fmt.Errorf("%s: need -e and -p", name)
	}
	return *e, *p, nil
}

func (a *cliApp) register(ctx context.Context, args []string) error {
	email, password, err := credentialFlags("register", args)
	if err != nil {
		return err
	}
	resp, err := a.api.Register(ctx, &authv1.RegisterRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Msg)
	return nil
}

func storeTokens(t *authv1.TokensResponse) error {
	return saveTokens(tokenFile{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshExpiresAt: t.RefreshExpiresAt,
	})
}

func (a *cliApp) login(ctx context.Context, args []string) error {
	email, password, err := credentialFlags("login", args)
	if err != nil {
		return err
	}
	resp, err := a.api.Login(ctx, &authv1.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	if err := storeTokens(resp); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in; session expires %s\n", resp.RefreshExpiresAt.UTC().Format(time.RFC3339))
	return nil
}

// refresh rotates the saved refresh token and persists the new pair.
func (a *cliApp) refresh(ctx context.Context) (tokenFile, error) {
	tf, err := loadTokens()
	if err != nil {
		return tf, err
	}
	if tf.RefreshToken == "" || !a.now().Before(tf.RefreshExpiresAt) {
		return tf, errLoginRequired
	}
	resp, err := a.api.Refresh(ctx, &authv1.RefreshRequest{RefreshToken: tf.RefreshToken})
	if err != nil {
		return tf, err
	}
	if err := storeTokens(resp); err != nil {
		return tf, err
	}
	return loadTokens()
}

func (a *cliApp) logout(ctx context.Context) error {
	tf, err := loadTokens()
	if err != nil {
		return err
	}
	resp, err := a.api.Logout(ctx, &authv1.LogoutRequest{RefreshToken: tf.RefreshToken})
	if err != nil {
		return err
	}
	if err := clearTokens(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Msg)
	return nil
}

// bearer returns per-call credentials, refreshing first when the access token has expired.
func (a *cliApp) bearer(ctx context.Context) (grpc.CallOption, error) {
	tf, err := loadTokens()
	if err != nil {
		return nil, err
	}
	if tf.AccessToken == "" || !a.now().Before(tf.AccessExpiresAt) {
		if tf, err = a.refresh(ctx); err != nil {
			return nil, err
		}
	}
	return grpc.PerRPCCredentials(bearerCreds{token: tf.AccessToken, secure: a.secure}), nil
}

func (a *cliApp) whoami(ctx context.Context) error {
	creds, err := a.bearer(ctx)
	if err != nil {
		return err
	}
	resp, err := a.api.Whoami(ctx, &authv1.WhoamiRequest{}, creds)
	if err != nil {
		return err
	}
	printJSON(a.out, resp)
	return nil
}

func (a *cliApp) sessions(ctx context.Context) error {
	creds, err := a.bearer(ctx)
	if err != nil {
		return err
	}
	resp, err := a.api.ListSessions(ctx, &authv1.ListSessionsRequest{}, creds)
	if err != nil {
		return err
	}
	printJSON(a.out, resp.Sessions)
	return nil
}
