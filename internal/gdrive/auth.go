package gdrive

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/int128/oauth2cli"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"

	"github.com/gdfetch/gdfetch/internal/logging"
)

// Auth selects how requests are authorized. An API key takes precedence
// over the OAuth client secret file and only reaches shared items.
type Auth struct {
	CredentialsFile string
	APIKey          string
	// RedirectPort is the loopback port of the consent redirect; 0 picks
	// a free one.
	RedirectPort int
	// Consent is given the local URL the user has to open. By default it
	// is printed to stderr and opened in a browser.
	Consent func(localURL string)
}

// Connect authorizes base and returns a Drive session using it.
func Connect(ctx context.Context, auth Auth, base *http.Client, opts ...option.ClientOption) (*Client, error) {
	hc, err := authorize(ctx, auth, base)
	if err != nil {
		return nil, err
	}
	svc, err := drive.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(hc)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return NewClient(svc), nil
}

func authorize(ctx context.Context, auth Auth, base *http.Client) (*http.Client, error) {
	if auth.APIKey != "" {
		return &http.Client{
			Transport: &transport.APIKey{Key: auth.APIKey, Transport: base.Transport},
		}, nil
	}

	data, err := os.ReadFile(auth.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading credentials file: %w", ErrCredentials, err)
	}
	conf, err := google.ConfigFromJSON(data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentials, err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	tok, err := consent(ctx, conf, auth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentials, err)
	}
	return conf.Client(ctx, tok), nil
}

// consent runs the installed-app flow with PKCE: the browser is sent
// through a server on the loopback interface to the consent page, and the
// code comes back to the same server.
func consent(ctx context.Context, conf *oauth2.Config, auth Auth) (*oauth2.Token, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	show := auth.Consent
	if show == nil {
		show = openBrowser
	}
	verifier := oauth2.GenerateVerifier()
	ready := make(chan string, 1)
	cfg := oauth2cli.Config{
		OAuth2Config:           *conf,
		RedirectURLHostname:    "127.0.0.1",
		LocalServerBindAddress: []string{fmt.Sprintf("127.0.0.1:%d", auth.RedirectPort)},
		LocalServerReadyChan:   ready,
		LocalServerSuccessHTML: successHTML,
		AuthCodeOptions:        []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)},
		TokenRequestOptions:    []oauth2.AuthCodeOption{oauth2.VerifierOption(verifier)},
		Logf:                   logging.S().Debugf,
	}

	var tok *oauth2.Token
	var eg errgroup.Group
	eg.Go(func() error {
		select {
		case u := <-ready:
			show(u)
		case <-ctx.Done():
		}
		return nil
	})
	eg.Go(func() error {
		defer cancel()
		var err error
		tok, err = oauth2cli.GetToken(ctx, cfg)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("authorizing: %w", err)
	}
	return tok, nil
}

const successHTML = `<html><body>Authorization complete. You can close this window.</body></html>`

// openBrowser prints localURL and tries to open it. The URL is enough on a
// machine without a browser.
func openBrowser(localURL string) {
	fmt.Fprintf(os.Stderr, "Open the following URL in your browser to authorize access to Google Drive:\n\n%s\n\n", localURL)
	browser.Stdout = os.Stderr
	if err := browser.OpenURL(localURL); err != nil {
		logging.Debug("opening browser failed", logging.Err(err))
	}
}
