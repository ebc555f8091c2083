package sheets

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// CredentialsFunc returns the service account JSON key used to authenticate.
type CredentialsFunc func(ctx context.Context) ([]byte, error)

// Session owns the Sheets API client. The client is built on first use and
// rebuilt after Invalidate.
type Session struct {
	creds CredentialsFunc
	opts  []option.ClientOption

	mu  sync.Mutex
	svc *sheets.Service
}

// NewSession returns a session that authenticates with creds. A nil creds
// leaves authentication to opts.
func NewSession(creds CredentialsFunc, opts ...option.ClientOption) *Session {
	return &Session{
		creds: creds,
		opts:  opts,
	}
}

// Service returns the client, creating it if needed.
func (s *Session) Service(ctx context.Context) (*sheets.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.svc != nil {
		return s.svc, nil
	}

	opts := append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, s.opts...)
	if s.creds != nil {
		data, err := s.creds(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentialsJSON(data))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	s.svc = svc
	return svc, nil
}

// Invalidate drops the client; the next call to Service builds a new one.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.svc = nil
	s.mu.Unlock()
}

// Active reports whether a client is currently held.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.svc != nil
}
