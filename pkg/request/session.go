// Package request sends block trees of any size and depth to the API.
//
// The API caps every request: at most MaxSliceCount blocks per children
// array, MaxCallNodeTotal blocks in total, MaxDepth levels of nesting and
// MaxPayloadBytes of body. A Session splits content into requests that
// respect those caps, holds back the descendants that do not fit, and
// appends them once the API has returned the ids of their parents.
//
// # Usage
//
//	client, _ := notionapi.NewClient(cfg, logger)
//	session, _ := request.NewSession(client, request.WithLogger(logger))
//
//	result, err := session.CreatePage(ctx, &request.PageRequest{
//		Parent:     request.PageParent(parentID),
//		Properties: request.TitleProperty("Release notes"),
//		Children:   blocks,
//	})
//
// # Concurrency
//
// A Session runs one operation at a time. Every request is awaited before
// the next one is issued, so sibling order on the remote side matches the
// input. The call counter and accumulated responses live on the Session and
// are reset by each top-level CreatePage or Append; use one Session per
// goroutine.
package request

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp-forge/pagewright/pkg/block"
	"github.com/hashicorp-forge/pagewright/pkg/limits"
)

var (
	// ErrProtocolMismatch reports a response whose results do not line up
	// with the submitted blocks.
	ErrProtocolMismatch = errors.New("response does not match request")

	// ErrAnchorLost reports that the id needed to keep inserting after the
	// previous slice is missing from a response.
	ErrAnchorLost = errors.New("insertion anchor lost")

	// ErrUnsplittable reports content that cannot be divided into valid
	// requests with the capabilities the session has.
	ErrUnsplittable = fmt.Errorf("%w: content cannot be split", block.ErrInvalidStructure)

	// ErrMissingParent reports a page request without a usable parent.
	ErrMissingParent = fmt.Errorf("%w: missing parent reference", block.ErrInvalidStructure)
)

// Session runs the append and create-page protocols against a Transport.
type Session struct {
	transport Transport
	lister    ChildLister
	policy    limits.Policy
	logger    hclog.Logger
	results   ResultsFunc
	createdID CreatedIDFunc

	// Per-operation state, reset by every top-level call.
	calls     int
	responses []json.RawMessage
	problems  *multierror.Error
}

// Option configures a Session.
type Option func(*Session)

// WithPolicy sets the budgets content is split under. Unset fields take the
// API defaults.
func WithPolicy(p limits.Policy) Option {
	return func(s *Session) {
		s.policy = p.WithDefaults()
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithResultsFunc overrides how results are read from append responses.
func WithResultsFunc(fn ResultsFunc) Option {
	return func(s *Session) {
		if fn != nil {
			s.results = fn
		}
	}
}

// WithCreatedIDFunc overrides how the page id is read from create
// responses.
func WithCreatedIDFunc(fn CreatedIDFunc) Option {
	return func(s *Session) {
		if fn != nil {
			s.createdID = fn
		}
	}
}

// WithChildLister sets the lister used to resolve nested ids. By default the
// transport is used when it implements ChildLister.
func WithChildLister(l ChildLister) Option {
	return func(s *Session) {
		s.lister = l
	}
}

// NewSession returns a Session sending requests through t.
func NewSession(t Transport, opts ...Option) (*Session, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}

	s := &Session{
		transport: t,
		policy:    limits.Default(),
		logger:    hclog.NewNullLogger(),
		results:   DefaultResults,
		createdID: DefaultCreatedID,
	}
	if l, ok := t.(ChildLister); ok {
		s.lister = l
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	s.logger = s.logger.Named("request")

	return s, nil
}

// Policy returns the budgets the session splits content under.
func (s *Session) Policy() limits.Policy {
	return s.policy
}

// APICallCount returns the number of requests made by the current or last
// operation.
func (s *Session) APICallCount() int {
	return s.calls
}

func (s *Session) reset() {
	s.calls = 0
	s.responses = nil
	s.problems = nil
}

// mismatch records a localized protocol problem.
func (s *Session) mismatch(format string, args ...any) {
	err := fmt.Errorf("%w: %s", ErrProtocolMismatch, fmt.Sprintf(format, args...))
	s.logger.Warn("skipping deferred content", "error", err)
	s.problems = multierror.Append(s.problems, err)
}
