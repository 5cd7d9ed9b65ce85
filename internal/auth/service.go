package auth

import (
	"context"

	"account-service/internal/audit"
	"account-service/pkg/logger"
)

// EventRecorder receives best-effort security events.
type EventRecorder interface {
	Record(ctx context.Context, e audit.Event)
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, audit.Event) {}

// Service is the login and refresh flow used by the HTTP layer. Throttle
// failures fail open so a Redis outage never locks everybody out.
type Service struct {
	verifier *CredentialVerifier
	issuer   *Issuer
	throttle LoginThrottle
	events   EventRecorder
}

func NewService(verifier *CredentialVerifier, issuer *Issuer, throttle LoginThrottle, events EventRecorder) *Service {
	if throttle == nil {
		throttle = NoopThrottle{}
	}
	if events == nil {
		events = noopRecorder{}
	}
	return &Service{verifier: verifier, issuer: issuer, throttle: throttle, events: events}
}

func (s *Service) Login(ctx context.Context, username, password, clientIP string) (TokenPair, error) {
	log := logger.From(ctx)

	blocked, err := s.throttle.Blocked(ctx, username)
	if err != nil {
		log.Warn("login throttle unavailable", "err", err)
	}
	if blocked {
		s.events.Record(ctx, audit.Event{Type: audit.EventTypeLoginThrottled, IPAddress: clientIP})
		return TokenPair{}, ErrTooManyAttempts
	}

	p, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		if ferr := s.throttle.RecordFailure(ctx, username); ferr != nil {
			log.Warn("login throttle unavailable", "err", ferr)
		}
		s.events.Record(ctx, audit.Event{Type: audit.EventTypeLoginFailed, IPAddress: clientIP})
		return TokenPair{}, err
	}

	if err := s.throttle.Reset(ctx, username); err != nil {
		log.Warn("login throttle unavailable", "err", err)
	}

	pair, err := s.issuer.IssueTokenPair(p)
	if err != nil {
		return TokenPair{}, err
	}
	log.Info("login succeeded", "user_id", p.ID)
	s.events.Record(ctx, audit.Event{Type: audit.EventTypeLoginSucceeded, ActorUserID: p.ID, IPAddress: clientIP})
	return pair, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken, clientIP string) (TokenPair, error) {
	pair, p, err := s.issuer.Refresh(ctx, refreshToken)
	if err != nil {
		s.events.Record(ctx, audit.Event{Type: audit.EventTypeRefreshFailed, IPAddress: clientIP})
		return TokenPair{}, err
	}
	s.events.Record(ctx, audit.Event{Type: audit.EventTypeTokenRefreshed, ActorUserID: p.ID, IPAddress: clientIP})
	return pair, nil
}
