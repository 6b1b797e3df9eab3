package securitylog

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// suspiciousThreshold is the failed-login count per source address that
// flags it in stats.
const suspiciousThreshold = 5

// Service is the audit-log facade. Log is best-effort: a write failure is
// recorded server-side and never propagated, so the operation being audited
// cannot be aborted by its own audit trail.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Log appends an event. Defaults status to success, severity to info.
func (s *Service) Log(ctx context.Context, e Entry) {
	if e.Status == "" {
		e.Status = StatusSuccess
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	if err := s.repo.Append(ctx, &e); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", e.EventType).
			Msg("security log append failed")
	}
}

func (s *Service) Recent(ctx context.Context, limit int, f Filter) ([]*Entry, error) {
	return s.repo.Recent(ctx, limit, f)
}

func (s *Service) FailedLogins(ctx context.Context, username string, window time.Duration) ([]*Entry, error) {
	return s.repo.FailedLogins(ctx, username, time.Now().Add(-window))
}

func (s *Service) ActivityForUser(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	return s.repo.ActivityForUser(ctx, userID, limit)
}

// SuspiciousIPs returns the source addresses with at least five failed
// logins among the given entries.
func SuspiciousIPs(entries []*Entry) []string {
	counts := make(map[string]int)
	for _, e := range entries {
		if e.EventType != EventFailedLogin || e.IPAddress == nil {
			continue
		}
		counts[*e.IPAddress]++
	}
	var ips []string
	for ip, n := range counts {
		if n >= suspiciousThreshold {
			ips = append(ips, ip)
		}
	}
	return ips
}

// Stats summarizes the window: counts by type and severity, failed logins,
// suspicious source addresses, and the most recent critical events.
func (s *Service) Stats(ctx context.Context, window time.Duration) (*Stats, error) {
	entries, err := s.repo.ListSince(ctx, time.Now().Add(-window))
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		WindowHours:      int(window.Hours()),
		TotalEvents:      len(entries),
		EventsByType:     make(map[string]int),
		EventsBySeverity: make(map[string]int),
	}
	for _, e := range entries {
		stats.EventsByType[e.EventType]++
		stats.EventsBySeverity[e.Severity]++
		if e.EventType == EventFailedLogin {
			stats.FailedLogins++
		}
		if e.Severity == SeverityCritical && len(stats.CriticalEvents) < 10 {
			stats.CriticalEvents = append(stats.CriticalEvents, e)
		}
	}
	stats.SuspiciousIPs = SuspiciousIPs(entries)
	return stats, nil
}
