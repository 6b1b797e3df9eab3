package securitylog

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type mockRepo struct {
	entries   []*Entry
	appendErr error
}

func (m *mockRepo) Append(_ context.Context, e *Entry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	e.ID = strconv.Itoa(len(m.entries) + 1)
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRepo) Recent(_ context.Context, limit int, f Filter) ([]*Entry, error) {
	var out []*Entry
	for _, e := range m.entries {
		if f.EventType != "" && e.EventType != f.EventType {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockRepo) FailedLogins(_ context.Context, username string, since time.Time) ([]*Entry, error) {
	var out []*Entry
	for _, e := range m.entries {
		if e.EventType != EventFailedLogin || e.CreatedAt.Before(since) {
			continue
		}
		if username != "" && (e.Username == nil || *e.Username != username) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockRepo) ActivityForUser(_ context.Context, userID string, limit int) ([]*Entry, error) {
	var out []*Entry
	for _, e := range m.entries {
		if e.UserID != nil && *e.UserID == userID {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockRepo) ListSince(_ context.Context, since time.Time) ([]*Entry, error) {
	var out []*Entry
	for _, e := range m.entries {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func failedLogin(ip string) Entry {
	return Entry{
		EventType:        EventFailedLogin,
		EventDescription: "failed login",
		Status:           StatusFailure,
		Severity:         SeverityWarning,
		IPAddress:        &ip,
	}
}

func TestLogDefaults(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, zerolog.Nop())

	svc.Log(context.Background(), Entry{EventType: EventLogin, EventDescription: "ok"})

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.Status != StatusSuccess || e.Severity != SeverityInfo {
		t.Errorf("defaults not applied: %q/%q", e.Status, e.Severity)
	}
}

func TestLogNeverPropagatesAppendFailure(t *testing.T) {
	repo := &mockRepo{appendErr: errors.New("disk full")}
	svc := NewService(repo, zerolog.Nop())

	// Log has no error return at all; this must simply not panic.
	svc.Log(context.Background(), Entry{EventType: EventLogin, EventDescription: "ok"})
}

func TestSuspiciousIPs(t *testing.T) {
	var entries []*Entry
	for i := 0; i < 5; i++ {
		e := failedLogin("10.0.0.9")
		entries = append(entries, &e)
	}
	for i := 0; i < 4; i++ {
		e := failedLogin("10.0.0.2")
		entries = append(entries, &e)
	}
	ok := Entry{EventType: EventLogin}
	entries = append(entries, &ok)

	ips := SuspiciousIPs(entries)
	if len(ips) != 1 || ips[0] != "10.0.0.9" {
		t.Errorf("suspicious = %v, want [10.0.0.9]", ips)
	}
}

func TestStats(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		svc.Log(ctx, failedLogin("203.0.113.7"))
	}
	svc.Log(ctx, Entry{EventType: EventLogin, EventDescription: "ok"})
	svc.Log(ctx, Entry{
		EventType:        EventUserDeleted,
		EventDescription: "account removed",
		Severity:         SeverityCritical,
	})

	stats, err := svc.Stats(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalEvents != 8 {
		t.Errorf("total = %d, want 8", stats.TotalEvents)
	}
	if stats.FailedLogins != 6 {
		t.Errorf("failed = %d, want 6", stats.FailedLogins)
	}
	if stats.EventsByType[EventFailedLogin] != 6 {
		t.Errorf("by type = %d, want 6", stats.EventsByType[EventFailedLogin])
	}
	if len(stats.SuspiciousIPs) != 1 || stats.SuspiciousIPs[0] != "203.0.113.7" {
		t.Errorf("suspicious = %v", stats.SuspiciousIPs)
	}
	if len(stats.CriticalEvents) != 1 {
		t.Errorf("critical = %d, want 1", len(stats.CriticalEvents))
	}
}
