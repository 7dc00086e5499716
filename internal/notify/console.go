package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// ConsoleAlerter prints alerts to a terminal.
type ConsoleAlerter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleAlerter writes to out, or stdout when nil.
func NewConsoleAlerter(out io.Writer) *ConsoleAlerter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleAlerter{out: out}
}

func (a *ConsoleAlerter) Alert(ctx context.Context, al Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	stamp := al.Event.CreatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	title := color.New(color.FgRed, color.Bold).Sprint(al.Title)
	_, err := fmt.Fprintf(a.out, "%s %s: %s\n", stamp.Local().Format("15:04:05"), title, al.Message)
	return err
}

// LogScheduler records notifications in the log and keeps the badge in memory.
type LogScheduler struct {
	log *slog.Logger

	mu        sync.Mutex
	badge     int
	scheduled []Notification
}

func NewLogScheduler(log *slog.Logger) *LogScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &LogScheduler{log: log}
}

func (s *LogScheduler) Schedule(ctx context.Context, n Notification) error {
	s.mu.Lock()
	s.scheduled = append(s.scheduled, n)
	s.mu.Unlock()

	s.log.Info("notification.scheduled",
		"title", n.Title,
		"body", n.Body,
		"channel", n.ChannelID,
		"priority", n.Priority,
		"device_mac", n.Data.DeviceMac,
		"screen", n.Data.Screen,
	)
	return nil
}

func (s *LogScheduler) BadgeCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.badge, nil
}

func (s *LogScheduler) SetBadgeCount(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("badge count must not be negative: %d", n)
	}
	s.mu.Lock()
	s.badge = n
	s.mu.Unlock()
	s.log.Debug("notification.badge", "count", n)
	return nil
}

// Scheduled returns a copy of every notification scheduled so far.
func (s *LogScheduler) Scheduled() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.scheduled...)
}
