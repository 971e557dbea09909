// Package lectionary subscribes to the stream of scraped lectionary pages and
// runs each one through the matcher, which warms the match cache before users
// ask for the day's postily.
package lectionary

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackmichael/postily/internal/domain"
)

const defaultBackoff = 5 * time.Second

// Matcher finds postily for a lectionary page.
type Matcher interface {
	FindMatches(ctx context.Context, markdown string) ([]domain.MatchResult, error)
}

// Subscriber connects to the readings feed and processes events.
type Subscriber struct {
	url     string
	matcher Matcher
	logger  *slog.Logger
	backoff time.Duration

	// onMatches, if set, observes every processed readings event.
	onMatches func(date string, matches []domain.MatchResult)
}

// NewSubscriber creates a new readings feed subscriber.
func NewSubscriber(feedURL string, matcher Matcher, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		url:     feedURL,
		matcher: matcher,
		logger:  logger,
		backoff: defaultBackoff,
	}
}

// Start connects to the feed and processes events until the context is
// cancelled. It reconnects after connection errors.
func (s *Subscriber) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.subscribe(ctx); err != nil {
				s.logger.Error("readings feed connection error, reconnecting", "error", err, "backoff", s.backoff)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(s.backoff):
				}
			}
		}
	}
}

func (s *Subscriber) buildURL() (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	q := u.Query()
	q.Set("kinds", kindReadings)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	wsURL, err := s.buildURL()
	if err != nil {
		return err
	}
	s.logger.Info("connecting to readings feed", "url", wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial readings feed: %w", err)
	}
	defer conn.Close()

	// ReadMessage does not observe ctx; closing the connection unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.logger.Info("connected to readings feed")

	var eventsReceived, readingsProcessed, postilyMatched int64
	lastStatsLog := time.Now()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message: %w", err)
		}

		ev, err := parseEvent(message)
		if err != nil {
			s.logger.Error("failed to parse event", "error", err)
			continue
		}
		eventsReceived++

		if ev.Kind == kindReadings {
			n, err := s.handleReadings(ctx, ev)
			if err != nil {
				s.logger.Error("failed to match readings", "date", ev.Date, "error", err)
			} else {
				readingsProcessed++
				postilyMatched += int64(n)
			}
		}

		if time.Since(lastStatsLog) >= 30*time.Second {
			s.logger.Info("readings feed stats",
				"events_received", eventsReceived,
				"readings_processed", readingsProcessed,
				"postily_matched", postilyMatched,
			)
			lastStatsLog = time.Now()
		}
	}
}

func (s *Subscriber) handleReadings(ctx context.Context, ev *event) (int, error) {
	matches, err := s.matcher.FindMatches(ctx, ev.Markdown)
	if err != nil {
		return 0, err
	}

	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, fmt.Sprintf("%d. %s", m.PostilNumber, m.Title))
	}
	s.logger.Info("matched readings",
		"date", ev.Date,
		"source", ev.Source,
		"matches", len(matches),
		"postily", titles,
	)

	if s.onMatches != nil {
		s.onMatches(ev.Date, matches)
	}
	return len(matches), nil
}
