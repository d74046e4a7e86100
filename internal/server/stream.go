package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/foliotrack/foliotrack/internal/modules/prices"
)

// defaultStreamInterval paces live value pushes when none is configured
const defaultStreamInterval = 5 * time.Second

// Stream pushes live portfolio values over a websocket so the dashboard
// chart tip moves without polling
type Stream struct {
	live     *prices.Service
	interval time.Duration
	log      zerolog.Logger
}

// NewStream creates a live value stream
func NewStream(live *prices.Service, interval time.Duration, log zerolog.Logger) *Stream {
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	return &Stream{
		live:     live,
		interval: interval,
		log:      log.With().Str("component", "stream").Logger(),
	}
}

// HandleStream upgrades to a websocket and pushes the owner's live value
// on a fixed interval until the client disconnects
// GET /api/dashboard/stream?owner=X
func (s *Stream) HandleStream(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		http.Error(w, "owner is required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	s.log.Debug().Str("owner", owner).Msg("Stream opened")

	// Push immediately, then on every tick
	if err := s.push(ctx, conn, owner); err != nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.push(ctx, conn, owner); err != nil {
				s.log.Debug().Err(err).Str("owner", owner).Msg("Stream closed")
				return
			}
		}
	}
}

func (s *Stream) push(ctx context.Context, conn *websocket.Conn, owner string) error {
	cv, err := s.live.CurrentValue(owner, time.Now())
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, conn, cv)
}
