package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cartKeyPrefix = "cart:"

// RedisPort persists carts as JSON arrays keyed "cart:<session>".
// The stored shape matches the web client's local-storage record so a
// cart written by either side round-trips.
type RedisPort struct {
	Client *redis.Client
	TTL    time.Duration
	Log    zerolog.Logger
}

func (p RedisPort) ttl() time.Duration {
	if p.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return p.TTL
}

// Load reads and decodes the persisted cart. A missing key yields an
// empty cart; an unparseable payload is discarded with a warning
// rather than surfaced as an error.
func (p RedisPort) Load(ctx context.Context, sessionID string) ([]Line, error) {
	if p.Client == nil || sessionID == "" {
		return []Line{}, nil
	}
	data, err := p.Client.Get(ctx, cartKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Line{}, nil
		}
		return nil, err
	}
	lines, ok := DecodeLines(data)
	if !ok {
		p.Log.Warn().Str("session_id", sessionID).Msg("discarding corrupt cart payload")
		return []Line{}, nil
	}
	return lines, nil
}

// Save serialises the full line list and refreshes the cart TTL.
func (p RedisPort) Save(ctx context.Context, sessionID string, lines []Line) error {
	if p.Client == nil {
		return errors.New("cart redis client not configured")
	}
	if sessionID == "" {
		return ErrInvalidInput
	}
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return p.Client.Set(ctx, cartKeyPrefix+sessionID, data, p.ttl()).Err()
}

// DecodeLines parses a persisted cart payload, reporting whether the
// payload was usable. Lines with a non-positive quantity or product id
// are dropped during decode.
func DecodeLines(data []byte) ([]Line, bool) {
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, false
	}
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ProductID <= 0 || l.Quantity < 1 {
			continue
		}
		out = append(out, l)
	}
	return out, true
}

// MemPort is an in-memory Port used by tests and local development.
type MemPort struct {
	mu    sync.Mutex
	carts map[string][]Line
}

// Load implements Port.
func (p *MemPort) Load(_ context.Context, sessionID string) ([]Line, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stored := p.carts[sessionID]
	out := make([]Line, len(stored))
	copy(out, stored)
	return out, nil
}

// Save implements Port.
func (p *MemPort) Save(_ context.Context, sessionID string, lines []Line) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.carts == nil {
		p.carts = map[string][]Line{}
	}
	stored := make([]Line, len(lines))
	copy(stored, lines)
	p.carts[sessionID] = stored
	return nil
}
