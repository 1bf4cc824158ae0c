package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
)

// Redis key layout:
//
//	queue:waiting:{concertID} → ZSET  { token: score(epochMillis) }
//	queue:active:{concertID}  → SET   { token }
//	queue:token:{token}       → HASH  { userId, concertId, status, score, expiresAt, createdAt }
const (
	waitingKeyPrefix = "queue:waiting:"
	activeKeyPrefix  = "queue:active:"
	tokenKeyPrefix   = "queue:token:"
)

// tokenHashRetention keeps the token hash readable for a while after its
// logical expiry so status queries on stale tokens still answer EXPIRED
// instead of not-found.
const tokenHashRetention = time.Hour

// RedisTokenStore is the production TokenStore. Set membership changes are
// pipelined so a token never observes itself in both sets, and ZADD's
// score ordering provides the strict FIFO rank.
type RedisTokenStore struct {
	rdb *redis.Client
}

// NewRedisTokenStore returns a RedisTokenStore bound to the given client.
func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func waitingKey(concertID uint64) string { return waitingKeyPrefix + strconv.FormatUint(concertID, 10) }
func activeKey(concertID uint64) string  { return activeKeyPrefix + strconv.FormatUint(concertID, 10) }
func tokenKey(token string) string       { return tokenKeyPrefix + token }

// Save writes the token hash and moves the token into the set matching its
// status, removing it from the other. All commands ride one pipeline.
func (s *RedisTokenStore) Save(ctx context.Context, t *model.QueueToken) error {
	key := tokenKey(t.Token)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"userId":    strconv.FormatUint(t.UserID, 10),
		"concertId": strconv.FormatUint(t.ConcertID, 10),
		"status":    string(t.Status),
		"score":     strconv.FormatInt(t.Score, 10),
		"expiresAt": t.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"createdAt": t.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.ExpireAt(ctx, key, t.ExpiresAt.Add(tokenHashRetention))

	switch t.Status {
	case model.TokenWaiting:
		pipe.ZAdd(ctx, waitingKey(t.ConcertID), redis.Z{Score: float64(t.Score), Member: t.Token})
		pipe.SRem(ctx, activeKey(t.ConcertID), t.Token)
	case model.TokenActive:
		pipe.SAdd(ctx, activeKey(t.ConcertID), t.Token)
		pipe.ZRem(ctx, waitingKey(t.ConcertID), t.Token)
	case model.TokenExpired:
		pipe.ZRem(ctx, waitingKey(t.ConcertID), t.Token)
		pipe.SRem(ctx, activeKey(t.ConcertID), t.Token)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("token store: save %s: %w", t.Token, err)
	}
	return nil
}

// FindByToken reads the token hash back into a QueueToken.
func (s *RedisTokenStore) FindByToken(ctx context.Context, token string) (*model.QueueToken, error) {
	entries, err := s.rdb.HGetAll(ctx, tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("token store: find %s: %w", token, err)
	}
	if len(entries) == 0 {
		return nil, apperr.ErrTokenNotFound
	}
	return hashToToken(token, entries)
}

// Rank returns the token's 0-indexed position in the waiting ZSET.
func (s *RedisTokenStore) Rank(ctx context.Context, token string, concertID uint64) (int64, bool, error) {
	rank, err := s.rdb.ZRank(ctx, waitingKey(concertID), token).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("token store: rank %s: %w", token, err)
	}
	return rank, true, nil
}

// CountActive returns the cardinality of the active SET.
func (s *RedisTokenStore) CountActive(ctx context.Context, concertID uint64) (int64, error) {
	n, err := s.rdb.SCard(ctx, activeKey(concertID)).Result()
	if err != nil {
		return 0, fmt.Errorf("token store: count active: %w", err)
	}
	return n, nil
}

// CountWaiting returns the cardinality of the waiting ZSET.
func (s *RedisTokenStore) CountWaiting(ctx context.Context, concertID uint64) (int64, error) {
	n, err := s.rdb.ZCard(ctx, waitingKey(concertID)).Result()
	if err != nil {
		return 0, fmt.Errorf("token store: count waiting: %w", err)
	}
	return n, nil
}

// TopWaiting loads the limit lowest-scored waiting tokens. A token whose
// hash has vanished (expired between ZRANGE and HGETALL) is skipped.
func (s *RedisTokenStore) TopWaiting(ctx context.Context, concertID uint64, limit int) ([]*model.QueueToken, error) {
	if limit <= 0 {
		return nil, nil
	}
	members, err := s.rdb.ZRange(ctx, waitingKey(concertID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("token store: top waiting: %w", err)
	}
	tokens := make([]*model.QueueToken, 0, len(members))
	for _, m := range members {
		t, err := s.FindByToken(ctx, m)
		if err == apperr.ErrTokenNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// ConcertIDsWithWaiting scans for waiting-set keys and extracts their
// concert IDs. SCAN keeps this safe on a shared Redis, unlike KEYS.
func (s *RedisTokenStore) ConcertIDsWithWaiting(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	seen := make(map[uint64]struct{})
	iter := s.rdb.Scan(ctx, 0, waitingKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw := strings.TrimPrefix(iter.Val(), waitingKeyPrefix)
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("token store: scan waiting keys: %w", err)
	}
	return ids, nil
}

func hashToToken(token string, entries map[string]string) (*model.QueueToken, error) {
	userID, err := strconv.ParseUint(entries["userId"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("token store: corrupt userId for %s: %w", token, err)
	}
	concertID, err := strconv.ParseUint(entries["concertId"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("token store: corrupt concertId for %s: %w", token, err)
	}
	score, err := strconv.ParseInt(entries["score"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("token store: corrupt score for %s: %w", token, err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, entries["expiresAt"])
	if err != nil {
		return nil, fmt.Errorf("token store: corrupt expiresAt for %s: %w", token, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, entries["createdAt"])
	if err != nil {
		return nil, fmt.Errorf("token store: corrupt createdAt for %s: %w", token, err)
	}
	return &model.QueueToken{
		Token:     token,
		UserID:    userID,
		ConcertID: concertID,
		Status:    model.TokenStatus(entries["status"]),
		Score:     score,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}
