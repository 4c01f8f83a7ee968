package economy

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tokenomy/internal/events"
)

// Service owns every token-affecting operation. All mutations run inside
// serializable transactions with per-user row locks; cross-user reads
// (supply, leaderboards) see an eventually-consistent snapshot.
type Service struct {
	db  *pgxpool.Pool
	log *slog.Logger
	bus *events.Bus

	mu   sync.Mutex
	rand *mathrand.Rand

	now func() time.Time
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, bus *events.Bus) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = events.NewBus()
	}
	return &Service{
		db:   db,
		log:  logger,
		bus:  bus,
		rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}
}

func (s *Service) Bus() *events.Bus {
	return s.bus
}

// EnsureAccount bootstraps the profile and the starting balance. Both
// inserts are conflict-free no-ops for returning users.
func (s *Service) EnsureAccount(ctx context.Context, userID, email, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		username = usernameFromEmail(email)
	}
	inviteCode, err := generateInviteCode()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users.profiles (user_id, email, username, invite_code)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, email, username, inviteCode)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO econ.balances (user_id, tokens)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, StartingTokens)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Wallet reads the caller's cash, positions and net worth in one shot.
func (s *Service) Wallet(ctx context.Context, userID string) (WalletView, error) {
	var out WalletView
	err := s.db.QueryRow(ctx, `
		SELECT tokens FROM econ.balances WHERE user_id = $1
	`, userID).Scan(&out.Tokens)
	if err == pgx.ErrNoRows {
		return out, ErrNotFound
	}
	if err != nil {
		return out, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT symbol, quantity, avg_price, last_price
		FROM econ.positions
		WHERE user_id = $1
		ORDER BY symbol
	`, userID)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var p PositionView
		if err := rows.Scan(&p.Symbol, &p.Quantity, &p.AvgPrice, &p.LastPrice); err != nil {
			return out, err
		}
		p.MarketValue = roundTokens(float64(p.Quantity) * p.LastPrice)
		out.HoldingsValue += p.MarketValue
		out.Positions = append(out.Positions, p)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	out.NetWorth = out.Tokens + out.HoldingsValue
	return out, nil
}

// runSerializable executes fn in a serializable transaction, retrying on
// SQLSTATE 40001 with capped backoff. Domain errors abort immediately and
// leave no partial state.
func (s *Service) runSerializable(ctx context.Context, fn func(tx pgx.Tx) error) error {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

// claimIdempotency reserves a client-supplied operation key inside the
// mutating transaction. A replayed key aborts before any balance is read,
// which is what makes timed-out calls safe to retry.
func claimIdempotency(ctx context.Context, tx pgx.Tx, userID, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO econ.idempotency_keys (user_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func (s *Service) rollBelow(n int64) int64 {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Int63n(n)
}

func generateInviteCode() (string, error) {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = letters[int(buf[i])%len(letters)]
	}
	return string(buf), nil
}

func usernameFromEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	at := strings.IndexByte(email, '@')
	if at > 0 {
		email = email[:at]
	}
	out := make([]rune, 0, len(email))
	for _, r := range email {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		}
	}
	name := string(out)
	if len(name) < 3 {
		name = "trader_" + name
	}
	if len(name) > 24 {
		name = name[:24]
	}
	return name
}
