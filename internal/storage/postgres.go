package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"

	"github.com/adelhazem/social-gateway/internal/config"
	"github.com/adelhazem/social-gateway/pkg/logger"
)

var (
	storeQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_store_queries_total",
			Help: "Total number of user store queries",
		},
		[]string{"operation", "status"}, // status is "success" or "error"
	)

	storeQueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "user_store_query_latency_seconds",
			Help:    "User store query latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"operation"},
	)
)

func observeQuery(operation string, start time.Time, err error) {
	storeQueryLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	storeQueryTotal.WithLabelValues(operation, status).Inc()
}

// PostgresUserStore implements UserStore against PostgreSQL
type PostgresUserStore struct {
	db *sql.DB
}

// NewPostgresUserStore opens a connection pool against the configured database
func NewPostgresUserStore(dbConfig config.DatabaseConfig) (*PostgresUserStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Database,
		dbConfig.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return &PostgresUserStore{db: db}, nil
}

// FindUserPrivacyFields fetches privacy fields for all given users in one query
func (s *PostgresUserStore) FindUserPrivacyFields(ctx context.Context, ids []string) ([]UserPrivacy, error) {
	start := time.Now()
	var err error
	defer func() { observeQuery("find_privacy_fields", start, err) }()

	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(blocked_user_ids, '{}'), hide_online_status
		FROM users
		WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query privacy fields: %w", err)
	}
	defer rows.Close()

	result := make([]UserPrivacy, 0, len(ids))
	for rows.Next() {
		var p UserPrivacy
		if err = rows.Scan(&p.UserID, pq.Array(&p.BlockedUserIDs), &p.HideOnlineStatus); err != nil {
			return nil, fmt.Errorf("failed to scan privacy fields: %w", err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read privacy fields: %w", err)
	}
	return result, nil
}

// GetGhostModePreference returns the persisted hide-online preference
func (s *PostgresUserStore) GetGhostModePreference(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { observeQuery("get_ghost_mode", start, err) }()

	var hidden bool
	err = s.db.QueryRowContext(ctx,
		`SELECT hide_online_status FROM users WHERE id = $1`, id,
	).Scan(&hidden)
	if err == sql.ErrNoRows {
		err = nil
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query ghost mode preference: %w", err)
	}
	return hidden, nil
}

// UpdateLastSeen records the user's last-active timestamp
func (s *PostgresUserStore) UpdateLastSeen(ctx context.Context, id string, t time.Time) error {
	start := time.Now()
	var err error
	defer func() { observeQuery("update_last_seen", start, err) }()

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET last_seen = $2 WHERE id = $1`, id, t)
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	return nil
}

// MarkMessagesDelivered flips delivered on pending messages for the receiver
// and returns the distinct senders whose messages actually transitioned.
// The WHERE delivered = FALSE guard makes repeat calls return nothing new.
func (s *PostgresUserStore) MarkMessagesDelivered(ctx context.Context, receiverID string) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { observeQuery("mark_messages_delivered", start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		UPDATE messages
		SET delivered = TRUE
		WHERE receiver_id = $1 AND delivered = FALSE
		RETURNING sender_id`,
		receiverID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark messages delivered: %w", err)
	}
	defer rows.Close()

	var senders []string
	for rows.Next() {
		var sender string
		if err = rows.Scan(&sender); err != nil {
			return nil, fmt.Errorf("failed to scan sender id: %w", err)
		}
		senders = append(senders, sender)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read delivered senders: %w", err)
	}
	return lo.Uniq(senders), nil
}

// Close closes the database connection pool
func (s *PostgresUserStore) Close() error {
	return s.db.Close()
}
