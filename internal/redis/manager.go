package redis

import (
	"fmt"
	"sync"

	"github.com/redis/rueidis"
	"github.com/robalyx/rowatch/internal/setup/config"
	"go.uber.org/zap"
)

// Manager lazily creates and owns rueidis clients, one per database index.
type Manager struct {
	clients map[int]rueidis.Client
	config  *config.Redis
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewManager initializes the Redis connection manager with an empty client pool.
func NewManager(config *config.Redis, logger *zap.Logger) *Manager {
	return &Manager{
		clients: make(map[int]rueidis.Client),
		config:  config,
		logger:  logger.Named("redis"),
	}
}

// GetClient returns the client for the configured database.
func (m *Manager) GetClient() (rueidis.Client, error) {
	return m.GetClientDB(m.config.DB)
}

// GetClientDB retrieves or creates a client for the database index.
func (m *Manager) GetClientDB(dbIndex int) (rueidis.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[dbIndex]; exists {
		return client, nil
	}

	client, err := rueidis.NewClient(m.Options(dbIndex))
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client for DB %d: %w", dbIndex, err)
	}

	m.clients[dbIndex] = client
	m.logger.Info("Created new Redis client", zap.Int("dbIndex", dbIndex))

	return client, nil
}

// Options returns the client options used for dbIndex.
func (m *Manager) Options(dbIndex int) rueidis.ClientOption {
	return rueidis.ClientOption{
		InitAddress:  []string{fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)},
		Username:     m.config.Username,
		Password:     m.config.Password,
		SelectDB:     dbIndex,
		ClientName:   "rowatch",
		DisableCache: true,
	}
}

// Close shuts down every client created so far. Safe to call twice.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for dbIndex, client := range m.clients {
		client.Close()
		m.logger.Info("Closed Redis client", zap.Int("dbIndex", dbIndex))
	}

	clear(m.clients)
}
