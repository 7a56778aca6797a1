package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

const (
	taskTypeAuthEvent = "auth:event"
	queueAudit        = "audit"
)

// Manager は認証イベントのキュー投入とワーカーを担います。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  *ActivityStore
	logger *log.Logger
}

// NewManager は Manager を初期化します。
func NewManager(redisURL string, store *ActivityStore, logger *log.Logger) (*Manager, error) {
	if redisURL == "" {
		return nil, errors.New("redisURL is empty")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				queueAudit: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client: client,
		server: server,
		mux:    mux,
		store:  store,
		logger: logger,
	}
	mux.HandleFunc(taskTypeAuthEvent, manager.handleAuthEvent)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logf("asynq server stopped with error: %v", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	return m.client.Close()
}

// Publish はイベントをキューに投入します。
func (m *Manager) Publish(ctx context.Context, event Event) error {
	task, err := newEventTask(event)
	if err != nil {
		return err
	}
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("failed to enqueue %s event: %w", event.Type, err)
	}
	return nil
}

func newEventTask(event Event) (*asynq.Task, error) {
	if event.Type == "" {
		return nil, fmt.Errorf("event.Type is required")
	}
	if event.OccurredAt.IsZero() {
		return nil, fmt.Errorf("event.OccurredAt is required")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskTypeAuthEvent, body, asynq.Queue(queueAudit)), nil
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
