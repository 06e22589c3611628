// Package jobs sends account emails in the background through asynq.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"natours/config"
	"natours/models"
	"natours/services"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

func redisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
}

// Queue is a services.Notifier that defers welcome emails to the worker.
// Password reset emails are sent inline so a failure reaches the caller.
type Queue struct {
	client *asynq.Client
	emails services.Notifier
	log    zerolog.Logger
}

func NewQueue(cfg config.RedisConfig, emails services.Notifier, log zerolog.Logger) *Queue {
	return &Queue{client: asynq.NewClient(redisOpt(cfg)), emails: emails, log: log}
}

func (q *Queue) SendWelcome(ctx context.Context, user *models.User, url string) error {
	task, err := NewWelcomeEmailTask(WelcomeEmailPayload{To: user.Email, Name: user.Name, URL: url})
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue welcome email: %w", err)
	}
	q.log.Debug().Str("task_id", info.ID).Str("to", user.Email).Msg("welcome email queued")
	return nil
}

func (q *Queue) SendPasswordReset(ctx context.Context, user *models.User, url string) error {
	return q.emails.SendPasswordReset(ctx, user, url)
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// Worker processes queued email tasks.
type Worker struct {
	server *asynq.Server
	emails services.Notifier
	log    zerolog.Logger
}

func NewWorker(cfg config.RedisConfig, emails services.Notifier, log zerolog.Logger) *Worker {
	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{"default": 1},
	})
	return &Worker{server: server, emails: emails, log: log}
}

// Start registers the handlers and starts processing without blocking.
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcome, w.handleWelcomeEmail)

	w.log.Info().Msg("starting email worker")
	return w.server.Start(mux)
}

func (w *Worker) Stop() {
	w.log.Info().Msg("stopping email worker")
	w.server.Shutdown()
}

func (w *Worker) handleWelcomeEmail(ctx context.Context, t *asynq.Task) error {
	var p WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal welcome email payload: %w", asynq.SkipRetry)
	}

	user := &models.User{Name: p.Name, Email: p.To}
	if err := w.emails.SendWelcome(ctx, user, p.URL); err != nil {
		w.log.Error().Err(err).Str("to", p.To).Msg("welcome email failed")
		return err
	}
	w.log.Info().Str("to", p.To).Msg("welcome email sent")
	return nil
}
