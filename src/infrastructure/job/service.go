package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Topic is the queue all background jobs go through
const Topic = "jobs"

// TaskHandler executes one task type given its payload
type TaskHandler interface {
	TaskType() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Service enqueues jobs durably and dispatches queue messages to the
// registered task handlers.
type Service struct {
	publisher message.Publisher
	repo      Repository
	logger    watermill.LoggerAdapter
	handlers  map[string]TaskHandler
}

type jobMessage struct {
	JobID    int             `json:"job_id"`
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

func NewService(publisher message.Publisher, repo Repository, logger watermill.LoggerAdapter, handlers ...TaskHandler) *Service {
	byType := make(map[string]TaskHandler, len(handlers))
	for _, h := range handlers {
		byType[h.TaskType()] = h
	}

	return &Service{
		publisher: publisher,
		repo:      repo,
		logger:    logger,
		handlers:  byType,
	}
}

// Enqueue creates a job record and publishes it to the queue
func (s *Service) Enqueue(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	job, err := s.repo.Create(ctx, taskType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	jobMsg := jobMessage{
		JobID:    job.ID,
		TaskType: job.TaskType,
		Payload:  job.Payload,
	}
	msgPayload, err := json.Marshal(jobMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), msgPayload)
	if err := s.publisher.Publish(Topic, msg); err != nil {
		return nil, fmt.Errorf("failed to publish job message: %w", err)
	}

	return job, nil
}

// ProcessMessage consumes one queue message, runs the matching handler and
// records the outcome on the job row.
func (s *Service) ProcessMessage(msg *message.Message) error {
	var jobMsg jobMessage
	if err := json.Unmarshal(msg.Payload, &jobMsg); err != nil {
		return fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	ctx := context.Background()

	job, err := s.repo.Get(ctx, jobMsg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %d", jobMsg.JobID)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, StatusRunning, nil); err != nil {
		return fmt.Errorf("failed to update job status to running: %w", err)
	}

	err = s.dispatch(ctx, job)
	if err != nil {
		errStr := err.Error()
		if updateErr := s.repo.UpdateStatus(ctx, job.ID, StatusFailed, &errStr); updateErr != nil {
			s.logger.Error("Failed to update job status to failed", updateErr, watermill.LogFields{
				"job_id": job.ID,
			})
		}
		return fmt.Errorf("failed to process job: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, StatusCompleted, nil); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	return nil
}

func (s *Service) dispatch(ctx context.Context, job *Job) error {
	handler, ok := s.handlers[job.TaskType]
	if !ok {
		return fmt.Errorf("unknown task type: %s", job.TaskType)
	}
	return handler.Handle(ctx, job.Payload)
}
