package handler

import (
	"log/slog"

	"github.com/crosscasthq/crosscast-be/internal/pipeline"
	"github.com/crosscasthq/crosscast-be/internal/storage"
	"github.com/crosscasthq/crosscast-be/shared/postgresql"
	"github.com/crosscasthq/crosscast-be/shared/rabbitmq"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
	Storage      *storage.Storage
	Scanner      *pipeline.Scanner
	Processor    *pipeline.Processor
}

// PipelineHandler handles pipeline trigger and queue HTTP requests
type PipelineHandler struct {
	logger       *slog.Logger
	rabbitClient *rabbitmq.Client
	storage      *storage.Storage
	scanner      *pipeline.Scanner
	processor    *pipeline.Processor
}

// NewPipelineHandler creates a new PipelineHandler instance
func NewPipelineHandler(deps *Dependencies) *PipelineHandler {
	return &PipelineHandler{
		logger:       deps.Logger,
		rabbitClient: deps.RabbitClient,
		storage:      deps.Storage,
		scanner:      deps.Scanner,
		processor:    deps.Processor,
	}
}
