// internal/workers/ai-conversation/chatbot-respond/handler.go
package chatbotrespond

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/audit"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/intent"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/memory"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/narrator"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/schema"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/sqlexec"
	apperrors "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/errors"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/observability"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

const (
	TaskType = "chatbot-respond"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// Dependencies are the pipeline stages. Audit and Tracer may be nil.
type Dependencies struct {
	Classifier  *intent.Classifier
	Schema      schema.Source
	Executor    *sqlexec.Executor
	Narrator    *narrator.Narrator
	Memory      memory.Store
	Audit       audit.Recorder
	Tracer      Tracer
	MemoryTurns int
}

type Handler struct {
	config       *Config
	deps         Dependencies
	errorHandler *apperrors.ErrorHandler
	logger       Logger
}

func NewHandler(config *Config, deps Dependencies, log Logger) *Handler {
	if deps.Audit == nil {
		deps.Audit = audit.NopRecorder{}
	}
	if deps.Tracer == nil {
		deps.Tracer = &observability.Observability{}
	}
	logger := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		deps:         deps,
		errorHandler: apperrors.NewErrorHandler(logger),
		logger:       logger,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidJobInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	log := h.logger.With(map[string]interface{}{
		"conversationId": input.ConversationID,
		"requestId":      requestID,
	})

	ctx, span := h.deps.Tracer.StartSpan(ctx, "chatbot.respond",
		attribute.String("conversation.id", input.ConversationID))
	defer span.End()

	mem := h.loadMemory(ctx, input.ConversationID, log)

	snapshot, schemaAvailable := h.loadSchema(ctx, log)

	stageCtx, stage := h.deps.Tracer.StartSpan(ctx, "chatbot.classify")
	classification := h.deps.Classifier.Classify(stageCtx, input.Message, snapshot, mem)
	stage.SetAttributes(attribute.String("chatbot.intent", string(classification.Intent)))
	stage.End()

	log.Info("message classified", map[string]interface{}{"intent": classification.Intent})

	if classification.Remembered {
		if err := h.deps.Memory.Save(ctx, input.ConversationID, mem); err != nil {
			log.Warn("failed to persist conversation memory", map[string]interface{}{"error": err})
		}
	}

	output := &Output{
		Response:        classification.Answer,
		Intent:          classification.Intent,
		SchemaAvailable: schemaAvailable,
		RequestID:       requestID,
	}

	sqlText, ok := classification.SQL()
	if !ok {
		return output, nil
	}
	output.SQLQuery = &sqlText

	stageCtx, stage = h.deps.Tracer.StartSpan(ctx, "chatbot.execute")
	env, err := h.deps.Executor.Execute(stageCtx, sqlText)
	stage.SetAttributes(attribute.String("chatbot.outcome", string(env.Type)))
	stage.End()

	h.recordAudit(ctx, requestID, input, classification.Intent, sqlText, env, err, log)

	if err != nil {
		log.Error("database unavailable", map[string]interface{}{"error": err})
		output.DatabaseError = apperrors.Normalize(err).Message
		return output, nil
	}

	output.Data = &env
	if env.IsError() {
		output.SQLError = "Error executing generated SQL: " + env.Text
		return output, nil
	}

	if classification.Intent == models.IntentGenerateSQL {
		stageCtx, stage = h.deps.Tracer.StartSpan(ctx, "chatbot.narrate")
		answer, err := h.deps.Narrator.Narrate(stageCtx, env, input.Message)
		stage.End()
		if err != nil {
			log.Warn("narration failed, keeping classification answer", map[string]interface{}{"error": err})
		} else {
			output.Response = answer
		}
	}

	return output, nil
}

func validateInput(input *Input) error {
	if input == nil {
		return apperrors.NewInvalidJobInputError("input cannot be nil")
	}
	if strings.TrimSpace(input.ConversationID) == "" {
		return apperrors.NewInvalidJobInputError("conversationId is required")
	}
	if strings.TrimSpace(input.Message) == "" {
		return apperrors.NewInvalidJobInputError("message is required")
	}
	return nil
}

// loadMemory falls back to an empty memory when the store is unavailable.
func (h *Handler) loadMemory(ctx context.Context, conversationID string, log Logger) *memory.ConversationMemory {
	mem, err := h.deps.Memory.Load(ctx, conversationID)
	if err != nil {
		log.Warn("failed to load conversation memory", map[string]interface{}{"error": err})
		return memory.New(h.deps.MemoryTurns)
	}
	return mem
}

// loadSchema returns nil without touching the database when the schema is
// excluded from prompts. An introspection failure yields an empty snapshot.
func (h *Handler) loadSchema(ctx context.Context, log Logger) (models.SchemaSnapshot, bool) {
	if !h.config.IncludeSchema {
		return nil, false
	}

	ctx, span := h.deps.Tracer.StartSpan(ctx, "chatbot.schema")
	defer span.End()

	snapshot, err := h.deps.Schema.Snapshot(ctx)
	if err != nil {
		log.Warn("schema introspection failed, continuing without schema", map[string]interface{}{"error": err})
		return models.SchemaSnapshot{}, false
	}
	return snapshot, true
}

func (h *Handler) recordAudit(ctx context.Context, requestID string, input *Input, in models.Intent, sqlText string, env models.QueryResultEnvelope, execErr error, log Logger) {
	entry := audit.NewEntry(requestID, input.ConversationID, input.Message, in, sqlText, env, execErr)
	if err := h.deps.Audit.Record(ctx, entry); err != nil {
		log.Warn("failed to record sql audit entry", map[string]interface{}{"error": err})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
