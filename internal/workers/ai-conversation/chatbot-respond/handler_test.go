// internal/workers/ai-conversation/chatbot-respond/handler_test.go
package chatbotrespond

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/audit"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/intent"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/memory"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/narrator"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/sqlexec"
	apperrors "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/errors"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/genai"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/logger"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	return &TestLogger{t: l.t, fields: l.mergeFields(fields)}
}

func (l *TestLogger) mergeFields(fields map[string]interface{}) map[string]interface{} {
	all := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}
	return all
}

// ==========================
// Test Doubles
// ==========================

const narrationMarker = "Based on these SQL results"

// scriptedModel answers classification prompts with classify and narration
// prompts with narrate, recording every prompt it sees.
type scriptedModel struct {
	mu         sync.Mutex
	classify   string
	narrate    string
	narrateErr error
	prompts    []string
	narrations int
}

func (m *scriptedModel) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if strings.Contains(prompt, narrationMarker) {
		m.narrations++
		return m.narrate, m.narrateErr
	}
	return m.classify, nil
}

type fakeSchema struct {
	snapshot models.SchemaSnapshot
	err      error
	calls    int
}

func (f *fakeSchema) Snapshot(context.Context) (models.SchemaSnapshot, error) {
	f.calls++
	return f.snapshot, f.err
}

type recordingAudit struct {
	entries []audit.Entry
	err     error
}

func (r *recordingAudit) Record(_ context.Context, e audit.Entry) error {
	r.entries = append(r.entries, e)
	return r.err
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout:       5 * time.Second,
		IncludeSchema: true,
	}
}

func employeesSnapshot() models.SchemaSnapshot {
	pk := "id"
	return models.SchemaSnapshot{
		"public": {"employees": {
			Columns: []models.Column{
				{Name: "id", Type: "integer"},
				{Name: "status", Type: "character varying"},
			},
			PrimaryKey:  &pk,
			ForeignKeys: []models.ForeignKey{},
		}},
	}
}

type testEnv struct {
	handler *Handler
	model   *scriptedModel
	schema  *fakeSchema
	audit   *recordingAudit
	memory  *memory.InMemoryStore
	db      sqlmock.Sqlmock
}

func createTestHandler(t *testing.T, config *Config, model *scriptedModel) *testEnv {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewTestLogger(t)
	completer := genai.Completer(model)

	env := &testEnv{
		model:  model,
		schema: &fakeSchema{snapshot: employeesSnapshot()},
		audit:  &recordingAudit{},
		memory: memory.NewInMemoryStore(10),
		db:     mock,
	}
	env.handler = NewHandler(config, Dependencies{
		Classifier: intent.NewClassifier(completer, intent.Options{
			MaxInputLength: 255,
			IncludeSchema:  config.IncludeSchema,
		}, log),
		Schema:      env.schema,
		Executor:    sqlexec.NewExecutor(db, sqlexec.Options{ReadOnlyGuard: true, StatementTimeout: time.Second}, log),
		Narrator:    narrator.New(completer, log),
		Memory:      env.memory,
		Audit:       env.audit,
		MemoryTurns: 10,
	}, NewTestLogger(t))
	return env
}

func createInput(message string) *Input {
	return &Input{ConversationID: "convo_1", Message: message}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ActiveEmployeeCount(t *testing.T) {
	model := &scriptedModel{
		classify: "```json\n" + `{"intent": "generate_sql", "answer": "Let me check the employee records.", ` +
			`"sql_query": "SELECT COUNT(*) AS count FROM employees WHERE status = 'active'"}` + "\n```",
		narrate: `{"answer": "There are 3 active employees."}`,
	}
	env := createTestHandler(t, createTestConfig(), model)

	env.db.ExpectBegin()
	env.db.ExpectPrepare(`SELECT COUNT\(\*\) AS count FROM employees WHERE status = 'active'`).ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	env.db.ExpectCommit()

	output, err := env.handler.Execute(context.Background(), createInput("How many active employees are there?"))

	require.NoError(t, err)
	assert.Equal(t, models.IntentGenerateSQL, output.Intent)
	require.NotNil(t, output.SQLQuery)
	assert.Contains(t, *output.SQLQuery, "employees")
	require.NotNil(t, output.Data)
	assert.Equal(t, models.EnvelopeCount, output.Data.Type)
	assert.Equal(t, int64(3), output.Data.Value)
	assert.Contains(t, output.Response, "3")
	assert.True(t, output.SchemaAvailable)
	assert.Empty(t, output.SQLError)
	assert.Empty(t, output.DatabaseError)
	assert.NotEmpty(t, output.RequestID)

	assert.Contains(t, model.prompts[0], `"employees"`)
	assert.Contains(t, model.prompts[1], `{"type":"count","value":3}`)

	require.Len(t, env.audit.entries, 1)
	assert.Equal(t, models.EnvelopeCount, env.audit.entries[0].Outcome)
	assert.Equal(t, output.RequestID, env.audit.entries[0].RequestID)

	mem, err := env.memory.Load(context.Background(), "convo_1")
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Len())

	assert.NoError(t, env.db.ExpectationsWereMet())
}

func TestHandler_Execute_Chitchat(t *testing.T) {
	model := &scriptedModel{classify: `{"intent": "chitchat", "answer": "Hello! How can I help?", "sql_query": null}`}
	env := createTestHandler(t, createTestConfig(), model)

	output, err := env.handler.Execute(context.Background(), createInput("hello there"))

	require.NoError(t, err)
	assert.Equal(t, models.IntentChitchat, output.Intent)
	assert.Equal(t, "Hello! How can I help?", output.Response)
	assert.Nil(t, output.SQLQuery)
	assert.Nil(t, output.Data)
	assert.Empty(t, env.audit.entries)
	assert.Len(t, model.prompts, 1)
	assert.NoError(t, env.db.ExpectationsWereMet())
}

func TestHandler_Execute_SQLPlaceholdersAreAbsent(t *testing.T) {
	for _, sql := range []string{`""`, `"None"`, `"null"`, `"  "`} {
		model := &scriptedModel{classify: `{"intent": "database_insight", "answer": "There are 4 tables.", "sql_query": ` + sql + `}`}
		env := createTestHandler(t, createTestConfig(), model)

		output, err := env.handler.Execute(context.Background(), createInput("how many tables do we have?"))

		require.NoError(t, err)
		assert.Nil(t, output.SQLQuery, sql)
		assert.Nil(t, output.Data)
		assert.NoError(t, env.db.ExpectationsWereMet())
	}
}

func TestHandler_Execute_SchemaFailureDegrades(t *testing.T) {
	model := &scriptedModel{classify: `{"intent": "unrecognized", "answer": "I can only help with database questions.", "sql_query": null}`}
	env := createTestHandler(t, createTestConfig(), model)
	env.schema.err = apperrors.NewSchemaIntrospectionFailedError(errors.New("permission denied"))

	output, err := env.handler.Execute(context.Background(), createInput("what's the weather?"))

	require.NoError(t, err)
	assert.False(t, output.SchemaAvailable)
	assert.Equal(t, models.IntentUnrecognized, output.Intent)
	assert.Contains(t, model.prompts[0], "Database schema: {}")
}

func TestHandler_Execute_SchemaExcluded(t *testing.T) {
	config := createTestConfig()
	config.IncludeSchema = false
	model := &scriptedModel{classify: `{"intent": "chitchat", "answer": "Hi!", "sql_query": null}`}
	env := createTestHandler(t, config, model)

	output, err := env.handler.Execute(context.Background(), createInput("hi"))

	require.NoError(t, err)
	assert.Equal(t, 0, env.schema.calls)
	assert.False(t, output.SchemaAvailable)
	assert.NotContains(t, model.prompts[0], "Database schema")
}

func TestHandler_Execute_SQLErrorSkipsNarration(t *testing.T) {
	model := &scriptedModel{
		classify: `{"intent": "generate_sql", "answer": "Here are the employees.", "sql_query": "SELECT * FROM employes"}`,
		narrate:  `{"answer": "should not be used"}`,
	}
	env := createTestHandler(t, createTestConfig(), model)

	env.db.ExpectBegin()
	env.db.ExpectPrepare(`SELECT \* FROM employes`).ExpectQuery().WillReturnError(errors.New(`pq: relation "employes" does not exist`))
	env.db.ExpectRollback()

	output, err := env.handler.Execute(context.Background(), createInput("list employees"))

	require.NoError(t, err)
	assert.Equal(t, "Here are the employees.", output.Response)
	assert.Equal(t, `Error executing generated SQL: pq: relation "employes" does not exist`, output.SQLError)
	require.NotNil(t, output.Data)
	assert.Equal(t, models.EnvelopeError, output.Data.Type)
	assert.Equal(t, 0, model.narrations)
	require.Len(t, env.audit.entries, 1)
	assert.Contains(t, env.audit.entries[0].Error, "does not exist")
	assert.NoError(t, env.db.ExpectationsWereMet())
}

func TestHandler_Execute_RejectedStatement(t *testing.T) {
	model := &scriptedModel{classify: `{"intent": "generate_sql", "answer": "Removing inactive employees.", "sql_query": "DELETE FROM employees WHERE status = 'inactive'"}`}
	env := createTestHandler(t, createTestConfig(), model)

	output, err := env.handler.Execute(context.Background(), createInput("remove inactive employees"))

	require.NoError(t, err)
	assert.Equal(t, "Error executing generated SQL: "+sqlexec.RejectedMessage, output.SQLError)
	assert.Equal(t, 0, model.narrations)
	assert.NoError(t, env.db.ExpectationsWereMet())
}

func TestHandler_Execute_NarrationFailureKeepsAnswer(t *testing.T) {
	model := &scriptedModel{
		classify:   `{"intent": "generate_sql", "answer": "Counting employees.", "sql_query": "SELECT count(*) AS count FROM employees"}`,
		narrateErr: genai.ErrCompletionTimeout,
	}
	env := createTestHandler(t, createTestConfig(), model)

	env.db.ExpectBegin()
	env.db.ExpectPrepare(`FROM employees`).ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))
	env.db.ExpectCommit()

	output, err := env.handler.Execute(context.Background(), createInput("how many employees?"))

	require.NoError(t, err)
	assert.Equal(t, "Counting employees.", output.Response)
	assert.Equal(t, int64(12), output.Data.Value)
}

func TestHandler_Execute_InsightIsNotNarrated(t *testing.T) {
	model := &scriptedModel{
		classify: `{"intent": "database_insight", "answer": "Employees is the largest table.", "sql_query": "SELECT status FROM employees"}`,
		narrate:  `{"answer": "should not be used"}`,
	}
	env := createTestHandler(t, createTestConfig(), model)

	env.db.ExpectBegin()
	env.db.ExpectPrepare(`SELECT status FROM employees`).ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active").AddRow("inactive"))
	env.db.ExpectCommit()

	output, err := env.handler.Execute(context.Background(), createInput("which table is the largest?"))

	require.NoError(t, err)
	assert.Equal(t, "Employees is the largest table.", output.Response)
	require.NotNil(t, output.Data)
	assert.Equal(t, 2, output.Data.RowCount)
	assert.Equal(t, 0, model.narrations)
}

func TestHandler_Execute_AuditFailureIsIgnored(t *testing.T) {
	model := &scriptedModel{
		classify: `{"intent": "generate_sql", "answer": "Counting.", "sql_query": "SELECT count(*) AS count FROM employees"}`,
		narrate:  `{"answer": "There are 5 employees."}`,
	}
	env := createTestHandler(t, createTestConfig(), model)
	env.audit.err = errors.New("index_not_found_exception")

	env.db.ExpectBegin()
	env.db.ExpectPrepare(`FROM employees`).ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))
	env.db.ExpectCommit()

	output, err := env.handler.Execute(context.Background(), createInput("how many employees?"))

	require.NoError(t, err)
	assert.Equal(t, "There are 5 employees.", output.Response)
}

func TestHandler_Execute_MemoryCarriesAcrossJobs(t *testing.T) {
	model := &scriptedModel{classify: `{"intent": "chitchat", "answer": "Sure.", "sql_query": null}`}
	env := createTestHandler(t, createTestConfig(), model)
	ctx := context.Background()

	_, err := env.handler.Execute(ctx, createInput("my name is Ana"))
	require.NoError(t, err)
	_, err = env.handler.Execute(ctx, createInput("what is my name?"))
	require.NoError(t, err)

	require.Len(t, model.prompts, 2)
	assert.Contains(t, model.prompts[1], "User: my name is Ana")

	other, err := env.handler.Execute(ctx, &Input{ConversationID: "convo_2", Message: "hi"})
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.NotContains(t, model.prompts[2], "my name is Ana")
}

func TestHandler_Execute_MalformedModelOutput(t *testing.T) {
	model := &scriptedModel{classify: `{"intent": "generate_sql", "answer": "trunc`}
	env := createTestHandler(t, createTestConfig(), model)

	output, err := env.handler.Execute(context.Background(), createInput("how many employees?"))

	require.NoError(t, err)
	assert.Equal(t, models.IntentError, output.Intent)
	assert.Equal(t, intent.MalformedAnswer, output.Response)
	assert.Nil(t, output.SQLQuery)
}

// ==========================
// Validation Tests
// ==========================

func TestHandler_Execute_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"nil input", nil},
		{"missing conversation", &Input{Message: "hi"}},
		{"blank message", &Input{ConversationID: "convo_1", Message: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := createTestHandler(t, createTestConfig(), &scriptedModel{})

			output, err := env.handler.Execute(context.Background(), tt.input)

			assert.Nil(t, output)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.Sentinel(apperrors.ErrCodeInvalidJobInput)))
			assert.Empty(t, env.model.prompts)
		})
	}
}

func TestHandler_Execute_DatabaseUnavailable(t *testing.T) {
	model := &scriptedModel{classify: `{"intent": "generate_sql", "answer": "Counting.", "sql_query": "SELECT count(*) AS count FROM employees"}`}

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	require.NoError(t, db.Close())

	log := logger.NewTestLogger(t)
	rec := &recordingAudit{}
	handler := NewHandler(createTestConfig(), Dependencies{
		Classifier:  intent.NewClassifier(model, intent.Options{IncludeSchema: true}, log),
		Schema:      &fakeSchema{snapshot: employeesSnapshot()},
		Executor:    sqlexec.NewExecutor(db, sqlexec.Options{ReadOnlyGuard: true}, log),
		Narrator:    narrator.New(model, log),
		Memory:      memory.NewInMemoryStore(10),
		Audit:       rec,
		MemoryTurns: 10,
	}, NewTestLogger(t))

	output, err := handler.Execute(context.Background(), createInput("how many employees?"))

	require.NoError(t, err)
	assert.Equal(t, "Counting.", output.Response)
	assert.Equal(t, "Database connection error", output.DatabaseError)
	assert.Nil(t, output.Data)
	assert.Empty(t, output.SQLError)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, models.EnvelopeError, rec.entries[0].Outcome)
}
