package registry

import (
	"encoding/json"
	"os"
	"sort"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Unknown lists the task types with no registered activity, sorted.
func (r *ActivityRegistry) Unknown(taskTypes []string) []string {
	var out []string
	for _, tt := range taskTypes {
		if _, ok := r.Find(tt); !ok {
			out = append(out, tt)
		}
	}
	sort.Strings(out)
	return out
}

func object(required []string, props map[string]string) JSONSchema {
	properties := make(map[string]interface{}, len(props))
	for name, typ := range props {
		properties[name] = JSONSchema{"type": typ}
	}
	schema := JSONSchema{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Builtin is the registry of the activities compiled into the worker manager.
func Builtin() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-10-16",
		Activities: []Activity{
			{
				TaskType:    "chatbot-respond",
				DisplayName: "Chatbot Respond",
				Description: "Classifies a user utterance, runs the generated read-only SQL and narrates the result",
				Category:    CategoryAIConversation,
				Status:      StatusCompleted,
				Input: object([]string{"conversationId", "message"}, map[string]string{
					"conversationId": "string",
					"message":        "string",
				}),
				Output: object([]string{"response", "intent", "requestId"}, map[string]string{
					"response":        "string",
					"intent":          "string",
					"sqlQuery":        "string",
					"data":            "object",
					"sqlError":        "string",
					"databaseError":   "string",
					"schemaAvailable": "boolean",
					"requestId":       "string",
				}),
				ErrorCodes:   []string{"INVALID_JOB_INPUT"},
				Timeout:      "60s",
				Capabilities: []string{"llm", "sql", "memory"},
			},
			{
				TaskType:    "generate-conversation-title",
				DisplayName: "Generate Conversation Title",
				Description: "Names a conversation after its first complete exchange",
				Category:    CategoryAIConversation,
				Status:      StatusCompleted,
				Input: object([]string{"conversationId", "messageId"}, map[string]string{
					"conversationId": "string",
					"messageId":      "string",
				}),
				Output: object([]string{"conversationId", "generated"}, map[string]string{
					"conversationId": "string",
					"title":          "string",
					"generated":      "boolean",
				}),
				ErrorCodes:   []string{"INVALID_JOB_INPUT"},
				Timeout:      "30s",
				Capabilities: []string{"llm"},
			},
			{
				TaskType:    "describe-database",
				DisplayName: "Describe Database",
				Description: "Returns the schema snapshot of the target database",
				Category:    CategoryDataAccess,
				Status:      StatusCompleted,
				Input:       object(nil, nil),
				Output: object([]string{"schema", "tableCount"}, map[string]string{
					"schema":      "object",
					"schemaCount": "integer",
					"tableCount":  "integer",
					"columnCount": "integer",
				}),
				ErrorCodes:   []string{"SCHEMA_INTROSPECTION_FAILED", "DATABASE_CONNECTION_FAILED"},
				Timeout:      "30s",
				Retries:      3,
				Capabilities: []string{"sql"},
			},
			{
				TaskType:    "query-sql-audit",
				DisplayName: "Query SQL Audit",
				Description: "Lists the statements the chatbot executed or refused for a conversation",
				Category:    CategoryDataAccess,
				Status:      StatusCompleted,
				Input: object([]string{"conversationId"}, map[string]string{
					"conversationId": "string",
					"size":           "integer",
				}),
				Output: object([]string{"entries", "totalHits"}, map[string]string{
					"entries":   "array",
					"totalHits": "integer",
					"took":      "integer",
				}),
				ErrorCodes:   []string{"INVALID_JOB_INPUT", "EXTERNAL_SERVICE_ERROR", "TIMEOUT_ERROR"},
				Timeout:      "15s",
				Capabilities: []string{"elasticsearch"},
			},
		},
	}
}
