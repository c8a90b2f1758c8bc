package intent

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/memory"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

const systemInstruction = `You are an expert at understanding user input and responding with structured JSON.
You are a read-only assistant for a local PostgreSQL database. You may only select tables and records;
never produce INSERT, UPDATE, DELETE, MERGE, TRUNCATE or any DDL statement. You must not access external
databases or APIs, and you may only reference tables and columns that appear in the database schema below.
Your task is to:
1. Identify the intent of the user's input from the following categories:
   - generate_sql: the answer requires running an SQL query.
   - database_insight: a question about the database that can be answered without running a query.
   - chitchat: small talk such as "hello there".
   - unrecognized: the input is outside your supported domain.
2. Provide a natural language answer to the input in the "answer" field.
3. If the intent is "generate_sql", put a single SELECT statement in the "sql_query" field, otherwise null.
Always respond with exactly one JSON object and nothing else:
{"intent": "intent_category", "answer": "Your natural language response here", "sql_query": "SQL query if applicable, otherwise null"}`

// BuildPrompt renders the classification prompt. A nil schema omits the
// schema section entirely.
func BuildPrompt(input string, schema models.SchemaSnapshot, mem *memory.ConversationMemory, now time.Time) (string, error) {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\nCurrent time is ")
	b.WriteString(now.Format(time.RFC3339))
	b.WriteString(".\n")

	if schema != nil {
		data, err := json.Marshal(schema)
		if err != nil {
			return "", err
		}
		b.WriteString("\nDatabase schema: ")
		b.Write(data)
		b.WriteString("\n")
	}

	b.WriteString("\nPrevious conversation:\n")
	if mem != nil {
		b.WriteString(mem.Transcript())
	}
	b.WriteString("\n\nUser query: ")
	b.WriteString(input)
	b.WriteString("\nMake sure to handle context from previous interactions when generating SQL queries or answers.")
	return b.String(), nil
}
