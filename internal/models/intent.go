package models

import "strings"

type Intent string

const (
	IntentGenerateSQL     Intent = "generate_sql"
	IntentDatabaseInsight Intent = "database_insight"
	IntentChitchat        Intent = "chitchat"
	IntentUnrecognized    Intent = "unrecognized"
	IntentError           Intent = "error"
)

// Intents lists every intent the model may return.
var Intents = []Intent{
	IntentGenerateSQL,
	IntentDatabaseInsight,
	IntentChitchat,
	IntentUnrecognized,
	IntentError,
}

// IntentResult is the parsed classification of one user utterance.
type IntentResult struct {
	Intent   Intent  `json:"intent"`
	Answer   string  `json:"answer"`
	SQLQuery *string `json:"sql_query"`
}

// SQL returns the statement to execute. Empty, "none" and "null" count as absent.
func (r IntentResult) SQL() (string, bool) {
	if r.SQLQuery == nil {
		return "", false
	}
	sql := strings.TrimSpace(*r.SQLQuery)
	switch strings.ToLower(sql) {
	case "", "none", "null":
		return "", false
	}
	return sql, true
}
