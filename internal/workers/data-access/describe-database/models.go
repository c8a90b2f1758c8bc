// internal/workers/data-access/describe-database/models.go
package describedatabase

import "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"

type Input struct{}

type Output struct {
	Schema      models.SchemaSnapshot `json:"schema"`
	SchemaCount int                   `json:"schemaCount"`
	TableCount  int                   `json:"tableCount"`
	ColumnCount int                   `json:"columnCount"`
}
