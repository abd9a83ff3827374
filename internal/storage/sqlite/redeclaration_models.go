package sqlite

import (
	"time"

	"github.com/yegors/runway-redeclaration/internal/model"
)

// RedeclarationRecord is one journalled redeclaration
type RedeclarationRecord struct {
	ID        int64           `json:"id"`
	Airport   string          `json:"airport"`
	Runway    string          `json:"runway"`
	Obstacle  string          `json:"obstacle"`
	Procedure string          `json:"procedure"` // procedure slug, e.g. "landing-over"
	Original  model.Distances `json:"original"`
	Result    model.Distances `json:"redeclared"`
	Clamped   []string        `json:"clamped,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	CreatedAt time.Time       `json:"created_at"`
}
