package repository

import (
	"encoding/json"

	"github.com/tourloop/planner/internal/model"
)

// unmarshalOpeningHours decodes the JSONB open_hours column.
func unmarshalOpeningHours(raw []byte) (*model.OpeningHours, error) {
	h := &model.OpeningHours{}
	if err := json.Unmarshal(raw, h); err != nil {
		return nil, err
	}
	return h, nil
}
