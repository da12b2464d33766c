package dto

import "funduscam/internal/model"

// CapturesData is the /api/captures response.
type CapturesData struct {
	Captures []model.Capture `json:"captures"`
	Total    int             `json:"total"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}
