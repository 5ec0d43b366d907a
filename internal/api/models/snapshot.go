package models

import "github.com/powdertracker/powdertracker/internal/snapshot"

// PowderHistory is the body of GET /api/mountains/{mountainId}/powder-history.
type PowderHistory struct {
	MountainID string                `json:"mountainId"`
	Since      Timestamp             `json:"since"`
	Points     []snapshot.ScorePoint `json:"points"`
	Count      int                   `json:"count"`
}
