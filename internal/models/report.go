package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReportStatusPending    = "pending"
	ReportStatusInProgress = "in_progress"
	ReportStatusResolved   = "resolved"
	ReportStatusRejected   = "rejected"

	ThreatLevelUnknown  = "unknown"
	ThreatLevelLow      = "low"
	ThreatLevelMedium   = "medium"
	ThreatLevelHigh     = "high"
	ThreatLevelCritical = "critical"

	ReportCategoryTheft      = "theft"
	ReportCategoryFire       = "fire"
	ReportCategoryViolence   = "violence"
	ReportCategorySuspicious = "suspicious"
	ReportCategoryNuisance   = "nuisance"
	ReportCategoryOther      = "other"
)

// Report описывает сообщение жителя о происшествии.
type Report struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ReporterID    uuid.UUID  `db:"reporter_id" json:"reporter_id"`
	Title         string     `db:"title" json:"title"`
	Description   string     `db:"description" json:"description"`
	Location      string     `db:"location" json:"location"`
	Category      string     `db:"category" json:"category"`
	PhotoPath     *string    `db:"photo_path" json:"photo_path,omitempty"`
	Status        string     `db:"status" json:"status"`
	ThreatLevel   string     `db:"threat_level" json:"threat_level"`
	TriageSummary *string    `db:"triage_summary" json:"triage_summary,omitempty"`
	TriagedAt     *time.Time `db:"triaged_at" json:"triaged_at,omitempty"`
	HandledBy     *uuid.UUID `db:"handled_by" json:"handled_by,omitempty"`
	HandlerNote   *string    `db:"handler_note" json:"handler_note,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// ReportFilter задаёт выборку для списка у сотрудников.
type ReportFilter struct {
	Status      string
	ThreatLevel string
	Limit       int
	Offset      int
}

// TriageResult: классификация сообщения, полученная от модели или эвристики.
type TriageResult struct {
	ThreatLevel string `json:"threat_level"`
	Category    string `json:"category"`
	Summary     string `json:"summary"`
}

// ValidThreatLevels список допустимых уровней угрозы.
var ValidThreatLevels = map[string]struct{}{
	ThreatLevelUnknown:  {},
	ThreatLevelLow:      {},
	ThreatLevelMedium:   {},
	ThreatLevelHigh:     {},
	ThreatLevelCritical: {},
}

// ValidReportCategories список допустимых категорий.
var ValidReportCategories = map[string]struct{}{
	ReportCategoryTheft:      {},
	ReportCategoryFire:       {},
	ReportCategoryViolence:   {},
	ReportCategorySuspicious: {},
	ReportCategoryNuisance:   {},
	ReportCategoryOther:      {},
}

// reportTransitions перечисляет разрешённые смены статуса.
var reportTransitions = map[string][]string{
	ReportStatusPending:    {ReportStatusInProgress, ReportStatusRejected, ReportStatusResolved},
	ReportStatusInProgress: {ReportStatusResolved, ReportStatusRejected},
}

// CanTransitionReport проверяет, допустим ли переход статуса сообщения.
func CanTransitionReport(from, to string) bool {
	for _, next := range reportTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
