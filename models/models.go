// Package models contains the typed rows of the marketplace tables. Nullable
// columns are pointers, relation fields are only filled when included and
// Count holds the relation counts requested with the Count option.
package models

import (
	"time"

	"github.com/carlosnayan/agentdb/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Agent is a catalog voice agent (agents)
type Agent struct {
	ID                int              `db:"id" json:"id"`
	Name              string           `db:"name" json:"name"`
	Slug              string           `db:"slug" json:"slug"`
	Description       *string          `db:"description" json:"description"`
	Category          *string          `db:"category" json:"category"`
	VoiceID           *string          `db:"voice_id" json:"voice_id"`
	Personality       types.JSON       `db:"personality" json:"personality"`
	Capabilities      types.JSON       `db:"capabilities" json:"capabilities"`
	Integrations      []string         `db:"integrations" json:"integrations"`
	Industries        []string         `db:"industries" json:"industries"`
	PricingBasic      *decimal.Decimal `db:"pricing_basic" json:"pricing_basic"`
	PricingPro        *decimal.Decimal `db:"pricing_pro" json:"pricing_pro"`
	PricingEnterprise *decimal.Decimal `db:"pricing_enterprise" json:"pricing_enterprise"`
	Rating            *decimal.Decimal `db:"rating" json:"rating"`
	IsActive          bool             `db:"is_active" json:"is_active"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`

	Rentals          []Rental          `db:"rentals" json:"rentals,omitempty"`
	UserInteractions []UserInteraction `db:"user_interactions" json:"user_interactions,omitempty"`
	VoiceSamples     []VoiceSample     `db:"voice_samples" json:"voice_samples,omitempty"`
	Count            map[string]int64  `db:"_count" json:"_count,omitempty"`
}

// AgentCustom is a user-configured agent (agents_custom)
type AgentCustom struct {
	ID                  int              `db:"id" json:"id"`
	UserID              *uuid.UUID       `db:"user_id" json:"user_id"`
	Name                string           `db:"name" json:"name"`
	BaseAgentType       *string          `db:"base_agent_type" json:"base_agent_type"`
	Settings            types.JSON       `db:"settings" json:"settings"`
	VoiceConfig         types.JSON       `db:"voice_config" json:"voice_config"`
	AIOptimizationScore *decimal.Decimal `db:"ai_optimization_score" json:"ai_optimization_score"`
	IsActive            bool             `db:"is_active" json:"is_active"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`

	AgentFeedback           []AgentFeedback          `db:"agent_feedback" json:"agent_feedback,omitempty"`
	AgentLanguages          []AgentLanguage          `db:"agent_languages" json:"agent_languages,omitempty"`
	AgentPerformanceMetrics []AgentPerformanceMetric `db:"agent_performance_metrics" json:"agent_performance_metrics,omitempty"`
	AgentUsageEvents        []AgentUsageEvent        `db:"agent_usage_events" json:"agent_usage_events,omitempty"`
	Count                   map[string]int64         `db:"_count" json:"_count,omitempty"`
}

// AgentFeedback is a rating left on a custom agent
type AgentFeedback struct {
	ID           int        `db:"id" json:"id"`
	AgentID      *int       `db:"agent_id" json:"agent_id"`
	UserID       *uuid.UUID `db:"user_id" json:"user_id"`
	Rating       *int       `db:"rating" json:"rating"`
	Comment      *string    `db:"comment" json:"comment"`
	FeedbackData types.JSON `db:"feedback_data" json:"feedback_data"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`

	Agent *AgentCustom `db:"agent" json:"agent,omitempty"`
}

// AgentLanguage is a language spoken by a custom agent
type AgentLanguage struct {
	ID               int       `db:"id" json:"id"`
	AgentID          *int      `db:"agent_id" json:"agent_id"`
	LanguageCode     string    `db:"language_code" json:"language_code"`
	ProficiencyLevel *string   `db:"proficiency_level" json:"proficiency_level"`
	Accent           *string   `db:"accent" json:"accent"`
	IsPrimary        bool      `db:"is_primary" json:"is_primary"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`

	Agent *AgentCustom `db:"agent" json:"agent,omitempty"`
}

// AgentPerformanceMetric is a daily rollup for a custom agent
type AgentPerformanceMetric struct {
	ID                   int              `db:"id" json:"id"`
	AgentID              *int             `db:"agent_id" json:"agent_id"`
	MetricDate           *time.Time       `db:"metric_date" json:"metric_date"`
	TotalCalls           int              `db:"total_calls" json:"total_calls"`
	SuccessfulCalls      int              `db:"successful_calls" json:"successful_calls"`
	AvgResponseTime      *decimal.Decimal `db:"avg_response_time" json:"avg_response_time"`
	ContextMatchAccuracy *decimal.Decimal `db:"context_match_accuracy" json:"context_match_accuracy"`
	MetricsData          types.JSON       `db:"metrics_data" json:"metrics_data"`
	CreatedAt            time.Time        `db:"created_at" json:"created_at"`

	Agent *AgentCustom `db:"agent" json:"agent,omitempty"`
}

// AgentUsageEvent is a usage event emitted by a custom agent
type AgentUsageEvent struct {
	ID              int        `db:"id" json:"id"`
	AgentID         *int       `db:"agent_id" json:"agent_id"`
	EventType       string     `db:"event_type" json:"event_type"`
	EventData       types.JSON `db:"event_data" json:"event_data"`
	SessionID       *string    `db:"session_id" json:"session_id"`
	DurationSeconds *int       `db:"duration_seconds" json:"duration_seconds"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`

	Agent *AgentCustom `db:"agent" json:"agent,omitempty"`
}

// Rental is a contractor renting a catalog agent
type Rental struct {
	ID                    int              `db:"id" json:"id"`
	AgentID               *int             `db:"agent_id" json:"agent_id"`
	UserID                *uuid.UUID       `db:"user_id" json:"user_id"`
	Plan                  string           `db:"plan" json:"plan"`
	MonthlyPrice          *decimal.Decimal `db:"monthly_price" json:"monthly_price"`
	SetupFee              *decimal.Decimal `db:"setup_fee" json:"setup_fee"`
	Status                string           `db:"status" json:"status"`
	StartDate             *time.Time       `db:"start_date" json:"start_date"`
	EndDate               *time.Time       `db:"end_date" json:"end_date"`
	ConfigurationSnapshot types.JSON       `db:"configuration_snapshot" json:"configuration_snapshot"`
	PricingSnapshot       types.JSON       `db:"pricing_snapshot" json:"pricing_snapshot"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`

	Agent *Agent `db:"agent" json:"agent,omitempty"`
}

// UserInteraction records a user touching a catalog agent
type UserInteraction struct {
	ID              int        `db:"id" json:"id"`
	AgentID         *int       `db:"agent_id" json:"agent_id"`
	UserID          *uuid.UUID `db:"user_id" json:"user_id"`
	InteractionType string     `db:"interaction_type" json:"interaction_type"`
	Context         types.JSON `db:"context" json:"context"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`

	Agent *Agent `db:"agent" json:"agent,omitempty"`
}

// VoiceSample is an audio sample of a catalog agent
type VoiceSample struct {
	ID              int        `db:"id" json:"id"`
	AgentID         *int       `db:"agent_id" json:"agent_id"`
	SampleURL       string     `db:"sample_url" json:"sample_url"`
	Language        *string    `db:"language" json:"language"`
	Variant         types.JSON `db:"variant" json:"variant"`
	DurationSeconds *int       `db:"duration_seconds" json:"duration_seconds"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`

	Agent *Agent `db:"agent" json:"agent,omitempty"`
}

// ContractorContext is the business profile of a contractor
type ContractorContext struct {
	ID                      int              `db:"id" json:"id"`
	UserID                  *uuid.UUID       `db:"user_id" json:"user_id"`
	BusinessName            *string          `db:"business_name" json:"business_name"`
	Trade                   *string          `db:"trade" json:"trade"`
	ServiceAreas            []string         `db:"service_areas" json:"service_areas"`
	Specialties             []string         `db:"specialties" json:"specialties"`
	Preferences             types.JSON       `db:"preferences" json:"preferences"`
	OptimizationSuggestions types.JSON       `db:"optimization_suggestions" json:"optimization_suggestions"`
	ContextMatchAccuracy    *decimal.Decimal `db:"context_match_accuracy" json:"context_match_accuracy"`
	CreatedAt               time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time        `db:"updated_at" json:"updated_at"`
}

// Subscription is a user's platform plan
type Subscription struct {
	ID               int              `db:"id" json:"id"`
	UserID           *uuid.UUID       `db:"user_id" json:"user_id"`
	Plan             string           `db:"plan" json:"plan"`
	Status           string           `db:"status" json:"status"`
	Features         []string         `db:"features" json:"features"`
	BillingCycle     *string          `db:"billing_cycle" json:"billing_cycle"`
	Price            *decimal.Decimal `db:"price" json:"price"`
	Preferences      types.JSON       `db:"preferences" json:"preferences"`
	CurrentPeriodEnd *time.Time       `db:"current_period_end" json:"current_period_end"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// SystemHealthMetric is a platform health sample
type SystemHealthMetric struct {
	ID          int              `db:"id" json:"id"`
	MetricName  string           `db:"metric_name" json:"metric_name"`
	MetricValue *decimal.Decimal `db:"metric_value" json:"metric_value"`
	HealthScore *decimal.Decimal `db:"health_score" json:"health_score"`
	Details     types.JSON       `db:"details" json:"details"`
	RecordedAt  time.Time        `db:"recorded_at" json:"recorded_at"`
}
