package schema

import "sync"

// Table names
const (
	Agents                  = "agents"
	AgentsCustom            = "agents_custom"
	AgentFeedback           = "agent_feedback"
	AgentLanguages          = "agent_languages"
	AgentPerformanceMetrics = "agent_performance_metrics"
	AgentUsageEvents        = "agent_usage_events"
	Rentals                 = "rentals"
	UserInteractions        = "user_interactions"
	VoiceSamples            = "voice_samples"
	ContractorContext       = "contractor_context"
	Subscriptions           = "subscriptions"
	SystemHealthMetrics     = "system_health_metrics"
)

func id() Field {
	return Field{Name: "id", Kind: Int, ID: true, AutoIncrement: true}
}

func createdAt() Field {
	return Field{Name: "created_at", Kind: DateTime, Default: DefaultNow}
}

func updatedAt() Field {
	return Field{Name: "updated_at", Kind: DateTime, Default: DefaultNow, UpdatedAt: true}
}

func required(name string, kind Kind) Field {
	return Field{Name: name, Kind: kind}
}

func optional(name string, kind Kind) Field {
	return Field{Name: name, Kind: kind, Nullable: true}
}

func text(name string) Field {
	return Field{Name: name, Kind: String, Nullable: true, DBType: "TEXT"}
}

func list(name string) Field {
	return Field{Name: name, Kind: StringList, Default: DefaultEmptyList}
}

func withDefault(f Field, v any) Field {
	f.Default = v
	return f
}

// belongsTo declares the "agent" side of a foreign key held by this model
func belongsTo(target string) Relation {
	return Relation{Name: "agent", Kind: ManyToOne, Target: target, LocalField: "agent_id", ForeignField: "id"}
}

// hasMany declares a list relation whose rows point back through agent_id
func hasMany(target string) Relation {
	return Relation{Name: target, Kind: OneToMany, Target: target, LocalField: "id", ForeignField: "agent_id"}
}

// Definitions returns fresh definitions of the twelve marketplace tables
func Definitions() []*Model {
	return []*Model{
		{
			Name:       Agents,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				required("name", String),
				{Name: "slug", Kind: String, Unique: true},
				text("description"),
				optional("category", String),
				optional("voice_id", String),
				optional("personality", JSON),
				optional("capabilities", JSON),
				list("integrations"),
				list("industries"),
				optional("pricing_basic", Decimal),
				optional("pricing_pro", Decimal),
				optional("pricing_enterprise", Decimal),
				optional("rating", Decimal),
				withDefault(required("is_active", Boolean), true),
				createdAt(),
				updatedAt(),
			},
			Relations: []Relation{
				hasMany(Rentals),
				hasMany(UserInteractions),
				hasMany(VoiceSamples),
			},
		},
		{
			Name:       AgentsCustom,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				optional("user_id", UUID),
				required("name", String),
				optional("base_agent_type", String),
				optional("settings", JSON),
				optional("voice_config", JSON),
				optional("ai_optimization_score", Decimal),
				withDefault(required("is_active", Boolean), true),
				createdAt(),
				updatedAt(),
			},
			Relations: []Relation{
				hasMany(AgentFeedback),
				hasMany(AgentLanguages),
				hasMany(AgentPerformanceMetrics),
				hasMany(AgentUsageEvents),
			},
		},
		{
			Name:       AgentFeedback,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				optional("agent_id", Int),
				optional("user_id", UUID),
				optional("rating", Int),
				text("comment"),
				optional("feedback_data", JSON),
				createdAt(),
			},
			Relations: []Relation{belongsTo(AgentsCustom)},
		},
		{
			Name:       AgentLanguages,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				optional("agent_id", Int),
				required("language_code", String),
				optional("proficiency_level", String),
				optional("accent", String),
				withDefault(required("is_primary", Boolean), false),
				createdAt(),
			},
			UniqueSets: [][]string{{"agent_id", "language_code"}},
			Relations:  []Relation{belongsTo(AgentsCustom)},
		},
		{
			Name:       AgentPerformanceMetrics,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				optional("agent_id", Int),
				optional("metric_date", DateTime),
				withDefault(required("total_calls", Int), 0),
				withDefault(required("successful_calls", Int), 0),
				optional("avg_response_time", Decimal),
				optional("context_match_accuracy", Decimal),
				optional("metrics_data", JSON),
				createdAt(),
			},
			Relations: []Relation{belongsTo(AgentsCustom)},
		},
		{
			Name:       AgentUsageEvents,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				optional("agent_id", Int),
				required("event_type", String),
				optional("event_data", JSON),
				optional("session_id", String),
				optional("duration_seconds", Int),
				createdAt(),
			},
			Relations: []Relation{belongsTo(AgentsCustom)},
		},
		{
			Name:       Rentals,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				optional("agent_id", Int),
				optional("user_id", UUID),
				required("plan", String),
				optional("monthly_price", Decimal),
				optional("setup_fee", Decimal),
				withDefault(required("status", String), "active"),
				optional("start_date", DateTime),
				optional("end_date", DateTime),
				optional("configuration_snapshot", JSON),
				optional("pricing_snapshot", JSON),
				createdAt(),
				updatedAt(),
			},
			Relations: []Relation{belongsTo(Agents)},
		},
		{
			Name:       UserInteractions,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				optional("agent_id", Int),
				optional("user_id", UUID),
				required("interaction_type", String),
				optional("context", JSON),
				createdAt(),
			},
			Relations: []Relation{belongsTo(Agents)},
		},
		{
			Name:       VoiceSamples,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				optional("agent_id", Int),
				required("sample_url", String),
				optional("language", String),
				optional("variant", JSON),
				optional("duration_seconds", Int),
				createdAt(),
			},
			Relations: []Relation{belongsTo(Agents)},
		},
		{
			Name:       ContractorContext,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				{Name: "user_id", Kind: UUID, Nullable: true, Unique: true},
				optional("business_name", String),
				optional("trade", String),
				list("service_areas"),
				list("specialties"),
				optional("preferences", JSON),
				optional("optimization_suggestions", JSON),
				optional("context_match_accuracy", Decimal),
				createdAt(),
				updatedAt(),
			},
		},
		{
			Name:       Subscriptions,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				optional("user_id", UUID),
				required("plan", String),
				withDefault(required("status", String), "active"),
				list("features"),
				optional("billing_cycle", String),
				optional("price", Decimal),
				optional("preferences", JSON),
				optional("current_period_end", DateTime),
				createdAt(),
				updatedAt(),
			},
		},
		{
			Name:       SystemHealthMetrics,
			PrimaryKey: "id",
			Fields: []Field{
				id(),
				required("metric_name", String),
				optional("metric_value", Decimal),
				optional("health_score", Decimal),
				optional("details", JSON),
				{Name: "recorded_at", Kind: DateTime, Default: DefaultNow},
			},
		},
	}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry of the marketplace tables
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = MustRegistry(Definitions()...)
	})
	return defaultRegistry
}
