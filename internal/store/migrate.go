package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableLLMEvents = "llm_request_events"
	tableRuns      = "generation_runs"
	tableSequence  = "sequence_counter"
)

var (
	llmEventColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "run_id", Type: field.TypeString, Default: ""},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}

	// LLMEventsTable records every LLM API call for cost tracking and debugging.
	LLMEventsTable = &schema.Table{
		Name:       tableLLMEvents,
		Columns:    llmEventColumns,
		PrimaryKey: []*schema.Column{llmEventColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{llmEventColumns[6]}},
			{Name: "llmrequestevent_run_id", Columns: []*schema.Column{llmEventColumns[3]}},
			{Name: "llmrequestevent_success", Columns: []*schema.Column{llmEventColumns[10]}},
		},
	}

	runColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "source", Type: field.TypeString},
		{Name: "source_ref", Type: field.TypeString, Default: ""},
		{Name: "model", Type: field.TypeString, Default: ""},
		{Name: "chunks", Type: field.TypeInt, Default: 0},
		{Name: "requested", Type: field.TypeInt, Default: 0},
		{Name: "generated", Type: field.TypeInt, Default: 0},
		{Name: "failed_chunks", Type: field.TypeInt, Default: 0},
		{Name: "status", Type: field.TypeString},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "finished_at", Type: field.TypeTime, Nullable: true},
	}

	// RunsTable holds one summary row per generation run.
	RunsTable = &schema.Table{
		Name:       tableRuns,
		Columns:    runColumns,
		PrimaryKey: []*schema.Column{runColumns[0]},
		Indexes: []*schema.Index{
			{Name: "generationrun_status", Columns: []*schema.Column{runColumns[9]}},
		},
	}

	sequenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "last", Type: field.TypeInt64, Default: 0},
	}

	// SequenceTable is a single-row counter shared by the other tables.
	SequenceTable = &schema.Table{
		Name:       tableSequence,
		Columns:    sequenceColumns,
		PrimaryKey: []*schema.Column{sequenceColumns[0]},
	}

	// Tables lists every table managed by Open.
	Tables = []*schema.Table{
		LLMEventsTable,
		RunsTable,
		SequenceTable,
	}
)
