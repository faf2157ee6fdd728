package logging

// Standardized attribute keys shared across packages. The console handler
// hoists component and operation into the line header; everything else is
// rendered as trailing fields.
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldRunID      = "run_id"
	FieldScaffold   = "scaffold"
	FieldGenome     = "genome"
	FieldEventType  = "event_type"
	FieldCheckpoint = "checkpoint"
	FieldState      = "state"
)

// Event types recorded under FieldEventType.
const (
	EventCheckpoint = "checkpoint"
	EventCommand    = "external_command"
)

// Checkpoint states recorded under FieldState.
const (
	StateStart = "start"
	StateEnd   = "end"
)
