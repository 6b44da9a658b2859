// File path: internal/kb/types.go
package kb

import "encoding/json"

// Extraction is the phase-one structural view of a legacy program. List
// values are kept raw because the model freely mixes strings and objects
// inside the same array.
type Extraction struct {
	Purpose          string            `json:"purpose"`
	Entities         []json.RawMessage `json:"entities"`
	BusinessRules    []json.RawMessage `json:"business_rules"`
	ControlFlow      []json.RawMessage `json:"control_flow"`
	ConditionalFlags []json.RawMessage `json:"conditional_flags"`
	FileIOOperations []json.RawMessage `json:"file_io_operations"`
	ExternalCalls    []json.RawMessage `json:"external_calls"`
	DataLineage      []json.RawMessage `json:"data_lineage"`
	UpdateLogic      []json.RawMessage `json:"update_logic"`
}

// NewExtraction returns an extraction with every list initialised so the
// aggregate always serialises with explicit empty arrays.
func NewExtraction() Extraction {
	return Extraction{
		Entities:         []json.RawMessage{},
		BusinessRules:    []json.RawMessage{},
		ControlFlow:      []json.RawMessage{},
		ConditionalFlags: []json.RawMessage{},
		FileIOOperations: []json.RawMessage{},
		ExternalCalls:    []json.RawMessage{},
		DataLineage:      []json.RawMessage{},
		UpdateLogic:      []json.RawMessage{},
	}
}

// Merge folds a per-chunk extraction into the aggregate: the first non-empty
// purpose wins, every list key appends in chunk order.
func (e *Extraction) Merge(chunk Extraction) {
	if e.Purpose == "" {
		e.Purpose = chunk.Purpose
	}
	e.Entities = append(e.Entities, chunk.Entities...)
	e.BusinessRules = append(e.BusinessRules, chunk.BusinessRules...)
	e.ControlFlow = append(e.ControlFlow, chunk.ControlFlow...)
	e.ConditionalFlags = append(e.ConditionalFlags, chunk.ConditionalFlags...)
	e.FileIOOperations = append(e.FileIOOperations, chunk.FileIOOperations...)
	e.ExternalCalls = append(e.ExternalCalls, chunk.ExternalCalls...)
	e.DataLineage = append(e.DataLineage, chunk.DataLineage...)
	e.UpdateLogic = append(e.UpdateLogic, chunk.UpdateLogic...)
}

// Synthesis is the phase-two flow-aware system model built from the
// aggregated extraction.
type Synthesis struct {
	Purpose              string            `json:"purpose"`
	ProcessMap           []json.RawMessage `json:"process_map"`
	BusinessRules        []json.RawMessage `json:"business_rules"`
	ControlFlow          []json.RawMessage `json:"control_flow"`
	ExternalDependencies []json.RawMessage `json:"external_dependencies"`
	DataLineage          []json.RawMessage `json:"data_lineage"`
	RiskAreas            []json.RawMessage `json:"risk_areas"`
}

// Artifacts holds the phase-three modernization outputs.
type Artifacts struct {
	BCMapping      map[string]json.RawMessage `json:"bc_mapping"`
	ALCode         string                     `json:"al_code"`
	ETLScript      string                     `json:"etl_script"`
	TestCases      []json.RawMessage          `json:"test_cases"`
	DependencyMap  []json.RawMessage          `json:"dependency_map"`
	DataLineageMap []json.RawMessage          `json:"data_lineage_map"`
}

// Analysis is the final result of a modernization run: the union of the
// synthesis and artifact key sets. The two embedded structs have disjoint
// JSON keys, so the analysis serialises flat.
type Analysis struct {
	Synthesis
	Artifacts
}

// ProcessFlow returns the control flow, falling back to the process map when
// the synthesis produced no explicit flow.
func (a Analysis) ProcessFlow() []json.RawMessage {
	if len(a.ControlFlow) > 0 {
		return a.ControlFlow
	}
	return a.ProcessMap
}

// Dependencies returns the generated dependency map, falling back to the
// synthesized external dependencies.
func (a Analysis) Dependencies() []json.RawMessage {
	if len(a.DependencyMap) > 0 {
		return a.DependencyMap
	}
	return a.ExternalDependencies
}

// Lineage returns the generated lineage map, falling back to the synthesized
// data lineage.
func (a Analysis) Lineage() []json.RawMessage {
	if len(a.DataLineageMap) > 0 {
		return a.DataLineageMap
	}
	return a.DataLineage
}
