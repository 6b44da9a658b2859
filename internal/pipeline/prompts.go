// File path: internal/pipeline/prompts.go
package pipeline

const extractionPrompt = `
You are a senior COBOL reverse engineering expert.

Perform deep structural extraction.

Return STRICT JSON:

{
  "purpose": "",
  "entities": [],
  "business_rules": [],
  "control_flow": [],
  "conditional_flags": [],
  "file_io_operations": [],
  "external_calls": [],
  "data_lineage": [],
  "update_logic": []
}

Capture:
- IF nesting and PERFORM chains
- CICS READ/WRITE/REWRITE/DELETE
- CALL statements
- Indicator/flag-driven behavior
- Variable derivation and usage
- Amendment/update logic
`

const synthesisPrompt = `
You are an enterprise modernization architect.

Synthesize a traceable, flow-aware system model.

- Map business rules to control paths
- Associate rules with flags and indicators
- Link file operations to validations
- Connect external calls to process steps
- Preserve data lineage
- Detail update/amendment behavior

Return STRICT JSON:

{
  "purpose": "",
  "process_map": [],
  "business_rules": [],
  "control_flow": [],
  "external_dependencies": [],
  "data_lineage": [],
  "risk_areas": []
}
`

const generationPrompt = `
Generate enterprise-grade modernization artifacts.

Return STRICT JSON:

{
  "bc_mapping": {},
  "al_code": "",
  "etl_script": "",
  "test_cases": [],
  "dependency_map": [],
  "data_lineage_map": []
}

Ensure:
- Flow-aware BC mapping
- Dependency mapping
- Traceable AL logic
- Data lineage documentation
`
