package help

const ColdstartYAML = `# driftwatch Quick Start

setup:
  api_key: "export DRIFTWATCH_API_KEY=... (or api_key in ~/.driftwatch.yaml)"
  base_url: "defaults to https://api.driftwatch.dev/v1"

commands:
  basic_search: |
    driftwatch search --query "eu ai act enforcement"

  search_with_summary: |
    driftwatch search --query "eu ai act enforcement" --summary --budget 90s

  crawl: |
    driftwatch crawl --url "https://example.com/pressroom" --depth 2 --summary

  list_workflows: |
    driftwatch workflows

  workflow_history: |
    driftwatch workflows executions wf_123

  daily_digest: |
    driftwatch digest --format briefing

  digest_since: |
    driftwatch digest --since 2026-08-23T00:00:00Z --format json

  digest_for_llm: |
    driftwatch digest --format briefing_llm --verbose

formats:
  json: "Structured DigestResponse (default)"
  yaml: "Same structure as YAML"
  briefing: "Grouped narrative for terminals"
  briefing_llm: "Plain markdown grouping for model input"
  compact: "Per-workflow one-liners plus aggregate string"

signal_levels:
  urgent: "score >= 80"
  notable: "score >= 60"
  routine: "score >= 40"
  noise: "below 40"

polling_behavior:
  - "Backoff starts at 500ms, x1.5 per round, capped at 4s"
  - "Budget default 60s, clamped to 5s-300s via --budget"
  - "Budget exhaustion returns the last observed snapshot, never an error"
  - "A job with status=failed stops polling immediately (exit 2)"

digest_behavior:
  - "Watermark defaults to 24h ago; override with --since (ISO 8601)"
  - "Max 20 workflows by default, hard cap 50 (--max-workflows)"
  - "One failing workflow never aborts the others (error field per digest)"
  - "Correlations: URLs seen by 2+ workflows, top 15 digests analyzed"

error_behavior:
  - "Transient service errors during polling are logged and swallowed"
  - "Exit codes: 0=success, 2=terminal job failure or hard error"
`
