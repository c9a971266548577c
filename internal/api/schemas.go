package api

import "github.com/santhosh-tekuri/jsonschema/v5"

// Request bodies that feed the allocation and the leaderboards are bounded
// here so a client cannot push values the engine would never produce.
const citySubmissionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["price", "reputation", "location_count"],
  "properties": {
    "player_id": {"type": "string"},
    "price": {"type": "number", "minimum": 0.1, "maximum": 10000},
    "inventory": {"type": "integer", "minimum": 0},
    "reputation": {"type": "number", "minimum": 0},
    "upgrades": {
      "type": ["object", "null"],
      "additionalProperties": {"type": "integer", "minimum": 0, "maximum": 100}
    },
    "location_count": {"type": "integer", "minimum": 1, "maximum": 1000}
  },
  "additionalProperties": false
}`

const dayResultSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["day", "price", "customers", "revenue", "profit", "weather", "total_revenue", "total_customers"],
  "properties": {
    "city_id": {"type": "string"},
    "day": {"type": "integer", "minimum": 1},
    "price": {"type": "number", "minimum": 0.1, "maximum": 10000},
    "customers": {"type": "integer", "minimum": 0},
    "revenue": {"type": "number", "minimum": 0},
    "profit": {"type": "number"},
    "weather": {"enum": ["sunny", "cloudy", "rainy", "heatwave"]},
    "catastrophe": {"type": "string", "maxLength": 64},
    "total_revenue": {"type": "number", "minimum": 0},
    "total_customers": {"type": "integer", "minimum": 0},
    "cash": {"type": "number", "minimum": 0},
    "best_day": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": false
}`

type schemas struct {
	citySubmission *jsonschema.Schema
	dayResult      *jsonschema.Schema
}

func mustCompileSchemas() *schemas {
	return &schemas{
		citySubmission: jsonschema.MustCompileString("city_submission.schema.json", citySubmissionSchema),
		dayResult:      jsonschema.MustCompileString("day_result.schema.json", dayResultSchema),
	}
}
