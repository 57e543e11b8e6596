package protocol

import "strings"

// Output is any validated structured-output record. Validate returns nil only
// when every schema constraint holds; callers never see a partially valid
// record.
type Output interface {
	Validate() error
}

// ScoredSpan is one highlight candidate proposed by the text model.
type ScoredSpan struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason"`
}

// TextScoringOutput is the text model's full response: a non-empty list of
// scored candidate spans.
type TextScoringOutput struct {
	Segments []ScoredSpan `json:"segments"`
}

const minReasonLength = 10

func (o *TextScoringOutput) Validate() error {
	if len(o.Segments) == 0 {
		return &SchemaViolationError{Field: "segments", Constraint: "must contain at least one element"}
	}
	for _, span := range o.Segments {
		if span.Score < 0 || span.Score > 1 {
			return &SchemaViolationError{Field: "score", Constraint: "must be between 0 and 1"}
		}
		if len(strings.TrimSpace(span.Reason)) < minReasonLength {
			return &SchemaViolationError{Field: "reason", Constraint: "must be at least 10 characters"}
		}
		if span.EndTime <= span.StartTime {
			return &SchemaViolationError{Field: "end_time", Constraint: "must be greater than start_time"}
		}
	}
	return nil
}

// VisionScoringOutput is the vision model's verdict for one segment.
type VisionScoringOutput struct {
	VisionScore        float64  `json:"vision_score"`
	KeyVisualElements  []string `json:"key_visual_elements"`
	EmotionalIntensity string   `json:"emotional_intensity"`
	Reason             string   `json:"reason"`
}

var emotionalIntensities = map[string]struct{}{
	"low":    {},
	"medium": {},
	"high":   {},
}

func (o *VisionScoringOutput) Validate() error {
	if o.VisionScore < 0 || o.VisionScore > 1 {
		return &SchemaViolationError{Field: "vision_score", Constraint: "must be between 0 and 1"}
	}
	if len(o.KeyVisualElements) == 0 {
		return &SchemaViolationError{Field: "key_visual_elements", Constraint: "must contain at least one element"}
	}
	if _, ok := emotionalIntensities[o.EmotionalIntensity]; !ok {
		return &SchemaViolationError{Field: "emotional_intensity", Constraint: "must be one of low, medium, high"}
	}
	if len(strings.TrimSpace(o.Reason)) < minReasonLength {
		return &SchemaViolationError{Field: "reason", Constraint: "must be at least 10 characters"}
	}
	return nil
}

// QualityAssuranceOutput is the cloud reviewer's verdict for one escalated
// segment.
type QualityAssuranceOutput struct {
	ConfidenceScore float64  `json:"confidence_score"`
	Recommendation  string   `json:"recommendation"`
	KeyFactors      []string `json:"key_factors"`
	Reason          string   `json:"reason"`
}

var recommendations = map[string]struct{}{
	"accept":    {},
	"reject":    {},
	"uncertain": {},
}

func (o *QualityAssuranceOutput) Validate() error {
	if o.ConfidenceScore < 0 || o.ConfidenceScore > 1 {
		return &SchemaViolationError{Field: "confidence_score", Constraint: "must be between 0 and 1"}
	}
	if _, ok := recommendations[o.Recommendation]; !ok {
		return &SchemaViolationError{Field: "recommendation", Constraint: "must be one of accept, reject, uncertain"}
	}
	if len(o.KeyFactors) == 0 {
		return &SchemaViolationError{Field: "key_factors", Constraint: "must contain at least one element"}
	}
	if len(strings.TrimSpace(o.Reason)) < minReasonLength {
		return &SchemaViolationError{Field: "reason", Constraint: "must be at least 10 characters"}
	}
	return nil
}

// schemaSpec binds a schema name to a factory for fresh records and the
// structural description injected into prompt templates.
type schemaSpec struct {
	newRecord   func() Output
	description string
}

var schemaSpecs = map[string]schemaSpec{
	"text_scoring": {
		newRecord: func() Output { return &TextScoringOutput{} },
		description: `{
  "segments": [
    {
      "start_time": <seconds, number>,
      "end_time": <seconds, number, must be greater than start_time>,
      "score": <number between 0 and 1>,
      "reason": <string, at least 10 characters>
    }
  ]
}
"segments" must contain at least one element.`,
	},
	"vision_scoring": {
		newRecord: func() Output { return &VisionScoringOutput{} },
		description: `{
  "vision_score": <number between 0 and 1>,
  "key_visual_elements": [<string>, ...],
  "emotional_intensity": <"low" | "medium" | "high">,
  "reason": <string, at least 10 characters>
}
"key_visual_elements" must contain at least one element.`,
	},
	"quality_assurance": {
		newRecord: func() Output { return &QualityAssuranceOutput{} },
		description: `{
  "confidence_score": <number between 0 and 1>,
  "recommendation": <"accept" | "reject" | "uncertain">,
  "key_factors": [<string>, ...],
  "reason": <string, at least 10 characters>
}
"key_factors" must contain at least one element.`,
	},
}
