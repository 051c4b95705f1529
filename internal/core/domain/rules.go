package domain

import "time"

// ClaimRules holds the tunable thresholds of classification, extraction,
// validation and decision.
type ClaimRules struct {
	MinConfidence              float64        `yaml:"min_confidence" validate:"gte=0,lte=1"`
	ReviewConfidence           float64        `yaml:"review_confidence" validate:"gte=0,lte=1"`
	MissingDocumentsConfidence float64        `yaml:"missing_documents_confidence" validate:"gte=0,lte=1"`
	NameMatchThreshold         float64        `yaml:"name_match_threshold" validate:"gt=0,lte=1"`
	DateWindowSlackDays        int            `yaml:"date_window_slack_days" validate:"gte=0"`
	MaxReasonItems             int            `yaml:"max_reason_items" validate:"gte=1"`
	FieldPenalty               float64        `yaml:"field_penalty" validate:"gte=0,lte=1"`
	HighAmountThreshold        float64        `yaml:"high_amount_threshold" validate:"gt=0"`
	FilenameHintConfidence     float64        `yaml:"filename_hint_confidence" validate:"gte=0,lte=1"`
	FilenameHintBoost          float64        `yaml:"filename_hint_boost" validate:"gte=0,lte=1"`
	DateFormats                []string       `yaml:"date_formats" validate:"min=1,dive,required"`
	RequiredDocuments          []DocumentType `yaml:"required_documents" validate:"min=1,dive,oneof=bill discharge_summary id_card insurance_card"`
}

func DefaultClaimRules() ClaimRules {
	return ClaimRules{
		MinConfidence:              0.3,
		ReviewConfidence:           0.6,
		MissingDocumentsConfidence: 0.9,
		NameMatchThreshold:         0.85,
		DateWindowSlackDays:        1,
		MaxReasonItems:             5,
		FieldPenalty:               0.1,
		HighAmountThreshold:        100000,
		FilenameHintConfidence:     0.6,
		FilenameHintBoost:          0.1,
		DateFormats: []string{
			"2006-01-02",
			"2006/01/02",
			"01/02/2006",
			"1/2/2006",
			"02-01-2006",
			"Jan 2, 2006",
			"January 2, 2006",
			"2 Jan 2006",
			"2 January 2006",
			"2006-01-02T15:04:05Z07:00",
		},
		RequiredDocuments: []DocumentType{DocumentTypeBill},
	}
}

// Normalize fills zero values with defaults.
func (r ClaimRules) Normalize() ClaimRules {
	out := r
	def := DefaultClaimRules()
	if out.ReviewConfidence <= 0 {
		out.ReviewConfidence = def.ReviewConfidence
	}
	if out.MissingDocumentsConfidence <= 0 {
		out.MissingDocumentsConfidence = def.MissingDocumentsConfidence
	}
	if out.NameMatchThreshold <= 0 || out.NameMatchThreshold > 1 {
		out.NameMatchThreshold = def.NameMatchThreshold
	}
	if out.DateWindowSlackDays < 0 {
		out.DateWindowSlackDays = def.DateWindowSlackDays
	}
	if out.MaxReasonItems <= 0 {
		out.MaxReasonItems = def.MaxReasonItems
	}
	if out.FieldPenalty < 0 {
		out.FieldPenalty = def.FieldPenalty
	}
	if out.HighAmountThreshold <= 0 {
		out.HighAmountThreshold = def.HighAmountThreshold
	}
	if out.FilenameHintConfidence <= 0 {
		out.FilenameHintConfidence = def.FilenameHintConfidence
	}
	if len(out.DateFormats) == 0 {
		out.DateFormats = def.DateFormats
	}
	if len(out.RequiredDocuments) == 0 {
		out.RequiredDocuments = def.RequiredDocuments
	}
	return out
}

// PipelineLimits bounds a single claim run.
type PipelineLimits struct {
	RequestTimeout   time.Duration
	CancelGrace      time.Duration
	MaxConcurrency   int
	MaxDocuments     int
	MaxPromptChars   int
	MaxClassifyChars int
}

func (l PipelineLimits) Normalize() PipelineLimits {
	out := l
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = 2 * time.Minute
	}
	if out.CancelGrace <= 0 {
		out.CancelGrace = 250 * time.Millisecond
	}
	if out.MaxConcurrency <= 0 {
		out.MaxConcurrency = 4
	}
	if out.MaxDocuments <= 0 {
		out.MaxDocuments = 10
	}
	if out.MaxPromptChars <= 0 {
		out.MaxPromptChars = 12000
	}
	if out.MaxClassifyChars <= 0 {
		out.MaxClassifyChars = 2000
	}
	return out
}
