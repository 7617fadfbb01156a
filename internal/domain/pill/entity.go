// Package pill holds the core entities of the identification pipeline: the
// candidate identities parsed from the imprint catalog, the regulatory label
// record kept in the cache, and the per-request conversation context.
package pill

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/turtacn/PillScope/pkg/errors"
)

// PurposeNotAvailable is reported when a label carries no indications section.
const PurposeNotAvailable = "Not Available"

// CandidateIdentity is one pill the catalog associates with an imprint code.
// Only the first parsed candidate is canonical; Rank preserves parse order.
type CandidateIdentity struct {
	Imprint     string            `json:"imprint"`
	GenericName string            `json:"generic_name"`
	Description map[string]string `json:"description,omitempty"`
	Confidence  float64           `json:"confidence"`
	Rank        int               `json:"rank"`
}

// LabelRecord is the regulatory label kept in the cache. Payload is the full
// upstream response document; Purpose is its first indications entry.
type LabelRecord struct {
	Purpose string          `json:"purpose"`
	Payload json.RawMessage `json:"data"`
}

// labelDocument is the subset of the regulatory response the pipeline reads.
type labelDocument struct {
	Results []struct {
		IndicationsAndUsage []string `json:"indications_and_usage"`
	} `json:"results"`
}

// NewLabelRecord builds a LabelRecord from a regulatory response body. A body
// with no results is rejected; a result with no indications yields
// PurposeNotAvailable.
func NewLabelRecord(payload []byte) (LabelRecord, error) {
	var doc labelDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return LabelRecord{}, errors.Wrap(err, errors.ErrCodeLabelFetchFailed, "regulatory response is not valid JSON")
	}
	if len(doc.Results) == 0 {
		return LabelRecord{}, errors.New(errors.ErrCodeLabelFetchFailed, "regulatory response has no results")
	}
	purpose := PurposeNotAvailable
	if ind := doc.Results[0].IndicationsAndUsage; len(ind) > 0 && strings.TrimSpace(ind[0]) != "" {
		purpose = ind[0]
	}
	return LabelRecord{Purpose: purpose, Payload: json.RawMessage(bytes.Clone(payload))}, nil
}

// FirstResult returns the raw JSON of results[0], or false when absent.
func (r LabelRecord) FirstResult() (json.RawMessage, bool) {
	var doc struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(r.Payload, &doc); err != nil || len(doc.Results) == 0 {
		return nil, false
	}
	return doc.Results[0], true
}

// Encode serializes the record into its cached form {"purpose", "data"}.
func (r LabelRecord) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode label record")
	}
	return data, nil
}

// DecodeLabelRecord parses a cached blob. Any malformed blob is a cache
// corruption error, which callers treat as a miss.
func DecodeLabelRecord(data []byte) (LabelRecord, error) {
	var r LabelRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return LabelRecord{}, errors.Wrap(err, errors.ErrCodeLabelCacheCorrupt, "cached label could not be decoded")
	}
	if r.Purpose == "" || len(r.Payload) == 0 {
		return LabelRecord{}, errors.New(errors.ErrCodeLabelCacheCorrupt, "cached label is incomplete")
	}
	return r, nil
}

// Correction is the outcome of a "not this pill" report.
type Correction struct {
	ReportedName     string      `json:"reported_name"`
	AlternateName    string      `json:"alternate_name"`
	AlternatePurpose string      `json:"alternate_purpose"`
	Record           LabelRecord `json:"-"`
}

// ConversationContext is the request-scoped state of one conversation turn.
type ConversationContext struct {
	ImprintNumber string
	GenericName   string
	UserQuery     string
	NotThisPill   bool
}

// TextDetection is one LINE detected in a pill photo.
type TextDetection struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// BoundingBox is expressed as ratios of the image dimensions.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

//Personal.AI order the ending
