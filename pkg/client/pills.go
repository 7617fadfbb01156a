package client

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
)

// Candidate is one catalog match for an imprint.
type Candidate struct {
	Imprint     string            `json:"imprint"`
	GenericName string            `json:"generic_name"`
	Description map[string]string `json:"description,omitempty"`
	Confidence  float64           `json:"confidence"`
	Rank        int               `json:"rank"`
}

type IdentifyRequest struct {
	ImprintCode string `json:"imprint_code"`
	UserQuery   string `json:"user_query,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type IdentifyResponse struct {
	ImprintNumber string      `json:"imprint_number"`
	GenericName   string      `json:"generic_name"`
	Summary       string      `json:"summary"`
	ImageURL      string      `json:"image_url,omitempty"`
	Purpose       string      `json:"purpose"`
	Candidates    []Candidate `json:"candidates"`
	CacheHit      bool        `json:"cache_hit"`
	Stages        []string    `json:"stages"`
}

type ConversationRequest struct {
	ImprintNumber string `json:"imprint_number"`
	GenericName   string `json:"generic_name"`
	UserQuery     string `json:"user_query"`
	NotThisPill   bool   `json:"not_this_pill"`
}

type ChatResponse struct {
	ImprintNumber string   `json:"imprint_number"`
	GenericName   string   `json:"generic_name"`
	UserQuery     string   `json:"user_query,omitempty"`
	Explanation   string   `json:"explanation"`
	Message       string   `json:"message,omitempty"`
	NewPurpose    string   `json:"new_purpose,omitempty"`
	CacheHit      bool     `json:"cache_hit"`
	Stages        []string `json:"stages"`
}

type CorrectionResponse struct {
	ReportedName     string   `json:"reported_name"`
	AlternateName    string   `json:"alternate_name"`
	AlternatePurpose string   `json:"alternate_purpose"`
	Summary          string   `json:"summary"`
	Stages           []string `json:"stages"`
}

type Detection struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type ExtractResponse struct {
	ImprintCode string      `json:"imprint_code"`
	Detections  []Detection `json:"detections"`
	ImageURL    string      `json:"image_url,omitempty"`
}

// Identify resolves an imprint and explains the canonical match.
func (c *Client) Identify(ctx context.Context, in IdentifyRequest) (*IdentifyResponse, error) {
	req, err := jsonRequest(http.MethodPost, "/api/v1/pills/identify", in)
	if err != nil {
		return nil, err
	}
	var out IdentifyResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Converse answers a follow-up question about an identified pill.
func (c *Client) Converse(ctx context.Context, in ConversationRequest) (*ChatResponse, error) {
	req, err := jsonRequest(http.MethodPost, "/api/v1/pills/converse", in)
	if err != nil {
		return nil, err
	}
	var out ChatResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Correct looks up the medication commonly confused with genericName.
func (c *Client) Correct(ctx context.Context, genericName string) (*CorrectionResponse, error) {
	req, err := jsonRequest(http.MethodPost, "/api/v1/pills/correct", map[string]string{"generic_name": genericName})
	if err != nil {
		return nil, err
	}
	var out CorrectionResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtractImprint uploads a pill photo and returns the detected imprint.
func (c *Client) ExtractImprint(ctx context.Context, filename string, image []byte) (*ExtractResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	payload := buf.Bytes()

	req := request{
		method:      http.MethodPost,
		path:        "/api/v1/imprints/extract",
		contentType: mw.FormDataContentType(),
		newBody:     func() io.Reader { return bytes.NewReader(payload) },
	}
	var out ExtractResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health calls the liveness probe.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodGet, path: "/healthz"}, nil)
}

//Personal.AI order the ending
