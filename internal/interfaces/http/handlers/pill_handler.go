package handlers

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/PillScope/internal/application/identification"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/pkg/errors"
)

// multipartOverhead is allowed on top of the image limit for form framing.
const multipartOverhead = 1 << 20

// PillHandler exposes the identification pipeline over HTTP.
type PillHandler struct {
	pipeline  identification.Pipeline
	retry     identification.RetryPolicy
	maxUpload int64
	logger    logging.Logger
}

func NewPillHandler(pipeline identification.Pipeline, retry identification.RetryPolicy, maxUpload int64, logger logging.Logger) *PillHandler {
	if maxUpload <= 0 {
		maxUpload = identification.DefaultMaxImageBytes
	}
	if retry.Attempts < 1 {
		retry = identification.DefaultRetryPolicy
	}
	return &PillHandler{pipeline: pipeline, retry: retry, maxUpload: maxUpload, logger: logger}
}

// RegisterRoutes mounts the pill endpoints on an /api/v1 router.
func (h *PillHandler) RegisterRoutes(r chi.Router) {
	r.Post("/imprints/extract", h.ExtractImprint)
	r.Route("/pills", func(pr chi.Router) {
		pr.Post("/identify", h.Identify)
		pr.Post("/converse", h.Converse)
		pr.Post("/correct", h.Correct)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Request / response bodies
// ─────────────────────────────────────────────────────────────────────────────

type IdentifyRequest struct {
	ImprintCode string `json:"imprint_code"`
	UserQuery   string `json:"user_query,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// IdentifyResponse extends the web client's medicine card with the ranked
// candidates and pipeline trace.
type IdentifyResponse struct {
	ImprintNumber string                   `json:"imprint_number"`
	GenericName   string                   `json:"generic_name"`
	Summary       string                   `json:"summary"`
	ImageURL      string                   `json:"image_url,omitempty"`
	Purpose       string                   `json:"purpose"`
	Candidates    []pill.CandidateIdentity `json:"candidates"`
	CacheHit      bool                     `json:"cache_hit"`
	Stages        []pill.Stage             `json:"stages"`
}

type ConversationRequest struct {
	ImprintNumber string `json:"imprint_number"`
	GenericName   string `json:"generic_name"`
	UserQuery     string `json:"user_query"`
	NotThisPill   bool   `json:"not_this_pill"`
}

type CorrectRequest struct {
	GenericName string `json:"generic_name"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────────────────────────────────────

// ExtractImprint handles POST /api/v1/imprints/extract with a multipart
// "image" field.
func (h *PillHandler) ExtractImprint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)

	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			err = errors.New(errors.ErrCodePayloadTooLarge, "image exceeds the upload limit")
		case stderrors.Is(err, http.ErrMissingFile):
			err = errors.New(errors.ErrCodeImageInvalid, "no image file provided")
		default:
			err = errors.Wrap(err, errors.ErrCodeImageInvalid, "request is not a valid multipart upload")
		}
		writeAppError(w, r, h.logger, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		writeAppError(w, r, h.logger, errors.Wrap(err, errors.ErrCodeImageInvalid, "failed to read uploaded image"))
		return
	}

	in := identification.ExtractInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	res, err := run(r.Context(), h, func(ctx context.Context) (*identification.ExtractResult, error) {
		return h.pipeline.Extract(ctx, in)
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Identify handles POST /api/v1/pills/identify.
func (h *PillHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req IdentifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.ImprintCode) == "" {
		writeAppError(w, r, h.logger, errors.New(errors.ErrCodeValidation, "imprint_code is required"))
		return
	}

	in := identification.IdentifyInput{ImprintCode: req.ImprintCode, UserQuery: req.UserQuery}
	res, err := run(r.Context(), h, func(ctx context.Context) (*identification.IdentifyResult, error) {
		return h.pipeline.Identify(ctx, in)
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, IdentifyResponse{
		ImprintNumber: res.ImprintNumber,
		GenericName:   res.Canonical.GenericName,
		Summary:       res.Summary,
		ImageURL:      req.ImageURL,
		Purpose:       res.Purpose,
		Candidates:    res.Candidates,
		CacheHit:      res.CacheHit,
		Stages:        res.Stages,
	})
}

// Converse handles POST /api/v1/pills/converse. With not_this_pill set the
// reply describes the look-alike medication instead.
func (h *PillHandler) Converse(w http.ResponseWriter, r *http.Request) {
	var req ConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	cc := pill.ConversationContext{
		ImprintNumber: req.ImprintNumber,
		GenericName:   req.GenericName,
		UserQuery:     req.UserQuery,
		NotThisPill:   req.NotThisPill,
	}
	res, err := run(r.Context(), h, func(ctx context.Context) (*identification.ConversationResult, error) {
		return h.pipeline.Converse(ctx, cc)
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Correct handles POST /api/v1/pills/correct.
func (h *PillHandler) Correct(w http.ResponseWriter, r *http.Request) {
	var req CorrectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	res, err := run(r.Context(), h, func(ctx context.Context) (*identification.CorrectionResult, error) {
		return h.pipeline.Correct(ctx, req.GenericName)
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func run[T any](ctx context.Context, h *PillHandler, op func(context.Context) (T, error)) (T, error) {
	if h.retry.Attempts <= 1 {
		return op(ctx)
	}
	return identification.Retry(ctx, h.retry, logging.FromContext(ctx, h.logger), op)
}

//Personal.AI order the ending
