package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/PillScope/internal/application/identification"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/pkg/errors"
)

type fakePipeline struct {
	identify func(ctx context.Context, in identification.IdentifyInput) (*identification.IdentifyResult, error)
	converse func(ctx context.Context, cc pill.ConversationContext) (*identification.ConversationResult, error)
	correct  func(ctx context.Context, name string) (*identification.CorrectionResult, error)
	extract  func(ctx context.Context, in identification.ExtractInput) (*identification.ExtractResult, error)
}

func (f *fakePipeline) Identify(ctx context.Context, in identification.IdentifyInput) (*identification.IdentifyResult, error) {
	return f.identify(ctx, in)
}

func (f *fakePipeline) Converse(ctx context.Context, cc pill.ConversationContext) (*identification.ConversationResult, error) {
	return f.converse(ctx, cc)
}

func (f *fakePipeline) Correct(ctx context.Context, name string) (*identification.CorrectionResult, error) {
	return f.correct(ctx, name)
}

func (f *fakePipeline) Extract(ctx context.Context, in identification.ExtractInput) (*identification.ExtractResult, error) {
	return f.extract(ctx, in)
}

type PillHandlerSuite struct {
	suite.Suite
	pipeline *fakePipeline
	router   chi.Router
}

func (s *PillHandlerSuite) SetupTest() {
	s.pipeline = &fakePipeline{}
	s.mount(identification.DefaultRetryPolicy, 1024)
}

func (s *PillHandlerSuite) mount(policy identification.RetryPolicy, maxUpload int64) {
	h := NewPillHandler(s.pipeline, policy, maxUpload, logging.NewNopLogger())
	s.router = chi.NewRouter()
	s.router.Route("/api/v1", h.RegisterRoutes)
}

func (s *PillHandlerSuite) postJSON(path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, r)
	return w
}

func (s *PillHandlerSuite) decodeError(w *httptest.ResponseRecorder) ErrorResponse {
	var resp ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *PillHandlerSuite) TestIdentify_MedicineCard() {
	s.pipeline.identify = func(_ context.Context, in identification.IdentifyInput) (*identification.IdentifyResult, error) {
		s.Equal("M71", in.ImprintCode)
		canonical := pill.CandidateIdentity{Imprint: "M 71", GenericName: "Allopurinol", Confidence: 1}
		return &identification.IdentifyResult{
			ImprintNumber: "M71",
			Candidates:    []pill.CandidateIdentity{canonical},
			Canonical:     canonical,
			Purpose:       "Allopurinol is indicated in gout.",
			Summary:       "Allopurinol treats gout.",
			Stages:        []pill.Stage{pill.StageReceived, pill.StageDone},
		}, nil
	}

	w := s.postJSON("/api/v1/pills/identify", `{"imprint_code":"M71","image_url":"http://img/1.png"}`)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp IdentifyResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("M71", resp.ImprintNumber)
	s.Equal("Allopurinol", resp.GenericName)
	s.Equal("Allopurinol treats gout.", resp.Summary)
	s.Equal("http://img/1.png", resp.ImageURL)
	s.Require().Len(resp.Candidates, 1)
	s.Equal("M 71", resp.Candidates[0].Imprint)
	s.Equal([]pill.Stage{pill.StageReceived, pill.StageDone}, resp.Stages)
}

func (s *PillHandlerSuite) TestIdentify_MissingImprint() {
	w := s.postJSON("/api/v1/pills/identify", `{"imprint_code":"  "}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("ValidationError", s.decodeError(w).Kind)
}

func (s *PillHandlerSuite) TestIdentify_InvalidJSON() {
	w := s.postJSON("/api/v1/pills/identify", `{"imprint_code":`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("ValidationError", s.decodeError(w).Kind)
}

func (s *PillHandlerSuite) TestIdentify_ResolutionErrorMapsTo404() {
	s.pipeline.identify = func(context.Context, identification.IdentifyInput) (*identification.IdentifyResult, error) {
		return nil, errors.New(errors.ErrCodeResolutionFailed, "no pill found for imprint").WithDetail("ZZZ999")
	}

	w := s.postJSON("/api/v1/pills/identify", `{"imprint_code":"ZZZ999"}`)
	s.Equal(http.StatusNotFound, w.Code)
	resp := s.decodeError(w)
	s.Equal("ResolutionError", resp.Kind)
	s.Equal("PILL_001", resp.Code)
	s.Equal("ZZZ999", resp.Details)
}

func (s *PillHandlerSuite) TestIdentify_RetriesTransientFetch() {
	s.mount(identification.RetryPolicy{Attempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}, 1024)
	calls := 0
	s.pipeline.identify = func(context.Context, identification.IdentifyInput) (*identification.IdentifyResult, error) {
		calls++
		if calls == 1 {
			return nil, errors.New(errors.ErrCodeLabelFetchFailed, "label service returned 503").MarkRetryable()
		}
		return &identification.IdentifyResult{ImprintNumber: "M71", Canonical: pill.CandidateIdentity{Imprint: "M71", GenericName: "Allopurinol"}}, nil
	}

	w := s.postJSON("/api/v1/pills/identify", `{"imprint_code":"M71"}`)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(2, calls)
}

func (s *PillHandlerSuite) TestIdentify_UnclassifiedErrorIsMasked() {
	s.pipeline.identify = func(context.Context, identification.IdentifyInput) (*identification.IdentifyResult, error) {
		return nil, context.DeadlineExceeded
	}

	w := s.postJSON("/api/v1/pills/identify", `{"imprint_code":"M71"}`)
	s.Equal(http.StatusInternalServerError, w.Code)
	resp := s.decodeError(w)
	s.Equal("InternalError", resp.Kind)
	s.NotContains(w.Body.String(), "deadline")
}

func (s *PillHandlerSuite) TestConverse_ChatResponse() {
	s.pipeline.converse = func(_ context.Context, cc pill.ConversationContext) (*identification.ConversationResult, error) {
		s.True(cc.NotThisPill)
		s.Equal("Tramadol", cc.GenericName)
		return &identification.ConversationResult{
			ImprintNumber: cc.ImprintNumber,
			GenericName:   "Trazodone",
			UserQuery:     cc.UserQuery,
			Explanation:   "Trazodone treats depression.",
			Message:       "This pill may be Trazodone rather than Tramadol.",
			NewPurpose:    "major depressive disorder",
		}, nil
	}

	w := s.postJSON("/api/v1/pills/converse",
		`{"imprint_number":"AN 627","generic_name":"Tramadol","user_query":"what is it?","not_this_pill":true}`)
	s.Require().Equal(http.StatusOK, w.Code)

	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("Trazodone", body["generic_name"])
	s.Equal("AN 627", body["imprint_number"])
	s.Equal("what is it?", body["user_query"])
	s.Equal("This pill may be Trazodone rather than Tramadol.", body["message"])
	s.Equal("major depressive disorder", body["new_purpose"])
	s.Equal("Trazodone treats depression.", body["explanation"])
}

func (s *PillHandlerSuite) TestCorrect_NotFound() {
	s.pipeline.correct = func(_ context.Context, name string) (*identification.CorrectionResult, error) {
		return nil, errors.New(errors.ErrCodeCorrectionNotFound, "no look-alike medication known").WithDetail(name)
	}

	w := s.postJSON("/api/v1/pills/correct", `{"generic_name":"Hydralazine"}`)
	s.Equal(http.StatusNotFound, w.Code)
	resp := s.decodeError(w)
	s.Equal("CorrectionNotFound", resp.Kind)
	s.Equal("Hydralazine", resp.Details)
}

func (s *PillHandlerSuite) TestCorrect_OK() {
	s.pipeline.correct = func(_ context.Context, name string) (*identification.CorrectionResult, error) {
		return &identification.CorrectionResult{ReportedName: name, AlternateName: "Trazodone", Summary: "s"}, nil
	}

	w := s.postJSON("/api/v1/pills/correct", `{"generic_name":"Tramadol"}`)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"alternate_name":"Trazodone"`)
}

func multipartImage(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (s *PillHandlerSuite) TestExtract_PassesUploadToPipeline() {
	s.pipeline.extract = func(_ context.Context, in identification.ExtractInput) (*identification.ExtractResult, error) {
		s.Equal("pill.png", in.Filename)
		s.Equal([]byte("fake-png"), in.Data)
		return &identification.ExtractResult{
			ImprintCode: "M71",
			Detections:  []pill.TextDetection{{Text: "M71", Confidence: 99.1}},
		}, nil
	}

	body, ct := multipartImage(s.T(), "image", "pill.png", []byte("fake-png"))
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/imprints/extract", body)
	r.Header.Set("Content-Type", ct)
	s.router.ServeHTTP(w, r)

	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"imprint_code":"M71"`)
}

func (s *PillHandlerSuite) TestExtract_MissingImageField() {
	body, ct := multipartImage(s.T(), "photo", "pill.png", []byte("x"))
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/imprints/extract", body)
	r.Header.Set("Content-Type", ct)
	s.router.ServeHTTP(w, r)

	s.Equal(http.StatusBadRequest, w.Code)
	resp := s.decodeError(w)
	s.Equal("OCR_001", resp.Code)
	s.Equal("no image file provided", resp.Message)
}

func (s *PillHandlerSuite) TestExtract_NotMultipart() {
	w := s.postJSON("/api/v1/imprints/extract", `{}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("ValidationError", s.decodeError(w).Kind)
}

func (s *PillHandlerSuite) TestExtract_PipelineRejection() {
	s.pipeline.extract = func(context.Context, identification.ExtractInput) (*identification.ExtractResult, error) {
		return nil, errors.New(errors.ErrCodeTextNotDetected, "no text detected in image")
	}

	body, ct := multipartImage(s.T(), "image", "pill.jpg", []byte("x"))
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/imprints/extract", body)
	r.Header.Set("Content-Type", ct)
	s.router.ServeHTTP(w, r)

	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("OCRError", s.decodeError(w).Kind)
}

func TestPillHandlerSuite(t *testing.T) {
	suite.Run(t, new(PillHandlerSuite))
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	var dst map[string]string
	big := `{"a":"` + strings.Repeat("x", maxJSONBody) + `"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))

	err := decodeJSON(w, r, &dst)
	assert.True(t, errors.IsCode(err, errors.ErrCodePayloadTooLarge))
}

//Personal.AI order the ending
