package identification

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/PillScope/internal/domain/lasa"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PillScope/pkg/errors"
)

type PipelineTestSuite struct {
	suite.Suite
	mr        *miniredis.Miniredis
	catalog   *fakeCatalog
	source    *fakeLabelSource
	generator *fakeGenerator
	detector  *fakeDetector
	images    *fakeImageStore
	events    *fakePublisher
	metrics   *prometheus.PillMetrics
	pipeline  Pipeline
}

func (s *PipelineTestSuite) SetupTest() {
	mr, client := newTestRedis(s.T())
	s.mr = mr
	s.catalog = &fakeCatalog{listing: m71Listing()}
	s.source = newFakeLabelSource()
	s.generator = &fakeGenerator{reply: "Allopurinol treats gout by lowering uric acid."}
	s.detector = &fakeDetector{lines: []pill.TextDetection{{Text: "M71", Confidence: 99.1}, {Text: "100", Confidence: 80}}}
	s.images = &fakeImageStore{url: "https://images.local/uploads/m71.png"}
	s.events = &fakePublisher{}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "pipeline_test"}, logging.NewNopLogger())
	s.Require().NoError(err)
	s.metrics = prometheus.NewPillMetrics(collector)

	table, err := lasa.LoadFile("../../../configs/lasa.json")
	s.Require().NoError(err)

	log := logging.NewNopLogger()
	p, err := NewPipeline(PipelineDeps{
		Resolver:  NewImprintResolver(s.catalog, 0, s.metrics, log),
		Labels:    NewLabelStore(newTestCache(client), s.source, LabelStoreConfig{}, s.metrics, log),
		Explainer: NewExplanationGenerator(s.generator, s.metrics, log),
		Corrector: NewCorrectionResolver(table, s.source, 0, s.metrics, log),
		Detector:  s.detector,
		Images:    s.images,
		Events:    s.events,
		Metrics:   s.metrics,
		Logger:    log,
	})
	s.Require().NoError(err)
	s.pipeline = p
}

func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func stagesOf(ss ...pill.Stage) []pill.Stage { return ss }

func (s *PipelineTestSuite) TestIdentify_M71EndToEnd() {
	res, err := s.pipeline.Identify(context.Background(), IdentifyInput{ImprintCode: "M71"})
	s.Require().NoError(err)

	s.Equal("Allopurinol", res.Canonical.GenericName)
	s.Equal("M71", res.ImprintNumber)
	s.Len(res.Candidates, 2)
	s.False(res.CacheHit)
	s.NotEmpty(res.Summary)
	s.NotContains(res.Summary, "**")
	s.Contains(res.Purpose, "gout")
	s.True(s.mr.Exists("M71:Allopurinol"))
	s.Equal(1, s.source.Calls())

	s.Equal(stagesOf(pill.StageReceived, pill.StageResolving, pill.StageCacheMiss, pill.StageFetching,
		pill.StageCaching, pill.StageExplaining, pill.StageDone), res.Stages)

	// the prompt is built from the label payload only
	prompt := s.generator.lastPrompt()
	s.Contains(prompt, "indications_and_usage:")
	s.NotContains(prompt, "Methocarbamol")

	events := s.events.Events()
	s.Require().Len(events, 1)
	s.Equal(pill.EventIdentified, events[0].Type)
	s.Equal("M71:Allopurinol", events[0].Key())
}

func (s *PipelineTestSuite) TestIdentify_SecondCallIsCacheHit() {
	ctx := context.Background()
	_, err := s.pipeline.Identify(ctx, IdentifyInput{ImprintCode: "M71"})
	s.Require().NoError(err)

	res, err := s.pipeline.Identify(ctx, IdentifyInput{ImprintCode: "M71"})
	s.Require().NoError(err)
	s.True(res.CacheHit)
	s.Equal(1, s.source.Calls())
	s.Equal(stagesOf(pill.StageReceived, pill.StageResolving, pill.StageCacheHit,
		pill.StageExplaining, pill.StageDone), res.Stages)
}

func (s *PipelineTestSuite) TestIdentify_KeysOnQueriedImprintNotCardLabel() {
	listing := m71Listing()
	listing.Imprints = []string{"M 71", "M 71"}
	s.catalog.listing = listing
	ctx := context.Background()

	res, err := s.pipeline.Identify(ctx, IdentifyInput{ImprintCode: " M71 "})
	s.Require().NoError(err)
	s.Equal("M71", res.ImprintNumber)
	s.Equal("M 71", res.Canonical.Imprint)
	s.True(s.mr.Exists("M71:Allopurinol"))
	s.False(s.mr.Exists("M 71:Allopurinol"))

	events := s.events.Events()
	s.Require().Len(events, 1)
	s.Equal("M71:Allopurinol", events[0].Key())

	conv, err := s.pipeline.Converse(ctx, pill.ConversationContext{ImprintNumber: "M71", GenericName: "Allopurinol"})
	s.Require().NoError(err)
	s.True(conv.CacheHit)
	s.Equal(1, s.source.Calls())
}

func (s *PipelineTestSuite) TestIdentify_UnknownImprint() {
	s.catalog.listing = pill.CatalogListing{}

	_, err := s.pipeline.Identify(context.Background(), IdentifyInput{ImprintCode: "NOPE"})
	s.Require().Error(err)
	s.Equal("ResolutionError", errors.KindOf(err))
	s.Equal(0, s.source.Calls())
	s.Empty(s.events.Events())
}

func (s *PipelineTestSuite) TestConverse_PrePopulatedCacheNeverFetches() {
	rec, err := pill.NewLabelRecord([]byte(allopurinolLabel))
	s.Require().NoError(err)
	blob, err := rec.Encode()
	s.Require().NoError(err)
	s.Require().NoError(s.mr.Set("M71:Allopurinol", string(blob)))

	res, err := s.pipeline.Converse(context.Background(), pill.ConversationContext{
		ImprintNumber: "M71",
		GenericName:   "Allopurinol",
		UserQuery:     "what are the warnings for this pill?",
	})
	s.Require().NoError(err)
	s.Equal(0, s.source.Calls())
	s.True(res.CacheHit)
	s.Equal("Allopurinol", res.GenericName)
	s.NotEmpty(res.Explanation)
	s.Contains(s.generator.lastPrompt(), "User's query: 'what are the warnings for this pill?'")
	s.Equal(0, int(s.catalog.calls.Load()))
}

func (s *PipelineTestSuite) TestConverse_FetchFailure() {
	_, err := s.pipeline.Converse(context.Background(), pill.ConversationContext{
		ImprintNumber: "X1",
		GenericName:   "Unobtainium",
	})
	s.Require().Error(err)
	s.Equal("FetchError", errors.KindOf(err))
	s.False(s.mr.Exists("X1:Unobtainium"))
}

func (s *PipelineTestSuite) TestConverse_NotThisPillSubstitutes() {
	res, err := s.pipeline.Converse(context.Background(), pill.ConversationContext{
		ImprintNumber: "T 50",
		GenericName:   "Tramadol",
		NotThisPill:   true,
	})
	s.Require().NoError(err)
	s.Equal("Trazodone", res.GenericName)
	s.Contains(res.NewPurpose, "major depressive disorder")
	s.True(strings.Contains(res.Message, "Trazodone"))
	s.NotEmpty(res.Explanation)
	s.Equal(stagesOf(pill.StageReceived, pill.StageResolving, pill.StageFetching,
		pill.StageExplaining, pill.StageDone), res.Stages)

	// corrections bypass the cache
	s.False(s.mr.Exists("T 50:Trazodone"))
	s.Len(s.mr.Keys(), 0)

	events := s.events.Events()
	s.Require().Len(events, 1)
	s.Equal(pill.EventCorrected, events[0].Type)
	s.Equal("Trazodone", events[0].AlternateName)
}

func (s *PipelineTestSuite) TestConverse_NotThisPillHydralazine() {
	s.NotPanics(func() {
		_, err := s.pipeline.Converse(context.Background(), pill.ConversationContext{
			ImprintNumber: "EP 102",
			GenericName:   "Hydralazine",
			NotThisPill:   true,
		})
		s.Require().Error(err)
		s.True(errors.IsCode(err, errors.ErrCodeCorrectionNotFound))
	})
	s.Equal(0, s.source.Calls())
}

func (s *PipelineTestSuite) TestConverse_RequiresGenericName() {
	_, err := s.pipeline.Converse(context.Background(), pill.ConversationContext{ImprintNumber: "M71"})
	s.True(errors.IsCode(err, errors.ErrCodeValidation))
}

func (s *PipelineTestSuite) TestCorrect() {
	s.source.bodies["Tramadol"] = `{"results":[{"description":["Tramadol hydrochloride tablets"]}]}`

	res, err := s.pipeline.Correct(context.Background(), "Trazodone")
	s.Require().NoError(err)
	s.Equal("Tramadol", res.AlternateName)
	s.Equal(pill.PurposeNotAvailable, res.AlternatePurpose)
	s.NotEmpty(res.Summary)
}

func (s *PipelineTestSuite) TestExplanationFailureFailsTrace() {
	s.generator.err = errors.New(errors.ErrCodeExplanationFailed, "generation returned no choices")

	_, err := s.pipeline.Identify(context.Background(), IdentifyInput{ImprintCode: "M71"})
	s.Require().Error(err)
	s.Equal("ExplanationError", errors.KindOf(err))
	// the label is still cached for the next attempt
	s.True(s.mr.Exists("M71:Allopurinol"))
}

func (s *PipelineTestSuite) TestEventFailureIsNotSurfaced() {
	s.events.err = errors.New(errors.ErrCodeExternalService, "broker down")

	_, err := s.pipeline.Identify(context.Background(), IdentifyInput{ImprintCode: "M71"})
	s.NoError(err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Extract
// ─────────────────────────────────────────────────────────────────────────────

func (s *PipelineTestSuite) TestExtract_FirstLineIsImprint() {
	res, err := s.pipeline.Extract(context.Background(), ExtractInput{
		Filename:    "pill.PNG",
		ContentType: "image/png",
		Data:        []byte("\x89PNG fake"),
	})
	s.Require().NoError(err)
	s.Equal("M71", res.ImprintCode)
	s.Len(res.Detections, 2)
	s.Equal("https://images.local/uploads/m71.png", res.ImageURL)
	s.Equal([]string{"pill.PNG"}, s.images.saved)
}

func (s *PipelineTestSuite) TestExtract_Validation() {
	ctx := context.Background()

	_, err := s.pipeline.Extract(ctx, ExtractInput{Filename: "pill.gif", Data: []byte("x")})
	s.True(errors.IsCode(err, errors.ErrCodeImageInvalid))

	_, err = s.pipeline.Extract(ctx, ExtractInput{Filename: "pill.jpg"})
	s.True(errors.IsCode(err, errors.ErrCodeImageInvalid))

	_, err = s.pipeline.Extract(ctx, ExtractInput{Filename: "noext", Data: []byte("x")})
	s.True(errors.IsCode(err, errors.ErrCodeImageInvalid))

	big := make([]byte, DefaultMaxImageBytes+1)
	_, err = s.pipeline.Extract(ctx, ExtractInput{Filename: "pill.jpeg", Data: big})
	s.True(errors.IsCode(err, errors.ErrCodePayloadTooLarge))

	s.Equal(int32(0), s.detector.calls.Load())
}

func (s *PipelineTestSuite) TestExtract_NoText() {
	s.detector.lines = nil

	_, err := s.pipeline.Extract(context.Background(), ExtractInput{Filename: "pill.jpg", Data: []byte("x")})
	s.True(errors.IsCode(err, errors.ErrCodeTextNotDetected))
	s.Equal("OCRError", errors.KindOf(err))
}

func (s *PipelineTestSuite) TestExtract_StorageFailureStillReturnsImprint() {
	s.images.err = errors.New(errors.ErrCodeExternalService, "bucket unreachable")

	res, err := s.pipeline.Extract(context.Background(), ExtractInput{Filename: "pill.jpg", Data: []byte("x")})
	s.Require().NoError(err)
	s.Equal("M71", res.ImprintCode)
	s.Empty(res.ImageURL)
}

func TestNewPipeline_RequiresCoreDeps(t *testing.T) {
	_, err := NewPipeline(PipelineDeps{})
	if err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestAllowedImageFile(t *testing.T) {
	for name, want := range map[string]bool{
		"a.png": true, "a.JPG": true, "a.jpeg": true, "a.jpg.exe": false, "a.gif": false, "": false,
	} {
		if got := AllowedImageFile(name); got != want {
			t.Errorf("AllowedImageFile(%q) = %v, want %v", name, got, want)
		}
	}
}

//Personal.AI order the ending
