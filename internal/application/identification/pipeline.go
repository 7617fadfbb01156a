package identification

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PillScope/pkg/errors"
)

// ============================================================================
// Constants
// ============================================================================

const (
	OperationIdentify = "identify"
	OperationConverse = "converse"
	OperationCorrect  = "correct"
	OperationExtract  = "extract"

	DefaultMaxImageBytes = 16 << 20

	// eventTimeout bounds best-effort event publication.
	eventTimeout = 2 * time.Second
)

// AllowedImageExtensions lists the upload formats the text detector accepts.
var AllowedImageExtensions = []string{"png", "jpg", "jpeg"}

// ============================================================================
// DTOs
// ============================================================================

type IdentifyInput struct {
	ImprintCode string
	UserQuery   string
}

// IdentifyResult is keyed by the queried imprint. Candidate imprints are the
// catalog's own card labels and may be spelled differently ("M 71").
type IdentifyResult struct {
	ImprintNumber string                   `json:"imprint_number"`
	Candidates    []pill.CandidateIdentity `json:"candidates"`
	Canonical     pill.CandidateIdentity   `json:"canonical"`
	Purpose       string                   `json:"purpose"`
	Summary       string                   `json:"summary"`
	CacheHit      bool                     `json:"cache_hit"`
	Stages        []pill.Stage             `json:"stages"`
}

type ConversationResult struct {
	ImprintNumber string       `json:"imprint_number"`
	GenericName   string       `json:"generic_name"`
	UserQuery     string       `json:"user_query,omitempty"`
	Explanation   string       `json:"explanation"`
	Message       string       `json:"message,omitempty"`
	NewPurpose    string       `json:"new_purpose,omitempty"`
	CacheHit      bool         `json:"cache_hit"`
	Stages        []pill.Stage `json:"stages"`
}

type CorrectionResult struct {
	ReportedName     string       `json:"reported_name"`
	AlternateName    string       `json:"alternate_name"`
	AlternatePurpose string       `json:"alternate_purpose"`
	Summary          string       `json:"summary"`
	Stages           []pill.Stage `json:"stages"`
}

type ExtractInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExtractResult struct {
	ImprintCode string               `json:"imprint_code"`
	Detections  []pill.TextDetection `json:"detections"`
	ImageURL    string               `json:"image_url,omitempty"`
}

// ============================================================================
// Pipeline
// ============================================================================

// Pipeline runs one request through resolve, cache-or-fetch and explain,
// recording the stages it passes.
type Pipeline interface {
	Identify(ctx context.Context, in IdentifyInput) (*IdentifyResult, error)
	Converse(ctx context.Context, cc pill.ConversationContext) (*ConversationResult, error)
	Correct(ctx context.Context, genericName string) (*CorrectionResult, error)
	Extract(ctx context.Context, in ExtractInput) (*ExtractResult, error)
}

// PipelineDeps wires a Pipeline. Detector, Images, Events and Metrics are
// optional.
type PipelineDeps struct {
	Resolver      ImprintResolver
	Labels        LabelStore
	Explainer     ExplanationGenerator
	Corrector     CorrectionResolver
	Detector      pill.TextDetector
	Images        pill.ImageStore
	Events        pill.EventPublisher
	Metrics       *prometheus.PillMetrics
	Logger        logging.Logger
	MaxImageBytes int64
}

type pipelineImpl struct {
	resolver      ImprintResolver
	labels        LabelStore
	explainer     ExplanationGenerator
	corrector     CorrectionResolver
	detector      pill.TextDetector
	images        pill.ImageStore
	events        pill.EventPublisher
	metrics       *prometheus.PillMetrics
	logger        logging.Logger
	maxImageBytes int64
}

func NewPipeline(d PipelineDeps) (Pipeline, error) {
	if d.Resolver == nil || d.Labels == nil || d.Explainer == nil || d.Corrector == nil {
		return nil, errors.New(errors.ErrCodeInternal, "pipeline requires resolver, label store, explainer and corrector")
	}
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	if d.MaxImageBytes <= 0 {
		d.MaxImageBytes = DefaultMaxImageBytes
	}
	return &pipelineImpl{
		resolver:      d.Resolver,
		labels:        d.Labels,
		explainer:     d.Explainer,
		corrector:     d.Corrector,
		detector:      d.Detector,
		images:        d.Images,
		events:        d.Events,
		metrics:       d.Metrics,
		logger:        d.Logger,
		maxImageBytes: d.MaxImageBytes,
	}, nil
}

func (p *pipelineImpl) Identify(ctx context.Context, in IdentifyInput) (res *IdentifyResult, err error) {
	start := time.Now()
	defer func() { p.finish(OperationIdentify, start, err) }()

	trace := pill.NewTrace()
	p.advance(trace, pill.StageResolving)

	candidates, err := p.resolver.ResolveAll(ctx, in.ImprintCode)
	if err != nil {
		p.fail(trace, err)
		return nil, err
	}
	canonical := candidates[0]
	imprint := strings.TrimSpace(in.ImprintCode)

	lookup, err := p.lookupLabel(ctx, trace, canonical.GenericName, imprint)
	if err != nil {
		return nil, err
	}

	summary, err := p.explain(ctx, trace, lookup.Record, in.UserQuery)
	if err != nil {
		return nil, err
	}
	p.advance(trace, pill.StageDone)

	res = &IdentifyResult{
		ImprintNumber: imprint,
		Candidates:    candidates,
		Canonical:     canonical,
		Purpose:       lookup.Record.Purpose,
		Summary:       summary,
		CacheHit:      lookup.CacheHit(),
		Stages:        trace.Stages(),
	}
	ev := pill.NewEvent(pill.EventIdentified, imprint, canonical.GenericName)
	ev.CacheHit, ev.Stages = res.CacheHit, res.Stages
	p.publish(ctx, ev)
	return res, nil
}

func (p *pipelineImpl) Converse(ctx context.Context, cc pill.ConversationContext) (res *ConversationResult, err error) {
	start := time.Now()
	defer func() { p.finish(OperationConverse, start, err) }()

	if strings.TrimSpace(cc.GenericName) == "" {
		return nil, errors.New(errors.ErrCodeValidation, "generic_name is required")
	}

	trace := pill.NewTrace()
	p.advance(trace, pill.StageResolving)

	if cc.NotThisPill {
		return p.converseCorrected(ctx, trace, cc)
	}

	lookup, err := p.lookupLabel(ctx, trace, cc.GenericName, cc.ImprintNumber)
	if err != nil {
		return nil, err
	}
	explanation, err := p.explain(ctx, trace, lookup.Record, cc.UserQuery)
	if err != nil {
		return nil, err
	}
	p.advance(trace, pill.StageDone)

	res = &ConversationResult{
		ImprintNumber: cc.ImprintNumber,
		GenericName:   cc.GenericName,
		UserQuery:     cc.UserQuery,
		Explanation:   explanation,
		CacheHit:      lookup.CacheHit(),
		Stages:        trace.Stages(),
	}
	ev := pill.NewEvent(pill.EventExplained, cc.ImprintNumber, cc.GenericName)
	ev.CacheHit, ev.Stages = res.CacheHit, res.Stages
	p.publish(ctx, ev)
	return res, nil
}

func (p *pipelineImpl) converseCorrected(ctx context.Context, trace *pill.Trace, cc pill.ConversationContext) (*ConversationResult, error) {
	corr, summary, err := p.correct(ctx, trace, cc.GenericName, cc.UserQuery)
	if err != nil {
		return nil, err
	}
	res := &ConversationResult{
		ImprintNumber: cc.ImprintNumber,
		GenericName:   corr.AlternateName,
		UserQuery:     cc.UserQuery,
		Explanation:   summary,
		Message:       fmt.Sprintf("This pill may be %s rather than %s.", corr.AlternateName, corr.ReportedName),
		NewPurpose:    corr.AlternatePurpose,
		Stages:        trace.Stages(),
	}
	p.publishCorrection(ctx, cc.ImprintNumber, corr, res.Stages)
	return res, nil
}

func (p *pipelineImpl) Correct(ctx context.Context, genericName string) (res *CorrectionResult, err error) {
	start := time.Now()
	defer func() { p.finish(OperationCorrect, start, err) }()

	trace := pill.NewTrace()
	p.advance(trace, pill.StageResolving)

	corr, summary, err := p.correct(ctx, trace, genericName, "")
	if err != nil {
		return nil, err
	}
	res = &CorrectionResult{
		ReportedName:     corr.ReportedName,
		AlternateName:    corr.AlternateName,
		AlternatePurpose: corr.AlternatePurpose,
		Summary:          summary,
		Stages:           trace.Stages(),
	}
	p.publishCorrection(ctx, "", corr, res.Stages)
	return res, nil
}

// correct walks Resolving -> Fetching -> Explaining -> Done. The alternate's
// label is fetched directly and never cached.
func (p *pipelineImpl) correct(ctx context.Context, trace *pill.Trace, name, userQuery string) (pill.Correction, string, error) {
	corr, err := p.corrector.Correct(ctx, name)
	if err != nil {
		p.fail(trace, err)
		return pill.Correction{}, "", err
	}
	p.advance(trace, pill.StageFetching)

	summary, err := p.explain(ctx, trace, corr.Record, userQuery)
	if err != nil {
		return pill.Correction{}, "", err
	}
	p.advance(trace, pill.StageDone)
	return corr, summary, nil
}

func (p *pipelineImpl) Extract(ctx context.Context, in ExtractInput) (res *ExtractResult, err error) {
	start := time.Now()
	defer func() { p.finish(OperationExtract, start, err) }()

	if p.detector == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "text detection is not configured")
	}
	if err := p.validateImage(in); err != nil {
		return nil, err
	}

	detStart := time.Now()
	detections, err := p.detector.DetectLines(ctx, in.Data)
	prometheus.RecordUpstream(p.metrics, "ocr", err, time.Since(detStart))
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 || strings.TrimSpace(detections[0].Text) == "" {
		return nil, errors.New(errors.ErrCodeTextNotDetected, "no text detected in image").WithDetail(in.Filename)
	}

	res = &ExtractResult{
		ImprintCode: strings.TrimSpace(detections[0].Text),
		Detections:  detections,
	}
	if p.images != nil {
		url, err := p.images.Save(ctx, in.Filename, in.ContentType, in.Data)
		if err != nil {
			p.logger.Warn("failed to store uploaded image", logging.String("filename", in.Filename), logging.Err(err))
		} else {
			res.ImageURL = url
		}
	}
	return res, nil
}

func (p *pipelineImpl) validateImage(in ExtractInput) error {
	if len(in.Data) == 0 {
		return errors.New(errors.ErrCodeImageInvalid, "image is empty")
	}
	if int64(len(in.Data)) > p.maxImageBytes {
		return errors.Newf(errors.ErrCodePayloadTooLarge, "image exceeds %d bytes", p.maxImageBytes)
	}
	if !AllowedImageFile(in.Filename) {
		return errors.New(errors.ErrCodeImageInvalid, "invalid file type").
			WithDetail("allowed file types are: " + strings.Join(AllowedImageExtensions, ", "))
	}
	return nil
}

// AllowedImageFile reports whether filename carries an accepted extension.
func AllowedImageFile(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, a := range AllowedImageExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// ============================================================================
// Stage helpers
// ============================================================================

// lookupLabel records the cache branch taken by the label store.
func (p *pipelineImpl) lookupLabel(ctx context.Context, trace *pill.Trace, genericName, imprint string) (LabelLookup, error) {
	lookup, err := p.labels.Lookup(ctx, genericName, imprint)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeLabelFetchFailed) {
			p.advance(trace, pill.StageCacheMiss)
			p.advance(trace, pill.StageFetching)
		}
		p.fail(trace, err)
		return LabelLookup{}, err
	}
	switch lookup.Source {
	case SourceCache:
		p.advance(trace, pill.StageCacheHit)
	case SourceFetch:
		p.advance(trace, pill.StageCacheMiss)
		p.advance(trace, pill.StageFetching)
		p.advance(trace, pill.StageCaching)
	default:
		p.advance(trace, pill.StageCacheMiss)
		p.advance(trace, pill.StageCacheHit)
	}
	return lookup, nil
}

func (p *pipelineImpl) explain(ctx context.Context, trace *pill.Trace, rec pill.LabelRecord, userQuery string) (string, error) {
	p.advance(trace, pill.StageExplaining)
	text, err := p.explainer.Explain(ctx, rec, userQuery)
	if err != nil {
		p.fail(trace, err)
		return "", err
	}
	return text, nil
}

func (p *pipelineImpl) advance(trace *pill.Trace, to pill.Stage) {
	if err := trace.Advance(to); err != nil {
		p.logger.Error("stage transition rejected", logging.String("trace", trace.String()), logging.Err(err))
		return
	}
	prometheus.RecordStage(p.metrics, string(to))
}

func (p *pipelineImpl) fail(trace *pill.Trace, err error) {
	trace.Fail(errors.KindOf(err))
	prometheus.RecordStage(p.metrics, string(pill.StageFailed))
	p.logger.Info("pipeline request failed",
		logging.String("trace", trace.String()),
		logging.String("kind", errors.KindOf(err)),
		logging.Err(err),
	)
}

func (p *pipelineImpl) finish(op string, start time.Time, err error) {
	prometheus.RecordPipeline(p.metrics, op, err, time.Since(start), errors.KindOf(err))
}

func (p *pipelineImpl) publishCorrection(ctx context.Context, imprint string, corr pill.Correction, stages []pill.Stage) {
	ev := pill.NewEvent(pill.EventCorrected, imprint, corr.ReportedName)
	ev.AlternateName, ev.Stages = corr.AlternateName, stages
	p.publish(ctx, ev)
}

// publish is best-effort: failures are logged and counted, never returned.
func (p *pipelineImpl) publish(ctx context.Context, ev pill.Event) {
	if p.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	err := p.events.Publish(pctx, ev)
	prometheus.RecordEvent(p.metrics, string(ev.Type), err)
	if err != nil {
		p.logger.Warn("failed to publish pipeline event",
			logging.String("event_type", string(ev.Type)),
			logging.String("event_id", ev.ID),
			logging.Err(err),
		)
	}
}

//Personal.AI order the ending
