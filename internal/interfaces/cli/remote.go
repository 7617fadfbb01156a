package cli

import (
	"context"

	"github.com/turtacn/PillScope/internal/application/identification"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/pkg/client"
)

// remotePipeline serves identification.Pipeline from a PillScope API
// server through the Go SDK.
type remotePipeline struct {
	api *client.Client
}

var _ identification.Pipeline = (*remotePipeline)(nil)

func (p *remotePipeline) Identify(ctx context.Context, in identification.IdentifyInput) (*identification.IdentifyResult, error) {
	resp, err := p.api.Identify(ctx, client.IdentifyRequest{ImprintCode: in.ImprintCode, UserQuery: in.UserQuery})
	if err != nil {
		return nil, err
	}
	res := &identification.IdentifyResult{
		ImprintNumber: resp.ImprintNumber,
		Purpose:       resp.Purpose,
		Summary:       resp.Summary,
		CacheHit:      resp.CacheHit,
		Stages:        toStages(resp.Stages),
	}
	for _, c := range resp.Candidates {
		res.Candidates = append(res.Candidates, pill.CandidateIdentity{
			Imprint:     c.Imprint,
			GenericName: c.GenericName,
			Description: c.Description,
			Confidence:  c.Confidence,
			Rank:        c.Rank,
		})
	}
	res.Canonical = pill.CandidateIdentity{Imprint: resp.ImprintNumber, GenericName: resp.GenericName, Rank: 1}
	if len(res.Candidates) > 0 {
		res.Canonical = res.Candidates[0]
	}
	return res, nil
}

func (p *remotePipeline) Converse(ctx context.Context, cc pill.ConversationContext) (*identification.ConversationResult, error) {
	resp, err := p.api.Converse(ctx, client.ConversationRequest{
		ImprintNumber: cc.ImprintNumber,
		GenericName:   cc.GenericName,
		UserQuery:     cc.UserQuery,
		NotThisPill:   cc.NotThisPill,
	})
	if err != nil {
		return nil, err
	}
	return &identification.ConversationResult{
		ImprintNumber: resp.ImprintNumber,
		GenericName:   resp.GenericName,
		UserQuery:     resp.UserQuery,
		Explanation:   resp.Explanation,
		Message:       resp.Message,
		NewPurpose:    resp.NewPurpose,
		CacheHit:      resp.CacheHit,
		Stages:        toStages(resp.Stages),
	}, nil
}

func (p *remotePipeline) Correct(ctx context.Context, genericName string) (*identification.CorrectionResult, error) {
	resp, err := p.api.Correct(ctx, genericName)
	if err != nil {
		return nil, err
	}
	return &identification.CorrectionResult{
		ReportedName:     resp.ReportedName,
		AlternateName:    resp.AlternateName,
		AlternatePurpose: resp.AlternatePurpose,
		Summary:          resp.Summary,
		Stages:           toStages(resp.Stages),
	}, nil
}

func (p *remotePipeline) Extract(ctx context.Context, in identification.ExtractInput) (*identification.ExtractResult, error) {
	resp, err := p.api.ExtractImprint(ctx, in.Filename, in.Data)
	if err != nil {
		return nil, err
	}
	res := &identification.ExtractResult{ImprintCode: resp.ImprintCode, ImageURL: resp.ImageURL}
	for _, d := range resp.Detections {
		res.Detections = append(res.Detections, pill.TextDetection{Text: d.Text, Confidence: d.Confidence})
	}
	return res, nil
}

func toStages(in []string) []pill.Stage {
	out := make([]pill.Stage, len(in))
	for i, s := range in {
		out[i] = pill.Stage(s)
	}
	return out
}

//Personal.AI order the ending
