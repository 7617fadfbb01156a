package integration

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PillScope/pkg/client"
)

func TestIdentify_CachesLabelAcrossRequests(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	first, err := s.sdk.Identify(ctx, client.IdentifyRequest{ImprintCode: "M71"})
	require.NoError(t, err)
	assert.Equal(t, "Allopurinol", first.GenericName)
	assert.Equal(t, "M71", first.ImprintNumber)
	assert.Contains(t, first.Purpose, "gout")
	assert.Equal(t, "Use\nThis medicine treats the condition on its label.", first.Summary)
	assert.False(t, first.CacheHit)
	assert.Len(t, first.Candidates, 2)
	assert.Equal(t, []string{"received", "resolving", "cache_miss", "fetching", "caching", "explaining", "done"}, first.Stages)

	second, err := s.sdk.Identify(ctx, client.IdentifyRequest{ImprintCode: "M71", UserQuery: "how often do I take it?"})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Contains(t, second.Stages, "cache_hit")
	assert.Equal(t, int32(1), s.labelCalls.Load())
	assert.Equal(t, int32(2), s.llmCalls.Load())
}

func TestIdentify_UnknownImprint(t *testing.T) {
	s := newStack(t)

	_, err := s.sdk.Identify(context.Background(), client.IdentifyRequest{ImprintCode: "ZZZ 999"})
	require.Error(t, err)
	var apiErr *client.APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "ResolutionError", apiErr.Kind)
	assert.Equal(t, int32(0), s.labelCalls.Load())
}

func TestConverse_UsesCachedLabel(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.sdk.Identify(ctx, client.IdentifyRequest{ImprintCode: "M71"})
	require.NoError(t, err)

	chat, err := s.sdk.Converse(ctx, client.ConversationRequest{
		ImprintNumber: "M71",
		GenericName:   "Allopurinol",
		UserQuery:     "can I drink alcohol?",
	})
	require.NoError(t, err)
	assert.True(t, chat.CacheHit)
	assert.Equal(t, "can I drink alcohol?", chat.UserQuery)
	assert.NotEmpty(t, chat.Explanation)
	assert.Equal(t, int32(1), s.labelCalls.Load())
}

func TestConverse_NotThisPill(t *testing.T) {
	s := newStack(t)

	chat, err := s.sdk.Converse(context.Background(), client.ConversationRequest{
		ImprintNumber: "AN 627",
		GenericName:   "Tramadol",
		NotThisPill:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Trazodone", chat.GenericName)
	assert.Contains(t, chat.NewPurpose, "major depressive disorder")
	assert.Contains(t, chat.Message, "Trazodone")
}

func TestCorrect(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	corr, err := s.sdk.Correct(ctx, "Tramadol")
	require.NoError(t, err)
	assert.Equal(t, "Tramadol", corr.ReportedName)
	assert.Equal(t, "Trazodone", corr.AlternateName)
	assert.Equal(t, []string{"received", "resolving", "fetching", "explaining", "done"}, corr.Stages)

	_, err = s.sdk.Correct(ctx, "Hydralazine")
	var apiErr *client.APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "CorrectionNotFound", apiErr.Kind)
}

func TestExtractImprint(t *testing.T) {
	s := newStack(t)

	res, err := s.sdk.ExtractImprint(context.Background(), "pill.jpg", []byte("\xff\xd8\xff\xe0jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "M 71", res.ImprintCode)
	require.Len(t, res.Detections, 1)

	_, err = s.sdk.ExtractImprint(context.Background(), "notes.txt", []byte("hello"))
	var apiErr *client.APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestHealthAndReadiness(t *testing.T) {
	s := newStack(t)

	require.NoError(t, s.sdk.Health(context.Background()))
	assert.Equal(t, http.StatusOK, s.get(t, "/readyz").StatusCode)

	s.redis.Close()
	assert.Equal(t, http.StatusServiceUnavailable, s.get(t, "/readyz").StatusCode)
	assert.Equal(t, http.StatusOK, s.get(t, "/healthz").StatusCode)
}

func TestMetricsExposed(t *testing.T) {
	s := newStack(t)
	_, err := s.sdk.Identify(context.Background(), client.IdentifyRequest{ImprintCode: "M71"})
	require.NoError(t, err)

	resp := s.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pillscope_http_requests_total")
}

//Personal.AI order the ending
