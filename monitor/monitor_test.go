package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/auditor/analyzer"
	"github.com/seo-optimizer/auditor/fetcher"
)

type fakeAuditor struct {
	scores map[string][]int
	calls  atomic.Int32
	opts   analyzer.Options
}

func (f *fakeAuditor) Analyze(_ context.Context, rawURL string, opts analyzer.Options) (*analyzer.Report, error) {
	f.calls.Add(1)
	f.opts = opts
	scores := f.scores[rawURL]
	if len(scores) == 0 {
		return nil, &fetcher.FetchError{Kind: fetcher.KindDNS, URL: rawURL}
	}
	score := scores[0]
	f.scores[rawURL] = scores[1:]
	return &analyzer.Report{URL: rawURL, Score: score}, nil
}

func TestNew_Validates(t *testing.T) {
	_, err := New(&fakeAuditor{}, Config{Schedule: "@every 1h"}, nil)
	assert.Error(t, err)

	_, err = New(&fakeAuditor{}, Config{Schedule: "whenever", URLs: []string{"https://a.test"}}, nil)
	assert.Error(t, err)

	_, err = New(&fakeAuditor{}, Config{Schedule: "*/5 * * * *", URLs: []string{"https://a.test"}}, nil)
	assert.NoError(t, err)
}

func TestRunOnce_TracksLatest(t *testing.T) {
	a := &fakeAuditor{scores: map[string][]int{
		"https://a.test": {90, 70},
	}}
	m, err := New(a, Config{Schedule: "@daily", URLs: []string{"https://down.test", "https://a.test"}, IncludeKeywords: true}, nil)
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	m.RunOnce(context.Background())
	latest := m.Latest()
	require.Len(t, latest, 2)
	assert.Equal(t, "https://down.test", latest[0].URL)
	assert.Equal(t, "the domain could not be resolved", latest[0].Error)
	assert.Nil(t, latest[0].Report)
	assert.Equal(t, 90, latest[1].Report.Score)
	assert.Nil(t, latest[1].PreviousScore)
	assert.True(t, a.opts.SkipCache)
	assert.True(t, a.opts.IncludeKeywords)

	m.RunOnce(context.Background())
	latest = m.Latest()
	require.NotNil(t, latest[1].PreviousScore)
	assert.Equal(t, 90, *latest[1].PreviousScore)
	assert.Equal(t, 70, latest[1].Report.Score)
	assert.Equal(t, int32(4), a.calls.Load())
}

func TestRunOnce_StopsOnCancel(t *testing.T) {
	a := &fakeAuditor{scores: map[string][]int{}}
	m, err := New(a, Config{Schedule: "@daily", URLs: []string{"https://a.test", "https://b.test"}}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.RunOnce(ctx)
	assert.Zero(t, a.calls.Load())
	assert.Empty(t, m.Latest())
}

func TestStartStop(t *testing.T) {
	m, err := New(&fakeAuditor{scores: map[string][]int{}}, Config{Schedule: "@every 1h", URLs: []string{"https://a.test"}}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Start())
	m.Stop()
}
