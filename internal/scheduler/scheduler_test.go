package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Delorian/internal/model"
)

type fakeRunner struct {
	mu   sync.Mutex
	reqs []model.Request
	err  error
}

func (f *fakeRunner) Run(_ context.Context, req model.Request) (*model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	rule := model.ExitRule{TakeProfitPct: 2, StopLossPct: 1}
	return &model.Report{
		Request: req,
		Bars:    100,
		Result: &model.BacktestResult{
			Rule:        rule,
			TotalReturn: 0.12,
			Portfolio:   &model.Portfolio{Stats: model.Stats{TotalReturn: 0.12}},
			Cells:       []model.GridCell{{Rule: rule, TotalReturn: 0.12, Trades: 3, Defined: true}},
		},
	}, nil
}

type fakeSender struct {
	sent []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.sent = append(f.sent, text)
	return nil
}

func defaultRequest() model.Request {
	return model.Request{
		Symbol:   "BTC-USD",
		Interval: model.IntervalDay,
		Start:    time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestParseRunArgs(t *testing.T) {
	def := defaultRequest()
	tests := []struct {
		name    string
		args    []string
		want    model.Request
		wantErr bool
	}{
		{"no args", nil, def, false},
		{"symbol only", []string{"eth-usd"}, model.Request{Symbol: "ETH-USD", Interval: def.Interval, Start: def.Start, End: def.End}, false},
		{"symbol and interval", []string{"ETH-USD", "1H"}, model.Request{Symbol: "ETH-USD", Interval: model.IntervalHour, Start: def.Start, End: def.End}, false},
		{"all", []string{"SPX500", "1d", "2021-01-01", "2021-06-30"}, model.Request{
			Symbol: "SPX500", Interval: model.IntervalDay,
			Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC),
		}, false},
		{"bad interval", []string{"X", "4h"}, model.Request{}, true},
		{"bad start", []string{"X", "1d", "2021/01/01"}, model.Request{}, true},
		{"start after end", []string{"X", "1d", "2023-06-01"}, model.Request{}, true},
		{"too many", []string{"X", "1d", "2021-01-01", "2021-02-01", "extra"}, model.Request{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRunArgs(def, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleCommand_Run(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(context.Background(), runner, &fakeSender{}, defaultRequest())

	reply := s.HandleCommand(context.Background(), "/run@DelorianBot eth-usd 1h")
	assert.Contains(t, reply, "TP 2.00% / SL 1.00%")
	require.Len(t, runner.reqs, 1)
	assert.Equal(t, "ETH-USD", runner.reqs[0].Symbol)
	assert.Equal(t, model.IntervalHour, runner.reqs[0].Interval)
	assert.NotNil(t, s.Last())
}

func TestHandleCommand_RunBadArgs(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(context.Background(), runner, &fakeSender{}, defaultRequest())

	reply := s.HandleCommand(context.Background(), "/run X 15m")
	assert.Contains(t, reply, "unsupported interval")
	assert.Empty(t, runner.reqs)
}

func TestHandleCommand_RunFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("insufficient data for this configuration")}
	s := NewScheduler(context.Background(), runner, &fakeSender{}, defaultRequest())

	reply := s.HandleCommand(context.Background(), "/run")
	assert.Contains(t, reply, "Run failed")
	assert.Contains(t, reply, "insufficient data")
	assert.Nil(t, s.Last())
}

func TestHandleCommand_Grid(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, &fakeSender{}, defaultRequest())

	assert.Contains(t, s.HandleCommand(context.Background(), "/grid"), "No run yet")
	s.HandleCommand(context.Background(), "/run")
	reply := s.HandleCommand(context.Background(), "/grid")
	assert.Contains(t, reply, "Exit grid")
	assert.Contains(t, reply, "+12.00%")
}

func TestHandleCommand_Help(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, &fakeSender{}, defaultRequest())
	for _, cmd := range []string{"", "/help", "hello"} {
		assert.Contains(t, s.HandleCommand(context.Background(), cmd), "/run [symbol]")
	}
}

func TestRunTask_SendsReportOrError(t *testing.T) {
	sender := &fakeSender{}
	runner := &fakeRunner{}
	s := NewScheduler(context.Background(), runner, sender, defaultRequest())

	s.RunNow()
	runner.err = errors.New("boom")
	s.RunNow()

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0], "Delorian Wave Trend backtest")
	assert.Contains(t, sender.sent[1], "Run failed")
	assert.Equal(t, []model.Request{defaultRequest(), defaultRequest()}, runner.reqs)
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, &fakeSender{}, defaultRequest())
	require.NoError(t, s.Register("0 0 8 * * 1"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a cron"))
}
