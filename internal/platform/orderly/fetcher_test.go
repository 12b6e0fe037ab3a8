package orderly

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

var (
	rangeStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
)

// pagedSource serves pageSizes[i] rows for page i+1 and nothing after.
type pagedSource struct {
	pageSizes []int
	failPage  map[int]int
	calls     []int
}

func (s *pagedSource) Trades(_ context.Context, _, _ time.Time, page, _ int) ([]RawTrade, error) {
	s.calls = append(s.calls, page)
	if n := s.failPage[page]; n > 0 {
		s.failPage[page] = n - 1
		return nil, errors.New("connection reset")
	}
	if page > len(s.pageSizes) {
		return nil, nil
	}
	rows := make([]RawTrade, s.pageSizes[page-1])
	for i := range rows {
		id := int64(page*1000 + i)
		created := rangeStart.Add(time.Duration(id) * time.Second).UnixMilli()
		rows[i] = RawTrade{TradeID: &id, Side: "buy", CreatedTime: &created}
	}
	return rows, nil
}

type sleepRecorder struct{ waits []time.Duration }

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func credUser() domain.User {
	return domain.User{
		WalletAddress: "0xabc",
		Orderly:       &domain.OrderlyCredentials{Key: "k", Secret: "s", AccountID: "acct-1"},
	}
}

func newTestFetcher(src TradeSource, pageSize int) (*PaginatedFetcher, *sleepRecorder, *int) {
	builds := 0
	factory := func(domain.OrderlyCredentials) (TradeSource, error) {
		builds++
		return src, nil
	}
	cfg := DefaultFetcherConfig()
	cfg.PageSize = pageSize
	f := NewPaginatedFetcher(factory, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := &sleepRecorder{}
	f.SetSleeper(rec.sleep)
	return f, rec, &builds
}

func TestFetchTrades_StopsOnShortPage(t *testing.T) {
	src := &pagedSource{pageSizes: []int{5, 5, 5, 2}}
	f, rec, _ := newTestFetcher(src, 5)

	trades, err := f.FetchTrades(context.Background(), domain.FetchRequest{User: credUser(), Start: rangeStart, End: rangeEnd})
	require.NoError(t, err)
	assert.Len(t, trades, 17)
	assert.Equal(t, []int{1, 2, 3, 4}, src.calls)
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}, rec.waits)

	assert.Equal(t, int64(1000), trades[0].TradeID)
	assert.Equal(t, int64(4001), trades[16].TradeID)
	assert.Equal(t, "acct-1", trades[0].AccountID)
}

func TestFetchTrades_StopsOnEmptyPage(t *testing.T) {
	src := &pagedSource{pageSizes: []int{5, 5}}
	f, _, _ := newTestFetcher(src, 5)

	trades, err := f.FetchTrades(context.Background(), domain.FetchRequest{User: credUser(), Start: rangeStart, End: rangeEnd})
	require.NoError(t, err)
	assert.Len(t, trades, 10)
	assert.Equal(t, []int{1, 2, 3}, src.calls)
}

func TestFetchTrades_FirstPageFailsEveryAttempt(t *testing.T) {
	src := &pagedSource{pageSizes: []int{5}, failPage: map[int]int{1: 100}}
	f, rec, _ := newTestFetcher(src, 5)

	trades, err := f.FetchTrades(context.Background(), domain.FetchRequest{User: credUser(), Start: rangeStart, End: rangeEnd})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIncompleteFetch)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, trades)
	assert.Equal(t, []int{1, 1, 1}, src.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)
}

func TestFetchTrades_LaterPageFailureKeepsPartialResult(t *testing.T) {
	src := &pagedSource{pageSizes: []int{5, 5, 5}, failPage: map[int]int{2: 100}}
	f, _, _ := newTestFetcher(src, 5)

	trades, err := f.FetchTrades(context.Background(), domain.FetchRequest{User: credUser(), Start: rangeStart, End: rangeEnd})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIncompleteFetch)
	assert.Len(t, trades, 5)
	assert.NotContains(t, src.calls, 3)
}

func TestFetchTrades_TransientFailureRecovers(t *testing.T) {
	src := &pagedSource{pageSizes: []int{5, 1}, failPage: map[int]int{2: 1}}
	f, _, _ := newTestFetcher(src, 5)

	trades, err := f.FetchTrades(context.Background(), domain.FetchRequest{User: credUser(), Start: rangeStart, End: rangeEnd})
	require.NoError(t, err)
	assert.Len(t, trades, 6)
}

func TestFetchTrades_MissingCredentials(t *testing.T) {
	src := &pagedSource{pageSizes: []int{5}}
	f, _, builds := newTestFetcher(src, 5)

	user := domain.User{WalletAddress: "0xabc", Orderly: &domain.OrderlyCredentials{Key: "k", AccountID: "acct"}}
	assert.False(t, f.CanFetch(user))

	trades, err := f.FetchTrades(context.Background(), domain.FetchRequest{User: user, Start: rangeStart, End: rangeEnd})
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Empty(t, src.calls)
	assert.Zero(t, *builds)
}

func TestFetchTrades_CachesSourcePerAccount(t *testing.T) {
	src := &pagedSource{pageSizes: []int{1}}
	f, _, builds := newTestFetcher(src, 5)
	req := domain.FetchRequest{User: credUser(), Start: rangeStart, End: rangeEnd}

	_, err := f.FetchTrades(context.Background(), req)
	require.NoError(t, err)
	_, err = f.FetchTrades(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, *builds)

	other := credUser()
	other.Orderly.AccountID = "acct-2"
	_, err = f.FetchTrades(context.Background(), domain.FetchRequest{User: other, Start: rangeStart, End: rangeEnd})
	require.NoError(t, err)
	assert.Equal(t, 2, *builds)
}

func TestFetchTrades_FactoryError(t *testing.T) {
	f := NewPaginatedFetcher(func(domain.OrderlyCredentials) (TradeSource, error) {
		return nil, errors.New("bad secret")
	}, DefaultFetcherConfig(), nil)

	_, err := f.FetchTrades(context.Background(), domain.FetchRequest{User: credUser(), Start: rangeStart, End: rangeEnd})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIncompleteFetch)
}
