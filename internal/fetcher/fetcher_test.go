package fetcher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruits/internal/fetcher"
	"recruits/internal/fetcher/fetchertest"
)

const page = `<html><head><title>Rankings</title></head><body><ul><li class="recruit">A</li></ul></body></html>`

func TestFetchLoadStrategy(t *testing.T) {
	site := fetchertest.NewSite().Handle("https://example.test/rankings", page)
	f := fetcher.NewFetcher(site)

	res, err := f.Fetch(context.Background(), "https://example.test/rankings", fetcher.WaitStrategyLoad, "", time.Second)
	require.NoError(t, err)
	defer res.Page.Close()

	assert.Equal(t, "Rankings", res.Title)
	assert.Equal(t, "https://example.test/rankings", res.URL)
}

func TestFetchNavigationError(t *testing.T) {
	site := fetchertest.NewSite().Fail("https://example.test/down", errors.New("connection refused"))
	f := fetcher.NewFetcher(site)

	_, err := f.Fetch(context.Background(), "https://example.test/down", fetcher.WaitStrategyLoad, "", time.Second)
	require.Error(t, err)

	var navErr *fetcher.NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, "https://example.test/down", navErr.URL)
	assert.Equal(t, 1, site.Opened())
	assert.Equal(t, 1, site.Closed())
}

func TestWaitElement(t *testing.T) {
	site := fetchertest.NewSite().Handle("https://example.test/rankings", page)
	f := fetcher.NewFetcher(site)

	res, err := f.Fetch(context.Background(), "https://example.test/rankings", fetcher.WaitStrategyElement, "li.recruit", time.Second)
	require.NoError(t, err)
	res.Page.Close()

	_, err = f.Fetch(context.Background(), "https://example.test/rankings", fetcher.WaitStrategyElement, "li.missing", 300*time.Millisecond)
	require.Error(t, err)
	assert.True(t, fetcher.IsTimeout(err))
}

func TestWaitStrategyValidation(t *testing.T) {
	site := fetchertest.NewSite().Handle("https://example.test/rankings", page)
	f := fetcher.NewFetcher(site)

	_, err := f.Fetch(context.Background(), "https://example.test/rankings", fetcher.WaitStrategyTime, "", time.Second)
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), "https://example.test/rankings", fetcher.WaitStrategyTime, "soon", time.Second)
	assert.Error(t, err)

	res, err := f.Fetch(context.Background(), "https://example.test/rankings", fetcher.WaitStrategyTime, fetcher.Millis(5*time.Millisecond), time.Second)
	require.NoError(t, err)
	res.Page.Close()
}

func TestSettleHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := fetcher.Settle(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, fetcher.Settle(context.Background(), 0))
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("detached")
	err := error(&fetcher.InteractionError{Action: "click", Selector: "a.load-more", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "a.load-more")
}
