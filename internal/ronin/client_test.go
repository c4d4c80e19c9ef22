package ronin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

const (
	testAddr = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
	hash1    = "0x1111111111111111111111111111111111111111111111111111111111111111"
	hash2    = "0x2222222222222222222222222222222222222222222222222222222222222222"
)

func testServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// fastClient returns a client whose retries do not sleep.
func fastClient(host string, opts ...Option) *Client {
	c := NewClient(host, opts...)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

// ---------------------------------------------------------------------------
// constructor
// ---------------------------------------------------------------------------

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, DefaultHost, c.Host())
	assert.Equal(t, defaultRetries, c.retries)
	assert.Equal(t, defaultTimeout, c.http.Timeout)
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	assert.Equal(t, "https://example.test", NewClient("https://example.test/").Host())
}

func TestNewClientOptions(t *testing.T) {
	c := NewClient("http://h", WithRetries(7), WithTimeout(2*time.Second), WithAPIKey("k"))
	assert.Equal(t, 7, c.retries)
	assert.Equal(t, 2*time.Second, c.http.Timeout)
	assert.Equal(t, "k", c.apiKey)
}

// ---------------------------------------------------------------------------
// listings
// ---------------------------------------------------------------------------

func TestListSentPathAndPage(t *testing.T) {
	var gotPath, gotQuery string
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		fmt.Fprintf(w, `{"transactions":["%s","%s"]}`, hash1, hash2)
	})

	page, err := fastClient(srv.URL).ListSent(context.Background(), testAddr, 3)
	require.NoError(t, err)
	assert.Equal(t, "/archive/listSentTransactions/"+testAddr, gotPath)
	assert.Equal(t, "page=3", gotQuery)
	assert.Equal(t, []string{hash1, hash2}, page.Transactions)
}

func TestListReceivedPath(t *testing.T) {
	var gotPath string
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"transactions":[]}`)) //nolint:errcheck
	})

	page, err := fastClient(srv.URL).ListReceived(context.Background(), testAddr, 1)
	require.NoError(t, err)
	assert.Equal(t, "/archive/listReceivedTransactions/"+testAddr, gotPath)
	assert.Empty(t, page.Transactions)
}

func TestListNullTransactionsIsEmptyPage(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"transactions":null}`)) //nolint:errcheck
	})

	page, err := fastClient(srv.URL).ListSent(context.Background(), testAddr, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Transactions)
}

func TestListMissingFieldIsDecodeError(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":"address not indexed"}`)) //nolint:errcheck
	})

	_, err := fastClient(srv.URL).ListSent(context.Background(), testAddr, 1)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "listSentTransactions", derr.Op)
}

func TestListMalformedHashIsDecodeError(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"transactions":["0xnothash"]}`)) //nolint:errcheck
	})

	_, err := fastClient(srv.URL).ListSent(context.Background(), testAddr, 1)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, err.Error(), "0xnothash")
}

func TestListInvalidJSONIsDecodeError(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>bad gateway</html>`)) //nolint:errcheck
	})

	_, err := fastClient(srv.URL).ListReceived(context.Background(), testAddr, 1)
	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
}

// ---------------------------------------------------------------------------
// per-transaction endpoints
// ---------------------------------------------------------------------------

func TestTransaction(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ronin/getTransaction/"+hash1, r.URL.Path)
		fmt.Fprintf(w, `{"from":"0xa","to":"0xb","hash":"%s","blockNumber":42,"nonce":7}`, hash1)
	})

	tx, err := fastClient(srv.URL).Transaction(context.Background(), hash1)
	require.NoError(t, err)
	assert.Equal(t, "0xa", tx.From)
	assert.Equal(t, "0xb", tx.To)
	assert.Equal(t, hash1, tx.Hash)
	assert.Equal(t, uint64(42), tx.BlockNumber)
}

func TestTransactionWrongShapeIsDecodeError(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"blockNumber":"forty-two"}`)) //nolint:errcheck
	})

	_, err := fastClient(srv.URL).Transaction(context.Background(), hash1)
	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
}

func TestDecodeTransactionReturnsRawBody(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ronin/decodeTransaction/"+hash1, r.URL.Path)
		w.Write([]byte(`  {"method":"transfer","params":{"b":1,"a":2}}` + "\n")) //nolint:errcheck
	})

	raw, err := fastClient(srv.URL).DecodeTransaction(context.Background(), hash1)
	require.NoError(t, err)
	assert.Equal(t, `{"method":"transfer","params":{"b":1,"a":2}}`, string(raw))
}

func TestDecodeReceiptPath(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ronin/decodeTransactionReceipt/"+hash2, r.URL.Path)
		w.Write([]byte(`[{"event":"Transfer"}]`)) //nolint:errcheck
	})

	raw, err := fastClient(srv.URL).DecodeReceipt(context.Background(), hash2)
	require.NoError(t, err)
	assert.Equal(t, `[{"event":"Transfer"}]`, string(raw))
}

func TestDecodeReceiptInvalidJSON(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"truncated":`)) //nolint:errcheck
	})

	_, err := fastClient(srv.URL).DecodeReceipt(context.Background(), hash2)
	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
}

func TestAPIKeyHeader(t *testing.T) {
	var got string
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-API-Key")
		w.Write([]byte(`{}`)) //nolint:errcheck
	})

	_, err := fastClient(srv.URL, WithAPIKey("SECRET")).DecodeTransaction(context.Background(), hash1)
	require.NoError(t, err)
	assert.Equal(t, "SECRET", got)
}

func TestNoAPIKeyHeaderByDefault(t *testing.T) {
	var present bool
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["X-Api-Key"]
		w.Write([]byte(`{}`)) //nolint:errcheck
	})

	_, err := fastClient(srv.URL).DecodeTransaction(context.Background(), hash1)
	require.NoError(t, err)
	assert.False(t, present)
}

// ---------------------------------------------------------------------------
// retries and network errors
// ---------------------------------------------------------------------------

func TestRetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`)) //nolint:errcheck
	})

	raw, err := fastClient(srv.URL, WithRetries(3)).DecodeTransaction(context.Background(), hash1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`)) //nolint:errcheck
	})

	_, err := fastClient(srv.URL, WithRetries(1)).DecodeReceipt(context.Background(), hash1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetriesExhaustedIsNetworkError(t *testing.T) {
	var calls atomic.Int32
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := fastClient(srv.URL, WithRetries(2)).Transaction(context.Background(), hash1)
	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, http.StatusBadGateway, nerr.StatusCode)
	assert.Equal(t, "getTransaction", nerr.Op)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := fastClient(srv.URL, WithRetries(5)).Transaction(context.Background(), hash1)
	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, http.StatusNotFound, nerr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConnectionRefusedIsNetworkError(t *testing.T) {
	_, err := fastClient("http://127.0.0.1:19991", WithRetries(0)).ListSent(context.Background(), testAddr, 1)
	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Zero(t, nerr.StatusCode)
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fastClient(srv.URL, WithRetries(10)).ListSent(ctx, testAddr, 1)
	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, calls.Load())
}

func TestNetworkErrorMessage(t *testing.T) {
	e := &NetworkError{Op: "getTransaction", URL: "http://h/x", StatusCode: 502}
	assert.Equal(t, "getTransaction http://h/x: http status 502", e.Error())

	inner := errors.New("dial tcp: refused")
	e = &NetworkError{Op: "op", URL: "u", Err: inner}
	assert.True(t, strings.Contains(e.Error(), "refused"))
	assert.ErrorIs(t, e, inner)
}

func TestIsHash(t *testing.T) {
	assert.True(t, isHash(hash1))
	assert.True(t, isHash("0xABCDEFabcdef0000000000000000000000000000000000000000000000000000"))
	assert.False(t, isHash("0x1234"))
	assert.False(t, isHash(strings.TrimPrefix(hash1, "0x")+"00"))
	assert.False(t, isHash("0xzz11111111111111111111111111111111111111111111111111111111111111"))
}
