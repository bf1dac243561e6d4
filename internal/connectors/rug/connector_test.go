package rug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rugsync/internal/httpclient"
	"rugsync/internal/logger"
	"rugsync/internal/models"
	"rugsync/internal/syncerr"
)

type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) SaveToken(ctx context.Context, shopID, token string, expiresAt time.Time) error {
	args := m.Called(ctx, shopID, token, expiresAt)
	return args.Error(0)
}

func newTestConnector(url string, store TokenStore) *Connector {
	client := httpclient.New(httpclient.Policy{MaxAttempts: 2, Backoff: time.Millisecond, Timeout: 5 * time.Second, ConnectTimeout: time.Second})
	return New(url, client, store, 0, logger.Nop())
}

func page(n, offset int, next bool) []byte {
	data := make([]map[string]interface{}, n)
	for i := range data {
		data[i] = map[string]interface{}{"ID": fmt.Sprintf("R-%d", offset+i), "title": "Rug"}
	}
	body := map[string]interface{}{"data": data, "pagination": map[string]interface{}{}}
	if next {
		body["pagination"] = map[string]interface{}{"next": offset + n}
	}
	out, _ := json.Marshal(body)
	return out
}

func TestFetchAllStopsOnEmptyPage(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/rug", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "200", r.URL.Query().Get("limit"))

		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		switch skip {
		case 0, 200:
			_, _ = w.Write(page(200, skip, true))
		default:
			_, _ = w.Write(page(0, skip, true))
		}
	}))
	defer srv.Close()

	records, err := newTestConnector(srv.URL, nil).FetchAll(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, records, 400)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	sku, ok := records[399].SKU()
	assert.True(t, ok)
	assert.Equal(t, "R-399", sku)
}

func TestFetchAllStopsWithoutNext(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write(page(5, 0, false))
	}))
	defer srv.Close()

	records, err := newTestConnector(srv.URL, nil).FetchAll(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, records, 5)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchAllReturnsPartialResultOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("skip") == "0" {
			_, _ = w.Write(page(200, 0, true))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	records, err := newTestConnector(srv.URL, nil).FetchAll(context.Background(), "tok")
	assert.Len(t, records, 200)
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncerr.ErrFetch))
}

func TestAcquireToken(t *testing.T) {
	t.Run("uses cached token", func(t *testing.T) {
		exp := time.Now().Add(time.Hour)
		shop := &models.Shop{ID: "s1", BearerToken: "cached", TokenExpiresAt: &exp}

		tok, err := newTestConnector("http://127.0.0.1:1", nil).AcquireToken(context.Background(), shop)
		require.NoError(t, err)
		assert.Equal(t, "cached", tok)
	})

	t.Run("refreshes and persists expired token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/token", r.URL.Path)
			assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
			_, _ = w.Write([]byte(`{"token":"fresh"}`))
		}))
		defer srv.Close()

		store := new(MockTokenStore)
		store.On("SaveToken", mock.Anything, "s1", "fresh", mock.AnythingOfType("time.Time")).Return(nil)

		past := time.Now().Add(-time.Minute)
		shop := &models.Shop{ID: "s1", RugAPIKey: "key-1", BearerToken: "old", TokenExpiresAt: &past}

		before := time.Now()
		tok, err := newTestConnector(srv.URL, store).AcquireToken(context.Background(), shop)
		require.NoError(t, err)
		assert.Equal(t, "fresh", tok)
		assert.Equal(t, "fresh", shop.BearerToken)
		require.NotNil(t, shop.TokenExpiresAt)
		assert.WithinDuration(t, before.Add(TokenTTL), *shop.TokenExpiresAt, 5*time.Second)
		store.AssertExpectations(t)
	})

	t.Run("missing token field is an auth error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"message":"ok"}`))
		}))
		defer srv.Close()

		_, err := newTestConnector(srv.URL, nil).AcquireToken(context.Background(), &models.Shop{ID: "s1", RugAPIKey: "k"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, syncerr.ErrAuth))
	})

	t.Run("rejected key is an auth error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := newTestConnector(srv.URL, nil).AcquireToken(context.Background(), &models.Shop{ID: "s1", RugAPIKey: "bad"})
		assert.True(t, errors.Is(err, syncerr.ErrAuth))
	})
}

func TestRecordDecoding(t *testing.T) {
	raw := `{
		"ID": 1042,
		"title": " Heriz ",
		"regularPrice": "1200.00",
		"sellingPrice": 950,
		"inventory": {"manageStock": true, "quantityLevel": [{"available": "3"}]},
		"material": "Wool, Cotton",
		"design": ["Medallion", ""],
		"images": ["https://cdn.example.com/a b.jpg"],
		"status": "available"
	}`

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))

	sku, ok := rec.SKU()
	assert.True(t, ok)
	assert.Equal(t, "1042", sku)

	title, _ := rec.TitleText()
	assert.Equal(t, "Heriz", title)

	price, ok := rec.RegularPrice.Get()
	assert.True(t, ok)
	assert.Equal(t, "1200", price.String())

	qty, ok := rec.Quantity()
	assert.True(t, ok)
	assert.Equal(t, 3, qty)

	assert.Equal(t, MultiValue{"Wool", "Cotton"}, rec.Material)
	assert.Equal(t, MultiValue{"Medallion"}, rec.Design)

	_, ok = rec.UpdatedText()
	assert.False(t, ok)
	assert.Nil(t, rec.Dimension)
}
