package provider

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/testutil"
)

var testSigner = Signer{PublicKey: "pub", PrivateKey: "priv"}

func newTestClient(f *testutil.FakeProvider) *Client {
	return NewClient(f.URL(), testSigner)
}

func TestSigner_Sign(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	params := testSigner.Sign(now)

	sum := md5.Sum([]byte("1700000000000" + "priv" + "pub"))
	assert.Equal(t, "pub", params.Get("apikey"))
	assert.Equal(t, "1700000000000", params.Get("ts"))
	assert.Equal(t, hex.EncodeToString(sum[:]), params.Get("hash"))
}

func TestLookupByCode_SingleResult(t *testing.T) {
	f := testutil.NewFakeProvider(t)
	f.SetCode("75960609999900111", json.RawMessage(`{"id":1000,"title":"Amazing"}`))

	raw, err := newTestClient(f).LookupByCode(context.Background(), "75960609999900111")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1000,"title":"Amazing"}`, string(raw))
	assert.Equal(t, 1, f.Hits(testutil.CodeTarget("75960609999900111")))
}

func TestLookupByCode_Empty(t *testing.T) {
	f := testutil.NewFakeProvider(t)
	f.SetCode("123")

	_, err := newTestClient(f).LookupByCode(context.Background(), "123")
	require.Error(t, err)
	assert.True(t, IsEmpty(err))
}

func TestLookupByCode_Ambiguous(t *testing.T) {
	f := testutil.NewFakeProvider(t)
	f.SetCode("123", json.RawMessage(`{"id":1}`), json.RawMessage(`{"id":2}`))

	_, err := newTestClient(f).LookupByCode(context.Background(), "123")
	require.Error(t, err)
	assert.True(t, IsAmbiguous(err))
	assert.Contains(t, err.Error(), "matched 2 records")
}

func TestLookupByID(t *testing.T) {
	f := testutil.NewFakeProvider(t)
	f.SetRecord("series", 100, json.RawMessage(`{"id":100}`))

	raw, err := newTestClient(f).LookupByID(context.Background(), catalog.KindSeries, 100)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":100}`, string(raw))
}

func TestLookupByID_NotFound(t *testing.T) {
	f := testutil.NewFakeProvider(t)

	_, err := newTestClient(f).LookupByID(context.Background(), catalog.KindCreator, 42)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsTransport(err))
}

func TestLookupByID_ServerError(t *testing.T) {
	f := testutil.NewFakeProvider(t)
	f.SetStatus(testutil.IDTarget("events", 7), http.StatusInternalServerError)

	_, err := newTestClient(f).LookupByID(context.Background(), catalog.KindEvent, 7)
	require.Error(t, err)
	assert.True(t, IsTransport(err))

	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, http.StatusInternalServerError, le.Status)
}

func TestLookupByID_UnknownKind(t *testing.T) {
	f := testutil.NewFakeProvider(t)
	_, err := newTestClient(f).LookupByID(context.Background(), catalog.Kind("publisher"), 1)
	require.Error(t, err)
}

func TestLookup_MissingCredentials(t *testing.T) {
	f := testutil.NewFakeProvider(t)
	f.SetCode("123", json.RawMessage(`{"id":1}`))

	c := NewClient(f.URL(), Signer{})
	// An empty public key drops apikey from the query string.
	_, err := c.LookupByCode(context.Background(), "123")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestLookup_StringEnvelopeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"InvalidCredentials","status":"The passed API key is invalid."}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, testSigner).LookupByCode(context.Background(), "123")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), "InvalidCredentials")
}

func TestLookup_ContextCanceled(t *testing.T) {
	f := testutil.NewFakeProvider(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(f).LookupByCode(ctx, "123")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, context.Canceled)
}
