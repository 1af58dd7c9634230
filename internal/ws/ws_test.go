package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/hexmap/internal/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticResolver map[string]string

func (s staticResolver) Resolve(_ context.Context, id string) (string, error) {
	addr, ok := s[id]
	if !ok {
		return "", errors.New("not registered")
	}
	return addr, nil
}

func serve(t *testing.T) (addr string, accepted <-chan peer.Link) {
	t.Helper()
	ch := make(chan peer.Link, 1)
	srv := httptest.NewServer(Handler(func(l peer.Link) { ch <- l }, zap.NewNop()))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://"), ch
}

func TestLink_RoundTripAndClose(t *testing.T) {
	addr, accepted := serve(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d := Dialer{Resolver: staticResolver{"HOST01": addr}, SelfID: "GUEST1"}
	out, err := d.Dial(ctx, "HOST01")
	require.NoError(t, err)
	assert.Equal(t, "HOST01", out.RemoteID())

	var in peer.Link
	select {
	case in = <-accepted:
	case <-ctx.Done():
		t.Fatal("timed out waiting for inbound link")
	}
	assert.Equal(t, "GUEST1", in.RemoteID())

	require.NoError(t, out.Send(ctx, []byte(`{"type":"DICE_ROLL"}`)))
	data, err := in.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"DICE_ROLL"}`, string(data))

	require.NoError(t, in.Send(ctx, []byte("back")))
	data, err = out.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "back", string(data))

	go func() { _, _ = in.Receive(ctx) }()
	require.NoError(t, out.Close())
	_, err = out.Receive(ctx)
	assert.Error(t, err)
}

func TestDialer_UnknownID(t *testing.T) {
	d := Dialer{Resolver: staticResolver{}, SelfID: "GUEST1"}
	_, err := d.Dial(context.Background(), "NOPE00")
	assert.ErrorContains(t, err, "resolve NOPE00")
}

func TestHandler_RequiresFrom(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(func(peer.Link) { t.Fatal("unexpected link") }, zap.NewNop()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/link", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
