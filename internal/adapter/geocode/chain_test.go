package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubProvider answers every call with fixed values and counts calls.
type stubProvider struct {
	point        domain.LatLng
	name         string
	err          error
	searchCalls  int
	reverseCalls int
}

func (s *stubProvider) Search(_ context.Context, _ string) (domain.LatLng, error) {
	s.searchCalls++
	return s.point, s.err
}

func (s *stubProvider) Reverse(_ context.Context, _ domain.LatLng) (string, error) {
	s.reverseCalls++
	return s.name, s.err
}

var errDown = errors.New("upstream down")

func TestChain_Search_FirstSuccessWins(t *testing.T) {
	first := &stubProvider{err: domain.NewProviderError("nominatim", domain.ErrNetwork, 503, errDown)}
	second := &stubProvider{point: domain.LatLng{Lat: 52.52, Lng: 13.405}}
	third := &stubProvider{point: domain.LatLng{Lat: 1, Lng: 1}}

	chain := NewChain(discard, Named{"nominatim", first}, Named{"photon", second}, Named{"mapbox", third})
	got, err := chain.Search(context.Background(), "Berlin")
	require.NoError(t, err)

	assert.Equal(t, domain.LatLng{Lat: 52.52, Lng: 13.405}, got)
	assert.Equal(t, 1, first.searchCalls)
	assert.Equal(t, 1, second.searchCalls)
	assert.Equal(t, 0, third.searchCalls, "chain should stop at the first success")
}

func TestChain_Search_AllFail(t *testing.T) {
	chain := NewChain(discard,
		Named{"nominatim", &stubProvider{err: domain.NewProviderError("nominatim", domain.ErrNotFound, 0, errDown)}},
		Named{"photon", &stubProvider{err: domain.NewProviderError("photon", domain.ErrNetwork, 500, errDown)}},
	)

	_, err := chain.Search(context.Background(), "Atlantis")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, errDown)
	assert.Contains(t, err.Error(), "Atlantis")
}

func TestChain_Search_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first := &stubProvider{err: errDown}
	second := &stubProvider{}

	_, err := NewChain(discard, Named{"a", first}, Named{"b", second}).Search(ctx, "x")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, second.searchCalls)
}

func TestChain_Reverse_SkipsEmptyNames(t *testing.T) {
	first := &stubProvider{name: "  "}
	second := &stubProvider{err: errDown}
	third := &stubProvider{name: "Berlin, Germany"}

	name, err := NewChain(discard, Named{"a", first}, Named{"b", second}, Named{"c", third}).
		Reverse(context.Background(), domain.LatLng{Lat: 52.52, Lng: 13.405})
	require.NoError(t, err)

	assert.Equal(t, "Berlin, Germany", name)
}

func TestChain_Reverse_NoNameIsNotAnError(t *testing.T) {
	name, err := NewChain(discard, Named{"a", &stubProvider{}}, Named{"b", &stubProvider{err: errDown}}).
		Reverse(context.Background(), domain.LatLng{Lat: 0, Lng: -150})
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestChain_Reverse_AllErrors(t *testing.T) {
	_, err := NewChain(discard, Named{"a", &stubProvider{err: errDown}}).
		Reverse(context.Background(), domain.LatLng{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
