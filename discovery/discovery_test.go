package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/hungrysnek/logging"
)

const leaderboardHTML = `<html><body><table>
<tr><td><a href="/leaderboard/standard/alice/stats">alice</a></td></tr>
<tr><td><a href="/leaderboard/standard/bob/stats">bob</a></td></tr>
<tr><td><a href="/leaderboard/standard/alice/stats">alice again</a></td></tr>
<tr><td><a href="/leaderboard/standard-duels">duels</a></td></tr>
<tr><td><a href="/leaderboard/standard/ghost/stats">ghost</a></td></tr>
</table></body></html>`

func playerHTML(ids ...string) string {
	s := "<html><body>"
	for _, id := range ids {
		s += fmt.Sprintf(`<a href="/game/%s">game</a>`, id)
	}
	return s + `<a href="/about">about</a></body></html>`
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/leaderboard/standard", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, leaderboardHTML)
	})
	mux.HandleFunc("/leaderboard/standard/alice/stats", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, playerHTML("aaaa-0001", "aaaa-0002", "aaaa-0001", "cccc-0001"))
	})
	mux.HandleFunc("/leaderboard/standard/bob/stats", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, playerHTML("bbbb-0001", "cccc-0001"))
	})
	mux.HandleFunc("/leaderboard/standard/ghost/stats", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func collect(t *testing.T, w *Worker) ([]string, int) {
	t.Helper()
	out := make(chan string, 100)
	n, err := w.Discover(context.Background(), out)
	require.NoError(t, err)
	close(out)

	var ids []string
	for id := range out {
		ids = append(ids, id)
	}
	return ids, n
}

func TestDiscover(t *testing.T) {
	srv := newSite(t)
	cfg := Config{LeaderboardURLs: []string{srv.URL + "/leaderboard/standard"}}
	w := NewWorker(cfg, map[string]bool{"aaaa-0002": true}, srv.Client(), logging.Discard())

	ids, n := collect(t, w)

	assert.Equal(t, []string{"aaaa-0001", "cccc-0001", "bbbb-0001"}, ids)
	assert.Equal(t, 3, n)

	again, n := collect(t, w)
	assert.Empty(t, again, "second crawl finds nothing new")
	assert.Zero(t, n)
}

func TestDiscover_MaxPlayers(t *testing.T) {
	srv := newSite(t)
	cfg := Config{LeaderboardURLs: []string{srv.URL + "/leaderboard/standard"}, MaxPlayers: 1}
	w := NewWorker(cfg, nil, srv.Client(), logging.Discard())

	ids, _ := collect(t, w)
	assert.Equal(t, []string{"aaaa-0001", "aaaa-0002", "cccc-0001"}, ids)
}

func TestDiscover_BadLeaderboardIsSkipped(t *testing.T) {
	srv := newSite(t)
	cfg := Config{LeaderboardURLs: []string{srv.URL + "/leaderboard/missing", srv.URL + "/leaderboard/standard"}}
	w := NewWorker(cfg, nil, srv.Client(), logging.Discard())

	ids, _ := collect(t, w)
	assert.Len(t, ids, 4)
}

func TestDiscover_Cancelled(t *testing.T) {
	srv := newSite(t)
	cfg := Config{LeaderboardURLs: []string{srv.URL + "/leaderboard/standard"}, RequestDelay: time.Hour}
	w := NewWorker(cfg, nil, srv.Client(), logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan string, 100)
	go func() {
		<-out
		cancel()
	}()

	_, err := w.Discover(ctx, out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlayerGames(t *testing.T) {
	srv := newSite(t)
	w := NewWorker(DefaultConfig(), nil, srv.Client(), logging.Discard())

	ids, err := w.PlayerGames(context.Background(), srv.URL+"/leaderboard/standard/alice/stats")
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa-0001", "aaaa-0002", "cccc-0001"}, ids)

	_, err = w.PlayerGames(context.Background(), srv.URL+"/leaderboard/standard/ghost/stats")
	assert.Error(t, err)
}

func TestAddKnownID(t *testing.T) {
	srv := newSite(t)
	cfg := Config{LeaderboardURLs: []string{srv.URL + "/leaderboard/standard"}}
	w := NewWorker(cfg, nil, srv.Client(), logging.Discard())
	w.AddKnownID("cccc-0001")

	ids, _ := collect(t, w)
	assert.Equal(t, []string{"aaaa-0001", "aaaa-0002", "bbbb-0001"}, ids)
}

func TestPlayerGames_OnlyHexIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, playerHTML("0f1e2d3c-aaaa-4bbb-8ccc-123456789abc", "dddd-0001"))
	}))
	t.Cleanup(srv.Close)
	w := NewWorker(DefaultConfig(), nil, srv.Client(), logging.Discard())

	ids, err := w.PlayerGames(context.Background(), srv.URL+"/leaderboard/standard/dan/stats")
	require.NoError(t, err)
	assert.Equal(t, []string{"0f1e2d3c-aaaa-4bbb-8ccc-123456789abc", "dddd-0001"}, ids)
}
