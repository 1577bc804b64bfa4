package roomql

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cluso-labs/songlist3pc/pkg/room"
)

// fakeRoom answers QuerySongList the way a real room.Room would, without
// running the protocol actor at all — roomql only ever needs the snapshot
// contract, never RoomState itself.
type fakeRoom struct {
	snapshot map[string]string
}

func (f fakeRoom) Send(msg room.Message) {
	q, ok := msg.(room.QuerySongList)
	if !ok {
		return
	}
	q.Reply <- f.snapshot
}

func startTestServer(t *testing.T, snap map[string]string) *httptest.Server {
	t.Helper()
	s, err := NewServer(fakeRoom{snapshot: snap})
	require.NoError(t, err)
	return httptest.NewServer(s.Handler())
}

func doQuery(t *testing.T, baseURL, query string) map[string]any {
	t.Helper()
	body, err := json.Marshal(requestBody{Query: query})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/graphql", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// TestRoomQLWorkflow walks a snapshot through the HTTP surface the way the
// teacher's e2e suite walks a request through a running server: songs
// lookups, a present-key query, and a missing-key query all resolve from
// one fixed snapshot, never from RoomState directly.
func TestRoomQLWorkflow(t *testing.T) {
	server := startTestServer(t, map[string]string{
		"Epic":     "https://example.com/epic",
		"Fanfare":  "https://example.com/fanfare",
	})
	defer server.Close()

	t.Log("Query: list all songs")
	listResult := doQuery(t, server.URL, `{ songs { name url } }`)
	assert.Nil(t, listResult["errors"], "songs query should not error")
	data, ok := listResult["data"].(map[string]any)
	require.True(t, ok, "response should carry a data object")
	songs, ok := data["songs"].([]any)
	require.True(t, ok, "songs field should be a list")
	assert.Len(t, songs, 2, "both seeded songs should be returned")

	t.Log("Query: a song that exists")
	hit := doQuery(t, server.URL, `{ song(name: "Epic") { url } }`)
	hitData := hit["data"].(map[string]any)
	song, ok := hitData["song"].(map[string]any)
	require.True(t, ok, "song(name: \"Epic\") should resolve")
	assert.Equal(t, "https://example.com/epic", song["url"])

	t.Log("Query: a song that does not exist")
	miss := doQuery(t, server.URL, `{ song(name: "Missing") { url } }`)
	missData := miss["data"].(map[string]any)
	assert.Nil(t, missData["song"], "an absent song should resolve to null, not an error")
}

func TestRoomQLEmptySongList(t *testing.T) {
	server := startTestServer(t, map[string]string{})
	defer server.Close()

	result := doQuery(t, server.URL, `{ songs { name url } }`)
	data := result["data"].(map[string]any)
	songs, ok := data["songs"].([]any)
	require.True(t, ok)
	assert.Empty(t, songs)
}
