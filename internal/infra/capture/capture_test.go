package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LouYuanbo1/crawleragent/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingArchiver struct {
	mu      sync.Mutex
	batches [][]*model.CaptureDoc
}

func (a *recordingArchiver) ArchiveCaptures(_ context.Context, docs []*model.CaptureDoc) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	batch := make([]*model.CaptureDoc, len(docs))
	copy(batch, docs)
	a.batches = append(a.batches, batch)
	return nil
}

func (a *recordingArchiver) snapshot() [][]*model.CaptureDoc {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][]*model.CaptureDoc, len(a.batches))
	copy(out, a.batches)
	return out
}

func TestMatchesAPIPath(t *testing.T) {
	assert.True(t, MatchesAPIPath("https://book.example.com/api/v2/events"))
	assert.True(t, MatchesAPIPath("https://book.example.com/sports/odds/nba"))
	assert.True(t, MatchesAPIPath("https://book.example.com/Services.asmx/GetLeagueEvents"))
	assert.False(t, MatchesAPIPath("https://book.example.com/static/app.js"))
	assert.False(t, MatchesAPIPath("https://cdn.example.com/logo.png"))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "league_events", Classify("https://x.com/Services.asmx/GetLeagueEvents"))
	assert.Equal(t, "schedule", Classify("https://x.com/api/GetSchedule?d=1"))
	assert.Equal(t, "game_lines", Classify("https://x.com/api/GetGameLines"))
	assert.Equal(t, "odds", Classify("https://x.com/odds/feed"))
	assert.Equal(t, "misc", Classify("https://x.com/api/whatever"))
}

func TestConsumer_WritesFileAndForwards(t *testing.T) {
	dir := t.TempDir()
	var gotURL string
	var gotBody []byte
	c := InitConsumer(4, "examplebook", dir, nil, func(url string, body []byte) {
		gotURL = url
		gotBody = body
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	c.In() <- &Response{URL: "https://x.com/api/GetSchedule", Body: []byte(`{"d":"[]"}`)}

	require.Eventually(t, func() bool { return gotURL != "" }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "https://x.com/api/GetSchedule", gotURL)
	assert.Equal(t, `{"d":"[]"}`, string(gotBody))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "api_response_schedule_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, `{"d":"[]"}`, string(data))
}

func TestConsumer_ArchivesInBatches(t *testing.T) {
	arch := &recordingArchiver{}
	c := InitConsumer(archiveBatchSize*2, "examplebook", "", arch, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	for i := 0; i < archiveBatchSize; i++ {
		c.In() <- &Response{
			URL:  fmt.Sprintf("https://x.com/api/GetGameLines?id=%d", i),
			Body: []byte(`{"d":"[]"}`),
		}
	}

	require.Eventually(t, func() bool { return len(arch.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	batches := arch.snapshot()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], archiveBatchSize)
	assert.Equal(t, "game_lines", batches[0][0].Endpoint)
	assert.Equal(t, "examplebook", batches[0][0].Source)
}

func TestConsumer_FlushesRemainderOnCancel(t *testing.T) {
	arch := &recordingArchiver{}
	c := InitConsumer(8, "examplebook", "", arch, nil)

	gotAll := make(chan struct{})
	count := 0
	c.onResponse = func(string, []byte) {
		count++
		if count == 3 {
			close(gotAll)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		c.In() <- &Response{URL: "https://x.com/api/GetSchedule", Body: []byte(`{}`)}
	}
	<-gotAll
	assert.Empty(t, arch.snapshot())

	cancel()
	<-done

	batches := arch.snapshot()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
}

func TestConsumer_MissIsNotForwarded(t *testing.T) {
	called := false
	c := InitConsumer(1, "examplebook", "", nil, func(string, []byte) { called = true })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	c.In() <- &Response{URL: "https://x.com/api/GetSchedule", Miss: true}
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.False(t, called)
}
