package history

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masmgr/ccbuild-go/internal/cleartool"
)

func logText(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestFetcher_FetchChanges(t *testing.T) {
	server := cleartool.NewFakeServer()
	server.Logs["dev"] = logText(
		header("20240131.120005", "alice", "/vobs/app/a.c", "/main/dev/2", "create version", "checkin", ""),
		"fix",
		header("20240131.120000", "alice", "/vobs/app/b.c", "/main/dev/5", "create version", "checkin", ""),
		"fix",
		header("20240131.110000", "alice", "/vobs/app/c.c", "/main/dev", "create branch", "mkbranch", ""),
		"",
	)
	server.Logs["rel"] = logText(
		"cleartool: Error: Branch type not found: \"rel\".",
	)
	server.LogErrors["rel"] = errors.New("exit status 1")

	fetcher := NewFetcher(server, FetcherOptions{
		WindowSeconds: 10,
		Location:      time.UTC,
		Filters:       Chain{DefaultFilter{}},
	})

	changesets, err := fetcher.FetchChanges(context.Background(), time.Time{},
		cleartool.View{Tag: "v"}, []string{"dev", "rel"}, nil)
	require.NoError(t, err)
	require.Len(t, changesets, 1)
	assert.Equal(t, "alice", changesets[0].Author)
	assert.Equal(t, time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC), changesets[0].When)
	assert.Len(t, changesets[0].Files, 2)
	assert.Equal(t, 2, server.CallCount("QueryLog"))
}

func TestFetcher_FetchChanges_FailsOnRealError(t *testing.T) {
	server := cleartool.NewFakeServer()
	server.Logs["dev"] = "cleartool: Error: Unable to access \"/vobs/app\": No such file or directory.\n"
	server.LogErrors["dev"] = errors.New("exit status 1")

	_, err := NewFetcher(server, FetcherOptions{}).FetchChanges(context.Background(), time.Time{},
		cleartool.View{Tag: "v"}, []string{"dev"}, nil)
	assert.Error(t, err)
}

func TestFetcher_StreamScopeAndActivities(t *testing.T) {
	server := cleartool.NewFakeServer()
	server.Logs["dev"] = logText(
		header("20240131.120000", "alice", "/vobs/app/a.c", "/main/dev/2", "create version", "checkin", "fix_1@/vobs/pvob"),
		"fix",
	)
	server.Activities["fix_1@/vobs/pvob"] = cleartool.ActivityInfo{Headline: "Fix crash"}

	fetcher := NewFetcher(server, FetcherOptions{Location: time.UTC, ResolveActivities: true})
	v := cleartool.View{Tag: "v", Stream: "stream:dev@/vobs/pvob"}

	changesets, err := fetcher.FetchChanges(context.Background(), time.Time{}, v, nil, nil)
	require.NoError(t, err)
	require.Len(t, changesets, 1)
	require.NotNil(t, changesets[0].Activity)
	assert.Equal(t, "Fix crash", changesets[0].Activity.Headline)
	assert.Equal(t, []string{"QueryLog dev", "DescribeActivity fix_1@/vobs/pvob"}, server.Calls)
}

func TestFetcher_PollHasChanges(t *testing.T) {
	entry := logText(
		header("20240131.120000", "alice", "/vobs/app/a.c", "/main/dev/2", "create version", "checkin", ""),
		"fix",
	)

	t.Run("Changes", func(t *testing.T) {
		server := cleartool.NewFakeServer()
		server.Logs["dev"] = entry

		changed, err := NewFetcher(server, FetcherOptions{}).PollHasChanges(context.Background(), time.Time{},
			cleartool.View{Tag: "v"}, []string{"dev"}, nil)
		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("No changes", func(t *testing.T) {
		server := cleartool.NewFakeServer()

		changed, err := NewFetcher(server, FetcherOptions{}).PollHasChanges(context.Background(), time.Time{},
			cleartool.View{Tag: "v"}, []string{"dev"}, nil)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("Pending local edits", func(t *testing.T) {
		server := cleartool.NewFakeServer()
		server.Logs["dev"] = entry
		server.PendingEdits["dev"] = true

		changed, err := NewFetcher(server, FetcherOptions{}).PollHasChanges(context.Background(), time.Time{},
			cleartool.View{Tag: "v"}, []string{"dev"}, nil)
		assert.ErrorIs(t, err, ErrPendingLocalEdits)
		assert.False(t, changed)
		assert.Zero(t, server.CallCount("QueryLog"))
	})
}

func TestStreamBranch(t *testing.T) {
	assert.Equal(t, "dev", StreamBranch("stream:dev@/vobs/pvob"))
	assert.Equal(t, "dev", StreamBranch("dev"))
}
