package seed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rulercosta/neuralwired/internal/db"
	"github.com/rulercosta/neuralwired/internal/service"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestRunSeedsOnce(t *testing.T) {
	dsn := fmt.Sprintf("file:seed-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Init(context.Background(), db.Options{Driver: db.DriverSQLite, DSN: dsn, Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(gdb) })

	ctx := context.Background()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	result, err := Run(ctx, gdb, Options{Now: func() time.Time { return now }})
	require.NoError(t, err)
	require.Equal(t, len(samplePages), result.Pages)
	require.Equal(t, len(samplePosts), result.Posts)

	posts, err := service.NewPageService(gdb).List(ctx, service.PageFilter{IsBlog: true})
	require.NoError(t, err)
	require.Len(t, posts, len(samplePosts))
	require.Equal(t, "attention-explained-slowly", posts[0].Slug)
	require.True(t, posts[0].PublishedDate.Equal(now))
	for _, post := range posts {
		require.NotNil(t, post.Excerpt)
		require.NotEmpty(t, *post.Excerpt)
	}

	again, err := Run(ctx, gdb, Options{})
	require.NoError(t, err)
	require.Equal(t, Result{SkippedPages: len(samplePages), SkippedPosts: len(samplePosts)}, again)
}
