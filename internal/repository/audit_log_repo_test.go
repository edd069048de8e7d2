package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edutrilha/classe-api/internal/models"
)

func TestAuditLogListRecentNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditLogRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		entry := models.AuditLog{
			ActorID:    50,
			ActorRole:  "teacher",
			Action:     fmt.Sprintf("submission.graded.%d", i),
			EntityType: "submission",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, &entry))
	}

	entries, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "submission.graded.2", entries[0].Action)
	require.Equal(t, "submission.graded.1", entries[1].Action)
}

func TestAuditLogListRecentDefaultLimit(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditLogRepository(db)
	ctx := context.Background()

	entry := models.AuditLog{ActorID: 1, ActorRole: "admin", Action: "activity.created", EntityType: "activity"}
	require.NoError(t, repo.Create(ctx, &entry))

	entries, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.ListRecent(ctx, 10_000)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
