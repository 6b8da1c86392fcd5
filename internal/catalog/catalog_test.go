package catalog_test

import (
	"context"
	"testing"

	"linku/backend/internal/apperr"
	"linku/backend/internal/catalog"
	"linku/backend/internal/models"
	"linku/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCatalog(t *testing.T) {
	ctx := context.Background()
	db := storagetest.OpenDB(t)
	require.NoError(t, db.Create(&models.TalentPost{ID: 7, Title: "Guitar lessons", AuthorID: 1}).Error)
	require.NoError(t, db.Create(&models.TalentPost{ID: 9, Title: "Figma basics", AuthorID: 2}).Error)
	c := catalog.NewGormCatalog(db)

	post, err := c.Find(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint(1), post.AuthorID)

	_, err = c.Find(ctx, 8)
	assert.ErrorIs(t, err, apperr.ErrPostNotFound)

	titles, err := c.Titles(ctx, []uint{7, 9, 10})
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{7: "Guitar lessons", 9: "Figma basics"}, titles)
}
