package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/models"
)

func TestCreatePhotoArmsAutoDeleteOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.addPhotographer(t, "owner@example.com")
	collection, err := e.catalogSvc.CreateCollection(ctx, owner, "Wedding")
	require.NoError(t, err)
	assert.Nil(t, collection.AutoDeleteAt, "empty collection has no expiry clock")

	first, err := e.catalogSvc.CreatePhoto(ctx, owner, CreatePhotoInput{
		CollectionID: collection.ID,
		Data:         []byte("jpeg-bytes"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ShareToken)

	armed, err := e.collections.GetByID(ctx, collection.ID)
	require.NoError(t, err)
	require.NotNil(t, armed.AutoDeleteAt, "first photo arms the clock")
	firstDeadline := *armed.AutoDeleteAt

	// A later upload does not move the deadline.
	time.Sleep(5 * time.Millisecond)
	_, err = e.catalogSvc.CreatePhoto(ctx, owner, CreatePhotoInput{
		CollectionID: collection.ID,
		Data:         []byte("more-bytes"),
	})
	require.NoError(t, err)

	after, err := e.collections.GetByID(ctx, collection.ID)
	require.NoError(t, err)
	assert.True(t, after.AutoDeleteAt.Equal(firstDeadline))
}

func TestCreatePhotoRequiresOwnedLiveCollection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.addPhotographer(t, "owner@example.com")
	other := e.addPhotographer(t, "other@example.com")
	collection := e.addCollection(t, owner, "Wedding")

	_, err := e.catalogSvc.CreatePhoto(ctx, other, CreatePhotoInput{
		CollectionID: collection.ID,
		Data:         []byte("x"),
	})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = e.catalogSvc.CreatePhoto(ctx, owner, CreatePhotoInput{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrValidation, "photos cannot exist outside a collection")

	require.NoError(t, e.lifecycleSvc.MarkForDeletion(ctx, models.KindCollection, collection.ID, "done"))
	_, err = e.catalogSvc.CreatePhoto(ctx, owner, CreatePhotoInput{
		CollectionID: collection.ID,
		Data:         []byte("x"),
	})
	assert.ErrorIs(t, err, ErrResourceUnavailable)
}

func TestGetPublicAcceptsOnlyShareTokens(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.addPhotographer(t, "owner@example.com")
	photo := e.addPhoto(t, owner)

	got, err := e.catalogSvc.GetPublic(ctx, photo.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, photo.ID, got.ID)

	// The surrogate id is not a share token and must not resolve.
	_, err = e.catalogSvc.GetPublic(ctx, photo.ID)
	assert.ErrorIs(t, err, ErrResourceNotFound)

	_, err = e.catalogSvc.GetPublic(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetPublicHidesDyingPhotos(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.addPhotographer(t, "owner@example.com")
	photo := e.addPhoto(t, owner)
	require.NoError(t, e.lifecycleSvc.MarkForDeletion(ctx, models.KindPhoto, photo.ID, "cleanup"))

	// On the public path, pending deletion is indistinguishable from
	// absence.
	_, err := e.catalogSvc.GetPublic(ctx, photo.ShareToken)
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestListCollectionPhotosKeepsUploadOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.addPhotographer(t, "owner@example.com")
	collection := e.addCollection(t, owner, "Wedding")

	var photoIDs []string
	for i := 0; i < 3; i++ {
		photo, err := e.catalogSvc.CreatePhoto(ctx, owner, CreatePhotoInput{
			CollectionID: collection.ID,
			Data:         []byte{byte(i)},
		})
		require.NoError(t, err)
		photoIDs = append(photoIDs, photo.ID)
	}

	listed, err := e.catalogSvc.ListCollectionPhotos(ctx, collection.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, photo := range listed {
		assert.Equal(t, photoIDs[i], photo.ID)
	}

	// A pending member drops out of the listing without reordering the
	// rest.
	require.NoError(t, e.lifecycleSvc.MarkForDeletion(ctx, models.KindPhoto, photoIDs[1], "cleanup"))
	listed, err = e.catalogSvc.ListCollectionPhotos(ctx, collection.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, photoIDs[0], listed[0].ID)
	assert.Equal(t, photoIDs[2], listed[1].ID)
}

func TestRetagAndRenameAuthorization(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.addPhotographer(t, "owner@example.com")
	other := e.addPhotographer(t, "other@example.com")
	admin := e.addPrincipal(t, models.RoleAdmin, "admin@example.com", "", nil, nil)
	photo := e.addPhoto(t, owner)
	collection := e.addCollection(t, owner, "Wedding")

	_, err := e.catalogSvc.RetagPhoto(ctx, other, photo.ID, []string{"x"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	tagged, err := e.catalogSvc.RetagPhoto(ctx, owner, photo.ID, []string{"ceremony", "rain"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ceremony", "rain"}, tagged.Tags)

	require.Error(t, e.catalogSvc.RenameCollection(ctx, other, collection.ID, "Hijacked"))
	require.NoError(t, e.catalogSvc.RenameCollection(ctx, admin, collection.ID, "Renamed"))

	renamed, err := e.collections.GetByID(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Title)
}

func TestListOwnCollectionsSkipsInactive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := e.addPhotographer(t, "owner@example.com")
	keep := e.addCollection(t, owner, "Keep")
	drop := e.addCollection(t, owner, "Drop")
	require.NoError(t, e.lifecycleSvc.MarkForDeletion(ctx, models.KindCollection, drop.ID, "done"))

	listed, err := e.catalogSvc.ListOwnCollections(ctx, owner)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, keep.ID, listed[0].ID)
}
