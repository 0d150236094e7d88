package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laocai-wudi/chunmpre.cn/internal/domain"
	apperrors "github.com/laocai-wudi/chunmpre.cn/pkg/errors"
)

var imageColumnNames = []string{"id", "product_id", "filename", "mime_type", "size", "display_order", "created_at"}

func TestImageRepository_ListByProduct(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewImageRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM product_images WHERE product_id .+ ORDER BY display_order ASC, created_at ASC, id ASC").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows(imageColumnNames).
			AddRow("img-1", "prod-1", "front.jpg", "image/jpeg", 1024, 1, now).
			AddRow("img-2", "prod-1", "side.png", "image/png", 2048, 2, now))

	images, err := repo.ListByProduct(context.Background(), "prod-1")
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "img-1", images[0].ID)
	assert.Equal(t, 2048, images[1].Size)
	assert.Nil(t, images[0].Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_Add(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewImageRepository(mock)

	img := domain.ProductImage{
		ID:        "img-3",
		ProductID: "prod-1",
		Filename:  "top.gif",
		MimeType:  "image/gif",
		Data:      []byte("GIF89a"),
		CreatedAt: now,
	}

	mock.ExpectQuery("INSERT INTO product_images .+ COALESCE.+MAX.+display_order").
		WithArgs(img.ID, img.ProductID, img.Data, img.Filename, img.MimeType, img.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"display_order"}).AddRow(3))

	require.NoError(t, repo.Add(context.Background(), &img))
	assert.Equal(t, 3, img.DisplayOrder)
	assert.Equal(t, 6, img.Size)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_Add_UnknownProduct(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewImageRepository(mock)

	img := domain.ProductImage{ID: "img-3", ProductID: "missing-id", Data: []byte("x"), CreatedAt: now}
	mock.ExpectQuery("INSERT INTO product_images").
		WillReturnError(errors.New("violates foreign key constraint (SQLSTATE 23503)"))

	err := repo.Add(context.Background(), &img)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_Get(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewImageRepository(mock)

	mock.ExpectQuery("SELECT .+, data FROM product_images WHERE id").
		WithArgs("img-1").
		WillReturnRows(pgxmock.NewRows(append(append([]string{}, imageColumnNames...), "data")).
			AddRow("img-1", "prod-1", "front.jpg", "image/jpeg", 4, 1, now, []byte("jpeg")))

	img, err := repo.Get(context.Background(), "img-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), img.Data)
	assert.Equal(t, "front.jpg", img.Ref().Filename)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_Get_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewImageRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM product_images WHERE id").
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing-id")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestImageRepository_Delete(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewImageRepository(mock)

	mock.ExpectQuery("SELECT product_id FROM product_images WHERE id").
		WithArgs("img-1").
		WillReturnRows(pgxmock.NewRows([]string{"product_id"}).AddRow("prod-1"))
	mock.ExpectExec("DELETE FROM product_images WHERE id").
		WithArgs("img-1", "prod-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), "prod-1", "img-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_Delete_OtherProduct(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewImageRepository(mock)

	mock.ExpectQuery("SELECT product_id FROM product_images WHERE id").
		WithArgs("img-1").
		WillReturnRows(pgxmock.NewRows([]string{"product_id"}).AddRow("prod-2"))

	err := repo.Delete(context.Background(), "prod-1", "img-1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_Delete_Unknown(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewImageRepository(mock)

	mock.ExpectQuery("SELECT product_id FROM product_images WHERE id").
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	err := repo.Delete(context.Background(), "prod-1", "missing-id")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
