package sqlstore_test

import (
	databaseerrors "cartsync/internal/database"
	"cartsync/internal/database/sqlstore"
	"cartsync/internal/models"
	"cartsync/pkg/config"
	"cartsync/pkg/lib/logger/slogdiscard"

	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*sqlstore.Storage, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %s", err)
	}

	storage := sqlstore.NewWithParams(slogdiscard.NewDiscardLogger(), sqlx.NewDb(db, "sqlmock"))
	cleanup := func() { db.Close() }
	return storage, mock, cleanup
}

func TestContextCanceled(t *testing.T) {
	storage, mock, cleanup := newTestStorage(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, storage.SaveSession(ctx, models.Session{}), context.Canceled)
	_, err := storage.LoadSession(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, storage.DeleteSession(ctx), context.Canceled)
	assert.ErrorIs(t, storage.SaveSnapshot(ctx, "a@b.c", models.EmptyCart()), context.Canceled)
	_, err = storage.LoadSnapshot(ctx, "a@b.c")
	assert.ErrorIs(t, err, context.Canceled)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSaveSession(t *testing.T) {
	storage, mock, cleanup := newTestStorage(t)
	defer cleanup()

	created := time.UnixMilli(1700000000000).UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions (id, email, role, token, created_at)")).
		WithArgs("a@b.c", "ROLE_CUSTOMER", "tok", created.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := storage.SaveSession(context.Background(), models.Session{
		Email:     "a@b.c",
		Role:      "ROLE_CUSTOMER",
		Token:     "tok",
		CreatedAt: created,
	})
	assert.NoError(t, err)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSaveSession_DBError(t *testing.T) {
	storage, mock, cleanup := newTestStorage(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnError(errors.New("disk I/O error"))

	err := storage.SaveSession(context.Background(), models.Session{Email: "a@b.c"})
	assert.Error(t, err)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestLoadSession(t *testing.T) {
	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		err     error
		want    models.Session
		wantErr error
	}{
		{
			name: "Success",
			rows: sqlmock.NewRows([]string{"email", "role", "token", "created_at"}).
				AddRow("a@b.c", "ROLE_CUSTOMER", "tok", int64(1700000000000)),
			want: models.Session{
				Email:     "a@b.c",
				Role:      "ROLE_CUSTOMER",
				Token:     "tok",
				CreatedAt: time.UnixMilli(1700000000000).UTC(),
			},
		},
		{
			name:    "NotFound",
			rows:    sqlmock.NewRows([]string{"email", "role", "token", "created_at"}),
			wantErr: databaseerrors.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, mock, cleanup := newTestStorage(t)
			defer cleanup()

			mock.ExpectQuery(regexp.QuoteMeta("SELECT email, role, token, created_at FROM sessions")).
				WillReturnRows(tt.rows)

			got, err := storage.LoadSession(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestDeleteSession(t *testing.T) {
	storage, mock, cleanup := newTestStorage(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, storage.DeleteSession(context.Background()))

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSaveSnapshot(t *testing.T) {
	storage, mock, cleanup := newTestStorage(t)
	defer cleanup()

	cart := models.Cart{
		Items: []models.CartItem{{Id: 1, Quantity: 2, TotalPrice: 800}},
		Total: 800,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cart_snapshots (email, payload, total, item_count, updated_at)")).
		WithArgs("a@b.c", sqlmock.AnyArg(), int64(800), 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, storage.SaveSnapshot(context.Background(), "a@b.c", cart))

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestLoadSnapshot(t *testing.T) {
	tests := []struct {
		name      string
		rows      *sqlmock.Rows
		wantItems int
		wantErr   error
		anyErr    bool
	}{
		{
			name: "Success",
			rows: sqlmock.NewRows([]string{"email", "payload", "updated_at"}).
				AddRow("a@b.c", `{"items":[{"id":1,"food":{"id":3,"price":400},"quantity":2,"ingredients":[],"totalPrice":800}],"total":800}`, int64(1700000000000)),
			wantItems: 1,
		},
		{
			name:    "NotFound",
			rows:    sqlmock.NewRows([]string{"email", "payload", "updated_at"}),
			wantErr: databaseerrors.ErrNotFound,
		},
		{
			name: "Corrupt payload",
			rows: sqlmock.NewRows([]string{"email", "payload", "updated_at"}).
				AddRow("a@b.c", `{"items":`, int64(1700000000000)),
			anyErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, mock, cleanup := newTestStorage(t)
			defer cleanup()

			mock.ExpectQuery(regexp.QuoteMeta("SELECT email, payload, updated_at FROM cart_snapshots")).
				WithArgs("a@b.c").
				WillReturnRows(tt.rows)

			got, err := storage.LoadSnapshot(context.Background(), "a@b.c")
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Len(t, got.Cart.Items, tt.wantItems)
				assert.Equal(t, models.Money(800), got.Cart.Total)
				assert.Equal(t, time.UnixMilli(1700000000000).UTC(), got.UpdatedAt)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := sqlstore.New(slogdiscard.NewDiscardLogger(), "mysql", "user@/db")
	assert.Error(t, err)
}

func TestSqliteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartsync.db")
	storage, err := sqlstore.New(slogdiscard.NewDiscardLogger(), config.DriverSqlite, path)
	require.NoError(t, err)
	defer storage.Close()

	ctx := context.Background()

	_, err = storage.LoadSession(ctx)
	assert.ErrorIs(t, err, databaseerrors.ErrNotFound)

	first := models.Session{Email: "a@b.c", Role: "ROLE_CUSTOMER", Token: "one", CreatedAt: time.UnixMilli(1000).UTC()}
	require.NoError(t, storage.SaveSession(ctx, first))
	second := models.Session{Email: "d@e.f", Role: "ROLE_CUSTOMER", Token: "two", CreatedAt: time.UnixMilli(2000).UTC()}
	require.NoError(t, storage.SaveSession(ctx, second))

	got, err := storage.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	require.NoError(t, storage.DeleteSession(ctx))
	_, err = storage.LoadSession(ctx)
	assert.ErrorIs(t, err, databaseerrors.ErrNotFound)

	cart := models.Cart{Items: []models.CartItem{{Id: 4, Quantity: 1, Food: models.Food{Id: 9, Price: 300}, Ingredients: []string{}}}, Total: 300}
	require.NoError(t, storage.SaveSnapshot(ctx, "a@b.c", cart))
	require.NoError(t, storage.SaveSnapshot(ctx, "a@b.c", cart))

	snap, err := storage.LoadSnapshot(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, cart, snap.Cart)

	_, err = storage.LoadSnapshot(ctx, "nobody@b.c")
	assert.ErrorIs(t, err, databaseerrors.ErrNotFound)
}
