package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fichasapi/internal/model"
	"fichasapi/internal/repository"
	repoMocks "fichasapi/internal/repository/mocks"
	"fichasapi/internal/storage"
	storeMocks "fichasapi/internal/storage/mocks"
)

type mockQRGenerator struct {
	mock.Mock
}

func (m *mockQRGenerator) Generate(ctx context.Context, fichaID int64) (string, error) {
	args := m.Called(ctx, fichaID)
	return args.String(0), args.Error(1)
}

func validInput() *CreateFichaInput {
	return &CreateFichaInput{
		Pedimento:        "P-001",
		ClavePedimento:   "A1",
		FechaPago:        "2024-01-10",
		Factura:          "F-1",
		FechaFacturacion: "2024-01-09",
		ValorUSD:         "1000.00",
		ValorAduana:      "950.00",
		PaisOrigen:       "USA",
		Marca:            "Caterpillar",
		Modelo:           "320D",
		Serie:            "SN123",
		Descripcion:      "Excavadora",
		UbicacionPlanta:  "Bodega 1",
		IdentificadorAF:  "AF-001",
	}
}

func jpegUpload() ImageUpload {
	return ImageUpload{
		Content:     strings.NewReader("fake jpeg bytes"),
		Filename:    "maquina.jpg",
		ContentType: "image/jpeg",
		Size:        15,
	}
}

const maxFileSize = 5 * 1024 * 1024

func newTestService(store storage.Storage, repo repository.FichaRepository, qr QRGenerator) FichaService {
	return NewFichaService(store, repo, qr, maxFileSize, 10)
}

func TestFichaService_Create_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		mutate     func(in *CreateFichaInput)
		images     []ImageUpload
		wantFields []string
	}{
		{
			name:       "missing pedimento",
			mutate:     func(in *CreateFichaInput) { in.Pedimento = "" },
			images:     []ImageUpload{jpegUpload()},
			wantFields: []string{"pedimento"},
		},
		{
			name: "several missing fields",
			mutate: func(in *CreateFichaInput) {
				in.Marca = "  "
				in.Serie = ""
			},
			images:     []ImageUpload{jpegUpload()},
			wantFields: []string{"marca", "serie"},
		},
		{
			name:       "malformed date",
			mutate:     func(in *CreateFichaInput) { in.FechaPago = "10/01/2024" },
			images:     []ImageUpload{jpegUpload()},
			wantFields: []string{"fecha_pago"},
		},
		{
			name:       "negative money value",
			mutate:     func(in *CreateFichaInput) { in.ValorAduana = "-1.00" },
			images:     []ImageUpload{jpegUpload()},
			wantFields: []string{"valor_aduana"},
		},
		{
			name:       "non numeric money value",
			mutate:     func(in *CreateFichaInput) { in.ValorUSD = "a lot" },
			images:     []ImageUpload{jpegUpload()},
			wantFields: []string{"valor_usd"},
		},
		{
			name:       "no images",
			mutate:     func(in *CreateFichaInput) {},
			images:     nil,
			wantFields: []string{"imagenes"},
		},
		{
			name:   "non-image media type",
			mutate: func(in *CreateFichaInput) {},
			images: []ImageUpload{{
				Content:     strings.NewReader("%PDF"),
				Filename:    "manual.pdf",
				ContentType: "application/pdf",
				Size:        4,
			}},
			wantFields: []string{"imagenes[0]"},
		},
		{
			name:   "oversize image",
			mutate: func(in *CreateFichaInput) {},
			images: []ImageUpload{{
				Content:     strings.NewReader("x"),
				Filename:    "big.jpg",
				ContentType: "image/jpeg",
				Size:        maxFileSize + 1,
			}},
			wantFields: []string{"imagenes[0]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockFichaRepository)
			mQR := new(mockQRGenerator)
			svc := newTestService(mStore, mRepo, mQR)

			in := validInput()
			tt.mutate(in)

			ficha, err := svc.Create(ctx, in, tt.images)

			require.Error(t, err)
			assert.Nil(t, ficha)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantFields, verr.Fields)

			// Preconditions fail before any mutation: nothing stored, nothing inserted.
			mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			mRepo.AssertNotCalled(t, "CreateWithImages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestFichaService_Create(t *testing.T) {
	ctx := context.Background()
	qrPath := "uploads/qrs/qr-1-999.png"
	imgKey := func(key string) bool {
		return strings.HasPrefix(key, "uploads/imgs/img-") && strings.HasSuffix(key, ".jpg")
	}

	t.Run("happy path with two images", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFichaRepository)
		mQR := new(mockQRGenerator)
		svc := newTestService(mStore, mRepo, mQR)

		mStore.On("Put", ctx, mock.MatchedBy(imgKey), mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, nil).Twice()
		mQR.On("Generate", ctx, int64(1)).Return(qrPath, nil).Once()

		stored := &model.Ficha{ID: 1, QRCodePath: &qrPath}
		mRepo.On("CreateWithImages", ctx, mock.Anything, mock.MatchedBy(func(paths []string) bool {
			return len(paths) == 2 && imgKey(paths[0]) && imgKey(paths[1]) && paths[0] != paths[1]
		}), mock.Anything).
			Run(func(args mock.Arguments) {
				genQR := args.Get(3).(repository.QRFunc)
				p, err := genQR(1)
				require.NoError(t, err)
				require.Equal(t, qrPath, p)
			}).
			Return(stored, nil).Once()

		ficha, err := svc.Create(ctx, validInput(), []ImageUpload{jpegUpload(), jpegUpload()})

		require.NoError(t, err)
		assert.Equal(t, int64(1), ficha.ID)
		require.NotNil(t, ficha.QRCodePath)
		assert.Equal(t, qrPath, *ficha.QRCodePath)
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
		mQR.AssertExpectations(t)
	})

	t.Run("storage failure removes already written files", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFichaRepository)
		mQR := new(mockQRGenerator)
		svc := newTestService(mStore, mRepo, mQR)

		mStore.On("Put", ctx, mock.MatchedBy(imgKey), mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, nil).Once()
		mStore.On("Put", ctx, mock.MatchedBy(imgKey), mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, errors.New("disk full")).Once()
		mStore.On("Delete", mock.Anything, mock.MatchedBy(imgKey)).Return(nil).Once()

		_, err := svc.Create(ctx, validInput(), []ImageUpload{jpegUpload(), jpegUpload()})

		assert.ErrorContains(t, err, "save image")
		mStore.AssertExpectations(t)
		mRepo.AssertNotCalled(t, "CreateWithImages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository failure removes image and qr files", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFichaRepository)
		mQR := new(mockQRGenerator)
		svc := newTestService(mStore, mRepo, mQR)

		mStore.On("Put", ctx, mock.MatchedBy(imgKey), mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, nil).Once()
		mQR.On("Generate", ctx, int64(1)).Return(qrPath, nil).Once()
		mRepo.On("CreateWithImages", ctx, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				genQR := args.Get(3).(repository.QRFunc)
				_, _ = genQR(1)
			}).
			Return(nil, errors.New("commit fail")).Once()
		mStore.On("Delete", mock.Anything, mock.MatchedBy(imgKey)).Return(nil).Once()
		mStore.On("Delete", mock.Anything, qrPath).Return(nil).Once()

		_, err := svc.Create(ctx, validInput(), []ImageUpload{jpegUpload()})

		assert.ErrorContains(t, err, "create ficha")
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
		mQR.AssertExpectations(t)
	})

	t.Run("client disconnect still removes written files", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFichaRepository)
		mQR := new(mockQRGenerator)
		svc := newTestService(mStore, mRepo, mQR)

		reqCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		mStore.On("Put", reqCtx, mock.MatchedBy(imgKey), mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, nil).Once()
		mRepo.On("CreateWithImages", reqCtx, mock.Anything, mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(nil, context.Canceled).Once()
		// Deletions must run on a context that outlives the canceled request.
		mStore.On("Delete", mock.MatchedBy(func(c context.Context) bool {
			return c.Err() == nil
		}), mock.MatchedBy(imgKey)).Return(nil).Once()

		_, err := svc.Create(reqCtx, validInput(), []ImageUpload{jpegUpload()})

		assert.ErrorIs(t, err, context.Canceled)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("cleanup failure is swallowed", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFichaRepository)
		mQR := new(mockQRGenerator)
		svc := newTestService(mStore, mRepo, mQR)

		mStore.On("Put", ctx, mock.MatchedBy(imgKey), mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, nil).Once()
		mRepo.On("CreateWithImages", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("db down")).Once()
		mStore.On("Delete", mock.Anything, mock.MatchedBy(imgKey)).Return(errors.New("unlink fail")).Once()

		_, err := svc.Create(ctx, validInput(), []ImageUpload{jpegUpload()})

		// The store failure wins; the deletion failure is only logged.
		assert.ErrorContains(t, err, "db down")
		mStore.AssertExpectations(t)
	})
}

func TestFichaService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         int64
		setupMocks func(mRepo *repoMocks.MockFichaRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   1,
			setupMocks: func(mRepo *repoMocks.MockFichaRepository) {
				mRepo.On("FindByID", ctx, int64(1)).
					Return(&model.Ficha{ID: 1, Imagenes: []string{"uploads/imgs/img-1-a.jpg"}}, nil)
			},
		},
		{
			name:       "validation - non-positive id",
			id:         0,
			setupMocks: func(mRepo *repoMocks.MockFichaRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found",
			id:   99,
			setupMocks: func(mRepo *repoMocks.MockFichaRepository) {
				mRepo.On("FindByID", ctx, int64(99)).Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "store error",
			id:   2,
			setupMocks: func(mRepo *repoMocks.MockFichaRepository) {
				mRepo.On("FindByID", ctx, int64(2)).Return(nil, errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockFichaRepository)
			svc := newTestService(nil, mRepo, nil)

			tt.setupMocks(mRepo)

			f, err := svc.Get(ctx, tt.id)

			if tt.wantErr != nil {
				if errors.Is(tt.wantErr, ErrIDRequired) || errors.Is(tt.wantErr, ErrNotFound) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.Error(t, err)
				}
				assert.Nil(t, f)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.id, f.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestFichaService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults and page count", func(t *testing.T) {
		mRepo := new(repoMocks.MockFichaRepository)
		svc := newTestService(nil, mRepo, nil)

		mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
			Return(&repository.PageResult[model.FichaSummary]{
				Items: []model.FichaSummary{{ID: 1}},
				Total: 25,
			}, nil)

		res, err := svc.List(ctx, 0, 0)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Page)
		assert.Equal(t, 10, res.Limit)
		assert.Equal(t, 25, res.Total)
		assert.Equal(t, 3, res.Pages)
		mRepo.AssertExpectations(t)
	})

	t.Run("out of range page is empty, not an error", func(t *testing.T) {
		mRepo := new(repoMocks.MockFichaRepository)
		svc := newTestService(nil, mRepo, nil)

		mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 30}).
			Return(&repository.PageResult[model.FichaSummary]{
				Items: []model.FichaSummary{},
				Total: 25,
			}, nil)

		res, err := svc.List(ctx, 4, 10)

		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Equal(t, 4, res.Page)
		assert.Equal(t, 25, res.Total)
		assert.Equal(t, 3, res.Pages)
	})

	t.Run("empty store has zero pages", func(t *testing.T) {
		mRepo := new(repoMocks.MockFichaRepository)
		svc := newTestService(nil, mRepo, nil)

		mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
			Return(&repository.PageResult[model.FichaSummary]{Items: []model.FichaSummary{}, Total: 0}, nil)

		res, err := svc.List(ctx, 1, 10)

		require.NoError(t, err)
		assert.Zero(t, res.Pages)
		assert.Empty(t, res.Items)
	})

	t.Run("repository error", func(t *testing.T) {
		mRepo := new(repoMocks.MockFichaRepository)
		svc := newTestService(nil, mRepo, nil)

		mRepo.On("List", ctx, mock.Anything).Return(nil, errors.New("db error"))

		_, err := svc.List(ctx, 1, 10)
		assert.Error(t, err)
	})
}
