package workflows_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/mocks"
	"github.com/feral-file/ff-marketplace/internal/wallet"
	"github.com/feral-file/ff-marketplace/internal/workflows"
)

const testOwner = "0x99fc8AD516FBCC9bA3123D56e63A35d05AA9EFB8"

// testListerMocks contains all the mocks needed for testing the ownership workflow
type testListerMocks struct {
	ctrl     *gomock.Controller
	storage  *mocks.MockStorageClient
	contract *mocks.MockContractClient
	signer   wallet.Signer
	lister   workflows.OwnershipLister
}

func setupTestLister(t *testing.T, concurrency int) *testListerMocks {
	t.Helper()
	ctrl := gomock.NewController(t)

	tm := &testListerMocks{
		ctrl:     ctrl,
		storage:  mocks.NewMockStorageClient(ctrl),
		contract: mocks.NewMockContractClient(ctrl),
		signer:   newSigner(t),
	}
	tm.lister = workflows.NewOwnershipLister(workflows.OwnershipConfig{Concurrency: concurrency},
		tm.storage, tm.contract, adapter.NewClock(), nil)

	return tm
}

// expectMetadata serves metadata for a token whose metadata hash is "QmMeta<id>"
func (tm *testListerMocks) expectMetadata(tokenID domain.TokenID) {
	hash := domain.ContentHash("QmMeta" + tokenID.String())
	image := domain.ContentHash("QmImage" + tokenID.String())

	tm.contract.EXPECT().TokenURI(gomock.Any(), tm.signer, tokenID).Return(hash, nil)
	tm.storage.EXPECT().RetrieveJSON(gomock.Any(), hash, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.ContentHash, v interface{}) error {
			metadata := v.(*domain.TokenMetadata)
			metadata.Name = "Token " + tokenID.String()
			metadata.Description = "Description"
			metadata.Image = image
			metadata.Attributes = []domain.Attribute{{TraitType: domain.TRAIT_TYPE_ARTIST, Value: "Ada"}}
			return nil
		})
	tm.storage.EXPECT().RetrieveFile(image).Return("https://gateway.example.com/ipfs/" + image.String())
}

func TestListOwnedTokens(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
	}{
		{name: "sequential", concurrency: 1},
		{name: "concurrent", concurrency: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestLister(t, tt.concurrency)
			owned := map[domain.TokenID]bool{2: true, 3: true, 5: true}

			tm.contract.EXPECT().TotalSupply(gomock.Any(), tm.signer).Return(uint64(5), nil)
			tm.contract.EXPECT().IsOwner(gomock.Any(), tm.signer, gomock.Any(), testOwner).
				DoAndReturn(func(_ context.Context, _ wallet.Signer, tokenID domain.TokenID, _ string) (bool, error) {
					return owned[tokenID], nil
				}).Times(5)
			for id := range owned {
				tm.expectMetadata(id)
			}

			tokens, err := tm.lister.ListOwnedTokens(context.Background(), tm.signer, testOwner)
			require.NoError(t, err)
			require.Len(t, tokens, 3)

			for i, id := range []domain.TokenID{2, 3, 5} {
				assert.Equal(t, id, tokens[i].TokenID)
				assert.Equal(t, testOwner, tokens[i].Owner)
				assert.Equal(t, "Token "+id.String(), tokens[i].Name)
				assert.Equal(t, "Ada", tokens[i].Artist)
				assert.Equal(t, domain.ContentHash("QmMeta"+id.String()), tokens[i].MetadataHash)
				assert.Equal(t, "https://gateway.example.com/ipfs/QmImage"+id.String(), tokens[i].ImageURL)
			}
		})
	}
}

func TestListOwnedTokens_DefaultsToSignerAddress(t *testing.T) {
	tm := setupTestLister(t, 1)

	tm.contract.EXPECT().TotalSupply(gomock.Any(), gomock.Any()).Return(uint64(1), nil)
	tm.contract.EXPECT().IsOwner(gomock.Any(), gomock.Any(), domain.TokenID(1), tm.signer.Address().Hex()).Return(false, nil)

	tokens, err := tm.lister.ListOwnedTokens(context.Background(), tm.signer, "")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestListOwnedTokens_EmptySupply(t *testing.T) {
	tm := setupTestLister(t, 2)

	tm.contract.EXPECT().TotalSupply(gomock.Any(), gomock.Any()).Return(uint64(0), nil)

	tokens, err := tm.lister.ListOwnedTokens(context.Background(), tm.signer, testOwner)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestListOwnedTokens_OwnershipErrorCountsAsNotOwned(t *testing.T) {
	tm := setupTestLister(t, 1)

	tm.contract.EXPECT().TotalSupply(gomock.Any(), gomock.Any()).Return(uint64(3), nil)
	tm.contract.EXPECT().IsOwner(gomock.Any(), gomock.Any(), domain.TokenID(1), testOwner).
		Return(false, &domain.OwnershipCheckError{TokenID: 1, Err: errors.New("execution reverted")})
	tm.contract.EXPECT().IsOwner(gomock.Any(), gomock.Any(), domain.TokenID(2), testOwner).Return(true, nil)
	tm.contract.EXPECT().IsOwner(gomock.Any(), gomock.Any(), domain.TokenID(3), testOwner).
		Return(false, errors.New("connection reset"))
	tm.expectMetadata(2)

	tokens, err := tm.lister.ListOwnedTokens(context.Background(), tm.signer, testOwner)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, domain.TokenID(2), tokens[0].TokenID)
}

func TestListOwnedTokens_MetadataFailureKeepsToken(t *testing.T) {
	tm := setupTestLister(t, 1)

	tm.contract.EXPECT().TotalSupply(gomock.Any(), gomock.Any()).Return(uint64(2), nil)
	tm.contract.EXPECT().IsOwner(gomock.Any(), gomock.Any(), gomock.Any(), testOwner).Return(true, nil).Times(2)
	tm.contract.EXPECT().TokenURI(gomock.Any(), gomock.Any(), domain.TokenID(1)).Return(domain.ContentHash("QmMeta1"), nil)
	tm.storage.EXPECT().RetrieveJSON(gomock.Any(), domain.ContentHash("QmMeta1"), gomock.Any()).Return(errors.New("gateway timeout"))
	tm.contract.EXPECT().TokenURI(gomock.Any(), gomock.Any(), domain.TokenID(2)).Return(domain.ContentHash(""), errors.New("reverted"))

	tokens, err := tm.lister.ListOwnedTokens(context.Background(), tm.signer, testOwner)
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	assert.Equal(t, domain.TokenID(1), tokens[0].TokenID)
	assert.Equal(t, domain.ContentHash("QmMeta1"), tokens[0].MetadataHash)
	assert.Empty(t, tokens[0].ImageURL)
	assert.Equal(t, domain.TokenID(2), tokens[1].TokenID)
	assert.Empty(t, tokens[1].ImageURL)
}

func TestListOwnedTokens_SupplyFailure(t *testing.T) {
	tm := setupTestLister(t, 1)

	tm.contract.EXPECT().TotalSupply(gomock.Any(), gomock.Any()).Return(uint64(0), errors.New("rpc down"))

	tokens, err := tm.lister.ListOwnedTokens(context.Background(), tm.signer, testOwner)
	assert.Nil(t, tokens)
	assert.ErrorContains(t, err, "rpc down")
}

func TestListOwnedTokens_SignerRequired(t *testing.T) {
	tm := setupTestLister(t, 1)

	_, err := tm.lister.ListOwnedTokens(context.Background(), nil, testOwner)
	assert.ErrorIs(t, err, domain.ErrSignerRequired)
}

func TestListOwnedTokens_Canceled(t *testing.T) {
	tm := setupTestLister(t, 1)
	ctx, cancel := context.WithCancel(context.Background())

	tm.contract.EXPECT().TotalSupply(gomock.Any(), gomock.Any()).Return(uint64(100), nil)
	tm.contract.EXPECT().IsOwner(gomock.Any(), gomock.Any(), gomock.Any(), testOwner).
		DoAndReturn(func(_ context.Context, _ wallet.Signer, _ domain.TokenID, _ string) (bool, error) {
			cancel()
			return false, nil
		}).MinTimes(1).MaxTimes(100)

	_, err := tm.lister.ListOwnedTokens(ctx, tm.signer, testOwner)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenDetails(t *testing.T) {
	tm := setupTestLister(t, 1)

	tm.contract.EXPECT().TotalSupply(gomock.Any(), gomock.Any()).Return(uint64(3), nil)
	tm.contract.EXPECT().OwnerOf(gomock.Any(), gomock.Any(), domain.TokenID(2)).Return(testOwner, nil)
	tm.expectMetadata(2)
	tm.storage.EXPECT().IsImageURL(gomock.Any(), "https://gateway.example.com/ipfs/QmImage2").Return(true)

	token, err := tm.lister.TokenDetails(context.Background(), tm.signer, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenID(2), token.TokenID)
	assert.Equal(t, testOwner, token.Owner)
	assert.Equal(t, "Token 2", token.Name)
	assert.Equal(t, "Ada", token.Artist)
	require.NotNil(t, token.IsImage)
	assert.True(t, *token.IsImage)
}

func TestTokenDetails_NotFound(t *testing.T) {
	tests := []struct {
		name    string
		tokenID domain.TokenID
	}{
		{name: "zero", tokenID: 0},
		{name: "beyond supply", tokenID: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestLister(t, 1)
			tm.contract.EXPECT().TotalSupply(gomock.Any(), gomock.Any()).Return(uint64(3), nil)

			token, err := tm.lister.TokenDetails(context.Background(), tm.signer, tt.tokenID)
			assert.Nil(t, token)
			assert.ErrorIs(t, err, domain.ErrTokenNotFound)
		})
	}
}

func TestTokenDetails_MetadataFailure(t *testing.T) {
	tm := setupTestLister(t, 1)

	tm.contract.EXPECT().TotalSupply(gomock.Any(), gomock.Any()).Return(uint64(1), nil)
	tm.contract.EXPECT().OwnerOf(gomock.Any(), gomock.Any(), domain.TokenID(1)).Return(testOwner, nil)
	tm.contract.EXPECT().TokenURI(gomock.Any(), gomock.Any(), domain.TokenID(1)).Return(domain.ContentHash("QmMeta1"), nil)
	tm.storage.EXPECT().RetrieveJSON(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("not found"))

	_, err := tm.lister.TokenDetails(context.Background(), tm.signer, 1)
	assert.ErrorContains(t, err, "failed to retrieve metadata")
}

func TestTotalSupply(t *testing.T) {
	tm := setupTestLister(t, 1)

	tm.contract.EXPECT().TotalSupply(gomock.Any(), tm.signer).Return(uint64(7), nil)

	supply, err := tm.lister.TotalSupply(context.Background(), tm.signer)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), supply)

	_, err = tm.lister.TotalSupply(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrSignerRequired)
}

func TestListOwnedTokens_RateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorageClient(ctrl)
	contract := mocks.NewMockContractClient(ctrl)
	signer := newSigner(t)

	lister := workflows.NewOwnershipLister(workflows.OwnershipConfig{Concurrency: 2, RateLimit: 50},
		storage, contract, adapter.NewClock(), nil)

	contract.EXPECT().TotalSupply(gomock.Any(), gomock.Any()).Return(uint64(6), nil)
	contract.EXPECT().IsOwner(gomock.Any(), gomock.Any(), gomock.Any(), testOwner).Return(false, nil).Times(6)

	start := time.Now()
	tokens, err := lister.ListOwnedTokens(context.Background(), signer, testOwner)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	// Burst of 2, then 4 more checks at 50/s
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestOwnershipLister_Timeout(t *testing.T) {
	tests := []struct {
		name string
		call func(l workflows.OwnershipLister, signer wallet.Signer) error
	}{
		{
			name: "list owned tokens",
			call: func(l workflows.OwnershipLister, signer wallet.Signer) error {
				_, err := l.ListOwnedTokens(context.Background(), signer, testOwner)
				return err
			},
		},
		{
			name: "token details",
			call: func(l workflows.OwnershipLister, signer wallet.Signer) error {
				_, err := l.TokenDetails(context.Background(), signer, 1)
				return err
			},
		},
		{
			name: "total supply",
			call: func(l workflows.OwnershipLister, signer wallet.Signer) error {
				_, err := l.TotalSupply(context.Background(), signer)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			contract := mocks.NewMockContractClient(ctrl)
			signer := newSigner(t)
			lister := workflows.NewOwnershipLister(workflows.OwnershipConfig{Timeout: 20 * time.Millisecond},
				mocks.NewMockStorageClient(ctrl), contract, adapter.NewClock(), nil)

			// The node never answers
			contract.EXPECT().TotalSupply(gomock.Any(), signer).
				DoAndReturn(func(ctx context.Context, _ wallet.Signer) (uint64, error) {
					<-ctx.Done()
					return 0, ctx.Err()
				})

			errCh := make(chan error, 1)
			go func() {
				errCh <- tt.call(lister, signer)
			}()

			select {
			case err := <-errCh:
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			case <-time.After(2 * time.Second):
				t.Fatal("lister did not give up on a hung read")
			}
		})
	}
}
