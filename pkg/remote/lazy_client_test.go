package remote_test

import (
	"context"
	"testing"

	"github.com/buildbarn/bb-fetch/internal/mock"
	"github.com/buildbarn/bb-fetch/pkg/remote"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLazyClient(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	baseClient := mock.NewMockClient(ctrl)
	factoryCalls := 0
	var factoryErr error
	client := remote.NewLazyClient(func(ctx context.Context) (remote.Client, error) {
		factoryCalls++
		if factoryErr != nil {
			return nil, factoryErr
		}
		return baseClient, nil
	}, zap.NewNop())

	// Merely creating the client should not cause authentication
	// to take place.
	require.Equal(t, 0, factoryCalls)

	t.Run("CreationFailure", func(t *testing.T) {
		factoryErr = status.Error(codes.Unauthenticated, "Credentials file is malformed")
		_, err := client.GetItem(ctx, "item-1")
		testutil.RequireEqualStatus(t, status.Error(codes.Unauthenticated, "Failed to create client: Credentials file is malformed"), err)
		require.Equal(t, 1, factoryCalls)
	})

	t.Run("CreationSuccess", func(t *testing.T) {
		// Failures should not be memoized.
		factoryErr = nil
		baseClient.EXPECT().ListChildren(ctx, "root", "").Return(nil, nil)
		_, err := client.ListChildren(ctx, "root", "")
		require.NoError(t, err)
		require.Equal(t, 2, factoryCalls)
	})

	t.Run("Reuse", func(t *testing.T) {
		baseClient.EXPECT().GetItem(ctx, "item-1").Return(remote.Item{ID: "item-1"}, nil)
		_, err := client.GetItem(ctx, "item-1")
		require.NoError(t, err)

		underlyingClient, err := client.Client(ctx)
		require.NoError(t, err)
		require.Equal(t, remote.Client(baseClient), underlyingClient)
		require.Equal(t, 2, factoryCalls)
	})
}
