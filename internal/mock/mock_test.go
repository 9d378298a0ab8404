package mock_test

import (
	"testing"
	"time"

	"github.com/buildbarn/bb-fetch/internal/mock"
	"github.com/buildbarn/bb-fetch/internal/mock/aliases"
	"github.com/buildbarn/bb-fetch/pkg/cas"
	"github.com/buildbarn/bb-fetch/pkg/fetch"
	"github.com/buildbarn/bb-fetch/pkg/remote"
	"github.com/buildbarn/bb-fetch/pkg/repository"
	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	_ cas.FileInstaller       = (*mock.MockFileInstaller)(nil)
	_ clock.Clock             = (*mock.MockClock)(nil)
	_ clock.Ticker            = (*mock.MockTicker)(nil)
	_ clock.Timer             = (*mock.MockTimer)(nil)
	_ fetch.Fetcher           = (*mock.MockFetcher)(nil)
	_ remote.Client           = (*mock.MockClient)(nil)
	_ remote.CallRateLimiter  = (*mock.MockCallRateLimiter)(nil)
	_ remote.ProgressReporter = (*mock.MockProgressReporter)(nil)
	_ remote.Progress         = (*mock.MockProgress)(nil)
	_ repository.State        = (*mock.MockState)(nil)
	_ repository.Artifact     = (*mock.MockArtifact)(nil)
	_ repository.Repository   = (*mock.MockRepository)(nil)
	_ repository.Provider     = (*mock.MockProvider)(nil)
	_ repository.RemoteOpener = (*mock.MockRemoteOpener)(nil)
	_ aliases.UUIDGenerator   = (*mock.MockUUIDGenerator)(nil)
)

func TestMockClockTicker(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Clock must be mockable in its entirety, including tickers.
	var c clock.Clock = mock.NewMockClock(ctrl)
	ticker := mock.NewMockTicker(ctrl)
	channel := make(chan time.Time)
	c.(*mock.MockClock).EXPECT().NewTicker(time.Second).Return(ticker, (<-chan time.Time)(channel))
	ticker.EXPECT().Stop()

	gotTicker, gotChannel := c.NewTicker(time.Second)
	require.Equal(t, (<-chan time.Time)(channel), gotChannel)
	gotTicker.Stop()
}

func TestMockUUIDGenerator(t *testing.T) {
	ctrl := gomock.NewController(t)

	uuidGenerator := mock.NewMockUUIDGenerator(ctrl)
	var generate util.UUIDGenerator = uuidGenerator.Call
	uuidGenerator.EXPECT().Call().Return(uuid.Must(uuid.Parse("36ebab65-3c4f-4faf-818b-2eabb4cd1b02")), nil)

	id, err := generate()
	require.NoError(t, err)
	require.Equal(t, "36ebab65-3c4f-4faf-818b-2eabb4cd1b02", id.String())
}
