package configuration

import (
	"context"
	"sync"

	"github.com/buildbarn/bb-fetch/pkg/location"
	"github.com/buildbarn/bb-fetch/pkg/remote"
	"github.com/buildbarn/bb-fetch/pkg/remote/gdrive"
	"github.com/buildbarn/bb-fetch/pkg/remote/local"
	"github.com/buildbarn/bb-fetch/pkg/remote/memory"
	"github.com/buildbarn/bb-fetch/pkg/remote/oss"
	"github.com/buildbarn/bb-storage/pkg/clock"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	bb_fetch "github.com/buildbarn/bb-fetch/pkg/configuration/bb_fetch"
)

// RemoteFactory creates Remotes for Locations, dispatching on the
// scheme of the Location to select a backend. All Remotes created
// through the same RemoteFactory share a single CallRateLimiter.
type RemoteFactory struct {
	configuration    *bb_fetch.ApplicationConfiguration
	clock            clock.Clock
	rateLimiter      remote.CallRateLimiter
	progressReporter remote.ProgressReporter
	logger           *zap.Logger

	lock          sync.Mutex
	memoryClients map[string]*memory.Client
}

// NewRemoteFactory creates a RemoteFactory.
func NewRemoteFactory(configuration *bb_fetch.ApplicationConfiguration, clock clock.Clock, rateLimiter remote.CallRateLimiter, progressReporter remote.ProgressReporter, logger *zap.Logger) *RemoteFactory {
	return &RemoteFactory{
		configuration:    configuration,
		clock:            clock,
		rateLimiter:      rateLimiter,
		progressReporter: progressReporter,
		logger:           logger,
		memoryClients:    map[string]*memory.Client{},
	}
}

// NewRemoteFromLocation creates a Remote for the container of a
// Location. Backends that require authentication are not contacted
// until the first call is made.
func (rf *RemoteFactory) NewRemoteFromLocation(l location.Location) (*remote.Remote, error) {
	var client remote.Client
	var rootID string
	logger := rf.logger.With(zap.Stringer("remote", l))
	switch l.Scheme {
	case location.SchemeGDrive:
		credentialsPath := rf.configuration.GDrive.CredentialsPath
		if credentialsPath == "" {
			return nil, status.Errorf(codes.FailedPrecondition, "No Google Drive credentials path configured for remote %#v", l.String())
		}
		client = rf.newLazyRateLimitedClient(func(ctx context.Context) (remote.Client, error) {
			// The service retains the context to refresh tokens.
			return gdrive.NewClient(context.WithoutCancel(ctx), credentialsPath)
		}, "gdrive", logger)
		rootID = l.Root
	case location.SchemeOSS:
		ossConfiguration := rf.configuration.OSS
		if ossConfiguration.Endpoint == "" {
			return nil, status.Errorf(codes.FailedPrecondition, "No OSS endpoint configured for remote %#v", l.String())
		}
		client = rf.newLazyRateLimitedClient(func(ctx context.Context) (remote.Client, error) {
			return oss.NewClient(ossConfiguration.Endpoint, ossConfiguration.AccessKeyID, ossConfiguration.AccessKeySecret, l.Root)
		}, "oss", logger)
		rootID = oss.RootID
	case location.SchemeLocal:
		client = remote.NewMetricsClient(local.NewClient(), rf.clock, "local")
		rootID = local.RootID
	case location.SchemeMemory:
		rf.lock.Lock()
		memoryClient, ok := rf.memoryClients[l.Root]
		if !ok {
			memoryClient = memory.NewClient(l.Root)
			rf.memoryClients[l.Root] = memoryClient
		}
		rf.lock.Unlock()
		client = memoryClient
		rootID = l.Root
	default:
		return nil, status.Errorf(codes.InvalidArgument, "Remote %#v has unsupported scheme %#v", l.String(), string(l.Scheme))
	}
	return remote.NewRemote(l, client, rootID, rf.progressReporter, rf.configuration.Remote.BatchConcurrency), nil
}

func (rf *RemoteFactory) newLazyRateLimitedClient(factory remote.ClientFactory, backend string, logger *zap.Logger) remote.Client {
	return remote.NewLazyClient(func(ctx context.Context) (remote.Client, error) {
		client, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		return remote.NewRateLimitingClient(remote.NewMetricsClient(client, rf.clock, backend), rf.rateLimiter), nil
	}, logger)
}
