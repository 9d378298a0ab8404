package main

import (
	"context"
	"fmt"
	"os"

	"github.com/buildbarn/bb-fetch/pkg/cas"
	"github.com/buildbarn/bb-fetch/pkg/fetch"
	"github.com/buildbarn/bb-fetch/pkg/location"
	"github.com/buildbarn/bb-fetch/pkg/remote"
	"github.com/buildbarn/bb-fetch/pkg/repository"
	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/program"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	bb_fetch "github.com/buildbarn/bb-fetch/pkg/configuration/bb_fetch"
	remote_configuration "github.com/buildbarn/bb-fetch/pkg/remote/configuration"
)

// bb_fetch downloads files and directories that are tracked by
// versioned data repositories, and provides direct access to the
// remote stores in which their contents are kept.
//
// Usage:
//
//	bb_fetch [flags] get URL PATH
//	bb_fetch [flags] list LOCATION
//	bb_fetch [flags] upload LOCAL_PATH LOCATION
//	bb_fetch [flags] download LOCATION LOCAL_PATH
//	bb_fetch [flags] exists LOCATION...

const usage = "Usage: bb_fetch [flags] get|list|upload|download|exists ..."

// environment holds everything commands need to access repositories and
// remote stores.
type environment struct {
	configuration *bb_fetch.ApplicationConfiguration
	remoteFactory *remote_configuration.RemoteFactory
	logger        *zap.Logger
}

func main() {
	program.RunMain(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		flags := pflag.NewFlagSet("bb_fetch", pflag.ContinueOnError)
		configurationPath := flags.String("config", "", "Path of an INI configuration file")
		verbose := flags.BoolP("verbose", "v", false, "Enable debug logging")
		timeout := flags.Duration("timeout", 0, "Maximum amount of time the command may take")
		metricsTextfile := flags.String("metrics-textfile", "", "Write Prometheus metrics to this file upon completion")
		revision := flags.String("rev", "", "Revision of the repository to fetch from (get only)")
		output := flags.StringP("out", "o", "", "Destination of the fetched output (get only)")
		if err := flags.Parse(os.Args[1:]); err != nil {
			return util.StatusWrapWithCode(err, codes.InvalidArgument, "Failed to parse command line flags")
		}
		args := flags.Args()
		if len(args) == 0 {
			return status.Error(codes.InvalidArgument, usage)
		}

		var logger *zap.Logger
		var err error
		if *verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return util.StatusWrapWithCode(err, codes.Internal, "Failed to create logger")
		}
		defer logger.Sync()

		configuration, err := bb_fetch.GetApplicationConfiguration(*configurationPath)
		if err != nil {
			return util.StatusWrapf(err, "Failed to read configuration from %#v", *configurationPath)
		}
		env := &environment{
			configuration: configuration,
			remoteFactory: remote_configuration.NewRemoteFactory(
				configuration,
				clock.SystemClock,
				remote.NewSlidingWindowCallRateLimiter(
					clock.SystemClock,
					configuration.Remote.MaximumCallsPerWindow,
					configuration.Remote.CallWindow),
				remote.NewLoggingProgressReporter(logger, 10),
				logger),
			logger: logger,
		}

		if *timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = clock.SystemClock.NewContextWithTimeout(ctx, *timeout)
			defer cancel()
		}

		command, commandArgs := args[0], args[1:]
		switch command {
		case "get":
			err = env.get(ctx, commandArgs, *output, *revision)
		case "list":
			err = env.list(ctx, commandArgs)
		case "upload":
			err = env.upload(ctx, commandArgs)
		case "download":
			err = env.download(ctx, commandArgs)
		case "exists":
			err = env.exists(ctx, commandArgs)
		default:
			err = status.Errorf(codes.InvalidArgument, "Unknown command %#v. %s", command, usage)
		}

		if *metricsTextfile != "" {
			if metricsErr := prometheus.WriteToTextfile(*metricsTextfile, prometheus.DefaultGatherer); metricsErr != nil {
				logger.Warn("Failed to write metrics", zap.String("path", *metricsTextfile), zap.Error(metricsErr))
			}
		}
		return err
	})
}

func (env *environment) get(ctx context.Context, args []string, output, revision string) error {
	if len(args) != 2 {
		return status.Error(codes.InvalidArgument, "Usage: bb_fetch get [--rev REVISION] [--out PATH] URL PATH")
	}
	linkTypes, err := cas.ParseLinkTypes(env.configuration.Fetch.LinkTypes)
	if err != nil {
		return util.StatusWrap(err, "Invalid link types")
	}
	fetcher := fetch.NewTracingFetcher(
		fetch.NewMetricsFetcher(
			fetch.NewRepositoryFetcher(
				repository.NewGitProvider(env.configuration.Fetch.GitPath, env.remoteFactory, env.logger),
				uuid.NewRandom,
				cas.NewFallbackFileInstaller(cas.NewLinkTypeInstallers(linkTypes)),
				env.logger),
			clock.SystemClock),
		otel.GetTracerProvider())
	return fetcher.Fetch(ctx, args[0], args[1], output, revision)
}

func (env *environment) newRemote(s string) (*remote.Remote, location.Location, error) {
	l, err := location.Parse(s)
	if err != nil {
		return nil, location.Location{}, err
	}
	r, err := env.remoteFactory.NewRemoteFromLocation(l)
	if err != nil {
		return nil, location.Location{}, err
	}
	return r, l, nil
}

func (env *environment) list(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return status.Error(codes.InvalidArgument, "Usage: bb_fetch list LOCATION")
	}
	r, l, err := env.newRemote(args[0])
	if err != nil {
		return err
	}
	for p, err := range r.ListTree(ctx, l) {
		if err != nil {
			return err
		}
		fmt.Println(p)
	}
	return nil
}

func (env *environment) upload(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return status.Error(codes.InvalidArgument, "Usage: bb_fetch upload LOCAL_PATH LOCATION")
	}
	destination, err := location.Parse(args[1])
	if err != nil {
		return err
	}
	parent, ok := destination.Parent()
	if !ok {
		return status.Errorf(codes.InvalidArgument, "Cannot upload to root of %#v", destination.String())
	}
	r, err := env.remoteFactory.NewRemoteFromLocation(parent)
	if err != nil {
		return err
	}
	if err := r.Init(ctx); err != nil {
		return err
	}
	return r.Upload(ctx, args[0], destination, destination.Name(), true)
}

func (env *environment) download(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return status.Error(codes.InvalidArgument, "Usage: bb_fetch download LOCATION LOCAL_PATH")
	}
	r, l, err := env.newRemote(args[0])
	if err != nil {
		return err
	}
	return r.Download(ctx, l, args[1], l.Name(), true)
}

func (env *environment) exists(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return status.Error(codes.InvalidArgument, "Usage: bb_fetch exists LOCATION...")
	}
	locations := make([]location.Location, 0, len(args))
	for _, arg := range args {
		l, err := location.Parse(arg)
		if err != nil {
			return err
		}
		locations = append(locations, l)
	}
	// All locations are checked through the remote of the first one.
	r, err := env.remoteFactory.NewRemoteFromLocation(locations[0])
	if err != nil {
		return err
	}
	results, err := r.BatchExists(ctx, locations, func(l location.Location) {
		env.logger.Debug("Checked existence", zap.Stringer("location", l))
	})
	if err != nil {
		return err
	}
	for i, l := range locations {
		fmt.Printf("%s\t%t\n", l, results[i])
	}
	return nil
}
