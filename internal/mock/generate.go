package mock

//go:generate mockgen -destination cas.go -package mock github.com/buildbarn/bb-fetch/pkg/cas FileInstaller
//go:generate mockgen -destination clock.go -package mock github.com/buildbarn/bb-storage/pkg/clock Clock,Ticker,Timer
//go:generate mockgen -destination fetch.go -package mock github.com/buildbarn/bb-fetch/pkg/fetch Fetcher
//go:generate mockgen -destination remote.go -package mock github.com/buildbarn/bb-fetch/pkg/remote Client,CallRateLimiter,ProgressReporter,Progress
//go:generate mockgen -destination repository.go -package mock github.com/buildbarn/bb-fetch/pkg/repository State,Artifact,Repository,Provider,RemoteOpener
//go:generate mockgen -destination uuid.go -package mock github.com/buildbarn/bb-fetch/internal/mock/aliases UUIDGenerator
