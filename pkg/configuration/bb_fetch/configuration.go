package configuration

import (
	"time"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"gopkg.in/ini.v1"
)

// RemoteConfiguration contains the options that apply to all remote
// store backends.
type RemoteConfiguration struct {
	MaximumCallsPerWindow int
	CallWindow            time.Duration
	BatchConcurrency      int64
}

// GDriveConfiguration contains the options of the Google Drive backend.
type GDriveConfiguration struct {
	CredentialsPath string
}

// OSSConfiguration contains the options of the Alibaba Cloud OSS
// backend.
type OSSConfiguration struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
}

// FetchConfiguration contains the options of the fetch-and-checkout
// pipeline.
type FetchConfiguration struct {
	LinkTypes []string
	GitPath   string
}

// ApplicationConfiguration is the configuration of bb_fetch.
type ApplicationConfiguration struct {
	Remote RemoteConfiguration
	GDrive GDriveConfiguration
	OSS    OSSConfiguration
	Fetch  FetchConfiguration
}

// GetApplicationConfiguration reads the configuration from file and
// fills in default values. A missing file yields the defaults.
func GetApplicationConfiguration(path string) (*ApplicationConfiguration, error) {
	var file *ini.File
	if path == "" {
		file = ini.Empty()
	} else {
		var err error
		file, err = ini.LoadSources(ini.LoadOptions{Loose: true}, path)
		if err != nil {
			return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Failed to retrieve configuration")
		}
	}
	return newApplicationConfiguration(file), nil
}

// ParseApplicationConfiguration parses configuration stored in memory
// and fills in default values.
func ParseApplicationConfiguration(data []byte) (*ApplicationConfiguration, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Failed to parse configuration")
	}
	return newApplicationConfiguration(file), nil
}

func newApplicationConfiguration(file *ini.File) *ApplicationConfiguration {
	remote := file.Section("remote")
	gdrive := file.Section("gdrive")
	oss := file.Section("oss")
	fetch := file.Section("fetch")
	configuration := &ApplicationConfiguration{
		Remote: RemoteConfiguration{
			MaximumCallsPerWindow: remote.Key("maximum_calls_per_window").MustInt(8),
			CallWindow:            remote.Key("call_window").MustDuration(10 * time.Second),
			BatchConcurrency:      remote.Key("batch_concurrency").MustInt64(16),
		},
		GDrive: GDriveConfiguration{
			CredentialsPath: gdrive.Key("credentials_path").String(),
		},
		OSS: OSSConfiguration{
			Endpoint:        oss.Key("endpoint").String(),
			AccessKeyID:     oss.Key("access_key_id").String(),
			AccessKeySecret: oss.Key("access_key_secret").String(),
		},
		Fetch: FetchConfiguration{
			LinkTypes: fetch.Key("link_types").Strings(","),
			GitPath:   fetch.Key("git_path").MustString("git"),
		},
	}
	setDefaultApplicationValues(configuration)
	return configuration
}

func setDefaultApplicationValues(configuration *ApplicationConfiguration) {
	if configuration.Remote.MaximumCallsPerWindow <= 0 {
		configuration.Remote.MaximumCallsPerWindow = 8
	}
	if configuration.Remote.CallWindow <= 0 {
		configuration.Remote.CallWindow = 10 * time.Second
	}
	if configuration.Remote.BatchConcurrency <= 0 {
		configuration.Remote.BatchConcurrency = 16
	}
	if len(configuration.Fetch.LinkTypes) == 0 {
		configuration.Fetch.LinkTypes = []string{"reflink", "hardlink", "copy"}
	}
	if configuration.Fetch.GitPath == "" {
		configuration.Fetch.GitPath = "git"
	}
}
