package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoSource is returned when neither an API URL nor export directories are set.
	ErrNoSource = errors.New("no data source: set api.base_url or sources.export_dirs")

	// ErrInvalidAPIURL is returned when the API base URL is not an http(s) URL.
	ErrInvalidAPIURL = errors.New("invalid api base url: must be an http or https URL")

	// ErrInvalidTimeout is returned when a timeout is <= 0.
	ErrInvalidTimeout = errors.New("invalid timeout: must be > 0")

	// ErrInvalidRateLimit is returned when the request rate or burst is <= 0.
	ErrInvalidRateLimit = errors.New("invalid rate limit: requests_per_second and burst must be > 0")

	// ErrInvalidRetry is returned when max retries is < 0 or retry delay is <= 0.
	ErrInvalidRetry = errors.New("invalid retry settings: max_retries must be >= 0 and retry_delay > 0")

	// ErrNoDBPath is returned when no database path is set.
	ErrNoDBPath = errors.New("no snapshot database path specified")

	// ErrNoSignalDir is returned when no signal directory is set.
	ErrNoSignalDir = errors.New("no signal directory specified")

	// ErrInvalidDebounce is returned when the signal debounce is <= 0.
	ErrInvalidDebounce = errors.New("invalid signal debounce: must be > 0")

	// ErrInvalidRetention is returned when signal retention does not exceed the debounce.
	ErrInvalidRetention = errors.New("invalid signal retention: must be greater than debounce")

	// ErrInvalidTopWorks is returned when a ranking size is <= 0.
	ErrInvalidTopWorks = errors.New("invalid ranking size: top_works and chart_works must be > 0")

	// ErrInvalidTimelineWindow is returned when the timeline window is <= 0.
	ErrInvalidTimelineWindow = errors.New("invalid timeline window: must be > 0")

	// ErrInvalidRefreshInterval is returned when the refresh interval is <= 0.
	ErrInvalidRefreshInterval = errors.New("invalid refresh interval: must be > 0")

	// ErrInvalidTimezone is returned when the timezone cannot be loaded.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrInvalidDisplayFormat is returned when display format is not recognized.
	ErrInvalidDisplayFormat = errors.New("invalid display format: must be table, json, or simple")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
