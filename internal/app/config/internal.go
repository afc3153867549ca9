package config

type InternalConfig struct {
	App     App
	Booking Booking
	Slot    SlotGeneration
}

type App struct {
	Env                       string
	Port                      string
	Version                   string
	Address                   string
	Timezone                  string
	EndpointPrefix            string
	ShutdownTimeout           int
	MaxRequests               int
	MaxTimeRequestsPerSeconds int
}

type Booking struct {
	TimeoutInSeconds              int
	MaxRetry                      int
	RetryBackoffInSeconds         int
	DeadlinePollIntervalInSeconds int
}

type SlotGeneration struct {
	CronSpec           string
	WeeksAhead         int
	DefaultMaxQuantity int
	PackageIDs         []string
}
