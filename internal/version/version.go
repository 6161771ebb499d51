package version

var (
	AppName    = "Airlock"
	AppVersion = "dev" // overridden with -ldflags at release time
)
