package main

// GlobalFlags holds persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	Socket     string
}

// DevFlags describes an ad-hoc subgraph given on the command line plus
// overrides for the config file.
type DevFlags struct {
	Name          string
	Command       string
	URL           string
	WorkDir       string
	Env           []string
	MetricsListen string
	LogLevel      string
}
