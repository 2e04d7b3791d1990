package cmd

// Env is what subcommands take from the root command's options. It is filled
// in after flags, environment and config file have been applied.
type Env struct {
	Daemon    Daemon
	ServerURL string
	Username  string
	Password  string
}
