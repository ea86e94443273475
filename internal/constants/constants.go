package constants

const (
	AppName = "titr"
	Version = "0.10.0"

	// SchemaVersion is the sqlite PRAGMA user_version this build writes
	// and expects.
	SchemaVersion = 2

	// Repo is printed in the welcome banner.
	Repo = "https://github.com/blairfrandeen/titr"
)
