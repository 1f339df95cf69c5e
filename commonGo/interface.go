package commonGo

import "time"

// FileLoggingHandler defines the actions that a file logging handler should do
type FileLoggingHandler interface {
	ChangeFileLifeSpan(newDuration time.Duration, newSizeInMB uint64) error
	Close() error
	IsInterfaceNil() bool
}
