package iface

// Level is the severity of a log record. Values other than the predefined
// constants are accepted and treated as informational.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger is an interface to the logger the client writes to.
type Logger interface {
	// Log writes a record at the given level. Arguments should be handled
	// in the manner of fmt.Printf.
	Log(level Level, format string, args ...interface{})
}
