package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a console logger tagged with module. Output goes to stderr so
// it never mixes with command output on stdout.
func New(module string) zerolog.Logger {
	return NewWriter(os.Stderr, module)
}

func NewWriter(w io.Writer, module string) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:           w,
		TimeFormat:    "15:04",
		PartsOrder:    []string{"time", "level", "module", "message"},
		FieldsExclude: []string{"module"},
	}

	out.FormatPartValueByName = func(i any, s string) string {
		if s == "module" && i != nil {
			return strings.ToUpper(fmt.Sprintf("%s", i))
		}
		return ""
	}

	out.FormatFieldName = func(i any) string {
		return fmt.Sprintf("\n         \033[30m- \033[36m%s: \033[0m", i)
	}

	out.FormatErrFieldName = func(i any) string {
		return fmt.Sprintf("\n         \033[30m- \033[31m%s: \033[0m", i)
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Str("module", module).
		Logger()
}

// Module derives a child logger for another module from parent, keeping
// parent's level and output.
func Module(parent *zerolog.Logger, module string) *zerolog.Logger {
	if parent == nil {
		nop := zerolog.Nop()
		return &nop
	}
	l := parent.With().Str("module", module).Logger()
	return &l
}

// SetLevel sets the global level from a name such as "debug" or "warn".
// An empty name keeps the current level.
func SetLevel(name string) error {
	if name == "" {
		return nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return fmt.Errorf("failed to parse log level '%s': %w", name, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
