package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger is an interface for the leveled, namespaced logger.
type Logger interface {
	// Namespace returns the current logger's namespace.
	Namespace() string

	// IsLevelEnabled returns true when level is enabled, false otherwise.
	IsLevelEnabled(level Level) bool

	// WithCtx returns a new Logger with ctx appended to existing context.
	WithCtx(ctx Ctx) Logger

	// WithConfig returns a new Logger with config set.
	WithConfig(config Config) Logger

	// WithWriter returns a new Logger with writer set.
	WithWriter(w io.Writer) Logger

	// WithNamespaceAppended returns a new Logger with namespace appended.
	WithNamespaceAppended(namespace string) Logger

	// Trace adds a log entry with level trace.
	Trace(message string, ctx Ctx)

	// Debug adds a log entry with level debug.
	Debug(message string, ctx Ctx)

	// Info adds a log entry with level info.
	Info(message string, ctx Ctx)

	// Warn adds a log entry with level warn.
	Warn(message string, ctx Ctx)

	// Error adds a log entry with level error.
	Error(message string, err error, ctx Ctx)
}

// logger writes formatted entries to writer when the namespace level allows.
type logger struct {
	config    Config
	ctx       Ctx
	namespace string
	writer    io.Writer
	mu        *sync.Mutex
}

// New returns a new Logger which logs nothing. Use WithConfig to set levels
// for namespaces.
func New() Logger {
	return &logger{
		config: LevelDisabled,
		writer: os.Stderr,
		mu:     &sync.Mutex{},
	}
}

// NewFromEnv creates a logger configured from the environment variable named
// key, e.g. MEET_LOG="peer:debug,info".
func NewFromEnv(key string) Logger {
	return New().WithConfig(NewConfigMapFromString(os.Getenv(key)))
}

var _ Logger = &logger{}

func (l *logger) clone() *logger {
	c := *l
	return &c
}

func (l *logger) Namespace() string {
	return l.namespace
}

func (l *logger) IsLevelEnabled(level Level) bool {
	if l.config == nil {
		return false
	}

	return l.config.LevelForNamespace(l.namespace) >= level
}

func (l *logger) WithCtx(ctx Ctx) Logger {
	c := l.clone()
	c.ctx = l.ctx.WithCtx(ctx)

	return c
}

func (l *logger) WithConfig(config Config) Logger {
	if config == nil {
		return l
	}

	c := l.clone()
	c.config = config

	return c
}

func (l *logger) WithWriter(w io.Writer) Logger {
	c := l.clone()
	c.writer = w

	return c
}

func (l *logger) WithNamespaceAppended(namespace string) Logger {
	c := l.clone()

	if c.namespace != "" {
		namespace = c.namespace + ":" + namespace
	}

	c.namespace = namespace

	return c
}

func (l *logger) Trace(message string, ctx Ctx) {
	l.write(LevelTrace, message, ctx)
}

func (l *logger) Debug(message string, ctx Ctx) {
	l.write(LevelDebug, message, ctx)
}

func (l *logger) Info(message string, ctx Ctx) {
	l.write(LevelInfo, message, ctx)
}

func (l *logger) Warn(message string, ctx Ctx) {
	l.write(LevelWarn, message, ctx)
}

func (l *logger) Error(message string, err error, ctx Ctx) {
	l.write(LevelError, message, ctx.WithCtx(Ctx{"error": err}))
}

const dateLayout = "2006-01-02T15:04:05.000000Z07:00"

func (l *logger) write(level Level, message string, ctx Ctx) {
	if !l.IsLevelEnabled(level) {
		return
	}

	ctx = l.ctx.WithCtx(ctx)

	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(fmt.Sprintf("%+v", ctx[k]))
	}

	entry := fmt.Sprintf("%s %5s [%20s] %s%s\n",
		time.Now().Format(dateLayout),
		level,
		l.namespace,
		message,
		b.String(),
	)

	l.mu.Lock()
	_, _ = l.writer.Write([]byte(entry))
	l.mu.Unlock()
}
