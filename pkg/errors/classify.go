// Package errors classifies connection failures into actionable categories and
// carries the per-category retry strategy table. Classification is pure: the same
// input error always yields the same category, severity, and recovery suggestion,
// and nothing here logs or retries on its own.
package errors

import (
	"context"
	"errors"
	"net"
	"os/exec"
	"regexp"
	"syscall"
)

// Category identifies the kind of failure a connection attempt produced.
type Category string

const (
	// CategoryTransport covers socket, DNS, and process-spawn failures.
	CategoryTransport Category = "transport"
	// CategoryTimeout covers operations that exceeded their deadline.
	CategoryTimeout Category = "timeout"
	// CategoryAuth covers rejected credentials and authorization failures.
	CategoryAuth Category = "auth"
	// CategoryCapability covers features the server does not support.
	CategoryCapability Category = "capability"
	// CategoryProtocol covers version mismatches and malformed messages.
	CategoryProtocol Category = "protocol"
	// CategoryToolExecution covers failures of individual tool calls.
	CategoryToolExecution Category = "tool_execution"
	// CategoryResource covers missing or inaccessible server-side resources.
	CategoryResource Category = "resource"
	// CategoryConfiguration covers invalid or incomplete caller configuration.
	CategoryConfiguration Category = "configuration"
	// CategoryUnknown is the fallback for errors no rule matches.
	CategoryUnknown Category = "unknown"
)

// Severity grades how a failure should be surfaced.
type Severity string

const (
	// SeverityPermanent marks failures that will not heal without intervention.
	SeverityPermanent Severity = "permanent"
	// SeverityRecoverable marks failures a changed input or a retry may fix.
	SeverityRecoverable Severity = "recoverable"
	// SeverityTransient marks failures expected to clear on their own.
	SeverityTransient Severity = "transient"
)

// ShouldReport reports whether failures of this severity warrant operator attention.
// Only permanent failures do; everything else is visible in logs and state.
func (s Severity) ShouldReport() bool {
	return s == SeverityPermanent
}

// ClassifiedError is the result of classifying a failure. It wraps the original
// error and carries the retry strategy the caller should apply. The Retry field
// is this error's own copy; mutating it does not affect the strategy table.
type ClassifiedError struct {
	Category           Category
	Severity           Severity
	Message            string
	RecoverySuggestion string
	Retry              RetryStrategy

	cause error
}

// Error returns the classified message.
func (e *ClassifiedError) Error() string {
	return e.Message
}

// Unwrap returns the original error, when classification started from one.
func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// ShouldReport reports whether this failure warrants operator attention.
func (e *ClassifiedError) ShouldReport() bool {
	return e.Severity.ShouldReport()
}

// rule is one entry of the ordered classification table. The first rule whose
// pattern matches the error message wins. A rule may override the category's
// default retry strategy (the ENOENT sub-case of transport errors does).
type rule struct {
	name       string
	pattern    *regexp.Regexp
	category   Category
	severity   Severity
	suggestion string
	strategy   *RetryStrategy
}

// classificationRules is evaluated in order; keep the more specific patterns
// above the generic ones (ENOENT before the generic transport rule, transport's
// ENOTFOUND before resource's bare "not found").
var classificationRules = []rule{
	{
		name:       "spawn-enoent",
		pattern:    regexp.MustCompile(`(?i)\bENOENT\b|executable file not found|command not found|no such file or directory`),
		category:   CategoryTransport,
		severity:   SeverityPermanent,
		suggestion: "verify the server command path and that the executable is installed",
		strategy:   &RetryStrategy{},
	},
	{
		name:       "timeout",
		pattern:    regexp.MustCompile(`(?i)\bETIMEDOUT\b|timed? ?out|deadline exceeded`),
		category:   CategoryTimeout,
		severity:   SeverityTransient,
		suggestion: "increase the connection timeout or check server responsiveness",
	},
	{
		name:       "auth",
		pattern:    regexp.MustCompile(`(?i)\b40[13]\b|unauthorized|forbidden|invalid (api ?key|token|credentials)|authentication failed|access denied`),
		category:   CategoryAuth,
		severity:   SeverityPermanent,
		suggestion: "check the configured credentials for this server",
	},
	{
		name:       "protocol-version",
		pattern:    regexp.MustCompile(`(?i)protocol version|version mismatch|unsupported version`),
		category:   CategoryProtocol,
		severity:   SeverityPermanent,
		suggestion: "upgrade the server or the client so protocol versions overlap",
	},
	{
		name:       "protocol-parse",
		pattern:    regexp.MustCompile(`(?i)malformed|invalid json|parse error|unexpected token|invalid character|unexpected end of (json|input)|cannot unmarshal`),
		category:   CategoryProtocol,
		severity:   SeverityRecoverable,
		suggestion: "the server sent a malformed message; check its logs",
	},
	{
		name:       "capability",
		pattern:    regexp.MustCompile(`(?i)capabilit(y|ies)|not supported|unsupported (feature|method|operation)`),
		category:   CategoryCapability,
		severity:   SeverityPermanent,
		suggestion: "the server does not support this feature; remove it from the request",
	},
	{
		name:       "transport",
		pattern:    regexp.MustCompile(`(?i)\bECONNREFUSED\b|\bECONNRESET\b|\bEPIPE\b|\bEACCES\b|\bENOTFOUND\b|\bEAI_AGAIN\b|connection (refused|reset|closed|failed)|broken pipe|socket hang ?up|dns|network|spawn`),
		category:   CategoryTransport,
		severity:   SeverityRecoverable,
		suggestion: "check that the server is running and reachable",
	},
	{
		name:       "tool-unknown",
		pattern:    regexp.MustCompile(`(?i)unknown tool|no such tool|tool not found`),
		category:   CategoryToolExecution,
		severity:   SeverityRecoverable,
		suggestion: "refresh the tool list; the server's tools may have changed",
	},
	{
		name:       "tool-failed",
		pattern:    regexp.MustCompile(`(?i)tool (call |execution )?(failed|error)`),
		category:   CategoryToolExecution,
		severity:   SeverityTransient,
		suggestion: "retry the tool call; inspect the tool arguments if it keeps failing",
	},
	{
		name:       "configuration",
		pattern:    regexp.MustCompile(`(?i)invalid config|missing (config|field|required)|configuration error|config(uration)? (invalid|not found)`),
		category:   CategoryConfiguration,
		severity:   SeverityPermanent,
		suggestion: "fix the server configuration before reconnecting",
	},
	{
		name:       "resource",
		pattern:    regexp.MustCompile(`(?i)(file|resource) not found|\b404\b|not found|permission denied|\bEPERM\b`),
		category:   CategoryResource,
		severity:   SeverityRecoverable,
		suggestion: "check that the requested resource exists and is readable",
	},
}

// categoryDefaults supplies severity and suggestion for errors constructed by
// category rather than matched by a rule.
var categoryDefaults = map[Category]struct {
	severity   Severity
	suggestion string
}{
	CategoryTransport:     {SeverityRecoverable, "check that the server is running and reachable"},
	CategoryTimeout:       {SeverityTransient, "increase the connection timeout or check server responsiveness"},
	CategoryAuth:          {SeverityPermanent, "check the configured credentials for this server"},
	CategoryCapability:    {SeverityPermanent, "the server does not support this feature"},
	CategoryProtocol:      {SeverityPermanent, "check protocol compatibility between client and server"},
	CategoryToolExecution: {SeverityRecoverable, "retry the tool call"},
	CategoryResource:      {SeverityRecoverable, "check that the requested resource exists"},
	CategoryConfiguration: {SeverityPermanent, "fix the server configuration"},
	CategoryUnknown:       {SeverityTransient, ""},
}

// Classify maps an arbitrary failure to its category, severity, and retry
// strategy. Structured sentinels are checked before the message patterns so a
// wrapped context deadline is a timeout regardless of its text. An error that is
// already classified passes through unchanged. Classify(nil) returns nil.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var cerr *ClassifiedError
	if errors.As(err, &cerr) {
		return cerr
	}

	if ce := classifySentinel(err); ce != nil {
		return ce
	}

	ce := ClassifyMessage(err.Error())
	ce.cause = err
	return ce
}

// classifySentinel handles well-known error values and types ahead of the
// pattern table.
func classifySentinel(err error) *ClassifiedError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newFromCategory(CategoryTimeout, err, nil)
	case errors.Is(err, context.Canceled):
		// Cancellation is caller-initiated; retrying would fight the caller.
		return newFromCategory(CategoryUnknown, err, &RetryStrategy{})
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, syscall.ENOENT):
		ce := newFromCategory(CategoryTransport, err, &RetryStrategy{})
		ce.Severity = SeverityPermanent
		ce.RecoverySuggestion = "verify the server command path and that the executable is installed"
		return ce
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return newFromCategory(CategoryTransport, err, nil)
	case errors.Is(err, syscall.ETIMEDOUT):
		return newFromCategory(CategoryTimeout, err, nil)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newFromCategory(CategoryTimeout, err, nil)
	}
	return nil
}

// ClassifyMessage classifies a bare message through the pattern table alone.
// Unmatched messages fall through to the unknown category.
func ClassifyMessage(msg string) *ClassifiedError {
	for _, r := range classificationRules {
		if !r.pattern.MatchString(msg) {
			continue
		}
		ce := &ClassifiedError{
			Category:           r.category,
			Severity:           r.severity,
			Message:            msg,
			RecoverySuggestion: r.suggestion,
			Retry:              StrategyFor(r.category),
		}
		if r.strategy != nil {
			ce.Retry = *r.strategy
		}
		return ce
	}

	return &ClassifiedError{
		Category: CategoryUnknown,
		Severity: SeverityTransient,
		Message:  msg,
		Retry:    StrategyFor(CategoryUnknown),
	}
}

// New builds a classified error directly from a category, bypassing the pattern
// table. Severity and suggestion come from the category defaults.
func New(category Category, msg string) *ClassifiedError {
	ce := &ClassifiedError{
		Category: category,
		Message:  msg,
		Retry:    StrategyFor(category),
	}
	if def, ok := categoryDefaults[category]; ok {
		ce.Severity = def.severity
		ce.RecoverySuggestion = def.suggestion
	} else {
		ce.Severity = SeverityTransient
	}
	return ce
}

// Wrap is New with an underlying cause preserved for errors.Is/As chains.
func Wrap(category Category, msg string, cause error) *ClassifiedError {
	ce := New(category, msg)
	ce.cause = cause
	return ce
}

func newFromCategory(category Category, cause error, override *RetryStrategy) *ClassifiedError {
	ce := New(category, cause.Error())
	ce.cause = cause
	if override != nil {
		ce.Retry = *override
	}
	return ce
}

// IsCategory reports whether err classifies into the given category.
func IsCategory(err error, category Category) bool {
	if err == nil {
		return false
	}
	return Classify(err).Category == category
}
