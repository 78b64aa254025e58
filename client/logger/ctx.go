package logger

// Ctx carries the structured key/value pairs attached to a log entry.
type Ctx map[string]interface{}

// WithCtx merges the receiver and newCtx into a fresh Ctx, values from
// newCtx winning on key collisions. Neither input is modified.
func (c Ctx) WithCtx(newCtx Ctx) Ctx {
	if c == nil {
		return newCtx
	}

	if newCtx == nil {
		return c
	}

	merged := make(Ctx, len(c)+len(newCtx))

	for k, v := range c {
		merged[k] = v
	}

	for k, v := range newCtx {
		merged[k] = v
	}

	return merged
}
