// Package fragdex extracts normalized text fragments from spreadsheet
// workbooks and keeps a vector store incrementally consistent with them.
package fragdex

import "go.uber.org/zap"

// DefaultMinImageArea is the smallest pixel area an embedded image must
// cover to be reported. Tiny images are almost always logos or spacers.
const DefaultMinImageArea = 500

// Options configures parsing behavior.
type Options struct {
	// MinImageArea overrides the embedded-image area threshold in pixels.
	// Zero uses DefaultMinImageArea.
	MinImageArea int
	// IncludeShapeText controls whether shape text bodies are appended to
	// image fragments. If nil, defaults to true.
	IncludeShapeText *bool
	// Logger receives parse diagnostics. If nil, logging is disabled.
	Logger *zap.Logger
}

// DefaultOptions returns default parsing options.
func DefaultOptions() Options {
	return Options{}
}

func (o Options) minImageArea() int {
	if o.MinImageArea > 0 {
		return o.MinImageArea
	}
	return DefaultMinImageArea
}

func (o Options) includeShapeText() bool {
	if o.IncludeShapeText != nil {
		return *o.IncludeShapeText
	}
	return true
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}
