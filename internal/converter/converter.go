// Package converter holds the processing delegates that turn a staged
// document into the text stored under the job's output variable.
package converter

import "context"

// Converter converts the file at path and returns the result text
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// ConverterFunc adapts a function to Converter
type ConverterFunc func(ctx context.Context, path string) (string, error)

// Convert calls f(ctx, path)
func (f ConverterFunc) Convert(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}
