package assist

import (
	"errors"
	"fmt"

	"github.com/gamzabox/humble-doc-cli/internal/llm"
	"github.com/gamzabox/humble-doc-cli/internal/source"
)

// Describe renders err for a human reader.
func Describe(err error) string {
	var (
		pipeErr  *PipelineError
		svcErr   *llm.ServiceError
		fetchErr *source.FetchError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pipeErr):
		return fmt.Sprintf("Processing stopped at chunk %d of %d: %v", pipeErr.Chunk, pipeErr.Total, pipeErr.Cause)
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("Failed to load the document link: %v", fetchErr)
	case errors.As(err, &svcErr):
		return fmt.Sprintf("The text-generation service failed: %v", svcErr)
	default:
		return err.Error()
	}
}
