package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure leaving the engine wraps exactly one of these,
// so callers can branch with errors.Is.
var (
	// ErrUnsupportedFileType indicates an upload that is neither .pdf nor .txt.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrFileTooLarge indicates an upload above the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrExtractionFailed indicates a corrupt or empty document.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrInvalidConfiguration indicates impossible parameters, such as a
	// chunk overlap that is not smaller than the window.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable indicates the embedding model could not be reached
	// or returned unusable vectors.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrStorage indicates a failure of the persistent vector store.
	ErrStorage = errors.New("storage error")

	// ErrGenerationFailed indicates the completion service failed or returned nothing.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTimeout indicates an embedding or generation call exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrInvalidInput indicates a missing space id or query on a request.
	ErrInvalidInput = errors.New("invalid input")
)

var kinds = []error{
	ErrUnsupportedFileType,
	ErrFileTooLarge,
	ErrExtractionFailed,
	ErrInvalidConfiguration,
	ErrEmbeddingUnavailable,
	ErrStorage,
	ErrGenerationFailed,
	ErrNotFound,
	ErrTimeout,
	ErrInvalidInput,
}

// Error is a classified failure. Kind is one of the sentinel errors above,
// Op names the failing operation and Err holds the cause, if any.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// E builds a classified error.
func E(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error with a formatted cause.
func Errorf(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the sentinel kind of err, or nil when err is unclassified.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) && de.Kind != nil {
		return de.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Classify wraps err with kind unless it already carries a kind.
func Classify(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != nil {
		return err
	}
	return E(kind, op, err)
}
