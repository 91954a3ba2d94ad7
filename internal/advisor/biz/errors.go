package biz

import (
	"errors"
	"fmt"
)

// FailureKind classifies pipeline failures. Every kind maps to exactly one
// user-visible message, applied once at the pipeline boundary.
type FailureKind int

const (
	// FailureEmbedding means the embedding vendor call failed.
	FailureEmbedding FailureKind = iota
	// FailureIndex means the vector index was unreachable or the search failed.
	FailureIndex
	// FailureEmptyIndex means the catalog collection holds no entries.
	FailureEmptyIndex
	// FailureNoUsableMatches means the search succeeded but every match was
	// dropped during metadata validation, or nothing matched at all.
	FailureNoUsableMatches
	// FailureGeneration means the chat vendor call failed.
	FailureGeneration
	// FailureEmptyGeneration means the chat vendor returned an empty reply.
	FailureEmptyGeneration
	// FailureConfiguration means a dependency was miswired at startup.
	FailureConfiguration
)

// String returns the kind name used in logs and metrics labels.
func (k FailureKind) String() string {
	switch k {
	case FailureEmbedding:
		return "embedding_unavailable"
	case FailureIndex:
		return "index_unavailable"
	case FailureEmptyIndex:
		return "empty_index"
	case FailureNoUsableMatches:
		return "no_usable_matches"
	case FailureGeneration:
		return "generation_unavailable"
	case FailureEmptyGeneration:
		return "empty_generation"
	case FailureConfiguration:
		return "configuration_error"
	default:
		return "unknown"
	}
}

// Failure is a classified pipeline error. It wraps the underlying cause for
// logging while the kind selects the user-visible reply.
type Failure struct {
	Kind  FailureKind
	Cause error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Cause == nil {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Cause)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (f *Failure) Unwrap() error {
	return f.Cause
}

// NewFailure wraps cause with a failure kind.
func NewFailure(kind FailureKind, cause error) *Failure {
	return &Failure{Kind: kind, Cause: cause}
}

// AsFailure extracts a *Failure from err. Unclassified errors are treated
// as generation failures so the user always gets a coherent reply.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: FailureGeneration, Cause: err}
}

// User-visible replies. The service speaks Russian to its users, so these
// texts are intentionally not translated.
const (
	msgEmbeddingUnavailable = "Извините, сейчас я не могу обработать ваш запрос. Попробуйте повторить его чуть позже."
	msgIndexUnavailable     = "Извините, база курсов временно недоступна. Попробуйте повторить запрос чуть позже."
	msgEmptyIndex           = "База курсов пока пуста, и мне нечего посоветовать. Загляните позже, когда каталог будет заполнен."
	msgNoUsableMatches      = "Я не нашёл в каталоге курсов, подходящих под ваш запрос. Попробуйте переформулировать его."
	msgGenerationFailed     = "Извините, сейчас я не могу сформулировать ответ. Попробуйте повторить запрос чуть позже."
	msgEmptyGeneration      = "Извините, у меня не получилось подготовить ответ. Попробуйте переформулировать вопрос."
	msgConfigurationError   = "Извините, сервис временно не настроен. Обратитесь к администратору."
)

// UserMessage maps a failure to the fixed reply shown to the user.
// It never exposes the underlying cause.
func (f *Failure) UserMessage() string {
	switch f.Kind {
	case FailureEmbedding:
		return msgEmbeddingUnavailable
	case FailureIndex:
		return msgIndexUnavailable
	case FailureEmptyIndex:
		return msgEmptyIndex
	case FailureNoUsableMatches:
		return msgNoUsableMatches
	case FailureGeneration:
		return msgGenerationFailed
	case FailureEmptyGeneration:
		return msgEmptyGeneration
	case FailureConfiguration:
		return msgConfigurationError
	default:
		return msgGenerationFailed
	}
}
