package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidSchema is returned when a product schema fails validation
	ErrInvalidSchema = errors.New("invalid product schema")

	// ErrInvalidData is returned when a record does not conform to its schema
	ErrInvalidData = errors.New("data does not match schema")

	// ErrLowConfidence is returned when the best candidate scores below the threshold
	ErrLowConfidence = errors.New("match confidence below threshold")

	// ErrEmbeddingFailure is returned when the embedding collaborator fails
	ErrEmbeddingFailure = errors.New("embedding request failed")

	// ErrJudgeFailure is returned when the LLM similarity judge fails or answers without a score
	ErrJudgeFailure = errors.New("similarity judge request failed")

	// ErrExtractionFailure is returned when page extraction cannot produce a record
	ErrExtractionFailure = errors.New("product extraction failed")

	// ErrTemplateNotFound is returned when a template id or name is unknown
	ErrTemplateNotFound = errors.New("template not found")

	// ErrSystemTemplate is returned when removing a built-in template
	ErrSystemTemplate = errors.New("system templates cannot be removed")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
