package domain

import "strings"

// ConversionRequest is one user invocation: the selected text and the
// transformation to apply. It is created per call and never mutated.
type ConversionRequest struct {
	Text   string     `json:"text" mapstructure:"text"`
	Action ActionKind `json:"action" mapstructure:"action"`
}

// Validate rejects blank text and unknown actions with KindInvalidInput.
// The action must be an exact token; use ParseAction to normalize raw input.
func (r ConversionRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return NewError(KindInvalidInput, "no text to convert: input is empty or whitespace-only")
	}
	if !r.Action.Valid() {
		return unsupportedAction(string(r.Action))
	}
	return nil
}

// ConversionResult is the outcome of a single dispatch. Exactly one of
// Output (on success) or Err (on failure) is meaningful.
type ConversionResult struct {
	RequestID string           `json:"request_id,omitempty"`
	Output    string           `json:"output,omitempty"`
	Err       *ConversionError `json:"-"`
	Cached    bool             `json:"cached,omitempty"`
}

// Success builds a successful result. Whitespace-only output is never a
// success; it is turned into an EmptyResult failure instead.
func Success(output string) ConversionResult {
	if strings.TrimSpace(output) == "" {
		return Failure(NewError(KindEmptyResult, "worker produced only whitespace; no result to apply"))
	}
	return ConversionResult{Output: output}
}

// Failure builds a failed result.
func Failure(err *ConversionError) ConversionResult {
	return ConversionResult{Err: err}
}

// OK reports whether the result carries usable output.
func (r ConversionResult) OK() bool {
	return r.Err == nil
}

// Kind returns the failure kind, or "" on success.
func (r ConversionResult) Kind() ErrorKind {
	if r.Err == nil {
		return ""
	}
	return r.Err.Kind
}

// Unpack converts the result into the editor-facing (text, error) pair.
func (r ConversionResult) Unpack() (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	return r.Output, nil
}
