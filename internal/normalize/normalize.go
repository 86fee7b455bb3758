// Package normalize maps host outcomes onto the façade's error taxonomy.
package normalize

import (
	stderrors "errors"
	"strings"

	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/host"
)

// Error converts any provider failure to a *errors.WortalError.
// Unrecognized shapes become RETHROW_FROM_PLATFORM with the message intact.
func Error(err error) error {
	if err == nil {
		return nil
	}

	var wErr *errors.WortalError
	if stderrors.As(err, &wErr) {
		return wErr
	}

	var pErr *host.ProviderError
	if stderrors.As(err, &pErr) {
		return fromProvider(pErr)
	}

	msg := err.Error()
	if kind, ok := errors.ParseKind(strings.TrimSpace(msg)); ok {
		return errors.New(kind, msg)
	}
	return errors.NewRethrow(msg)
}

func fromProvider(pErr *host.ProviderError) *errors.WortalError {
	// Hosts put the kind in code, or in message when code is absent.
	if kind, ok := errors.ParseKind(pErr.Code); ok {
		msg := pErr.Message
		if msg == "" {
			msg = pErr.Code
		}
		return errors.New(kind, msg)
	}
	if pErr.Code == "" {
		if kind, ok := errors.ParseKind(pErr.Message); ok {
			return errors.New(kind, pErr.Message)
		}
	}

	out := errors.NewRethrow(pErr.Error())
	if pErr.Code != "" {
		out.Details = map[string]any{"platform_code": pErr.Code}
	}
	return out
}

// Result passes a success value through untouched and normalizes the failure.
func Result[T any](v T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, Error(err)
	}
	return v, nil
}
