package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// TokenFetchOp is the span operation recorded when a cached access token is
// missing and has to be fetched from its source
const TokenFetchOp = "cache.token.fetch"

// StartTokenFetchSpan starts a span around a token fetch that missed the
// cache. It returns nil when the context carries no Sentry hub.
func StartTokenFetchSpan(ctx context.Context, source string) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	span := sentry.StartSpan(ctx, TokenFetchOp)
	span.Description = TokenFetchOp + "." + source
	span.SetData("source", source)
	return span
}

// FinishTokenFetchSpan records the outcome of the fetch and finishes the span.
// A nil span is ignored.
func FinishTokenFetchSpan(span *sentry.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("error", err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Finish()
}
