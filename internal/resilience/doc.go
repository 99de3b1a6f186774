// Package resilience provides reliability and fault tolerance patterns for the pipeline.
// It includes circuit breakers and retry logic guarding listing pages, RSS feeds,
// the HTTP sentence encoder and the Claude API. Article page fetches and the
// Gemini adapter do not use it.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.ListingConfig("sozcu"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return fetchListingPage()
//	})
//
//	err := retry.WithBackoff(ctx, retry.ListingConfig(), func() error {
//	    return performOperation()
//	})
package resilience
