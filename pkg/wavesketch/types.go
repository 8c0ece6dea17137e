package wavesketch

// QueryOptions controls one findSimilar call.
type QueryOptions struct {
	OptimizeSignatureCount bool
	SearchAll              bool
}

// QueryOption mutates QueryOptions.
type QueryOption func(*QueryOptions)

// WithOptimizeSignatureCount truncates a long clip's fingerprint list
// to Config.MaxSignatureCount before querying, bounding query cost at
// the expense of recall.
func WithOptimizeSignatureCount(enabled bool) QueryOption {
	return func(o *QueryOptions) { o.OptimizeSignatureCount = enabled }
}

// WithSearchAll bypasses LSH lookup and compares against every
// fingerprint in the store.
func WithSearchAll(enabled bool) QueryOption {
	return func(o *QueryOptions) { o.SearchAll = enabled }
}

func defaultQueryOptions() QueryOptions {
	return QueryOptions{OptimizeSignatureCount: true}
}
