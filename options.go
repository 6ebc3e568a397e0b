package uploadguard

// WriteOption configures a single Store.Write
type WriteOption func(*WriteOptions)

// WriteOptions contains all possible options for a store write
type WriteOptions struct {
	// ContentType specifies the MIME type of the file
	ContentType string

	// Metadata contains additional metadata for the file
	Metadata map[string]string

	// Overwrite determines whether to overwrite existing files
	Overwrite bool

	// CacheControl sets the Cache-Control value for drivers that keep one
	CacheControl string
}

// ApplyWriteOptions folds opts into a WriteOptions value.
// Drivers call this at the top of Write.
func ApplyWriteOptions(opts ...WriteOption) *WriteOptions {
	o := &WriteOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithContentType sets the content type of the file
func WithContentType(contentType string) WriteOption {
	return func(o *WriteOptions) {
		o.ContentType = contentType
	}
}

// WithMetadata merges additional metadata into the file's metadata
func WithMetadata(metadata map[string]string) WriteOption {
	return func(o *WriteOptions) {
		if o.Metadata == nil {
			o.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			o.Metadata[k] = v
		}
	}
}

// WithOverwrite enables or disables overwriting existing files
func WithOverwrite(overwrite bool) WriteOption {
	return func(o *WriteOptions) {
		o.Overwrite = overwrite
	}
}

// WithCacheControl sets the Cache-Control value
func WithCacheControl(cacheControl string) WriteOption {
	return func(o *WriteOptions) {
		o.CacheControl = cacheControl
	}
}
