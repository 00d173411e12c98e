package eia

var (
	_ Query = (*SeriesQuery)(nil)
	_ Query = (*CategoryQuery)(nil)
)

type tableConfig struct {
	includeMetadata bool
}

// TableOption modifies the tabular form of the query results.
type TableOption func(c *tableConfig)

// WithoutMetadata turns off the metadata columns, only the resource columns are kept.
func WithoutMetadata() TableOption {
	return func(c *tableConfig) {
		c.includeMetadata = false
	}
}

func newTableConfig(opts []TableOption) tableConfig {
	cfg := tableConfig{includeMetadata: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
