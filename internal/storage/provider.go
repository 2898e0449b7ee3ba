package storage

import "luma/internal/ports"

// Provider is the storage contract used across the API, the pipeline and
// the janitor. It is an alias to ports.StorageProvider to keep call-sites
// simple.
type Provider = ports.StorageProvider
