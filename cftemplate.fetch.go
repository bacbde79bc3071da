package cftemplate

import (
	"context"
	"sort"
	"sync"
)

// Publication maps a publisher, project and edition to the digest of the
// published form.
type Publication struct {
	Publisher string `json:"publisher"`
	Project   string `json:"project"`
	Edition   string `json:"edition"`
	Digest    string `json:"digest"`
}

// Ref returns the publication coordinates
func (p *Publication) Ref() PublicationRef {
	return PublicationRef{Publisher: p.Publisher, Project: p.Project, Edition: p.Edition}
}

// FormFetcher retrieves forms by digest and resolves publications to digests.
// Implementations must be safe for concurrent use.
type FormFetcher interface {
	// FetchForm retrieves the form with the given SHA-256 digest.
	FetchForm(ctx context.Context, digest string) (*Form, error)

	// FetchPublication resolves publisher/project@edition.
	FetchPublication(ctx context.Context, publisher, project, edition string) (*Publication, error)
}

// FetcherCloser is a FormFetcher holding resources that must be released
type FetcherCloser interface {
	FormFetcher
	Close() error
}

// FetcherDriver is a factory for creating fetcher instances.
// Drivers register themselves during init().
type FetcherDriver interface {
	// Open creates a fetcher. The source format is driver-specific:
	// a host for http, a directory for filesystem, a DSN for SQL drivers.
	Open(source string) (FetcherCloser, error)
}

// Fetcher driver registry
var (
	fetcherDriversMu sync.RWMutex
	fetcherDrivers   = make(map[string]FetcherDriver)
)

// RegisterFetcherDriver registers a fetcher driver by name.
// Panics if driver is nil or the name is already taken.
func RegisterFetcherDriver(name string, driver FetcherDriver) {
	fetcherDriversMu.Lock()
	defer fetcherDriversMu.Unlock()

	if driver == nil {
		panic(ErrMsgNilFetcherDriver)
	}
	if _, exists := fetcherDrivers[name]; exists {
		panic(ErrMsgDriverAlreadyRegistered + ": " + name)
	}
	fetcherDrivers[name] = driver
}

// OpenFetcher opens a fetcher using the named driver.
//
// Example:
//
//	fetcher, err := cftemplate.OpenFetcher("http", "api.commonform.org")
//	fetcher, err := cftemplate.OpenFetcher("filesystem", "/var/lib/commonform")
func OpenFetcher(driverName, source string) (FetcherCloser, error) {
	fetcherDriversMu.RLock()
	driver, ok := fetcherDrivers[driverName]
	fetcherDriversMu.RUnlock()

	if !ok {
		return nil, NewFetcherDriverNotFoundError(driverName)
	}
	return driver.Open(source)
}

// ListFetcherDrivers returns the names of all registered fetcher drivers, sorted.
func ListFetcherDrivers() []string {
	fetcherDriversMu.RLock()
	defer fetcherDriversMu.RUnlock()

	names := make([]string, 0, len(fetcherDrivers))
	for name := range fetcherDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkDigest validates a digest before it reaches a backend
func checkDigest(digest string) error {
	if !IsDigest(digest) {
		return NewInvalidDigestError(digest)
	}
	return nil
}

// checkPublication validates publication coordinates before they reach a backend
func checkPublication(publisher, project, edition string) error {
	ref := PublicationRef{Publisher: publisher, Project: project, Edition: edition}
	if !publicationPattern.MatchString(ref.String()) {
		return NewInvalidPublicationError(ref)
	}
	return nil
}
