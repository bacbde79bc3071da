package cftemplate

import (
	"context"
	"sync"
)

// MemoryFetcher serves forms and publications from memory.
// It is primarily intended for tests and offline rendering.
type MemoryFetcher struct {
	mu           sync.RWMutex
	forms        map[string]*Form
	publications map[PublicationRef]string
	closed       bool
}

// MemoryFetcherDriver is the driver for creating MemoryFetcher instances.
type MemoryFetcherDriver struct{}

func init() {
	RegisterFetcherDriver(FetcherDriverMemory, &MemoryFetcherDriver{})
}

// Open creates an empty MemoryFetcher. The source is ignored.
func (d *MemoryFetcherDriver) Open(source string) (FetcherCloser, error) {
	return NewMemoryFetcher(), nil
}

// NewMemoryFetcher creates an empty in-memory fetcher
func NewMemoryFetcher() *MemoryFetcher {
	return &MemoryFetcher{
		forms:        make(map[string]*Form),
		publications: make(map[PublicationRef]string),
	}
}

// AddForm stores a form under its digest and returns the digest
func (f *MemoryFetcher) AddForm(form *Form) (string, error) {
	digest, err := form.Digest()
	if err != nil {
		return "", NewStoreError(ErrMsgStoreFailed, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return "", NewFetcherClosedError()
	}
	f.forms[digest] = cloneForm(form)
	return digest, nil
}

// AddPublication maps publisher/project@edition to digest
func (f *MemoryFetcher) AddPublication(pub Publication) error {
	if err := checkPublication(pub.Publisher, pub.Project, pub.Edition); err != nil {
		return err
	}
	if err := checkDigest(pub.Digest); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return NewFetcherClosedError()
	}
	f.publications[pub.Ref()] = pub.Digest
	return nil
}

// FetchForm returns a copy of the stored form
func (f *MemoryFetcher) FetchForm(ctx context.Context, digest string) (*Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, NewFetcherClosedError()
	}
	form, ok := f.forms[digest]
	if !ok {
		return nil, NewFormNotFoundError(digest)
	}
	return cloneForm(form), nil
}

// FetchPublication resolves a publication added with AddPublication
func (f *MemoryFetcher) FetchPublication(ctx context.Context, publisher, project, edition string) (*Publication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref := PublicationRef{Publisher: publisher, Project: project, Edition: edition}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, NewFetcherClosedError()
	}
	digest, ok := f.publications[ref]
	if !ok {
		return nil, NewPublicationNotFoundError(ref)
	}
	return &Publication{Publisher: publisher, Project: project, Edition: edition, Digest: digest}, nil
}

// Close drops all stored data
func (f *MemoryFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.forms = nil
	f.publications = nil
	return nil
}

// cloneForm deep-copies a form so callers cannot mutate stored content
func cloneForm(form *Form) *Form {
	if form == nil {
		return nil
	}
	out := &Form{Conspicuous: form.Conspicuous}
	if form.Content != nil {
		out.Content = make([]Element, len(form.Content))
	}
	for i, el := range form.Content {
		out.Content[i] = el
		if el.Type == ElementChild && el.Child != nil {
			out.Content[i].Child = &Child{Heading: el.Child.Heading, Form: cloneForm(el.Child.Form)}
		}
	}
	return out
}
