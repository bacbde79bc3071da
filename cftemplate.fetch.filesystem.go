package cftemplate

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FilesystemFetcher serves forms and publications from an offline mirror.
//
// Directory structure:
//
//	<root>/
//	  forms/
//	    <digest>.json
//	  publications/
//	    <publisher>/<project>/<edition>.json
//
// Form files hold Common Form native JSON. Publication files hold a
// Publication record; only its digest is required.
type FilesystemFetcher struct {
	mu     sync.RWMutex
	root   string
	closed bool
}

// FilesystemFetcherDriver is the driver for creating FilesystemFetcher instances.
type FilesystemFetcherDriver struct{}

func init() {
	RegisterFetcherDriver(FetcherDriverFilesystem, &FilesystemFetcherDriver{})
}

// Open creates a FilesystemFetcher. The source is the mirror root.
func (d *FilesystemFetcherDriver) Open(source string) (FetcherCloser, error) {
	return NewFilesystemFetcher(source)
}

// NewFilesystemFetcher creates a fetcher over root, creating it if needed
func NewFilesystemFetcher(root string) (*FilesystemFetcher, error) {
	if root == "" {
		return nil, NewInvalidFetcherSourceError(FetcherDriverFilesystem, root)
	}
	if err := os.MkdirAll(root, FilesystemDirPermissions); err != nil {
		return nil, NewStoreError(ErrMsgCreateMirrorDir, err)
	}
	return &FilesystemFetcher{root: root}, nil
}

func (f *FilesystemFetcher) formPath(digest string) string {
	return filepath.Join(f.root, FilesystemFormsDir, digest+ExtJSON)
}

func (f *FilesystemFetcher) publicationPath(publisher, project, edition string) string {
	return filepath.Join(f.root, FilesystemPublicationsDir, publisher, project, edition+ExtJSON)
}

// FetchForm reads <root>/forms/<digest>.json
func (f *FilesystemFetcher) FetchForm(ctx context.Context, digest string) (*Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkDigest(digest); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, NewFetcherClosedError()
	}

	path := f.formPath(digest)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewFormNotFoundError(digest)
		}
		return nil, NewReadError(path, err)
	}
	return ParseFormJSON(data)
}

// FetchPublication reads <root>/publications/<publisher>/<project>/<edition>.json
func (f *FilesystemFetcher) FetchPublication(ctx context.Context, publisher, project, edition string) (*Publication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPublication(publisher, project, edition); err != nil {
		return nil, err
	}

	ref := PublicationRef{Publisher: publisher, Project: project, Edition: edition}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, NewFetcherClosedError()
	}

	path := f.publicationPath(publisher, project, edition)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewPublicationNotFoundError(ref)
		}
		return nil, NewReadError(path, err)
	}

	var pub Publication
	if err := json.Unmarshal(data, &pub); err != nil {
		return nil, NewInvalidResponseError(path, err)
	}
	if err := checkDigest(pub.Digest); err != nil {
		return nil, err
	}
	pub.Publisher, pub.Project, pub.Edition = publisher, project, edition
	return &pub, nil
}

// PutForm writes form into the mirror and returns its digest
func (f *FilesystemFetcher) PutForm(ctx context.Context, form *Form) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	digest, err := form.Digest()
	if err != nil {
		return "", NewStoreError(ErrMsgStoreFailed, err)
	}
	data, err := form.CanonicalJSON()
	if err != nil {
		return "", NewStoreError(ErrMsgStoreFailed, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return "", NewFetcherClosedError()
	}
	if err := writeMirrorFile(f.formPath(digest), data); err != nil {
		return "", err
	}
	return digest, nil
}

// PutPublication writes a publication record into the mirror
func (f *FilesystemFetcher) PutPublication(ctx context.Context, pub Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkPublication(pub.Publisher, pub.Project, pub.Edition); err != nil {
		return err
	}
	if err := checkDigest(pub.Digest); err != nil {
		return err
	}
	data, err := json.MarshalIndent(pub, "", "  ")
	if err != nil {
		return NewStoreError(ErrMsgStoreFailed, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return NewFetcherClosedError()
	}
	return writeMirrorFile(f.publicationPath(pub.Publisher, pub.Project, pub.Edition), data)
}

func writeMirrorFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), FilesystemDirPermissions); err != nil {
		return NewStoreError(ErrMsgCreateMirrorDir, err)
	}
	if err := os.WriteFile(path, data, FilesystemFilePermissions); err != nil {
		return NewStoreError(ErrMsgStoreFailed, err)
	}
	return nil
}

// Close marks the fetcher closed
func (f *FilesystemFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}
