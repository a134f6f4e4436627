package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hexowl/internal/logging"
)

// Metadata is the parsed namespace-configuration file.
type Metadata struct {
	LoadURI    string
	Namespaces *Namespaces
}

// ReadMetadata parses a metadata file of the form
//
//	{"load-uri": "zoo.yaml", "namespaces": {"zoo": "http://example.org/zoo#"}}
//
// Namespace entries with non-string values are logged and skipped. The
// namespace order of the file is preserved.
func ReadMetadata(r io.Reader, order SimplifyOrder) (*Metadata, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
	}

	meta := &Metadata{Namespaces: NewNamespaces(order)}
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
		}
		switch key {
		case "load-uri":
			var uri interface{}
			if err := dec.Decode(&uri); err != nil {
				return nil, fmt.Errorf("%w: load-uri: %v", ErrMetadata, err)
			}
			s, ok := uri.(string)
			if !ok {
				return nil, fmt.Errorf("%w: load-uri must be a string, got %T", ErrMetadata, uri)
			}
			meta.LoadURI = s
		case "namespaces":
			if err := readNamespaces(dec, meta.Namespaces); err != nil {
				return nil, fmt.Errorf("%w: namespaces: %v", ErrMetadata, err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMetadata, key, err)
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected %v after metadata object", tok)
		}
		return nil, fmt.Errorf("%w: trailing data: %v", ErrMetadata, err)
	}
	if meta.LoadURI == "" {
		return nil, fmt.Errorf("%w: missing load-uri", ErrMetadata)
	}
	return meta, nil
}

// ReadMetadataFile opens and parses path.
func ReadMetadataFile(path string, order SimplifyOrder) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	defer f.Close()
	return ReadMetadata(f, order)
}

func readNamespaces(dec *json.Decoder, ns *Namespaces) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		prefix, err := stringToken(dec)
		if err != nil {
			return err
		}
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return err
		}
		iri, ok := v.(string)
		if !ok {
			logging.Get(logging.CategoryContext).Error("namespaces must have string values, skipping %s / %v", prefix, v)
			continue
		}
		ns.Set(prefix, iri)
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", errors.New("expected object key")
	}
	return s, nil
}

// ResolveURI turns a load-uri into an absolute URI. Values without a scheme
// become file:// URIs; relative paths are taken relative to base.
func ResolveURI(uri, base string) string {
	if strings.Contains(uri, "://") {
		return uri
	}
	if filepath.IsAbs(uri) {
		return "file://" + filepath.ToSlash(uri)
	}
	return "file://" + filepath.ToSlash(filepath.Join(base, uri))
}

// uriPath returns the local path of a file:// URI.
func uriPath(uri string) (string, error) {
	if !strings.HasPrefix(uri, "file://") {
		return "", fmt.Errorf("unsupported URI scheme in %s", uri)
	}
	return filepath.FromSlash(strings.TrimPrefix(uri, "file://")), nil
}
