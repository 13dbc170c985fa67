package common

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
)

// ZipHas reports whether the archive contains an entry named name.
func ZipHas(r *zip.Reader, name string) bool {
	for _, f := range r.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// ReadZipEntry returns the contents of the named entry.
func ReadZipEntry(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("zip entry %s not found", name)
}

// CoreProperties is the Dublin Core metadata of an Office Open XML package
// (docProps/core.xml).
type CoreProperties struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	Keywords       string `xml:"keywords"`
	Description    string `xml:"description"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Category       string `xml:"category"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

// ReadCoreProperties parses docProps/core.xml, returning an empty value
// when the package has none.
func ReadCoreProperties(r *zip.Reader) CoreProperties {
	var props CoreProperties
	data, err := ReadZipEntry(r, "docProps/core.xml")
	if err != nil {
		return props
	}
	_ = xml.Unmarshal(data, &props)
	return props
}
