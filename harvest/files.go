package harvest

import (
	"github.com/ndlib/fedharvest/address"
	"github.com/ndlib/fedharvest/foxml"
)

// primaryDatastreams are checked in order when choosing an object's main
// file.
var primaryDatastreams = []string{"OBJ", "PDF"}

// extensions maps MIME types to the file extension used when the file is
// staged.
var extensions = map[string]string{
	"application/pdf":    ".pdf",
	"image/jpeg":         ".jpg",
	"image/jp2":          ".jp2",
	"image/png":          ".png",
	"image/gif":          ".gif",
	"image/tiff":         ".tif",
	"audio/mpeg":         ".mp3",
	"audio/x-wav":        ".wav",
	"audio/wav":          ".wav",
	"video/mp4":          ".mp4",
	"video/quicktime":    ".mov",
	"text/plain":         ".txt",
	"text/xml":           ".xml",
	"application/xml":    ".xml",
	"application/zip":    ".zip",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

// Extension returns the file extension for a MIME type, or ".bin".
func Extension(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return ".bin"
}

// Primary describes the main file of an object.
type Primary struct {
	DatastreamID string
	MIMEType     string
	Extension    string
	Address      address.Address // location in the datastream store
}

// PrimaryFile picks the main file of obj: the OBJ datastream if it has one,
// otherwise PDF. It returns false if the object has neither as an external
// file. Nothing is read or copied.
func PrimaryFile(obj *foxml.Object) (Primary, bool) {
	files := obj.Files()
	for _, id := range primaryDatastreams {
		for _, f := range files {
			if f.DatastreamID != id {
				continue
			}
			addr, err := address.Resolve(f.Ref)
			if err != nil {
				return Primary{}, false
			}
			return Primary{
				DatastreamID: id,
				MIMEType:     f.MIMEType,
				Extension:    Extension(f.MIMEType),
				Address:      addr,
			}, true
		}
	}
	return Primary{}, false
}
